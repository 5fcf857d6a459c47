package fileset

import (
	godiff "github.com/sourcegraph/go-diff/diff"

	"qgate/internal/gitio"
)

// Options controls which repository state the selector reads.
type Options struct {
	// Range is a diff range specifier such as "main..HEAD". Empty means
	// staged changes.
	Range string
	// AllFiles selects every tracked file instead of a diff. No added-line
	// context is available in this mode.
	AllFiles bool
	// Include restricts the set to matching paths when non-empty.
	Include []string
	// Exclude removes matching paths.
	Exclude []string
}

// Select computes the FileSet for a run. An empty result is valid: gates
// whose file patterns match nothing are recorded as skipped, not passed.
func Select(repoRoot string, opts Options) (*FileSet, error) {
	if opts.AllFiles {
		paths, err := gitio.AllFiles(repoRoot)
		if err != nil {
			return nil, err
		}
		return New(paths).Filter(opts.Include).Exclude(opts.Exclude), nil
	}

	var (
		paths    []string
		diffText string
		err      error
	)
	if opts.Range != "" {
		if paths, err = gitio.RangeFiles(repoRoot, opts.Range); err != nil {
			return nil, err
		}
		if diffText, err = gitio.RangeDiff(repoRoot, opts.Range); err != nil {
			return nil, err
		}
	} else {
		if paths, err = gitio.StagedFiles(repoRoot); err != nil {
			return nil, err
		}
		if diffText, err = gitio.StagedDiff(repoRoot); err != nil {
			return nil, err
		}
	}

	fs := New(paths)
	fs.added = parseAddedLines(diffText)
	return fs.Filter(opts.Include).Exclude(opts.Exclude), nil
}

// parseAddedLines extracts the added lines per file from a unified diff.
// Parse failures degrade to "no added-line context" rather than failing
// the run; only the advisory added-line gates lose precision.
func parseAddedLines(diffText string) map[string][]Line {
	if diffText == "" {
		return nil
	}
	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil
	}

	added := make(map[string][]Line)
	for _, fd := range fileDiffs {
		path := cleanPath(fd.NewName)
		if path == "" {
			continue
		}
		for _, hunk := range fd.Hunks {
			newLine := int(hunk.NewStartLine)
			for _, raw := range splitLines(string(hunk.Body)) {
				if raw == "" {
					newLine++
					continue
				}
				switch raw[0] {
				case '+':
					added[path] = append(added[path], Line{Number: newLine, Text: raw[1:]})
					newLine++
				case '-':
					// removed line, old side only
				case ' ':
					newLine++
				case '\\':
					// "\ No newline at end of file"
				}
			}
		}
	}
	if len(added) == 0 {
		return nil
	}
	return added
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// cleanPath removes the a/ or b/ prefix from git diff paths.
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return ""
	}
	if len(path) > 2 && (path[:2] == "a/" || path[:2] == "b/") {
		return path[2:]
	}
	return path
}
