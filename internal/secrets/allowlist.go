package secrets

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/BurntSushi/toml"

	"qgate/internal/fileset"
)

// AllowlistEntry defines one suppression rule.
type AllowlistEntry struct {
	ID     string `toml:"id"`
	Type   string `toml:"type"`  // "path", "pattern", or "rule"
	Value  string `toml:"value"` // path glob, regex, or rule name
	Reason string `toml:"reason"`
}

// AllowlistFile is the structure of .qgate/allowlist.toml.
type AllowlistFile struct {
	Version int              `toml:"version"`
	Allow   []AllowlistEntry `toml:"allow"`
}

// Allowlist manages secret suppression rules.
type Allowlist struct {
	entries []AllowlistEntry

	pathPatterns  []pathMatcher
	valuePatterns []valueMatcher
	rules         map[string]string // rule name -> entry ID
}

type pathMatcher struct {
	pattern string
	entryID string
}

type valueMatcher struct {
	re      *regexp.Regexp
	entryID string
}

// LoadAllowlist loads the allowlist from .qgate/allowlist.toml. A missing
// file yields an empty allowlist.
func LoadAllowlist(repoRoot string) (*Allowlist, error) {
	path := filepath.Join(repoRoot, ".qgate", "allowlist.toml")

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Allowlist{rules: make(map[string]string)}, nil
	}
	if err != nil {
		return nil, err
	}

	var file AllowlistFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	al := &Allowlist{
		entries: file.Allow,
		rules:   make(map[string]string),
	}
	al.compile()
	return al, nil
}

// compile pre-compiles patterns for efficient matching.
func (al *Allowlist) compile() {
	for _, e := range al.entries {
		switch e.Type {
		case "path":
			al.pathPatterns = append(al.pathPatterns, pathMatcher{pattern: e.Value, entryID: e.ID})
		case "pattern":
			if re, err := regexp.Compile(e.Value); err == nil {
				al.valuePatterns = append(al.valuePatterns, valueMatcher{re: re, entryID: e.ID})
			}
		case "rule":
			al.rules[e.Value] = e.ID
		}
	}
}

// IsSuppressed checks if a finding should be suppressed, returning the ID
// of the matching entry.
func (al *Allowlist) IsSuppressed(f *Finding) (bool, string) {
	if al == nil {
		return false, ""
	}

	for _, pm := range al.pathPatterns {
		if fileset.Match(pm.pattern, f.File) {
			return true, pm.entryID
		}
	}

	if id, ok := al.rules[f.Rule]; ok {
		return true, id
	}

	for _, vm := range al.valuePatterns {
		if vm.re.MatchString(f.RawMatch) {
			return true, vm.entryID
		}
	}

	return false, ""
}
