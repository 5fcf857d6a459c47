package secrets

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader returns the content to scan for a repo-relative path. The
// default loader reads the working tree; the secrets gate installs one
// that reads staged blobs so the gate judges what is actually being
// committed.
type Loader func(rel string) ([]byte, error)

// Scanner scans a fixed list of files for exposed secrets. Unlike a full
// repository audit it never walks the tree: the caller (the secrets gate)
// hands it exactly the files under consideration for this run.
type Scanner struct {
	repoRoot  string
	logger    *slog.Logger
	patterns  []Pattern
	allowlist *Allowlist
	load      Loader

	// MinEntropy gates patterns that declare an entropy floor.
	MinEntropy float64
}

// NewScanner creates a new secret scanner rooted at the repository.
func NewScanner(repoRoot string, logger *slog.Logger) *Scanner {
	s := &Scanner{
		repoRoot:   repoRoot,
		logger:     logger,
		patterns:   BuiltinPatterns,
		MinEntropy: 3.5,
	}
	s.load = func(rel string) ([]byte, error) {
		return os.ReadFile(filepath.Join(s.repoRoot, rel))
	}
	return s
}

// UseAllowlist attaches suppression rules to the scanner.
func (s *Scanner) UseAllowlist(al *Allowlist) {
	s.allowlist = al
}

// UseLoader replaces the content source for scanned paths.
func (s *Scanner) UseLoader(load Loader) {
	s.load = load
}

// ScanFiles scans the given repo-relative paths and returns unsuppressed
// findings sorted by severity, then file, then line. The second return is
// the number of findings suppressed by the allowlist.
func (s *Scanner) ScanFiles(ctx context.Context, paths []string) ([]Finding, int, error) {
	var findings []Finding

	for _, rel := range paths {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		fileFindings, err := s.scanFile(rel)
		if err != nil {
			s.logger.Debug("failed to scan file", "file", rel, "error", err)
			continue
		}
		findings = append(findings, fileFindings...)
	}

	suppressed := 0
	if s.allowlist != nil {
		var kept []Finding
		for i := range findings {
			if ok, _ := s.allowlist.IsSuppressed(&findings[i]); ok {
				suppressed++
			} else {
				kept = append(kept, findings[i])
			}
		}
		findings = kept
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity.Weight() != findings[j].Severity.Weight() {
			return findings[i].Severity.Weight() > findings[j].Severity.Weight()
		}
		if findings[i].File != findings[j].File {
			return findings[i].File < findings[j].File
		}
		return findings[i].Line < findings[j].Line
	})

	return findings, suppressed, nil
}

// scanFile scans the content of a single path for secrets.
func (s *Scanner) scanFile(rel string) ([]Finding, error) {
	if hasBinaryExt(rel) {
		return nil, nil
	}

	data, err := s.load(rel)
	if err != nil {
		return nil, err
	}
	if isBinaryContent(data) {
		return nil, nil
	}

	var findings []Finding
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip very long lines (likely minified/encoded)
		if len(line) > 1000 {
			continue
		}

		for _, pattern := range s.patterns {
			matches := pattern.Regex.FindAllStringSubmatchIndex(line, -1)
			if matches == nil {
				continue
			}

			for _, match := range matches {
				var secret string
				if len(match) >= 4 && match[2] >= 0 {
					secret = line[match[2]:match[3]]
				} else {
					secret = line[match[0]:match[1]]
				}

				if pattern.MinEntropy > 0 {
					floor := pattern.MinEntropy
					if s.MinEntropy > floor {
						floor = s.MinEntropy
					}
					if ShannonEntropy(secret) < floor {
						continue
					}
				}

				if isLikelyFalsePositive(line, secret) {
					continue
				}

				findings = append(findings, Finding{
					File:       rel,
					Line:       lineNum,
					Column:     match[0] + 1,
					Type:       pattern.Type,
					Severity:   pattern.Severity,
					Match:      redactSecret(secret, 4),
					RawMatch:   secret,
					Rule:       pattern.Name,
					Confidence: confidence(secret, pattern),
				})
			}
		}
	}

	return findings, scanner.Err()
}

// confidence scores a finding; specific provider formats rate higher than
// generic matches.
func confidence(secret string, pattern Pattern) float64 {
	c := 0.7

	entropy := ShannonEntropy(secret)
	if entropy > 4.0 {
		c += 0.2
	} else if entropy > 3.5 {
		c += 0.1
	}

	if pattern.Type == SecretTypeGenericAPIKey {
		c -= 0.1
	}
	if pattern.Type == SecretTypeGitHubPAT || pattern.Type == SecretTypeAWSAccessKey {
		c += 0.1
	}

	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

// isLikelyFalsePositive checks for common placeholder patterns.
func isLikelyFalsePositive(line, secret string) bool {
	lineLower := strings.ToLower(line)

	indicators := []string{
		"example",
		"sample",
		"placeholder",
		"dummy",
		"fake",
		"mock",
		"<your",
		"your_",
		"xxx",
		"changeme",
		"fixme",
		"todo",
	}
	for _, indicator := range indicators {
		if strings.Contains(lineLower, indicator) {
			return true
		}
	}

	secretLower := strings.ToLower(secret)
	return strings.HasPrefix(secretLower, "example") ||
		strings.Contains(secretLower, "xxxxxxxx")
}

// redactSecret partially hides a secret value.
func redactSecret(s string, keepPrefix int) string {
	if len(s) <= keepPrefix {
		return strings.Repeat("*", len(s))
	}
	redacted := len(s) - keepPrefix
	if redacted > 20 {
		redacted = 20
	}
	return s[:keepPrefix] + strings.Repeat("*", redacted)
}

// hasBinaryExt checks for extensions that never hold text secrets.
func hasBinaryExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	binaryExts := map[string]bool{
		".exe": true, ".dll": true, ".so": true, ".dylib": true,
		".zip": true, ".tar": true, ".gz": true, ".zst": true,
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".ico": true, ".pdf": true, ".woff": true, ".woff2": true,
		".pyc": true, ".class": true, ".o": true, ".a": true,
	}
	return binaryExts[ext]
}

// isBinaryContent checks the leading bytes for a NUL, the usual tell
// for non-text blobs.
func isBinaryContent(data []byte) bool {
	probe := data
	if len(probe) > 512 {
		probe = probe[:512]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
