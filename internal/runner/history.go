package runner

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"qgate/internal/config"
)

// archiveReport writes the report to .qgate/history/<runid>.json.zst and
// prunes old archives past the configured keep count. Archiving is best
// effort; it never affects the run outcome.
func archiveReport(repoRoot string, cfg config.HistoryConfig, report *Report, logger *slog.Logger) {
	if !cfg.Enabled {
		return
	}

	dir := filepath.Join(repoRoot, config.Dir, "history")
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Debug("failed to create history directory", "error", err)
		return
	}

	path := filepath.Join(dir, report.RunID+".json.zst")
	if err := writeArchive(path, report); err != nil {
		logger.Debug("failed to archive report", "error", err)
		return
	}

	if err := pruneArchives(dir, cfg.Keep); err != nil {
		logger.Debug("failed to prune history", "error", err)
	}
}

func writeArchive(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadArchive loads an archived report.
func ReadArchive(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// pruneArchives removes the oldest archives beyond keep. keep <= 0
// disables pruning.
func pruneArchives(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type archive struct {
		name string
		mod  int64
	}
	var archives []archive
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json.zst") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		archives = append(archives, archive{e.Name(), info.ModTime().UnixNano()})
	}

	if len(archives) <= keep {
		return nil
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].mod < archives[j].mod })
	for _, a := range archives[:len(archives)-keep] {
		if err := os.Remove(filepath.Join(dir, a.name)); err != nil {
			return err
		}
	}
	return nil
}
