package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/traderlab/optionscan/internal/screener"
)

// Writer persists scan reports as zstd-compressed JSON snapshots.
// Files are written to a temp path and renamed, so a crashed export
// never leaves a partial snapshot behind.
type Writer struct {
	baseDir string
}

func NewWriter(baseDir string) *Writer {
	return &Writer{baseDir: baseDir}
}

// WriteReport stores one report and returns the final path. The file
// name encodes the mode and start time, so repeated scans of the same
// mode never overwrite each other.
func (w *Writer) WriteReport(report *screener.Report) (string, error) {
	if err := os.MkdirAll(w.baseDir, 0750); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json.zst", report.Mode, report.StartedAt.UTC().Format("20060102T150405"))
	destPath := filepath.Join(w.baseDir, name)
	tmpPath := destPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	err = writeCompressed(f, report)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, destPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	return destPath, nil
}

func writeCompressed(f *os.File, report *screener.Report) error {
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(enc).Encode(report); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadReport loads a snapshot written by WriteReport.
func ReadReport(path string) (*screener.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}
	defer dec.Close()

	var report screener.Report
	if err := json.NewDecoder(dec).Decode(&report); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &report, nil
}
