// Package csvfile writes cleaned users to a CSV file.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"userload/internal/records"
)

// Write emits the canonical header followed by one line per user, in order.
// Fields are quoted only when the csv encoder requires it.
func Write(w io.Writer, users []records.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(records.CanonicalColumns); err != nil {
		return fmt.Errorf("csvfile: write header: %w", err)
	}
	for i, u := range users {
		if err := cw.Write(u.Row()); err != nil {
			return fmt.Errorf("csvfile: write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csvfile: flush: %w", err)
	}
	return nil
}

// WriteFile replaces path with the CSV rendering of users. The content goes
// to a temp file in the same directory first and is renamed into place, so a
// failed write never leaves a truncated file at path. Missing parent
// directories are created.
func WriteFile(path string, users []records.User) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("csvfile: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("csvfile: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, users); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("csvfile: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("csvfile: close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("csvfile: chmod: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("csvfile: rename into %s: %w", path, err)
	}
	return nil
}
