// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"userload/internal/etlerr"
)

// Local opens a single file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A missing path, or a path naming a directory, yields an error wrapping
// etlerr.ErrInputNotFound. The underlying fs error is wrapped too, so
// errors.Is(err, fs.ErrNotExist) keeps working. A context that is already
// done short-circuits before touching the filesystem.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w: %w", l.path, etlerr.ErrInputNotFound, err)
		}
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", l.path, err)
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w: is a directory", l.path, etlerr.ErrInputNotFound)
	}
	return f, nil
}
