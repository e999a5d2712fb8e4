// Package datasource abstracts where the input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a fresh reader over the input. Callers close it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
