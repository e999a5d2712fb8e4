package csv

import (
	"bufio"
	"bytes"
	"io"
)

var bomBytes = []byte(utf8BOM)

// SkipBOM returns a reader positioned after a leading UTF-8 BOM, if any.
// Stripping at the byte level keeps a quoted first header (BOM followed by
// a double quote) from tripping the bare-quote check in encoding/csv.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bomBytes)); err == nil && bytes.Equal(head, bomBytes) {
		_, _ = br.Discard(len(bomBytes))
	}
	return br
}
