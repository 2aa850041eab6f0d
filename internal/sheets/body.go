package sheets

// body.go cleans up export bodies before they reach the CSV parser.
//
// Exports occasionally start with a UTF-8 BOM, which would otherwise end up
// glued to the first header cell, and cells pasted from other tools can carry
// invalid UTF-8. Both are repaired here; everything else passes through as is.

import (
	"bytes"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readBody reads at most maxBytes from r, strips a leading BOM and replaces
// invalid UTF-8 sequences with '?'.
func readBody(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", ErrResponseTooLarge
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	return strings.ToValidUTF8(string(data), "?"), nil
}
