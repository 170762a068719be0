package keymanager

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// binaryDetectionBytes is the number of bytes read from the beginning of a
// file to detect binary content, matching Git's own heuristic of checking
// the first 8KB for a null byte.
const binaryDetectionBytes = 8192

// IsBinary reports whether the file at path contains binary content. A
// binary file carries no meaningful textual dependency information, so the
// walk skips it: it is assigned no key and so never appears in any tracker.
//
// An empty file is not considered binary. Files that cannot be opened or
// read return an error.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("keymanager: open %s for binary detection: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, binaryDetectionBytes)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("keymanager: read %s for binary detection: %w", path, err)
	}
	if n == 0 {
		return false, nil
	}
	return bytes.IndexByte(buf[:n], 0) != -1, nil
}
