// Package gridcodec implements the run-length encoding used for dependency
// grid rows, plus direct index access/mutation that avoids materializing
// the full decompressed row where possible.
//
// RLE format: a run of an identical character with length >= 2 is written
// as "<char><decimal count>"; a run of length 1 is written as the bare
// character. Because the grid alphabet never contains digits, a decoder can
// always tell a count apart from the next run's character.
package gridcodec

import (
	"fmt"
	"strconv"
)

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ErrMalformed is returned when an RLE string cannot be decoded: a digit
// appears before any character, or a run count is not a valid decimal
// integer without a leading zero.
type ErrMalformed struct {
	RLE    string
	Reason string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("gridcodec: malformed rle %q: %s", e.RLE, e.Reason)
}

// Compress run-length encodes raw. Runs of length >= 2 become "<char><n>";
// runs of length 1 are written bare.
func Compress(raw string) string {
	if raw == "" {
		return ""
	}
	var out []byte
	i := 0
	for i < len(raw) {
		c := raw[i]
		j := i + 1
		for j < len(raw) && raw[j] == c {
			j++
		}
		runLen := j - i
		out = append(out, c)
		if runLen > 1 {
			out = append(out, []byte(strconv.Itoa(runLen))...)
		}
		i = j
	}
	return string(out)
}

// Decompress expands rle back into the raw character sequence.
func Decompress(rle string) (string, error) {
	if rle == "" {
		return "", nil
	}
	var out []byte
	i := 0
	for i < len(rle) {
		c := rle[i]
		if isDigit(c) {
			return "", &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("unexpected digit %q at offset %d (count with no preceding character)", c, i)}
		}
		i++
		start := i
		for i < len(rle) && isDigit(rle[i]) {
			i++
		}
		count := 1
		if i > start {
			countStr := rle[start:i]
			if len(countStr) > 1 && countStr[0] == '0' {
				return "", &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("run count %q has a leading zero", countStr)}
			}
			n, err := strconv.Atoi(countStr)
			if err != nil {
				return "", &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("invalid run count %q: %v", countStr, err)}
			}
			if n < 2 {
				return "", &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("run count %d must be omitted or >= 2", n)}
			}
			count = n
		}
		for k := 0; k < count; k++ {
			out = append(out, c)
		}
	}
	return string(out), nil
}

// Len returns the decompressed length of rle without allocating the full
// raw string.
func Len(rle string) (int, error) {
	n := 0
	i := 0
	for i < len(rle) {
		c := rle[i]
		if isDigit(c) {
			return 0, &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("unexpected digit %q at offset %d", c, i)}
		}
		i++
		start := i
		for i < len(rle) && isDigit(rle[i]) {
			i++
		}
		if i == start {
			n++
			continue
		}
		count, err := strconv.Atoi(rle[start:i])
		if err != nil {
			return 0, &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("invalid run count: %v", err)}
		}
		n += count
	}
	return n, nil
}

// GetAt returns the character at raw index idx in the row encoded by rle,
// scanning run-by-run instead of materializing the full decompressed row.
func GetAt(rle string, idx int) (byte, error) {
	if idx < 0 {
		return 0, fmt.Errorf("gridcodec: negative index %d", idx)
	}
	pos := 0
	i := 0
	for i < len(rle) {
		c := rle[i]
		if isDigit(c) {
			return 0, &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("unexpected digit %q at offset %d", c, i)}
		}
		i++
		start := i
		for i < len(rle) && isDigit(rle[i]) {
			i++
		}
		count := 1
		if i > start {
			n, err := strconv.Atoi(rle[start:i])
			if err != nil {
				return 0, &ErrMalformed{RLE: rle, Reason: fmt.Sprintf("invalid run count: %v", err)}
			}
			count = n
		}
		if idx < pos+count {
			return c, nil
		}
		pos += count
	}
	return 0, fmt.Errorf("gridcodec: index %d out of range (row length %d)", idx, pos)
}

// SetAt returns a new RLE string with the character at raw index idx
// replaced by c, preserving the row's total length. The original rle is
// untouched.
func SetAt(rle string, idx int, c byte) (string, error) {
	raw, err := Decompress(rle)
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(raw) {
		return "", fmt.Errorf("gridcodec: index %d out of range (row length %d)", idx, len(raw))
	}
	buf := []byte(raw)
	buf[idx] = c
	return Compress(string(buf)), nil
}

// CreateInitial builds a length-n row with the diagonal character (Self, 'o')
// at position diagonalIdx and placeholder ('p') everywhere else, already
// compressed.
func CreateInitial(n, diagonalIdx int, self, placeholder byte) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("gridcodec: n must be positive, got %d", n)
	}
	if diagonalIdx < 0 || diagonalIdx >= n {
		return "", fmt.Errorf("gridcodec: diagonalIdx %d out of range for n=%d", diagonalIdx, n)
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = placeholder
	}
	buf[diagonalIdx] = self
	return Compress(string(buf)), nil
}

// ValidateRow reports whether rle decompresses to exactly length n with the
// diagonal character at diagonalIdx.
func ValidateRow(rle string, n, diagonalIdx int, self byte) error {
	raw, err := Decompress(rle)
	if err != nil {
		return err
	}
	if len(raw) != n {
		return fmt.Errorf("gridcodec: row length %d, want %d", len(raw), n)
	}
	if diagonalIdx < 0 || diagonalIdx >= n {
		return fmt.Errorf("gridcodec: diagonalIdx %d out of range for n=%d", diagonalIdx, n)
	}
	if raw[diagonalIdx] != self {
		return fmt.Errorf("gridcodec: position %d is %q, want diagonal %q", diagonalIdx, raw[diagonalIdx], self)
	}
	return nil
}
