package tracker

import "github.com/trackgrid/trackgrid/internal/priority"

// matrix is a contiguous N*N working grid keyed by the final, hierarchically
// sorted key list for one tracker update. The whole grid is held
// decompressed during an update and only compressed once, on write.
type matrix struct {
	keys  []string
	idx   map[string]int
	cells [][]priority.Char
}

func newMatrix(keys []string) *matrix {
	n := len(keys)
	idx := make(map[string]int, n)
	for i, k := range keys {
		idx[k] = i
	}
	cells := make([][]priority.Char, n)
	for i := range cells {
		cells[i] = make([]priority.Char, n)
		for j := range cells[i] {
			if i == j {
				cells[i][j] = priority.Self
			} else {
				cells[i][j] = priority.Placeholder
			}
		}
	}
	return &matrix{keys: keys, idx: idx, cells: cells}
}

func (m *matrix) get(a, b string) (priority.Char, bool) {
	i, ok := m.idx[a]
	if !ok {
		return 0, false
	}
	j, ok := m.idx[b]
	if !ok {
		return 0, false
	}
	return m.cells[i][j], true
}

func (m *matrix) set(a, b string, c priority.Char) bool {
	i, ok := m.idx[a]
	if !ok {
		return false
	}
	j, ok := m.idx[b]
	if !ok {
		return false
	}
	m.cells[i][j] = c
	return true
}

// row returns the raw (decompressed) character string for key, in the
// matrix's own column order.
func (m *matrix) row(key string) string {
	i, ok := m.idx[key]
	if !ok {
		return ""
	}
	buf := make([]byte, len(m.keys))
	for j, c := range m.cells[i] {
		buf[j] = byte(c)
	}
	return string(buf)
}
