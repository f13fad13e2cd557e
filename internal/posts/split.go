package posts

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultPartSize is the number of rows per part written by SplitFile.
const DefaultPartSize = 500

// Split cuts t into consecutive tables of at most size rows.
func Split(t *Table, size int) []*Table {
	if size <= 0 {
		size = DefaultPartSize
	}
	var parts []*Table
	for i := 0; i < t.Len(); i += size {
		end := min(i+size, t.Len())
		p := t.Clone()
		p.Rows = t.Rows[i:end]
		parts = append(parts, p)
	}
	return parts
}

// SplitFile splits the CSV at path into <base>_part<N>.csv files next to
// it and returns their paths.
func SplitFile(path string, size int) ([]string, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))
	var out []string
	for i, p := range Split(t, size) {
		name := fmt.Sprintf("%s_part%d.csv", base, i+1)
		if err := p.WriteFile(name); err != nil {
			return out, err
		}
		out = append(out, name)
	}
	return out, nil
}
