// Package file reads bindings from the local filesystem.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Local opens one file.
type Local struct{ path string }

func NewLocal(path string) *Local { return &Local{path: path} }

// Open returns ctx.Err() without touching the filesystem when ctx is
// already done. Errors keep the path and still match os.ErrNotExist.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Size returns the file size, or -1 when it cannot be stat'ed.
func (l *Local) Size() int64 {
	st, err := os.Stat(l.path)
	if err != nil {
		return -1
	}
	return st.Size()
}

// ReadList returns the non-empty lines of path, trimmed, skipping lines
// that start with '#'. Order is preserved.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
