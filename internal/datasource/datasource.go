// Package datasource resolves a binding reference (a path, "-" or an
// http(s) URL) to a stream of bytes.
package datasource

import (
	"context"
	"io"
	"os"
	"path"
	"strings"

	"sqlview/internal/datasource/file"
	"sqlview/internal/datasource/httpds"
)

// Source opens a byte stream. Callers close it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Stdin reads standard input. Close leaves the process's stdin open.
type Stdin struct{ r io.Reader }

func (s Stdin) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := s.r
	if r == nil {
		r = os.Stdin
	}
	return io.NopCloser(r), nil
}

// IsURL reports whether ref names an http or https resource.
func IsURL(ref string) bool {
	l := strings.ToLower(ref)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Resolver maps binding references to Sources.
type Resolver struct {
	// HTTP serves URLs; nil uses a client with default settings.
	HTTP *httpds.Client
	// Stdin backs "-"; nil reads os.Stdin.
	Stdin io.Reader
}

func (r Resolver) Resolve(ref string) Source {
	switch {
	case ref == "-":
		return Stdin{r: r.Stdin}
	case IsURL(ref):
		c := r.HTTP
		if c == nil {
			c = httpds.NewClient(httpds.Config{})
		}
		return c.Source(ref)
	default:
		return file.NewLocal(ref)
	}
}

// Resolve is Resolver{HTTP: c}.Resolve(ref).
func Resolve(ref string, c *httpds.Client) Source {
	return Resolver{HTTP: c}.Resolve(ref)
}

// BaseName returns the last path element of ref without query or
// extension, for naming a binding after its source.
func BaseName(ref string) string {
	if ref == "-" {
		return "stdin"
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 && IsURL(ref) {
		ref = ref[:i]
	}
	base := path.Base(strings.ReplaceAll(ref, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
