package tempdb

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// nameAllocator mints fresh object names. The counter never goes back, so a
// name is not reused even after its object was dropped.
type nameAllocator struct {
	prefix string
	n      uint64
}

func (a *nameAllocator) next() string {
	a.n++
	return a.prefix + strconv.FormatUint(a.n, 10)
}

// startsWithWith reports whether stmt, after leading whitespace, comments and
// opening parentheses, begins with the WITH keyword.
func startsWithWith(stmt string) bool {
	s := stmt
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return false
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s[2:], "*/")
			if i < 0 {
				return false
			}
			s = s[i+4:]
		case strings.HasPrefix(s, "("):
			s = s[1:]
		default:
			if len(s) < 4 || !strings.EqualFold(s[:4], "with") {
				return false
			}
			if len(s) == 4 {
				return true
			}
			r := rune(s[4])
			return !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
		}
	}
}
