package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	msqlite "modernc.org/sqlite"

	"sqlview/internal/engine"
)

// The driver registers functions process-wide and only for connections
// opened afterwards, and rejects a second registration of the same name.
// Each name therefore gets one slot registered with the driver once; the Go
// function behind it can be swapped later.
type slot struct {
	arity int
	fn    atomic.Pointer[engine.ScalarFunc]
}

var (
	slotMu sync.Mutex
	slots  = map[string]*slot{}

	// registerScalar is a test hook.
	registerScalar = msqlite.RegisterScalarFunction
)

func (s *slot) call(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	fn := s.fn.Load()
	if fn == nil {
		return nil, fmt.Errorf("sqlite: function has no implementation")
	}
	in := make([]any, len(args))
	for i, a := range args {
		in[i] = a
	}
	return (*fn)(in)
}

// bindFunction installs fn under name. known reports whether the slot existed
// before this call.
func bindFunction(name string, arity int, fn engine.ScalarFunc) (known bool, err error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return false, fmt.Errorf("sqlite: function name must not be empty")
	}
	if fn == nil {
		return false, fmt.Errorf("sqlite: function %q: nil implementation", name)
	}

	slotMu.Lock()
	defer slotMu.Unlock()
	if s, ok := slots[key]; ok {
		if s.arity != arity {
			return true, fmt.Errorf("sqlite: function %q already registered with %d argument(s)", name, s.arity)
		}
		s.fn.Store(&fn)
		return true, nil
	}
	s := &slot{arity: arity}
	s.fn.Store(&fn)
	if err := registerScalar(key, int32(arity), s.call); err != nil {
		return false, fmt.Errorf("sqlite: register function %q: %w", name, err)
	}
	slots[key] = s
	return false, nil
}

func slotNames() map[string]bool {
	slotMu.Lock()
	defer slotMu.Unlock()
	out := make(map[string]bool, len(slots))
	for k := range slots {
		out[k] = true
	}
	return out
}
