package tempdb

// cursorRegistry tracks every cursor opened on the connection. It only
// answers "is any statement still open"; it never keeps a RowCursor handle
// reachable.
type cursorRegistry struct {
	next    uint64
	entries map[uint64]*cursorState
}

func (r *cursorRegistry) add(c *cursorState) {
	if r.entries == nil {
		r.entries = make(map[uint64]*cursorState)
	}
	r.next++
	c.id = r.next
	r.entries[c.id] = c
}

// prune removes inactive entries and returns how many remain.
func (r *cursorRegistry) prune() int {
	for id, c := range r.entries {
		if !c.active {
			delete(r.entries, id)
		}
	}
	return len(r.entries)
}

func (r *cursorRegistry) active() []*cursorState {
	out := make([]*cursorState, 0, len(r.entries))
	for _, c := range r.entries {
		if c.active {
			out = append(out, c)
		}
	}
	return out
}
