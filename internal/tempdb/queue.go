package tempdb

import "sqlview/internal/engine"

type pendingDrop struct {
	stmt string
	name string
	kind engine.ObjectKind
}

// dropQueue is the FIFO of deferred DROP statements.
type dropQueue struct {
	items []pendingDrop
}

func (q *dropQueue) push(d pendingDrop) { q.items = append(q.items, d) }

func (q *dropQueue) len() int { return len(q.items) }

func (q *dropQueue) peek() pendingDrop { return q.items[0] }

func (q *dropQueue) pop() {
	q.items[0] = pendingDrop{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
}

func (q *dropQueue) stmts() []string {
	out := make([]string, len(q.items))
	for i, d := range q.items {
		out[i] = d.stmt
	}
	return out
}
