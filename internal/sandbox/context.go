package sandbox

import "martianoff/sandbox/sandboxerr"

type named interface {
	FullName() string
}

// contextSink annotates diagnostics with the definition on top of the
// traversal stack.
type contextSink struct {
	next  sandboxerr.Sink
	stack []named
}

func (c *contextSink) Report(err error) {
	if len(c.stack) == 0 {
		c.next.Report(err)
		return
	}
	c.next.Report(&sandboxerr.ContextError{Err: err, Context: c.stack[len(c.stack)-1].FullName()})
}

func (c *contextSink) push(n named) {
	c.stack = append(c.stack, n)
}

func (c *contextSink) pop() {
	c.stack = c.stack[:len(c.stack)-1]
}
