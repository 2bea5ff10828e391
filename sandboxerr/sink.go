package sandboxerr

// Sink receives diagnostics. It never decides whether weaving aborts.
type Sink interface {
	Report(err error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(err error)

func (f SinkFunc) Report(err error) { f(err) }

// Discard is a Sink that drops every diagnostic.
var Discard Sink = SinkFunc(func(error) {})

// List is a Sink that keeps diagnostics in the order they were reported.
type List struct {
	Errors []error
}

// Report appends err to the list.
func (l *List) Report(err error) {
	l.Errors = append(l.Errors, err)
}

// Len returns the number of collected diagnostics.
func (l *List) Len() int {
	return len(l.Errors)
}

// Count returns how many collected diagnostics have the given category.
func (l *List) Count(t ErrorType) int {
	n := 0
	for _, err := range l.Errors {
		if TypeOf(err) == t {
			n++
		}
	}
	return n
}

// Err returns nil when nothing was reported, otherwise a *MultiError.
func (l *List) Err() error {
	if len(l.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(l.Errors))
	copy(errs, l.Errors)
	return &MultiError{Errors: errs}
}

// Tee forwards every diagnostic to all sinks.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(err error) {
		for _, s := range sinks {
			s.Report(err)
		}
	})
}
