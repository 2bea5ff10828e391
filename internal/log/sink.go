package log

import "martianoff/sandbox/sandboxerr"

// Sink returns a diagnostic sink that logs every report as a warning,
// tagged with its category.
func Sink(l Logger) sandboxerr.Sink {
	return sandboxerr.SinkFunc(func(err error) {
		l.Warn(err.Error(), "category", sandboxerr.TypeOf(err))
	})
}
