package kernel

// Logger decouples the kernel from any concrete logging backend, the same
// design decision the teacher's logging.go documents: "allows external
// integration with logging frameworks like zerolog, logrus, etc. while
// providing a low-overhead built-in implementation for basic usage." See
// the logadapter subpackage for a concrete implementation backed by
// github.com/joeycumines/logiface and github.com/joeycumines/stumpy.
type Logger interface {
	// Debugf logs fine-grained diagnostic detail (ready-set mutations,
	// wait-list insertions).
	Debugf(format string, args ...any)
	// Infof logs lifecycle events (task created, scheduler started).
	Infof(format string, args ...any)
	// Warnf logs recoverable anomalies (a timed wait expired, a give()
	// overflowed).
	Warnf(format string, args ...any)
	// Errorf logs invariant violations surfaced through a hook
	// (stack overflow, assertion failure).
	Errorf(format string, args ...any)
}

// noopLogger discards everything. It is the default when no [Logger] is
// configured via [WithLogger].
type noopLogger struct{}

// NewNoopLogger returns a [Logger] that discards all output.
func NewNoopLogger() Logger { return noopLogger{} }

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}
