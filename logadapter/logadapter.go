// Package logadapter wires github.com/joeycumines/logiface's generic
// Event/Logger framework, backed by github.com/joeycumines/stumpy's JSON
// model logger, behind the kernel package's small non-generic Logger
// interface. The core kernel package never imports logiface directly
// (see kernel.Logger's doc comment); this is the concrete implementation
// applications wire in via kernel.WithLogger.
package logadapter

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger adapts a *logiface.Logger[*stumpy.Event] to kernel.Logger.
type Logger struct {
	l *logiface.Logger[*stumpy.Event]
}

// New constructs a Logger writing newline-delimited JSON to w (os.Stderr
// if w is nil), via stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w))),
// the same construction shown by logiface-stumpy's own tests.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		l: stumpy.L.New(stumpy.L.WithStumpy(stumpy.WithWriter(w))),
	}
}

func (a *Logger) Debugf(format string, args ...any) {
	a.l.Debug().Log(fmt.Sprintf(format, args...))
}

func (a *Logger) Infof(format string, args ...any) {
	a.l.Info().Log(fmt.Sprintf(format, args...))
}

func (a *Logger) Warnf(format string, args ...any) {
	a.l.Warning().Log(fmt.Sprintf(format, args...))
}

func (a *Logger) Errorf(format string, args ...any) {
	a.l.Err().Log(fmt.Sprintf(format, args...))
}
