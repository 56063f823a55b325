package logadapter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerWritesToProvidedWriter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Infof("task %s created with priority %d", "worker", 5)
	require.Contains(t, buf.String(), "worker")
	require.Contains(t, buf.String(), "created")
}

func TestLoggerLevelsAllProduceOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	require.Contains(t, out, "debug 1")
	require.Contains(t, out, "info 2")
	require.Contains(t, out, "warn 3")
	require.Contains(t, out, "error 4")
}

func TestNewWithNilWriterDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		l := New(nil)
		l.Infof("hello")
	})
}
