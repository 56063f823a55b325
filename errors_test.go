package kernel

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfNilIsOk(t *testing.T) {
	require.Equal(t, Ok, KindOf(nil))
}

func TestKindOfNonKernelErrorIsGeneric(t *testing.T) {
	require.Equal(t, Generic, KindOf(errors.New("plain error")))
}

func TestKindOfExtractsWrappedKind(t *testing.T) {
	e := wrapErr(Busy, fmt.Errorf("underlying reason"))
	require.Equal(t, Busy, KindOf(e))
	require.ErrorContains(t, e, "underlying reason")
}

func TestKernelErrorIsMatchesByKindNotCause(t *testing.T) {
	a := wrapErr(Timeout, fmt.Errorf("cause one"))
	b := wrapErr(Timeout, fmt.Errorf("cause two"))
	require.True(t, errors.Is(a, b), "two KernelErrors of the same Kind must match via errors.Is")
	require.True(t, errors.Is(a, ErrTimeout))
	require.False(t, errors.Is(a, ErrBusy))
}

func TestKernelErrorUnwrapExposesCause(t *testing.T) {
	cause := fmt.Errorf("root cause")
	e := wrapErr(Corrupted, cause)
	require.Same(t, cause, errors.Unwrap(e))
}

func TestErrorKindStringCoversAllConstants(t *testing.T) {
	kinds := []ErrorKind{
		Ok, Generic, Timeout, OutOfMemory, InvalidParam, Busy, Deadlock,
		StackOverflow, MemoryCorruption, NotImplemented, Deleted, NotFound,
		AlreadyExists, Corrupted, InvalidContext, Overflow,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		require.NotEqual(t, "Unknown", s)
		require.False(t, seen[s], "duplicate String() result %q", s)
		seen[s] = true
	}
	require.Equal(t, "Unknown", ErrorKind(9999).String())
}
