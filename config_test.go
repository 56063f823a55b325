package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveConfigAppliesDefaults(t *testing.T) {
	cfg, err := resolveConfig(nil)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.NumPriorities)
	require.NotNil(t, cfg.logger)
	require.NotNil(t, cfg.port)
}

func TestResolveConfigAppliesOptions(t *testing.T) {
	cfg, err := resolveConfig([]Option{
		WithNumPriorities(8),
		WithMaxTasks(4),
		WithMaxMutexDepthPerTask(2),
		WithStackCheck(false),
		WithStats(false),
	})
	require.NoError(t, err)
	require.Equal(t, 8, cfg.NumPriorities)
	require.Equal(t, 4, cfg.MaxTasks)
	require.Equal(t, 2, cfg.MaxMutexDepthPerTask)
	require.False(t, cfg.EnableStackCheck)
	require.False(t, cfg.EnableStats)
}

func TestResolveConfigRejectsBadNumPriorities(t *testing.T) {
	_, err := resolveConfig([]Option{WithNumPriorities(7)})
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestResolveConfigRejectsNonPositiveMaxTasks(t *testing.T) {
	_, err := resolveConfig([]Option{WithMaxTasks(0)})
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestResolveConfigRejectsNonPositiveMutexDepth(t *testing.T) {
	_, err := resolveConfig([]Option{WithMaxMutexDepthPerTask(0)})
	require.Equal(t, InvalidParam, KindOf(err))
}

func TestResolveConfigIgnoresNilOption(t *testing.T) {
	cfg, err := resolveConfig([]Option{nil, WithMaxTasks(5), nil})
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxTasks)
}
