package kernel

import (
	"fmt"
	"time"
)

// Config holds the build-time constants enumerated in §6.5. Unlike a real
// microcontroller build these are resolved at Kernel construction time
// rather than compiled in, but they are intended to be fixed for the
// lifetime of a Kernel.
type Config struct { // betteralign:ignore
	// NumPriorities is N_LEVELS: the number of distinct priority levels,
	// 0 (highest) .. NumPriorities-1 (lowest, reserved for idle). Must be
	// one of 8, 16, 32.
	NumPriorities int

	// MaxTasks bounds the task registry (default 16).
	MaxTasks int
	// MaxSemaphores bounds the semaphore registry.
	MaxSemaphores int
	// MaxMutexes bounds the mutex registry.
	MaxMutexes int
	// MaxQueues bounds the message-queue registry.
	MaxQueues int
	// MaxEventGroups bounds the event-group registry.
	MaxEventGroups int
	// MaxTimers bounds the software-timer registry.
	MaxTimers int
	// MaxPools bounds the memory-pool registry.
	MaxPools int

	// MinStackBytes is the smallest stack a task may be created with.
	MinStackBytes int
	// DefaultTimeslice is recorded in every task's TCB as its timeslice.
	// The scheduler does not consume it: equal-priority tasks rotate only
	// when the running task yields, blocks or is rescheduled, not on
	// quantum expiry.
	DefaultTimeslice time.Duration
	// MaxMutexDepthPerTask bounds the priority-inheritance chain walk
	// (§4.G.2); default 4.
	MaxMutexDepthPerTask int

	// EnableStackCheck turns on canary verification on every context
	// switch.
	EnableStackCheck bool
	// EnableObjectNames turns on name storage/lookup in the registry.
	EnableObjectNames bool
	// EnableStats turns on per-task runtime/switch-count accounting.
	EnableStats bool

	// MinResolvableInterval is the smallest one-shot the platform port
	// will arm; requests below this are clamped up.
	MinResolvableInterval time.Duration

	// logger and port are set only via WithLogger/WithPort; resolveConfig
	// fills in defaults when left nil.
	logger Logger
	port   Port
}

// DefaultConfig returns the configuration used when no [Option] overrides
// a field: 32 priority levels, 16 tasks, a 1ms default timeslice, stack
// checking and stats on.
func DefaultConfig() Config {
	return Config{
		NumPriorities:         32,
		MaxTasks:              16,
		MaxSemaphores:         16,
		MaxMutexes:            16,
		MaxQueues:             16,
		MaxEventGroups:        8,
		MaxTimers:             16,
		MaxPools:              8,
		MinStackBytes:         256,
		DefaultTimeslice:      time.Millisecond,
		MaxMutexDepthPerTask:  4,
		EnableStackCheck:      true,
		EnableObjectNames:     true,
		EnableStats:           true,
		MinResolvableInterval: time.Microsecond,
	}
}

func (c Config) validate() error {
	switch c.NumPriorities {
	case 8, 16, 32:
	default:
		return wrapErr(InvalidParam, fmt.Errorf("N_LEVELS must be 8, 16 or 32, got %d", c.NumPriorities))
	}
	if c.MaxTasks <= 0 {
		return wrapErr(InvalidParam, fmt.Errorf("MaxTasks must be positive"))
	}
	if c.MinStackBytes <= 0 {
		return wrapErr(InvalidParam, fmt.Errorf("MinStackBytes must be positive"))
	}
	if c.MaxMutexDepthPerTask <= 0 {
		return wrapErr(InvalidParam, fmt.Errorf("MaxMutexDepthPerTask must be positive"))
	}
	return nil
}

// Option configures a Kernel at construction time, following the
// functional-options shape used throughout this codebase's ancestry.
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) apply(c *Config) { f(c) }

// WithNumPriorities sets N_LEVELS (must be 8, 16 or 32).
func WithNumPriorities(n int) Option {
	return optionFunc(func(c *Config) { c.NumPriorities = n })
}

// WithMaxTasks sets the task registry capacity.
func WithMaxTasks(n int) Option {
	return optionFunc(func(c *Config) { c.MaxTasks = n })
}

// WithDefaultTimeslice sets Config.DefaultTimeslice.
func WithDefaultTimeslice(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.DefaultTimeslice = d })
}

// WithMaxMutexDepthPerTask bounds the priority-inheritance chain walk.
func WithMaxMutexDepthPerTask(n int) Option {
	return optionFunc(func(c *Config) { c.MaxMutexDepthPerTask = n })
}

// WithStackCheck toggles canary verification on context switch.
func WithStackCheck(enabled bool) Option {
	return optionFunc(func(c *Config) { c.EnableStackCheck = enabled })
}

// WithStats toggles per-task runtime/switch-count accounting.
func WithStats(enabled bool) Option {
	return optionFunc(func(c *Config) { c.EnableStats = enabled })
}

// WithLogger attaches a structured [Logger] to the kernel. See the
// logadapter subpackage for a logiface/stumpy-backed implementation.
func WithLogger(l Logger) Option {
	return optionFunc(func(c *Config) { c.logger = l })
}

// WithPort overrides the platform port (§4.A). Intended for tests and for
// real board bring-up; the default is a host simulation.
func WithPort(p Port) Option {
	return optionFunc(func(c *Config) { c.port = p })
}

func resolveConfig(opts []Option) (Config, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o == nil {
			continue
		}
		o.apply(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	if cfg.logger == nil {
		cfg.logger = NewNoopLogger()
	}
	if cfg.port == nil {
		cfg.port = newHostPort(cfg.MinResolvableInterval)
	}
	return cfg, nil
}
