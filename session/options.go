package session

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds the session tuning knobs. Every blocking operation is
// bounded by one of these values; there is no unbounded wait in a session.
type Config struct {
	// StatusTimeout bounds a single status read.
	StatusTimeout time.Duration

	// PollInterval is the delay between completion polls.
	PollInterval time.Duration

	// CompletionWait bounds the total wait for a completed/error status
	// after the print command.
	CompletionWait time.Duration

	// Retries is the number of additional attempts after a failed
	// transport write or read.
	Retries int

	// Logger receives session progress events.
	Logger zerolog.Logger
}

func defaultConfig() Config {
	return Config{
		StatusTimeout:  500 * time.Millisecond,
		PollInterval:   200 * time.Millisecond,
		CompletionWait: 15 * time.Second,
		Retries:        3,
		Logger:         zerolog.Nop(),
	}
}

// Option configures a Session.
type Option func(*Config)

// WithStatusTimeout bounds each individual status read.
func WithStatusTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.StatusTimeout = d
		}
	}
}

// WithPollInterval sets the delay between completion polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithCompletionWait bounds the total wait for job completion.
func WithCompletionWait(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.CompletionWait = d
		}
	}
}

// WithRetries sets the number of extra attempts after a transport failure.
func WithRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Retries = n
		}
	}
}

// WithLogger attaches a structured logger to the session.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
