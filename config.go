package flowz

import (
	"log/slog"
	"time"
)

// DefaultCapacity is the connection queue capacity used when neither the
// executor nor the connection overrides it. Capacity 1 gives strict FBP
// backpressure: a producer runs at most one packet ahead of its consumer.
const DefaultCapacity = 1

// DefaultGraceWindow is how long a graceful shutdown waits before abandoning
// components that have not unwound.
const DefaultGraceWindow = 5 * time.Second

// Option is a function that configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger for the executor and all components.
var WithLogger = func(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// WithDefaultCapacity sets the queue capacity for connections that do not
// declare their own.
var WithDefaultCapacity = func(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.defaultCapacity = n
		}
	}
}

// WithGraceWindow sets how long Shutdown waits before hard termination.
var WithGraceWindow = func(d time.Duration) Option {
	return func(e *Executor) { e.grace = d }
}

type NullWriter struct{}

func (NullWriter) Write([]byte) (int, error) { return 0, nil }

// NullLogger creates a logger that discards all output.
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}
