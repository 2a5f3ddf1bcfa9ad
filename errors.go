package flowz

import "errors"

// Construction errors, reported while building a graph.
var (
	ErrDuplicateComponent   = errors.New("component name already in use")
	ErrPortExists           = errors.New("port already declared")
	ErrUnknownPort          = errors.New("unknown port")
	ErrPortAlreadyConnected = errors.New("port already connected")
	ErrGraphFrozen          = errors.New("graph is frozen")
	ErrNotInitialized       = errors.New("component not initialized")
)

// Bracket errors, reported on the component whose stream violated the
// bracket rules. The component transitions to ERROR and its outputs close.
var (
	ErrUnbalancedClose    = errors.New("substream close without matching open")
	ErrUnbalancedMapClose = errors.New("map close without matching map open")
	ErrSwitchOutsideMap   = errors.New("switch outside of a map")
	ErrUnclosedBrackets   = errors.New("unclosed brackets at end of stream")
	ErrBracketDepth       = errors.New("bracket nesting too deep")
)

// Runtime errors. ErrEndOfStream and ErrTimeout are receive outcomes rather
// than failures; they are sentinels so callers can match them with errors.Is.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrEndOfStream      = errors.New("end of stream")
	ErrTimeout          = errors.New("receive timed out")
	ErrDeadlock         = errors.New("deadlock")
	ErrShutdownTimeout  = errors.New("shutdown grace window exceeded")
	ErrAlreadyExecuted  = errors.New("executor already executed")
)
