package flowz

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Executor drives a Graph to completion. Every component runs as a
// cooperative task whose only blocking points are its port operations; the
// executor arbitrates those, propagates termination, synthesizes end of
// stream for starved receivers, and detects deadlock.
//
// An Executor is single-shot: create a fresh one to run a graph again.
type Executor struct {
	graph *Graph
	log   *slog.Logger
	runID string

	defaultCapacity int
	grace           time.Duration

	// mu is the runtime lock. It guards all connection queues, waiter
	// registration and component lifecycle state.
	mu       sync.Mutex
	started  bool
	firstErr error
	closeErr error
	deadlock error

	graceTimer *time.Timer
	hardStop   chan struct{}
	hardOnce   sync.Once
	shutdown   bool
}

// New validates the graph, freezes it and prepares an Executor.
func New(graph *Graph, opts ...Option) (*Executor, error) {
	e := &Executor{
		graph:           graph,
		log:             NullLogger(),
		runID:           uuid.NewString(),
		defaultCapacity: DefaultCapacity,
		grace:           DefaultGraceWindow,
		hardStop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("graph", graph.name, "run_id", e.runID)

	if err := graph.validate(e.log); err != nil {
		return nil, err
	}
	graph.frozen = true

	for _, n := range graph.conns {
		if n.capacity == 0 {
			n.capacity = e.defaultCapacity
		}
	}
	for _, c := range graph.Components() {
		c.exec = e
		c.log = e.log.With("component", c.name)
	}
	return e, nil
}

// Execute runs the graph until quiescence. It returns the deadlock error when
// the network stalled, otherwise the first component error, otherwise the
// aggregated errors of Proc Close calls, and nil when every component
// terminated normally and closed cleanly. Cancelling ctx triggers a graceful
// shutdown.
func (e *Executor) Execute(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrAlreadyExecuted
	}
	e.started = true
	e.mu.Unlock()

	e.log.Info("executing graph",
		"components", len(e.graph.components),
		"connections", len(e.graph.conns))

	grp := errgroup.Group{}
	for _, c := range e.graph.Components() {
		c := c
		grp.Go(func() error { return e.runComponent(c) })
	}

	done := make(chan struct{})
	go func() {
		_ = grp.Wait()
		close(done)
	}()

	watchDone := make(chan struct{})
	defer close(watchDone)
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				e.log.Info("context canceled, shutting down")
				e.Shutdown()
			case <-watchDone:
			}
		}()
	}

	select {
	case <-done:
	case <-e.hardStop:
	}

	e.mu.Lock()
	if e.graceTimer != nil {
		e.graceTimer.Stop()
	}
	ret := e.closeErr
	if e.firstErr != nil {
		ret = e.firstErr
	}
	if e.deadlock != nil {
		ret = e.deadlock
	}
	e.mu.Unlock()

	e.finalChecks()
	return ret
}

// Shutdown requests a graceful stop: every connection closes, so components
// observe end of stream or failed sends at their next port operation. After
// the grace window, or on a second call, components still running are marked
// ERROR and abandoned.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if !e.shutdown {
		e.shutdown = true
		for _, c := range e.graph.Components() {
			c.cancelPending = true
		}
		e.closeAllLocked()
		e.graceTimer = time.AfterFunc(e.grace, e.hardStopNow)
		e.log.Info("graceful shutdown requested, all connections closed", "grace", e.grace)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.hardStopNow()
}

func (e *Executor) hardStopNow() {
	e.hardOnce.Do(func() {
		e.mu.Lock()
		var abandoned []string
		for _, c := range e.graph.Components() {
			if !c.state.terminal() {
				e.transition(c, StateError)
				abandoned = append(abandoned, c.name)
			}
		}
		e.closeAllLocked()
		if len(abandoned) > 0 {
			slices.Sort(abandoned)
			if e.firstErr == nil {
				e.firstErr = fmt.Errorf("%w: abandoned components: %s",
					ErrShutdownTimeout, strings.Join(abandoned, ", "))
			}
			e.log.Error("hard stop, abandoning components",
				"components", strings.Join(abandoned, ", "))
		}
		e.mu.Unlock()
		close(e.hardStop)
	})
}

// runComponent is the goroutine body for a single component.
func (e *Executor) runComponent(c *Component) error {
	e.mu.Lock()
	if c.state == StateInitialized {
		e.transition(c, StateActive)
	}
	e.mu.Unlock()

	mode := "once-through"
	if c.keepalive {
		mode = "keepalive"
	}
	c.log.Debug("component started", "mode", mode)

	err := runProc(c)

	e.mu.Lock()
	if !c.state.terminal() {
		if err != nil {
			e.transition(c, StateError)
		} else {
			e.transition(c, StateTerminated)
		}
	}
	if err != nil {
		c.runErr = err
		if e.firstErr == nil && e.deadlock == nil {
			e.firstErr = fmt.Errorf("component %s: %w", c.name, err)
		}
	}
	e.closeAdjacentLocked(c)
	// Termination can leave the rest of the network parked; re-evaluate.
	e.checkQuiescenceLocked()
	e.mu.Unlock()

	if closer, ok := c.proc.(io.Closer); ok {
		if cerr := closer.Close(); cerr != nil {
			e.mu.Lock()
			e.closeErr = multierr.Append(e.closeErr,
				fmt.Errorf("close %s: %w", c.name, cerr))
			e.mu.Unlock()
		}
	}

	if err != nil {
		c.log.Error("component failed", "error", err)
		return err
	}
	c.log.Debug("component terminated")
	return nil
}

// runProc invokes Run, converting panics into component errors.
func runProc(c *Component) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.proc.Run(c)
}

// transition moves c to a new lifecycle state. Callers hold the runtime
// lock.
func (e *Executor) transition(c *Component, to ComponentState) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.log.Debug("state change", "from", from, "to", to)
}

// block records that c is about to park on n. Runs the quiescence check:
// once every component is parked the network can only move if the scheduler
// synthesizes end of stream or declares deadlock. Callers hold the runtime
// lock.
func (e *Executor) block(c *Component, s ComponentState, n *connection, timed bool) {
	e.transition(c, s)
	c.blockedOn = n
	c.blockedTimed = timed
	e.checkQuiescenceLocked()
}

// unblock marks c runnable again after a wakeup. Callers hold the runtime
// lock.
func (e *Executor) unblock(c *Component) {
	if !c.state.terminal() {
		e.transition(c, StateActive)
	}
	c.blockedOn = nil
	c.blockedTimed = false
}

// wakeupPending reports whether a parked component's blocking condition has
// already cleared, so its goroutine will resume without outside help.
func wakeupPending(c *Component) bool {
	n := c.blockedOn
	if n == nil || n.closed {
		return true
	}
	if c.state == StateSuspRecv {
		return len(n.queue) > 0
	}
	return len(n.queue) < n.capacity
}

// checkQuiescenceLocked inspects the whole network when a component parks.
// Timed waiters have a pending event (their timer) and never deadlock.
func (e *Executor) checkQuiescenceLocked() {
	if e.deadlock != nil {
		return
	}

	blocked := 0
	for _, c := range e.graph.Components() {
		switch {
		case c.state.terminal():
		case c.state == StateSuspSend || c.state == StateSuspRecv:
			if c.blockedTimed {
				// A timer is a pending event; it can always fire.
				return
			}
			if wakeupPending(c) {
				// Already woken, just not rescheduled yet.
				return
			}
			blocked++
		default:
			// Someone can still run.
			return
		}
	}
	if blocked == 0 {
		return
	}

	// End-of-stream synthesis: a receiver whose upstream producer has
	// terminated can never get another packet.
	progress := false
	for _, c := range e.graph.Components() {
		if c.state != StateSuspRecv || c.blockedOn == nil || c.blockedOn.closed {
			continue
		}
		if c.blockedOn.src.component.state.terminal() {
			c.log.Debug("synthesizing end of stream", "connection", c.blockedOn.id())
			c.blockedOn.closeLocked()
			progress = true
		}
	}
	if progress {
		return
	}

	var stuck []string
	for _, c := range e.graph.Components() {
		if !c.state.terminal() {
			stuck = append(stuck, fmt.Sprintf("%s (%s on %s)", c.name, c.state, c.blockedOn.id()))
		}
	}
	slices.Sort(stuck)
	e.deadlock = fmt.Errorf("%w: %s", ErrDeadlock, strings.Join(stuck, "; "))
	e.log.Error("deadlock detected", "stuck", strings.Join(stuck, "; "))
	e.closeAllLocked()
}

// closeAdjacentLocked closes every connection adjacent to c: downstream
// receivers drain and observe end of stream, upstream senders fail with
// ErrConnectionClosed. Callers hold the runtime lock.
func (e *Executor) closeAdjacentLocked(c *Component) {
	for _, in := range c.Inputs() {
		if in.conn != nil {
			in.conn.closeLocked()
		}
	}
	for _, out := range c.Outputs() {
		if out.conn != nil {
			out.conn.closeLocked()
		}
	}
}

func (e *Executor) closeAllLocked() {
	for _, n := range e.graph.conns {
		n.closeLocked()
	}
}

// finalChecks logs leftover in-flight packets and components that ended in
// error, mirroring what a leak would mean for downstream consumers.
func (e *Executor) finalChecks() {
	e.mu.Lock()
	defer e.mu.Unlock()

	leaked := 0
	for _, n := range e.graph.conns {
		if len(n.queue) > 0 {
			e.log.Warn("packets left in flight", "connection", n.id(), "count", len(n.queue))
			leaked += len(n.queue)
		}
	}
	for _, c := range e.graph.Components() {
		if c.state == StateError {
			e.log.Warn("component ended in error", "component", c.name, "error", c.runErr)
		}
	}
	if e.closeErr != nil {
		e.log.Warn("component close errors", "error", e.closeErr)
	}
	e.log.Info("graph execution finished", "leaked_packets", leaked)
}
