package flowz

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Proc is the user-supplied behavior of a component. Initialize is invoked
// once, when the component is added to a graph, and declares the component's
// ports. Run is the component body; it is invoked exactly once by the
// executor and communicates only through the component's ports.
//
// A Proc may additionally implement io.Closer. Close is then invoked by the
// executor after the component's run has wound down.
type Proc interface {
	Initialize(c *Component) error
	Run(c *Component) error
}

// ComponentOption configures a component at Graph.Add time.
type ComponentOption func(*Component)

// WithChannel subscribes the component to the named control channel instead
// of DefaultChannel. Control packets on any other channel are forwarded
// downstream untouched.
var WithChannel = func(channel string) ComponentOption {
	return func(c *Component) { c.channel = channel }
}

// WithKeepalive declares long-running run semantics: Run is expected to loop
// on receive calls until it has observed end of stream on every active input
// (or to call Terminate), rather than performing a single pass. The executor
// closes outputs and marks the component terminated on return either way.
var WithKeepalive = func() ComponentOption {
	return func(c *Component) { c.keepalive = true }
}

// Component is the runtime shell around a Proc: its ports, channel
// subscription, lifecycle state and bracket state.
type Component struct {
	name      string
	proc      Proc
	channel   string
	keepalive bool

	inputs      map[string]*InputPort
	inputOrder  []string
	outputs     map[string]*OutputPort
	outputOrder []string

	// Bracket state on the subscribed channel. Touched only by the
	// component's own goroutine.
	brackets bracketStack

	log  *slog.Logger
	exec *Executor

	// Guarded by the executor's runtime lock during execution.
	state         ComponentState
	blockedOn     *connection
	blockedTimed  bool
	cancelPending bool
	runErr        error
}

func newComponent(name string, proc Proc, opts ...ComponentOption) *Component {
	c := &Component{
		name:    name,
		proc:    proc,
		channel: DefaultChannel,
		inputs:  map[string]*InputPort{},
		outputs: map[string]*OutputPort{},
		state:   StateNotInitialized,
		log:     NullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the component's name, unique within its graph.
func (c *Component) Name() string { return c.name }

// Channel returns the control channel the component is subscribed to.
func (c *Component) Channel() string { return c.channel }

// Keepalive reports whether the component declared long-running semantics.
func (c *Component) Keepalive() bool { return c.keepalive }

// State returns the component's lifecycle state.
func (c *Component) State() ComponentState {
	if c.exec == nil {
		return c.state
	}
	c.exec.mu.Lock()
	defer c.exec.mu.Unlock()
	return c.state
}

// IsTerminated reports whether the component reached a final state.
func (c *Component) IsTerminated() bool { return c.State().terminal() }

// Log returns the component-scoped logger.
func (c *Component) Log() *slog.Logger { return c.log }

// AddInput declares an input port. Valid only during Initialize.
func (c *Component) AddInput(name string, opts ...PortOption) (*InputPort, error) {
	if c.state != StateNotInitialized {
		return nil, fmt.Errorf("%w: ports must be declared in Initialize", ErrGraphFrozen)
	}
	if _, ok := c.inputs[name]; ok {
		return nil, fmt.Errorf("%w: input %s.%s", ErrPortExists, c.name, name)
	}
	p := &InputPort{port: port{name: name, component: c}}
	for _, opt := range opts {
		opt(p)
	}
	c.inputs[name] = p
	c.inputOrder = append(c.inputOrder, name)
	return p, nil
}

// AddOutput declares an output port. Valid only during Initialize.
func (c *Component) AddOutput(name string) (*OutputPort, error) {
	if c.state != StateNotInitialized {
		return nil, fmt.Errorf("%w: ports must be declared in Initialize", ErrGraphFrozen)
	}
	if _, ok := c.outputs[name]; ok {
		return nil, fmt.Errorf("%w: output %s.%s", ErrPortExists, c.name, name)
	}
	p := &OutputPort{port: port{name: name, component: c}}
	c.outputs[name] = p
	c.outputOrder = append(c.outputOrder, name)
	return p, nil
}

// Input returns the named input port. It panics on an unknown name; inside
// Run the panic is recovered by the executor and surfaces as a component
// error.
func (c *Component) Input(name string) *InputPort {
	p, ok := c.inputs[name]
	if !ok {
		panic(fmt.Sprintf("flowz: %s: %v: input %q", c.name, ErrUnknownPort, name))
	}
	return p
}

// Output returns the named output port. It panics on an unknown name.
func (c *Component) Output(name string) *OutputPort {
	p, ok := c.outputs[name]
	if !ok {
		panic(fmt.Sprintf("flowz: %s: %v: output %q", c.name, ErrUnknownPort, name))
	}
	return p
}

// Inputs returns the input ports in declaration order.
func (c *Component) Inputs() []*InputPort {
	res := make([]*InputPort, 0, len(c.inputOrder))
	for _, name := range c.inputOrder {
		res = append(res, c.inputs[name])
	}
	return res
}

// Outputs returns the output ports in declaration order.
func (c *Component) Outputs() []*OutputPort {
	res := make([]*OutputPort, 0, len(c.outputOrder))
	for _, name := range c.outputOrder {
		res = append(res, c.outputs[name])
	}
	return res
}

// Terminate ends execution for this component voluntarily. All connections
// adjacent to it are closed, so upstream senders fail with
// ErrConnectionClosed and downstream receivers drain and observe end of
// stream. It does not terminate upstream components.
func (c *Component) Terminate() {
	e := c.exec
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if c.state.terminal() {
		return
	}
	e.transition(c, StateTerminated)
	e.closeAdjacentLocked(c)
	e.checkQuiescenceLocked()
}

// Suspend yields execution to the scheduler. The component stays ACTIVE and
// is resumed on the next dispatch tick; use it from components that poll
// external state instead of blocking outside the runtime.
func (c *Component) Suspend() { runtime.Gosched() }

func (c *Component) String() string {
	return fmt.Sprintf("Component(%s, channel=%s)", c.name, c.channel)
}
