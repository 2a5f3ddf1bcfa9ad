package flowz

import "fmt"

// Graph is the static description of a process network: components,
// connections and initial information packets. Graphs are built
// imperatively, validated when handed to an Executor, and frozen from then
// on; there is no structural mutation during execution.
//
// Graph is not safe for concurrent use during construction. Once frozen it
// is owned by its Executor.
type Graph struct {
	name string

	components map[string]*Component
	order      []string
	conns      []*connection

	frozen bool
}

// NewGraph creates an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{
		name:       name,
		components: map[string]*Component{},
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// Add creates a component shell around proc, invokes its Initialize to
// declare ports, and registers it under the given name.
func (g *Graph) Add(name string, proc Proc, opts ...ComponentOption) (*Component, error) {
	if g.frozen {
		return nil, fmt.Errorf("%w: cannot add %q", ErrGraphFrozen, name)
	}
	if name == "" {
		return nil, fmt.Errorf("component name must not be empty")
	}
	if _, exists := g.components[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateComponent, name)
	}
	c := newComponent(name, proc, opts...)
	if err := proc.Initialize(c); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", name, err)
	}
	c.state = StateInitialized
	g.components[name] = c
	g.order = append(g.order, name)
	return c, nil
}

// MustAdd is like Add but panics on error.
func (g *Graph) MustAdd(name string, proc Proc, opts ...ComponentOption) *Component {
	c, err := g.Add(name, proc, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ConnectOption configures a single connection.
type ConnectOption func(*connection)

// WithCapacity sets the queue capacity for this connection, overriding the
// executor default.
var WithCapacity = func(n int) ConnectOption {
	return func(c *connection) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// Connect wires an output port to an input port with a bounded FIFO. Each
// port can be connected at most once.
func (g *Graph) Connect(out *OutputPort, in *InputPort, opts ...ConnectOption) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot connect", ErrGraphFrozen)
	}
	if out == nil || in == nil {
		return fmt.Errorf("%w: nil port", ErrUnknownPort)
	}
	if err := g.owns(out.component); err != nil {
		return fmt.Errorf("output %s: %w", out.id(), err)
	}
	if err := g.owns(in.component); err != nil {
		return fmt.Errorf("input %s: %w", in.id(), err)
	}
	if out.conn != nil {
		return fmt.Errorf("%w: %s", ErrPortAlreadyConnected, out.id())
	}
	if in.conn != nil {
		return fmt.Errorf("%w: %s", ErrPortAlreadyConnected, in.id())
	}
	n := &connection{src: out, dst: in}
	for _, opt := range opts {
		opt(n)
	}
	out.conn = n
	in.conn = n
	g.conns = append(g.conns, n)
	return nil
}

// MustConnect is like Connect but panics on error.
func (g *Graph) MustConnect(out *OutputPort, in *InputPort, opts ...ConnectOption) {
	if err := g.Connect(out, in, opts...); err != nil {
		panic(err)
	}
}

// SetInitialPacket seeds an initial information packet (IIP) onto an input
// port. IIPs are delivered in registration order, before any runtime
// packets.
func (g *Graph) SetInitialPacket(in *InputPort, v any) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot set initial packet", ErrGraphFrozen)
	}
	if in == nil {
		return fmt.Errorf("%w: nil port", ErrUnknownPort)
	}
	if err := g.owns(in.component); err != nil {
		return fmt.Errorf("input %s: %w", in.id(), err)
	}
	in.iips = append(in.iips, Data(v))
	return nil
}

// Components returns the graph's components in insertion order.
func (g *Graph) Components() []*Component {
	res := make([]*Component, 0, len(g.order))
	for _, name := range g.order {
		res = append(res, g.components[name])
	}
	return res
}

// Component returns a component by name, or nil.
func (g *Graph) Component(name string) *Component {
	return g.components[name]
}

func (g *Graph) owns(c *Component) error {
	if c == nil || g.components[c.name] != c {
		return fmt.Errorf("%w: component not in graph", ErrUnknownPort)
	}
	return nil
}
