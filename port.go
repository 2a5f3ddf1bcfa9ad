package flowz

import (
	"errors"
	"fmt"
	"time"
)

type port struct {
	name      string
	component *Component
	conn      *connection // nil while unconnected
}

// Name returns the port name, unique within its component.
func (p *port) Name() string { return p.name }

func (p *port) id() string {
	if p.component == nil {
		return "(detached)." + p.name
	}
	return p.component.name + "." + p.name
}

// PortOption configures an input port at declaration time.
type PortOption func(*InputPort)

// PairedWith names the output port on which foreign-channel control packets
// arriving at this input are forwarded. Without an explicit pair, the
// component's sole output is used if there is exactly one.
var PairedWith = func(output string) PortOption {
	return func(p *InputPort) { p.pair = output }
}

// Optional marks the input as optional: validation does not warn when it is
// left unconnected with no initial packets.
var Optional = func() PortOption {
	return func(p *InputPort) { p.optional = true }
}

// InputPort is a named endpoint through which packets enter a component. An
// input port has at most one inbound connection; with none, receives yield
// the configured initial packets and then end of stream.
type InputPort struct {
	port

	pair     string
	optional bool

	iips    []*Packet
	iipNext int

	eos bool
}

// Receive returns the payload of the next data packet. Control packets on
// the subscribed channel are applied to the component's bracket state but
// not returned; use ReceivePacket to observe stream structure. The error is
// ErrEndOfStream once the stream is drained.
func (in *InputPort) Receive() (any, error) {
	return in.receiveData(time.Time{})
}

// ReceiveTimeout is Receive with a timeout; it returns ErrTimeout on expiry
// and the component remains active.
func (in *InputPort) ReceiveTimeout(timeout time.Duration) (any, error) {
	return in.receiveData(time.Now().Add(timeout))
}

// ReceivePacket returns the next packet of interest on the component's
// subscribed channel: any data packet, or a control packet on that channel.
// Foreign-channel control packets are forwarded downstream and never
// returned. The error is ErrEndOfStream once the stream is drained.
func (in *InputPort) ReceivePacket() (*Packet, error) {
	return in.receivePacket(time.Time{})
}

// ReceivePacketTimeout is ReceivePacket with a timeout; it returns
// ErrTimeout on expiry and the component remains active.
func (in *InputPort) ReceivePacketTimeout(timeout time.Duration) (*Packet, error) {
	return in.receivePacket(time.Now().Add(timeout))
}

func (in *InputPort) receiveData(deadline time.Time) (any, error) {
	for {
		p, err := in.receivePacket(deadline)
		if err != nil {
			return nil, err
		}
		if p.IsData() {
			return p.Payload(), nil
		}
	}
}

func (in *InputPort) receivePacket(deadline time.Time) (*Packet, error) {
	c := in.component
	if c.exec == nil {
		return nil, fmt.Errorf("%w: %s is not executing", ErrNotInitialized, c.name)
	}
	for {
		p, err := in.next(deadline)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				if berr := c.checkBracketsAtEOS(); berr != nil {
					return nil, berr
				}
			}
			return nil, err
		}
		if p.IsData() {
			return p, nil
		}
		if p.Channel() == c.channel {
			if err := c.brackets.apply(p); err != nil {
				return nil, fmt.Errorf("component %s: %w", c.name, err)
			}
			return p, nil
		}
		// Foreign control packet: pass it through unchanged, bracket state
		// untouched.
		out := in.forwardTarget()
		if out == nil {
			c.log.Warn("dropping foreign control packet, no output to forward on",
				"port", in.id(), "packet", p.String())
			continue
		}
		if err := out.SendPacket(p); err != nil {
			return nil, err
		}
	}
}

// next yields the next raw packet: pending initial packets first, then the
// inbound connection, then end of stream.
func (in *InputPort) next(deadline time.Time) (*Packet, error) {
	c := in.component
	e := c.exec

	e.mu.Lock()
	canceled := c.cancelPending
	e.mu.Unlock()
	if canceled {
		in.eos = true
		return nil, ErrEndOfStream
	}

	if in.iipNext < len(in.iips) {
		p := in.iips[in.iipNext]
		in.iipNext++
		return p, nil
	}
	if in.conn == nil {
		in.eos = true
		return nil, ErrEndOfStream
	}
	p, err := in.conn.receive(c, deadline)
	if errors.Is(err, ErrEndOfStream) {
		in.eos = true
	}
	return p, err
}

// forwardTarget resolves the output port used for foreign control
// passthrough: the declared pair, else the sole output, else none.
func (in *InputPort) forwardTarget() *OutputPort {
	c := in.component
	if in.pair != "" {
		if out, ok := c.outputs[in.pair]; ok {
			return out
		}
	}
	if len(c.outputOrder) == 1 {
		return c.outputs[c.outputOrder[0]]
	}
	return nil
}

// checkBracketsAtEOS enforces that the bracket stack is empty once the last
// open input has reached end of stream.
func (c *Component) checkBracketsAtEOS() error {
	for _, in := range c.inputs {
		if !in.eos {
			return nil
		}
	}
	if c.brackets.depth() > 0 {
		return fmt.Errorf("component %s: %w: depth %d", c.name, ErrUnclosedBrackets, c.brackets.depth())
	}
	return nil
}

// OutputPort is a named endpoint through which packets leave a component. An
// output port has at most one outbound connection; without one, sends drop
// the packet silently so components can be wired partially.
type OutputPort struct {
	port
}

// Send sends a data packet carrying v, tagged with the component's
// subscribed channel. It blocks while the downstream connection is full and
// fails with ErrConnectionClosed once it is closed.
func (out *OutputPort) Send(v any) error {
	return out.SendPacket(DataOn(out.component.channel, v))
}

// SendPacket sends p as-is, preserving its channel tag.
func (out *OutputPort) SendPacket(p *Packet) error {
	if out.conn == nil {
		return nil
	}
	return out.conn.send(out.component, p)
}

// OpenSubstream sends an OPEN bracket on the subscribed channel.
func (out *OutputPort) OpenSubstream() error {
	return out.SendPacket(Control(KindOpen, out.component.channel))
}

// CloseSubstream sends a CLOSE bracket on the subscribed channel.
func (out *OutputPort) CloseSubstream() error {
	return out.SendPacket(Control(KindClose, out.component.channel))
}

// OpenMap sends a MAP_OPEN bracket on the subscribed channel.
func (out *OutputPort) OpenMap() error {
	return out.SendPacket(Control(KindMapOpen, out.component.channel))
}

// CloseMap sends a MAP_CLOSE bracket on the subscribed channel.
func (out *OutputPort) CloseMap() error {
	return out.SendPacket(Control(KindMapClose, out.component.channel))
}

// Switch sends a SWITCH packet selecting the given namespace on the
// subscribed channel.
func (out *OutputPort) Switch(namespace string) error {
	return out.SendPacket(SwitchTo(out.component.channel, namespace))
}
