package flowz

import (
	"errors"
	"fmt"
)

// emitter sends a fixed packet sequence on OUT, then returns.
type emitter struct {
	packets []*Packet
}

func (e *emitter) Initialize(c *Component) error {
	_, err := c.AddOutput("OUT")
	return err
}

func (e *emitter) Run(c *Component) error {
	out := c.Output("OUT")
	for _, p := range e.packets {
		if err := out.SendPacket(p); err != nil {
			return err
		}
	}
	return nil
}

// repeat forwards every packet from IN to OUT until end of stream.
type repeat struct{}

func (repeat) Initialize(c *Component) error {
	if _, err := c.AddInput("IN", PairedWith("OUT")); err != nil {
		return err
	}
	_, err := c.AddOutput("OUT")
	return err
}

func (repeat) Run(c *Component) error {
	in := c.Input("IN")
	out := c.Output("OUT")
	for {
		p, err := in.ReceivePacket()
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := out.SendPacket(p); err != nil {
			return err
		}
	}
}

// collector records data payloads from IN until end of stream.
type collector struct {
	got []any
}

func (s *collector) Initialize(c *Component) error {
	_, err := c.AddInput("IN")
	return err
}

func (s *collector) Run(c *Component) error {
	in := c.Input("IN")
	for {
		v, err := in.Receive()
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
		s.got = append(s.got, v)
	}
}

// structSink rebuilds the nested substream structure of its subscribed
// channel: data payloads become elements, OPEN/CLOSE pairs become nested
// slices.
type structSink struct {
	result []any

	// forward re-sends every delivered packet on OUT, so a downstream
	// component can observe the same stream.
	forward bool
}

func (s *structSink) Initialize(c *Component) error {
	if _, err := c.AddInput("IN", PairedWith("OUT")); err != nil {
		return err
	}
	_, err := c.AddOutput("OUT")
	return err
}

func (s *structSink) Run(c *Component) error {
	in := c.Input("IN")
	out := c.Output("OUT")

	var root []any
	stack := []*[]any{&root}

	for {
		p, err := in.ReceivePacket()
		if errors.Is(err, ErrEndOfStream) {
			s.result = root
			return nil
		}
		if err != nil {
			return err
		}
		switch p.Kind() {
		case KindData:
			top := stack[len(stack)-1]
			*top = append(*top, p.Payload())
		case KindOpen:
			stack = append(stack, &[]any{})
		case KindClose:
			sub := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top := stack[len(stack)-1]
			*top = append(*top, *sub)
		default:
			return fmt.Errorf("unexpected packet %s", p)
		}
		if s.forward {
			if err := out.SendPacket(p); err != nil {
				return err
			}
		}
	}
}

// mapSink rebuilds a map stream on its subscribed channel: SWITCH packets
// select the namespace data payloads accumulate under.
type mapSink struct {
	result map[string][]any
}

func (s *mapSink) Initialize(c *Component) error {
	if _, err := c.AddInput("IN", PairedWith("OUT")); err != nil {
		return err
	}
	_, err := c.AddOutput("OUT")
	return err
}

func (s *mapSink) Run(c *Component) error {
	in := c.Input("IN")

	var m map[string][]any
	ns := ""

	for {
		p, err := in.ReceivePacket()
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return err
		}
		switch p.Kind() {
		case KindData:
			if m != nil {
				m[ns] = append(m[ns], p.Payload())
			}
		case KindMapOpen:
			m = map[string][]any{}
		case KindSwitch:
			ns = p.Arg()
		case KindMapClose:
			s.result = m
		}
	}
}

// funcProc adapts plain functions to the Proc interface.
type funcProc struct {
	init func(c *Component) error
	run  func(c *Component) error
}

func (f *funcProc) Initialize(c *Component) error {
	if f.init == nil {
		return nil
	}
	return f.init(c)
}

func (f *funcProc) Run(c *Component) error { return f.run(c) }

func dataSeq(values ...any) []*Packet {
	packets := make([]*Packet, 0, len(values))
	for _, v := range values {
		packets = append(packets, Data(v))
	}
	return packets
}
