package flowz

import "fmt"

// DefaultChannel is the channel a packet is tagged with unless the sender
// chooses another one.
const DefaultChannel = "default"

// Kind discriminates data packets from the control packet variants.
type Kind int

const (
	KindData Kind = iota
	KindOpen
	KindClose
	KindMapOpen
	KindMapClose
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindOpen:
		return "OPEN"
	case KindClose:
		return "CLOSE"
	case KindMapOpen:
		return "MAP_OPEN"
	case KindMapClose:
		return "MAP_CLOSE"
	case KindSwitch:
		return "SWITCH"
	default:
		return "UNKNOWN"
	}
}

// Packet is a single information packet (IP). Packets are immutable after
// construction; a component that wants to alter one sends a new packet
// instead.
//
// End of stream is not a packet. Receive operations report it as the
// ErrEndOfStream sentinel once a connection is closed and drained.
type Packet struct {
	kind    Kind
	payload any
	channel string
	arg     string
}

// Data creates a data packet on DefaultChannel.
func Data(v any) *Packet {
	return &Packet{kind: KindData, payload: v, channel: DefaultChannel}
}

// DataOn creates a data packet tagged with the given channel.
func DataOn(channel string, v any) *Packet {
	return &Packet{kind: KindData, payload: v, channel: channel}
}

// Control creates a control packet of the given kind on the given channel.
// Use SwitchTo for KindSwitch; it needs a namespace argument.
func Control(kind Kind, channel string) *Packet {
	if kind == KindData || kind == KindSwitch {
		panic(fmt.Sprintf("flowz: Control cannot create %s packets", kind))
	}
	return &Packet{kind: kind, channel: channel}
}

// SwitchTo creates a SWITCH control packet selecting the given namespace
// within the innermost enclosing map on the given channel.
func SwitchTo(channel, namespace string) *Packet {
	return &Packet{kind: KindSwitch, channel: channel, arg: namespace}
}

// IsData reports whether p is a data packet.
func (p *Packet) IsData() bool { return p.kind == KindData }

// IsControl reports whether p is a control packet.
func (p *Packet) IsControl() bool { return p.kind != KindData }

// Kind returns the packet kind.
func (p *Packet) Kind() Kind { return p.kind }

// Payload returns the data payload. Control packets have a nil payload.
func (p *Packet) Payload() any { return p.payload }

// Channel returns the channel tag.
func (p *Packet) Channel() string { return p.channel }

// Arg returns the namespace argument of a SWITCH packet.
func (p *Packet) Arg() string { return p.arg }

func (p *Packet) String() string {
	if p.IsData() {
		return fmt.Sprintf("Packet(%v)", p.payload)
	}
	if p.kind == KindSwitch {
		return fmt.Sprintf("Packet(%s(%s)@%s)", p.kind, p.arg, p.channel)
	}
	return fmt.Sprintf("Packet(%s@%s)", p.kind, p.channel)
}
