// Package core defines core types with zero external dependencies.
package core

import "net/netip"

// Flow is a tracked bidirectional sequence of packets. Src is the client side.
type Flow struct {
	ID       uint64
	ParentID uint64 // 0 when the flow has no parent

	Src     netip.Addr
	Dst     netip.Addr
	SrcPort uint16
	DstPort uint16
	Proto   uint8

	// ICMP message types seen in each direction, used in place of ports.
	ICMPSrcType uint8
	ICMPDstType uint8

	Vars []Var
}

// IsIPv4 reports whether the flow is an IPv4 flow.
func (f *Flow) IsIPv4() bool {
	return f.Src.Is4() && f.Dst.Is4()
}

// IsIPv6 reports whether the flow is an IPv6 flow.
func (f *Flow) IsIPv6() bool {
	return f.Src.Is6() && !f.Src.Is4In6() && f.Dst.Is6() && !f.Dst.Is4In6()
}

// Var is a flow annotation. It is implemented by StringVar, IntVar and FlowBit.
type Var interface {
	isVar()
}

// StringVar is a string-valued flow variable. When Key is set the variable is
// keyed by that runtime byte string instead of a registered name.
type StringVar struct {
	ID    uint32
	Key   []byte
	Value []byte
}

// IntVar is an integer-valued flow variable.
type IntVar struct {
	ID    uint32
	Value uint32
}

// FlowBit is a boolean flag set on a flow.
type FlowBit struct {
	ID uint32
}

func (StringVar) isVar() {}
func (IntVar) isVar()    {}
func (FlowBit) isVar()   {}

// PacketVar is a string annotation attached to a single packet.
type PacketVar struct {
	ID    uint32
	Key   []byte
	Value []byte
}
