// Package core defines the packet, flow and annotation records consumed by the
// event serializer. The detection pipeline owns these; evelog only reads them.
package core

import (
	"net/netip"
	"time"
)

// ICMPHeader holds the parsed ICMP type and code of a packet.
type ICMPHeader struct {
	Type uint8
	Code uint8
}

// Packet is a decoded packet as handed over by the pipeline.
type Packet struct {
	Timestamp time.Time

	SrcIP   netip.Addr
	DstIP   netip.Addr
	SrcPort uint16
	DstPort uint16
	Proto   uint8

	// Set only when the ICMP header was parsed successfully.
	ICMPv4 *ICMPHeader
	ICMPv6 *ICMPHeader

	TCPFlags uint8

	VLANs    []uint16 // outermost first, at most two are logged
	Device   string   // live capture interface, empty for offline input
	PcapCnt  uint64   // 1-based sequence number, 0 if unknown
	LinkType uint8
	Data     []byte

	// ToServer reports whether the packet travels client to server
	// within its flow. Meaningless without a flow.
	ToServer bool

	Flow *Flow
	Vars []PacketVar
}

// IsIPv4 reports whether the packet carries IPv4 addresses.
func (p *Packet) IsIPv4() bool {
	return p.SrcIP.Is4() && p.DstIP.Is4()
}

// IsIPv6 reports whether the packet carries IPv6 addresses.
func (p *Packet) IsIPv6() bool {
	return p.SrcIP.Is6() && !p.SrcIP.Is4In6() && p.DstIP.Is6() && !p.DstIP.Is4In6()
}

// ToClient reports whether the packet travels server to client.
func (p *Packet) ToClient() bool {
	return !p.ToServer
}
