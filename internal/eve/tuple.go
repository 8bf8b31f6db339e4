package eve

import (
	"net/netip"

	"firestige.xyz/evelog/internal/core"
)

// Direction selects how a packet's addresses are mapped onto src/dest.
type Direction int

const (
	// DirPacket logs the packet as captured.
	DirPacket Direction = iota
	// DirFlow logs in flow order, client as source.
	DirFlow
	// DirFlowToServer is DirFlow spelled out.
	DirFlowToServer
	// DirFlowToClient logs in reverse flow order, server as source.
	DirFlowToClient
)

func (d Direction) String() string {
	switch d {
	case DirPacket:
		return "packet"
	case DirFlow:
		return "flow"
	case DirFlowToServer:
		return "flow_toserver"
	case DirFlowToClient:
		return "flow_toclient"
	default:
		return "unknown"
	}
}

// AddrInfo is a resolved five-tuple in presentation form.
type AddrInfo struct {
	SrcIP   string
	DstIP   string
	SrcPort uint16
	DstPort uint16
	// HasPorts is false for protocols without ports; the port fields are
	// then zero and must not be logged.
	HasPorts bool
	Proto    string
}

// ResolveAddrInfo resolves the five-tuple of p for the given direction.
// It returns false for packets that are neither IPv4 nor IPv6.
//
// Flow directions swap source and destination when the packet travels
// against the preferred direction. A packet without a flow has no direction
// and is always logged as captured.
func ResolveAddrInfo(p *core.Packet, dir Direction) (AddrInfo, bool) {
	if p == nil || !(p.IsIPv4() || p.IsIPv6()) {
		return AddrInfo{}, false
	}

	src, dst := p.SrcIP, p.DstIP
	sp, dp := p.SrcPort, p.DstPort

	swap := false
	if p.Flow != nil {
		switch dir {
		case DirPacket:
		case DirFlow, DirFlowToServer:
			swap = !p.ToServer
		case DirFlowToClient:
			swap = !p.ToClient()
		default:
			return AddrInfo{}, false
		}
	}
	if swap {
		src, dst = dst, src
		sp, dp = dp, sp
	}

	info := AddrInfo{
		SrcIP: addrString(src),
		DstIP: addrString(dst),
		Proto: core.ProtoName(p.Proto),
	}
	if core.HasPorts(p.Proto) {
		info.SrcPort = sp
		info.DstPort = dp
		info.HasPorts = true
	}
	return info, true
}

func addrString(a netip.Addr) string {
	return a.WithZone("").String()
}
