// Package eve builds EVE JSON events: the common envelope every event carries
// plus the flow fingerprint and annotation sections added after it.
package eve

import (
	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

// TimestampLayout is the layout of the "timestamp" field.
const TimestampLayout = "2006-01-02T15:04:05.000000-0700"

// Settings holds the process-wide serializer options. It is built once at
// startup and only read afterwards, so it is safe for concurrent use.
type Settings struct {
	// SensorID is logged as "sensor_id" when non-negative.
	SensorID int64

	IncludeMetadata    bool
	IncludeCommunityID bool
	CommunityIDSeed    uint16

	// Names resolves annotation ids. May be nil, in which case only
	// runtime-keyed annotations are logged.
	Names core.NameResolver
}

// DefaultSettings returns settings with metadata enabled, community id
// disabled and no sensor id.
func DefaultSettings() *Settings {
	return &Settings{
		SensorID:        -1,
		IncludeMetadata: true,
	}
}

// CreateHeader starts an event object for p and fills in the envelope.
// addr, when non-nil, is used instead of resolving the tuple again. The
// returned builder is left open for the caller to add event fields.
func (s *Settings) CreateHeader(p *core.Packet, dir Direction, eventType string, addr *AddrInfo) *jsonbuilder.Builder {
	js := jsonbuilder.NewObject()

	_ = js.SetString("timestamp", p.Timestamp.Format(TimestampLayout))

	if p.Flow != nil {
		AddFlowID(js, p.Flow)
	}
	if s.SensorID >= 0 {
		_ = js.SetInt("sensor_id", s.SensorID)
	}
	if p.Device != "" {
		_ = js.SetString("in_iface", p.Device)
	}
	if p.PcapCnt != 0 {
		_ = js.SetUint("pcap_cnt", p.PcapCnt)
	}
	if eventType != "" {
		_ = js.SetString("event_type", eventType)
	}

	if n := len(p.VLANs); n > 0 {
		_ = js.OpenArray("vlan")
		_ = js.AppendUint(uint64(p.VLANs[0]))
		if n > 1 {
			_ = js.AppendUint(uint64(p.VLANs[1]))
		}
		_ = js.Close()
	}

	if addr == nil {
		if info, ok := ResolveAddrInfo(p, dir); ok {
			addr = &info
		}
	}
	if addr != nil {
		addTuple(js, addr)
	}

	switch {
	case p.Proto == core.ProtoICMP && p.ICMPv4 != nil:
		_ = js.SetUint("icmp_type", uint64(p.ICMPv4.Type))
		_ = js.SetUint("icmp_code", uint64(p.ICMPv4.Code))
	case p.Proto == core.ProtoICMPv6 && p.ICMPv6 != nil:
		_ = js.SetUint("icmp_type", uint64(p.ICMPv6.Type))
		_ = js.SetUint("icmp_code", uint64(p.ICMPv6.Code))
	}

	return js
}

// CreateHeaderWithTxID is CreateHeader followed by a "tx_id" field.
func (s *Settings) CreateHeaderWithTxID(p *core.Packet, dir Direction, eventType string, addr *AddrInfo, txID uint64) *jsonbuilder.Builder {
	js := s.CreateHeader(p, dir, eventType, addr)
	_ = js.SetUint("tx_id", txID)
	return js
}

// AddCommonOptions adds the sections every event type shares once its own
// fields are written: annotations and the community id, each when enabled.
func (s *Settings) AddCommonOptions(js *jsonbuilder.Builder, p *core.Packet, f *core.Flow) {
	if s.IncludeMetadata {
		AddMetadata(js, p, f, s.Names)
	}
	if s.IncludeCommunityID && f != nil {
		AddCommunityID(js, f, s.CommunityIDSeed)
	}
}

// AddFlowID writes "flow_id" and, when the flow has a parent, "parent_id".
func AddFlowID(js *jsonbuilder.Builder, f *core.Flow) {
	_ = js.SetUint("flow_id", f.ID)
	if f.ParentID != 0 {
		_ = js.SetUint("parent_id", f.ParentID)
	}
}

func addTuple(js *jsonbuilder.Builder, addr *AddrInfo) {
	_ = js.SetString("src_ip", addr.SrcIP)
	if addr.HasPorts {
		_ = js.SetUint("src_port", uint64(addr.SrcPort))
	}
	_ = js.SetString("dest_ip", addr.DstIP)
	if addr.HasPorts {
		_ = js.SetUint("dest_port", uint64(addr.DstPort))
	}
	_ = js.SetString("proto", addr.Proto)
}
