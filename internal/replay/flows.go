package replay

import (
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/patrickmn/go-cache"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/internal/metrics"
	"firestige.xyz/evelog/internal/varstore"
)

type flowEntry struct {
	flow     core.Flow
	lastSeen time.Time // packet time of the newest packet
}

// FlowTable assigns packets to bidirectional flows. Flows idle for longer
// than the timeout, measured in packet time, are replaced by new ones; the
// cache janitor drops them from memory. It is used from the reader goroutine
// only.
type FlowTable struct {
	flows   *cache.Cache
	timeout time.Duration
	nextID  uint64

	labels map[uint16][]uint32 // port -> flow-bit ids
}

// NewFlowTable creates a table. labels maps ports to flow-bit names; flows
// touching a labelled port carry those bits.
func NewFlowTable(timeout time.Duration, labels map[uint16][]string, names *varstore.Store) *FlowTable {
	t := &FlowTable{
		flows:   cache.New(timeout, timeout),
		timeout: timeout,
		labels:  make(map[uint16][]uint32, len(labels)),
	}
	for port, bits := range labels {
		for _, name := range bits {
			t.labels[port] = append(t.labels[port], names.Register(name, core.VarTypeFlowBit))
		}
	}
	t.flows.OnEvicted(func(key string, _ any) {
		slog.Debug("flow expired", "key", key)
		metrics.ReplayFlows.Set(float64(t.flows.ItemCount()))
	})
	return t
}

// Len returns the number of flows held, including expired ones not yet
// collected.
func (t *FlowTable) Len() int {
	return t.flows.ItemCount()
}

// Assign looks up or creates the flow of p, sets p.ToServer and attaches a
// snapshot of the flow to p. Packets without IP addresses get no flow.
func (t *FlowTable) Assign(p *core.Packet) {
	if !p.SrcIP.IsValid() || !p.DstIP.IsValid() {
		return
	}

	key := flowKey(p)
	var e *flowEntry
	if v, ok := t.flows.Get(key); ok {
		e = v.(*flowEntry)
		if p.Timestamp.Sub(e.lastSeen) > t.timeout {
			e = nil
		}
	}
	if e == nil {
		e = t.newEntry(p)
	}

	p.ToServer = p.SrcIP == e.flow.Src && p.SrcPort == e.flow.SrcPort
	if !p.ToServer && p.SrcIP == p.DstIP && p.SrcPort == p.DstPort {
		p.ToServer = true
	}
	if icmp := icmpType(p); icmp != nil && !p.ToServer && e.flow.ICMPDstType == 0 {
		e.flow.ICMPDstType = *icmp
	}
	if p.Timestamp.After(e.lastSeen) {
		e.lastSeen = p.Timestamp
	}
	t.flows.Set(key, e, cache.DefaultExpiration)
	metrics.ReplayFlows.Set(float64(t.flows.ItemCount()))

	snap := e.flow
	p.Flow = &snap
}

func (t *FlowTable) newEntry(p *core.Packet) *flowEntry {
	t.nextID++
	e := &flowEntry{
		flow: core.Flow{
			ID:      t.nextID,
			Src:     p.SrcIP,
			Dst:     p.DstIP,
			SrcPort: p.SrcPort,
			DstPort: p.DstPort,
			Proto:   p.Proto,
		},
		lastSeen: p.Timestamp,
	}
	if icmp := icmpType(p); icmp != nil {
		e.flow.ICMPSrcType = *icmp
	}

	seen := make(map[uint32]bool)
	for _, port := range []uint16{p.SrcPort, p.DstPort} {
		for _, id := range t.labels[port] {
			if !seen[id] {
				seen[id] = true
				e.flow.Vars = append(e.flow.Vars, core.FlowBit{ID: id})
			}
		}
	}
	return e
}

func icmpType(p *core.Packet) *uint8 {
	switch {
	case p.ICMPv4 != nil:
		return &p.ICMPv4.Type
	case p.ICMPv6 != nil:
		return &p.ICMPv6.Type
	}
	return nil
}

// flowKey orders the two endpoints so both directions share one key.
func flowKey(p *core.Packet) string {
	a := netip.AddrPortFrom(p.SrcIP, p.SrcPort)
	b := netip.AddrPortFrom(p.DstIP, p.DstPort)
	if b.Compare(a) < 0 {
		a, b = b, a
	}
	return fmt.Sprintf("%d|%s|%s", p.Proto, a, b)
}
