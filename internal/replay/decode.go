package replay

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/evelog/internal/core"
)

// Decoder turns raw frames into core.Packet records. A Decoder reuses its
// layer storage and is not safe for concurrent use.
//
// Layers are copied into the packet while the parser walks the frame, since
// a repeated layer (QinQ tags, tunnelled IP) reuses the same storage. Only
// the outer network header and the transport header directly behind it are
// logged.
type Decoder struct {
	linkType layers.LinkType
	parser   *gopacket.DecodingLayerParser
	rawIPv6  *gopacket.DecodingLayerParser

	eth     layers.Ethernet
	sll     layers.LinuxSLL
	dot1q   layers.Dot1Q
	ip4     layers.IPv4
	ip6     layers.IPv6
	tcp     layers.TCP
	udp     layers.UDP
	icmp4   layers.ICMPv4
	icmp6   layers.ICMPv6
	payload gopacket.Payload

	decoded []gopacket.LayerType

	// per-frame state filled by the layer hooks
	cur       *core.Packet
	ipPayload []byte
	sawIP     bool
	inner     bool
	sawL4     bool
}

// hookLayer calls after once its layer decoded successfully.
type hookLayer struct {
	gopacket.DecodingLayer
	after func()
}

func (h *hookLayer) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	if err := h.DecodingLayer.DecodeFromBytes(data, df); err != nil {
		return err
	}
	h.after()
	return nil
}

// NewDecoder returns a decoder for frames of the given link type.
// Ethernet, Linux cooked capture and raw IP are supported.
func NewDecoder(linkType layers.LinkType) (*Decoder, error) {
	d := &Decoder{linkType: linkType}

	var first gopacket.LayerType
	switch linkType {
	case layers.LinkTypeEthernet:
		first = layers.LayerTypeEthernet
	case layers.LinkTypeLinuxSLL:
		first = layers.LayerTypeLinuxSLL
	case layers.LinkTypeRaw, layers.LinkTypeIPv4:
		first = layers.LayerTypeIPv4
	case layers.LinkTypeIPv6:
		first = layers.LayerTypeIPv6
	default:
		return nil, fmt.Errorf("link type %s: %w", linkType, core.ErrUnsupportedProto)
	}

	decoders := []gopacket.DecodingLayer{
		&d.eth, &d.sll,
		&hookLayer{&d.dot1q, d.onVLAN},
		&hookLayer{&d.ip4, d.onIPv4},
		&hookLayer{&d.ip6, d.onIPv6},
		&hookLayer{&d.tcp, d.onTCP},
		&hookLayer{&d.udp, d.onUDP},
		&hookLayer{&d.icmp4, d.onICMPv4},
		&hookLayer{&d.icmp6, d.onICMPv6},
		&d.payload,
	}
	d.parser = gopacket.NewDecodingLayerParser(first, decoders...)
	d.parser.IgnoreUnsupported = true

	// Raw captures carry either family behind the same link type.
	if linkType == layers.LinkTypeRaw {
		d.rawIPv6 = gopacket.NewDecodingLayerParser(layers.LayerTypeIPv6, decoders...)
		d.rawIPv6.IgnoreUnsupported = true
	}
	return d, nil
}

// Decode parses one frame. The returned packet references data.
func (d *Decoder) Decode(data []byte, ci gopacket.CaptureInfo) (*core.Packet, error) {
	if len(data) == 0 {
		return nil, core.ErrPacketTooShort
	}

	parser := d.parser
	if d.rawIPv6 != nil && data[0]>>4 == 6 {
		parser = d.rawIPv6
	}

	p := &core.Packet{
		Timestamp: ci.Timestamp,
		LinkType:  uint8(d.linkType),
		Data:      data,
	}
	d.cur = p
	d.ipPayload = nil
	d.sawIP, d.inner, d.sawL4 = false, false, false
	defer func() { d.cur = nil }()

	d.decoded = d.decoded[:0]
	if err := parser.DecodeLayers(data, &d.decoded); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	// SCTP has no decoding layer; the common header starts with both ports.
	if p.Proto == core.ProtoSCTP {
		if len(d.ipPayload) < 4 {
			return nil, fmt.Errorf("sctp header: %w", core.ErrPacketTooShort)
		}
		p.SrcPort = binary.BigEndian.Uint16(d.ipPayload[0:2])
		p.DstPort = binary.BigEndian.Uint16(d.ipPayload[2:4])
	}
	return p, nil
}

func (d *Decoder) onVLAN() {
	if !d.sawIP {
		d.cur.VLANs = append(d.cur.VLANs, d.dot1q.VLANIdentifier)
	}
}

// network records the outer header and marks any later one as tunnelled.
func (d *Decoder) network(src, dst net.IP, proto uint8, payload []byte) {
	if d.sawIP {
		d.inner = true
		return
	}
	d.sawIP = true
	d.cur.SrcIP = toAddr(src)
	d.cur.DstIP = toAddr(dst)
	d.cur.Proto = proto
	d.ipPayload = payload
}

func (d *Decoder) onIPv4() {
	d.network(d.ip4.SrcIP, d.ip4.DstIP, uint8(d.ip4.Protocol), d.ip4.Payload)
}

func (d *Decoder) onIPv6() {
	d.network(d.ip6.SrcIP, d.ip6.DstIP, uint8(d.ip6.NextHeader), d.ip6.Payload)
}

// transport reports whether the transport header belongs to the outer
// network header and has not been seen yet.
func (d *Decoder) transport() bool {
	if !d.sawIP || d.inner || d.sawL4 {
		return false
	}
	d.sawL4 = true
	return true
}

func (d *Decoder) onTCP() {
	if !d.transport() {
		return
	}
	d.cur.Proto = core.ProtoTCP
	d.cur.SrcPort = uint16(d.tcp.SrcPort)
	d.cur.DstPort = uint16(d.tcp.DstPort)
	d.cur.TCPFlags = tcpFlags(&d.tcp)
}

func (d *Decoder) onUDP() {
	if !d.transport() {
		return
	}
	d.cur.Proto = core.ProtoUDP
	d.cur.SrcPort = uint16(d.udp.SrcPort)
	d.cur.DstPort = uint16(d.udp.DstPort)
}

func (d *Decoder) onICMPv4() {
	if !d.transport() {
		return
	}
	d.cur.Proto = core.ProtoICMP
	d.cur.ICMPv4 = &core.ICMPHeader{Type: d.icmp4.TypeCode.Type(), Code: d.icmp4.TypeCode.Code()}
}

func (d *Decoder) onICMPv6() {
	if !d.transport() {
		return
	}
	d.cur.Proto = core.ProtoICMPv6
	d.cur.ICMPv6 = &core.ICMPHeader{Type: d.icmp6.TypeCode.Type(), Code: d.icmp6.TypeCode.Code()}
}

func toAddr(ip net.IP) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip)
	return addr
}

func tcpFlags(t *layers.TCP) uint8 {
	var f uint8
	set := func(on bool, bit uint8) {
		if on {
			f |= bit
		}
	}
	set(t.FIN, core.TCPFlagFIN)
	set(t.SYN, core.TCPFlagSYN)
	set(t.RST, core.TCPFlagRST)
	set(t.PSH, core.TCPFlagPSH)
	set(t.ACK, core.TCPFlagACK)
	set(t.URG, core.TCPFlagURG)
	set(t.ECE, core.TCPFlagECN)
	set(t.CWR, core.TCPFlagCWR)
	return f
}
