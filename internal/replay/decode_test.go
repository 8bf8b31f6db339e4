package replay

import (
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/evelog/internal/core"
)

func decode(t *testing.T, data []byte) *core.Packet {
	t.Helper()
	d, err := NewDecoder(layers.LinkTypeEthernet)
	require.NoError(t, err)
	p, err := d.Decode(data, gopacket.CaptureInfo{Timestamp: baseTime})
	require.NoError(t, err)
	return p
}

func TestDecode_UDP(t *testing.T) {
	data := udpFrame(t, "10.0.0.1", 5000, "10.0.0.2", 53, []byte("query"))
	p := decode(t, data)

	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), p.SrcIP)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), p.DstIP)
	assert.Equal(t, uint16(5000), p.SrcPort)
	assert.Equal(t, uint16(53), p.DstPort)
	assert.Equal(t, core.ProtoUDP, p.Proto)
	assert.Equal(t, uint8(layers.LinkTypeEthernet), p.LinkType)
	assert.Equal(t, baseTime, p.Timestamp)
	assert.Equal(t, data, p.Data)
	assert.True(t, p.IsIPv4())
}

func TestDecode_TCPFlags(t *testing.T) {
	data := tcpFrame(t, "192.168.1.10", 40000, "192.168.1.20", 80, &layers.TCP{SYN: true, ACK: true})
	p := decode(t, data)

	assert.Equal(t, core.ProtoTCP, p.Proto)
	assert.Equal(t, core.TCPFlagSYN|core.TCPFlagACK, p.TCPFlags)
	assert.Equal(t, uint16(40000), p.SrcPort)
	assert.Equal(t, uint16(80), p.DstPort)
}

func TestDecode_VLANs(t *testing.T) {
	ip := ipv4("10.1.1.1", "10.1.1.2", layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 1000, DstPort: 2000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t,
		ethernet(layers.EthernetTypeDot1Q),
		&layers.Dot1Q{VLANIdentifier: 100, Type: layers.EthernetTypeDot1Q},
		&layers.Dot1Q{VLANIdentifier: 200, Type: layers.EthernetTypeIPv4},
		ip, udp,
	)
	p := decode(t, data)

	assert.Equal(t, []uint16{100, 200}, p.VLANs)
	assert.Equal(t, core.ProtoUDP, p.Proto)
}

func TestDecode_ICMPv4(t *testing.T) {
	data := serialize(t,
		ethernet(layers.EthernetTypeIPv4),
		ipv4("1.2.3.4", "5.6.7.8", layers.IPProtocolICMPv4),
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1},
	)
	p := decode(t, data)

	assert.Equal(t, core.ProtoICMP, p.Proto)
	require.NotNil(t, p.ICMPv4)
	assert.Equal(t, uint8(8), p.ICMPv4.Type)
	assert.Equal(t, uint8(0), p.ICMPv4.Code)
	assert.Nil(t, p.ICMPv6)
}

func TestDecode_ICMPv6(t *testing.T) {
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolICMPv6,
		SrcIP:      net.ParseIP("fe80::1"),
		DstIP:      net.ParseIP("fe80::2"),
	}
	icmp := &layers.ICMPv6{TypeCode: layers.CreateICMPv6TypeCode(layers.ICMPv6TypeEchoRequest, 0)}
	require.NoError(t, icmp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, ethernet(layers.EthernetTypeIPv6), ip, icmp,
		&layers.ICMPv6Echo{Identifier: 1, SeqNumber: 1})
	p := decode(t, data)

	assert.True(t, p.IsIPv6())
	assert.Equal(t, core.ProtoICMPv6, p.Proto)
	require.NotNil(t, p.ICMPv6)
	assert.Equal(t, uint8(128), p.ICMPv6.Type)
}

func TestDecode_SCTPPorts(t *testing.T) {
	header := []byte{0x0b, 0x59, 0x0b, 0x59, 0, 0, 0, 1, 0, 0, 0, 0}
	data := serialize(t,
		ethernet(layers.EthernetTypeIPv4),
		ipv4("10.0.0.1", "10.0.0.2", layers.IPProtocolSCTP),
		gopacket.Payload(header),
	)
	p := decode(t, data)

	assert.Equal(t, core.ProtoSCTP, p.Proto)
	assert.Equal(t, uint16(2905), p.SrcPort)
	assert.Equal(t, uint16(2905), p.DstPort)
}

func TestDecode_NonIP(t *testing.T) {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   clientMAC,
		SourceProtAddress: net.ParseIP("10.0.0.1").To4(),
		DstHwAddress:      make(net.HardwareAddr, 6),
		DstProtAddress:    net.ParseIP("10.0.0.2").To4(),
	}
	p := decode(t, serialize(t, ethernet(layers.EthernetTypeARP), arp))

	assert.False(t, p.SrcIP.IsValid())
	assert.Zero(t, p.Proto)
}

func TestDecode_Errors(t *testing.T) {
	d, err := NewDecoder(layers.LinkTypeEthernet)
	require.NoError(t, err)

	_, err = d.Decode(nil, gopacket.CaptureInfo{})
	assert.True(t, errors.Is(err, core.ErrPacketTooShort))

	_, err = d.Decode([]byte{0x00, 0x11}, gopacket.CaptureInfo{})
	assert.Error(t, err)

	_, err = NewDecoder(layers.LinkTypeTokenRing)
	assert.True(t, errors.Is(err, core.ErrUnsupportedProto))
}

func TestDecode_RawIPv6(t *testing.T) {
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
	udp := &layers.UDP{SrcPort: 1234, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t, ip, udp)

	d, err := NewDecoder(layers.LinkTypeRaw)
	require.NoError(t, err)
	p, err := d.Decode(data, gopacket.CaptureInfo{})
	require.NoError(t, err)

	assert.Equal(t, netip.MustParseAddr("2001:db8::1"), p.SrcIP)
	assert.Equal(t, uint16(53), p.DstPort)
}

func TestDecode_TunnelKeepsOuterHeader(t *testing.T) {
	outer := ipv4("10.0.0.1", "10.0.0.2", layers.IPProtocolIPv4)
	inner := ipv4("192.168.1.1", "192.168.1.2", layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 1000, DstPort: 2000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(inner))
	data := serialize(t, ethernet(layers.EthernetTypeIPv4), outer, inner, udp)
	p := decode(t, data)

	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), p.SrcIP)
	assert.Equal(t, netip.MustParseAddr("10.0.0.2"), p.DstIP)
	assert.Equal(t, uint8(layers.IPProtocolIPv4), p.Proto)
	assert.Zero(t, p.SrcPort)
	assert.Zero(t, p.DstPort)
}

func TestDecode_DecoderReuse(t *testing.T) {
	d, err := NewDecoder(layers.LinkTypeEthernet)
	require.NoError(t, err)

	ip := ipv4("10.1.1.1", "10.1.1.2", layers.IPProtocolUDP)
	udp := &layers.UDP{SrcPort: 1000, DstPort: 2000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	tagged := serialize(t,
		ethernet(layers.EthernetTypeDot1Q),
		&layers.Dot1Q{VLANIdentifier: 100, Type: layers.EthernetTypeDot1Q},
		&layers.Dot1Q{VLANIdentifier: 200, Type: layers.EthernetTypeIPv4},
		ip, udp,
	)

	first, err := d.Decode(tagged, gopacket.CaptureInfo{})
	require.NoError(t, err)
	second, err := d.Decode(udpFrame(t, "10.0.0.1", 5000, "10.0.0.2", 53, nil), gopacket.CaptureInfo{})
	require.NoError(t, err)

	assert.Equal(t, []uint16{100, 200}, first.VLANs)
	assert.Empty(t, second.VLANs)
	assert.Equal(t, uint16(5000), second.SrcPort)
}
