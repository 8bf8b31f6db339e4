package core

import "fmt"

// IP protocol numbers referenced by the serializer.
const (
	ProtoICMP   uint8 = 1
	ProtoTCP    uint8 = 6
	ProtoUDP    uint8 = 17
	ProtoICMPv6 uint8 = 58
	ProtoSCTP   uint8 = 132
)

// protoNames holds IANA keywords for well-known IP protocol numbers.
var protoNames = map[uint8]string{
	0:   "HOPOPT",
	1:   "ICMP",
	2:   "IGMP",
	3:   "GGP",
	4:   "IPv4",
	5:   "ST",
	6:   "TCP",
	8:   "EGP",
	9:   "IGP",
	17:  "UDP",
	27:  "RDP",
	33:  "DCCP",
	41:  "IPv6",
	43:  "IPv6-Route",
	44:  "IPv6-Frag",
	46:  "RSVP",
	47:  "GRE",
	50:  "ESP",
	51:  "AH",
	58:  "IPv6-ICMP",
	59:  "IPv6-NoNxt",
	60:  "IPv6-Opts",
	88:  "EIGRP",
	89:  "OSPFIGP",
	94:  "IPIP",
	97:  "ETHERIP",
	98:  "ENCAP",
	103: "PIM",
	108: "IPComp",
	112: "VRRP",
	115: "L2TP",
	124: "ISIS",
	132: "SCTP",
	133: "FC",
	135: "Mobility-Header",
	136: "UDPLite",
	137: "MPLS-in-IP",
	139: "HIP",
	140: "Shim6",
	141: "WESP",
	142: "ROHC",
	143: "Ethernet",
}

// ProtoName returns the registered name of an IP protocol number, or the
// number as a zero-padded three digit decimal string if it has none.
func ProtoName(proto uint8) string {
	if name, ok := protoNames[proto]; ok {
		return name
	}
	return fmt.Sprintf("%03d", proto)
}

// HasPorts reports whether the protocol carries port numbers.
func HasPorts(proto uint8) bool {
	switch proto {
	case ProtoTCP, ProtoUDP, ProtoSCTP:
		return true
	}
	return false
}

// TCP header flag bits.
const (
	TCPFlagFIN uint8 = 0x01
	TCPFlagSYN uint8 = 0x02
	TCPFlagRST uint8 = 0x04
	TCPFlagPSH uint8 = 0x08
	TCPFlagACK uint8 = 0x10
	TCPFlagURG uint8 = 0x20
	TCPFlagECN uint8 = 0x40
	TCPFlagCWR uint8 = 0x80
)
