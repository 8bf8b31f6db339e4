package eve

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

const communityIDVersion = "1:"

// CommunityID computes the version 1 Community ID of a flow. The tuple is
// ordered so that both directions of a connection hash to the same value.
// It returns false for flows that are neither IPv4 nor IPv6.
func CommunityID(f *core.Flow, seed uint16) (string, bool) {
	if f == nil {
		return "", false
	}

	var src, dst []byte
	var icmp uint8
	switch {
	case f.IsIPv4():
		s, d := f.Src.As4(), f.Dst.As4()
		src, dst = s[:], d[:]
		icmp = core.ProtoICMP
	case f.IsIPv6():
		s, d := f.Src.As16(), f.Dst.As16()
		src, dst = s[:], d[:]
		icmp = core.ProtoICMPv6
	default:
		return "", false
	}

	sp, dp := f.SrcPort, f.DstPort
	if f.Proto == icmp {
		sp, dp = uint16(f.ICMPSrcType), uint16(f.ICMPDstType)
	}

	if c := bytes.Compare(src, dst); c > 0 || (c == 0 && sp > dp) {
		src, dst = dst, src
		sp, dp = dp, sp
	}

	// seed, saddr, daddr, proto, pad, sport, dport
	buf := make([]byte, 0, 2+2*len(src)+2+4)
	buf = binary.BigEndian.AppendUint16(buf, seed)
	buf = append(buf, src...)
	buf = append(buf, dst...)
	buf = append(buf, f.Proto, 0)
	buf = binary.BigEndian.AppendUint16(buf, sp)
	buf = binary.BigEndian.AppendUint16(buf, dp)

	sum := sha1.Sum(buf)
	return communityIDVersion + base64.StdEncoding.EncodeToString(sum[:]), true
}

// AddCommunityID sets "community_id" on js. Nothing is written when the id
// cannot be computed.
func AddCommunityID(js *jsonbuilder.Builder, f *core.Flow, seed uint16) {
	id, ok := CommunityID(f, seed)
	if !ok {
		return
	}
	_ = js.SetString("community_id", id)
}
