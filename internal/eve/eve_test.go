package eve

import (
	"net/netip"
	"testing"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/stretchr/testify/require"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

var testTime = time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)

// finish closes js and returns the document.
func finish(t *testing.T, js *jsonbuilder.Builder) []byte {
	t.Helper()
	require.NoError(t, js.Close())
	b, err := js.Bytes()
	require.NoError(t, err)
	return b
}

func parse(t *testing.T, js *jsonbuilder.Builder) *gabs.Container {
	t.Helper()
	c, err := gabs.ParseJSON(finish(t, js))
	require.NoError(t, err)
	return c
}

func udpFlow() *core.Flow {
	return &core.Flow{
		ID:      42,
		Src:     netip.MustParseAddr("10.0.0.1"),
		Dst:     netip.MustParseAddr("10.0.0.2"),
		SrcPort: 5000,
		DstPort: 53,
		Proto:   core.ProtoUDP,
	}
}

// udpPacket returns a packet of udpFlow, client to server when toServer is
// set and server to client otherwise.
func udpPacket(f *core.Flow, toServer bool) *core.Packet {
	p := &core.Packet{
		Timestamp: testTime,
		Proto:     core.ProtoUDP,
		ToServer:  toServer,
		Flow:      f,
	}
	if toServer {
		p.SrcIP, p.DstIP = f.Src, f.Dst
		p.SrcPort, p.DstPort = f.SrcPort, f.DstPort
	} else {
		p.SrcIP, p.DstIP = f.Dst, f.Src
		p.SrcPort, p.DstPort = f.DstPort, f.SrcPort
	}
	return p
}
