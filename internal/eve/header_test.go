package eve

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/internal/varstore"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

func TestCreateHeader_FieldOrder(t *testing.T) {
	f := udpFlow()
	p := udpPacket(f, true)
	p.Device = "eth0"
	p.PcapCnt = 7
	p.VLANs = []uint16{10, 20, 30}

	s := DefaultSettings()
	s.SensorID = 3

	js := s.CreateHeader(p, DirPacket, "dns", nil)
	want := `{"timestamp":"2024-01-02T03:04:05.123456+0000","flow_id":42,"sensor_id":3,` +
		`"in_iface":"eth0","pcap_cnt":7,"event_type":"dns","vlan":[10,20],` +
		`"src_ip":"10.0.0.1","src_port":5000,"dest_ip":"10.0.0.2","dest_port":53,"proto":"UDP"}`
	assert.Equal(t, want, string(finish(t, js)))
}

func TestCreateHeader_OptionalFieldsOmitted(t *testing.T) {
	p := &core.Packet{
		Timestamp: testTime,
		SrcIP:     netip.MustParseAddr("192.0.2.1"),
		DstIP:     netip.MustParseAddr("192.0.2.2"),
		Proto:     core.ProtoICMP,
	}

	js := DefaultSettings().CreateHeader(p, DirPacket, "", nil)
	doc := parse(t, js)

	for _, key := range []string{"flow_id", "parent_id", "sensor_id", "in_iface", "pcap_cnt", "event_type", "vlan", "src_port", "dest_port", "icmp_type", "icmp_code"} {
		assert.False(t, doc.Exists(key), key)
	}
	assert.Equal(t, "ICMP", doc.Path("proto").Data())
}

func TestCreateHeader_ParentAndTxID(t *testing.T) {
	f := udpFlow()
	f.ParentID = 41
	p := udpPacket(f, true)

	js := DefaultSettings().CreateHeaderWithTxID(p, DirFlow, "dns", nil, 5)
	doc := parse(t, js)

	assert.Equal(t, float64(42), doc.Path("flow_id").Data())
	assert.Equal(t, float64(41), doc.Path("parent_id").Data())
	assert.Equal(t, float64(5), doc.Path("tx_id").Data())
}

func TestCreateHeader_ICMP(t *testing.T) {
	p := &core.Packet{
		Timestamp: testTime,
		SrcIP:     netip.MustParseAddr("2001:db8::1"),
		DstIP:     netip.MustParseAddr("2001:db8::2"),
		Proto:     core.ProtoICMPv6,
		ICMPv6:    &core.ICMPHeader{Type: 128, Code: 0},
	}

	doc := parse(t, DefaultSettings().CreateHeader(p, DirPacket, "packet", nil))
	assert.Equal(t, float64(128), doc.Path("icmp_type").Data())
	assert.Equal(t, float64(0), doc.Path("icmp_code").Data())
	assert.False(t, doc.Exists("src_port"))

	// an IPv4 header on an IPv6 protocol number is not logged
	p.ICMPv6 = nil
	p.ICMPv4 = &core.ICMPHeader{Type: 8}
	doc = parse(t, DefaultSettings().CreateHeader(p, DirPacket, "packet", nil))
	assert.False(t, doc.Exists("icmp_type"))
}

func TestCreateHeader_PreResolvedTuple(t *testing.T) {
	p := udpPacket(udpFlow(), true)
	addr := &AddrInfo{SrcIP: "198.51.100.1", DstIP: "198.51.100.2", Proto: "UDP"}

	doc := parse(t, DefaultSettings().CreateHeader(p, DirPacket, "x", addr))
	assert.Equal(t, "198.51.100.1", doc.Path("src_ip").Data())
	assert.False(t, doc.Exists("src_port"))
}

func TestCreateHeader_NonIP(t *testing.T) {
	p := &core.Packet{Timestamp: testTime, PcapCnt: 1}
	js := DefaultSettings().CreateHeader(p, DirPacket, "packet", nil)
	assert.Equal(t, `{"timestamp":"2024-01-02T03:04:05.123456+0000","pcap_cnt":1,"event_type":"packet"}`, string(finish(t, js)))
}

func TestCreateHeader_EndToEndCommunityID(t *testing.T) {
	s := DefaultSettings()
	s.IncludeCommunityID = true

	f := udpFlow()
	build := func(toServer bool) string {
		p := udpPacket(f, toServer)
		js := s.CreateHeader(p, DirPacket, "dns", nil)
		s.AddCommonOptions(js, p, f)
		return string(finish(t, js))
	}

	request := build(true)
	reply := build(false)

	assert.Contains(t, request, `"src_ip":"10.0.0.1"`)
	assert.Contains(t, request, `"dest_port":53`)
	assert.Contains(t, reply, `"src_ip":"10.0.0.2"`)

	const cid = `"community_id":"1:4sSMKwiLG6ALt16rSG1QjqDtqLk="`
	assert.Contains(t, request, cid)
	assert.Contains(t, reply, cid)
}

func TestAddCommonOptions_Toggles(t *testing.T) {
	names := varstore.New()
	f := udpFlow()
	f.Vars = []core.Var{core.FlowBit{ID: names.Register("seen", core.VarTypeFlowBit)}}
	p := udpPacket(f, true)

	tests := []struct {
		name         string
		metadata     bool
		communityID  bool
		flow         *core.Flow
		wantMetadata bool
		wantCID      bool
	}{
		{"defaults", true, false, f, true, false},
		{"all off", false, false, f, false, false},
		{"community id", false, true, f, false, true},
		{"community id without flow", false, true, nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{SensorID: -1, IncludeMetadata: tt.metadata, IncludeCommunityID: tt.communityID, Names: names}
			js := jsonbuilder.NewObject()
			s.AddCommonOptions(js, p, tt.flow)
			doc := parse(t, js)
			assert.Equal(t, tt.wantMetadata, doc.Exists("metadata"))
			assert.Equal(t, tt.wantCID, doc.Exists("community_id"))
		})
	}
}

func TestAddTCPFlags(t *testing.T) {
	js := jsonbuilder.NewObject()
	AddTCPFlags(js, core.TCPFlagSYN|core.TCPFlagACK)
	assert.Equal(t, `{"syn":true,"ack":true}`, string(finish(t, js)))

	js = jsonbuilder.NewObject()
	AddTCPFlags(js, 0)
	assert.Equal(t, `{}`, string(finish(t, js)))
}

func TestAddPacket(t *testing.T) {
	p := &core.Packet{Data: []byte("abcdef"), LinkType: 1}

	js := jsonbuilder.NewObject()
	AddPacket(js, p, 0)
	assert.Equal(t, `{"packet":"YWJjZGVm","packet_info":{"linktype":1}}`, string(finish(t, js)))

	js = jsonbuilder.NewObject()
	AddPacket(js, p, 3)
	doc := parse(t, js)
	require.True(t, doc.Exists("packet"))
	assert.Equal(t, "YWJj", doc.Path("packet").Data())
}
