package eve

import (
	"encoding/base64"

	"firestige.xyz/evelog/internal/core"
	"firestige.xyz/evelog/pkg/jsonbuilder"
)

// AddPacket writes the raw packet as base64 under "packet" together with a
// "packet_info" object. A non-zero maxLength caps the bytes logged.
func AddPacket(js *jsonbuilder.Builder, p *core.Packet, maxLength int) {
	data := p.Data
	if maxLength > 0 && len(data) > maxLength {
		data = data[:maxLength]
	}
	_ = js.SetString("packet", base64.StdEncoding.EncodeToString(data))

	if err := js.OpenObject("packet_info"); err != nil {
		return
	}
	_ = js.SetUint("linktype", uint64(p.LinkType))
	_ = js.Close()
}

var tcpFlagNames = []struct {
	bit  uint8
	name string
}{
	{core.TCPFlagSYN, "syn"},
	{core.TCPFlagFIN, "fin"},
	{core.TCPFlagRST, "rst"},
	{core.TCPFlagPSH, "psh"},
	{core.TCPFlagACK, "ack"},
	{core.TCPFlagURG, "urg"},
	{core.TCPFlagECN, "ecn"},
	{core.TCPFlagCWR, "cwr"},
}

// AddTCPFlags writes a boolean for every flag set in flags. Cleared flags are
// left out.
func AddTCPFlags(js *jsonbuilder.Builder, flags uint8) {
	for _, f := range tcpFlagNames {
		if flags&f.bit != 0 {
			_ = js.SetBool(f.name, true)
		}
	}
}
