package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// packetReader is implemented by both pcapgo readers.
type packetReader interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
	LinkType() layers.LinkType
}

// Source reads frames from a classic pcap or a pcapng file.
type Source struct {
	path   string
	file   *os.File
	reader packetReader
}

// OpenSource opens path, detecting the file format from its header.
func OpenSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file %s: %w", path, err)
	}

	var r packetReader
	if pr, err := pcapgo.NewReader(f); err == nil {
		r = pr
	} else {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			f.Close()
			return nil, serr
		}
		ng, ngErr := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
		if ngErr != nil {
			f.Close()
			return nil, fmt.Errorf("%s is neither pcap (%v) nor pcapng (%v)", path, err, ngErr)
		}
		r = ng
	}

	return &Source{path: path, file: f, reader: r}, nil
}

// Path returns the file name the source was opened with.
func (s *Source) Path() string {
	return s.path
}

// LinkType returns the link type of the capture.
func (s *Source) LinkType() layers.LinkType {
	return s.reader.LinkType()
}

// ReadPacket returns the next frame, or io.EOF at the end of the file.
// The returned slice is owned by the caller.
func (s *Source) ReadPacket() ([]byte, gopacket.CaptureInfo, error) {
	data, ci, err := s.reader.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, gopacket.CaptureInfo{}, io.EOF
		}
		return nil, gopacket.CaptureInfo{}, fmt.Errorf("failed to read packet: %w", err)
	}
	return data, ci, nil
}

// Close releases the file.
func (s *Source) Close() error {
	return s.file.Close()
}
