// Package usbip exports a device over the USB/IP protocol so that a Linux
// host can attach it through vhci_hcd.
package usbip

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/efficientgo/core/errors"
)

const (
	Version = 0x0111

	opReqDevlist = 0x8005
	opRepDevlist = 0x0005
	opReqImport  = 0x8003
	opRepImport  = 0x0003

	cmdSubmit = 0x0001
	cmdUnlink = 0x0002
	retSubmit = 0x0003
	retUnlink = 0x0004

	directionOut = 0
	directionIn  = 1

	statusOK    = 0
	statusError = 1

	busIDSize = 32
	pathSize  = 256

	// maxTransferLength bounds what a peer can make us allocate for one URB.
	maxTransferLength = 16 << 20
	maxIsoPackets     = 1024
)

// errnoPipe is -EPIPE, the status of a stalled URB.
const errnoPipe = -32

// Speed as in the kernel's enum usb_device_speed.
type Speed uint32

const (
	SpeedHigh  Speed = 3
	SpeedSuper Speed = 5
)

var (
	ErrProtocol       = errors.New("usbip protocol error")
	ErrUnknownCommand = errors.New("unknown usbip command")
)

type opHeader struct {
	Version uint16
	Code    uint16
	Status  uint32
}

type Interface struct {
	Class    uint8
	SubClass uint8
	Protocol uint8
	_        uint8
}

// DeviceDescription is struct usbip_usb_device.
type DeviceDescription struct {
	Path               [pathSize]byte
	BusID              [busIDSize]byte
	BusNum             uint32
	DevNum             uint32
	Speed              Speed
	Vendor             uint16
	Product            uint16
	BCDDevice          uint16
	DeviceClass        uint8
	DeviceSubClass     uint8
	DeviceProtocol     uint8
	ConfigurationValue uint8
	NumConfigurations  uint8
	NumInterfaces      uint8
}

// DeviceInfo is everything the op phase reports about the exported device.
type DeviceInfo struct {
	Description DeviceDescription
	Interfaces  []Interface
}

func (i DeviceInfo) BusID() string {
	return cString(i.Description.BusID[:])
}

func cString(b []byte) string {
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return string(b)
}

func busIDBytes(s string) (b [busIDSize]byte) {
	copy(b[:], s)
	return b
}

func pathBytes(s string) (b [pathSize]byte) {
	copy(b[:], s)
	return b
}

type devlistReply struct {
	opHeader
	NumDevices uint32
}

type importRequest struct {
	BusID [busIDSize]byte
}

// urbHeader is struct usbip_header_basic.
type urbHeader struct {
	Command   uint32
	SeqNum    uint32
	DevID     uint32
	Direction uint32
	Endpoint  uint32
}

type submitCommand struct {
	TransferFlags        uint32
	TransferBufferLength int32
	StartFrame           int32
	NumberOfPackets      int32
	Interval             int32
	Setup                [8]byte
}

type submitReply struct {
	urbHeader
	Status          int32
	ActualLength    int32
	StartFrame      int32
	NumberOfPackets int32
	ErrorCount      int32
	_               [8]byte
}

type unlinkCommand struct {
	UnlinkSeqNum uint32
	_            [24]byte
}

type unlinkReply struct {
	urbHeader
	Status int32
	_      [24]byte
}

type isoPacket struct {
	Offset       uint32
	Length       uint32
	ActualLength uint32
	Status       int32
}

// submit is a decoded CMD_SUBMIT with its OUT payload and iso descriptors.
type submit struct {
	header  urbHeader
	cmd     submitCommand
	payload []byte
	iso     []isoPacket
}

func readSubmit(r io.Reader, h urbHeader) (*submit, error) {
	s := &submit{header: h}
	if err := binary.Read(r, binary.BigEndian, &s.cmd); err != nil {
		return nil, errors.Wrap(err, "failed to read submit command")
	}
	n := s.cmd.TransferBufferLength
	if n < 0 || n > maxTransferLength {
		return nil, errors.Wrapf(ErrProtocol, "transfer buffer length %d", n)
	}
	if h.Direction == directionOut && n > 0 {
		s.payload = make([]byte, n)
		if _, err := io.ReadFull(r, s.payload); err != nil {
			return nil, errors.Wrap(err, "failed to read submit payload")
		}
	}
	packets := s.cmd.NumberOfPackets
	// non-iso submits carry 0 or -1 here
	if packets > 0 {
		if packets > maxIsoPackets {
			return nil, errors.Wrapf(ErrProtocol, "%d iso packets", packets)
		}
		s.iso = make([]isoPacket, packets)
		if err := binary.Read(r, binary.BigEndian, s.iso); err != nil {
			return nil, errors.Wrap(err, "failed to read iso packet descriptors")
		}
	}
	return s, nil
}

func replyHeader(command uint32, seq uint32) urbHeader {
	return urbHeader{Command: command, SeqNum: seq}
}

// writeSubmitReply writes RET_SUBMIT followed by the IN data and the iso
// descriptors. actual is the OUT length consumed when data is empty.
func writeSubmitReply(w io.Writer, s *submit, status int32, actual int, data []byte) error {
	if s.header.Direction == directionIn {
		actual = len(data)
	} else {
		data = nil
	}
	rep := submitReply{
		urbHeader:       replyHeader(retSubmit, s.header.SeqNum),
		Status:          status,
		ActualLength:    int32(actual),
		StartFrame:      s.cmd.StartFrame,
		NumberOfPackets: s.cmd.NumberOfPackets,
	}
	iso := s.iso
	if len(iso) > 0 {
		iso = make([]isoPacket, len(s.iso))
		for i, p := range s.iso {
			iso[i] = isoPacket{Offset: p.Offset, Length: p.Length, Status: status}
		}
		rep.ErrorCount = int32(len(iso))
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, rep); err != nil {
		return err
	}
	buf.Write(data)
	if len(iso) > 0 {
		if err := binary.Write(&buf, binary.BigEndian, iso); err != nil {
			return err
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}
