package requests

import (
	"encoding/binary"
	"fmt"

	"github.com/efficientgo/core/errors"
)

type RequestType uint8

const (
	RequestTypeVideoInterfaceSetRequest RequestType = 0b00100001
	RequestTypeDataEndpointSetRequest   RequestType = 0b00100010
	RequestTypeVideoInterfaceGetRequest RequestType = 0b10100001
	RequestTypeDataEndpointGetRequest   RequestType = 0b10100010
)

// bmRequestType fields as defined in USB 2.0, table 9-2.
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F

	RequestDirectionDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
)

type RequestCode uint8

const (
	RequestCodeUndefined RequestCode = 0x00
	RequestCodeSetCur    RequestCode = 0x01
	RequestCodeSetCurAll RequestCode = 0x11
	RequestCodeGetCur    RequestCode = 0x81
	RequestCodeGetMin    RequestCode = 0x82
	RequestCodeGetMax    RequestCode = 0x83
	RequestCodeGetRes    RequestCode = 0x84
	RequestCodeGetLen    RequestCode = 0x85
	RequestCodeGetInfo   RequestCode = 0x86
	RequestCodeGetDef    RequestCode = 0x87
	RequestCodeGetCurAll RequestCode = 0x91
	RequestCodeGetMinAll RequestCode = 0x92
	RequestCodeGetMaxAll RequestCode = 0x93
	RequestCodeGetResAll RequestCode = 0x94
	RequestCodeGetDefAll RequestCode = 0x97
)

// Supported reports whether rc is one of the eight single-control request
// codes. The UVC 1.5 *_ALL variants are not.
func (rc RequestCode) Supported() bool {
	switch rc {
	case RequestCodeSetCur, RequestCodeGetCur, RequestCodeGetMin, RequestCodeGetMax,
		RequestCodeGetRes, RequestCodeGetLen, RequestCodeGetInfo, RequestCodeGetDef:
		return true
	}
	return false
}

// IsGet reports whether rc reads from the device.
func (rc RequestCode) IsGet() bool {
	return rc&0x80 != 0
}

func (rc RequestCode) String() string {
	switch rc {
	case RequestCodeSetCur:
		return "SET_CUR"
	case RequestCodeGetCur:
		return "GET_CUR"
	case RequestCodeGetMin:
		return "GET_MIN"
	case RequestCodeGetMax:
		return "GET_MAX"
	case RequestCodeGetRes:
		return "GET_RES"
	case RequestCodeGetLen:
		return "GET_LEN"
	case RequestCodeGetInfo:
		return "GET_INFO"
	case RequestCodeGetDef:
		return "GET_DEF"
	}
	return fmt.Sprintf("0x%02X", uint8(rc))
}

// Standard request codes as defined in USB 2.0, table 9-4.
const (
	StandardRequestGetStatus        = 0x00
	StandardRequestClearFeature     = 0x01
	StandardRequestSetFeature       = 0x03
	StandardRequestSetAddress       = 0x05
	StandardRequestGetDescriptor    = 0x06
	StandardRequestSetDescriptor    = 0x07
	StandardRequestGetConfiguration = 0x08
	StandardRequestSetConfiguration = 0x09
	StandardRequestGetInterface     = 0x0A
	StandardRequestSetInterface     = 0x0B
	StandardRequestSynchFrame       = 0x0C
)

const FeatureEndpointHalt = 0x00

const SetupPacketSize = 8

var ErrSetupPacketTooShort = errors.New("setup packet too short")

// SetupPacket is the 8-byte SETUP stage of a control transfer.
type SetupPacket struct {
	RequestType uint8
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16
}

func ParseSetupPacket(data []byte) (*SetupPacket, error) {
	if len(data) < SetupPacketSize {
		return nil, ErrSetupPacketTooShort
	}
	return &SetupPacket{
		RequestType: data[0],
		Request:     data[1],
		Value:       binary.LittleEndian.Uint16(data[2:4]),
		Index:       binary.LittleEndian.Uint16(data[4:6]),
		Length:      binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}

func (s *SetupPacket) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SetupPacketSize)
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:4], s.Value)
	binary.LittleEndian.PutUint16(buf[4:6], s.Index)
	binary.LittleEndian.PutUint16(buf[6:8], s.Length)
	return buf, nil
}

func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

func (s *SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeTypeMask
}

func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// Selector is the control selector carried in the high byte of wValue.
func (s *SetupPacket) Selector() uint8 {
	return uint8(s.Value >> 8)
}

// EntityID is the unit or terminal ID carried in the high byte of wIndex.
func (s *SetupPacket) EntityID() uint8 {
	return uint8(s.Index >> 8)
}

// InterfaceNumber is the low byte of wIndex. For endpoint recipients it holds
// the endpoint address instead.
func (s *SetupPacket) InterfaceNumber() uint8 {
	return uint8(s.Index)
}

func (s *SetupPacket) String() string {
	return fmt.Sprintf("SETUP[0x%02X] Request=0x%02X Value=0x%04X Index=0x%04X Length=%d",
		s.RequestType, s.Request, s.Value, s.Index, s.Length)
}

// ClassRequest builds the setup packet a host would send for a UVC class request.
func ClassRequest(code RequestCode, selector, entity, iface uint8, length uint16) *SetupPacket {
	rt := RequestTypeVideoInterfaceGetRequest
	if !code.IsGet() {
		rt = RequestTypeVideoInterfaceSetRequest
	}
	return &SetupPacket{
		RequestType: uint8(rt),
		Request:     uint8(code),
		Value:       uint16(selector) << 8,
		Index:       uint16(entity)<<8 | uint16(iface),
		Length:      length,
	}
}
