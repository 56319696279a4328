// This file implements the descriptors as defined in the UVC spec 1.5, section 3.10.
package descriptors

import (
	"encoding/binary"
	"io"
)

const (
	EndpointDescriptorLength                    = 7
	SuperSpeedEndpointCompanionDescriptorLength = 6
)

type TransferType uint8

const (
	TransferTypeControl     TransferType = 0b00
	TransferTypeIsochronous TransferType = 0b01
	TransferTypeBulk        TransferType = 0b10
	TransferTypeInterrupt   TransferType = 0b11
)

const (
	EndpointDirectionIn = 0x80

	// SynchronizationAsynchronous is the iso sync type used by the video data endpoint.
	SynchronizationAsynchronous = 0b0100
)

// EndpointDescriptor is the standard endpoint descriptor shared by the VC
// interrupt endpoint (3.8.2.1) and the VS video data endpoints (3.10.1.1, 3.10.1.2).
type EndpointDescriptor struct {
	EndpointAddress   uint8
	AttributesBitmask uint8
	MaxPacketSize     uint16
	Interval          uint8
}

func (ed *EndpointDescriptor) TransferType() TransferType {
	return TransferType(ed.AttributesBitmask & 0b11)
}

func (ed *EndpointDescriptor) IsIn() bool {
	return ed.EndpointAddress&EndpointDirectionIn != 0
}

// Transactions reports the number of transactions per microframe encoded in
// bits 12..11 of wMaxPacketSize for high-speed periodic endpoints.
func (ed *EndpointDescriptor) Transactions() int {
	return int(ed.MaxPacketSize>>11&0b11) + 1
}

func (ed *EndpointDescriptor) PacketSize() int {
	return int(ed.MaxPacketSize & 0x7FF)
}

func (ed *EndpointDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EndpointDescriptorLength)
	buf[0] = EndpointDescriptorLength
	buf[1] = byte(DescriptorTypeEndpoint)
	buf[2] = ed.EndpointAddress
	buf[3] = ed.AttributesBitmask
	binary.LittleEndian.PutUint16(buf[4:6], ed.MaxPacketSize)
	buf[6] = ed.Interval
	return buf, nil
}

func (ed *EndpointDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, EndpointDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeEndpoint {
		return ErrInvalidDescriptor
	}
	if buf[2]&0b01110000 != 0 { // Reserved bits
		return ErrInvalidDescriptor
	}
	ed.EndpointAddress = buf[2]
	ed.AttributesBitmask = buf[3]
	ed.MaxPacketSize = binary.LittleEndian.Uint16(buf[4:6])
	ed.Interval = buf[6]
	return nil
}

// SuperSpeedEndpointCompanionDescriptor follows every endpoint descriptor of a
// SuperSpeed configuration.
type SuperSpeedEndpointCompanionDescriptor struct {
	MaxBurst         uint8
	Attributes       uint8
	BytesPerInterval uint16
}

func (sscd *SuperSpeedEndpointCompanionDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SuperSpeedEndpointCompanionDescriptorLength)
	buf[0] = SuperSpeedEndpointCompanionDescriptorLength
	buf[1] = byte(DescriptorTypeSuperSpeedEndpointCompanion)
	buf[2] = sscd.MaxBurst
	buf[3] = sscd.Attributes
	binary.LittleEndian.PutUint16(buf[4:6], sscd.BytesPerInterval)
	return buf, nil
}

func (sscd *SuperSpeedEndpointCompanionDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, SuperSpeedEndpointCompanionDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeSuperSpeedEndpointCompanion {
		return ErrInvalidDescriptor
	}
	if buf[2] > 15 {
		return ErrInvalidDescriptor
	}
	sscd.MaxBurst = buf[2]
	sscd.Attributes = buf[3]
	sscd.BytesPerInterval = binary.LittleEndian.Uint16(buf[4:6])
	return nil
}
