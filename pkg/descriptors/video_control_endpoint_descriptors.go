// This file implements the descriptors as defined in the UVC spec 1.5, section 3.8.
package descriptors

import (
	"encoding/binary"
	"io"
)

type VideoControlEndpointDescriptorSubtype byte

const (
	VideoControlEndpointDescriptorSubtypeUndefined VideoControlEndpointDescriptorSubtype = 0x00
	VideoControlEndpointDescriptorSubtypeGeneral   VideoControlEndpointDescriptorSubtype = 0x01
	VideoControlEndpointDescriptorSubtypeEndpoint  VideoControlEndpointDescriptorSubtype = 0x02
	VideoControlEndpointDescriptorSubtypeInterrupt VideoControlEndpointDescriptorSubtype = 0x03
)

const ClassSpecificInterruptEndpointDescriptorLength = 5

// ClassSpecificInterruptEndpointDescriptor as defined in UVC spec 1.5, 3.8.2.2
type ClassSpecificInterruptEndpointDescriptor struct {
	MaxTransferSize uint16
}

func (csied *ClassSpecificInterruptEndpointDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ClassSpecificInterruptEndpointDescriptorLength)
	buf[0] = ClassSpecificInterruptEndpointDescriptorLength
	buf[1] = byte(ClassSpecificDescriptorTypeEndpoint)
	buf[2] = byte(VideoControlEndpointDescriptorSubtypeInterrupt)
	binary.LittleEndian.PutUint16(buf[3:5], csied.MaxTransferSize)
	return buf, nil
}

func (csied *ClassSpecificInterruptEndpointDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, ClassSpecificInterruptEndpointDescriptorLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeEndpoint {
		return ErrInvalidDescriptor
	}
	if VideoControlEndpointDescriptorSubtype(buf[2]) != VideoControlEndpointDescriptorSubtypeInterrupt {
		return ErrInvalidDescriptor
	}
	csied.MaxTransferSize = binary.LittleEndian.Uint16(buf[3:5])
	return nil
}
