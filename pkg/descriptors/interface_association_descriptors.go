// This file implements the descriptors as defined in the UVC spec 1.5, section 3.6.
package descriptors

import "io"

const InterfaceAssociationDescriptorLength = 8

// InterfaceAssociationDescriptor groups the VC and VS interfaces into one video function.
type InterfaceAssociationDescriptor struct {
	FirstInterface   uint8
	InterfaceCount   uint8
	DescriptionIndex uint8
}

func (iad *InterfaceAssociationDescriptor) MarshalBinary() ([]byte, error) {
	return []byte{
		InterfaceAssociationDescriptorLength,
		byte(DescriptorTypeInterfaceAssociation),
		iad.FirstInterface,
		iad.InterfaceCount,
		byte(ClassCodeVideo),
		byte(SubclassCodeVideoInterfaceCollection),
		byte(ProtocolCodeUndefined),
		iad.DescriptionIndex,
	}, nil
}

func (iad *InterfaceAssociationDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, InterfaceAssociationDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeInterfaceAssociation {
		return ErrInvalidDescriptor
	}
	iad.FirstInterface = buf[2]
	iad.InterfaceCount = buf[3]
	if ClassCode(buf[4]) != ClassCodeVideo {
		return ErrInvalidDescriptor
	}
	if SubclassCode(buf[5]) != SubclassCodeVideoInterfaceCollection {
		return ErrInvalidDescriptor
	}
	if ProtocolCode(buf[6]) != ProtocolCodeUndefined {
		return ErrInvalidDescriptor
	}
	iad.DescriptionIndex = buf[7]
	return nil
}
