// This file implements the descriptors as defined in the UVC spec 1.5, section 3.7.
package descriptors

import (
	"encoding"
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

type ControlInterface interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	isControlInterface()
}

// UnmarshalControlInterface decodes a class-specific VC interface descriptor by its subtype.
func UnmarshalControlInterface(buf []byte) (ControlInterface, error) {
	if len(buf) < 3 {
		return nil, io.ErrShortBuffer
	}
	var desc ControlInterface
	switch VideoControlInterfaceDescriptorSubtype(buf[2]) {
	case VideoControlInterfaceDescriptorSubtypeHeader:
		desc = &HeaderDescriptor{}
	case VideoControlInterfaceDescriptorSubtypeInputTerminal:
		desc = &CameraTerminalDescriptor{}
	case VideoControlInterfaceDescriptorSubtypeOutputTerminal:
		desc = &OutputTerminalDescriptor{}
	case VideoControlInterfaceDescriptorSubtypeProcessingUnit:
		desc = &ProcessingUnitDescriptor{}
	case VideoControlInterfaceDescriptorSubtypeEncodingUnit:
		desc = &EncodingUnitDescriptor{}
	case VideoControlInterfaceDescriptorSubtypeExtensionUnit:
		desc = &ExtensionUnitDescriptor{}
	default:
		return nil, ErrInvalidDescriptor
	}
	return desc, desc.UnmarshalBinary(buf)
}

type VideoControlInterfaceDescriptorSubtype byte

const (
	VideoControlInterfaceDescriptorSubtypeUndefined      VideoControlInterfaceDescriptorSubtype = 0x00
	VideoControlInterfaceDescriptorSubtypeHeader         VideoControlInterfaceDescriptorSubtype = 0x01
	VideoControlInterfaceDescriptorSubtypeInputTerminal  VideoControlInterfaceDescriptorSubtype = 0x02
	VideoControlInterfaceDescriptorSubtypeOutputTerminal VideoControlInterfaceDescriptorSubtype = 0x03
	VideoControlInterfaceDescriptorSubtypeSelectorUnit   VideoControlInterfaceDescriptorSubtype = 0x04
	VideoControlInterfaceDescriptorSubtypeProcessingUnit VideoControlInterfaceDescriptorSubtype = 0x05
	VideoControlInterfaceDescriptorSubtypeExtensionUnit  VideoControlInterfaceDescriptorSubtype = 0x06
	VideoControlInterfaceDescriptorSubtypeEncodingUnit   VideoControlInterfaceDescriptorSubtype = 0x07
)

type TerminalType uint16

const (
	TerminalTypeVendorSpecific TerminalType = 0x0100
	TerminalTypeStreaming      TerminalType = 0x0101
)

type InputTerminalType uint16

const (
	InputTerminalTypeVendorSpecific      InputTerminalType = 0x0200
	InputTerminalTypeCamera              InputTerminalType = 0x0201
	InputTerminalTypeMediaTransportInput InputTerminalType = 0x0202
)

const (
	HeaderDescriptorBaseLength = 12
	CameraTerminalBaseLength   = 15
	OutputTerminalLength       = 9
	ProcessingUnitBaseLength   = 10
	EncodingUnitLength         = 13
	ExtensionUnitBaseLength    = 24

	encodingUnitControlSize = 3
	maxControlBitmapSize    = 4
)

// StandardVideoControlInterfaceDescriptor as defined in UVC spec 1.5, 3.7.1
type StandardVideoControlInterfaceDescriptor struct {
	InterfaceNumber  uint8
	AlternateSetting uint8
	NumEndpoints     uint8
	DescriptionIndex uint8
}

func (svcid *StandardVideoControlInterfaceDescriptor) MarshalBinary() ([]byte, error) {
	return []byte{
		InterfaceDescriptorLength,
		byte(DescriptorTypeInterface),
		svcid.InterfaceNumber,
		svcid.AlternateSetting,
		svcid.NumEndpoints,
		byte(ClassCodeVideo),
		byte(SubclassCodeVideoControl),
		byte(ProtocolCode15),
		svcid.DescriptionIndex,
	}, nil
}

func (svcid *StandardVideoControlInterfaceDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, InterfaceDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	svcid.InterfaceNumber = buf[2]
	svcid.AlternateSetting = buf[3]
	svcid.NumEndpoints = buf[4]
	if ClassCode(buf[5]) != ClassCodeVideo {
		return ErrInvalidDescriptor
	}
	if SubclassCode(buf[6]) != SubclassCodeVideoControl {
		return ErrInvalidDescriptor
	}
	if ProtocolCode(buf[7]) != ProtocolCode15 {
		return ErrInvalidDescriptor
	}
	svcid.DescriptionIndex = buf[8]
	return nil
}

func (svcid *StandardVideoControlInterfaceDescriptor) isControlInterface() {}

// HeaderDescriptor as defined in UVC spec 1.5, 3.7.2.1
type HeaderDescriptor struct {
	UVC                            BinaryCodedDecimal
	TotalLength                    uint16
	ClockFrequency                 uint32
	VideoStreamingInterfaceIndexes []uint8
}

func (hd *HeaderDescriptor) Length() int {
	return HeaderDescriptorBaseLength + len(hd.VideoStreamingInterfaceIndexes)
}

func (hd *HeaderDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, hd.Length())
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoControlInterfaceDescriptorSubtypeHeader)
	binary.LittleEndian.PutUint16(buf[3:5], uint16(hd.UVC))
	binary.LittleEndian.PutUint16(buf[5:7], hd.TotalLength)
	binary.LittleEndian.PutUint32(buf[7:11], hd.ClockFrequency)
	buf[11] = uint8(len(hd.VideoStreamingInterfaceIndexes))
	copy(buf[12:], hd.VideoStreamingInterfaceIndexes)
	return buf, nil
}

func (hd *HeaderDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, HeaderDescriptorBaseLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoControlInterfaceDescriptorSubtype(buf[2]) != VideoControlInterfaceDescriptorSubtypeHeader {
		return ErrInvalidDescriptor
	}
	hd.UVC = BinaryCodedDecimal(binary.LittleEndian.Uint16(buf[3:5]))
	hd.TotalLength = binary.LittleEndian.Uint16(buf[5:7])
	hd.ClockFrequency = binary.LittleEndian.Uint32(buf[7:11])
	n := int(buf[11])
	if int(buf[0]) < HeaderDescriptorBaseLength+n {
		return io.ErrShortBuffer
	}
	hd.VideoStreamingInterfaceIndexes = make([]uint8, n)
	copy(hd.VideoStreamingInterfaceIndexes, buf[12:12+n])
	return nil
}

func (hd *HeaderDescriptor) isControlInterface() {}

// OutputTerminalDescriptor as defined in UVC spec 1.5, 3.7.2.2
type OutputTerminalDescriptor struct {
	TerminalID           uint8
	TerminalType         TerminalType
	AssociatedTerminalID uint8
	SourceID             uint8
	DescriptionIndex     uint8
}

func (otd *OutputTerminalDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, OutputTerminalLength)
	buf[0] = OutputTerminalLength
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoControlInterfaceDescriptorSubtypeOutputTerminal)
	buf[3] = otd.TerminalID
	binary.LittleEndian.PutUint16(buf[4:6], uint16(otd.TerminalType))
	buf[6] = otd.AssociatedTerminalID
	buf[7] = otd.SourceID
	buf[8] = otd.DescriptionIndex
	return buf, nil
}

func (otd *OutputTerminalDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, OutputTerminalLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoControlInterfaceDescriptorSubtype(buf[2]) != VideoControlInterfaceDescriptorSubtypeOutputTerminal {
		return ErrInvalidDescriptor
	}
	otd.TerminalID = buf[3]
	otd.TerminalType = TerminalType(binary.LittleEndian.Uint16(buf[4:6]))
	otd.AssociatedTerminalID = buf[6]
	otd.SourceID = buf[7]
	otd.DescriptionIndex = buf[8]
	return nil
}

func (otd *OutputTerminalDescriptor) isControlInterface() {}

// CameraTerminalDescriptor as defined in UVC spec 1.5, 3.7.2.3
type CameraTerminalDescriptor struct {
	TerminalID              uint8
	AssociatedTerminalID    uint8
	DescriptionIndex        uint8
	ObjectiveFocalLengthMin uint16
	ObjectiveFocalLengthMax uint16
	OcularFocalLength       uint16
	ControlSize             uint8
	ControlsBitmask         uint32
}

func (ctd *CameraTerminalDescriptor) MarshalBinary() ([]byte, error) {
	if ctd.ControlSize > maxControlBitmapSize {
		return nil, ErrInvalidDescriptor
	}
	n := int(ctd.ControlSize)
	buf := make([]byte, CameraTerminalBaseLength+n)
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoControlInterfaceDescriptorSubtypeInputTerminal)
	buf[3] = ctd.TerminalID
	binary.LittleEndian.PutUint16(buf[4:6], uint16(InputTerminalTypeCamera))
	buf[6] = ctd.AssociatedTerminalID
	buf[7] = ctd.DescriptionIndex
	binary.LittleEndian.PutUint16(buf[8:10], ctd.ObjectiveFocalLengthMin)
	binary.LittleEndian.PutUint16(buf[10:12], ctd.ObjectiveFocalLengthMax)
	binary.LittleEndian.PutUint16(buf[12:14], ctd.OcularFocalLength)
	buf[14] = ctd.ControlSize
	putBitmap(buf[15:15+n], ctd.ControlsBitmask)
	return buf, nil
}

func (ctd *CameraTerminalDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, CameraTerminalBaseLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoControlInterfaceDescriptorSubtype(buf[2]) != VideoControlInterfaceDescriptorSubtypeInputTerminal {
		return ErrInvalidDescriptor
	}
	if InputTerminalType(binary.LittleEndian.Uint16(buf[4:6])) != InputTerminalTypeCamera {
		return ErrInvalidDescriptor
	}
	ctd.TerminalID = buf[3]
	ctd.AssociatedTerminalID = buf[6]
	ctd.DescriptionIndex = buf[7]
	ctd.ObjectiveFocalLengthMin = binary.LittleEndian.Uint16(buf[8:10])
	ctd.ObjectiveFocalLengthMax = binary.LittleEndian.Uint16(buf[10:12])
	ctd.OcularFocalLength = binary.LittleEndian.Uint16(buf[12:14])
	n := int(buf[14])
	if n > maxControlBitmapSize {
		return ErrInvalidDescriptor
	}
	if int(buf[0]) < CameraTerminalBaseLength+n {
		return io.ErrShortBuffer
	}
	ctd.ControlSize = uint8(n)
	ctd.ControlsBitmask = getBitmap(buf[15 : 15+n])
	return nil
}

func (ctd *CameraTerminalDescriptor) isControlInterface() {}

// ProcessingUnitDescriptor as defined in UVC spec 1.5, 3.7.2.5
type ProcessingUnitDescriptor struct {
	UnitID                uint8
	SourceID              uint8
	MaxMultiplier         uint16
	ControlsBitmask       []byte
	DescriptionIndex      uint8
	VideoStandardsBitmask uint8
}

func (pud *ProcessingUnitDescriptor) MarshalBinary() ([]byte, error) {
	n := len(pud.ControlsBitmask)
	buf := make([]byte, ProcessingUnitBaseLength+n)
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoControlInterfaceDescriptorSubtypeProcessingUnit)
	buf[3] = pud.UnitID
	buf[4] = pud.SourceID
	binary.LittleEndian.PutUint16(buf[5:7], pud.MaxMultiplier)
	buf[7] = byte(n)
	copy(buf[8:8+n], pud.ControlsBitmask)
	buf[8+n] = pud.DescriptionIndex
	buf[9+n] = pud.VideoStandardsBitmask
	return buf, nil
}

func (pud *ProcessingUnitDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, ProcessingUnitBaseLength-1) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoControlInterfaceDescriptorSubtype(buf[2]) != VideoControlInterfaceDescriptorSubtypeProcessingUnit {
		return ErrInvalidDescriptor
	}
	pud.UnitID = buf[3]
	pud.SourceID = buf[4]
	pud.MaxMultiplier = binary.LittleEndian.Uint16(buf[5:7])
	n := int(buf[7])
	if int(buf[0]) < 9+n {
		return io.ErrShortBuffer
	}
	pud.ControlsBitmask = make([]byte, n)
	copy(pud.ControlsBitmask, buf[8:8+n])
	pud.DescriptionIndex = buf[8+n]
	if int(buf[0]) > 9+n {
		// bmVideoStandards was added in UVC 1.1
		pud.VideoStandardsBitmask = buf[9+n]
	}
	return nil
}

func (pud *ProcessingUnitDescriptor) isControlInterface() {}

// EncodingUnitDescriptor as defined in UVC spec 1.5, 3.7.2.6
type EncodingUnitDescriptor struct {
	UnitID                 uint8
	SourceID               uint8
	DescriptionIndex       uint8
	ControlsBitmask        uint32
	ControlsRuntimeBitmask uint32
}

func (eud *EncodingUnitDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EncodingUnitLength)
	buf[0] = EncodingUnitLength
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoControlInterfaceDescriptorSubtypeEncodingUnit)
	buf[3] = eud.UnitID
	buf[4] = eud.SourceID
	buf[5] = eud.DescriptionIndex
	buf[6] = encodingUnitControlSize
	putBitmap(buf[7:10], eud.ControlsBitmask)
	putBitmap(buf[10:13], eud.ControlsRuntimeBitmask)
	return buf, nil
}

func (eud *EncodingUnitDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, EncodingUnitLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoControlInterfaceDescriptorSubtype(buf[2]) != VideoControlInterfaceDescriptorSubtypeEncodingUnit {
		return ErrInvalidDescriptor
	}
	if buf[6] != encodingUnitControlSize {
		return ErrInvalidDescriptor
	}
	eud.UnitID = buf[3]
	eud.SourceID = buf[4]
	eud.DescriptionIndex = buf[5]
	// both bitmaps are 3 bytes wide.
	eud.ControlsBitmask = getBitmap(buf[7:10])
	eud.ControlsRuntimeBitmask = getBitmap(buf[10:13])
	return nil
}

func (eud *EncodingUnitDescriptor) isControlInterface() {}

// ExtensionUnitDescriptor as defined in UVC spec 1.5, 3.7.2.7
type ExtensionUnitDescriptor struct {
	UnitID            uint8
	GUIDExtensionCode uuid.UUID
	NumControls       uint8
	SourceIDs         []uint8
	ControlsBitmask   []byte
	DescriptionIndex  uint8
}

func (eud *ExtensionUnitDescriptor) MarshalBinary() ([]byte, error) {
	p, n := len(eud.SourceIDs), len(eud.ControlsBitmask)
	buf := make([]byte, ExtensionUnitBaseLength+p+n)
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoControlInterfaceDescriptorSubtypeExtensionUnit)
	buf[3] = eud.UnitID
	PutGUID(buf[4:20], eud.GUIDExtensionCode)
	buf[20] = eud.NumControls
	buf[21] = byte(p)
	copy(buf[22:22+p], eud.SourceIDs)
	buf[22+p] = byte(n)
	copy(buf[23+p:23+p+n], eud.ControlsBitmask)
	buf[23+p+n] = eud.DescriptionIndex
	return buf, nil
}

func (eud *ExtensionUnitDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, ExtensionUnitBaseLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoControlInterfaceDescriptorSubtype(buf[2]) != VideoControlInterfaceDescriptorSubtypeExtensionUnit {
		return ErrInvalidDescriptor
	}
	eud.UnitID = buf[3]
	eud.GUIDExtensionCode = ReadGUID(buf[4:20])
	eud.NumControls = buf[20]
	p := int(buf[21])
	if int(buf[0]) < ExtensionUnitBaseLength+p {
		return io.ErrShortBuffer
	}
	eud.SourceIDs = make([]uint8, p)
	copy(eud.SourceIDs, buf[22:22+p])
	n := int(buf[22+p])
	if int(buf[0]) < ExtensionUnitBaseLength+p+n {
		return io.ErrShortBuffer
	}
	eud.ControlsBitmask = make([]byte, n)
	copy(eud.ControlsBitmask, buf[23+p:23+p+n])
	eud.DescriptionIndex = buf[23+p+n]
	return nil
}

func (eud *ExtensionUnitDescriptor) isControlInterface() {}
