package descriptors

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/google/uuid"
)

const (
	FrameBasedFormatDescriptorLength    = 28
	FrameBasedFrameDescriptorBaseLength = 26
)

// FrameBasedFormatDescriptor as defined in the UVC 1.5 frame based payload
// spec, 3.1.1. The layout is shared by the codec families this device
// streams, so the subtype is carried rather than fixed.
type FrameBasedFormatDescriptor struct {
	Subtype             VideoStreamingInterfaceDescriptorSubtype
	FormatIndex         uint8
	NumFrameDescriptors uint8
	GUIDFormat          uuid.UUID
	BitsPerPixel        uint8
	DefaultFrameIndex   uint8
	AspectRatioX        uint8
	AspectRatioY        uint8
	InterlaceFlags      uint8
	CopyProtect         uint8
	VariableSize        bool
}

func (fbfd *FrameBasedFormatDescriptor) Index() uint8 {
	return fbfd.FormatIndex
}

func (fbfd *FrameBasedFormatDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameBasedFormatDescriptorLength)
	buf[0] = FrameBasedFormatDescriptorLength
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(fbfd.Subtype)
	buf[3] = fbfd.FormatIndex
	buf[4] = fbfd.NumFrameDescriptors
	PutGUID(buf[5:21], fbfd.GUIDFormat)
	buf[21] = fbfd.BitsPerPixel
	buf[22] = fbfd.DefaultFrameIndex
	buf[23] = fbfd.AspectRatioX
	buf[24] = fbfd.AspectRatioY
	buf[25] = fbfd.InterlaceFlags
	buf[26] = fbfd.CopyProtect
	if fbfd.VariableSize {
		buf[27] = 1
	}
	return buf, nil
}

// UnmarshalBinary accepts any subtype; callers pick this parser through the
// format family table.
func (fbfd *FrameBasedFormatDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, FrameBasedFormatDescriptorLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	fbfd.Subtype = VideoStreamingInterfaceDescriptorSubtype(buf[2])
	fbfd.FormatIndex = buf[3]
	fbfd.NumFrameDescriptors = buf[4]
	fbfd.GUIDFormat = ReadGUID(buf[5:21])
	fbfd.BitsPerPixel = buf[21]
	fbfd.DefaultFrameIndex = buf[22]
	fbfd.AspectRatioX = buf[23]
	fbfd.AspectRatioY = buf[24]
	fbfd.InterlaceFlags = buf[25]
	fbfd.CopyProtect = buf[26]
	fbfd.VariableSize = buf[27] != 0
	return nil
}

func (fbfd *FrameBasedFormatDescriptor) isStreamingInterface() {}

func (fbfd *FrameBasedFormatDescriptor) isFormatDescriptor() {}

// FrameBasedFrameDescriptor as defined in the UVC 1.5 frame based payload spec, 3.1.2
type FrameBasedFrameDescriptor struct {
	Subtype                VideoStreamingInterfaceDescriptorSubtype
	FrameIndex             uint8
	Capabilities           uint8
	Width, Height          uint16
	MinBitRate, MaxBitRate uint32
	DefaultFrameInterval   time.Duration

	BytesPerLine uint32

	ContinuousFrameInterval FrameIntervalRange
	DiscreteFrameIntervals  []time.Duration
}

func (fbfd *FrameBasedFrameDescriptor) Index() uint8 {
	return fbfd.FrameIndex
}

func (fbfd *FrameBasedFrameDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameBasedFrameDescriptorBaseLength+intervalTableLength(fbfd.DiscreteFrameIntervals))
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(fbfd.Subtype)
	buf[3] = fbfd.FrameIndex
	buf[4] = fbfd.Capabilities
	binary.LittleEndian.PutUint16(buf[5:7], fbfd.Width)
	binary.LittleEndian.PutUint16(buf[7:9], fbfd.Height)
	binary.LittleEndian.PutUint32(buf[9:13], fbfd.MinBitRate)
	binary.LittleEndian.PutUint32(buf[13:17], fbfd.MaxBitRate)
	binary.LittleEndian.PutUint32(buf[17:21], intervalToWire(fbfd.DefaultFrameInterval))
	buf[21] = byte(len(fbfd.DiscreteFrameIntervals))
	binary.LittleEndian.PutUint32(buf[22:26], fbfd.BytesPerLine)
	putIntervalTable(buf[26:], fbfd.ContinuousFrameInterval, fbfd.DiscreteFrameIntervals)
	return buf, nil
}

func (fbfd *FrameBasedFrameDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, FrameBasedFrameDescriptorBaseLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	fbfd.Subtype = VideoStreamingInterfaceDescriptorSubtype(buf[2])
	fbfd.FrameIndex = buf[3]
	fbfd.Capabilities = buf[4]
	fbfd.Width = binary.LittleEndian.Uint16(buf[5:7])
	fbfd.Height = binary.LittleEndian.Uint16(buf[7:9])
	fbfd.MinBitRate = binary.LittleEndian.Uint32(buf[9:13])
	fbfd.MaxBitRate = binary.LittleEndian.Uint32(buf[13:17])
	fbfd.DefaultFrameInterval = intervalFromWire(binary.LittleEndian.Uint32(buf[17:21]))

	n := int(buf[21])

	fbfd.BytesPerLine = binary.LittleEndian.Uint32(buf[22:26])

	var err error
	fbfd.ContinuousFrameInterval, fbfd.DiscreteFrameIntervals, err = readIntervalTable(buf[26:buf[0]], n)
	return err
}

func (fbfd *FrameBasedFrameDescriptor) isStreamingInterface() {}

func (fbfd *FrameBasedFrameDescriptor) isFrameDescriptor() {}
