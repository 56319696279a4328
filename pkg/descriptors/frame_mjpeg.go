package descriptors

import (
	"encoding/binary"
	"io"
	"time"
)

const (
	MJPEGFormatDescriptorLength    = 11
	MJPEGFrameDescriptorBaseLength = 26
)

// MJPEGFormatDescriptor as defined in the UVC 1.5 MJPEG payload spec, 3.1.1
type MJPEGFormatDescriptor struct {
	FormatIndex                uint8
	NumFrameDescriptors        uint8
	Flags                      uint8
	DefaultFrameIndex          uint8
	AspectRatioX, AspectRatioY uint8
	InterlaceFlags             uint8
	CopyProtect                uint8
}

func (mfd *MJPEGFormatDescriptor) Index() uint8 {
	return mfd.FormatIndex
}

func (mfd *MJPEGFormatDescriptor) MarshalBinary() ([]byte, error) {
	return []byte{
		MJPEGFormatDescriptorLength,
		byte(ClassSpecificDescriptorTypeInterface),
		byte(VideoStreamingInterfaceDescriptorSubtypeFormatMJPEG),
		mfd.FormatIndex,
		mfd.NumFrameDescriptors,
		mfd.Flags,
		mfd.DefaultFrameIndex,
		mfd.AspectRatioX,
		mfd.AspectRatioY,
		mfd.InterlaceFlags,
		mfd.CopyProtect,
	}, nil
}

func (mfd *MJPEGFormatDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, MJPEGFormatDescriptorLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoStreamingInterfaceDescriptorSubtype(buf[2]) != VideoStreamingInterfaceDescriptorSubtypeFormatMJPEG {
		return ErrInvalidDescriptor
	}
	mfd.FormatIndex = buf[3]
	mfd.NumFrameDescriptors = buf[4]
	mfd.Flags = buf[5]
	mfd.DefaultFrameIndex = buf[6]
	mfd.AspectRatioX = buf[7]
	mfd.AspectRatioY = buf[8]
	mfd.InterlaceFlags = buf[9]
	mfd.CopyProtect = buf[10]
	return nil
}

func (mfd *MJPEGFormatDescriptor) isStreamingInterface() {}

func (mfd *MJPEGFormatDescriptor) isFormatDescriptor() {}

// MJPEGFrameDescriptor as defined in the UVC 1.5 MJPEG payload spec, 3.1.2
type MJPEGFrameDescriptor struct {
	FrameIndex              uint8
	Capabilities            uint8
	Width, Height           uint16
	MinBitRate, MaxBitRate  uint32
	MaxVideoFrameBufferSize uint32
	DefaultFrameInterval    time.Duration

	ContinuousFrameInterval FrameIntervalRange
	DiscreteFrameIntervals  []time.Duration
}

func (mfd *MJPEGFrameDescriptor) Index() uint8 {
	return mfd.FrameIndex
}

func (mfd *MJPEGFrameDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MJPEGFrameDescriptorBaseLength+intervalTableLength(mfd.DiscreteFrameIntervals))
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoStreamingInterfaceDescriptorSubtypeFrameMJPEG)
	buf[3] = mfd.FrameIndex
	buf[4] = mfd.Capabilities
	binary.LittleEndian.PutUint16(buf[5:7], mfd.Width)
	binary.LittleEndian.PutUint16(buf[7:9], mfd.Height)
	binary.LittleEndian.PutUint32(buf[9:13], mfd.MinBitRate)
	binary.LittleEndian.PutUint32(buf[13:17], mfd.MaxBitRate)
	binary.LittleEndian.PutUint32(buf[17:21], mfd.MaxVideoFrameBufferSize)
	binary.LittleEndian.PutUint32(buf[21:25], intervalToWire(mfd.DefaultFrameInterval))
	buf[25] = byte(len(mfd.DiscreteFrameIntervals))
	putIntervalTable(buf[26:], mfd.ContinuousFrameInterval, mfd.DiscreteFrameIntervals)
	return buf, nil
}

func (mfd *MJPEGFrameDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, MJPEGFrameDescriptorBaseLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoStreamingInterfaceDescriptorSubtype(buf[2]) != VideoStreamingInterfaceDescriptorSubtypeFrameMJPEG {
		return ErrInvalidDescriptor
	}
	mfd.FrameIndex = buf[3]
	mfd.Capabilities = buf[4]
	mfd.Width = binary.LittleEndian.Uint16(buf[5:7])
	mfd.Height = binary.LittleEndian.Uint16(buf[7:9])
	mfd.MinBitRate = binary.LittleEndian.Uint32(buf[9:13])
	mfd.MaxBitRate = binary.LittleEndian.Uint32(buf[13:17])
	mfd.MaxVideoFrameBufferSize = binary.LittleEndian.Uint32(buf[17:21])
	mfd.DefaultFrameInterval = intervalFromWire(binary.LittleEndian.Uint32(buf[21:25]))

	var err error
	mfd.ContinuousFrameInterval, mfd.DiscreteFrameIntervals, err = readIntervalTable(buf[26:buf[0]], int(buf[25]))
	return err
}

func (mfd *MJPEGFrameDescriptor) isStreamingInterface() {}

func (mfd *MJPEGFrameDescriptor) isFrameDescriptor() {}
