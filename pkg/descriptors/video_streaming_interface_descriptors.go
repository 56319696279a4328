// This file implements the descriptors as defined in the UVC spec 1.5, section 3.9.
package descriptors

import (
	"encoding/binary"
	"io"
)

type VideoStreamingInterfaceDescriptorSubtype byte

const (
	VideoStreamingInterfaceDescriptorSubtypeUndefined           VideoStreamingInterfaceDescriptorSubtype = 0x00
	VideoStreamingInterfaceDescriptorSubtypeInputHeader         VideoStreamingInterfaceDescriptorSubtype = 0x01
	VideoStreamingInterfaceDescriptorSubtypeOutputHeader        VideoStreamingInterfaceDescriptorSubtype = 0x02
	VideoStreamingInterfaceDescriptorSubtypeStillImageFrame     VideoStreamingInterfaceDescriptorSubtype = 0x03
	VideoStreamingInterfaceDescriptorSubtypeFormatUncompressed  VideoStreamingInterfaceDescriptorSubtype = 0x04
	VideoStreamingInterfaceDescriptorSubtypeFrameUncompressed   VideoStreamingInterfaceDescriptorSubtype = 0x05
	VideoStreamingInterfaceDescriptorSubtypeFormatMJPEG         VideoStreamingInterfaceDescriptorSubtype = 0x06
	VideoStreamingInterfaceDescriptorSubtypeFrameMJPEG          VideoStreamingInterfaceDescriptorSubtype = 0x07
	VideoStreamingInterfaceDescriptorSubtypeFormatMPEG2TS       VideoStreamingInterfaceDescriptorSubtype = 0x0A
	VideoStreamingInterfaceDescriptorSubtypeFormatDV            VideoStreamingInterfaceDescriptorSubtype = 0x0C
	VideoStreamingInterfaceDescriptorSubtypeColorFormat         VideoStreamingInterfaceDescriptorSubtype = 0x0D
	VideoStreamingInterfaceDescriptorSubtypeFormatFrameBased    VideoStreamingInterfaceDescriptorSubtype = 0x10
	VideoStreamingInterfaceDescriptorSubtypeFrameFrameBased     VideoStreamingInterfaceDescriptorSubtype = 0x11
	VideoStreamingInterfaceDescriptorSubtypeFormatStreamBased   VideoStreamingInterfaceDescriptorSubtype = 0x12
	VideoStreamingInterfaceDescriptorSubtypeFormatH264          VideoStreamingInterfaceDescriptorSubtype = 0x13
	VideoStreamingInterfaceDescriptorSubtypeFrameH264           VideoStreamingInterfaceDescriptorSubtype = 0x14
	VideoStreamingInterfaceDescriptorSubtypeFormatH264Simulcast VideoStreamingInterfaceDescriptorSubtype = 0x15
	VideoStreamingInterfaceDescriptorSubtypeFormatVP8           VideoStreamingInterfaceDescriptorSubtype = 0x16
	VideoStreamingInterfaceDescriptorSubtypeFrameVP8            VideoStreamingInterfaceDescriptorSubtype = 0x17
	VideoStreamingInterfaceDescriptorSubtypeFormatVP8Simulcast  VideoStreamingInterfaceDescriptorSubtype = 0x18
)

const InputHeaderDescriptorBaseLength = 13

// StandardVideoStreamingInterfaceDescriptor as defined in UVC spec 1.5, 3.9.1
type StandardVideoStreamingInterfaceDescriptor struct {
	InterfaceNumber  uint8
	AlternateSetting uint8
	NumEndpoints     uint8
	DescriptionIndex uint8
}

func (svsid *StandardVideoStreamingInterfaceDescriptor) MarshalBinary() ([]byte, error) {
	return []byte{
		InterfaceDescriptorLength,
		byte(DescriptorTypeInterface),
		svsid.InterfaceNumber,
		svsid.AlternateSetting,
		svsid.NumEndpoints,
		byte(ClassCodeVideo),
		byte(SubclassCodeVideoStreaming),
		byte(ProtocolCode15),
		svsid.DescriptionIndex,
	}, nil
}

func (svsid *StandardVideoStreamingInterfaceDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, InterfaceDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	svsid.InterfaceNumber = buf[2]
	svsid.AlternateSetting = buf[3]
	svsid.NumEndpoints = buf[4]
	if ClassCode(buf[5]) != ClassCodeVideo {
		return ErrInvalidDescriptor
	}
	if SubclassCode(buf[6]) != SubclassCodeVideoStreaming {
		return ErrInvalidDescriptor
	}
	if ProtocolCode(buf[7]) != ProtocolCode15 {
		return ErrInvalidDescriptor
	}
	svsid.DescriptionIndex = buf[8]
	return nil
}

// InputHeaderDescriptor as defined in UVC spec 1.5, 3.9.2.1
type InputHeaderDescriptor struct {
	TotalLength        uint16
	EndpointAddress    uint8
	InfoBitmask        uint8
	TerminalLink       uint8
	StillCaptureMethod uint8
	TriggerSupport     uint8
	TriggerUsage       uint8
	// one bmaControls entry per format, all the same width
	ControlBitmasks [][]byte
}

func (ihd *InputHeaderDescriptor) controlSize() int {
	if len(ihd.ControlBitmasks) == 0 {
		return 0
	}
	return len(ihd.ControlBitmasks[0])
}

func (ihd *InputHeaderDescriptor) Length() int {
	return InputHeaderDescriptorBaseLength + len(ihd.ControlBitmasks)*ihd.controlSize()
}

func (ihd *InputHeaderDescriptor) MarshalBinary() ([]byte, error) {
	p, n := len(ihd.ControlBitmasks), ihd.controlSize()
	buf := make([]byte, ihd.Length())
	buf[0] = byte(len(buf))
	buf[1] = byte(ClassSpecificDescriptorTypeInterface)
	buf[2] = byte(VideoStreamingInterfaceDescriptorSubtypeInputHeader)
	buf[3] = byte(p)
	binary.LittleEndian.PutUint16(buf[4:6], ihd.TotalLength)
	buf[6] = ihd.EndpointAddress
	buf[7] = ihd.InfoBitmask
	buf[8] = ihd.TerminalLink
	buf[9] = ihd.StillCaptureMethod
	buf[10] = ihd.TriggerSupport
	buf[11] = ihd.TriggerUsage
	buf[12] = byte(n)
	for i, bm := range ihd.ControlBitmasks {
		if len(bm) != n {
			return nil, ErrInvalidDescriptor
		}
		copy(buf[13+i*n:13+(i+1)*n], bm)
	}
	return buf, nil
}

func (ihd *InputHeaderDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, InputHeaderDescriptorBaseLength) {
		return io.ErrShortBuffer
	}
	if ClassSpecificDescriptorType(buf[1]) != ClassSpecificDescriptorTypeInterface {
		return ErrInvalidDescriptor
	}
	if VideoStreamingInterfaceDescriptorSubtype(buf[2]) != VideoStreamingInterfaceDescriptorSubtypeInputHeader {
		return ErrInvalidDescriptor
	}
	p := int(buf[3])
	ihd.TotalLength = binary.LittleEndian.Uint16(buf[4:6])
	ihd.EndpointAddress = buf[6]
	ihd.InfoBitmask = buf[7]
	ihd.TerminalLink = buf[8]
	ihd.StillCaptureMethod = buf[9]
	ihd.TriggerSupport = buf[10]
	ihd.TriggerUsage = buf[11]
	n := int(buf[12])
	if int(buf[0]) < InputHeaderDescriptorBaseLength+p*n {
		return io.ErrShortBuffer
	}
	ihd.ControlBitmasks = make([][]byte, p)
	for i := 0; i < p; i++ {
		ihd.ControlBitmasks[i] = make([]byte, n)
		copy(ihd.ControlBitmasks[i], buf[13+i*n:13+(i+1)*n])
	}
	return nil
}
