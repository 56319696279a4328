package descriptors

import (
	"encoding/binary"
	"io"
	"time"
)

// Lengths of the layered Probe/Commit record. Each UVC revision appended
// fields to the previous layout; this device appends its encoder fields last.
const (
	VideoProbeCommitLength10 = 26
	VideoProbeCommitLength11 = 34
	VideoProbeCommitLength15 = 48
	VideoProbeCommitLength   = 56
)

// VideoProbeCommitControl as defined in UVC spec 1.5, 4.3.1.1, extended with
// the bitrate and resolution the encoder runs at.
type VideoProbeCommitControl struct {
	HintBitmask            uint16
	FormatIndex            uint8
	FrameIndex             uint8
	FrameInterval          time.Duration
	KeyFrameRate           uint16
	PFrameRate             uint16
	CompQuality            uint16
	CompWindowSize         uint16
	Delay                  uint16
	MaxVideoFrameSize      uint32
	MaxPayloadTransferSize uint32

	// added in uvc 1.1
	ClockFrequency     uint32
	FramingInfoBitmask uint8
	PreferedVersion    uint8
	MinVersion         uint8
	MaxVersion         uint8

	// added in uvc 1.5
	Usage                     uint8
	BitDepthLuma              uint8
	SettingsBitmask           uint8
	MaxNumberOfRefFramesPlus1 uint8
	RateControlModes          uint16
	LayoutPerStream           [4]uint16

	// device extension
	BitRate uint32
	Width   uint16
	Height  uint16
}

// ValidProbeCommitLength reports whether n is one of the record sizes a host may transfer.
func ValidProbeCommitLength(n int) bool {
	switch n {
	case VideoProbeCommitLength10, VideoProbeCommitLength11, VideoProbeCommitLength15, VideoProbeCommitLength:
		return true
	}
	return false
}

// MarshalInto writes as many layers of the record as fit in buf.
func (vpcc *VideoProbeCommitControl) MarshalInto(buf []byte) error {
	if len(buf) < VideoProbeCommitLength10 {
		return io.ErrShortBuffer
	}
	binary.LittleEndian.PutUint16(buf[0:2], vpcc.HintBitmask)
	buf[2] = vpcc.FormatIndex
	buf[3] = vpcc.FrameIndex
	binary.LittleEndian.PutUint32(buf[4:8], intervalToWire(vpcc.FrameInterval))
	binary.LittleEndian.PutUint16(buf[8:10], vpcc.KeyFrameRate)
	binary.LittleEndian.PutUint16(buf[10:12], vpcc.PFrameRate)
	binary.LittleEndian.PutUint16(buf[12:14], vpcc.CompQuality)
	binary.LittleEndian.PutUint16(buf[14:16], vpcc.CompWindowSize)
	binary.LittleEndian.PutUint16(buf[16:18], vpcc.Delay)
	binary.LittleEndian.PutUint32(buf[18:22], vpcc.MaxVideoFrameSize)
	binary.LittleEndian.PutUint32(buf[22:26], vpcc.MaxPayloadTransferSize)
	if len(buf) >= VideoProbeCommitLength11 {
		binary.LittleEndian.PutUint32(buf[26:30], vpcc.ClockFrequency)
		buf[30] = vpcc.FramingInfoBitmask
		buf[31] = vpcc.PreferedVersion
		buf[32] = vpcc.MinVersion
		buf[33] = vpcc.MaxVersion
	}

	if len(buf) >= VideoProbeCommitLength15 {
		buf[34] = vpcc.Usage
		buf[35] = vpcc.BitDepthLuma
		buf[36] = vpcc.SettingsBitmask
		buf[37] = vpcc.MaxNumberOfRefFramesPlus1
		binary.LittleEndian.PutUint16(buf[38:40], vpcc.RateControlModes)
		for i, layout := range vpcc.LayoutPerStream {
			binary.LittleEndian.PutUint16(buf[40+2*i:42+2*i], layout)
		}
	}

	if len(buf) >= VideoProbeCommitLength {
		binary.LittleEndian.PutUint32(buf[48:52], vpcc.BitRate)
		binary.LittleEndian.PutUint16(buf[52:54], vpcc.Width)
		binary.LittleEndian.PutUint16(buf[54:56], vpcc.Height)
	}
	return nil
}

func (vpcc *VideoProbeCommitControl) MarshalBinary() ([]byte, error) {
	buf := make([]byte, VideoProbeCommitLength)
	return buf, vpcc.MarshalInto(buf)
}

// UnmarshalBinary decodes the layers present in buf and leaves the fields of
// absent layers untouched, so a short record can be merged over a full one.
func (vpcc *VideoProbeCommitControl) UnmarshalBinary(buf []byte) error {
	// this record is not length and control-selector prefixed, it is the
	// whole data stage of the control transfer.
	if len(buf) < VideoProbeCommitLength10 {
		return io.ErrShortBuffer
	}
	vpcc.HintBitmask = binary.LittleEndian.Uint16(buf[0:2])
	vpcc.FormatIndex = buf[2]
	vpcc.FrameIndex = buf[3]
	vpcc.FrameInterval = intervalFromWire(binary.LittleEndian.Uint32(buf[4:8]))

	vpcc.KeyFrameRate = binary.LittleEndian.Uint16(buf[8:10])
	vpcc.PFrameRate = binary.LittleEndian.Uint16(buf[10:12])

	vpcc.CompQuality = binary.LittleEndian.Uint16(buf[12:14])
	vpcc.CompWindowSize = binary.LittleEndian.Uint16(buf[14:16])

	vpcc.Delay = binary.LittleEndian.Uint16(buf[16:18])

	vpcc.MaxVideoFrameSize = binary.LittleEndian.Uint32(buf[18:22])
	vpcc.MaxPayloadTransferSize = binary.LittleEndian.Uint32(buf[22:26])

	if len(buf) >= VideoProbeCommitLength11 {
		vpcc.ClockFrequency = binary.LittleEndian.Uint32(buf[26:30])
		vpcc.FramingInfoBitmask = buf[30]
		vpcc.PreferedVersion = buf[31]
		vpcc.MinVersion = buf[32]
		vpcc.MaxVersion = buf[33]
	}

	if len(buf) >= VideoProbeCommitLength15 {
		vpcc.Usage = buf[34]
		vpcc.BitDepthLuma = buf[35]
		vpcc.SettingsBitmask = buf[36]
		vpcc.MaxNumberOfRefFramesPlus1 = buf[37]
		vpcc.RateControlModes = binary.LittleEndian.Uint16(buf[38:40])
		for i := range vpcc.LayoutPerStream {
			vpcc.LayoutPerStream[i] = binary.LittleEndian.Uint16(buf[40+2*i : 42+2*i])
		}
	}

	if len(buf) >= VideoProbeCommitLength {
		vpcc.BitRate = binary.LittleEndian.Uint32(buf[48:52])
		vpcc.Width = binary.LittleEndian.Uint16(buf[52:54])
		vpcc.Height = binary.LittleEndian.Uint16(buf[54:56])
	}
	return nil
}
