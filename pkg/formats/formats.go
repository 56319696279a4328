// Package formats holds the video formats and frames the camera advertises.
package formats

import (
	"fmt"
	"slices"
	"time"

	"github.com/efficientgo/core/errors"
	"github.com/google/uuid"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
)

type Family int

const (
	FamilyMJPEG Family = iota + 1
	FamilyH264
	FamilyH264Simulcast
	FamilyH265
)

func (f Family) String() string {
	switch f {
	case FamilyMJPEG:
		return "MJPEG"
	case FamilyH264:
		return "H264"
	case FamilyH264Simulcast:
		return "H264_SIMULCAST"
	case FamilyH265:
		return "H265"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// Subtypes are the descriptor subtypes a family is emitted with.
type Subtypes struct {
	Format descriptors.VideoStreamingInterfaceDescriptorSubtype
	Frame  descriptors.VideoStreamingInterfaceDescriptorSubtype
	// FrameBased families use the frame based layouts with a GUID and
	// dwBytesPerLine. MJPEG has layouts of its own.
	FrameBased bool
}

// Families is looked up, never derived: the frame subtype is not a fixed
// offset from the format subtype (H.264 0x10/0x11, H.265 0x12/0x13).
var Families = map[Family]Subtypes{
	FamilyMJPEG:         {Format: 0x06, Frame: 0x07},
	FamilyH264:          {Format: 0x10, Frame: 0x11, FrameBased: true},
	FamilyH264Simulcast: {Format: 0x11, Frame: 0x11, FrameBased: true},
	FamilyH265:          {Format: 0x12, Frame: 0x13, FrameBased: true},
}

// FamilyOfFormat returns the family whose format subtype is st. The simulcast
// family is skipped because its format subtype is also the H.264 frame subtype.
func FamilyOfFormat(st descriptors.VideoStreamingInterfaceDescriptorSubtype) (Family, bool) {
	for _, f := range []Family{FamilyMJPEG, FamilyH264, FamilyH265} {
		if Families[f].Format == st {
			return f, true
		}
	}
	return 0, false
}

// Frame is one resolution of a format with its discrete frame intervals.
type Frame struct {
	Index           uint8
	Width, Height   uint16
	Intervals       []time.Duration // ascending
	DefaultInterval time.Duration

	MinBitRate, MaxBitRate, DefaultBitRate uint32
}

func (f Frame) MaxFrameSize() uint32 {
	return uint32(f.Width) * uint32(f.Height) * 2
}

func (f Frame) HasInterval(d time.Duration) bool {
	return slices.Contains(f.Intervals, d)
}

// NearestInterval returns the supported interval closest to d, preferring the
// shorter one on a tie.
func (f Frame) NearestInterval(d time.Duration) time.Duration {
	best := f.Intervals[0]
	for _, iv := range f.Intervals[1:] {
		if absDuration(iv-d) < absDuration(best-d) {
			best = iv
		}
	}
	return best
}

func (f Frame) ClampBitRate(b uint32) uint32 {
	return min(max(b, f.MinBitRate), f.MaxBitRate)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

type Format struct {
	Index        uint8
	Family       Family
	GUID         uuid.UUID
	BitsPerPixel uint8
	DefaultFrame uint8
	Frames       []Frame
}

func (f Format) Frame(index uint8) (Frame, bool) {
	if index == 0 || int(index) > len(f.Frames) {
		return Frame{}, false
	}
	return f.Frames[index-1], true
}

// PeakBitRate is the highest bitrate any frame of the format declares.
func (f Format) PeakBitRate() uint32 {
	var peak uint32
	for _, fr := range f.Frames {
		peak = max(peak, fr.MaxBitRate)
	}
	return peak
}

func (f Format) Subtypes() Subtypes {
	return Families[f.Family]
}

// Table lists formats in bFormatIndex order.
type Table []Format

func (t Table) Format(index uint8) (Format, bool) {
	if index == 0 || int(index) > len(t) {
		return Format{}, false
	}
	return t[index-1], true
}

func (t Table) Formats() []Format {
	return t
}

var ErrInvalidTable = errors.New("invalid format table")

// Validate checks the invariants the catalog and negotiator rely on: dense
// 1-based indexes, known families, and defaults that exist.
func (t Table) Validate() error {
	if len(t) == 0 {
		return errors.Wrap(ErrInvalidTable, "no formats")
	}
	for i, f := range t {
		if int(f.Index) != i+1 {
			return errors.Wrapf(ErrInvalidTable, "format %d has index %d", i+1, f.Index)
		}
		if _, ok := Families[f.Family]; !ok {
			return errors.Wrapf(ErrInvalidTable, "format %d has unknown family %d", f.Index, f.Family)
		}
		if _, ok := f.Frame(f.DefaultFrame); !ok {
			return errors.Wrapf(ErrInvalidTable, "format %d default frame %d missing", f.Index, f.DefaultFrame)
		}
		for j, fr := range f.Frames {
			if int(fr.Index) != j+1 {
				return errors.Wrapf(ErrInvalidTable, "format %d frame %d has index %d", f.Index, j+1, fr.Index)
			}
			if len(fr.Intervals) == 0 || !slices.IsSorted(fr.Intervals) || !fr.HasInterval(fr.DefaultInterval) {
				return errors.Wrapf(ErrInvalidTable, "format %d frame %d intervals", f.Index, fr.Index)
			}
			if fr.MinBitRate > fr.DefaultBitRate || fr.DefaultBitRate > fr.MaxBitRate {
				return errors.Wrapf(ErrInvalidTable, "format %d frame %d bitrates", f.Index, fr.Index)
			}
		}
	}
	return nil
}

// Interval converts a frame interval in 100ns units.
func Interval(units uint32) time.Duration {
	return time.Duration(units) * 100 * time.Nanosecond
}

// fps rounds the frame rate of an interval to whole frames per second.
func fps(d time.Duration) uint32 {
	return uint32((time.Second + d/2) / d)
}

// mjpegFrame derives MJPEG bitrates from the resolution at 16 bits per pixel.
func mjpegFrame(index uint8, width, height uint16, def time.Duration, intervals ...time.Duration) Frame {
	rate := func(d time.Duration) uint32 {
		return uint32(width) * uint32(height) * 16 * fps(d)
	}
	return Frame{
		Index:           index,
		Width:           width,
		Height:          height,
		Intervals:       intervals,
		DefaultInterval: def,
		MinBitRate:      rate(intervals[len(intervals)-1]),
		MaxBitRate:      rate(intervals[0]),
		DefaultBitRate:  rate(def),
	}
}

// Default is the camera's format table.
var Default = Table{
	{
		Index:        1,
		Family:       FamilyMJPEG,
		DefaultFrame: 1,
		Frames: []Frame{
			mjpegFrame(1, 1920, 1080, Interval(333333), Interval(333333), Interval(666666)),
			mjpegFrame(2, 1280, 720, Interval(333333), Interval(166666), Interval(333333)),
		},
	},
	{
		Index:        2,
		Family:       FamilyH264,
		GUID:         CompressionFormatH264,
		BitsPerPixel: 16,
		DefaultFrame: 1,
		Frames: []Frame{
			{
				Index: 1, Width: 1920, Height: 1080,
				Intervals:       []time.Duration{Interval(333333), Interval(666666)},
				DefaultInterval: Interval(333333),
				MinBitRate:      2000000, MaxBitRate: 20000000, DefaultBitRate: 8000000,
			},
			{
				Index: 2, Width: 1280, Height: 720,
				Intervals:       []time.Duration{Interval(166666), Interval(333333)},
				DefaultInterval: Interval(333333),
				MinBitRate:      1000000, MaxBitRate: 12000000, DefaultBitRate: 4000000,
			},
		},
	},
	{
		Index:        3,
		Family:       FamilyH265,
		GUID:         CompressionFormatHEVC,
		BitsPerPixel: 16,
		DefaultFrame: 1,
		Frames: []Frame{
			{
				Index: 1, Width: 3840, Height: 2160,
				Intervals:       []time.Duration{Interval(333333)},
				DefaultInterval: Interval(333333),
				MinBitRate:      4000000, MaxBitRate: 40000000, DefaultBitRate: 16000000,
			},
		},
	},
}
