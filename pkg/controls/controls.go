// Package controls implements the unit registry: which controls each unit and
// terminal exposes, their value layout and ranges, and their current values.
package controls

import (
	"encoding/binary"

	"github.com/kevmo314/go-uvc-device/pkg/requests"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

// Op is the set of requests a control answers.
type Op uint8

const (
	OpGetCur Op = 1 << iota
	OpSetCur
	OpGetMin
	OpGetMax
	OpGetRes
	OpGetLen
	OpGetInfo
	OpGetDef
)

const (
	// OpsReadOnly is a read-only control with a declared range.
	OpsReadOnly = OpGetCur | OpGetMin | OpGetMax | OpGetRes | OpGetLen | OpGetInfo | OpGetDef
	// OpsReadWrite is a settable control with a declared range.
	OpsReadWrite = OpsReadOnly | OpSetCur
	// OpsSettable is a settable control without MIN, MAX and RES.
	OpsSettable = OpGetCur | OpSetCur | OpGetLen | OpGetInfo | OpGetDef
	// OpsStatus is a read-only value with nothing but a default.
	OpsStatus = OpGetCur | OpGetLen | OpGetInfo | OpGetDef
)

// OpFor maps a request code onto the op it needs.
func OpFor(code requests.RequestCode) Op {
	switch code {
	case requests.RequestCodeGetCur:
		return OpGetCur
	case requests.RequestCodeSetCur:
		return OpSetCur
	case requests.RequestCodeGetMin:
		return OpGetMin
	case requests.RequestCodeGetMax:
		return OpGetMax
	case requests.RequestCodeGetRes:
		return OpGetRes
	case requests.RequestCodeGetLen:
		return OpGetLen
	case requests.RequestCodeGetInfo:
		return OpGetInfo
	case requests.RequestCodeGetDef:
		return OpGetDef
	}
	return 0
}

// GET_INFO capability bits, UVC spec 1.5, 4.1.2.
const (
	InfoSupportsGet           = 1 << 0
	InfoSupportsSet           = 1 << 1
	InfoDisabledByAuto        = 1 << 2
	InfoAutoUpdate            = 1 << 3
	InfoAsynchronous          = 1 << 4
	InfoDisabledByCommitState = 1 << 5
)

// Field is one little-endian member of a control's value.
type Field struct {
	Size   int // 1, 2, 4 or 8 bytes
	Signed bool

	Min, Max, Res, Def int64
	// Bounded enforces [Min, Max] and the Res step on SET_CUR.
	Bounded bool
	// Bitmap values must be a single bit that is also set in Res.
	Bitmap bool
}

func (f Field) accepts(v int64) bool {
	if f.Bitmap {
		return v != 0 && v&(v-1) == 0 && v&f.Res == v
	}
	if !f.Bounded {
		return true
	}
	if v < f.Min || v > f.Max {
		return false
	}
	return f.Res <= 1 || (v-f.Min)%f.Res == 0
}

// Selector describes one control of a unit kind.
type Selector struct {
	Kind units.Kind
	Code uint8
	Name string
	// Ops is empty for selectors this camera defines but does not implement.
	Ops    Op
	Fields []Field
	// Bit is the control's position in the unit's bmControls.
	Bit int
	// Locked controls cannot change while stream parameters are committed.
	Locked     bool
	AutoUpdate bool
}

func (s *Selector) Supported() bool {
	return s.Ops != 0
}

func (s *Selector) Width() int {
	n := 0
	for _, f := range s.Fields {
		n += f.Size
	}
	return n
}

// Info is the GET_INFO capability byte. locked reports whether the stream
// parameters are currently committed.
func (s *Selector) Info(locked bool) byte {
	var info byte
	if s.Ops&OpGetCur != 0 {
		info |= InfoSupportsGet
	}
	if s.Ops&OpSetCur != 0 {
		info |= InfoSupportsSet
	}
	if s.AutoUpdate {
		info |= InfoAutoUpdate
	}
	if s.Locked && locked {
		info |= InfoDisabledByCommitState
	}
	return info
}

func (s *Selector) Encode(pick func(Field) int64) []byte {
	buf := make([]byte, s.Width())
	off := 0
	for _, f := range s.Fields {
		putField(buf[off:off+f.Size], uint64(pick(f)))
		off += f.Size
	}
	return buf
}

// Decode splits a value into its fields. value must be Width bytes long.
func (s *Selector) Decode(value []byte) []int64 {
	out := make([]int64, len(s.Fields))
	off := 0
	for i, f := range s.Fields {
		raw := getField(value[off : off+f.Size])
		if f.Signed {
			shift := 64 - 8*f.Size
			out[i] = int64(raw<<shift) >> shift
		} else {
			out[i] = int64(raw)
		}
		off += f.Size
	}
	return out
}

func (s *Selector) Default() []byte {
	return s.Encode(func(f Field) int64 { return f.Def })
}

func putField(buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, v)
	}
}

func getField(buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	case 8:
		return binary.LittleEndian.Uint64(buf)
	}
	return 0
}
