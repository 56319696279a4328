package descriptors

import (
	"encoding"
	"encoding/binary"
	"io"
	"time"
)

type FormatDescriptor interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Index() uint8
	isStreamingInterface()
	isFormatDescriptor()
}

type FrameDescriptor interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Index() uint8
	isStreamingInterface()
	isFrameDescriptor()
}

// FrameIntervalRange is the continuous form of a frame's interval table, used
// when bFrameIntervalType is zero.
type FrameIntervalRange struct {
	MinFrameInterval, MaxFrameInterval, FrameIntervalStep time.Duration
}

func intervalTableLength(discrete []time.Duration) int {
	if len(discrete) == 0 {
		return 12
	}
	return 4 * len(discrete)
}

func putIntervalTable(buf []byte, continuous FrameIntervalRange, discrete []time.Duration) {
	if len(discrete) == 0 {
		binary.LittleEndian.PutUint32(buf[0:4], intervalToWire(continuous.MinFrameInterval))
		binary.LittleEndian.PutUint32(buf[4:8], intervalToWire(continuous.MaxFrameInterval))
		binary.LittleEndian.PutUint32(buf[8:12], intervalToWire(continuous.FrameIntervalStep))
		return
	}
	for i, d := range discrete {
		binary.LittleEndian.PutUint32(buf[4*i:4*i+4], intervalToWire(d))
	}
}

func readIntervalTable(buf []byte, n int) (FrameIntervalRange, []time.Duration, error) {
	var continuous FrameIntervalRange
	if n == 0 {
		if len(buf) < 12 {
			return continuous, nil, io.ErrShortBuffer
		}
		continuous.MinFrameInterval = intervalFromWire(binary.LittleEndian.Uint32(buf[0:4]))
		continuous.MaxFrameInterval = intervalFromWire(binary.LittleEndian.Uint32(buf[4:8]))
		continuous.FrameIntervalStep = intervalFromWire(binary.LittleEndian.Uint32(buf[8:12]))
		return continuous, nil, nil
	}
	if len(buf) < 4*n {
		return continuous, nil, io.ErrShortBuffer
	}
	discrete := make([]time.Duration, n)
	for i := range discrete {
		discrete[i] = intervalFromWire(binary.LittleEndian.Uint32(buf[4*i : 4*i+4]))
	}
	return continuous, discrete, nil
}
