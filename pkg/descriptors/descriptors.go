package descriptors

import (
	"time"

	"github.com/google/uuid"
)

func copyGUID(dst []byte, src []byte) {
	// copy according to the GUID format defined in UVC spec 1.5, section 2.9.
	dst[0] = src[3]
	dst[1] = src[2]
	dst[2] = src[1]
	dst[3] = src[0]
	dst[4] = src[5]
	dst[5] = src[4]
	dst[6] = src[7]
	dst[7] = src[6]
	copy(dst[8:16], src[8:16])
}

// PutGUID writes id into dst[0:16] in the mixed-endian wire layout.
func PutGUID(dst []byte, id uuid.UUID) {
	copyGUID(dst, id[:])
}

// ReadGUID reads a wire-layout GUID from src[0:16].
func ReadGUID(src []byte) uuid.UUID {
	var id uuid.UUID
	copyGUID(id[:], src)
	return id
}

// frame intervals travel in 100ns units.

func intervalToWire(d time.Duration) uint32 {
	return uint32(d / (100 * time.Nanosecond))
}

func intervalFromWire(v uint32) time.Duration {
	return time.Duration(v) * 100 * time.Nanosecond
}

// getBitmap reads an n-byte little-endian bmControls field.
func getBitmap(buf []byte) uint32 {
	var v uint32
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint32(buf[i])
	}
	return v
}

func putBitmap(buf []byte, v uint32) {
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
}
