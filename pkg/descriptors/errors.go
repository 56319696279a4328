package descriptors

import "errors"

var ErrInvalidDescriptor = errors.New("invalid descriptor")

// short reports whether buf cannot hold a descriptor of at least min bytes or
// the length its own bLength claims.
func short(buf []byte, min int) bool {
	return len(buf) < min || len(buf) < int(buf[0])
}
