package formats

import "github.com/google/uuid"

// Frame-based format GUIDs. The first four bytes are the FourCC once written
// in wire order.
var (
	CompressionFormatH264 = uuid.MustParse("34363248-0000-0010-8000-00AA00389B71")
	CompressionFormatHEVC = uuid.MustParse("43564548-0000-0010-8000-00AA00389B71")
)
