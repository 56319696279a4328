package requests

import "github.com/efficientgo/core/errors"

// Control request failures. Every one of them ends the request with a stall.
var (
	ErrNotAClassRequest            = errors.New("not a class request")
	ErrUnsupportedRequestCode      = errors.New("unsupported request code")
	ErrUnknownControl              = errors.New("unknown control")
	ErrUnknownEntity               = errors.Wrap(ErrUnknownControl, "unknown unit or terminal")
	ErrOpNotPermitted              = errors.New("operation not permitted")
	ErrOutOfRange                  = errors.New("out of range")
	ErrBusy                        = errors.New("busy")
	ErrInvalidParameterCombination = errors.New("invalid parameter combination")
	ErrNotCommittedYet             = errors.New("not committed yet")
)

// ErrorCode is the value reported by the VC Request Error Code Control,
// UVC spec 1.5, 4.2.1.2.
type ErrorCode uint8

const (
	ErrorCodeNoError            ErrorCode = 0x00
	ErrorCodeNotReady           ErrorCode = 0x01
	ErrorCodeWrongState         ErrorCode = 0x02
	ErrorCodePower              ErrorCode = 0x03
	ErrorCodeOutOfRange         ErrorCode = 0x04
	ErrorCodeInvalidUnit        ErrorCode = 0x05
	ErrorCodeInvalidControl     ErrorCode = 0x06
	ErrorCodeInvalidRequest     ErrorCode = 0x07
	ErrorCodeInvalidValueWithin ErrorCode = 0x08
	ErrorCodeUnknown            ErrorCode = 0xFF
)

// CodeOf maps a control error onto the code the host reads back after a stall.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ErrorCodeNoError
	case errors.Is(err, ErrUnknownEntity):
		return ErrorCodeInvalidUnit
	case errors.Is(err, ErrUnknownControl):
		return ErrorCodeInvalidControl
	case errors.Is(err, ErrNotAClassRequest),
		errors.Is(err, ErrUnsupportedRequestCode),
		errors.Is(err, ErrOpNotPermitted):
		return ErrorCodeInvalidRequest
	case errors.Is(err, ErrOutOfRange):
		return ErrorCodeOutOfRange
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNotCommittedYet):
		return ErrorCodeWrongState
	case errors.Is(err, ErrInvalidParameterCombination):
		return ErrorCodeInvalidValueWithin
	}
	return ErrorCodeUnknown
}

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNoError:
		return "no_error"
	case ErrorCodeNotReady:
		return "not_ready"
	case ErrorCodeWrongState:
		return "wrong_state"
	case ErrorCodePower:
		return "power"
	case ErrorCodeOutOfRange:
		return "out_of_range"
	case ErrorCodeInvalidUnit:
		return "invalid_unit"
	case ErrorCodeInvalidControl:
		return "invalid_control"
	case ErrorCodeInvalidRequest:
		return "invalid_request"
	case ErrorCodeInvalidValueWithin:
		return "invalid_value_within_range"
	}
	return "unknown"
}
