package uvc

import "github.com/efficientgo/core/errors"

var (
	ErrUnsupportedStandardRequest = errors.New("unsupported standard request")
	ErrInvalidInterface           = errors.New("invalid interface")
	ErrInvalidAlternateSetting    = errors.New("invalid alternate setting")
	ErrNotConfigured              = errors.New("device not configured")
)
