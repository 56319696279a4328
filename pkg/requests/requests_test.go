package requests

import (
	"testing"

	"github.com/efficientgo/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetupPacket(t *testing.T) {
	setup, err := ParseSetupPacket([]byte{0xA1, 0x81, 0x00, 0x01, 0x01, 0x00, 0x22, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint8(0xA1), setup.RequestType)
	assert.Equal(t, uint8(0x81), setup.Request)
	assert.Equal(t, uint8(1), setup.Selector())
	assert.Equal(t, uint8(0), setup.EntityID())
	assert.Equal(t, uint8(1), setup.InterfaceNumber())
	assert.Equal(t, uint16(34), setup.Length)
	assert.True(t, setup.IsDeviceToHost())
	assert.Equal(t, uint8(RequestTypeClass), setup.Type())

	raw, err := setup.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xA1, 0x81, 0x00, 0x01, 0x01, 0x00, 0x22, 0x00}, raw)

	_, err = ParseSetupPacket([]byte{0xA1})
	assert.ErrorIs(t, err, ErrSetupPacketTooShort)
}

func TestClassRequest(t *testing.T) {
	set := ClassRequest(RequestCodeSetCur, 0x02, 0, 1, 48)
	assert.Equal(t, uint8(0x21), set.RequestType)
	assert.Equal(t, uint16(0x0200), set.Value)
	assert.Equal(t, uint16(0x0001), set.Index)

	get := ClassRequest(RequestCodeGetInfo, 0x07, 5, 0, 1)
	assert.Equal(t, uint8(0xA1), get.RequestType)
	assert.Equal(t, uint16(0x0500), get.Index)
}

func TestRequestCodeSupported(t *testing.T) {
	supported := 0
	for code := 0; code <= 0xFF; code++ {
		if RequestCode(code).Supported() {
			supported++
		}
	}
	assert.Equal(t, 8, supported)
	assert.False(t, RequestCodeGetCurAll.Supported())
	assert.False(t, RequestCodeSetCurAll.Supported())
}

func TestCodeOf(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want ErrorCode
	}{
		{nil, ErrorCodeNoError},
		{ErrNotAClassRequest, ErrorCodeInvalidRequest},
		{ErrUnsupportedRequestCode, ErrorCodeInvalidRequest},
		{ErrOpNotPermitted, ErrorCodeInvalidRequest},
		{ErrUnknownControl, ErrorCodeInvalidControl},
		{errors.Wrapf(ErrUnknownEntity, "unit %d", 9), ErrorCodeInvalidUnit},
		{errors.Wrap(ErrOutOfRange, "frame index"), ErrorCodeOutOfRange},
		{ErrBusy, ErrorCodeWrongState},
		{ErrNotCommittedYet, ErrorCodeWrongState},
		{ErrInvalidParameterCombination, ErrorCodeInvalidValueWithin},
		{errors.New("boom"), ErrorCodeUnknown},
	} {
		assert.Equal(t, tc.want, CodeOf(tc.err), "CodeOf(%v)", tc.err)
	}
}
