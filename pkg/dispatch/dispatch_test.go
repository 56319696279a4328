package dispatch

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevmo314/go-uvc-device/pkg/controls"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/negotiator"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

const (
	probe      = uint8(descriptors.VideoStreamingInterfaceControlSelectorProbe)
	commit     = uint8(descriptors.VideoStreamingInterfaceControlSelectorCommit)
	errorCode  = uint8(descriptors.VideoControlInterfaceControlSelectorRequestErrorCode)
	brightness = uint8(descriptors.ProcessingUnitBrightnessControl)
	firmware   = uint8(descriptors.ExtensionUnitControlSelectorFirmwareVersion)
)

var allCodes = []requests.RequestCode{
	requests.RequestCodeSetCur,
	requests.RequestCodeGetCur,
	requests.RequestCodeGetMin,
	requests.RequestCodeGetMax,
	requests.RequestCodeGetRes,
	requests.RequestCodeGetLen,
	requests.RequestCodeGetInfo,
	requests.RequestCodeGetDef,
}

func newDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *negotiator.Negotiator) {
	t.Helper()
	n := negotiator.New(formats.Default, negotiator.Limits{MaxPayloadTransferSize: 3072, ClockFrequency: 48000000})
	r, err := controls.NewRegistry(units.Default, controls.WithStreamLock(n.Locked))
	require.NoError(t, err)
	return New(r, n, opts...), n
}

func lastErrorCode(t *testing.T, d *Dispatcher) byte {
	t.Helper()
	res := d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, errorCode, 0, ControlInterface, 1), nil)
	require.Equal(t, StatusOK, res.Status, "%v", res.Err)
	require.Len(t, res.Data, 1)
	return res.Data[0]
}

func TestMalformedRequestType(t *testing.T) {
	d, _ := newDispatcher(t)

	res := d.Dispatch(nil, nil)
	assert.Equal(t, StatusStall, res.Status)
	assert.ErrorIs(t, res.Err, requests.ErrNotAClassRequest)

	for _, rc := range allCodes {
		for _, rt := range []uint8{0x80, 0x00, 0x22, 0xA2, 0xC1} {
			setup := requests.ClassRequest(rc, brightness, units.ProcessingUnitID, ControlInterface, 2)
			setup.RequestType = rt
			res := d.Dispatch(setup, nil)
			assert.Equal(t, StatusStall, res.Status)
			assert.ErrorIs(t, res.Err, requests.ErrNotAClassRequest, "%v with 0x%02x", rc, rt)
			assert.Nil(t, res.Data)
		}
	}
	assert.Equal(t, byte(requests.ErrorCodeInvalidRequest), lastErrorCode(t, d))
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		setup   *requests.SetupPacket
		payload []byte
		want    error
	}{
		{
			name:  "GET_CUR_ALL",
			setup: &requests.SetupPacket{RequestType: 0xA1, Request: uint8(requests.RequestCodeGetCurAll), Value: 0x0200, Index: 0x0200, Length: 2},
			want:  requests.ErrUnsupportedRequestCode,
		},
		{
			name:  "undefined code",
			setup: &requests.SetupPacket{RequestType: 0x21, Request: 0x00, Value: 0x0200, Index: 0x0200, Length: 2},
			want:  requests.ErrUnsupportedRequestCode,
		},
		{
			name:  "GET with host-to-device type",
			setup: &requests.SetupPacket{RequestType: 0x21, Request: uint8(requests.RequestCodeGetCur), Value: 0x0200, Index: 0x0200, Length: 2},
			want:  requests.ErrUnsupportedRequestCode,
		},
		{
			name:  "SET with device-to-host type",
			setup: &requests.SetupPacket{RequestType: 0xA1, Request: uint8(requests.RequestCodeSetCur), Value: 0x0200, Index: 0x0200, Length: 2},
			want:  requests.ErrUnsupportedRequestCode,
		},
		{
			name:    "short payload",
			setup:   requests.ClassRequest(requests.RequestCodeSetCur, brightness, units.ProcessingUnitID, ControlInterface, 2),
			payload: []byte{1},
			want:    requests.ErrOutOfRange,
		},
		{
			name:  "nil payload",
			setup: requests.ClassRequest(requests.RequestCodeSetCur, brightness, units.ProcessingUnitID, ControlInterface, 2),
			want:  requests.ErrOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDispatcher(t)
			res := d.Dispatch(tt.setup, tt.payload)
			assert.Equal(t, StatusStall, res.Status)
			assert.ErrorIs(t, res.Err, tt.want)
			assert.Equal(t, byte(requests.CodeOf(tt.want)), lastErrorCode(t, d))
		})
	}
}

func TestRouting(t *testing.T) {
	tests := []struct {
		name  string
		setup *requests.SetupPacket
		want  error
		code  requests.ErrorCode
	}{
		{"unknown unit", requests.ClassRequest(requests.RequestCodeGetCur, 1, 9, ControlInterface, 2), requests.ErrUnknownControl, requests.ErrorCodeInvalidUnit},
		{"unknown selector", requests.ClassRequest(requests.RequestCodeGetCur, 0x30, units.ProcessingUnitID, ControlInterface, 2), requests.ErrUnknownControl, requests.ErrorCodeInvalidControl},
		{"unknown interface", requests.ClassRequest(requests.RequestCodeGetCur, probe, 0, 2, 56), requests.ErrUnknownControl, requests.ErrorCodeInvalidControl},
		{"unknown streaming selector", requests.ClassRequest(requests.RequestCodeGetCur, 0x05, 0, StreamingInterface, 2), requests.ErrUnknownControl, requests.ErrorCodeInvalidControl},
		{"power mode", requests.ClassRequest(requests.RequestCodeGetCur, 0x01, 0, ControlInterface, 1), requests.ErrUnknownControl, requests.ErrorCodeInvalidControl},
		{"output terminal", requests.ClassRequest(requests.RequestCodeGetInfo, 1, units.OutputTerminalID, ControlInterface, 1), requests.ErrUnknownControl, requests.ErrorCodeInvalidControl},
		{"read-only firmware", requests.ClassRequest(requests.RequestCodeSetCur, firmware, units.ExtensionUnitID, ControlInterface, 4), requests.ErrOpNotPermitted, requests.ErrorCodeInvalidRequest},
		{"GET_MIN on commit", requests.ClassRequest(requests.RequestCodeGetMin, commit, 0, StreamingInterface, 56), requests.ErrOpNotPermitted, requests.ErrorCodeInvalidRequest},
		{"GET_CUR on commit", requests.ClassRequest(requests.RequestCodeGetCur, commit, 0, StreamingInterface, 56), requests.ErrNotCommittedYet, requests.ErrorCodeWrongState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newDispatcher(t)
			var payload []byte
			if !requests.RequestCode(tt.setup.Request).IsGet() {
				payload = make([]byte, tt.setup.Length)
			}
			res := d.Dispatch(tt.setup, payload)
			assert.Equal(t, StatusStall, res.Status)
			assert.ErrorIs(t, res.Err, tt.want)
			assert.Equal(t, byte(tt.code), lastErrorCode(t, d))
		})
	}
}

func TestUnitControls(t *testing.T) {
	d, _ := newDispatcher(t)

	set := requests.ClassRequest(requests.RequestCodeSetCur, brightness, units.ProcessingUnitID, ControlInterface, 2)
	res := d.Dispatch(set, []byte{0x10, 0x00})
	require.Equal(t, StatusOK, res.Status, "%v", res.Err)
	assert.Nil(t, res.Data)

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, brightness, units.ProcessingUnitID, ControlInterface, 2), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []byte{0x10, 0x00}, res.Data)

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetInfo, brightness, units.ProcessingUnitID, ControlInterface, 1), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []byte{controls.InfoSupportsGet | controls.InfoSupportsSet}, res.Data)

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetLen, brightness, units.ProcessingUnitID, ControlInterface, 2), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []byte{2, 0}, res.Data)

	// out of range leaves the stored value alone
	res = d.Dispatch(set, []byte{0x00, 0x40})
	assert.ErrorIs(t, res.Err, requests.ErrOutOfRange)
	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, brightness, units.ProcessingUnitID, ControlInterface, 2), nil)
	assert.Equal(t, []byte{0x10, 0x00}, res.Data)
}

func TestProbeCommit(t *testing.T) {
	d, n := newDispatcher(t)

	res := d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, probe, 0, StreamingInterface, descriptors.VideoProbeCommitLength), nil)
	require.Equal(t, StatusOK, res.Status)
	require.Len(t, res.Data, descriptors.VideoProbeCommitLength)
	assert.Equal(t, negotiator.StateProbing, n.State())

	rec := n.Default()
	rec.FormatIndex, rec.FrameIndex = 2, 2
	rec.FrameInterval = formats.Interval(166666)
	buf, err := rec.MarshalBinary()
	require.NoError(t, err)

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeSetCur, probe, 0, StreamingInterface, uint16(len(buf))), buf)
	require.Equal(t, StatusOK, res.Status, "%v", res.Err)

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, probe, 0, StreamingInterface, descriptors.VideoProbeCommitLength), nil)
	require.Equal(t, StatusOK, res.Status)
	negotiated := res.Data

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeSetCur, commit, 0, StreamingInterface, uint16(len(negotiated))), negotiated)
	require.Equal(t, StatusOK, res.Status, "%v", res.Err)
	assert.True(t, n.Locked())

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, commit, 0, StreamingInterface, descriptors.VideoProbeCommitLength), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, negotiated, res.Data)

	// a bad frame index is refused and the committed record survives
	rec.FrameIndex = 9
	bad, err := rec.MarshalBinary()
	require.NoError(t, err)
	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeSetCur, commit, 0, StreamingInterface, uint16(len(bad))), bad)
	assert.ErrorIs(t, res.Err, requests.ErrInvalidParameterCombination)
	got, err := n.Committed()
	require.NoError(t, err)
	assert.Equal(t, uint8(2), got.FrameIndex)
}

func TestTruncatesToLength(t *testing.T) {
	d, _ := newDispatcher(t)

	res := d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, probe, 0, StreamingInterface, descriptors.VideoProbeCommitLength10), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Len(t, res.Data, descriptors.VideoProbeCommitLength10)

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetLen, probe, 0, StreamingInterface, 1), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []byte{descriptors.VideoProbeCommitLength}, res.Data)
}

func TestRequestErrorCodeControl(t *testing.T) {
	d, _ := newDispatcher(t)
	assert.Equal(t, byte(requests.ErrorCodeNoError), lastErrorCode(t, d))

	d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, 1, 9, ControlInterface, 2), nil)
	// reading the code does not clear it
	assert.Equal(t, byte(requests.ErrorCodeInvalidUnit), lastErrorCode(t, d))
	assert.Equal(t, byte(requests.ErrorCodeInvalidUnit), lastErrorCode(t, d))

	res := d.Dispatch(requests.ClassRequest(requests.RequestCodeGetInfo, errorCode, 0, ControlInterface, 1), nil)
	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []byte{controls.InfoSupportsGet}, res.Data)

	// a successful request clears it
	d.Dispatch(requests.ClassRequest(requests.RequestCodeGetInfo, brightness, units.ProcessingUnitID, ControlInterface, 1), nil)
	assert.Equal(t, byte(requests.ErrorCodeNoError), lastErrorCode(t, d))

	res = d.Dispatch(requests.ClassRequest(requests.RequestCodeGetMin, errorCode, 0, ControlInterface, 1), nil)
	assert.ErrorIs(t, res.Err, requests.ErrOpNotPermitted)
	assert.Equal(t, byte(requests.ErrorCodeInvalidRequest), lastErrorCode(t, d))

	d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, 1, 9, ControlInterface, 2), nil)
	d.Reset()
	assert.Equal(t, requests.ErrorCodeNoError, d.LastError())
}

func TestMetricsAndLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	d, _ := newDispatcher(t, WithRegisterer(reg), WithLogger(log.NewLogfmtLogger(&buf)))

	d.Dispatch(requests.ClassRequest(requests.RequestCodeGetInfo, brightness, units.ProcessingUnitID, ControlInterface, 1), nil)
	d.Dispatch(requests.ClassRequest(requests.RequestCodeGetCur, commit, 0, StreamingInterface, 56), nil)
	d.Dispatch(nil, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(d.requestsTotal.WithLabelValues("unit", "GET_INFO", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.requestsTotal.WithLabelValues("probe_commit", "GET_CUR", "stall")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.stallsTotal.WithLabelValues("wrong_state")))
	assert.Equal(t, 1.0, testutil.ToFloat64(d.stallsTotal.WithLabelValues("invalid_request")))

	count, err := testutil.GatherAndCount(reg, "uvc_control_requests_total", "uvc_control_stalls_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.Contains(t, buf.String(), "msg=\"stalling control request\"")
	assert.Contains(t, buf.String(), "route=probe_commit")
}
