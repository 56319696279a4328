package uvc

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/controls"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/negotiator"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

var (
	puBrightness = uint8(descriptors.ProcessingUnitBrightnessControl)
	euResolution = uint8(descriptors.EncodingUnitControlSelectorVideoResolutionControl)
	probe        = uint8(descriptors.VideoStreamingInterfaceControlSelectorProbe)
	commit       = uint8(descriptors.VideoStreamingInterfaceControlSelectorCommit)
)

func standardRequest(requestType, request uint8, value, index, length uint16) *requests.SetupPacket {
	return &requests.SetupPacket{RequestType: requestType, Request: request, Value: value, Index: index, Length: length}
}

// negotiate runs the host side of probe and commit for format and frame.
func negotiate(t *testing.T, d *Device, format, frame uint8) descriptors.VideoProbeCommitControl {
	t.Helper()
	get := requests.ClassRequest(requests.RequestCodeGetCur, probe, 0, catalog.StreamingInterface, descriptors.VideoProbeCommitLength)
	buf, err := d.HandleSetup(get, nil)
	require.NoError(t, err)

	var rec descriptors.VideoProbeCommitControl
	require.NoError(t, rec.UnmarshalBinary(buf))
	rec.FormatIndex, rec.FrameIndex = format, frame
	rec.FrameInterval = 0
	rec.BitRate = 0
	buf, err = rec.MarshalBinary()
	require.NoError(t, err)

	_, err = d.HandleSetup(requests.ClassRequest(requests.RequestCodeSetCur, probe, 0, catalog.StreamingInterface, uint16(len(buf))), buf)
	require.NoError(t, err)
	buf, err = d.HandleSetup(get, nil)
	require.NoError(t, err)
	_, err = d.HandleSetup(requests.ClassRequest(requests.RequestCodeSetCur, commit, 0, catalog.StreamingInterface, uint16(len(buf))), buf)
	require.NoError(t, err)

	require.NoError(t, rec.UnmarshalBinary(buf))
	return rec
}

func TestDescriptorBytes(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	for _, tt := range []struct {
		speed     catalog.Speed
		transport catalog.Transport
		want      int
	}{
		{catalog.SpeedHigh, catalog.TransportIsochronous, 406},
		{catalog.SpeedSuper, catalog.TransportIsochronous, 418},
		{catalog.SpeedHigh, catalog.TransportBulk, 397},
		{catalog.SpeedSuper, catalog.TransportBulk, 409},
	} {
		buf, err := d.DescriptorBytes(tt.speed, tt.transport)
		require.NoError(t, err)
		assert.Len(t, buf, tt.want, "%v %v", tt.speed, tt.transport)
		assert.Equal(t, []byte{0x50, 0x01}, buf[29:31])
	}

	_, err = d.DescriptorBytes(catalog.SpeedFull, catalog.TransportBulk)
	assert.ErrorIs(t, err, catalog.ErrUnsupportedConfiguration)

	_, err = NewDevice(WithSpeed(catalog.SpeedFull))
	assert.ErrorIs(t, err, catalog.ErrUnsupportedConfiguration)
}

func TestStandardDescriptors(t *testing.T) {
	d, err := NewDevice(WithSpeed(catalog.SpeedHigh))
	require.NoError(t, err)

	dev, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0100, 0, 64), nil)
	require.NoError(t, err)
	require.Len(t, dev, 18)
	assert.Equal(t, []byte{0xB4, 0x04, 0xC3, 0x00}, dev[8:12])

	short, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0100, 0, 8), nil)
	require.NoError(t, err)
	assert.Equal(t, dev[:8], short)

	head, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0200, 0, 9), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x96, 0x01}, head[2:4]) // 406

	full, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0200, 0, 0xFFFF), nil)
	require.NoError(t, err)
	assert.Len(t, full, 406)

	_, err = d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0600, 0, 10), nil)
	assert.NoError(t, err)
	_, err = d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0F00, 0, 22), nil)
	assert.ErrorIs(t, err, catalog.ErrUnsupportedConfiguration)

	product, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0302, 0x0409, 255), nil)
	require.NoError(t, err)
	assert.Equal(t, byte(2+2*len("UVC 1.5 Camera")), product[0])

	_, err = d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetDescriptor, 0x0309, 0x0409, 255), nil)
	assert.ErrorIs(t, err, catalog.ErrNoSuchString)
}

func TestConfigurationAndInterfaces(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	_, err = d.HandleSetup(standardRequest(0x01, requests.StandardRequestSetInterface, 1, catalog.StreamingInterface, 0), nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = d.HandleSetup(standardRequest(0x00, requests.StandardRequestSetConfiguration, 1, 0, 0), nil)
	require.NoError(t, err)
	cfg, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetConfiguration, 0, 0, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, cfg)

	_, err = d.HandleSetup(standardRequest(0x01, requests.StandardRequestSetInterface, 1, catalog.StreamingInterface, 0), nil)
	assert.ErrorIs(t, err, requests.ErrNotCommittedYet)
	assert.False(t, d.Streaming())

	rec := negotiate(t, d, 2, 1)
	_, err = d.HandleSetup(standardRequest(0x01, requests.StandardRequestSetInterface, 1, catalog.StreamingInterface, 0), nil)
	require.NoError(t, err)
	assert.True(t, d.Streaming())

	cur, ok := d.CurrentCommitted()
	require.True(t, ok)
	assert.Equal(t, rec, cur)
	f, fr, ok := d.CommittedFormat()
	require.True(t, ok)
	assert.Equal(t, uint8(2), f.Index)
	assert.Equal(t, uint16(1920), fr.Width)

	alt, err := d.HandleSetup(standardRequest(0x81, requests.StandardRequestGetInterface, 0, catalog.StreamingInterface, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, alt)

	// stream parameters are locked while streaming
	err = d.SupportedControls(units.EncodingUnitID)[euResolution-1].Set([]byte{0x00, 0x05, 0xd0, 0x02})
	assert.ErrorIs(t, err, requests.ErrBusy)

	_, err = d.HandleSetup(standardRequest(0x01, requests.StandardRequestSetInterface, 0, catalog.StreamingInterface, 0), nil)
	require.NoError(t, err)
	assert.False(t, d.Streaming())
	assert.Equal(t, negotiator.StateDefault, d.Negotiator().State())
	_, ok = d.CurrentCommitted()
	assert.False(t, ok)

	assert.ErrorIs(t, d.SelectInterface(catalog.ControlInterface, 1), ErrInvalidAlternateSetting)
	assert.ErrorIs(t, d.SelectInterface(catalog.StreamingInterface, 2), ErrInvalidAlternateSetting)
	assert.ErrorIs(t, d.SelectInterface(3, 0), ErrInvalidInterface)
}

func TestReprobeWhileStreamingStaysBusy(t *testing.T) {
	d, err := NewDevice(WithTransport(catalog.TransportBulk))
	require.NoError(t, err)
	rec := negotiate(t, d, 2, 1)
	require.True(t, d.Streaming())

	resolution := d.SupportedControls(units.EncodingUnitID)[euResolution-1]
	assert.ErrorIs(t, resolution.Set([]byte{0x00, 0x05, 0xd0, 0x02}), requests.ErrBusy)

	buf, err := rec.MarshalBinary()
	require.NoError(t, err)
	_, err = d.HandleSetup(requests.ClassRequest(requests.RequestCodeSetCur, probe, 0, catalog.StreamingInterface, uint16(len(buf))), buf)
	require.NoError(t, err)

	assert.ErrorIs(t, resolution.Set([]byte{0x00, 0x05, 0xd0, 0x02}), requests.ErrBusy)
	cur, ok := d.CurrentCommitted()
	require.True(t, ok)
	assert.Equal(t, rec, cur)

	d.StopStream()
	assert.NoError(t, resolution.Set([]byte{0x00, 0x05, 0xd0, 0x02}))
}

func TestBulkStreamStartsOnCommit(t *testing.T) {
	d, err := NewDevice(WithTransport(catalog.TransportBulk), WithSpeed(catalog.SpeedHigh))
	require.NoError(t, err)
	assert.ErrorIs(t, d.SelectInterface(catalog.StreamingInterface, 1), ErrInvalidAlternateSetting)

	negotiate(t, d, 1, 2)
	assert.True(t, d.Streaming())

	status, err := d.HandleSetup(standardRequest(0x82, requests.StandardRequestGetStatus, 0, catalog.VideoEndpoint, 2), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, status)

	_, err = d.HandleSetup(standardRequest(0x02, requests.StandardRequestClearFeature, requests.FeatureEndpointHalt, catalog.VideoEndpoint, 0), nil)
	require.NoError(t, err)
	assert.False(t, d.Streaming())
	_, ok := d.CurrentCommitted()
	assert.False(t, ok)
}

func TestUnsupportedRequests(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	_, err = d.HandleSetup(nil, nil)
	assert.ErrorIs(t, err, requests.ErrNotAClassRequest)

	_, err = d.HandleSetup(standardRequest(0xC0, 0x01, 0, 0, 4), nil)
	assert.ErrorIs(t, err, ErrUnsupportedStandardRequest)

	_, err = d.HandleSetup(standardRequest(0x80, requests.StandardRequestSynchFrame, 0, 0, 2), nil)
	assert.ErrorIs(t, err, ErrUnsupportedStandardRequest)

	_, err = d.HandleSetup(standardRequest(0x00, StandardRequestSetSel, 0, 0, 6), make([]byte, 6))
	assert.NoError(t, err)

	// class requests with a malformed direction never reach a unit
	setup := requests.ClassRequest(requests.RequestCodeGetCur, puBrightness, units.ProcessingUnitID, catalog.ControlInterface, 2)
	setup.RequestType = 0x22
	_, err = d.HandleSetup(setup, nil)
	assert.ErrorIs(t, err, requests.ErrNotAClassRequest)
	assert.Equal(t, requests.ErrorCodeInvalidRequest, d.LastError())
}

func TestSupportedControls(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	for _, id := range []uint8{units.CameraTerminalID, units.ProcessingUnitID, units.ExtensionUnitID, units.EncodingUnitID} {
		assert.Len(t, d.SupportedControls(id), bits.OnesCount32(d.Registry().Bitmap(id)), "unit %d", id)
	}
	assert.Empty(t, d.SupportedControls(units.OutputTerminalID))

	var brightness Control
	for _, c := range d.SupportedControls(units.ProcessingUnitID) {
		if c.Selector.Code == puBrightness {
			brightness = c
		}
	}
	require.NotNil(t, brightness.dev)

	require.NoError(t, brightness.Set([]byte{0xf6, 0xff}))
	v, err := brightness.Values()
	require.NoError(t, err)
	assert.Equal(t, []int64{-10}, v)

	info, err := brightness.Get(requests.RequestCodeGetInfo)
	require.NoError(t, err)
	assert.Equal(t, []byte{controls.InfoSupportsGet | controls.InfoSupportsSet}, info)

	assert.ErrorIs(t, brightness.Set([]byte{0x7f, 0x00}), requests.ErrOutOfRange)
}

func TestControlValuesAndStore(t *testing.T) {
	store := controls.NewMemoryStore()
	require.NoError(t, store.Save(units.ProcessingUnitID, puBrightness, []byte{0x05, 0x00}))

	d, err := NewDevice(WithStore(store), WithControlValues([]ControlValue{
		{Unit: units.EncodingUnitID, Selector: euResolution, Value: []byte{0x00, 0x05, 0xd0, 0x02}},
	}))
	require.NoError(t, err)

	v, err := d.Registry().Read(units.ProcessingUnitID, puBrightness)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x05, 0x00}, v)

	v, err = store.Load(units.EncodingUnitID, euResolution)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x05, 0xd0, 0x02}, v)

	_, err = NewDevice(WithControlValues([]ControlValue{{Unit: 9, Selector: 1, Value: []byte{0}}}))
	assert.ErrorIs(t, err, requests.ErrUnknownControl)
}

func TestReset(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)
	_, err = d.HandleSetup(standardRequest(0x00, requests.StandardRequestSetConfiguration, 1, 0, 0), nil)
	require.NoError(t, err)
	negotiate(t, d, 1, 1)
	require.NoError(t, d.SelectInterface(catalog.StreamingInterface, 1))
	_, err = d.HandleSetup(requests.ClassRequest(requests.RequestCodeGetCur, 1, 9, catalog.ControlInterface, 1), nil)
	require.Error(t, err)

	d.Reset()
	assert.False(t, d.Streaming())
	assert.Equal(t, requests.ErrorCodeNoError, d.LastError())
	cfg, err := d.HandleSetup(standardRequest(0x80, requests.StandardRequestGetConfiguration, 0, 0, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, cfg)
}

func TestDeviceInfo(t *testing.T) {
	d, err := NewDevice()
	require.NoError(t, err)

	info, err := d.DeviceInfo()
	require.NoError(t, err)
	assert.Equal(t, uint16(418), info.Configuration.TotalLength)
	assert.Equal(t, uint16(0x5E), info.ControlInterface.Header.TotalLength)
	assert.Equal(t, "1.50", info.StreamingInterface.UVCVersionString())

	vs := info.StreamingInterface
	require.NotNil(t, vs.InputHeader)
	assert.Len(t, vs.FormatDescriptors(), 3)
	for _, f := range d.Catalog().Formats() {
		assert.Len(t, vs.FrameDescriptors(f.Index), len(f.Frames), "format %d", f.Index)
	}
	require.Len(t, vs.Endpoints, 1)
	assert.Equal(t, uint8(catalog.VideoEndpoint), vs.Endpoints[0].EndpointAddress)
}
