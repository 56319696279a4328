package negotiator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

var limits = Limits{MaxPayloadTransferSize: 3072, ClockFrequency: 48000000}

func marshal(t *testing.T, rec descriptors.VideoProbeCommitControl) []byte {
	t.Helper()
	buf, err := rec.MarshalBinary()
	require.NoError(t, err)
	return buf
}

func TestDefault(t *testing.T) {
	n := New(formats.Default, limits)
	rec := n.Default()

	assert.Equal(t, uint8(1), rec.FormatIndex)
	assert.Equal(t, uint8(1), rec.FrameIndex)
	assert.Equal(t, formats.Interval(333333), rec.FrameInterval)
	assert.Equal(t, uint32(1920*1080*2), rec.MaxVideoFrameSize)
	assert.Equal(t, uint32(3072), rec.MaxPayloadTransferSize)
	assert.Equal(t, uint32(48000000), rec.ClockFrequency)
	assert.Equal(t, uint8(FramingInfo), rec.FramingInfoBitmask)
	assert.Equal(t, uint16(1920), rec.Width)
	assert.Equal(t, uint16(1080), rec.Height)
	assert.Equal(t, StateDefault, n.State())
	assert.Equal(t, rec, n.Probe())
}

func TestProbeCommitRoundTrip(t *testing.T) {
	n := New(formats.Default, limits)

	_, err := n.Committed()
	assert.ErrorIs(t, err, requests.ErrNotCommittedYet)
	assert.Equal(t, requests.ErrorCodeWrongState, requests.CodeOf(err))

	want := n.Default()
	want.FormatIndex = 2
	want.FrameIndex = 2
	want.FrameInterval = formats.Interval(166666)
	want.BitRate = 6000000
	want.MaxVideoFrameSize = 1280 * 720 * 2
	want.Width, want.Height = 1280, 720

	require.NoError(t, n.SetProbe(marshal(t, want)))
	assert.Equal(t, StateProbing, n.State())
	assert.Equal(t, want, n.Probe())

	require.NoError(t, n.Commit(marshal(t, n.Probe())))
	assert.Equal(t, StateCommitted, n.State())
	assert.True(t, n.Locked())

	got, err := n.Committed()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	cur, ok := n.Current()
	assert.True(t, ok)
	assert.Equal(t, want, cur)
}

func TestSetProbeClamps(t *testing.T) {
	n := New(formats.Default, limits)

	rec := n.Default()
	rec.FormatIndex = 2
	rec.FrameIndex = 1
	rec.FrameInterval = formats.Interval(500000)
	rec.BitRate = 99000000
	rec.CompQuality = 20000
	rec.MaxPayloadTransferSize = 1
	rec.Width = 7

	require.NoError(t, n.SetProbe(marshal(t, rec)))
	got := n.Probe()
	// 500000 is closer to 666666 than to 333333
	assert.Equal(t, formats.Interval(666666), got.FrameInterval)
	assert.Equal(t, uint32(20000000), got.BitRate)
	assert.Equal(t, uint16(10000), got.CompQuality)
	assert.Equal(t, uint32(3072), got.MaxPayloadTransferSize)
	assert.Equal(t, uint16(1920), got.Width)

	rec.FrameInterval = 0
	rec.BitRate = 0
	require.NoError(t, n.SetProbe(marshal(t, rec)))
	got = n.Probe()
	assert.Equal(t, formats.Interval(333333), got.FrameInterval)
	assert.Equal(t, uint32(8000000), got.BitRate)
}

func TestSetProbeShortRecordMerges(t *testing.T) {
	n := New(formats.Default, limits)

	rec := n.Default()
	rec.FormatIndex = 2
	rec.BitRate = 5000000
	require.NoError(t, n.SetProbe(marshal(t, rec)))

	rec.FrameIndex = 2
	buf := marshal(t, rec)[:descriptors.VideoProbeCommitLength10]
	require.NoError(t, n.SetProbe(buf))

	got := n.Probe()
	assert.Equal(t, uint8(2), got.FrameIndex)
	assert.Equal(t, uint32(5000000), got.BitRate)
	assert.Equal(t, uint16(1280), got.Width)
}

func TestSetProbeRejects(t *testing.T) {
	tests := []struct {
		name string
		edit func(*descriptors.VideoProbeCommitControl)
		n    int
	}{
		{"bad length", func(*descriptors.VideoProbeCommitControl) {}, 30},
		{"no such format", func(r *descriptors.VideoProbeCommitControl) { r.FormatIndex = 9 }, 56},
		{"format zero", func(r *descriptors.VideoProbeCommitControl) { r.FormatIndex = 0 }, 56},
		{"no such frame", func(r *descriptors.VideoProbeCommitControl) { r.FormatIndex, r.FrameIndex = 3, 2 }, 26},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(formats.Default, limits)
			before := n.Probe()
			rec := n.Default()
			tt.edit(&rec)
			buf := make([]byte, tt.n)
			require.NoError(t, rec.MarshalInto(buf))

			err := n.SetProbe(buf)
			assert.ErrorIs(t, err, requests.ErrOutOfRange)
			assert.Equal(t, before, n.Probe())
			assert.Equal(t, StateDefault, n.State())
		})
	}
}

func TestCommitRejectsAndKeepsCommitted(t *testing.T) {
	n := New(formats.Default, limits)
	require.NoError(t, n.Commit(nil))
	first, err := n.Committed()
	require.NoError(t, err)

	tests := []struct {
		name string
		edit func(*descriptors.VideoProbeCommitControl)
	}{
		{"bad frame", func(r *descriptors.VideoProbeCommitControl) { r.FrameIndex = 5 }},
		{"bad format", func(r *descriptors.VideoProbeCommitControl) { r.FormatIndex = 4 }},
		{"interval not offered", func(r *descriptors.VideoProbeCommitControl) { r.FrameInterval = formats.Interval(400000) }},
		{"bitrate above peak", func(r *descriptors.VideoProbeCommitControl) { r.FormatIndex, r.BitRate = 2, 30000000 }},
		{"dims mismatch", func(r *descriptors.VideoProbeCommitControl) { r.Width = 640 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := first
			tt.edit(&rec)
			err := n.Commit(marshal(t, rec))
			assert.ErrorIs(t, err, requests.ErrInvalidParameterCombination)
			assert.Equal(t, requests.ErrorCodeInvalidValueWithin, requests.CodeOf(err))

			got, err := n.Committed()
			require.NoError(t, err)
			assert.Equal(t, first, got)
		})
	}

	assert.ErrorIs(t, n.Commit(make([]byte, 12)), requests.ErrOutOfRange)
}

func TestResetClearsCommitted(t *testing.T) {
	n := New(formats.Default, limits)
	require.NoError(t, n.Commit(nil))
	require.True(t, n.Locked())

	n.Reset()
	assert.False(t, n.Locked())
	assert.Equal(t, StateDefault, n.State())
	_, ok := n.Current()
	assert.False(t, ok)
	assert.Equal(t, n.Default(), n.Probe())
}

func TestReprobeKeepsLock(t *testing.T) {
	n := New(formats.Default, limits)
	require.NoError(t, n.Commit(nil))
	committed, ok := n.Current()
	require.True(t, ok)

	rec := n.Default()
	rec.FormatIndex, rec.FrameIndex = 2, 1
	buf, err := rec.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, n.SetProbe(buf))
	assert.Equal(t, StateProbing, n.State())
	assert.True(t, n.Locked())
	cur, ok := n.Current()
	require.True(t, ok)
	assert.Equal(t, committed, cur)

	n.Reset()
	assert.False(t, n.Locked())
}

func TestGetProbeStartsNegotiation(t *testing.T) {
	n := New(formats.Default, limits)
	n.GetProbe()
	assert.Equal(t, StateProbing, n.State())

	require.NoError(t, n.Commit(nil))
	n.GetProbe()
	assert.Equal(t, StateCommitted, n.State())
}

func TestQuery(t *testing.T) {
	n := New(formats.Default, limits)
	probe := descriptors.VideoStreamingInterfaceControlSelectorProbe
	commit := descriptors.VideoStreamingInterfaceControlSelectorCommit

	v, err := n.Query(probe, requests.RequestCodeGetLen)
	require.NoError(t, err)
	assert.Equal(t, []byte{56, 0}, v)

	v, err = n.Query(commit, requests.RequestCodeGetInfo)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, v)

	v, err = n.Query(probe, requests.RequestCodeGetMax)
	require.NoError(t, err)
	var rec descriptors.VideoProbeCommitControl
	require.NoError(t, rec.UnmarshalBinary(v))
	assert.Equal(t, formats.Interval(666666), rec.FrameInterval)

	v, err = n.Query(probe, requests.RequestCodeGetMin)
	require.NoError(t, err)
	require.NoError(t, rec.UnmarshalBinary(v))
	assert.Equal(t, formats.Interval(333333), rec.FrameInterval)

	v, err = n.Query(probe, requests.RequestCodeGetDef)
	require.NoError(t, err)
	assert.Equal(t, marshal(t, n.Default()), v)

	_, err = n.Query(commit, requests.RequestCodeGetMin)
	assert.ErrorIs(t, err, requests.ErrOpNotPermitted)
	_, err = n.Query(probe, requests.RequestCodeGetRes)
	assert.ErrorIs(t, err, requests.ErrOpNotPermitted)
	_, err = n.Query(descriptors.VideoStreamingInterfaceControlSelectorStillProbe, requests.RequestCodeGetLen)
	assert.ErrorIs(t, err, requests.ErrUnknownControl)
}
