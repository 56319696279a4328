// Package negotiator runs the device side of stream parameter negotiation
// over the VideoStreaming Probe and Commit controls.
package negotiator

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

type State int

const (
	StateDefault State = iota
	StateProbing
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateProbing:
		return "Probing"
	case StateCommitted:
		return "Committed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Bounds is the format table negotiation is checked against.
type Bounds interface {
	Format(index uint8) (formats.Format, bool)
	Formats() []formats.Format
}

// Limits are the device-owned fields of every record.
type Limits struct {
	MaxPayloadTransferSize uint32
	ClockFrequency         uint32
}

const (
	// FramingInfo sets FID required and EOF may be present.
	FramingInfo = 0x03
	// PayloadVersion is the payload format version the device speaks.
	PayloadVersion = 1

	maxCompQuality = 10000

	infoGetSet = 0x03
)

type Negotiator struct {
	bounds Bounds
	limits Limits

	mu    sync.Mutex
	state State
	probe descriptors.VideoProbeCommitControl

	// committed is read by the streaming path without taking mu.
	committed atomic.Pointer[descriptors.VideoProbeCommitControl]
}

func New(bounds Bounds, limits Limits) *Negotiator {
	n := &Negotiator{bounds: bounds, limits: limits}
	n.probe = n.Default()
	return n
}

// Default is the record a fresh interface starts from: the first format's
// default frame at its default interval and bitrate.
func (n *Negotiator) Default() descriptors.VideoProbeCommitControl {
	f := n.bounds.Formats()[0]
	fr, _ := f.Frame(f.DefaultFrame)
	rec := descriptors.VideoProbeCommitControl{
		FormatIndex:   f.Index,
		FrameIndex:    fr.Index,
		FrameInterval: fr.DefaultInterval,
		BitRate:       fr.DefaultBitRate,
	}
	n.deviceFields(&rec, fr)
	return rec
}

func (n *Negotiator) deviceFields(rec *descriptors.VideoProbeCommitControl, fr formats.Frame) {
	rec.MaxVideoFrameSize = fr.MaxFrameSize()
	rec.MaxPayloadTransferSize = n.limits.MaxPayloadTransferSize
	rec.ClockFrequency = n.limits.ClockFrequency
	rec.FramingInfoBitmask = FramingInfo
	rec.PreferedVersion = PayloadVersion
	rec.MinVersion = PayloadVersion
	rec.MaxVersion = PayloadVersion
	rec.Width = fr.Width
	rec.Height = fr.Height
}

func (n *Negotiator) lookup(rec *descriptors.VideoProbeCommitControl) (formats.Format, formats.Frame, bool) {
	f, ok := n.bounds.Format(rec.FormatIndex)
	if !ok {
		return formats.Format{}, formats.Frame{}, false
	}
	fr, ok := f.Frame(rec.FrameIndex)
	return f, fr, ok
}

func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Reset drops the committed record and starts over from the default. It runs
// when the streaming interface is reselected or the stream stops.
func (n *Negotiator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StateDefault
	n.probe = n.Default()
	n.committed.Store(nil)
}

// Probe returns the current probe record.
func (n *Negotiator) Probe() descriptors.VideoProbeCommitControl {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.probe
}

// GetProbe answers GET_CUR on the Probe control. A host reading the probe
// has started negotiating.
func (n *Negotiator) GetProbe() descriptors.VideoProbeCommitControl {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state == StateDefault {
		n.state = StateProbing
	}
	return n.probe
}

// SetProbe merges a host proposal over the probe record and settles it on the
// closest parameters the device supports.
func (n *Negotiator) SetProbe(buf []byte) error {
	if !descriptors.ValidProbeCommitLength(len(buf)) {
		return errors.Wrapf(requests.ErrOutOfRange, "probe of %d bytes", len(buf))
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	cand := n.probe
	if err := cand.UnmarshalBinary(buf); err != nil {
		return errors.Wrapf(requests.ErrOutOfRange, "decode probe: %v", err)
	}
	_, fr, ok := n.lookup(&cand)
	if !ok {
		return errors.Wrapf(requests.ErrOutOfRange, "format %d frame %d", cand.FormatIndex, cand.FrameIndex)
	}

	if cand.FrameInterval == 0 {
		cand.FrameInterval = fr.DefaultInterval
	} else {
		cand.FrameInterval = fr.NearestInterval(cand.FrameInterval)
	}
	if cand.BitRate == 0 {
		cand.BitRate = fr.DefaultBitRate
	} else {
		cand.BitRate = fr.ClampBitRate(cand.BitRate)
	}
	cand.CompQuality = min(cand.CompQuality, maxCompQuality)
	n.deviceFields(&cand, fr)

	n.probe = cand
	n.state = StateProbing
	return nil
}

// Commit fixes the stream parameters. An empty buf commits the current probe.
// The committed record is unchanged on failure.
func (n *Negotiator) Commit(buf []byte) error {
	if len(buf) > 0 && !descriptors.ValidProbeCommitLength(len(buf)) {
		return errors.Wrapf(requests.ErrOutOfRange, "commit of %d bytes", len(buf))
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	cand := n.probe
	if len(buf) > 0 {
		if err := cand.UnmarshalBinary(buf); err != nil {
			return errors.Wrapf(requests.ErrOutOfRange, "decode commit: %v", err)
		}
	}
	f, fr, ok := n.lookup(&cand)
	if !ok {
		return errors.Wrapf(requests.ErrInvalidParameterCombination, "format %d frame %d", cand.FormatIndex, cand.FrameIndex)
	}
	if len(buf) > 0 && len(buf) < descriptors.VideoProbeCommitLength {
		// the host never saw the resolution fields
		cand.Width, cand.Height = fr.Width, fr.Height
	}
	if err := validate(cand, f, fr); err != nil {
		return err
	}
	n.deviceFields(&cand, fr)

	committed := cand
	n.committed.Store(&committed)
	n.probe = cand
	n.state = StateCommitted
	return nil
}

func validate(rec descriptors.VideoProbeCommitControl, f formats.Format, fr formats.Frame) error {
	switch {
	case !fr.HasInterval(rec.FrameInterval):
		return errors.Wrapf(requests.ErrInvalidParameterCombination, "interval %v not offered by frame %d", rec.FrameInterval, fr.Index)
	case rec.BitRate > f.PeakBitRate():
		return errors.Wrapf(requests.ErrInvalidParameterCombination, "bitrate %d above format peak %d", rec.BitRate, f.PeakBitRate())
	case rec.Width != fr.Width || rec.Height != fr.Height:
		return errors.Wrapf(requests.ErrInvalidParameterCombination, "%dx%d does not match frame %dx%d", rec.Width, rec.Height, fr.Width, fr.Height)
	}
	return nil
}

// Committed answers GET_CUR on the Commit control.
func (n *Negotiator) Committed() (descriptors.VideoProbeCommitControl, error) {
	rec, ok := n.Current()
	if !ok {
		return rec, requests.ErrNotCommittedYet
	}
	return rec, nil
}

// Current is the committed record as seen by the streaming path.
func (n *Negotiator) Current() (descriptors.VideoProbeCommitControl, bool) {
	rec := n.committed.Load()
	if rec == nil {
		return descriptors.VideoProbeCommitControl{}, false
	}
	return *rec, true
}

// Locked reports whether stream parameters are committed. A host probing
// again after a commit does not release the lock; only Reset does.
func (n *Negotiator) Locked() bool {
	return n.committed.Load() != nil
}

// Query answers the attribute requests on Probe and Commit.
func (n *Negotiator) Query(selector descriptors.VideoStreamingInterfaceControlSelector, rc requests.RequestCode) ([]byte, error) {
	switch selector {
	case descriptors.VideoStreamingInterfaceControlSelectorProbe:
	case descriptors.VideoStreamingInterfaceControlSelectorCommit:
		if rc != requests.RequestCodeGetLen && rc != requests.RequestCodeGetInfo {
			return nil, errors.Wrapf(requests.ErrOpNotPermitted, "%v on commit", rc)
		}
	default:
		return nil, errors.Wrapf(requests.ErrUnknownControl, "streaming selector 0x%02x", int(selector))
	}

	switch rc {
	case requests.RequestCodeGetLen:
		return binary.LittleEndian.AppendUint16(nil, descriptors.VideoProbeCommitLength), nil
	case requests.RequestCodeGetInfo:
		return []byte{infoGetSet}, nil
	case requests.RequestCodeGetDef:
		rec := n.Default()
		return rec.MarshalBinary()
	case requests.RequestCodeGetMin, requests.RequestCodeGetMax:
		rec := n.Probe()
		_, fr, _ := n.lookup(&rec)
		if rc == requests.RequestCodeGetMin {
			rec.FrameInterval = fr.Intervals[0]
			rec.BitRate = fr.MinBitRate
			rec.CompQuality = 0
		} else {
			rec.FrameInterval = fr.Intervals[len(fr.Intervals)-1]
			rec.BitRate = fr.MaxBitRate
			rec.CompQuality = maxCompQuality
		}
		return rec.MarshalBinary()
	}
	return nil, errors.Wrapf(requests.ErrOpNotPermitted, "%v on probe", rc)
}
