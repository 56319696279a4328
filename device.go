package uvc

import (
	"sync"
	"sync/atomic"

	"github.com/efficientgo/core/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/controls"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/dispatch"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/negotiator"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

// ControlValue is a control's initial value.
type ControlValue struct {
	Unit     uint8
	Selector uint8
	Value    []byte
}

type options struct {
	speed     catalog.Speed
	transport catalog.Transport
	identity  catalog.Identity
	logger    log.Logger
	reg       prometheus.Registerer
	store     controls.Store
	maxBurst  uint8
	values    []ControlValue
}

type Option func(*options)

func WithSpeed(speed catalog.Speed) Option {
	return func(o *options) { o.speed = speed }
}

func WithTransport(transport catalog.Transport) Option {
	return func(o *options) { o.transport = transport }
}

func WithIdentity(id catalog.Identity) Option {
	return func(o *options) { o.identity = id }
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithStore keeps control values somewhere other than memory.
func WithStore(store controls.Store) Option {
	return func(o *options) { o.store = store }
}

// WithMaxBurst sets the SuperSpeed video endpoint burst, 0 to 15.
func WithMaxBurst(burst uint8) Option {
	return func(o *options) { o.maxBurst = burst }
}

func WithControlValues(values []ControlValue) Option {
	return func(o *options) { o.values = append(o.values, values...) }
}

// Device is the control plane of one camera function. It owns the descriptor
// set, the control values and the stream negotiation, and answers the control
// transfers a transport hands it.
type Device struct {
	identity   catalog.Identity
	catalog    *catalog.Catalog
	registry   *controls.Registry
	negotiator *negotiator.Negotiator
	dispatcher *dispatch.Dispatcher
	logger     log.Logger

	mu            sync.Mutex
	configuration uint8
	alternates    [2]uint8
	halted        map[uint8]bool

	streaming atomic.Bool
}

func NewDevice(opts ...Option) (*Device, error) {
	o := options{
		speed:     catalog.SpeedSuper,
		transport: catalog.TransportIsochronous,
		identity:  catalog.DefaultIdentity(),
		logger:    log.NewNopLogger(),
		maxBurst:  catalog.DefaultMaxBurst,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var regOpts []controls.Option
	if o.store != nil {
		regOpts = append(regOpts, controls.WithStore(o.store))
	}
	registry, err := controls.NewRegistry(units.Default, regOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "build unit registry")
	}
	for _, v := range o.values {
		if err := registry.Seed(v.Unit, v.Selector, v.Value); err != nil {
			return nil, errors.Wrapf(err, "seed unit %d selector 0x%02x", v.Unit, v.Selector)
		}
	}

	cfg := catalog.DefaultConfig(o.speed, o.transport)
	cfg.Controls = registry
	cfg.MaxBurst = o.maxBurst
	cat, err := catalog.New(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "build %v %v descriptors", o.speed, o.transport)
	}

	n := negotiator.New(cfg.Formats, negotiator.Limits{
		MaxPayloadTransferSize: cat.MaxPayloadTransferSize(),
		ClockFrequency:         catalog.ClockFrequency,
	})
	registry.SetStreamLock(n.Locked)

	d := &Device{
		identity:   o.identity,
		catalog:    cat,
		registry:   registry,
		negotiator: n,
		dispatcher: dispatch.New(registry, n,
			dispatch.WithLogger(log.With(o.logger, "component", "dispatch")),
			dispatch.WithRegisterer(o.reg)),
		logger: o.logger,
		halted: make(map[uint8]bool),
	}
	_ = level.Info(d.logger).Log("msg", "device ready", "speed", o.speed, "transport", o.transport, "descriptors", cat.TotalLength())
	return d, nil
}

// DescriptorBytes returns the configuration descriptor set the device would
// report at speed over transport.
func (d *Device) DescriptorBytes(speed catalog.Speed, transport catalog.Transport) ([]byte, error) {
	if speed == d.catalog.Speed() && transport == d.catalog.Transport() {
		return d.catalog.Bytes(), nil
	}
	return catalog.Build(speed, transport)
}

// CurrentCommitted is what the streaming path starts from. It never blocks
// on the control path.
func (d *Device) CurrentCommitted() (descriptors.VideoProbeCommitControl, bool) {
	return d.negotiator.Current()
}

// CommittedFormat resolves the committed record against the format table.
func (d *Device) CommittedFormat() (formats.Format, formats.Frame, bool) {
	rec, ok := d.negotiator.Current()
	if !ok {
		return formats.Format{}, formats.Frame{}, false
	}
	f, ok := d.catalog.Formats().Format(rec.FormatIndex)
	if !ok {
		return formats.Format{}, formats.Frame{}, false
	}
	fr, ok := f.Frame(rec.FrameIndex)
	return f, fr, ok
}

// SelectInterface applies a SET_INTERFACE.
func (d *Device) SelectInterface(iface, alt uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selectInterface(iface, alt)
}

func (d *Device) selectInterface(iface, alt uint8) error {
	switch iface {
	case catalog.ControlInterface:
		if alt != 0 {
			return errors.Wrapf(ErrInvalidAlternateSetting, "interface %d alt %d", iface, alt)
		}
	case catalog.StreamingInterface:
		switch {
		case alt == 0:
			d.stopStream()
			d.negotiator.Reset()
		case alt == 1 && d.catalog.Transport() == catalog.TransportIsochronous:
			if _, err := d.negotiator.Committed(); err != nil {
				return err
			}
			d.startStream()
		default:
			return errors.Wrapf(ErrInvalidAlternateSetting, "interface %d alt %d", iface, alt)
		}
	default:
		return errors.Wrapf(ErrInvalidInterface, "interface %d", iface)
	}
	d.alternates[iface] = alt
	return nil
}

func (d *Device) startStream() {
	if !d.streaming.Swap(true) {
		rec, _ := d.negotiator.Current()
		_ = level.Info(d.logger).Log("msg", "stream started", "format", rec.FormatIndex, "frame", rec.FrameIndex, "interval", rec.FrameInterval)
	}
}

func (d *Device) stopStream() {
	if d.streaming.Swap(false) {
		_ = level.Info(d.logger).Log("msg", "stream stopped")
	}
}

// StopStream ends streaming and releases the committed parameters.
func (d *Device) StopStream() {
	d.stopStream()
	d.negotiator.Reset()
}

func (d *Device) Streaming() bool {
	return d.streaming.Load()
}

// Reset returns the device to its unconfigured state, as on a bus reset or a
// detach. Stored control values survive.
func (d *Device) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopStream()
	d.negotiator.Reset()
	d.dispatcher.Reset()
	d.configuration = 0
	d.alternates = [2]uint8{}
	clear(d.halted)
}

// HandleSetup answers one control transfer. data is the OUT data stage, and
// the returned bytes are the IN data stage. An error means stall.
func (d *Device) HandleSetup(setup *requests.SetupPacket, data []byte) ([]byte, error) {
	if setup == nil {
		return nil, errors.Wrap(requests.ErrNotAClassRequest, "no setup packet")
	}
	switch setup.Type() {
	case requests.RequestTypeClass:
		res := d.dispatcher.Dispatch(setup, data)
		if res.Status != dispatch.StatusOK {
			return nil, res.Err
		}
		d.afterClassRequest(setup)
		return res.Data, nil
	case requests.RequestTypeStandard:
		return d.handleStandard(setup, data)
	}
	return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "request type 0x%02x", setup.RequestType)
}

// afterClassRequest starts a bulk stream on a successful commit. Bulk video
// has no alternate setting to select.
func (d *Device) afterClassRequest(setup *requests.SetupPacket) {
	if d.catalog.Transport() != catalog.TransportBulk {
		return
	}
	if requests.RequestCode(setup.Request) == requests.RequestCodeSetCur &&
		setup.InterfaceNumber() == catalog.StreamingInterface &&
		setup.Selector() == uint8(descriptors.VideoStreamingInterfaceControlSelectorCommit) {
		d.startStream()
	}
}

func (d *Device) Registry() *controls.Registry {
	return d.registry
}

func (d *Device) Negotiator() *negotiator.Negotiator {
	return d.negotiator
}

func (d *Device) Catalog() *catalog.Catalog {
	return d.catalog
}

func (d *Device) Identity() catalog.Identity {
	return d.identity
}

func (d *Device) Speed() catalog.Speed {
	return d.catalog.Speed()
}

func (d *Device) Transport() catalog.Transport {
	return d.catalog.Transport()
}

// LastError is the code the VC Request Error Code Control reports.
func (d *Device) LastError() requests.ErrorCode {
	return d.dispatcher.LastError()
}
