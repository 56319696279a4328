// Package dispatch answers UVC class-specific control requests on the
// VideoControl and VideoStreaming interfaces.
package dispatch

import (
	"sync"

	"github.com/efficientgo/core/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kevmo314/go-uvc-device/pkg/controls"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/negotiator"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

const (
	ControlInterface   = 0
	StreamingInterface = 1

	infoGetOnly = controls.InfoSupportsGet
)

type Status int

const (
	StatusOK Status = iota
	StatusStall
)

func (s Status) String() string {
	if s == StatusOK {
		return "ok"
	}
	return "stall"
}

// Response is what the data and status stages of a control transfer carry.
// Err is set exactly when Status is StatusStall.
type Response struct {
	Status Status
	Data   []byte
	Err    error
}

// Route is where a decoded request ended up.
type Route string

const (
	RouteRejected    Route = "rejected"
	RouteUnit        Route = "unit"
	RouteProbeCommit Route = "probe_commit"
	RouteInterface   Route = "interface"
)

type Option func(*Dispatcher)

func WithLogger(logger log.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		d.reg = reg
	}
}

type Dispatcher struct {
	registry   *controls.Registry
	negotiator *negotiator.Negotiator
	logger     log.Logger
	reg        prometheus.Registerer

	mu sync.Mutex
	// lastError backs the VC Request Error Code Control.
	lastError requests.ErrorCode

	requestsTotal *prometheus.CounterVec
	stallsTotal   *prometheus.CounterVec
}

func New(registry *controls.Registry, n *negotiator.Negotiator, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   registry,
		negotiator: n,
		logger:     log.NewNopLogger(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uvc_control_requests_total",
			Help: "The number of class-specific control requests handled.",
		}, []string{"route", "request", "result"}),
		stallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uvc_control_stalls_total",
			Help: "The number of control requests answered with a stall, by error code.",
		}, []string{"error"}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.reg != nil {
		d.reg.MustRegister(d.requestsTotal, d.stallsTotal)
	}
	return d
}

// LastError is the code the Request Error Code Control currently reports.
func (d *Dispatcher) LastError() requests.ErrorCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastError
}

// Reset clears the last request error, as on a bus reset.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	d.lastError = requests.ErrorCodeNoError
	d.mu.Unlock()
}

// decode checks the parts of the setup packet that do not depend on the
// addressed entity.
func decode(setup *requests.SetupPacket, payload []byte) (requests.RequestCode, error) {
	if setup == nil {
		return 0, errors.Wrap(requests.ErrNotAClassRequest, "no setup packet")
	}
	rt := requests.RequestType(setup.RequestType)
	if rt != requests.RequestTypeVideoInterfaceSetRequest && rt != requests.RequestTypeVideoInterfaceGetRequest {
		return 0, errors.Wrapf(requests.ErrNotAClassRequest, "bmRequestType 0x%02x", setup.RequestType)
	}
	rc := requests.RequestCode(setup.Request)
	if !rc.Supported() {
		return rc, errors.Wrapf(requests.ErrUnsupportedRequestCode, "bRequest 0x%02x", setup.Request)
	}
	if rc.IsGet() != setup.IsDeviceToHost() {
		return rc, errors.Wrapf(requests.ErrUnsupportedRequestCode, "%v with bmRequestType 0x%02x", rc, setup.RequestType)
	}
	if !rc.IsGet() && len(payload) != int(setup.Length) {
		return rc, errors.Wrapf(requests.ErrOutOfRange, "payload of %d bytes for wLength %d", len(payload), setup.Length)
	}
	return rc, nil
}

// Dispatch handles one class request. payload is the OUT data stage of a
// SET_CUR and is ignored for GET requests.
func (d *Dispatcher) Dispatch(setup *requests.SetupPacket, payload []byte) Response {
	route := RouteRejected
	rc, err := decode(setup, payload)

	var data []byte
	if err == nil {
		route, data, err = d.route(setup, rc, payload)
	}

	// a successful read of the error code reports it without replacing it
	readsCode := route == RouteInterface && rc == requests.RequestCodeGetCur && err == nil &&
		setup.Selector() == uint8(descriptors.VideoControlInterfaceControlSelectorRequestErrorCode)
	if !readsCode {
		d.mu.Lock()
		d.lastError = requests.CodeOf(err)
		d.mu.Unlock()
	}

	logger := d.logger
	if setup != nil {
		logger = log.With(logger, "request", rc, "selector", setup.Selector(), "unit", setup.EntityID(), "interface", setup.InterfaceNumber())
	}
	if err != nil {
		code := requests.CodeOf(err)
		_ = level.Warn(logger).Log("msg", "stalling control request", "route", route, "err", err)
		d.requestsTotal.WithLabelValues(string(route), rc.String(), StatusStall.String()).Inc()
		d.stallsTotal.WithLabelValues(code.String()).Inc()
		return Response{Status: StatusStall, Err: err}
	}
	_ = level.Debug(logger).Log("msg", "handled control request", "route", route)
	d.requestsTotal.WithLabelValues(string(route), rc.String(), StatusOK.String()).Inc()

	if rc.IsGet() && len(data) > int(setup.Length) {
		data = data[:setup.Length]
	}
	return Response{Status: StatusOK, Data: data}
}

func (d *Dispatcher) route(setup *requests.SetupPacket, rc requests.RequestCode, payload []byte) (Route, []byte, error) {
	selector, unitID, iface := setup.Selector(), setup.EntityID(), setup.InterfaceNumber()
	switch {
	case iface == StreamingInterface &&
		(selector == uint8(descriptors.VideoStreamingInterfaceControlSelectorProbe) ||
			selector == uint8(descriptors.VideoStreamingInterfaceControlSelectorCommit)):
		data, err := d.probeCommit(descriptors.VideoStreamingInterfaceControlSelector(selector), rc, payload)
		return RouteProbeCommit, data, err
	case iface == ControlInterface && unitID == 0:
		data, err := d.interfaceControl(selector, rc)
		return RouteInterface, data, err
	case iface == ControlInterface:
		data, err := d.unit(unitID, selector, rc, payload)
		return RouteUnit, data, err
	}
	return RouteRejected, nil, errors.Wrapf(requests.ErrUnknownControl, "selector 0x%02x on interface %d entity %d", selector, iface, unitID)
}

func (d *Dispatcher) probeCommit(selector descriptors.VideoStreamingInterfaceControlSelector, rc requests.RequestCode, payload []byte) ([]byte, error) {
	probe := selector == descriptors.VideoStreamingInterfaceControlSelectorProbe
	switch rc {
	case requests.RequestCodeSetCur:
		if probe {
			return nil, d.negotiator.SetProbe(payload)
		}
		return nil, d.negotiator.Commit(payload)
	case requests.RequestCodeGetCur:
		if probe {
			rec := d.negotiator.GetProbe()
			return rec.MarshalBinary()
		}
		rec, err := d.negotiator.Committed()
		if err != nil {
			return nil, err
		}
		return rec.MarshalBinary()
	}
	return d.negotiator.Query(selector, rc)
}

func (d *Dispatcher) interfaceControl(selector uint8, rc requests.RequestCode) ([]byte, error) {
	if selector != uint8(descriptors.VideoControlInterfaceControlSelectorRequestErrorCode) {
		return nil, errors.Wrapf(requests.ErrUnknownControl, "interface selector 0x%02x", selector)
	}
	switch rc {
	case requests.RequestCodeGetCur:
		return []byte{byte(d.LastError())}, nil
	case requests.RequestCodeGetInfo:
		return []byte{infoGetOnly}, nil
	}
	return nil, errors.Wrapf(requests.ErrOpNotPermitted, "%v on request error code control", rc)
}

func (d *Dispatcher) unit(unitID, selector uint8, rc requests.RequestCode, payload []byte) ([]byte, error) {
	switch rc {
	case requests.RequestCodeGetCur:
		return d.registry.Read(unitID, selector)
	case requests.RequestCodeSetCur:
		return nil, d.registry.Write(unitID, selector, payload)
	}
	return d.registry.Query(unitID, selector, rc)
}
