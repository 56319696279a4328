package usbip

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/efficientgo/core/errors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

const (
	opTimeout = 5 * time.Second

	dataWarningsPerSecond = 1
	dataWarningsBurst     = 5
)

// Handler answers control transfers on endpoint 0.
type Handler interface {
	HandleSetup(setup *requests.SetupPacket, data []byte) ([]byte, error)
	// Reset is called when the importing host goes away.
	Reset()
}

// Server exports one device to at most one importing host at a time.
type Server struct {
	info    DeviceInfo
	handler Handler
	logger  log.Logger

	// data endpoint URBs can arrive at frame rate
	warnLimit *rate.Limiter

	mu       sync.Mutex
	attached bool
	closing  bool
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup

	// metrics
	urbsTotal        *prometheus.CounterVec
	connectionsTotal *prometheus.CounterVec
	attachedGauge    prometheus.Gauge
}

func NewServer(info DeviceInfo, handler Handler, logger log.Logger, reg prometheus.Registerer) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		info:      info,
		handler:   handler,
		logger:    logger,
		warnLimit: rate.NewLimiter(dataWarningsPerSecond, dataWarningsBurst),
		conns:     make(map[net.Conn]struct{}),
		urbsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usbip_urbs_total",
			Help: "The number of URBs answered, by endpoint and result.",
		}, []string{"endpoint", "result"}),
		connectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "usbip_connections_total",
			Help: "The number of USB/IP connections, by operation.",
		}, []string{"op"}),
		attachedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "usbip_attached",
			Help: "Whether a host currently has the device imported.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.urbsTotal, s.connectionsTotal, s.attachedGauge)
	}
	return s
}

// Serve accepts connections on l until ctx is cancelled. It closes l and
// every open connection before returning.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	_ = level.Info(s.logger).Log("msg", "serving usbip", "addr", l.Addr(), "busid", s.info.BusID())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = l.Close()
		s.closeAll()
	}()

	var err error
	for {
		var conn net.Conn
		conn, err = l.Accept()
		if err != nil {
			break
		}
		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			if err := s.handleConn(conn); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				_ = level.Warn(s.logger).Log("msg", "usbip connection failed", "remote", conn.RemoteAddr(), "err", err)
			}
		}()
	}
	stopped := ctx.Err() != nil
	cancel()
	s.wg.Wait()
	if stopped && errors.Is(err, net.ErrClosed) {
		return nil
	}
	return errors.Wrap(err, "failed to accept usbip connection")
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// Attached reports whether a host has the device imported.
func (s *Server) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *Server) attach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return false
	}
	s.attached = true
	s.attachedGauge.Set(1)
	return true
}

func (s *Server) detach() {
	s.mu.Lock()
	s.attached = false
	s.attachedGauge.Set(0)
	s.mu.Unlock()
	s.handler.Reset()
}

func (s *Server) handleConn(conn net.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(opTimeout)); err != nil {
		return err
	}
	var hdr opHeader
	if err := binary.Read(conn, binary.BigEndian, &hdr); err != nil {
		return errors.Wrap(err, "failed to read op header")
	}
	if hdr.Version != Version {
		s.connectionsTotal.WithLabelValues("bad_version").Inc()
		return errors.Wrapf(ErrProtocol, "version 0x%04x", hdr.Version)
	}

	switch hdr.Code {
	case opReqDevlist:
		s.connectionsTotal.WithLabelValues("devlist").Inc()
		return s.devlist(conn)
	case opReqImport:
		s.connectionsTotal.WithLabelValues("import").Inc()
		return s.importDevice(conn)
	}
	s.connectionsTotal.WithLabelValues("unknown").Inc()
	return errors.Wrapf(ErrUnknownCommand, "op 0x%04x", hdr.Code)
}

func (s *Server) devlist(conn net.Conn) error {
	reply := devlistReply{opHeader: opHeader{Version: Version, Code: opRepDevlist}, NumDevices: 1}
	if err := binary.Write(conn, binary.BigEndian, reply); err != nil {
		return errors.Wrap(err, "failed to write devlist reply")
	}
	if err := binary.Write(conn, binary.BigEndian, s.info.Description); err != nil {
		return errors.Wrap(err, "failed to write device description")
	}
	if err := binary.Write(conn, binary.BigEndian, s.info.Interfaces); err != nil {
		return errors.Wrap(err, "failed to write interfaces")
	}
	return nil
}

func (s *Server) importDevice(conn net.Conn) error {
	var req importRequest
	if err := binary.Read(conn, binary.BigEndian, &req); err != nil {
		return errors.Wrap(err, "failed to read import request")
	}
	busID := cString(req.BusID[:])

	if busID != s.info.BusID() || !s.attach() {
		_ = level.Warn(s.logger).Log("msg", "refusing import", "busid", busID, "remote", conn.RemoteAddr())
		return binary.Write(conn, binary.BigEndian, opHeader{Version: Version, Code: opRepImport, Status: statusError})
	}
	defer s.detach()

	if err := binary.Write(conn, binary.BigEndian, opHeader{Version: Version, Code: opRepImport, Status: statusOK}); err != nil {
		return errors.Wrap(err, "failed to write import reply")
	}
	if err := binary.Write(conn, binary.BigEndian, s.info.Description); err != nil {
		return errors.Wrap(err, "failed to write device description")
	}
	_ = level.Info(s.logger).Log("msg", "device imported", "busid", busID, "remote", conn.RemoteAddr())
	defer func() {
		_ = level.Info(s.logger).Log("msg", "device released", "busid", busID, "remote", conn.RemoteAddr())
	}()

	// URBs arrive whenever the host needs them
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}
	return s.serveURBs(conn)
}

func (s *Server) serveURBs(conn net.Conn) error {
	for {
		var h urbHeader
		if err := binary.Read(conn, binary.BigEndian, &h); err != nil {
			return err
		}
		switch h.Command {
		case cmdSubmit:
			sub, err := readSubmit(conn, h)
			if err != nil {
				return err
			}
			if err := s.submit(conn, sub); err != nil {
				return errors.Wrap(err, "failed to write submit reply")
			}
		case cmdUnlink:
			var cmd unlinkCommand
			if err := binary.Read(conn, binary.BigEndian, &cmd); err != nil {
				return errors.Wrap(err, "failed to read unlink command")
			}
			// every submit has already completed, so there is nothing to cancel
			s.urbsTotal.WithLabelValues("unlink", "ok").Inc()
			if err := binary.Write(conn, binary.BigEndian, unlinkReply{urbHeader: replyHeader(retUnlink, h.SeqNum)}); err != nil {
				return errors.Wrap(err, "failed to write unlink reply")
			}
		default:
			return errors.Wrapf(ErrUnknownCommand, "urb command 0x%08x", h.Command)
		}
	}
}

func (s *Server) submit(w io.Writer, sub *submit) error {
	if sub.header.Endpoint != 0 {
		if s.warnLimit.Allow() {
			_ = level.Warn(s.logger).Log("msg", "stalling data endpoint urb", "ep", sub.header.Endpoint,
				"direction", sub.header.Direction, "length", sub.cmd.TransferBufferLength, "packets", len(sub.iso))
		}
		s.urbsTotal.WithLabelValues("data", "stall").Inc()
		return writeSubmitReply(w, sub, errnoPipe, 0, nil)
	}

	setup, err := requests.ParseSetupPacket(sub.cmd.Setup[:])
	if err != nil {
		return err
	}
	data, err := s.handler.HandleSetup(setup, sub.payload)
	if err != nil {
		_ = level.Debug(s.logger).Log("msg", "stalling control urb", "setup", setup, "err", err)
		s.urbsTotal.WithLabelValues("control", "stall").Inc()
		return writeSubmitReply(w, sub, errnoPipe, 0, nil)
	}
	if n := int(sub.cmd.TransferBufferLength); len(data) > n {
		data = data[:n]
	}
	s.urbsTotal.WithLabelValues("control", "ok").Inc()
	return writeSubmitReply(w, sub, 0, len(sub.payload), data)
}
