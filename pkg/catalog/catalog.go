// Package catalog builds the configuration descriptor set the camera reports
// for each bus speed and video transport.
package catalog

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/efficientgo/core/errors"
	"github.com/google/uuid"

	"github.com/kevmo314/go-uvc-device/pkg/controls"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

type Speed int

const (
	SpeedFull Speed = iota + 1
	SpeedHigh
	SpeedSuper
)

func (s Speed) String() string {
	switch s {
	case SpeedFull:
		return "full"
	case SpeedHigh:
		return "high"
	case SpeedSuper:
		return "super"
	}
	return fmt.Sprintf("Speed(%d)", int(s))
}

func ParseSpeed(s string) (Speed, error) {
	switch strings.ToLower(s) {
	case "high", "hs":
		return SpeedHigh, nil
	case "super", "ss":
		return SpeedSuper, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedConfiguration, "speed %q", s)
}

type Transport int

const (
	TransportIsochronous Transport = iota + 1
	TransportBulk
)

func (t Transport) String() string {
	switch t {
	case TransportIsochronous:
		return "isochronous"
	case TransportBulk:
		return "bulk"
	}
	return fmt.Sprintf("Transport(%d)", int(t))
}

func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(s) {
	case "isochronous", "iso":
		return TransportIsochronous, nil
	case "bulk":
		return TransportBulk, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedConfiguration, "transport %q", s)
}

var (
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
	ErrMalformedDescriptor      = errors.New("malformed descriptor")
	ErrSelfCheck                = errors.New("descriptor self-check failed")
)

const (
	ControlInterface   = 0
	StreamingInterface = 1

	InterruptEndpoint = descriptors.EndpointDirectionIn | 2
	VideoEndpoint     = descriptors.EndpointDirectionIn | 1

	// ClockFrequency is the device clock reported in the VC header, in Hz.
	ClockFrequency = 48000000

	DefaultMaxBurst = 15

	interruptPacketSize = 64
	interruptInterval   = 8

	highSpeedBulkPacketSize  = 512
	superSpeedPacketSize     = 1024
	highSpeedIsoPacketSize   = 1024
	highSpeedIsoTransactions = 3

	// bulkPayloadSize is the video payload a bulk transfer carries,
	// one 16 KiB DMA buffer.
	bulkPayloadSize = 16 * 1024

	UVCVersion descriptors.BinaryCodedDecimal = 0x0150
)

// ExtensionUnitGUID identifies the vendor extension unit.
var ExtensionUnitGUID = uuid.MustParse("a29e7641-de04-47e3-8b2b-f4341aff003b")

// Config selects what a catalog describes.
type Config struct {
	Speed     Speed
	Transport Transport
	Formats   formats.Table
	Graph     units.Graph
	// Controls provides bmControls. A registry over Graph is built when nil.
	Controls *controls.Registry
	MaxBurst uint8
}

// DefaultConfig is the camera's own configuration at a speed and transport.
func DefaultConfig(speed Speed, transport Transport) Config {
	return Config{
		Speed:     speed,
		Transport: transport,
		Formats:   formats.Default,
		Graph:     units.Default,
		MaxBurst:  DefaultMaxBurst,
	}
}

// Catalog is an immutable configuration descriptor set.
type Catalog struct {
	cfg      Config
	buf      []byte
	vcTotal  uint16
	vsTotal  uint16
	maxXfer  uint32
	entries  []Entry
	controls *controls.Registry
}

func New(cfg Config) (*Catalog, error) {
	switch cfg.Speed {
	case SpeedHigh, SpeedSuper:
	default:
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "speed %v", cfg.Speed)
	}
	switch cfg.Transport {
	case TransportIsochronous, TransportBulk:
	default:
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "transport %v", cfg.Transport)
	}
	if cfg.MaxBurst > DefaultMaxBurst {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "max burst %d", cfg.MaxBurst)
	}
	if err := cfg.Formats.Validate(); err != nil {
		return nil, err
	}
	if cfg.Controls == nil {
		reg, err := controls.NewRegistry(cfg.Graph)
		if err != nil {
			return nil, err
		}
		cfg.Controls = reg
	}

	c := &Catalog{cfg: cfg, controls: cfg.Controls}
	if err := c.build(); err != nil {
		return nil, err
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c, nil
}

func MustNew(cfg Config) *Catalog {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

type buildKey struct {
	speed     Speed
	transport Transport
}

type build struct {
	once sync.Once
	cat  *Catalog
	err  error
}

var builds = map[buildKey]*build{
	{SpeedHigh, TransportIsochronous}:  {},
	{SpeedHigh, TransportBulk}:         {},
	{SpeedSuper, TransportIsochronous}: {},
	{SpeedSuper, TransportBulk}:        {},
}

// Default returns the shared catalog for a speed and transport. It is built
// on first use.
func Default(speed Speed, transport Transport) (*Catalog, error) {
	b, ok := builds[buildKey{speed, transport}]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "%v speed with %v transport", speed, transport)
	}
	b.once.Do(func() {
		b.cat, b.err = New(DefaultConfig(speed, transport))
	})
	return b.cat, b.err
}

// Build returns the configuration descriptor set for a speed and transport.
func Build(speed Speed, transport Transport) ([]byte, error) {
	c, err := Default(speed, transport)
	if err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// Bytes returns a copy of the descriptor set.
func (c *Catalog) Bytes() []byte {
	return bytes.Clone(c.buf)
}

func (c *Catalog) TotalLength() int {
	return len(c.buf)
}

// ControlTotalLength is the wTotalLength of the VC header.
func (c *Catalog) ControlTotalLength() uint16 {
	return c.vcTotal
}

// StreamingTotalLength is the wTotalLength of the VS input header.
func (c *Catalog) StreamingTotalLength() uint16 {
	return c.vsTotal
}

// MaxPayloadTransferSize is the largest payload the video endpoint moves in
// one service interval, or one transfer for bulk.
func (c *Catalog) MaxPayloadTransferSize() uint32 {
	return c.maxXfer
}

func (c *Catalog) Entries() []Entry {
	return c.entries
}

func (c *Catalog) Speed() Speed {
	return c.cfg.Speed
}

func (c *Catalog) Transport() Transport {
	return c.cfg.Transport
}

func (c *Catalog) Formats() formats.Table {
	return c.cfg.Formats
}

func (c *Catalog) Graph() units.Graph {
	return c.cfg.Graph
}

func (c *Catalog) MaxBurst() uint8 {
	return c.cfg.MaxBurst
}

// Entry locates one descriptor in the set.
type Entry struct {
	Offset    int
	Length    int
	Type      descriptors.DescriptorType
	Subtype   uint8
	Interface uint8
}
