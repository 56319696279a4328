package controls

import (
	"encoding/binary"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/requests"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

var (
	ErrSelectorGap       = errors.New("selector codes are not contiguous")
	ErrSelectorDuplicate = errors.New("duplicate selector code")
	ErrInvalidSelector   = errors.New("invalid selector definition")
)

type unit struct {
	node      units.Node
	selectors []Selector
}

// Registry answers control requests for every unit and terminal of the
// video function.
type Registry struct {
	graph units.Graph
	units map[uint8]*unit
	store Store

	mu     sync.RWMutex
	locked func() bool
}

type Option func(*options)

type options struct {
	store       Store
	locked      func() bool
	definitions func(units.Kind) ([]Selector, error)
}

// WithStore sets where current values live. The default is a MemoryStore.
func WithStore(s Store) Option {
	return func(o *options) { o.store = s }
}

// WithStreamLock reports whether stream parameters are committed, which
// makes Locked selectors Busy.
func WithStreamLock(locked func() bool) Option {
	return func(o *options) { o.locked = locked }
}

// WithDefinitions replaces the per-kind selector tables.
func WithDefinitions(fn func(units.Kind) ([]Selector, error)) Option {
	return func(o *options) { o.definitions = fn }
}

func NewRegistry(graph units.Graph, opts ...Option) (*Registry, error) {
	o := options{definitions: Definitions}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = NewMemoryStore()
	}
	if o.locked == nil {
		o.locked = func() bool { return false }
	}
	if err := units.Validate(graph); err != nil {
		return nil, err
	}

	r := &Registry{
		graph:  append(units.Graph(nil), graph...),
		units:  make(map[uint8]*unit, len(graph)),
		store:  o.store,
		locked: o.locked,
	}
	tables := make(map[units.Kind][]Selector)
	for _, n := range graph {
		sels, ok := tables[n.Kind]
		if !ok {
			var err error
			if sels, err = o.definitions(n.Kind); err != nil {
				return nil, err
			}
			if err := checkSelectors(n.Kind, sels); err != nil {
				return nil, err
			}
			tables[n.Kind] = sels
		}
		r.units[n.ID] = &unit{node: n, selectors: sels}
	}
	return r, nil
}

func MustNewRegistry(graph units.Graph, opts ...Option) *Registry {
	r, err := NewRegistry(graph, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// checkSelectors requires codes 1..N in order.
func checkSelectors(kind units.Kind, sels []Selector) error {
	for i := range sels {
		s := &sels[i]
		if i > 0 && s.Code == sels[i-1].Code {
			return errors.Wrapf(ErrSelectorDuplicate, "%v selector 0x%02x", kind, s.Code)
		}
		if int(s.Code) != i+1 {
			return errors.Wrapf(ErrSelectorGap, "%v selector 0x%02x at position %d", kind, s.Code, i+1)
		}
		if s.Kind != kind {
			return errors.Wrapf(ErrInvalidSelector, "%v selector 0x%02x is declared for %v", kind, s.Code, s.Kind)
		}
		if !s.Supported() {
			continue
		}
		if len(s.Fields) == 0 || s.Bit < 0 || s.Bit >= 32 {
			return errors.Wrapf(ErrInvalidSelector, "%v selector 0x%02x", kind, s.Code)
		}
		for _, f := range s.Fields {
			switch f.Size {
			case 1, 2, 4, 8:
			default:
				return errors.Wrapf(ErrInvalidSelector, "%v selector 0x%02x has a %d byte field", kind, s.Code, f.Size)
			}
		}
	}
	return nil
}

// SetStreamLock replaces the stream lock after construction.
func (r *Registry) SetStreamLock(locked func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = locked
}

func (r *Registry) streamLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked()
}

func (r *Registry) Graph() units.Graph {
	return r.graph
}

func (r *Registry) Lookup(unitID, code uint8) (*Selector, bool) {
	s, err := r.find(unitID, code)
	return s, err == nil
}

func (r *Registry) find(unitID, code uint8) (*Selector, error) {
	u, ok := r.units[unitID]
	if !ok {
		return nil, errors.Wrapf(requests.ErrUnknownEntity, "unit %d", unitID)
	}
	if code == 0 || int(code) > len(u.selectors) {
		return nil, errors.Wrapf(requests.ErrUnknownControl, "unit %d selector 0x%02x", unitID, code)
	}
	return &u.selectors[code-1], nil
}

// Selectors returns the definitions of a unit in code order.
func (r *Registry) Selectors(unitID uint8) []Selector {
	u, ok := r.units[unitID]
	if !ok {
		return nil
	}
	return u.selectors
}

// Bitmap is the unit's bmControls: one bit per supported selector.
func (r *Registry) Bitmap(unitID uint8) uint32 {
	return r.bitmap(unitID, false)
}

// RuntimeBitmap leaves out the selectors that are Locked while streaming.
func (r *Registry) RuntimeBitmap(unitID uint8) uint32 {
	return r.bitmap(unitID, true)
}

func (r *Registry) bitmap(unitID uint8, runtime bool) uint32 {
	var bm uint32
	for _, s := range r.Selectors(unitID) {
		if !s.Supported() || (runtime && s.Locked) {
			continue
		}
		bm |= 1 << s.Bit
	}
	return bm
}

// Read returns the current value of a control.
func (r *Registry) Read(unitID, code uint8) ([]byte, error) {
	s, err := r.find(unitID, code)
	if err != nil {
		return nil, err
	}
	if s.Ops&OpGetCur == 0 {
		return nil, errors.Wrapf(requests.ErrOpNotPermitted, "GET_CUR on %s", s.Name)
	}
	v, err := r.store.Load(unitID, code)
	if errors.Is(err, ErrNotStored) {
		return s.Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", s.Name)
	}
	return v, nil
}

// Write validates value and stores it. Nothing is stored unless every check
// passes.
func (r *Registry) Write(unitID, code uint8, value []byte) error {
	s, err := r.validate(unitID, code, value)
	if err != nil {
		return err
	}
	if s.Locked && r.streamLocked() {
		return errors.Wrapf(requests.ErrBusy, "%s is locked while streaming parameters are committed", s.Name)
	}
	return r.store.Save(unitID, code, value)
}

// Seed stores an initial value. It is checked like a write but ignores the
// stream lock.
func (r *Registry) Seed(unitID, code uint8, value []byte) error {
	if _, err := r.validate(unitID, code, value); err != nil {
		return err
	}
	return r.store.Save(unitID, code, value)
}

func (r *Registry) validate(unitID, code uint8, value []byte) (*Selector, error) {
	s, err := r.find(unitID, code)
	if err != nil {
		return nil, err
	}
	if s.Ops&OpSetCur == 0 {
		return nil, errors.Wrapf(requests.ErrOpNotPermitted, "SET_CUR on %s", s.Name)
	}
	if len(value) != s.Width() {
		return nil, errors.Wrapf(requests.ErrOutOfRange, "%s takes %d bytes, got %d", s.Name, s.Width(), len(value))
	}
	for i, v := range s.Decode(value) {
		if !s.Fields[i].accepts(v) {
			return nil, errors.Wrapf(requests.ErrOutOfRange, "%s field %d = %d", s.Name, i, v)
		}
	}
	return s, nil
}

// Query answers the attribute requests: GET_MIN, GET_MAX, GET_RES, GET_DEF,
// GET_LEN and GET_INFO. It never reads the store.
func (r *Registry) Query(unitID, code uint8, rc requests.RequestCode) ([]byte, error) {
	s, err := r.find(unitID, code)
	if err != nil {
		return nil, err
	}
	op := OpFor(rc)
	if op == 0 || op == OpGetCur || op == OpSetCur {
		return nil, errors.Wrapf(requests.ErrUnsupportedRequestCode, "%v is not an attribute request", rc)
	}
	if s.Ops&op == 0 {
		return nil, errors.Wrapf(requests.ErrOpNotPermitted, "%v on %s", rc, s.Name)
	}
	switch rc {
	case requests.RequestCodeGetMin:
		return s.Encode(func(f Field) int64 { return f.Min }), nil
	case requests.RequestCodeGetMax:
		return s.Encode(func(f Field) int64 { return f.Max }), nil
	case requests.RequestCodeGetRes:
		return s.Encode(func(f Field) int64 { return f.Res }), nil
	case requests.RequestCodeGetDef:
		return s.Default(), nil
	case requests.RequestCodeGetLen:
		return binary.LittleEndian.AppendUint16(nil, uint16(s.Width())), nil
	default:
		return []byte{s.Info(r.streamLocked())}, nil
	}
}
