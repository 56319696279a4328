package catalog

import (
	"encoding"
	"iter"

	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
)

var ErrUnknownDescriptor = errors.New("no decoder for descriptor")

// Header is the self-describing prefix every descriptor starts with.
// Subtype is only set for class-specific and capability descriptors.
type Header struct {
	Length  uint8
	Type    descriptors.DescriptorType
	Subtype uint8
}

// Descriptor is one descriptor together with the interface it belongs to.
type Descriptor struct {
	Offset int
	Header
	// Raw is the whole descriptor, header included. It aliases the walked
	// buffer.
	Raw []byte

	Interface         uint8
	AltSetting        uint8
	InterfaceSubclass descriptors.SubclassCode
	// Family is the format family a VS format or frame descriptor belongs to.
	Family formats.Family
}

// Payload is the descriptor after bLength and bDescriptorType.
func (d Descriptor) Payload() []byte {
	return d.Raw[2:]
}

func (d Descriptor) classSpecific() bool {
	return descriptors.ClassSpecificDescriptorType(d.Type) == descriptors.ClassSpecificDescriptorTypeInterface ||
		descriptors.ClassSpecificDescriptorType(d.Type) == descriptors.ClassSpecificDescriptorTypeEndpoint
}

// Walker iterates the descriptors of a configuration descriptor set. It never
// modifies the buffer.
type Walker struct {
	buf []byte
	pos int
	cur Descriptor
	err error

	iface, alt uint8
	subclass   descriptors.SubclassCode
	family     formats.Family
}

func NewWalker(buf []byte) *Walker {
	return &Walker{buf: buf}
}

// Next advances to the next descriptor. It returns false at the end of the
// buffer or on a malformed descriptor, which Err then reports.
func (w *Walker) Next() bool {
	if w.err != nil || w.pos >= len(w.buf) {
		return false
	}
	rest := w.buf[w.pos:]
	if len(rest) < 2 {
		w.err = errors.Wrapf(ErrMalformedDescriptor, "truncated header at offset %d", w.pos)
		return false
	}
	n := int(rest[0])
	if n < 2 {
		w.err = errors.Wrapf(ErrMalformedDescriptor, "length %d at offset %d", n, w.pos)
		return false
	}
	if n > len(rest) {
		w.err = errors.Wrapf(ErrMalformedDescriptor, "length %d overruns buffer at offset %d", n, w.pos)
		return false
	}

	d := Descriptor{
		Offset: w.pos,
		Header: Header{Length: rest[0], Type: descriptors.DescriptorType(rest[1])},
		Raw:    rest[:n:n],
	}
	if n > 2 && (d.classSpecific() || d.Type == descriptors.DescriptorTypeDeviceCapability) {
		d.Subtype = rest[2]
	}

	if d.Type == descriptors.DescriptorTypeInterface && n >= descriptors.InterfaceDescriptorLength {
		w.iface, w.alt, w.subclass = rest[2], rest[3], descriptors.SubclassCode(rest[6])
		w.family = 0
	}
	d.Interface, d.AltSetting, d.InterfaceSubclass = w.iface, w.alt, w.subclass

	if descriptors.ClassSpecificDescriptorType(d.Type) == descriptors.ClassSpecificDescriptorTypeInterface &&
		w.subclass == descriptors.SubclassCodeVideoStreaming {
		st := descriptors.VideoStreamingInterfaceDescriptorSubtype(d.Subtype)
		// a frame of the current family wins over a format sharing its subtype
		if w.family == 0 || formats.Families[w.family].Frame != st {
			if f, ok := formats.FamilyOfFormat(st); ok {
				w.family = f
			}
		}
		d.Family = w.family
	}

	w.cur = d
	w.pos += n
	return true
}

func (w *Walker) Descriptor() Descriptor {
	return w.cur
}

func (w *Walker) Err() error {
	return w.err
}

// Reset rewinds to the start of the buffer.
func (w *Walker) Reset() {
	*w = Walker{buf: w.buf}
}

// All walks the whole buffer from the start. Check Err afterwards.
func (w *Walker) All() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		w.Reset()
		for w.Next() {
			if !yield(w.cur) {
				return
			}
		}
	}
}

// Decode parses the descriptor into its typed form from pkg/descriptors.
func (d Descriptor) Decode() (any, error) {
	var v encoding.BinaryUnmarshaler
	switch d.Type {
	case descriptors.DescriptorTypeConfiguration:
		v = &descriptors.ConfigurationDescriptor{}
	case descriptors.DescriptorTypeInterfaceAssociation:
		v = &descriptors.InterfaceAssociationDescriptor{}
	case descriptors.DescriptorTypeInterface:
		switch d.InterfaceSubclass {
		case descriptors.SubclassCodeVideoControl:
			v = &descriptors.StandardVideoControlInterfaceDescriptor{}
		case descriptors.SubclassCodeVideoStreaming:
			v = &descriptors.StandardVideoStreamingInterfaceDescriptor{}
		}
	case descriptors.DescriptorTypeEndpoint:
		v = &descriptors.EndpointDescriptor{}
	case descriptors.DescriptorTypeSuperSpeedEndpointCompanion:
		v = &descriptors.SuperSpeedEndpointCompanionDescriptor{}
	default:
		switch descriptors.ClassSpecificDescriptorType(d.Type) {
		case descriptors.ClassSpecificDescriptorTypeEndpoint:
			v = &descriptors.ClassSpecificInterruptEndpointDescriptor{}
		case descriptors.ClassSpecificDescriptorTypeInterface:
			switch d.InterfaceSubclass {
			case descriptors.SubclassCodeVideoControl:
				return descriptors.UnmarshalControlInterface(d.Raw)
			case descriptors.SubclassCodeVideoStreaming:
				v = d.streamingDescriptor()
			}
		}
	}
	if v == nil {
		return nil, errors.Wrapf(ErrUnknownDescriptor, "type 0x%02x subtype 0x%02x at offset %d", byte(d.Type), d.Subtype, d.Offset)
	}
	if err := v.UnmarshalBinary(d.Raw); err != nil {
		return nil, errors.Wrapf(err, "decode descriptor at offset %d", d.Offset)
	}
	return v, nil
}

func (d Descriptor) streamingDescriptor() encoding.BinaryUnmarshaler {
	st := descriptors.VideoStreamingInterfaceDescriptorSubtype(d.Subtype)
	if st == descriptors.VideoStreamingInterfaceDescriptorSubtypeInputHeader {
		return &descriptors.InputHeaderDescriptor{}
	}
	fam, ok := formats.Families[d.Family]
	if !ok {
		return nil
	}
	switch {
	case st == fam.Frame && !fam.FrameBased:
		return &descriptors.MJPEGFrameDescriptor{}
	case st == fam.Frame:
		return &descriptors.FrameBasedFrameDescriptor{}
	case st == fam.Format && !fam.FrameBased:
		return &descriptors.MJPEGFormatDescriptor{}
	case st == fam.Format:
		return &descriptors.FrameBasedFormatDescriptor{}
	}
	return nil
}
