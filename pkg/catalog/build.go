package catalog

import (
	"encoding"

	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

const (
	configurationValue = 1
	// bus powered
	configurationAttributes = 0x80
	// bMaxPower is in 2mA units at high speed and 8mA units at SuperSpeed.
	highSpeedMaxPower  = 250
	superSpeedMaxPower = 112

	// bmControlsSize is the bControlSize of every unit and terminal.
	bmControlsSize = 3

	stringIndexProduct = 2
)

func marshalAll(ms ...encoding.BinaryMarshaler) ([]byte, error) {
	var out []byte
	for _, m := range ms {
		b, err := m.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func bitmapBytes(v uint32, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(v >> (8 * i))
	}
	return buf
}

func (c *Catalog) superSpeed() bool {
	return c.cfg.Speed == SpeedSuper
}

// endpoint appends the SuperSpeed companion when the configuration needs one.
func (c *Catalog) endpoint(ep *descriptors.EndpointDescriptor, comp *descriptors.SuperSpeedEndpointCompanionDescriptor) []encoding.BinaryMarshaler {
	if c.superSpeed() {
		return []encoding.BinaryMarshaler{ep, comp}
	}
	return []encoding.BinaryMarshaler{ep}
}

func (c *Catalog) build() error {
	vcClass, err := c.controlClass()
	if err != nil {
		return err
	}
	vsClass, err := c.streamingClass()
	if err != nil {
		return err
	}

	vc, err := marshalAll(
		&descriptors.InterfaceAssociationDescriptor{
			FirstInterface:   ControlInterface,
			InterfaceCount:   2,
			DescriptionIndex: stringIndexProduct,
		},
		&descriptors.StandardVideoControlInterfaceDescriptor{
			InterfaceNumber: ControlInterface,
			NumEndpoints:    1,
		},
	)
	if err != nil {
		return err
	}
	vc = append(vc, vcClass...)
	vcEndpoint, err := marshalAll(append(
		c.endpoint(
			&descriptors.EndpointDescriptor{
				EndpointAddress:   InterruptEndpoint,
				AttributesBitmask: uint8(descriptors.TransferTypeInterrupt),
				MaxPacketSize:     interruptPacketSize,
				Interval:          interruptInterval,
			},
			&descriptors.SuperSpeedEndpointCompanionDescriptor{BytesPerInterval: interruptPacketSize},
		),
		&descriptors.ClassSpecificInterruptEndpointDescriptor{MaxTransferSize: interruptPacketSize},
	)...)
	if err != nil {
		return err
	}
	vc = append(vc, vcEndpoint...)

	vs, err := c.streamingInterface(vsClass)
	if err != nil {
		return err
	}

	total := descriptors.ConfigurationDescriptorLength + len(vc) + len(vs)
	if total > 0xFFFF {
		return errors.Wrapf(ErrUnsupportedConfiguration, "descriptor set of %d bytes", total)
	}
	maxPower := uint8(highSpeedMaxPower)
	if c.superSpeed() {
		maxPower = superSpeedMaxPower
	}
	cfg, err := (&descriptors.ConfigurationDescriptor{
		TotalLength:        uint16(total),
		NumInterfaces:      2,
		ConfigurationValue: configurationValue,
		Attributes:         configurationAttributes,
		MaxPower:           maxPower,
	}).MarshalBinary()
	if err != nil {
		return err
	}

	c.buf = append(append(cfg, vc...), vs...)
	c.entries = nil
	w := NewWalker(c.buf)
	for w.Next() {
		d := w.Descriptor()
		c.entries = append(c.entries, Entry{
			Offset:    d.Offset,
			Length:    int(d.Length),
			Type:      d.Type,
			Subtype:   d.Subtype,
			Interface: d.Interface,
		})
	}
	return w.Err()
}

// controlClass emits the VC header followed by one descriptor per unit and
// terminal in graph order.
func (c *Catalog) controlClass() ([]byte, error) {
	reg := c.controls
	var body []byte
	for _, n := range c.cfg.Graph {
		var d encoding.BinaryMarshaler
		switch n.Kind {
		case units.KindCameraTerminal:
			d = &descriptors.CameraTerminalDescriptor{
				TerminalID:      n.ID,
				ControlSize:     bmControlsSize,
				ControlsBitmask: reg.Bitmap(n.ID),
			}
		case units.KindProcessingUnit:
			d = &descriptors.ProcessingUnitDescriptor{
				UnitID:          n.ID,
				SourceID:        n.SourceID,
				ControlsBitmask: bitmapBytes(reg.Bitmap(n.ID), bmControlsSize),
			}
		case units.KindExtensionUnit:
			d = &descriptors.ExtensionUnitDescriptor{
				UnitID:            n.ID,
				GUIDExtensionCode: ExtensionUnitGUID,
				NumControls:       uint8(len(reg.Selectors(n.ID))),
				SourceIDs:         []uint8{n.SourceID},
				ControlsBitmask:   bitmapBytes(reg.Bitmap(n.ID), bmControlsSize),
			}
		case units.KindEncodingUnit:
			d = &descriptors.EncodingUnitDescriptor{
				UnitID:                 n.ID,
				SourceID:               n.SourceID,
				ControlsBitmask:        reg.Bitmap(n.ID),
				ControlsRuntimeBitmask: reg.RuntimeBitmap(n.ID),
			}
		case units.KindOutputTerminal:
			d = &descriptors.OutputTerminalDescriptor{
				TerminalID:   n.ID,
				TerminalType: descriptors.TerminalTypeStreaming,
				SourceID:     n.SourceID,
			}
		default:
			return nil, errors.Wrapf(units.ErrUnknownKind, "id %d", n.ID)
		}
		b, err := d.MarshalBinary()
		if err != nil {
			return nil, err
		}
		body = append(body, b...)
	}

	header := &descriptors.HeaderDescriptor{
		UVC:                            UVCVersion,
		ClockFrequency:                 ClockFrequency,
		VideoStreamingInterfaceIndexes: []uint8{StreamingInterface},
	}
	header.TotalLength = uint16(header.Length() + len(body))
	c.vcTotal = header.TotalLength
	h, err := header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(h, body...), nil
}

// streamingClass emits the formats and frames. The input header is prepended
// by streamingInterface once the total is known.
func (c *Catalog) streamingClass() ([]byte, error) {
	var body []byte
	for _, f := range c.cfg.Formats {
		ds, err := formatDescriptors(f)
		if err != nil {
			return nil, err
		}
		b, err := marshalAll(ds...)
		if err != nil {
			return nil, err
		}
		body = append(body, b...)
	}
	return body, nil
}

func formatDescriptors(f formats.Format) ([]encoding.BinaryMarshaler, error) {
	st, ok := formats.Families[f.Family]
	if !ok {
		return nil, errors.Wrapf(formats.ErrInvalidTable, "format %d family %v", f.Index, f.Family)
	}
	out := make([]encoding.BinaryMarshaler, 0, 1+len(f.Frames))
	if !st.FrameBased {
		out = append(out, &descriptors.MJPEGFormatDescriptor{
			FormatIndex:         f.Index,
			NumFrameDescriptors: uint8(len(f.Frames)),
			Flags:               1, // fixed size samples
			DefaultFrameIndex:   f.DefaultFrame,
		})
		for _, fr := range f.Frames {
			out = append(out, &descriptors.MJPEGFrameDescriptor{
				FrameIndex:              fr.Index,
				Width:                   fr.Width,
				Height:                  fr.Height,
				MinBitRate:              fr.MinBitRate,
				MaxBitRate:              fr.MaxBitRate,
				MaxVideoFrameBufferSize: fr.MaxFrameSize(),
				DefaultFrameInterval:    fr.DefaultInterval,
				DiscreteFrameIntervals:  fr.Intervals,
			})
		}
		return out, nil
	}

	out = append(out, &descriptors.FrameBasedFormatDescriptor{
		Subtype:             st.Format,
		FormatIndex:         f.Index,
		NumFrameDescriptors: uint8(len(f.Frames)),
		GUIDFormat:          f.GUID,
		BitsPerPixel:        f.BitsPerPixel,
		DefaultFrameIndex:   f.DefaultFrame,
		VariableSize:        true,
	})
	for _, fr := range f.Frames {
		out = append(out, &descriptors.FrameBasedFrameDescriptor{
			Subtype:                st.Frame,
			FrameIndex:             fr.Index,
			Width:                  fr.Width,
			Height:                 fr.Height,
			MinBitRate:             fr.MinBitRate,
			MaxBitRate:             fr.MaxBitRate,
			DefaultFrameInterval:   fr.DefaultInterval,
			DiscreteFrameIntervals: fr.Intervals,
		})
	}
	return out, nil
}

// streamingInterface emits alternate setting 0, its class-specific
// descriptors, and the video endpoint on the alternate setting the transport
// puts it on.
func (c *Catalog) streamingInterface(class []byte) ([]byte, error) {
	output, ok := c.cfg.Graph.First(units.KindOutputTerminal)
	if !ok {
		return nil, units.ErrMissingTerminal
	}
	bulk := c.cfg.Transport == TransportBulk

	header := &descriptors.InputHeaderDescriptor{
		EndpointAddress: VideoEndpoint,
		TerminalLink:    output.ID,
		ControlBitmasks: make([][]byte, len(c.cfg.Formats)),
	}
	for i := range header.ControlBitmasks {
		header.ControlBitmasks[i] = []byte{0}
	}
	header.TotalLength = uint16(header.Length() + len(class))
	c.vsTotal = header.TotalLength

	alt0 := &descriptors.StandardVideoStreamingInterfaceDescriptor{InterfaceNumber: StreamingInterface}
	if bulk {
		alt0.NumEndpoints = 1
	}
	out, err := marshalAll(alt0, header)
	if err != nil {
		return nil, err
	}
	out = append(out, class...)

	burst := c.cfg.MaxBurst
	var tail []encoding.BinaryMarshaler
	if bulk {
		ep := &descriptors.EndpointDescriptor{
			EndpointAddress:   VideoEndpoint,
			AttributesBitmask: uint8(descriptors.TransferTypeBulk),
			MaxPacketSize:     highSpeedBulkPacketSize,
		}
		if c.superSpeed() {
			ep.MaxPacketSize = superSpeedPacketSize
		}
		tail = c.endpoint(ep, &descriptors.SuperSpeedEndpointCompanionDescriptor{MaxBurst: burst})
		c.maxXfer = bulkPayloadSize
	} else {
		ep := &descriptors.EndpointDescriptor{
			EndpointAddress:   VideoEndpoint,
			AttributesBitmask: uint8(descriptors.TransferTypeIsochronous) | descriptors.SynchronizationAsynchronous,
			MaxPacketSize:     (highSpeedIsoTransactions-1)<<11 | highSpeedIsoPacketSize,
			Interval:          1,
		}
		c.maxXfer = highSpeedIsoTransactions * highSpeedIsoPacketSize
		if c.superSpeed() {
			ep.MaxPacketSize = superSpeedPacketSize
			c.maxXfer = superSpeedPacketSize * (uint32(burst) + 1)
		}
		tail = append([]encoding.BinaryMarshaler{
			&descriptors.StandardVideoStreamingInterfaceDescriptor{
				InterfaceNumber:  StreamingInterface,
				AlternateSetting: 1,
				NumEndpoints:     1,
			},
		}, c.endpoint(ep, &descriptors.SuperSpeedEndpointCompanionDescriptor{
			MaxBurst:         burst,
			BytesPerInterval: uint16(c.maxXfer),
		})...)
	}
	b, err := marshalAll(tail...)
	if err != nil {
		return nil, err
	}
	return append(out, b...), nil
}
