package catalog

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/formats"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

var configurations = []struct {
	speed     Speed
	transport Transport
	total     int
	maxXfer   uint32
}{
	{SpeedHigh, TransportIsochronous, 406, 3072},
	{SpeedSuper, TransportIsochronous, 418, 16384},
	{SpeedHigh, TransportBulk, 397, bulkPayloadSize},
	{SpeedSuper, TransportBulk, 409, bulkPayloadSize},
}

func TestBuildLengths(t *testing.T) {
	for _, tt := range configurations {
		t.Run(tt.speed.String()+"/"+tt.transport.String(), func(t *testing.T) {
			buf, err := Build(tt.speed, tt.transport)
			require.NoError(t, err)
			assert.Len(t, buf, tt.total)
			assert.Equal(t, tt.total, int(binary.LittleEndian.Uint16(buf[2:4])))

			sum := 0
			w := NewWalker(buf)
			for d := range w.All() {
				sum += int(d.Length)
			}
			require.NoError(t, w.Err())
			assert.Equal(t, tt.total, sum)

			c, err := Default(tt.speed, tt.transport)
			require.NoError(t, err)
			assert.Equal(t, uint16(94), c.ControlTotalLength())
			assert.Equal(t, uint16(249), c.StreamingTotalLength())
			assert.Equal(t, tt.maxXfer, c.MaxPayloadTransferSize())

			// VC header sits after configuration, IAD and VC interface
			assert.Equal(t, byte(descriptors.VideoControlInterfaceDescriptorSubtypeHeader), buf[26+2])
			assert.Equal(t, []byte{0x50, 0x01}, buf[29:31])
			assert.Equal(t, []byte{0x5e, 0x00}, buf[31:33])
		})
	}
}

func TestIsochronousLongerThanBulk(t *testing.T) {
	for _, speed := range []Speed{SpeedHigh, SpeedSuper} {
		iso, err := Default(speed, TransportIsochronous)
		require.NoError(t, err)
		bulk, err := Default(speed, TransportBulk)
		require.NoError(t, err)
		assert.Equal(t, iso.ControlTotalLength(), bulk.ControlTotalLength())
		assert.Greater(t, iso.TotalLength(), bulk.TotalLength())
	}
}

func TestBuildUnsupported(t *testing.T) {
	_, err := Build(SpeedFull, TransportIsochronous)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = Build(SpeedHigh, Transport(7))
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = New(Config{Speed: SpeedSuper, Transport: TransportBulk, Formats: formats.Default, Graph: units.Default, MaxBurst: 16})
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = ParseSpeed("full")
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
	_, err = ParseTransport("interrupt")
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestBuildReturnsCopy(t *testing.T) {
	a, err := Build(SpeedHigh, TransportBulk)
	require.NoError(t, err)
	a[0] = 0
	b, err := Build(SpeedHigh, TransportBulk)
	require.NoError(t, err)
	assert.Equal(t, byte(descriptors.ConfigurationDescriptorLength), b[0])
}

func TestUnitChain(t *testing.T) {
	c, err := Default(SpeedSuper, TransportIsochronous)
	require.NoError(t, err)

	var eu *descriptors.EncodingUnitDescriptor
	var ot *descriptors.OutputTerminalDescriptor
	var order []uint8
	w := NewWalker(c.Bytes())
	for d := range w.All() {
		if d.InterfaceSubclass != descriptors.SubclassCodeVideoControl ||
			descriptors.ClassSpecificDescriptorType(d.Type) != descriptors.ClassSpecificDescriptorTypeInterface {
			continue
		}
		v, err := d.Decode()
		require.NoError(t, err)
		switch v := v.(type) {
		case *descriptors.CameraTerminalDescriptor:
			order = append(order, v.TerminalID)
			assert.Equal(t, 18, int(d.Length))
		case *descriptors.ProcessingUnitDescriptor:
			order = append(order, v.UnitID)
		case *descriptors.ExtensionUnitDescriptor:
			order = append(order, v.UnitID)
			assert.Equal(t, 28, int(d.Length))
			assert.Equal(t, ExtensionUnitGUID, v.GUIDExtensionCode)
			assert.Equal(t, uint8(4), v.NumControls)
		case *descriptors.EncodingUnitDescriptor:
			order = append(order, v.UnitID)
			eu = v
			assert.Equal(t, 13, int(d.Length))
		case *descriptors.OutputTerminalDescriptor:
			order = append(order, v.TerminalID)
			ot = v
		}
	}
	require.NoError(t, w.Err())
	assert.Equal(t, []uint8{1, 2, 3, 5, 4}, order)

	require.NotNil(t, eu)
	assert.Equal(t, uint8(5), eu.UnitID)
	assert.Equal(t, uint8(3), eu.SourceID)
	assert.Equal(t, uint32(0x0fffff), eu.ControlsBitmask)
	assert.NotEqual(t, eu.ControlsBitmask, eu.ControlsRuntimeBitmask)

	require.NotNil(t, ot)
	assert.Equal(t, uint8(4), ot.TerminalID)
	assert.Equal(t, uint8(5), ot.SourceID)
}

func TestDecodeEverything(t *testing.T) {
	for _, tt := range configurations {
		c, err := Default(tt.speed, tt.transport)
		require.NoError(t, err)
		w := NewWalker(c.Bytes())
		for d := range w.All() {
			_, err := d.Decode()
			assert.NoError(t, err, "%v/%v offset %d type 0x%02x", tt.speed, tt.transport, d.Offset, byte(d.Type))
		}
		require.NoError(t, w.Err())
	}
}

func TestStreamingFamilies(t *testing.T) {
	c, err := Default(SpeedHigh, TransportIsochronous)
	require.NoError(t, err)

	type seen struct {
		family  formats.Family
		subtype uint8
		kind    string
	}
	var got []seen
	for d := range NewWalker(c.Bytes()).All() {
		if d.InterfaceSubclass != descriptors.SubclassCodeVideoStreaming || d.Family == 0 {
			continue
		}
		v, err := d.Decode()
		require.NoError(t, err)
		kind := "frame"
		if _, ok := v.(descriptors.FormatDescriptor); ok {
			kind = "format"
		}
		got = append(got, seen{d.Family, d.Subtype, kind})
	}
	assert.Equal(t, []seen{
		{formats.FamilyMJPEG, 0x06, "format"},
		{formats.FamilyMJPEG, 0x07, "frame"},
		{formats.FamilyMJPEG, 0x07, "frame"},
		{formats.FamilyH264, 0x10, "format"},
		{formats.FamilyH264, 0x11, "frame"},
		{formats.FamilyH264, 0x11, "frame"},
		{formats.FamilyH265, 0x12, "format"},
		{formats.FamilyH265, 0x13, "frame"},
	}, got)
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		speed     Speed
		transport Transport
		packet    uint16
		companion *descriptors.SuperSpeedEndpointCompanionDescriptor
	}{
		{SpeedHigh, TransportIsochronous, 0x1400, nil},
		{SpeedSuper, TransportIsochronous, 1024, &descriptors.SuperSpeedEndpointCompanionDescriptor{MaxBurst: 15, BytesPerInterval: 16384}},
		{SpeedHigh, TransportBulk, 512, nil},
		{SpeedSuper, TransportBulk, 1024, &descriptors.SuperSpeedEndpointCompanionDescriptor{MaxBurst: 15}},
	}
	for _, tt := range tests {
		c, err := Default(tt.speed, tt.transport)
		require.NoError(t, err)

		var ep *descriptors.EndpointDescriptor
		var comp *descriptors.SuperSpeedEndpointCompanionDescriptor
		for d := range NewWalker(c.Bytes()).All() {
			v, err := d.Decode()
			require.NoError(t, err)
			switch v := v.(type) {
			case *descriptors.EndpointDescriptor:
				if v.EndpointAddress == VideoEndpoint {
					ep = v
					if tt.transport == TransportIsochronous {
						assert.Equal(t, uint8(1), d.AltSetting)
					} else {
						assert.Equal(t, uint8(0), d.AltSetting)
					}
				}
			case *descriptors.SuperSpeedEndpointCompanionDescriptor:
				if ep != nil {
					comp = v
				}
			}
		}
		require.NotNil(t, ep)
		assert.Equal(t, tt.packet, ep.MaxPacketSize)
		assert.Equal(t, tt.companion, comp)
		if tt.speed == SpeedHigh && tt.transport == TransportIsochronous {
			assert.Equal(t, 3, ep.Transactions())
			assert.Equal(t, 1024, ep.PacketSize())
		}
	}
}

func TestCustomBurst(t *testing.T) {
	cfg := DefaultConfig(SpeedSuper, TransportIsochronous)
	cfg.MaxBurst = 3
	c, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), c.MaxPayloadTransferSize())
	assert.Equal(t, 418, c.TotalLength())
}

func TestEntries(t *testing.T) {
	c, err := Default(SpeedHigh, TransportBulk)
	require.NoError(t, err)
	entries := c.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, Entry{Offset: 0, Length: 9, Type: descriptors.DescriptorTypeConfiguration}, entries[0])
	assert.Equal(t, descriptors.DescriptorTypeInterfaceAssociation, entries[1].Type)
	last := entries[len(entries)-1]
	assert.Equal(t, c.TotalLength(), last.Offset+last.Length)
	assert.Equal(t, uint8(StreamingInterface), last.Interface)
}

func TestWalkerMalformed(t *testing.T) {
	good, err := Build(SpeedHigh, TransportBulk)
	require.NoError(t, err)

	zero := append([]byte(nil), good...)
	zero[9] = 0
	w := NewWalker(zero)
	for w.Next() {
	}
	assert.ErrorIs(t, w.Err(), ErrMalformedDescriptor)

	w = NewWalker(good[:len(good)-3])
	n := 0
	for w.Next() {
		n++
	}
	assert.ErrorIs(t, w.Err(), ErrMalformedDescriptor)
	assert.Equal(t, len(walkAll(good))-1, n)
}

func walkAll(buf []byte) []Descriptor {
	var out []Descriptor
	for d := range NewWalker(buf).All() {
		out = append(out, d)
	}
	return out
}

func TestWalkerRestartable(t *testing.T) {
	buf, err := Build(SpeedSuper, TransportBulk)
	require.NoError(t, err)
	orig := append([]byte(nil), buf...)

	w := NewWalker(buf)
	first := 0
	for w.Next() {
		first++
	}
	w.Reset()
	second := 0
	for w.Next() {
		second++
	}
	assert.Equal(t, first, second)
	assert.Equal(t, orig, buf)
}

func TestDeviceDescriptors(t *testing.T) {
	id := DefaultIdentity()

	hs, err := DeviceDescriptor(SpeedHigh, id)
	require.NoError(t, err)
	var dd descriptors.DeviceDescriptor
	require.NoError(t, dd.UnmarshalBinary(hs))
	assert.Equal(t, descriptors.BinaryCodedDecimal(0x0200), dd.USB)
	assert.Equal(t, uint8(64), dd.MaxPacketSize0)
	assert.Equal(t, uint16(0x04B4), dd.VendorID)
	assert.Equal(t, descriptors.ClassCodeMiscellaneous, dd.DeviceClass)

	ss, err := DeviceDescriptor(SpeedSuper, id)
	require.NoError(t, err)
	require.NoError(t, dd.UnmarshalBinary(ss))
	assert.Equal(t, descriptors.BinaryCodedDecimal(0x0320), dd.USB)
	assert.Equal(t, uint8(9), dd.MaxPacketSize0)

	q, err := DeviceQualifier(SpeedHigh)
	require.NoError(t, err)
	assert.Len(t, q, 10)
	_, err = DeviceQualifier(SpeedSuper)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)

	bos, err := BOS(SpeedSuper)
	require.NoError(t, err)
	assert.Len(t, bos, 22)
	assert.Equal(t, []byte{22, 0}, bos[2:4])
	_, err = BOS(SpeedHigh)
	assert.ErrorIs(t, err, ErrUnsupportedConfiguration)
}

func TestStringDescriptors(t *testing.T) {
	id := DefaultIdentity()

	langs, err := StringDescriptor(0, id)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 3, 0x09, 0x04}, langs)

	p, err := StringDescriptor(StringIndexProduct, id)
	require.NoError(t, err)
	var sd descriptors.StringDescriptor
	require.NoError(t, sd.UnmarshalBinary(p))
	assert.Equal(t, id.Product, sd.Value)

	_, err = StringDescriptor(9, id)
	assert.ErrorIs(t, err, ErrNoSuchString)
}
