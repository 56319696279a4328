package catalog

import (
	"encoding/binary"

	"github.com/efficientgo/core/errors"
	usb "github.com/kevmo314/go-usb"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
)

// check re-reads the built set and fails construction on any inconsistency.
func (c *Catalog) check() error {
	if err := c.checkLengths(); err != nil {
		return errors.Wrap(ErrSelfCheck, err.Error())
	}
	if err := c.checkParse(); err != nil {
		return errors.Wrap(ErrSelfCheck, err.Error())
	}
	return nil
}

func (c *Catalog) checkLengths() error {
	var total, vcClass, vsClass int
	seen := map[uint8]bool{}
	w := NewWalker(c.buf)
	for d := range w.All() {
		total += int(d.Length)
		if descriptors.ClassSpecificDescriptorType(d.Type) != descriptors.ClassSpecificDescriptorTypeInterface {
			continue
		}
		switch d.InterfaceSubclass {
		case descriptors.SubclassCodeVideoControl:
			vcClass += int(d.Length)
			if err := checkSource(d, seen); err != nil {
				return err
			}
		case descriptors.SubclassCodeVideoStreaming:
			vsClass += int(d.Length)
		}
	}
	if err := w.Err(); err != nil {
		return err
	}

	if got := int(binary.LittleEndian.Uint16(c.buf[2:4])); got != total || total != len(c.buf) {
		return errors.Newf("wTotalLength %d, descriptors sum to %d of %d bytes", got, total, len(c.buf))
	}
	if int(c.vcTotal) != vcClass {
		return errors.Newf("VC header wTotalLength %d, class descriptors sum to %d", c.vcTotal, vcClass)
	}
	if int(c.vsTotal) != vsClass {
		return errors.Newf("VS input header wTotalLength %d, class descriptors sum to %d", c.vsTotal, vsClass)
	}
	return nil
}

// checkSource requires every unit's source to be emitted before it.
func checkSource(d Descriptor, seen map[uint8]bool) error {
	if len(d.Raw) < 5 {
		return nil
	}
	id := d.Raw[3]
	var src uint8
	switch descriptors.VideoControlInterfaceDescriptorSubtype(d.Subtype) {
	case descriptors.VideoControlInterfaceDescriptorSubtypeHeader:
		return nil
	case descriptors.VideoControlInterfaceDescriptorSubtypeInputTerminal:
	case descriptors.VideoControlInterfaceDescriptorSubtypeOutputTerminal:
		if len(d.Raw) < descriptors.OutputTerminalLength {
			return errors.Newf("short output terminal at offset %d", d.Offset)
		}
		src = d.Raw[7]
	case descriptors.VideoControlInterfaceDescriptorSubtypeExtensionUnit:
		if len(d.Raw) < descriptors.ExtensionUnitBaseLength || d.Raw[21] == 0 {
			return errors.Newf("extension unit without source at offset %d", d.Offset)
		}
		src = d.Raw[22]
	default:
		src = d.Raw[4]
	}
	if src != 0 && !seen[src] {
		return errors.Newf("entity %d at offset %d uses %d before it is described", id, d.Offset, src)
	}
	seen[id] = true
	return nil
}

// checkParse reads the set back the way a host would.
func (c *Catalog) checkParse() error {
	var cfg usb.ConfigDescriptor
	if err := cfg.Unmarshal(c.buf); err != nil {
		return err
	}
	if len(cfg.Interfaces) != 2 {
		return errors.Newf("%d interfaces parsed", len(cfg.Interfaces))
	}
	alts := 2
	if c.cfg.Transport == TransportBulk {
		alts = 1
	}
	if vs := cfg.Interface(StreamingInterface); vs == nil || len(vs.AltSettings) != alts {
		return errors.Newf("streaming interface does not have %d alternate settings", alts)
	}
	ep := cfg.FindEndpoint(VideoEndpoint)
	if ep == nil {
		return errors.Newf("video endpoint 0x%02x missing", VideoEndpoint)
	}
	for _, iface := range cfg.Interfaces {
		for _, alt := range iface.AltSettings {
			for _, e := range alt.Endpoints {
				if (e.SSCompanion != nil) != c.superSpeed() {
					return errors.Newf("endpoint 0x%02x companion present: %t", e.EndpointAddr, e.SSCompanion != nil)
				}
			}
		}
	}
	return nil
}
