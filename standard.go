package uvc

import (
	"github.com/efficientgo/core/errors"
	"github.com/go-kit/log/level"

	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

// SuperSpeed additions to the standard requests, USB 3.2, table 9-5.
const (
	StandardRequestSetSel        = 0x30
	StandardRequestSetIsochDelay = 0x31
)

const (
	standardDeviceIn     = requests.RequestDirectionDeviceToHost | requests.RequestRecipientDevice
	standardInterfaceIn  = requests.RequestDirectionDeviceToHost | requests.RequestRecipientInterface
	standardDeviceOut    = requests.RequestRecipientDevice
	standardInterfaceOut = requests.RequestRecipientInterface
	standardEndpointOut  = requests.RequestRecipientEndpoint

	configurationValue = 1
	selfPowered        = 0
	endpointHaltBit    = 1 << 0
	selLength          = 6
)

// handleStandard covers the chapter 9 requests a host issues before and
// around class requests. Anything else stalls.
func (d *Device) handleStandard(setup *requests.SetupPacket, data []byte) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.standard(setup, data)
	if err != nil {
		_ = level.Debug(d.logger).Log("msg", "stalling standard request", "setup", setup, "err", err)
		return nil, err
	}
	if setup.IsDeviceToHost() && len(out) > int(setup.Length) {
		out = out[:setup.Length]
	}
	return out, nil
}

func (d *Device) standard(setup *requests.SetupPacket, data []byte) ([]byte, error) {
	switch {
	case setup.RequestType == standardDeviceIn && setup.Request == requests.StandardRequestGetDescriptor:
		return d.descriptor(descriptors.DescriptorType(setup.Value>>8), uint8(setup.Value))

	case setup.RequestType == standardDeviceOut && setup.Request == requests.StandardRequestSetAddress:
		return nil, nil

	case setup.RequestType == standardDeviceIn && setup.Request == requests.StandardRequestGetConfiguration:
		return []byte{d.configuration}, nil

	case setup.RequestType == standardDeviceOut && setup.Request == requests.StandardRequestSetConfiguration:
		switch setup.Value {
		case 0:
			d.stopStream()
			d.negotiator.Reset()
			d.alternates = [2]uint8{}
		case configurationValue:
			d.alternates = [2]uint8{}
		default:
			return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "configuration %d", setup.Value)
		}
		d.configuration = uint8(setup.Value)
		return nil, nil

	case setup.RequestType == standardInterfaceIn && setup.Request == requests.StandardRequestGetInterface:
		iface := setup.InterfaceNumber()
		if int(iface) >= len(d.alternates) {
			return nil, errors.Wrapf(ErrInvalidInterface, "interface %d", iface)
		}
		return []byte{d.alternates[iface]}, nil

	case setup.RequestType == standardInterfaceOut && setup.Request == requests.StandardRequestSetInterface:
		if d.configuration == 0 {
			return nil, ErrNotConfigured
		}
		return nil, d.selectInterface(setup.InterfaceNumber(), uint8(setup.Value))

	case setup.Request == requests.StandardRequestGetStatus && setup.IsDeviceToHost():
		return d.status(setup)

	case setup.RequestType == standardEndpointOut &&
		(setup.Request == requests.StandardRequestClearFeature || setup.Request == requests.StandardRequestSetFeature):
		if setup.Value != requests.FeatureEndpointHalt {
			return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "endpoint feature %d", setup.Value)
		}
		return nil, d.halt(setup.InterfaceNumber(), setup.Request == requests.StandardRequestSetFeature)

	case (setup.RequestType == standardDeviceOut || setup.RequestType == standardInterfaceOut) &&
		(setup.Request == requests.StandardRequestClearFeature || setup.Request == requests.StandardRequestSetFeature):
		// remote wakeup, function suspend and link power features have no
		// effect on the control plane
		return nil, nil

	case setup.RequestType == standardDeviceOut && setup.Request == StandardRequestSetSel:
		if d.catalog.Speed() != catalog.SpeedSuper || len(data) != selLength {
			return nil, errors.Wrap(ErrUnsupportedStandardRequest, "SET_SEL")
		}
		return nil, nil

	case setup.RequestType == standardDeviceOut && setup.Request == StandardRequestSetIsochDelay:
		if d.catalog.Speed() != catalog.SpeedSuper {
			return nil, errors.Wrap(ErrUnsupportedStandardRequest, "SET_ISOCH_DELAY")
		}
		return nil, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "%v", setup)
}

func (d *Device) descriptor(typ descriptors.DescriptorType, index uint8) ([]byte, error) {
	speed := d.catalog.Speed()
	switch typ {
	case descriptors.DescriptorTypeDevice:
		return catalog.DeviceDescriptor(speed, d.identity)
	case descriptors.DescriptorTypeConfiguration:
		if index != 0 {
			return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "configuration descriptor %d", index)
		}
		return d.catalog.Bytes(), nil
	case descriptors.DescriptorTypeString:
		return catalog.StringDescriptor(index, d.identity)
	case descriptors.DescriptorTypeDeviceQualifier:
		return catalog.DeviceQualifier(speed)
	case descriptors.DescriptorTypeBOS:
		return catalog.BOS(speed)
	}
	return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "descriptor type 0x%02x", byte(typ))
}

func (d *Device) status(setup *requests.SetupPacket) ([]byte, error) {
	switch setup.Recipient() {
	case requests.RequestRecipientDevice:
		return []byte{selfPowered, 0}, nil
	case requests.RequestRecipientInterface:
		if int(setup.InterfaceNumber()) >= len(d.alternates) {
			return nil, errors.Wrapf(ErrInvalidInterface, "interface %d", setup.InterfaceNumber())
		}
		return []byte{0, 0}, nil
	case requests.RequestRecipientEndpoint:
		ep := setup.InterfaceNumber()
		if !d.knownEndpoint(ep) {
			return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "endpoint 0x%02x", ep)
		}
		if d.halted[ep] {
			return []byte{endpointHaltBit, 0}, nil
		}
		return []byte{0, 0}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedStandardRequest, "status of recipient %d", setup.Recipient())
}

func (d *Device) knownEndpoint(ep uint8) bool {
	return ep == 0 || ep == catalog.VideoEndpoint || ep == catalog.InterruptEndpoint
}

// halt sets or clears ENDPOINT_HALT. Clearing it on the bulk video endpoint
// is how a host stops a bulk stream.
func (d *Device) halt(ep uint8, set bool) error {
	if !d.knownEndpoint(ep) {
		return errors.Wrapf(ErrUnsupportedStandardRequest, "endpoint 0x%02x", ep)
	}
	d.halted[ep] = set
	if ep == catalog.VideoEndpoint && (set || d.catalog.Transport() == catalog.TransportBulk) {
		d.stopStream()
		d.negotiator.Reset()
	}
	return nil
}
