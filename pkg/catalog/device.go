package catalog

import (
	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
)

// Identity is what the device descriptor and string descriptors report.
type Identity struct {
	VendorID     uint16 `json:"vendor_id"`
	ProductID    uint16 `json:"product_id"`
	BCDDevice    uint16 `json:"bcd_device"`
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	Serial       string `json:"serial"`
}

func DefaultIdentity() Identity {
	return Identity{
		VendorID:     0x04B4,
		ProductID:    0x00C3,
		BCDDevice:    0x0100,
		Manufacturer: "Cypress Semiconductor",
		Product:      "UVC 1.5 Camera",
		Serial:       "0000000001",
	}
}

const (
	StringIndexLanguages    = 0
	StringIndexManufacturer = 1
	StringIndexProduct      = stringIndexProduct
	StringIndexSerial       = 3

	usb2Version  descriptors.BinaryCodedDecimal = 0x0200
	usb32Version descriptors.BinaryCodedDecimal = 0x0320
)

const (
	highSpeedEP0    = 64
	superSpeedEP0   = 9 // 2^9 = 512 bytes
	numConfigs      = 1
	lpmSupported    = 1 << 1
	speedsSSAndDown = 0b1110
)

var ErrNoSuchString = errors.New("no such string descriptor")

// DeviceDescriptor reports a composite device carrying an IAD.
func DeviceDescriptor(speed Speed, id Identity) ([]byte, error) {
	d := &descriptors.DeviceDescriptor{
		DeviceClass:       descriptors.ClassCodeMiscellaneous,
		DeviceSubclass:    descriptors.SubclassCodeCommon,
		DeviceProtocol:    descriptors.ProtocolCodeInterfaceAssociation,
		VendorID:          id.VendorID,
		ProductID:         id.ProductID,
		Device:            descriptors.BinaryCodedDecimal(id.BCDDevice),
		ManufacturerIndex: StringIndexManufacturer,
		ProductIndex:      StringIndexProduct,
		SerialNumberIndex: StringIndexSerial,
		NumConfigurations: numConfigs,
	}
	switch speed {
	case SpeedHigh:
		d.USB, d.MaxPacketSize0 = usb2Version, highSpeedEP0
	case SpeedSuper:
		d.USB, d.MaxPacketSize0 = usb32Version, superSpeedEP0
	default:
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "speed %v", speed)
	}
	return d.MarshalBinary()
}

// DeviceQualifier is only served at high speed.
func DeviceQualifier(speed Speed) ([]byte, error) {
	if speed != SpeedHigh {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "device qualifier at %v speed", speed)
	}
	return (&descriptors.DeviceQualifierDescriptor{
		USB:               usb2Version,
		DeviceClass:       descriptors.ClassCodeMiscellaneous,
		DeviceSubclass:    descriptors.SubclassCodeCommon,
		DeviceProtocol:    descriptors.ProtocolCodeInterfaceAssociation,
		MaxPacketSize0:    highSpeedEP0,
		NumConfigurations: numConfigs,
	}).MarshalBinary()
}

// BOS is only served at SuperSpeed.
func BOS(speed Speed) ([]byte, error) {
	if speed != SpeedSuper {
		return nil, errors.Wrapf(ErrUnsupportedConfiguration, "BOS at %v speed", speed)
	}
	return marshalAll(
		&descriptors.BOSDescriptor{
			TotalLength:   descriptors.BOSDescriptorLength + descriptors.USB20ExtensionLength + descriptors.SuperSpeedUSBCapabilityLength,
			NumDeviceCaps: 2,
		},
		&descriptors.USB20ExtensionCapability{Attributes: lpmSupported},
		&descriptors.SuperSpeedUSBCapability{
			SpeedsSupported:      speedsSSAndDown,
			FunctionalitySupport: 1, // full speed
			U1DevExitLat:         0x0A,
			U2DevExitLat:         0x07FF,
		},
	)
}

// StringDescriptor returns string descriptor index; zero is the LANGID table.
func StringDescriptor(index uint8, id Identity) ([]byte, error) {
	var s string
	switch index {
	case StringIndexLanguages:
		return descriptors.LanguageTableDescriptor(), nil
	case StringIndexManufacturer:
		s = id.Manufacturer
	case StringIndexProduct:
		s = id.Product
	case StringIndexSerial:
		s = id.Serial
	default:
		return nil, errors.Wrapf(ErrNoSuchString, "index %d", index)
	}
	return (&descriptors.StringDescriptor{Value: s}).MarshalBinary()
}
