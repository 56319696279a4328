package usbip

import (
	"strconv"
	"strings"

	"github.com/efficientgo/core/errors"

	uvc "github.com/kevmo314/go-uvc-device"
	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
)

const (
	sysfsRoot     = "/sys/devices/platform/uvc-usbipd/usb"
	defaultDevNum = 2
)

func speedOf(s catalog.Speed) (Speed, error) {
	switch s {
	case catalog.SpeedHigh:
		return SpeedHigh, nil
	case catalog.SpeedSuper:
		return SpeedSuper, nil
	}
	return 0, errors.Wrapf(catalog.ErrUnsupportedConfiguration, "speed %v", s)
}

// DeviceInfoFor describes dev the way usbipd describes a bound device. busID
// takes the form bus-port, as in 1-1.
func DeviceInfoFor(dev *uvc.Device, busID string) (DeviceInfo, error) {
	speed, err := speedOf(dev.Speed())
	if err != nil {
		return DeviceInfo{}, err
	}
	busPart, _, ok := strings.Cut(busID, "-")
	if !ok || len(busID) >= busIDSize {
		return DeviceInfo{}, errors.Wrapf(ErrProtocol, "bus id %q", busID)
	}
	busNum, err := strconv.ParseUint(busPart, 10, 32)
	if err != nil {
		return DeviceInfo{}, errors.Wrapf(err, "bus id %q", busID)
	}

	id := dev.Identity()
	info := DeviceInfo{
		Description: DeviceDescription{
			Path:               pathBytes(sysfsRoot + busPart + "/" + busID),
			BusID:              busIDBytes(busID),
			BusNum:             uint32(busNum),
			DevNum:             defaultDevNum,
			Speed:              speed,
			Vendor:             id.VendorID,
			Product:            id.ProductID,
			BCDDevice:          id.BCDDevice,
			DeviceClass:        uint8(descriptors.ClassCodeMiscellaneous),
			DeviceSubClass:     uint8(descriptors.SubclassCodeCommon),
			DeviceProtocol:     uint8(descriptors.ProtocolCodeInterfaceAssociation),
			ConfigurationValue: 1,
			NumConfigurations:  1,
		},
	}

	w := catalog.NewWalker(dev.Catalog().Bytes())
	for d := range w.All() {
		if d.Type != descriptors.DescriptorTypeInterface || d.AltSetting != 0 {
			continue
		}
		// bInterfaceClass, bInterfaceSubClass, bInterfaceProtocol
		info.Interfaces = append(info.Interfaces, Interface{Class: d.Raw[5], SubClass: d.Raw[6], Protocol: d.Raw[7]})
	}
	if err := w.Err(); err != nil {
		return DeviceInfo{}, err
	}
	info.Description.NumInterfaces = uint8(len(info.Interfaces))
	return info, nil
}
