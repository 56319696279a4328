// This file implements the standard USB descriptors a video function is
// served alongside: device, qualifier, configuration, string and BOS.
package descriptors

import (
	"encoding/binary"
	"io"

	"golang.org/x/text/encoding/unicode"
)

const (
	DeviceDescriptorLength          = 18
	DeviceQualifierDescriptorLength = 10
	ConfigurationDescriptorLength   = 9
	InterfaceDescriptorLength       = 9
	BOSDescriptorLength             = 5
	USB20ExtensionLength            = 7
	SuperSpeedUSBCapabilityLength   = 10
)

type DeviceCapabilityType byte

const (
	DeviceCapabilityTypeUSB20Extension DeviceCapabilityType = 0x02
	DeviceCapabilityTypeSuperSpeedUSB  DeviceCapabilityType = 0x03
)

type DeviceDescriptor struct {
	USB               BinaryCodedDecimal
	DeviceClass       ClassCode
	DeviceSubclass    SubclassCode
	DeviceProtocol    ProtocolCode
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	Device            BinaryCodedDecimal
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

func (dd *DeviceDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DeviceDescriptorLength)
	buf[0] = DeviceDescriptorLength
	buf[1] = byte(DescriptorTypeDevice)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(dd.USB))
	buf[4] = byte(dd.DeviceClass)
	buf[5] = byte(dd.DeviceSubclass)
	buf[6] = byte(dd.DeviceProtocol)
	buf[7] = dd.MaxPacketSize0
	binary.LittleEndian.PutUint16(buf[8:10], dd.VendorID)
	binary.LittleEndian.PutUint16(buf[10:12], dd.ProductID)
	binary.LittleEndian.PutUint16(buf[12:14], uint16(dd.Device))
	buf[14] = dd.ManufacturerIndex
	buf[15] = dd.ProductIndex
	buf[16] = dd.SerialNumberIndex
	buf[17] = dd.NumConfigurations
	return buf, nil
}

func (dd *DeviceDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, DeviceDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeDevice {
		return ErrInvalidDescriptor
	}
	dd.USB = BinaryCodedDecimal(binary.LittleEndian.Uint16(buf[2:4]))
	dd.DeviceClass = ClassCode(buf[4])
	dd.DeviceSubclass = SubclassCode(buf[5])
	dd.DeviceProtocol = ProtocolCode(buf[6])
	dd.MaxPacketSize0 = buf[7]
	dd.VendorID = binary.LittleEndian.Uint16(buf[8:10])
	dd.ProductID = binary.LittleEndian.Uint16(buf[10:12])
	dd.Device = BinaryCodedDecimal(binary.LittleEndian.Uint16(buf[12:14]))
	dd.ManufacturerIndex = buf[14]
	dd.ProductIndex = buf[15]
	dd.SerialNumberIndex = buf[16]
	dd.NumConfigurations = buf[17]
	return nil
}

// DeviceQualifierDescriptor describes how a high-speed capable device would
// behave at the other speed.
type DeviceQualifierDescriptor struct {
	USB               BinaryCodedDecimal
	DeviceClass       ClassCode
	DeviceSubclass    SubclassCode
	DeviceProtocol    ProtocolCode
	MaxPacketSize0    uint8
	NumConfigurations uint8
}

func (dqd *DeviceQualifierDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DeviceQualifierDescriptorLength)
	buf[0] = DeviceQualifierDescriptorLength
	buf[1] = byte(DescriptorTypeDeviceQualifier)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(dqd.USB))
	buf[4] = byte(dqd.DeviceClass)
	buf[5] = byte(dqd.DeviceSubclass)
	buf[6] = byte(dqd.DeviceProtocol)
	buf[7] = dqd.MaxPacketSize0
	buf[8] = dqd.NumConfigurations
	return buf, nil
}

type ConfigurationDescriptor struct {
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	DescriptionIndex   uint8
	Attributes         uint8
	MaxPower           uint8
}

func (cd *ConfigurationDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ConfigurationDescriptorLength)
	buf[0] = ConfigurationDescriptorLength
	buf[1] = byte(DescriptorTypeConfiguration)
	binary.LittleEndian.PutUint16(buf[2:4], cd.TotalLength)
	buf[4] = cd.NumInterfaces
	buf[5] = cd.ConfigurationValue
	buf[6] = cd.DescriptionIndex
	buf[7] = cd.Attributes
	buf[8] = cd.MaxPower
	return buf, nil
}

func (cd *ConfigurationDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, ConfigurationDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeConfiguration {
		return ErrInvalidDescriptor
	}
	cd.TotalLength = binary.LittleEndian.Uint16(buf[2:4])
	cd.NumInterfaces = buf[4]
	cd.ConfigurationValue = buf[5]
	cd.DescriptionIndex = buf[6]
	cd.Attributes = buf[7]
	cd.MaxPower = buf[8]
	return nil
}

// BOSDescriptor is the Binary Object Store header; capabilities follow it.
type BOSDescriptor struct {
	TotalLength   uint16
	NumDeviceCaps uint8
}

func (bd *BOSDescriptor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, BOSDescriptorLength)
	buf[0] = BOSDescriptorLength
	buf[1] = byte(DescriptorTypeBOS)
	binary.LittleEndian.PutUint16(buf[2:4], bd.TotalLength)
	buf[4] = bd.NumDeviceCaps
	return buf, nil
}

func (bd *BOSDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, BOSDescriptorLength) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeBOS {
		return ErrInvalidDescriptor
	}
	bd.TotalLength = binary.LittleEndian.Uint16(buf[2:4])
	bd.NumDeviceCaps = buf[4]
	return nil
}

type USB20ExtensionCapability struct {
	Attributes uint32
}

func (c *USB20ExtensionCapability) MarshalBinary() ([]byte, error) {
	buf := make([]byte, USB20ExtensionLength)
	buf[0] = USB20ExtensionLength
	buf[1] = byte(DescriptorTypeDeviceCapability)
	buf[2] = byte(DeviceCapabilityTypeUSB20Extension)
	binary.LittleEndian.PutUint32(buf[3:7], c.Attributes)
	return buf, nil
}

type SuperSpeedUSBCapability struct {
	Attributes           uint8
	SpeedsSupported      uint16
	FunctionalitySupport uint8
	U1DevExitLat         uint8
	U2DevExitLat         uint16
}

func (c *SuperSpeedUSBCapability) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SuperSpeedUSBCapabilityLength)
	buf[0] = SuperSpeedUSBCapabilityLength
	buf[1] = byte(DescriptorTypeDeviceCapability)
	buf[2] = byte(DeviceCapabilityTypeSuperSpeedUSB)
	buf[3] = c.Attributes
	binary.LittleEndian.PutUint16(buf[4:6], c.SpeedsSupported)
	buf[6] = c.FunctionalitySupport
	buf[7] = c.U1DevExitLat
	binary.LittleEndian.PutUint16(buf[8:10], c.U2DevExitLat)
	return buf, nil
}

// LanguageIDEnglishUS is the only LANGID served in string descriptor zero.
const LanguageIDEnglishUS = 0x0409

// StringDescriptor is a UTF-16LE encoded string descriptor.
type StringDescriptor struct {
	Value string
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func (sd *StringDescriptor) MarshalBinary() ([]byte, error) {
	encoded, err := utf16le.NewEncoder().Bytes([]byte(sd.Value))
	if err != nil {
		return nil, err
	}
	// bLength is a byte, so a string is capped at 126 code units.
	if len(encoded) > 252 {
		encoded = encoded[:252]
	}
	buf := make([]byte, 2+len(encoded))
	buf[0] = byte(len(buf))
	buf[1] = byte(DescriptorTypeString)
	copy(buf[2:], encoded)
	return buf, nil
}

func (sd *StringDescriptor) UnmarshalBinary(buf []byte) error {
	if short(buf, 2) {
		return io.ErrShortBuffer
	}
	if DescriptorType(buf[1]) != DescriptorTypeString {
		return ErrInvalidDescriptor
	}
	decoded, err := utf16le.NewDecoder().Bytes(buf[2:buf[0]])
	if err != nil {
		return err
	}
	sd.Value = string(decoded)
	return nil
}

// LanguageTableDescriptor is string descriptor zero.
func LanguageTableDescriptor() []byte {
	return []byte{4, byte(DescriptorTypeString), LanguageIDEnglishUS & 0xFF, LanguageIDEnglishUS >> 8}
}
