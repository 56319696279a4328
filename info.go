package uvc

import (
	"fmt"

	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
)

type ControlInterface struct {
	Header      *descriptors.HeaderDescriptor
	Descriptors []descriptors.ControlInterface
}

type StreamingInterface struct {
	bcdUVC      descriptors.BinaryCodedDecimal
	InputHeader *descriptors.InputHeaderDescriptor
	Descriptors []any
	Endpoints   []*descriptors.EndpointDescriptor
}

func (si *StreamingInterface) UVCVersionString() string {
	return fmt.Sprintf("%x.%02x", uint16(si.bcdUVC)>>8, uint16(si.bcdUVC)&0xff)
}

func (si *StreamingInterface) FormatDescriptors() []descriptors.FormatDescriptor {
	var descs []descriptors.FormatDescriptor
	for _, desc := range si.Descriptors {
		if d, ok := desc.(descriptors.FormatDescriptor); ok {
			descs = append(descs, d)
		}
	}
	return descs
}

// FrameDescriptors returns the frames that follow format formatIndex.
func (si *StreamingInterface) FrameDescriptors(formatIndex uint8) []descriptors.FrameDescriptor {
	var descs []descriptors.FrameDescriptor
	var current uint8
	for _, desc := range si.Descriptors {
		switch d := desc.(type) {
		case descriptors.FormatDescriptor:
			current = d.Index()
		case descriptors.FrameDescriptor:
			if current == formatIndex {
				descs = append(descs, d)
			}
		}
	}
	return descs
}

// DeviceInfo is the device as a host enumerates it from its configuration
// descriptor set.
type DeviceInfo struct {
	Configuration      *descriptors.ConfigurationDescriptor
	ControlInterface   *ControlInterface
	StreamingInterface *StreamingInterface
}

// DeviceInfo walks the active descriptor set and decodes every descriptor.
func (d *Device) DeviceInfo() (*DeviceInfo, error) {
	info := &DeviceInfo{
		ControlInterface:   &ControlInterface{},
		StreamingInterface: &StreamingInterface{},
	}
	w := catalog.NewWalker(d.catalog.Bytes())
	for w.Next() {
		desc := w.Descriptor()
		v, err := desc.Decode()
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case *descriptors.ConfigurationDescriptor:
			info.Configuration = v
		case *descriptors.HeaderDescriptor:
			info.ControlInterface.Header = v
			info.StreamingInterface.bcdUVC = v.UVC
		case descriptors.ControlInterface:
			info.ControlInterface.Descriptors = append(info.ControlInterface.Descriptors, v)
		case *descriptors.InputHeaderDescriptor:
			info.StreamingInterface.InputHeader = v
		case *descriptors.EndpointDescriptor:
			if desc.Interface == catalog.StreamingInterface {
				info.StreamingInterface.Endpoints = append(info.StreamingInterface.Endpoints, v)
			}
		case descriptors.FormatDescriptor, descriptors.FrameDescriptor:
			info.StreamingInterface.Descriptors = append(info.StreamingInterface.Descriptors, v)
		}
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	if info.Configuration == nil || info.ControlInterface.Header == nil {
		return nil, errors.Wrap(catalog.ErrMalformedDescriptor, "no configuration or VC header")
	}
	return info, nil
}
