package descriptors

type ClassCode byte

const (
	ClassCodeVideo         ClassCode = 0x0E
	ClassCodeMiscellaneous ClassCode = 0xEF
)

type SubclassCode byte

const (
	SubclassCodeUndefined                SubclassCode = 0x00
	SubclassCodeVideoControl             SubclassCode = 0x01
	SubclassCodeVideoStreaming           SubclassCode = 0x02
	SubclassCodeVideoInterfaceCollection SubclassCode = 0x03

	// used with ClassCodeMiscellaneous for devices carrying an IAD
	SubclassCodeCommon SubclassCode = 0x02
)

type ProtocolCode byte

const (
	ProtocolCodeUndefined ProtocolCode = 0x00
	ProtocolCode15        ProtocolCode = 0x01

	ProtocolCodeInterfaceAssociation ProtocolCode = 0x01
)

// DescriptorType is the bDescriptorType of a standard USB descriptor.
type DescriptorType byte

const (
	DescriptorTypeDevice                      DescriptorType = 0x01
	DescriptorTypeConfiguration               DescriptorType = 0x02
	DescriptorTypeString                      DescriptorType = 0x03
	DescriptorTypeInterface                   DescriptorType = 0x04
	DescriptorTypeEndpoint                    DescriptorType = 0x05
	DescriptorTypeDeviceQualifier             DescriptorType = 0x06
	DescriptorTypeInterfaceAssociation        DescriptorType = 0x0B
	DescriptorTypeBOS                         DescriptorType = 0x0F
	DescriptorTypeDeviceCapability            DescriptorType = 0x10
	DescriptorTypeSuperSpeedEndpointCompanion DescriptorType = 0x30
)

type ClassSpecificDescriptorType int

const (
	ClassSpecificDescriptorTypeUndefined     ClassSpecificDescriptorType = 0x20
	ClassSpecificDescriptorTypeDevice        ClassSpecificDescriptorType = 0x21
	ClassSpecificDescriptorTypeConfiguration ClassSpecificDescriptorType = 0x22
	ClassSpecificDescriptorTypeString        ClassSpecificDescriptorType = 0x23
	ClassSpecificDescriptorTypeInterface     ClassSpecificDescriptorType = 0x24
	ClassSpecificDescriptorTypeEndpoint      ClassSpecificDescriptorType = 0x25
)
