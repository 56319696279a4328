package descriptors

// EncodingUnitControlSelector as defined in UVC spec 1.5, A.9.6.
type EncodingUnitControlSelector int

const (
	EncodingUnitControlSelectorUndefined                 EncodingUnitControlSelector = 0x00
	EncodingUnitControlSelectorSelectLayerControl        EncodingUnitControlSelector = 0x01
	EncodingUnitControlSelectorProfileToolsetControl     EncodingUnitControlSelector = 0x02
	EncodingUnitControlSelectorVideoResolutionControl    EncodingUnitControlSelector = 0x03
	EncodingUnitControlSelectorMinFrameIntervalControl   EncodingUnitControlSelector = 0x04
	EncodingUnitControlSelectorSliceModeControl          EncodingUnitControlSelector = 0x05
	EncodingUnitControlSelectorRateControlModeControl    EncodingUnitControlSelector = 0x06
	EncodingUnitControlSelectorAverageBitrateControl     EncodingUnitControlSelector = 0x07
	EncodingUnitControlSelectorCPBSizeControl            EncodingUnitControlSelector = 0x08
	EncodingUnitControlSelectorPeakBitRateControl        EncodingUnitControlSelector = 0x09
	EncodingUnitControlSelectorQuantizationParamsControl EncodingUnitControlSelector = 0x0A
	EncodingUnitControlSelectorSyncRefFrameControl       EncodingUnitControlSelector = 0x0B
	EncodingUnitControlSelectorLTRBufferControl          EncodingUnitControlSelector = 0x0C
	EncodingUnitControlSelectorLTRPictureControl         EncodingUnitControlSelector = 0x0D
	EncodingUnitControlSelectorLTRValidationControl      EncodingUnitControlSelector = 0x0E
	EncodingUnitControlSelectorLevelIDCControl           EncodingUnitControlSelector = 0x0F
	EncodingUnitControlSelectorSEIPayloadTypeControl     EncodingUnitControlSelector = 0x10
	EncodingUnitControlSelectorQPRangeControl            EncodingUnitControlSelector = 0x11
	EncodingUnitControlSelectorPriorityControl           EncodingUnitControlSelector = 0x12
	EncodingUnitControlSelectorStartOrStopLayerControl   EncodingUnitControlSelector = 0x13
	EncodingUnitControlSelectorErrorResiliencyControl    EncodingUnitControlSelector = 0x14
)

// ExtensionUnitControlSelector enumerates this camera's vendor extension unit controls.
type ExtensionUnitControlSelector int

const (
	ExtensionUnitControlSelectorUndefined         ExtensionUnitControlSelector = 0x00
	ExtensionUnitControlSelectorFirmwareVersion   ExtensionUnitControlSelector = 0x01
	ExtensionUnitControlSelectorTestPattern       ExtensionUnitControlSelector = 0x02
	ExtensionUnitControlSelectorLED               ExtensionUnitControlSelector = 0x03
	ExtensionUnitControlSelectorSensorTemperature ExtensionUnitControlSelector = 0x04
)

// VideoControlInterfaceControlSelector as defined in UVC spec 1.5, A.9.1.
type VideoControlInterfaceControlSelector int

const (
	VideoControlInterfaceControlSelectorUndefined        VideoControlInterfaceControlSelector = 0x00
	VideoControlInterfaceControlSelectorVideoPowerMode   VideoControlInterfaceControlSelector = 0x01
	VideoControlInterfaceControlSelectorRequestErrorCode VideoControlInterfaceControlSelector = 0x02
)

// VideoStreamingInterfaceControlSelector as defined in UVC spec 1.5, A.9.8.
type VideoStreamingInterfaceControlSelector int

const (
	VideoStreamingInterfaceControlSelectorUndefined          VideoStreamingInterfaceControlSelector = 0x00
	VideoStreamingInterfaceControlSelectorProbe              VideoStreamingInterfaceControlSelector = 0x01
	VideoStreamingInterfaceControlSelectorCommit             VideoStreamingInterfaceControlSelector = 0x02
	VideoStreamingInterfaceControlSelectorStillProbe         VideoStreamingInterfaceControlSelector = 0x03
	VideoStreamingInterfaceControlSelectorStillCommit        VideoStreamingInterfaceControlSelector = 0x04
	VideoStreamingInterfaceControlSelectorStillImageTrigger  VideoStreamingInterfaceControlSelector = 0x05
	VideoStreamingInterfaceControlSelectorStreamErrorCode    VideoStreamingInterfaceControlSelector = 0x06
	VideoStreamingInterfaceControlSelectorGenerateKeyFrame   VideoStreamingInterfaceControlSelector = 0x07
	VideoStreamingInterfaceControlSelectorUpdateFrameSegment VideoStreamingInterfaceControlSelector = 0x08
	VideoStreamingInterfaceControlSelectorSynchDelay         VideoStreamingInterfaceControlSelector = 0x09
)
