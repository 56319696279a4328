package controls

import (
	"github.com/efficientgo/core/errors"

	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/units"
)

var ErrUnknownKind = errors.New("no control definitions for unit kind")

// Definitions returns the selector table of a unit kind, indexed by code-1.
// Output terminals expose no controls.
func Definitions(kind units.Kind) ([]Selector, error) {
	switch kind {
	case units.KindCameraTerminal:
		return cameraTerminalSelectors(), nil
	case units.KindProcessingUnit:
		return processingUnitSelectors(), nil
	case units.KindExtensionUnit:
		return extensionUnitSelectors(), nil
	case units.KindEncodingUnit:
		return encodingUnitSelectors(), nil
	case units.KindOutputTerminal:
		return nil, nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%v", kind)
}

func u8(min, max, def int64) Field {
	return Field{Size: 1, Min: min, Max: max, Res: 1, Def: def, Bounded: true}
}

func u16(min, max, res, def int64) Field {
	return Field{Size: 2, Min: min, Max: max, Res: res, Def: def, Bounded: true}
}

func i16(min, max, res, def int64) Field {
	return Field{Size: 2, Signed: true, Min: min, Max: max, Res: res, Def: def, Bounded: true}
}

func u32(min, max, res, def int64) Field {
	return Field{Size: 4, Min: min, Max: max, Res: res, Def: def, Bounded: true}
}

func i32(min, max, res, def int64) Field {
	return Field{Size: 4, Signed: true, Min: min, Max: max, Res: res, Def: def, Bounded: true}
}

// raw is a field without a declared range.
func raw(size int, def int64) Field {
	return Field{Size: size, Def: def}
}

// camera terminal bmControls positions, UVC spec 1.5, table 3-6
var cameraTerminalBits = map[descriptors.CameraTerminalControlSelector]int{
	descriptors.CameraTerminalControlSelectorScanningModeControl:         0,
	descriptors.CameraTerminalControlSelectorAutoExposureModeControl:     1,
	descriptors.CameraTerminalControlSelectorAutoExposurePriorityControl: 2,
	descriptors.CameraTerminalControlSelectorExposureTimeAbsoluteControl: 3,
	descriptors.CameraTerminalControlSelectorExposureTimeRelativeControl: 4,
	descriptors.CameraTerminalControlSelectorFocusAbsoluteControl:        5,
	descriptors.CameraTerminalControlSelectorFocusRelativeControl:        6,
	descriptors.CameraTerminalControlSelectorIrisAbsoluteControl:         7,
	descriptors.CameraTerminalControlSelectorIrisRelativeControl:         8,
	descriptors.CameraTerminalControlSelectorZoomAbsoluteControl:         9,
	descriptors.CameraTerminalControlSelectorZoomRelativeControl:         10,
	descriptors.CameraTerminalControlSelectorPanTiltAbsoluteControl:      11,
	descriptors.CameraTerminalControlSelectorPanTiltRelativeControl:      12,
	descriptors.CameraTerminalControlSelectorRollAbsoluteControl:         13,
	descriptors.CameraTerminalControlSelectorRollRelativeControl:         14,
	descriptors.CameraTerminalControlSelectorFocusAutoControl:            17,
	descriptors.CameraTerminalControlSelectorPrivacyControl:              18,
	descriptors.CameraTerminalControlSelectorFocusSimpleControl:          19,
	descriptors.CameraTerminalControlSelectorWindowControl:               20,
	descriptors.CameraTerminalControlSelectorRegionOfInterestControl:     21,
}

func ct(code descriptors.CameraTerminalControlSelector, name string, ops Op, fields ...Field) Selector {
	return Selector{
		Kind:   units.KindCameraTerminal,
		Code:   uint8(code),
		Name:   name,
		Ops:    ops,
		Fields: fields,
		Bit:    cameraTerminalBits[code],
	}
}

const arcSecondsPerDegree = 3600

func cameraTerminalSelectors() []Selector {
	aeMode := ct(descriptors.CameraTerminalControlSelectorAutoExposureModeControl, "Auto-Exposure Mode",
		OpGetCur|OpSetCur|OpGetRes|OpGetLen|OpGetInfo|OpGetDef,
		Field{
			Size:   1,
			Res:    int64(descriptors.AutoExposureModeManual | descriptors.AutoExposureModeAperturePriority),
			Def:    int64(descriptors.AutoExposureModeAperturePriority),
			Bitmap: true,
		})
	exposure := ct(descriptors.CameraTerminalControlSelectorExposureTimeAbsoluteControl, "Exposure Time (Absolute)",
		OpsReadWrite, u32(1, 10000, 1, 333))
	exposure.AutoUpdate = true
	privacy := ct(descriptors.CameraTerminalControlSelectorPrivacyControl, "Privacy", OpsReadWrite, u8(0, 1, 0))
	privacy.AutoUpdate = true
	panTilt := i32(-180*arcSecondsPerDegree, 180*arcSecondsPerDegree, arcSecondsPerDegree, 0)

	return []Selector{
		ct(descriptors.CameraTerminalControlSelectorScanningModeControl, "Scanning Mode", 0),
		aeMode,
		ct(descriptors.CameraTerminalControlSelectorAutoExposurePriorityControl, "Auto-Exposure Priority",
			OpsSettable, u8(0, 1, int64(descriptors.AutoExposurePriorityConstant))),
		exposure,
		ct(descriptors.CameraTerminalControlSelectorExposureTimeRelativeControl, "Exposure Time (Relative)", 0),
		ct(descriptors.CameraTerminalControlSelectorFocusAbsoluteControl, "Focus (Absolute)", OpsReadWrite, u16(0, 1023, 1, 0)),
		ct(descriptors.CameraTerminalControlSelectorFocusRelativeControl, "Focus (Relative)", 0),
		ct(descriptors.CameraTerminalControlSelectorFocusAutoControl, "Focus, Auto", OpsSettable, u8(0, 1, 1)),
		ct(descriptors.CameraTerminalControlSelectorIrisAbsoluteControl, "Iris (Absolute)", 0),
		ct(descriptors.CameraTerminalControlSelectorIrisRelativeControl, "Iris (Relative)", 0),
		ct(descriptors.CameraTerminalControlSelectorZoomAbsoluteControl, "Zoom (Absolute)", OpsReadWrite, u16(100, 400, 1, 100)),
		ct(descriptors.CameraTerminalControlSelectorZoomRelativeControl, "Zoom (Relative)", 0),
		ct(descriptors.CameraTerminalControlSelectorPanTiltAbsoluteControl, "PanTilt (Absolute)", OpsReadWrite, panTilt, panTilt),
		ct(descriptors.CameraTerminalControlSelectorPanTiltRelativeControl, "PanTilt (Relative)", 0),
		ct(descriptors.CameraTerminalControlSelectorRollAbsoluteControl, "Roll (Absolute)", 0),
		ct(descriptors.CameraTerminalControlSelectorRollRelativeControl, "Roll (Relative)", 0),
		privacy,
		ct(descriptors.CameraTerminalControlSelectorFocusSimpleControl, "Focus, Simple Range", 0),
		ct(descriptors.CameraTerminalControlSelectorWindowControl, "Digital Window", 0),
		ct(descriptors.CameraTerminalControlSelectorRegionOfInterestControl, "Digital Region of Interest", 0),
	}
}

// processing unit bmControls positions, UVC spec 1.5, table 3-8
var processingUnitBits = map[descriptors.ProcessingUnitControlSelector]int{
	descriptors.ProcessingUnitBrightnessControl:                  0,
	descriptors.ProcessingUnitContrastControl:                    1,
	descriptors.ProcessingUnitHueControl:                         2,
	descriptors.ProcessingUnitSaturationControl:                  3,
	descriptors.ProcessingUnitSharpnessControl:                   4,
	descriptors.ProcessingUnitGammaControl:                       5,
	descriptors.ProcessingUnitWhiteBalanceTemperatureControl:     6,
	descriptors.ProcessingUnitWhiteBalanceComponentControl:       7,
	descriptors.ProcessingUnitBacklightCompensationControl:       8,
	descriptors.ProcessingUnitGainControl:                        9,
	descriptors.ProcessingUnitPowerLineFrequencyControl:          10,
	descriptors.ProcessingUnitHueAutoControl:                     11,
	descriptors.ProcessingUnitWhiteBalanceTemperatureAutoControl: 12,
	descriptors.ProcessingUnitWhiteBalanceComponentAutoControl:   13,
	descriptors.ProcessingUnitDigitalMultiplierControl:           14,
	descriptors.ProcessingUnitDigitalMultiplierLimitControl:      15,
	descriptors.ProcessingUnitAnalogVideoStandardControl:         16,
	descriptors.ProcessingUnitAnalogVideoLockStatusControl:       17,
	descriptors.ProcessingUnitContrastAutoControl:                18,
}

func pu(code descriptors.ProcessingUnitControlSelector, name string, ops Op, fields ...Field) Selector {
	return Selector{
		Kind:   units.KindProcessingUnit,
		Code:   uint8(code),
		Name:   name,
		Ops:    ops,
		Fields: fields,
		Bit:    processingUnitBits[code],
	}
}

func processingUnitSelectors() []Selector {
	wbTemperature := pu(descriptors.ProcessingUnitWhiteBalanceTemperatureControl, "White Balance Temperature",
		OpsReadWrite, u16(2800, 6500, 10, 4600))
	wbTemperature.AutoUpdate = true

	return []Selector{
		pu(descriptors.ProcessingUnitBacklightCompensationControl, "Backlight Compensation", OpsReadWrite, u16(0, 2, 1, 1)),
		pu(descriptors.ProcessingUnitBrightnessControl, "Brightness", OpsReadWrite, i16(-64, 64, 1, 0)),
		pu(descriptors.ProcessingUnitContrastControl, "Contrast", OpsReadWrite, u16(0, 95, 1, 32)),
		pu(descriptors.ProcessingUnitGainControl, "Gain", OpsReadWrite, u16(0, 100, 1, 0)),
		// 0 disabled, 1 50Hz, 2 60Hz, 3 auto
		pu(descriptors.ProcessingUnitPowerLineFrequencyControl, "Power Line Frequency", OpsSettable, u8(0, 3, 3)),
		pu(descriptors.ProcessingUnitHueControl, "Hue", OpsReadWrite, i16(-2000, 2000, 100, 0)),
		pu(descriptors.ProcessingUnitSaturationControl, "Saturation", OpsReadWrite, u16(0, 100, 1, 64)),
		pu(descriptors.ProcessingUnitSharpnessControl, "Sharpness", OpsReadWrite, u16(0, 7, 1, 3)),
		pu(descriptors.ProcessingUnitGammaControl, "Gamma", OpsReadWrite, u16(72, 500, 1, 100)),
		wbTemperature,
		pu(descriptors.ProcessingUnitWhiteBalanceTemperatureAutoControl, "White Balance Temperature, Auto", OpsSettable, u8(0, 1, 1)),
		pu(descriptors.ProcessingUnitWhiteBalanceComponentControl, "White Balance Component", 0),
		pu(descriptors.ProcessingUnitWhiteBalanceComponentAutoControl, "White Balance Component, Auto", 0),
		pu(descriptors.ProcessingUnitDigitalMultiplierControl, "Digital Multiplier", 0),
		pu(descriptors.ProcessingUnitDigitalMultiplierLimitControl, "Digital Multiplier Limit", 0),
		pu(descriptors.ProcessingUnitHueAutoControl, "Hue, Auto", 0),
		pu(descriptors.ProcessingUnitAnalogVideoStandardControl, "Analog Video Standard", 0),
		pu(descriptors.ProcessingUnitAnalogVideoLockStatusControl, "Analog Video Lock Status", 0),
		pu(descriptors.ProcessingUnitContrastAutoControl, "Contrast, Auto", 0),
	}
}

func xu(code descriptors.ExtensionUnitControlSelector, name string, ops Op, fields ...Field) Selector {
	return Selector{
		Kind:   units.KindExtensionUnit,
		Code:   uint8(code),
		Name:   name,
		Ops:    ops,
		Fields: fields,
		Bit:    int(code) - 1,
	}
}

// FirmwareVersion is reported by the extension unit as 0x00MMmmpp.
const FirmwareVersion = 0x00010203

func extensionUnitSelectors() []Selector {
	temperature := xu(descriptors.ExtensionUnitControlSelectorSensorTemperature, "Sensor Temperature",
		OpsReadOnly, i16(-400, 1250, 1, 350))
	temperature.AutoUpdate = true

	return []Selector{
		xu(descriptors.ExtensionUnitControlSelectorFirmwareVersion, "Firmware Version", OpsStatus, raw(4, FirmwareVersion)),
		xu(descriptors.ExtensionUnitControlSelectorTestPattern, "Test Pattern", OpsReadWrite, u8(0, 3, 0)),
		xu(descriptors.ExtensionUnitControlSelectorLED, "LED", OpsReadWrite, u8(0, 1, 1)),
		temperature,
	}
}

func eu(code descriptors.EncodingUnitControlSelector, name string, ops Op, fields ...Field) Selector {
	return Selector{
		Kind:   units.KindEncodingUnit,
		Code:   uint8(code),
		Name:   name,
		Ops:    ops,
		Fields: fields,
		Bit:    int(code) - 1,
	}
}

// locked marks a control that reshapes the committed stream.
func locked(s Selector) Selector {
	s.Locked = true
	return s
}

const (
	rateControlCBR = 1
	rateControlVBR = 2
	rateControlCQP = 3

	profileH264High = 0x6400
)

func encodingUnitSelectors() []Selector {
	qp := u16(0, 51, 1, 26)
	return []Selector{
		eu(descriptors.EncodingUnitControlSelectorSelectLayerControl, "Select Layer", OpsSettable, raw(2, 0)),
		locked(eu(descriptors.EncodingUnitControlSelectorProfileToolsetControl, "Video Profile & Toolset", OpsSettable,
			raw(2, profileH264High), raw(2, 0), raw(1, 0))),
		locked(eu(descriptors.EncodingUnitControlSelectorVideoResolutionControl, "Video Resolution", OpsReadWrite,
			u16(1280, 3840, 1, 1920), u16(720, 2160, 1, 1080))),
		eu(descriptors.EncodingUnitControlSelectorMinFrameIntervalControl, "Min Frame Interval", OpsReadWrite,
			u32(166666, 666666, 1, 333333)),
		locked(eu(descriptors.EncodingUnitControlSelectorSliceModeControl, "Slice Mode", OpsSettable,
			u16(0, 3, 1, 0), raw(2, 0))),
		locked(eu(descriptors.EncodingUnitControlSelectorRateControlModeControl, "Rate Control Mode", OpsReadWrite,
			u8(rateControlCBR, rateControlCQP, rateControlCBR))),
		eu(descriptors.EncodingUnitControlSelectorAverageBitrateControl, "Average Bitrate", OpsReadWrite,
			u32(1000000, 40000000, 1, 8000000)),
		eu(descriptors.EncodingUnitControlSelectorCPBSizeControl, "CPB Size", OpsReadWrite, u32(1, 4000000, 1, 500000)),
		eu(descriptors.EncodingUnitControlSelectorPeakBitRateControl, "Peak Bit Rate", OpsReadWrite,
			u32(1000000, 40000000, 1, 20000000)),
		eu(descriptors.EncodingUnitControlSelectorQuantizationParamsControl, "Quantization Parameter", OpsReadWrite, qp, qp, qp),
		eu(descriptors.EncodingUnitControlSelectorSyncRefFrameControl, "Synchronization and Long-Term Reference Frame", OpsSettable,
			raw(1, 0), raw(2, 0), raw(1, 0)),
		eu(descriptors.EncodingUnitControlSelectorLTRBufferControl, "Long-Term Buffer", OpsSettable, raw(1, 0), raw(1, 0)),
		eu(descriptors.EncodingUnitControlSelectorLTRPictureControl, "Long-Term Reference Picture", OpsSettable, raw(1, 0), raw(1, 0)),
		eu(descriptors.EncodingUnitControlSelectorLTRValidationControl, "Long-Term Reference Validation", OpsSettable, raw(2, 0)),
		locked(eu(descriptors.EncodingUnitControlSelectorLevelIDCControl, "Level IDC", OpsReadWrite, u8(10, 62, 41))),
		locked(eu(descriptors.EncodingUnitControlSelectorSEIPayloadTypeControl, "SEI Payload Type", OpsSettable, raw(8, 0))),
		eu(descriptors.EncodingUnitControlSelectorQPRangeControl, "QP Range", OpsReadWrite, u8(0, 51, 10), u8(0, 51, 51)),
		eu(descriptors.EncodingUnitControlSelectorPriorityControl, "Priority ID", OpsSettable, raw(1, 0)),
		eu(descriptors.EncodingUnitControlSelectorStartOrStopLayerControl, "Start or Stop Layer/View", OpsReadWrite, u8(0, 1, 1)),
		eu(descriptors.EncodingUnitControlSelectorErrorResiliencyControl, "Error Resiliency", OpsSettable, raw(2, 0)),
	}
}
