package uvc

import (
	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/controls"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

// Control addresses one unit control through the control transfer path, the
// same way a host driver reaches it.
type Control struct {
	dev      *Device
	Unit     uint8
	Selector controls.Selector
}

// SupportedControls lists the controls a unit advertises in its bmControls.
// The extension and encoding units advertise everything they define.
func (d *Device) SupportedControls(unitID uint8) []Control {
	var supported []Control
	bitmap := d.registry.Bitmap(unitID)
	for _, s := range d.registry.Selectors(unitID) {
		if !s.Supported() || bitmap&(1<<s.Bit) == 0 {
			continue
		}
		supported = append(supported, Control{dev: d, Unit: unitID, Selector: s})
	}
	return supported
}

func (c Control) setup(code requests.RequestCode, length uint16) *requests.SetupPacket {
	return requests.ClassRequest(code, c.Selector.Code, c.Unit, catalog.ControlInterface, length)
}

// Get issues a GET request. code must be one of GET_CUR through GET_DEF.
func (c Control) Get(code requests.RequestCode) ([]byte, error) {
	length := uint16(c.Selector.Width())
	switch code {
	case requests.RequestCodeGetLen:
		length = 2
	case requests.RequestCodeGetInfo:
		length = 1
	}
	return c.dev.HandleSetup(c.setup(code, length), nil)
}

func (c Control) Set(value []byte) error {
	_, err := c.dev.HandleSetup(c.setup(requests.RequestCodeSetCur, uint16(len(value))), value)
	return err
}

// Values decodes GET_CUR into one number per field.
func (c Control) Values() ([]int64, error) {
	buf, err := c.Get(requests.RequestCodeGetCur)
	if err != nil {
		return nil, err
	}
	return c.Selector.Decode(buf), nil
}
