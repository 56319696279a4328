package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/rivo/tview"
	flag "github.com/spf13/pflag"

	uvc "github.com/kevmo314/go-uvc-device"
	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
	"github.com/kevmo314/go-uvc-device/pkg/requests"
)

var getRequests = []struct {
	name string
	code requests.RequestCode
}{
	{"GET_CUR", requests.RequestCodeGetCur},
	{"GET_MIN", requests.RequestCodeGetMin},
	{"GET_MAX", requests.RequestCodeGetMax},
	{"GET_RES", requests.RequestCodeGetRes},
	{"GET_DEF", requests.RequestCodeGetDef},
	{"GET_LEN", requests.RequestCodeGetLen},
	{"GET_INFO", requests.RequestCodeGetInfo},
}

func main() {
	speedFlag := flag.String("speed", "super", "bus speed to describe: high or super")
	transportFlag := flag.String("transport", "iso", "video transport: iso or bulk")
	flag.Parse()

	speed, err := catalog.ParseSpeed(*speedFlag)
	if err != nil {
		panic(err)
	}
	transport, err := catalog.ParseTransport(*transportFlag)
	if err != nil {
		panic(err)
	}

	app := tview.NewApplication()

	logText := tview.NewTextView()
	logText.SetMaxLines(200).SetBorder(true).SetTitle("Log")
	logText.SetChangedFunc(func() { app.Draw() })

	logger := log.NewLogfmtLogger(log.NewSyncWriter(logText))
	logger = level.NewFilter(logger, level.AllowDebug())

	dev, err := uvc.NewDevice(uvc.WithSpeed(speed), uvc.WithTransport(transport), uvc.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	info, err := dev.DeviceInfo()
	if err != nil {
		panic(err)
	}

	descList := tview.NewList()
	descList.SetBorder(true).SetTitle(fmt.Sprintf("Descriptors (%s, %s, %d bytes)", speed, transport, dev.Catalog().TotalLength()))

	detail := tview.NewTextView()
	detail.SetBorder(true).SetTitle("Detail")

	unitList := tview.NewList()
	unitList.SetBorder(true).SetTitle("Units")

	controlList := tview.NewList()
	controlList.SetBorder(true).SetTitle("Controls")

	w := catalog.NewWalker(dev.Catalog().Bytes())
	for d := range w.All() {
		descList.AddItem(descriptorTitle(d), fmt.Sprintf("offset %d, interface %d alt %d", d.Offset, d.Interface, d.AltSetting), 0, func() {
			detail.SetText(descriptorDetail(d))
		})
	}
	if err := w.Err(); err != nil {
		_ = level.Error(logger).Log("msg", "walking descriptors", "err", err)
	}

	var selected *uvc.Control
	for _, n := range dev.Catalog().Graph() {
		unitList.AddItem(fmt.Sprintf("%s %d", n.Kind, n.ID), fmt.Sprintf("source %d", n.SourceID), 0, func() {
			controlList.Clear()
			selected = nil
			for _, c := range dev.SupportedControls(n.ID) {
				controlList.AddItem(c.Selector.Name, fmt.Sprintf("selector 0x%02x, %d bytes", c.Selector.Code, c.Selector.Width()), 0, func() {
					selected = &c
					detail.SetText(controlDetail(c))
				})
			}
			app.SetFocus(controlList)
		})
	}

	secondColumn := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(unitList, 0, 1, false).
		AddItem(controlList, 0, 2, false)

	controlList.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Rune() != 's' || selected == nil {
			return event
		}
		c := *selected
		input := tview.NewInputField()
		input.SetLabel(fmt.Sprintf("SET_CUR %s (hex): ", c.Selector.Name)).
			SetFieldWidth(2 * c.Selector.Width()).
			SetDoneFunc(func(key tcell.Key) {
				defer func() {
					secondColumn.RemoveItem(input)
					app.SetFocus(controlList)
				}()
				if key != tcell.KeyEnter {
					return
				}
				value, err := hex.DecodeString(strings.TrimSpace(input.GetText()))
				if err != nil {
					_ = level.Warn(logger).Log("msg", "bad hex value", "err", err)
					return
				}
				if err := c.Set(value); err != nil {
					_ = level.Warn(logger).Log("msg", "SET_CUR failed", "control", c.Selector.Name, "err", err, "error_code", dev.LastError())
				}
				detail.SetText(controlDetail(c))
			})
		secondColumn.AddItem(input, 1, 0, false)
		app.SetFocus(input)
		return nil
	})

	header := tview.NewTextView().SetText(fmt.Sprintf("%04x:%04x %s / %s  UVC %s  %d formats  (enter: select, s: SET_CUR, tab: next pane)",
		dev.Identity().VendorID, dev.Identity().ProductID, dev.Identity().Manufacturer, dev.Identity().Product,
		info.StreamingInterface.UVCVersionString(), len(info.StreamingInterface.FormatDescriptors())))

	panes := []tview.Primitive{descList, unitList, controlList, detail}
	focus := 0
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyTab {
			focus = (focus + 1) % len(panes)
			app.SetFocus(panes[focus])
			return nil
		}
		return event
	})

	// Create the layout.
	flex := tview.NewFlex().
		AddItem(descList, 0, 1, true).
		AddItem(secondColumn, 0, 1, false).
		AddItem(detail, 0, 2, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, 1, 0, false).
		AddItem(flex, 0, 1, true).
		AddItem(logText, 10, 0, false)

	if err := app.SetRoot(root, true).Run(); err != nil {
		panic(err)
	}
}

func descriptorTitle(d catalog.Descriptor) string {
	switch d.Type {
	case descriptors.DescriptorTypeConfiguration:
		return "Configuration"
	case descriptors.DescriptorTypeInterface:
		return fmt.Sprintf("Interface %d alt %d", d.Interface, d.AltSetting)
	case descriptors.DescriptorTypeEndpoint:
		return fmt.Sprintf("Endpoint 0x%02x", d.Raw[2])
	case descriptors.DescriptorTypeInterfaceAssociation:
		return "Interface Association"
	case descriptors.DescriptorTypeSuperSpeedEndpointCompanion:
		return "SuperSpeed Endpoint Companion"
	}
	v, err := d.Decode()
	if err != nil {
		return fmt.Sprintf("Unknown (type 0x%02x)", byte(d.Type))
	}
	switch v := v.(type) {
	case *descriptors.HeaderDescriptor:
		return "VC Header"
	case *descriptors.CameraTerminalDescriptor:
		return fmt.Sprintf("Camera Terminal %d", v.TerminalID)
	case *descriptors.OutputTerminalDescriptor:
		return fmt.Sprintf("Output Terminal %d", v.TerminalID)
	case *descriptors.ProcessingUnitDescriptor:
		return "Processing Unit"
	case *descriptors.EncodingUnitDescriptor:
		return "Encoding Unit"
	case *descriptors.ExtensionUnitDescriptor:
		return "Extension Unit"
	case *descriptors.InputHeaderDescriptor:
		return "VS Input Header"
	case *descriptors.MJPEGFormatDescriptor:
		return fmt.Sprintf("MJPEG format %d (%d frames)", v.FormatIndex, v.NumFrameDescriptors)
	case *descriptors.FrameBasedFormatDescriptor:
		return fmt.Sprintf("%s format %d (%d frames)", d.Family, v.FormatIndex, v.NumFrameDescriptors)
	case *descriptors.MJPEGFrameDescriptor:
		return fmt.Sprintf("MJPEG frame %d (%dx%d)", v.FrameIndex, v.Width, v.Height)
	case *descriptors.FrameBasedFrameDescriptor:
		return fmt.Sprintf("%s frame %d (%dx%d)", d.Family, v.FrameIndex, v.Width, v.Height)
	}
	return fmt.Sprintf("%T", v)
}

func descriptorDetail(d catalog.Descriptor) string {
	var b strings.Builder
	if v, err := d.Decode(); err != nil {
		fmt.Fprintf(&b, "decode: %v\n\n", err)
	} else {
		fmt.Fprintf(&b, "%+v\n\n", v)
	}
	b.WriteString(hex.Dump(d.Raw))
	return b.String()
}

func controlDetail(c uvc.Control) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (unit %d, selector 0x%02x)\n\n", c.Selector.Name, c.Unit, c.Selector.Code)
	for _, r := range getRequests {
		buf, err := c.Get(r.code)
		if err != nil {
			fmt.Fprintf(&b, "%-9s stall: %v\n", r.name, err)
			continue
		}
		fmt.Fprintf(&b, "%-9s % x", r.name, buf)
		if r.code != requests.RequestCodeGetLen && r.code != requests.RequestCodeGetInfo {
			fmt.Fprintf(&b, "  %v", c.Selector.Decode(buf))
		}
		b.WriteString("\n")
	}
	return b.String()
}
