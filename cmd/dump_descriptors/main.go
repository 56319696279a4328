package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	usb "github.com/kevmo314/go-usb"
	flag "github.com/spf13/pflag"

	uvc "github.com/kevmo314/go-uvc-device"
	"github.com/kevmo314/go-uvc-device/pkg/catalog"
	"github.com/kevmo314/go-uvc-device/pkg/descriptors"
)

func main() {
	speedFlag := flag.String("speed", "super", "bus speed: high or super")
	transportFlag := flag.String("transport", "iso", "video transport: iso or bulk")
	all := flag.Bool("all", false, "dump every speed and transport combination")
	dump := flag.Bool("hex", false, "hexdump the configuration descriptor set")
	flag.Parse()

	logger := level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), level.AllowInfo())

	type combo struct {
		speed     catalog.Speed
		transport catalog.Transport
	}
	var combos []combo
	if *all {
		for _, s := range []catalog.Speed{catalog.SpeedHigh, catalog.SpeedSuper} {
			for _, t := range []catalog.Transport{catalog.TransportIsochronous, catalog.TransportBulk} {
				combos = append(combos, combo{s, t})
			}
		}
	} else {
		s, err := catalog.ParseSpeed(*speedFlag)
		if err != nil {
			_ = level.Error(logger).Log("msg", "bad --speed", "err", err)
			os.Exit(2)
		}
		t, err := catalog.ParseTransport(*transportFlag)
		if err != nil {
			_ = level.Error(logger).Log("msg", "bad --transport", "err", err)
			os.Exit(2)
		}
		combos = append(combos, combo{s, t})
	}

	for _, c := range combos {
		if err := dumpOne(c.speed, c.transport, *dump); err != nil {
			_ = level.Error(logger).Log("msg", "failed to dump descriptors", "speed", c.speed, "transport", c.transport, "err", err)
			os.Exit(1)
		}
	}
}

func dumpOne(speed catalog.Speed, transport catalog.Transport, dump bool) error {
	dev, err := uvc.NewDevice(uvc.WithSpeed(speed), uvc.WithTransport(transport))
	if err != nil {
		return err
	}
	cat := dev.Catalog()
	fmt.Printf("=== %s speed, %s: %d bytes, max payload %d ===\n", speed, transport, cat.TotalLength(), cat.MaxPayloadTransferSize())

	info, err := dev.DeviceInfo()
	if err != nil {
		return err
	}
	fmt.Printf("UVC %s, VC header wTotalLength %d, VS input header wTotalLength %d\n",
		info.StreamingInterface.UVCVersionString(), cat.ControlTotalLength(), cat.StreamingTotalLength())

	w := catalog.NewWalker(cat.Bytes())
	for d := range w.All() {
		v, err := d.Decode()
		if err != nil {
			fmt.Printf("  %4d  len %3d  type 0x%02x  (%v)\n", d.Offset, d.Length, byte(d.Type), err)
			continue
		}
		fmt.Printf("  %4d  len %3d  if %d alt %d  %T\n", d.Offset, d.Length, d.Interface, d.AltSetting, v)
	}
	if err := w.Err(); err != nil {
		return err
	}

	si := info.StreamingInterface
	for _, f := range si.FormatDescriptors() {
		switch d := f.(type) {
		case *descriptors.MJPEGFormatDescriptor:
			fmt.Printf("  Format %d: MJPEG, DefaultFrameIndex: %d\n", d.FormatIndex, d.DefaultFrameIndex)
		case *descriptors.FrameBasedFormatDescriptor:
			fmt.Printf("  Format %d: Frame-Based (GUID: %s), DefaultFrameIndex: %d\n", d.FormatIndex, d.GUIDFormat, d.DefaultFrameIndex)
		}
		for _, fr := range si.FrameDescriptors(f.Index()) {
			switch d := fr.(type) {
			case *descriptors.MJPEGFrameDescriptor:
				fmt.Printf("    Frame %d: %dx%d, BitRate: %d - %d bps, Intervals: %v\n",
					d.FrameIndex, d.Width, d.Height, d.MinBitRate, d.MaxBitRate, d.DiscreteFrameIntervals)
			case *descriptors.FrameBasedFrameDescriptor:
				fmt.Printf("    Frame %d: %dx%d, BitRate: %d - %d bps, Intervals: %v\n",
					d.FrameIndex, d.Width, d.Height, d.MinBitRate, d.MaxBitRate, d.DiscreteFrameIntervals)
			}
		}
	}

	// the same set as a host USB stack parses it
	var cfg usb.ConfigDescriptor
	if err := cfg.Unmarshal(cat.Bytes()); err != nil {
		return err
	}
	fmt.Printf("Config %d: %d interfaces\n", cfg.ConfigurationValue, cfg.NumInterfaces)
	for _, iface := range cfg.Interfaces {
		for i, alt := range iface.AltSettings {
			fmt.Printf("  Interface %d alt %d: class %d, %d endpoints\n", alt.InterfaceNumber, i, alt.InterfaceClass, len(alt.Endpoints))
			for _, e := range alt.Endpoints {
				fmt.Printf("    Endpoint 0x%02x, companion: %t\n", e.EndpointAddr, e.SSCompanion != nil)
			}
		}
	}

	if dump {
		fmt.Print(hex.Dump(cat.Bytes()))
	}
	fmt.Println()
	return nil
}
