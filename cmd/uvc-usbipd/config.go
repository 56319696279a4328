package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/efficientgo/core/errors"
	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	uvc "github.com/kevmo314/go-uvc-device"
	"github.com/kevmo314/go-uvc-device/pkg/catalog"
)

const envPrefix = "UVC_USBIPD"

// controlSpec is one configured control value. Value is hex, little endian,
// exactly as the control carries it on the wire.
type controlSpec struct {
	Unit     uint8  `json:"unit"`
	Selector uint8  `json:"selector"`
	Value    string `json:"value"`
}

// addFlags defines the daemon's flags on fs.
func addFlags(fs *flag.FlagSet) {
	fs.String("config", "", "Path to the config file.")
	fs.String("listen", ":3240", "The address at which to serve USB/IP.")
	fs.String("metrics-listen", ":8080", "The address at which to listen for health and metrics.")
	fs.String("bus-id", "1-1", "The bus id the device is exported under.")
	fs.String("speed", "super", "The bus speed to describe: high or super.")
	fs.String("transport", "iso", "The video transport: iso or bulk.")
	fs.Uint8("max-burst", catalog.DefaultMaxBurst, "bMaxBurst of the SuperSpeed video endpoint.")
	fs.String("log-level", logLevelInfo, fmt.Sprintf("Log level to use. Possible values: %s", availableLogLevels))
}

// initConfig binds fs into v and reads the config file, if any.
func initConfig(v *viper.Viper, fs *flag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("uvc-usbipd")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/uvc-usbipd/")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func decode(input, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// getIdentity overlays the identity section on the default identity.
func getIdentity(v *viper.Viper) (catalog.Identity, error) {
	id := catalog.DefaultIdentity()
	raw := v.Get("identity")
	if raw == nil {
		return id, nil
	}
	if err := decode(raw, &id); err != nil {
		return catalog.Identity{}, errors.Wrap(err, "failed to decode identity")
	}
	return id, nil
}

func getControlValues(v *viper.Viper) ([]uvc.ControlValue, error) {
	raw := v.Get("controls")
	if raw == nil {
		return nil, nil
	}
	var specs []controlSpec
	if err := decode(raw, &specs); err != nil {
		return nil, errors.Wrap(err, "failed to decode controls")
	}
	values := make([]uvc.ControlValue, 0, len(specs))
	for _, s := range specs {
		value, err := hex.DecodeString(strings.TrimPrefix(s.Value, "0x"))
		if err != nil {
			return nil, errors.Wrapf(err, "control %d/%d value %q", s.Unit, s.Selector, s.Value)
		}
		values = append(values, uvc.ControlValue{Unit: s.Unit, Selector: s.Selector, Value: value})
	}
	return values, nil
}

func getDeviceOptions(v *viper.Viper) ([]uvc.Option, error) {
	speed, err := catalog.ParseSpeed(v.GetString("speed"))
	if err != nil {
		return nil, err
	}
	transport, err := catalog.ParseTransport(v.GetString("transport"))
	if err != nil {
		return nil, err
	}
	id, err := getIdentity(v)
	if err != nil {
		return nil, err
	}
	values, err := getControlValues(v)
	if err != nil {
		return nil, err
	}
	return []uvc.Option{
		uvc.WithSpeed(speed),
		uvc.WithTransport(transport),
		uvc.WithIdentity(id),
		uvc.WithMaxBurst(uint8(v.GetUint("max-burst"))),
		uvc.WithControlValues(values),
	}, nil
}
