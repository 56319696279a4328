package main

import (
	"os"
	"path/filepath"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	uvc "github.com/kevmo314/go-uvc-device"
	"github.com/kevmo314/go-uvc-device/pkg/catalog"
)

func loadConfig(t *testing.T, yaml string, args ...string) *viper.Viper {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	addFlags(fs)
	require.NoError(t, fs.Parse(append([]string{"--config", path}, args...)))
	v := viper.New()
	require.NoError(t, initConfig(v, fs))
	return v
}

const sampleConfig = `
speed: high
identity:
  vendor_id: 0x1d6b
  product: Test Camera
  serial: "0001"
controls:
  - unit: 2
    selector: 2
    value: "f6ff"
`

func TestConfigFile(t *testing.T) {
	v := loadConfig(t, sampleConfig)

	assert.Equal(t, "high", v.GetString("speed"))
	assert.Equal(t, ":3240", v.GetString("listen"))

	id, err := getIdentity(v)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1d6b), id.VendorID)
	assert.Equal(t, "Test Camera", id.Product)
	assert.Equal(t, "0001", id.Serial)
	assert.Equal(t, catalog.DefaultIdentity().Manufacturer, id.Manufacturer)

	values, err := getControlValues(v)
	require.NoError(t, err)
	assert.Equal(t, []uvc.ControlValue{{Unit: 2, Selector: 2, Value: []byte{0xf6, 0xff}}}, values)
}

func TestFlagsOverrideFile(t *testing.T) {
	v := loadConfig(t, sampleConfig, "--speed", "super", "--transport", "bulk")

	opts, err := getDeviceOptions(v)
	require.NoError(t, err)
	dev, err := uvc.NewDevice(opts...)
	require.NoError(t, err)
	assert.Equal(t, catalog.SpeedSuper, dev.Speed())
	assert.Equal(t, catalog.TransportBulk, dev.Transport())
	assert.Equal(t, "Test Camera", dev.Identity().Product)
}

func TestBadControlValue(t *testing.T) {
	v := loadConfig(t, `
controls:
  - unit: 2
    selector: 2
    value: "zz"
`)
	_, err := getControlValues(v)
	assert.Error(t, err)
}

func TestBadSpeed(t *testing.T) {
	v := loadConfig(t, "speed: full\n")
	_, err := getDeviceOptions(v)
	assert.ErrorIs(t, err, catalog.ErrUnsupportedConfiguration)
}

func TestLogLevels(t *testing.T) {
	for _, l := range []string{logLevelAll, logLevelDebug, logLevelInfo, logLevelWarn, logLevelError, logLevelNone} {
		_, err := newLogger(l)
		assert.NoError(t, err, l)
	}
	_, err := newLogger("loud")
	assert.Error(t, err)
}
