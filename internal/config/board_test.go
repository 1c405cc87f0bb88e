package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: md-uv3x0-sim
sample_rate: 8000
segments:
  - name: heap
    base: 0x20000000
    size: 65536
    padding_align: 8
    track: false
nvm_devices:
  - name: calflash
    kind: flash
    size: 262144
    erase_unit: 16384
    regions:
      - low: 0
        high: 0
        erase_unit: 16384
        first_sector: 0
nvm_areas:
  - name: calibration
    device: calflash
    start_addr: 0
    size: 262144
gpio_pins:
  - name: ptt
    backend: native
    pin: 4
`

func TestLoadParsesBoardDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	b, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "md-uv3x0-sim", b.Name)
	assert.Equal(t, uint32(8000), b.SampleRate)
	require.Len(t, b.Segments, 1)
	assert.Equal(t, uint64(65536), b.Segments[0].Size)
	require.Len(t, b.NVMDevices, 1)
	assert.Equal(t, "flash", b.NVMDevices[0].Kind)
	require.Len(t, b.GPIOPins, 1)
	assert.Equal(t, "ptt", b.GPIOPins[0].Name)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
