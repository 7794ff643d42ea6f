package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (f *fakeDetector) Transport() string { return f.transport }

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

// withRegistry swaps the global registry for the duration of a test
func withRegistry(t *testing.T, detectors ...Detector) {
	t.Helper()
	registryMu.Lock()
	saved := registry
	registry = map[string]Detector{}
	registryMu.Unlock()

	for _, d := range detectors {
		RegisterDetector(d)
	}
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})
}

//nolint:paralleltest // mutates the global detector registry
func TestDetectAll_OrdersByConfidence(t *testing.T) {
	withRegistry(t,
		&fakeDetector{transport: "uart", devices: []DeviceInfo{
			{Transport: "uart", Path: "/dev/ttyUSB0", Confidence: Medium},
		}},
		&fakeDetector{transport: "i2c", devices: []DeviceInfo{
			{Transport: "i2c", Path: "/dev/i2c-1:0x28", Confidence: High},
			{Transport: "i2c", Path: "/dev/i2c-1:0x2A", Confidence: Low},
		}},
	)

	devices, err := DetectAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "/dev/i2c-1:0x28", devices[0].Path)
	assert.Equal(t, "/dev/ttyUSB0", devices[1].Path)
	assert.Equal(t, Low, devices[2].Confidence)
}

//nolint:paralleltest // mutates the global detector registry
func TestDetectAll_NothingFound(t *testing.T) {
	withRegistry(t,
		&fakeDetector{transport: "i2c", err: ErrUnsupportedPlatform},
		&fakeDetector{transport: "uart", err: ErrNoDevicesFound},
	)

	_, err := DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)
}

//nolint:paralleltest // mutates the global detector registry
func TestDetectAll_ReportsDetectorErrors(t *testing.T) {
	enumErr := errors.New("enumeration failed")
	withRegistry(t, &fakeDetector{transport: "uart", err: enumErr})

	_, err := DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)
	require.ErrorIs(t, err, enumErr)
}

//nolint:paralleltest // mutates the global detector registry
func TestRegisterDetector_ReplacesSameTransport(t *testing.T) {
	first := &fakeDetector{transport: "uart"}
	second := &fakeDetector{transport: "uart"}
	withRegistry(t, first, second)

	detectors := Detectors()
	require.Len(t, detectors, 1)
	assert.Same(t, second, detectors[0])
}

func TestDeviceInfo_String(t *testing.T) {
	t.Parallel()

	d := DeviceInfo{Transport: "i2c", Path: "/dev/i2c-1:0x28", Name: "MFRC522", Confidence: High}
	assert.Equal(t, "i2c /dev/i2c-1:0x28 (MFRC522, confidence high)", d.String())
}
