//go:build !linux

package i2c

import (
	"context"

	"github.com/ZaparooProject/go-cardbridge/detection"
)

// detectBuses is a stub for non-Linux platforms
func detectBuses(context.Context, *detection.Options) ([]detection.DeviceInfo, error) {
	return nil, detection.ErrUnsupportedPlatform
}
