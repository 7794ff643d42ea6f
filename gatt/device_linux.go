//go:build linux

package gatt

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

// defaultDevice opens the HCI adapter through the Linux socket backend
func defaultDevice(opts ...ble.Option) (device, error) {
	dev, err := linux.NewDevice(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open HCI device: %w", err)
	}
	return dev, nil
}
