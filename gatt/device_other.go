//go:build !linux

package gatt

import "github.com/go-ble/ble"

// defaultDevice is a stub for platforms without an HCI socket backend
func defaultDevice(...ble.Option) (device, error) {
	return nil, ErrUnsupportedPlatform
}
