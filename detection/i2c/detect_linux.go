//go:build linux

package i2c

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ZaparooProject/go-cardbridge/detection"
)

const (
	// I2CSlave is the ioctl command to set slave address
	I2CSlave = 0x0703

	// I2CFuncs is the ioctl command to get adapter functionality
	I2CFuncs = 0x0705

	// I2CFuncI2C indicates plain I2C support
	I2CFuncI2C = 0x00000001
)

// detectBuses searches every usable /dev/i2c-N for readers
func detectBuses(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findI2CBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		devices = append(devices, detectBus(bus, opts)...)
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// detectBus checks each candidate address on one bus
func detectBus(busPath string, opts *detection.Options) []detection.DeviceInfo {
	var devices []detection.DeviceInfo
	for _, addr := range candidateAddresses(opts.Mode) {
		if detection.IsPathIgnored(devicePath(busPath, addr), opts.IgnorePaths) {
			continue
		}

		if opts.Mode == detection.Passive {
			devices = append(devices, newDeviceInfo(busPath, addr, nil))
			continue
		}

		version, err := probeVersion(busPath, addr)
		if err != nil || !opts.IsAcceptedVersion(version) {
			continue
		}
		devices = append(devices, newDeviceInfo(busPath, addr, &version))
	}
	return devices
}

// probeVersion reads VersionReg from the device at addr
func probeVersion(busPath string, addr uint16) (byte, error) {
	fd, err := unix.Open(busPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", busPath, err)
	}
	defer func() { _ = unix.Close(fd) }()

	if err := unix.IoctlSetInt(fd, I2CSlave, int(addr)); err != nil {
		return 0, fmt.Errorf("set address 0x%02X: %w", addr, err)
	}
	if _, err := unix.Write(fd, []byte{versionRegister}); err != nil {
		return 0, fmt.Errorf("address 0x%02X: %w", addr, err)
	}

	var buf [1]byte
	n, err := unix.Read(fd, buf[:])
	if err != nil {
		return 0, fmt.Errorf("address 0x%02X: %w", addr, err)
	}
	if n != 1 {
		return 0, fmt.Errorf("address 0x%02X: short read", addr)
	}
	return buf[0], nil
}

// findI2CBuses discovers available I2C buses on the system
func findI2CBuses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C devices: %w", err)
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		if _, ok := busNumber(path); !ok {
			continue
		}
		if supportsI2C(path) {
			buses = append(buses, path)
		}
	}
	return buses, nil
}

// supportsI2C reports whether the adapter handles plain I2C transfers
func supportsI2C(path string) bool {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return false
	}
	defer func() { _ = unix.Close(fd) }()

	funcs, err := unix.IoctlGetInt(fd, I2CFuncs)
	if err != nil {
		return false
	}
	return funcs&I2CFuncI2C != 0
}
