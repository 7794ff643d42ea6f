// go-cardbridge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-cardbridge.
//
// go-cardbridge is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-cardbridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-cardbridge; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB serial devices that must not be opened during
// detection. Format: VID:PID in hexadecimal (case-insensitive).
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno: opening the port pulses DTR and resets the sketch
		"2341:0001", // Arduino Uno (early firmware)
		"1A86:55D4", // CH9102 on ESP32 dev boards: resets into the bootloader
		"072F:2200", // ACR122U exposes a CCID interface, not a register bus
	}
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}

	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// ParseVIDPID extracts VID:PID from the descriptor formats serial
// enumerators report: "VID:1A86 PID:7523", "vendor=1a86 product=7523",
// "USB\VID_1A86&PID_7523" or a bare "1A86:7523".
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := valueAfter(descriptor, "VID:", "VID_", "VID=", "VENDOR=")
	pid := valueAfter(descriptor, "PID:", "PID_", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// FormatVIDPID joins separately reported VID and PID values
func FormatVIDPID(vid, pid string) string {
	vid, pid = strings.ToUpper(strings.TrimSpace(vid)), strings.ToUpper(strings.TrimSpace(pid))
	if !isHex(vid) || !isHex(pid) {
		return ""
	}
	return vid + ":" + pid
}

// valueAfter returns the hex run following the first key found
func valueAfter(s string, keys ...string) string {
	for _, key := range keys {
		if idx := strings.Index(s, key); idx >= 0 {
			return extractHex(s[idx+len(key):])
		}
	}
	return ""
}

// extractHex extracts the first sequence of hex digits from a string.
func extractHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(rune(s[end])) {
		end++
	}
	return s[:end]
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

// isHex checks if a string contains only hexadecimal characters.
func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

// IsPathIgnored checks if a device path should be ignored. Paths are
// compared after cleaning and case folding, so "/dev/../dev/ttyUSB0"
// matches "/dev/ttyUSB0" and "com3" matches "COM3".
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}

	device := normalizedPath(devicePath)
	for _, ignorePath := range ignorePaths {
		if ignorePath != "" && normalizedPath(ignorePath) == device {
			return true
		}
	}
	return false
}

func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
