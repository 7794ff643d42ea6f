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

package frame

import "testing"

func TestCRCA(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		data []byte
		want [2]byte
	}{
		{
			name: "two zero bytes",
			data: []byte{0x00, 0x00},
			want: [2]byte{0xA0, 0x1E},
		},
		{
			name: "0x12 0x34",
			data: []byte{0x12, 0x34},
			want: [2]byte{0x26, 0xCF},
		},
		{
			name: "HLTA",
			data: []byte{HaltA, 0x00},
			want: [2]byte{0x57, 0xCD},
		},
		{
			name: "empty data keeps the preset",
			data: []byte{},
			want: [2]byte{0x63, 0x63},
		},
	}

	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CRCA(tt.data); got != tt.want {
				t.Errorf("CRCA() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestCheckCRC(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		frame []byte
		want  bool
	}{
		{
			name:  "valid HLTA frame",
			frame: []byte{0x50, 0x00, 0x57, 0xCD},
			want:  true,
		},
		{
			name:  "corrupted CRC",
			frame: []byte{0x50, 0x00, 0x57, 0xCE},
			want:  false,
		},
		{
			name:  "too short",
			frame: []byte{0x57, 0xCD},
			want:  false,
		},
		{
			name:  "SAK with appended CRC",
			frame: AppendCRC([]byte{0x08}),
			want:  true,
		},
	}

	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CheckCRC(tt.frame); got != tt.want {
				t.Errorf("CheckCRC(%X) = %v, want %v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestBCC(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		uid  []byte
		want byte
	}{
		{
			name: "single size UID",
			uid:  []byte{0xDE, 0xAD, 0xBE, 0xEF},
			want: 0x22,
		},
		{
			name: "cascade tag level",
			uid:  []byte{CascadeTag, 0x04, 0xA3, 0x2B},
			want: 0x88 ^ 0x04 ^ 0xA3 ^ 0x2B,
		},
		{
			name: "all zero",
			uid:  []byte{0, 0, 0, 0},
			want: 0,
		},
	}

	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BCC(tt.uid); got != tt.want {
				t.Errorf("BCC() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

// TestAppendCRCProperty verifies that every frame built by AppendCRC passes
// CheckCRC and that the input is not aliased
func TestAppendCRCProperty(t *testing.T) {
	t.Parallel()
	for i := 0; i < 256; i++ {
		data := []byte{byte(i), byte(255 - i), 0x70}
		frm := AppendCRC(data)
		if !CheckCRC(frm) {
			t.Errorf("CheckCRC(AppendCRC(%X)) = false", data)
		}
		frm[0] ^= 0xFF
		if data[0] != byte(i) {
			t.Fatalf("AppendCRC aliased its input")
		}
	}
}
