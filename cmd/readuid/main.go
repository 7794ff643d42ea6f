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

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	cardbridge "github.com/ZaparooProject/go-cardbridge"
	"github.com/ZaparooProject/go-cardbridge/connect"
	"github.com/ZaparooProject/go-cardbridge/detection"
)

type config struct {
	transport    *string
	devicePath   *string
	timeout      *time.Duration
	writeHex     *string
	block        *uint
	debug        *bool
	list         *bool
	pollInterval *time.Duration
}

func parseFlags() *config {
	cfg := &config{
		transport: flag.String("transport", "",
			"Reader bus: spi, i2c or uart. Leave empty for auto-detection."),
		devicePath: flag.String("device", "",
			"Reader device path (e.g. /dev/spidev0.0, /dev/i2c-1:0x28, /dev/ttyUSB0)"),
		timeout:  flag.Duration("timeout", 30*time.Second, "Timeout for card detection (default: 30s)"),
		writeHex: flag.String("write", "", "32 hex digits to write to the card (if not specified, will only read)"),
		block:    flag.Uint("block", 0, "Card block to write"),
		debug:    flag.Bool("debug", false, "Enable debug output"),
		list:     flag.Bool("list", false, "List detected readers and exit"),
		pollInterval: flag.Duration("poll-interval", 100*time.Millisecond,
			"Polling interval for card detection (default: 100ms)"),
	}
	flag.Parse()

	return cfg
}

func parseBlock(s string) (cardbridge.Block, error) {
	var block cardbridge.Block
	data, err := hex.DecodeString(s)
	if err != nil {
		return block, fmt.Errorf("invalid write data: %w", err)
	}
	if len(data) != cardbridge.BlockSize {
		return block, fmt.Errorf("write data must be %d bytes, got %d", cardbridge.BlockSize, len(data))
	}
	copy(block[:], data)
	return block, nil
}

// listReaders prints every reader auto-detection finds.
func listReaders(ctx context.Context, w io.Writer, detect detectFunc) error {
	opts := detection.DefaultOptions()
	readers, err := detect(ctx, &opts)
	if len(readers) == 0 {
		if err != nil {
			return fmt.Errorf("reader discovery failed: %w", err)
		}
		_, _ = fmt.Fprintln(w, "No readers found")
		return nil
	}

	for i, reader := range readers {
		_, _ = fmt.Fprintf(w, "%d. %s\n", i+1, reader)
		if version, ok := reader.Metadata["version"]; ok {
			_, _ = fmt.Fprintf(w, "   version: %s\n", version)
		}
	}
	return nil
}

type detectFunc func(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error)

// waitForCard polls until a card answers or ctx is done.
func waitForCard(ctx context.Context, guard *cardbridge.Guard, interval time.Duration) (cardbridge.UID, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var (
			uid cardbridge.UID
			err error
		)
		guard.Do(func(r cardbridge.Reader) {
			uid, err = cardbridge.Identify(r)
		})
		switch {
		case err == nil:
			return uid, nil
		case !cardbridge.IsNoCard(err):
			slog.Debug("identify failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return cardbridge.UID{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func run(cfg *config) error {
	var data cardbridge.Block
	if *cfg.writeHex != "" {
		var err error
		if data, err = parseBlock(*cfg.writeHex); err != nil {
			return err
		}
	}

	level := slog.LevelInfo
	if *cfg.debug {
		level = slog.LevelDebug
	}
	log := cardbridge.NewLogger(os.Stderr, level, false)
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), *cfg.timeout)
	defer cancel()

	if *cfg.list {
		return listReaders(ctx, os.Stdout, detection.DetectAll)
	}

	readerCfg := cardbridge.DefaultConfig().Reader
	readerCfg.Transport = *cfg.transport
	readerCfg.Path = *cfg.devicePath

	device, err := connect.Open(ctx, readerCfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to reader: %w", err)
	}
	defer func() { _ = device.Close() }()

	if version, versionErr := device.Version(); versionErr == nil {
		_, _ = fmt.Printf("MFRC522 version: 0x%02X\n", version)
	}

	guard := cardbridge.NewGuard(device)
	_, _ = fmt.Printf("Waiting for card (timeout: %s, poll interval: %s)...\n", *cfg.timeout, *cfg.pollInterval)

	uid, err := waitForCard(ctx, guard, *cfg.pollInterval)
	if errors.Is(err, context.DeadlineExceeded) {
		_, _ = fmt.Printf("timeout: no card detected within %s\n", *cfg.timeout)
		return nil
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Printf("UID: %s\n", uid)

	if *cfg.writeHex == "" {
		return nil
	}

	_, _ = fmt.Print("\n=== Writing to card ===\n")
	err = cardbridge.WithReader(guard, func(r cardbridge.Reader) error {
		return cardbridge.WriteCard(r, uint8(*cfg.block), data) //nolint:gosec // block is a card block number
	})
	if err != nil {
		return fmt.Errorf("failed to write block %d: %w", *cfg.block, err)
	}
	_, _ = fmt.Println("Write successful!")
	return nil
}

func main() {
	if err := run(parseFlags()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
