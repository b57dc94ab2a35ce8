// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package emulator runs a simulated thermocycler behind the PCR control
// protocol so host tools can be exercised without hardware.
package emulator

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/helix/pkg/pcp"
	"github.com/Thermoquad/helix/pkg/program"
)

// Device runs the firmware main loop against one connection at a time
type Device struct {
	cfg    DeviceConfig
	sim    *Thermocycler
	store  *Store
	logger zerolog.Logger

	// OnTick, when set, runs after every simulation step
	OnTick func(*Thermocycler)
}

// NewDevice builds a device around a simulator and its program store
func NewDevice(cfg DeviceConfig, sim *Thermocycler, store *Store, logger zerolog.Logger) *Device {
	return &Device{
		cfg:    cfg,
		sim:    sim,
		store:  store,
		logger: logger,
	}
}

// Thermocycler returns the simulator driven by the device
func (d *Device) Thermocycler() *Thermocycler {
	return d.sim
}

func parseCommand(text string) pcp.Command {
	return program.ParseCommand(text)
}

// Serve runs the cooperative loop on rw until ctx is cancelled or the
// stream ends. Each pass drains the decoder until it consumes nothing, then
// advances the simulation. Parse state is per connection.
func (d *Device) Serve(ctx context.Context, rw io.ReadWriter) error {
	src := pcp.NewStreamSource(rw)
	dec := pcp.NewDecoder(nil)
	dec.SetStallTimeout(d.cfg.StallTimeout)

	var store pcp.ProgramStore
	if d.store != nil {
		store = d.store
	}
	disp := pcp.NewDispatcher(pcp.DispatcherConfig{
		Out:       src,
		Store:     store,
		Parser:    pcp.CommandParserFunc(parseCommand),
		Executor:  d.sim,
		Telemetry: d.sim,
		Logger:    d.logger,
	})
	dec.SetHandler(disp)

	interval := d.cfg.TickInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	defer func() {
		stats := dec.Stats()
		d.logger.Info().
			Uint64("frames", stats.Frames).
			Uint64("errors", stats.Errors()).
			Uint64("overruns", src.Overruns()).
			Msg("connection closed")
	}()

	last := time.Now()
	for {
		for dec.Poll(src) {
		}

		now := time.Now()
		d.sim.Tick(now.Sub(last))
		last = now
		if d.OnTick != nil {
			d.OnTick(d.sim)
		}

		if err := src.Err(); err != nil && src.Available() == 0 {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-src.Ready():
		}
	}
}
