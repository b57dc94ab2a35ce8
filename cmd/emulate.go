// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/internal/emulator"
	"github.com/Thermoquad/helix/pkg/lcd"
)

var (
	emulateConfig      string
	emulateListen      string
	emulatePath        string
	emulateStore       string
	emulateSensor      string
	emulateTimeScale   float64
	emulateLCD         bool
	emulateWriteConfig bool
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "Run a simulated thermocycler",
	Long: `Run an emulated OpenPCR device that speaks the serial control protocol.

The emulator simulates the heated lid and sample block, runs programs sent
to it, answers status requests, and persists the last command and the
display contrast in a program store file.

Transports:
  Serial:    --port /dev/pts/3 [--baud 4800]
             (pair with socat to get a virtual serial port)
  WebSocket: --listen 127.0.0.1:8765 --path /pcr (default)

Settings are read from a YAML file given with --config; flags override it.
Use --write-config to create a file holding the defaults.

Examples:
  # WebSocket emulator running ten times faster than real time
  helix emulate --time-scale 10 --lcd

  # Talk to it
  helix status --url ws://127.0.0.1:8765/pcr --lcd`,
	RunE: runEmulate,
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().StringVarP(&emulateConfig, "config", "c", "", "YAML config file")
	emulateCmd.Flags().StringVar(&emulateListen, "listen", "", "WebSocket listen address")
	emulateCmd.Flags().StringVar(&emulatePath, "path", "", "WebSocket endpoint path")
	emulateCmd.Flags().StringVar(&emulateStore, "store", "", "Program store file (empty keeps it in memory)")
	emulateCmd.Flags().StringVar(&emulateSensor, "sensor", "", "Thermistor profile (stock, ntc103a)")
	emulateCmd.Flags().Float64Var(&emulateTimeScale, "time-scale", 0, "Simulated seconds per real second")
	emulateCmd.Flags().BoolVar(&emulateLCD, "lcd", false, "Log the front panel display when it changes")
	emulateCmd.Flags().BoolVar(&emulateWriteConfig, "write-config", false, "Write the effective config to --config and exit")
}

// emulatorConfig loads the config file and applies flag overrides
func emulatorConfig(cmd *cobra.Command) (*emulator.Config, error) {
	cfg, err := emulator.LoadConfig(emulateConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Transport.ListenAddr = emulateListen
	}
	if flags.Changed("path") {
		cfg.Transport.Path = emulatePath
	}
	if flags.Changed("store") {
		cfg.Store.Path = emulateStore
	}
	if flags.Changed("sensor") {
		cfg.Device.Sensor = emulateSensor
	}
	if flags.Changed("time-scale") {
		cfg.Thermal.TimeScale = emulateTimeScale
	}
	if portName != "" {
		cfg.Transport.SerialPort = portName
	}
	if cmd.Flags().Changed("baud") {
		cfg.Transport.BaudRate = baudRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// lcdLogger returns an OnTick hook that logs the display whenever it changes
func lcdLogger() func(*emulator.Thermocycler) {
	var last string
	return func(t *emulator.Thermocycler) {
		screen := lcd.Render(t.Snapshot())
		text := screen.String()
		if text == last {
			return
		}
		last = text
		logger.Info().
			Str("line1", screen.Printable(0)).
			Str("line2", screen.Printable(1)).
			Msg("lcd")
	}
}

func runEmulate(cmd *cobra.Command, args []string) error {
	cfg, err := emulatorConfig(cmd)
	if err != nil {
		return err
	}

	if emulateWriteConfig {
		if emulateConfig == "" {
			return fmt.Errorf("--write-config needs --config")
		}
		if err := cfg.Save(emulateConfig); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", emulateConfig)
		return nil
	}

	store, err := emulator.OpenStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	sim, err := emulator.NewThermocycler(cfg, store, logger.With().Str("component", "thermocycler").Logger())
	if err != nil {
		return err
	}
	dev := emulator.NewDevice(cfg.Device, sim, store, logger.With().Str("component", "device").Logger())
	if emulateLCD {
		dev.OnTick = lcdLogger()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if last := store.RetrieveProgram(); last != "" {
		logger.Info().Str("command", last).Time("stored_at", store.StoredAt()).Msg("last stored command")
	}

	if cfg.Transport.SerialPort != "" {
		logger.Info().
			Str("port", cfg.Transport.SerialPort).
			Int("baud", cfg.Transport.BaudRate).
			Msg("emulating on serial port")
		return emulator.ServeSerial(ctx, dev, cfg.Transport.SerialPort, cfg.Transport.BaudRate)
	}

	srv := emulator.NewWebSocketServer(ctx, dev, cfg.Transport.Path, logger.With().Str("component", "websocket").Logger())
	ready := make(chan net.Addr, 1)
	go func() {
		select {
		case addr := <-ready:
			fmt.Printf("Emulator listening on ws://%s%s\n", addr, cfg.Transport.Path)
		case <-ctx.Done():
		}
	}()
	return srv.ListenAndServe(cfg.Transport.ListenAddr, ready)
}
