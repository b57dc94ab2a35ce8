// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/internal/logging"
	"github.com/Thermoquad/helix/internal/transport"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Logging
	logLevel string
	logger   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "helix",
	Short: "OpenPCR Serial Protocol Toolkit",
	Long: `Helix - A CLI tool for talking to OpenPCR thermocyclers over their serial
control protocol.

Provides commands for raw frame logging, status polling, sending programs,
an interactive monitor, and a device emulator for testing host software
without hardware.

Connection modes:
  Serial:    --port /dev/ttyACM0 [--baud 4800]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the HELIX_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", transport.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); overrides "+logging.EnvLogLevel)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	if logLevel != "" {
		lvl, ok := logging.ParseLevel(logLevel)
		if !ok {
			return fmt.Errorf("unknown log level: %s", logLevel)
		}
		cfg.Level = lvl
	}
	logger = logging.Configure(cfg)
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
