// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/internal/transport"
	"github.com/Thermoquad/helix/pkg/pcp"
)

var (
	rawLogStatsInterval int
	rawLogStallTimeout  time.Duration
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display PCR protocol frames as they arrive.

Each frame is shown with timestamp, frame type, sequence number, declared
length and decoded payload. Commands are printed as text and status
responses are broken out field by field; anything else is hex dumped.

Bytes that do not belong to a frame are skipped silently and counted in the
statistics summary. Use --stats-interval to print it periodically.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().IntVar(&rawLogStatsInterval, "stats-interval", 0, "Statistics summary interval in seconds (0 to disable)")
	rawLogCmd.Flags().DurationVar(&rawLogStallTimeout, "stall-timeout", 0, "Abandon a partial frame after this much silence (0 to disable)")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Helix - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := pcp.NewDecoder(pcp.HandlerFunc(func(f pcp.Frame) {
		fmt.Print(pcp.FormatFrame(f, time.Now()))
	}))
	decoder.SetStallTimeout(rawLogStallTimeout)

	interval := time.Duration(rawLogStatsInterval) * time.Second
	lastStats := time.Now()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			decoder.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, transport.ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info().Msg("connection closed")
				fmt.Print(decoder.Stats())
				return nil
			}
			logger.Warn().Err(err).Msg("read error")
			continue
		}

		if interval > 0 && time.Since(lastStats) >= interval {
			fmt.Print(decoder.Stats())
			lastStats = time.Now()
		}
	}
}
