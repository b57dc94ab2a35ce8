// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/pkg/pcp"
)

var (
	packetTestTimeout int
	packetTestRequest bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid PCR frame",
	Long: `Wait for a valid PCR protocol frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any
complete frame. Bytes outside a frame are skipped and reported. With
--request a STATUS_REQ is sent first so a quiet device has something to
answer.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	packetTestCmd.Flags().BoolVar(&packetTestRequest, "request", true, "Send a status request before waiting")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Helix - Packet Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)

	if packetTestRequest {
		request, err := pcp.EncodeFrame(pcp.TypeStatusRequest, 0, nil)
		if err != nil {
			return err
		}
		if _, err := conn.Write(request); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
	}
	fmt.Printf("Waiting for valid PCR frame...\n\n")

	frameChan := make(chan pcp.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		var got bool
		var decoder *pcp.Decoder
		decoder = pcp.NewDecoder(pcp.HandlerFunc(func(f pcp.Frame) {
			if got {
				return
			}
			got = true
			if skipped := decoder.Stats().BytesDiscarded; skipped > 0 {
				fmt.Printf("(skipped %d bytes before sync)\n", skipped)
			}
			frameChan <- f
		}))

		buf := make([]byte, 128)
		for !got {
			n, err := conn.Read(buf)
			decoder.Feed(buf[:n])
			if err != nil {
				errChan <- err
				return
			}
		}
	}()

	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s (0x%X)\n", f.Type, uint8(f.Type))
		fmt.Printf("  Sequence: %d\n", f.Sequence)
		fmt.Printf("  Length: %d bytes\n", f.Length)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
