// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/pkg/lcd"
	"github.com/Thermoquad/helix/pkg/pcp"
)

var (
	statusTimeout int
	statusWatch   time.Duration
	statusLCD     bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Request and print the thermocycler status",
	Long: `Send a STATUS_REQ frame and print the decoded STATUS_RESP.

With --watch the request is repeated at the given interval until interrupted.
With --lcd the status is also drawn the way the front panel display shows it.

Supports both serial and WebSocket connections.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusTimeout, "timeout", 5, "Timeout in seconds to wait for a response")
	statusCmd.Flags().DurationVar(&statusWatch, "watch", 0, "Repeat the request at this interval (0 for a single request)")
	statusCmd.Flags().BoolVar(&statusLCD, "lcd", false, "Also render the front panel display")
}

func runStatus(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Debug().Str("connection", connInfo).Msg("connected")
	client := pcp.NewClient(conn)

	for {
		st, err := requestStatus(cmd.Context(), client, time.Duration(statusTimeout)*time.Second)
		if err != nil {
			return err
		}

		fmt.Printf("[%s] Status\n", time.Now().Format("15:04:05.000"))
		fmt.Print(pcp.FormatStatus(st))
		if statusLCD {
			screen := lcd.Render(statusSnapshot(st))
			fmt.Println(screen.String())
		}

		if statusWatch <= 0 {
			return nil
		}
		fmt.Println()

		select {
		case <-cmd.Context().Done():
			return nil
		case <-time.After(statusWatch):
		}
	}
}

// requestStatus performs one status exchange bounded by timeout
func requestStatus(ctx context.Context, client *pcp.Client, timeout time.Duration) (*pcp.Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	st, err := client.RequestStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return st, nil
}

// statusSnapshot maps a received status onto the display model. The program
// name and final-step flag are not carried by the protocol.
func statusSnapshot(st *pcp.Status) lcd.Snapshot {
	return lcd.Snapshot{
		Program:          st.ProgramState,
		Thermal:          st.ThermalState,
		StepName:         st.StepName,
		LidTemp:          float64(st.LidTemp),
		PlateTemp:        st.PlateTemp,
		CurrentCycle:     st.CurrentCycle,
		NumCycles:        st.NumCycles,
		RemainingSeconds: st.Remaining,
		FirmwareVersion:  st.FirmwareVersion,
	}
}
