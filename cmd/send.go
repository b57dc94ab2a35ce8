// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/pkg/pcp"
	"github.com/Thermoquad/helix/pkg/program"
)

var (
	sendID       uint32
	sendAction   string
	sendName     string
	sendLid      int
	sendContrast int
	sendProgram  string
	sendFile     string
	sendRaw      string
	sendConfirm  bool
	sendTimeout  int
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a command to the thermocycler",
	Long: `Build a command and send it in a SEND_CMD frame.

The command is assembled from flags, from a YAML program file (--file), or
taken verbatim with --raw. Commands are checked before they are sent; the
device itself never reports a rejected command.

Examples:
  # Start a program given in wire syntax
  helix send --port /dev/ttyACM0 --name Quick --lid 105 \
      --program '(1[120|95|Melt])(30[20|95|Denature][20|55|Anneal][30|72|Extend])'

  # Start a program from a file
  helix send --url ws://localhost:8765/pcr --file pcr.yaml

  # Stop the running program
  helix send --port /dev/ttyACM0 --action stop

  # Set the display contrast
  helix send --port /dev/ttyACM0 --action cfg --contrast 90

With --confirm (the default) a status request follows and the command id
echoed by the device is checked.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Uint32Var(&sendID, "id", 0, "Command id (0 picks one from the clock)")
	sendCmd.Flags().StringVar(&sendAction, "action", "start", "Command action (start, stop, cfg)")
	sendCmd.Flags().StringVar(&sendName, "name", "", "Program name")
	sendCmd.Flags().IntVar(&sendLid, "lid", 0, "Lid temperature in °C")
	sendCmd.Flags().IntVar(&sendContrast, "contrast", -1, "Display contrast (0-255)")
	sendCmd.Flags().StringVar(&sendProgram, "program", "", "Program in wire syntax")
	sendCmd.Flags().StringVarP(&sendFile, "file", "f", "", "YAML program file")
	sendCmd.Flags().StringVar(&sendRaw, "raw", "", "Send this command text verbatim")
	sendCmd.Flags().BoolVar(&sendConfirm, "confirm", true, "Request status afterwards and check the command id")
	sendCmd.Flags().IntVar(&sendTimeout, "timeout", 5, "Timeout in seconds for the confirmation")
}

// buildCommand assembles the command text from the send flags
func buildCommand(id uint32) (string, uint32, error) {
	if sendRaw != "" {
		c := program.ParseCommand(sendRaw)
		return sendRaw, c.CommandID, nil
	}

	if id == 0 {
		id = uint32(time.Now().Unix() % 100000)
	}

	var c *program.Command
	if sendFile != "" {
		f, err := program.LoadFile(sendFile)
		if err != nil {
			return "", 0, err
		}
		c = f.Command(id)
		if sendName != "" {
			c.Name = sendName
		}
		if sendLid != 0 {
			c.LidTemp = sendLid
		}
	} else {
		c = &program.Command{
			CommandID: id,
			Action:    program.ParseAction(sendAction),
			Name:      sendName,
			LidTemp:   sendLid,
		}
		if c.Action == program.ActionNone {
			return "", 0, fmt.Errorf("unknown action: %s", sendAction)
		}
		if sendProgram != "" {
			p, err := program.ParseProgram(sendProgram)
			if err != nil {
				return "", 0, err
			}
			c.Program = p
		}
	}

	if sendContrast >= 0 {
		if sendContrast > 255 {
			return "", 0, errors.New("contrast must be between 0 and 255")
		}
		c.Contrast = uint8(sendContrast)
		c.HasContrast = true
	}

	if err := c.Validate(); err != nil {
		return "", 0, err
	}
	return c.Encode(), c.CommandID, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	text, id, err := buildCommand(sendID)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.Debug().Str("connection", connInfo).Str("command", text).Msg("sending command")
	return sendCommand(cmd.Context(), conn, text, id, os.Stdout)
}

// sendCommand writes text to the device and, with --confirm, checks that
// the next status echoes id
func sendCommand(ctx context.Context, rw io.ReadWriter, text string, id uint32, out io.Writer) error {
	client := pcp.NewClient(rw)
	if err := client.SendCommand(text); err != nil {
		return err
	}
	fmt.Fprintf(out, "Sent: %s\n", text)

	if !sendConfirm {
		return nil
	}

	st, err := requestStatus(ctx, client, time.Duration(sendTimeout)*time.Second)
	if err != nil {
		return err
	}
	if st.CommandID != id {
		return fmt.Errorf("device reports command id %d, expected %d", st.CommandID, id)
	}
	fmt.Fprintf(out, "Confirmed: command %d, program %s\n", st.CommandID, st.StateName)
	return nil
}
