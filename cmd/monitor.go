// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/helix/internal/transport"
	"github.com/Thermoquad/helix/pkg/pcp"
)

var (
	monitorInterval time.Duration
	monitorTimeout  time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for watching and driving a thermocycler",
	Long: `Watch a thermocycler through an interactive terminal UI.

The device is polled with status requests and its front panel display is
drawn from the answers alongside the decoded status fields, link statistics
and an event log.

Commands typed at the prompt are sent with an automatic command id:
  stop                 stop the running program
  contrast <0-255>     set the display contrast
  load <file.yaml>     start a program from a YAML program file
  <command text>       send raw command text, e.g. c=start&l=105&p=(1[30|95|Hot])

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", time.Second, "Status poll interval")
	monitorCmd.Flags().DurationVar(&monitorTimeout, "timeout", 3*time.Second, "Timeout for each status request")
}

// monitorLink owns the client. Polls and commands never overlap.
type monitorLink struct {
	conn    transport.Connection
	client  *pcp.Client
	mu      sync.Mutex
	p       *tea.Program
	timeout time.Duration
	done    chan struct{}
}

func newMonitorLink(conn transport.Connection, timeout time.Duration) *monitorLink {
	return &monitorLink{
		conn:    conn,
		client:  pcp.NewClient(conn),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// send transmits command text
func (l *monitorLink) send(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.client.SendCommand(text)
}

func (l *monitorLink) poll(ctx context.Context) statusMsg {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	st, err := requestStatus(ctx, l.client, l.timeout)
	return statusMsg{
		status: st,
		err:    err,
		rtt:    time.Since(start),
		stats:  *l.client.Stats(),
	}
}

// pollLoop requests status every interval until the link closes
func (l *monitorLink) pollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		msg := l.poll(ctx)
		if msg.err != nil && linkClosed(msg.err) {
			l.p.Send(connectionLostMsg{err: msg.err})
			return
		}
		l.p.Send(msg)

		select {
		case <-l.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func linkClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, transport.ErrConnectionClosed)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cmd.Context())
	if err != nil {
		return err
	}

	link := newMonitorLink(conn, monitorTimeout)
	m := initialMonitorModel(link, connInfo)

	p := tea.NewProgram(m, tea.WithAltScreen())
	link.p = p

	go link.pollLoop(cmd.Context(), monitorInterval)

	_, err = p.Run()
	close(link.done)
	conn.Close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
