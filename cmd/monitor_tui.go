// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/helix/pkg/lcd"
	"github.com/Thermoquad/helix/pkg/pcp"
	"github.com/Thermoquad/helix/pkg/program"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// commandSender delivers command text to the device
type commandSender interface {
	send(text string) error
}

// Event log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	sender   commandSender
	connInfo string

	// Latest device state
	status     *pcp.Status
	lastUpdate time.Time
	rtt        time.Duration
	stats      pcp.Statistics
	responses  int
	failures   int

	// Commands
	input  textinput.Model
	nextID uint32

	// Event log
	errorLog      []errorLogEntry
	maxLogEntries int

	// UI state
	spinner        spinner.Model
	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type statusMsg struct {
	status *pcp.Status
	err    error
	rtt    time.Duration
	stats  pcp.Statistics
}

type commandSentMsg struct {
	text string
	err  error
}

type connectionLostMsg struct {
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(sender commandSender, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "stop | contrast 90 | load pcr.yaml | c=start&p=..."
	ti.CharLimit = pcp.MaxFrameSize - pcp.HeaderSize
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return monitorModel{
		sender:        sender,
		connInfo:      connInfo,
		input:         ti,
		nextID:        uint32(time.Now().Unix() % 100000),
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		spinner:       sp,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			return m.submit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.status != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.stats = msg.stats
		if msg.err != nil {
			m.failures++
			m.addLogEntry(fmt.Sprintf("Status request failed: %v", msg.err), true)
			return m, nil
		}
		m.responses++
		m.rtt = msg.rtt
		m.lastUpdate = time.Now()
		if m.status == nil || m.status.ProgramState != msg.status.ProgramState {
			m.addLogEntry(fmt.Sprintf("Program state: %s", msg.status.StateName), false)
		}
		m.status = msg.status
		return m, nil

	case commandSentMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Send failed: %v", msg.err), true)
		} else {
			m.addLogEntry("Sent: "+msg.text, false)
		}
		return m, nil

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit turns the prompt into a command and sends it off the UI goroutine
func (m monitorModel) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return m, nil
	}
	m.input.Reset()

	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}

	text, err := parseMonitorInput(line, m.nextID)
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}
	m.nextID++

	sender := m.sender
	return m, func() tea.Msg {
		return commandSentMsg{text: text, err: sender.send(text)}
	}
}

// parseMonitorInput maps a prompt line to command text carrying id
func parseMonitorInput(line string, id uint32) (string, error) {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var c *program.Command
	switch verb {
	case "stop":
		c = &program.Command{CommandID: id, Action: program.ActionStop}

	case "contrast":
		v, err := strconv.ParseUint(arg, 10, 8)
		if err != nil {
			return "", fmt.Errorf("contrast must be 0-255, got %q", arg)
		}
		c = &program.Command{CommandID: id, Action: program.ActionConfig, Contrast: uint8(v), HasContrast: true}

	case "load":
		if arg == "" {
			return "", errors.New("load needs a program file")
		}
		f, err := program.LoadFile(arg)
		if err != nil {
			return "", err
		}
		c = f.Command(id)

	default:
		if !strings.Contains(line, "=") {
			return "", fmt.Errorf("unknown command: %s", verb)
		}
		c = program.ParseCommand(line)
		if c.CommandID == 0 {
			c.CommandID = id
		}
		if err := c.Validate(); err != nil {
			return "", err
		}
		if !strings.HasPrefix(line, "d=") && !strings.Contains(line, "&d=") {
			return "d=" + strconv.FormatUint(uint64(c.CommandID), 10) + "&" + line, nil
		}
		return line, nil
	}

	if err := c.Validate(); err != nil {
		return "", err
	}
	return c.Encode(), nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.errorLog = append(m.errorLog, errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	lcdStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("28")).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("113")).
			Padding(0, 1)
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("HELIX MONITOR"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = errorStyle.Render("DISCONNECTED")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Enter=send Esc=quit", connStatus)))
	s.WriteString("\n\n")

	if m.status == nil {
		s.WriteString(m.spinner.View())
		s.WriteString(warningStyle.Render(" Waiting for status..."))
		s.WriteString("\n\n")
	} else {
		screen := lcd.Render(statusSnapshot(m.status))
		display := lcdStyle.Render(screen.Printable(0) + "\n" + screen.Printable(1))
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, display, "  ", boxStyle.Render(m.renderStatus())))
		s.WriteString("\n\n")
	}

	s.WriteString(m.renderLink())
	s.WriteString("\n\n")

	s.WriteString(m.input.View())
	s.WriteString("\n\n")

	s.WriteString(m.renderEventLog())
	return s.String()
}

func (m monitorModel) renderStatus() string {
	st := m.status
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s   %s %s\n",
		labelStyle.Render("Program:"), valueStyle.Render(st.StateName),
		labelStyle.Render("Thermal:"), valueStyle.Render(st.ThermalState.String()))
	fmt.Fprintf(&b, "%s %s   %s %s\n",
		labelStyle.Render("Block:"), valueStyle.Render(fmt.Sprintf("%.1f°C", st.PlateTemp)),
		labelStyle.Render("Lid:"), valueStyle.Render(fmt.Sprintf("%d°C", st.LidTemp)))
	if st.HasProgress {
		fmt.Fprintf(&b, "%s %s   %s %s\n",
			labelStyle.Render("Cycle:"), valueStyle.Render(fmt.Sprintf("%d/%d", st.CurrentCycle, st.NumCycles)),
			labelStyle.Render("Step:"), valueStyle.Render(st.StepName))
		fmt.Fprintf(&b, "%s %s   %s\n",
			labelStyle.Render("Elapsed:"), valueStyle.Render((time.Duration(st.Elapsed) * time.Second).String()),
			valueStyle.Render(lcd.ETA(st.Remaining)))
	}
	if st.FirmwareVersion != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Firmware:"), valueStyle.Render(st.FirmwareVersion))
	}
	fmt.Fprintf(&b, "%s %s   %s %s",
		labelStyle.Render("Command:"), valueStyle.Render(strconv.FormatUint(uint64(st.CommandID), 10)),
		labelStyle.Render("Contrast:"), valueStyle.Render(strconv.Itoa(int(st.Contrast))))
	return b.String()
}

func (m monitorModel) renderLink() string {
	failures := valueStyle.Render(strconv.Itoa(m.failures))
	if m.failures > 0 {
		failures = errorStyle.Render(strconv.Itoa(m.failures))
	}
	framing := valueStyle.Render(strconv.FormatUint(m.stats.Errors(), 10))
	if m.stats.Errors() > 0 {
		framing = errorStyle.Render(strconv.FormatUint(m.stats.Errors(), 10))
	}

	return boxStyle.Render(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s   %s %s",
		labelStyle.Render("Responses:"), valueStyle.Render(strconv.Itoa(m.responses)),
		labelStyle.Render("Failures:"), failures,
		labelStyle.Render("RTT:"), valueStyle.Render(m.rtt.Round(time.Millisecond).String()),
		labelStyle.Render("Discarded:"), valueStyle.Render(strconv.FormatUint(m.stats.BytesDiscarded, 10)),
		labelStyle.Render("Framing errors:"), framing,
	))
}

func (m monitorModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	var content strings.Builder
	if len(m.errorLog) == 0 {
		content.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for i := startIdx; i < len(m.errorLog); i++ {
		entry := m.errorLog[i]
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			content.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			content.WriteString(fmt.Sprintf("%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}

	width := m.width - 4
	if width < 20 {
		width = 20
	}
	s.WriteString(boxStyle.Width(width).Render(content.String()))
	return s.String()
}
