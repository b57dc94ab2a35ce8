// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package lcd renders the thermocycler's 16x2 character display.
package lcd

import (
	"fmt"
	"strings"

	"github.com/Thermoquad/helix/pkg/pcp"
)

// Display geometry
const (
	Cols = 16
	Rows = 2
)

// Custom glyph codes for the lid and block temperature units
const (
	GlyphLid   byte = 0x01
	GlyphBlock byte = 0x02
)

// Screen is the character grid of the display
type Screen [Rows][Cols]byte

// Clear blanks the screen
func (s *Screen) Clear() {
	for r := range s {
		for c := range s[r] {
			s[r][c] = ' '
		}
	}
}

// Print writes text at col/row, clipping at the right edge
func (s *Screen) Print(col, row int, text string) {
	if row < 0 || row >= Rows {
		return
	}
	for i := 0; i < len(text) && col+i < Cols; i++ {
		if col+i >= 0 {
			s[row][col+i] = text[i]
		}
	}
}

// Line returns a row as raw display bytes
func (s *Screen) Line(row int) string {
	return string(s[row][:])
}

// Printable returns a row with the custom glyphs replaced by a degree sign
func (s *Screen) Printable(row int) string {
	var sb strings.Builder
	for _, b := range s[row] {
		switch b {
		case GlyphLid, GlyphBlock:
			sb.WriteRune('°')
		default:
			sb.WriteByte(b)
		}
	}
	return sb.String()
}

// String returns both rows separated by a newline
func (s *Screen) String() string {
	return s.Printable(0) + "\n" + s.Printable(1)
}

// Snapshot is the thermocycler state the display shows
type Snapshot struct {
	Program          pcp.ProgramState
	Thermal          pcp.ThermalState
	ProgramName      string
	StepName         string
	FinalStep        bool // the last step of the program is holding
	LidTemp          float64
	PlateTemp        float64
	CurrentCycle     uint16
	NumCycles        uint16
	RemainingSeconds uint32
	FirmwareVersion  string
}

// Render draws a snapshot
func Render(snap Snapshot) Screen {
	var s Screen
	s.Clear()

	switch snap.Program {
	case pcp.ProgramStartup:
		s.Print(0, 0, "OpenPCR")
		s.Print(8, 0, "v"+snap.FirmwareVersion)

	default:
		s.Print(8, 0, snap.ProgramName)
		s.Print(6, 1, fmt.Sprintf("%3d%c", int(snap.LidTemp+0.5), GlyphLid))
		s.Print(0, 1, fmt.Sprintf("%5s%c", pcp.FormatFloat(snap.PlateTemp, 1, 0), GlyphBlock))
		s.Print(0, 0, fmt.Sprintf("%-7.7s", stateWord(snap)))

		switch {
		case snap.Program == pcp.ProgramRunning && !snap.FinalStep:
			s.Print(11, 1, fmt.Sprintf("%2d/%2d", snap.CurrentCycle, snap.NumCycles))
		case snap.Program == pcp.ProgramComplete:
			s.Print(0, 0, "*Done*")
		}
	}

	return s
}

func stateWord(snap Snapshot) string {
	switch snap.Program {
	case pcp.ProgramLidWait:
		return "HeatLid"
	case pcp.ProgramRunning, pcp.ProgramComplete:
		switch snap.Thermal {
		case pcp.ThermalHeating:
			return "Heating"
		case pcp.ThermalCooling:
			return "Cooling"
		case pcp.ThermalHolding:
			return snap.StepName
		case pcp.ThermalIdle:
			return "Ready"
		}
		return "Error"
	case pcp.ProgramStopped, pcp.ProgramIdle:
		return "Ready"
	default:
		return "Error"
	}
}

// ETA formats the remaining run time as the display would
func ETA(remainingSeconds uint32) string {
	hours := remainingSeconds / 3600
	mins := (remainingSeconds % 3600) / 60
	secs := remainingSeconds % 60

	switch {
	case hours >= 1000:
		return "MaxETA"
	case mins >= 1 || hours >= 1:
		return fmt.Sprintf("ETA: %d:%02d", hours, mins)
	default:
		return fmt.Sprintf("ETA:  %2ds", secs)
	}
}
