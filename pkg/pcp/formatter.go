// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f Frame, ts time.Time) string {
	timestamp := ts.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (0x%X) seq=%d len=%d\n", timestamp, f.Type, uint8(f.Type), f.Sequence, f.Length)
	if len(f.Payload) > 0 {
		result += FormatPayload(f.Type, f.Payload)
	}

	return result
}

// FormatPayload renders a frame payload according to its type
func FormatPayload(t FrameType, payload []byte) string {
	switch t {
	case TypeSendCommand:
		return fmt.Sprintf("  Command: %s\n", strings.TrimRight(string(payload), "\x00"))

	case TypeStatusResponse:
		status, err := ParseStatus(payload)
		if err != nil {
			return fmt.Sprintf("  Invalid status: %v\n%s", err, hexDump(payload))
		}
		return FormatStatus(status)
	}

	return hexDump(payload)
}

// FormatStatus renders a parsed status, one field per line
func FormatStatus(s *Status) string {
	result := fmt.Sprintf("  Command ID: %d\n", s.CommandID)
	result += fmt.Sprintf("  Program:    %s\n", s.StateName)
	result += fmt.Sprintf("  Thermal:    %s\n", s.ThermalState)
	result += fmt.Sprintf("  Lid:        %d°C\n", s.LidTemp)
	result += fmt.Sprintf("  Block:      %.1f°C\n", s.PlateTemp)
	result += fmt.Sprintf("  Contrast:   %d\n", s.Contrast)

	if s.HasProgress {
		result += fmt.Sprintf("  Elapsed:    %s\n", formatSeconds(s.Elapsed))
		result += fmt.Sprintf("  Remaining:  %s\n", formatSeconds(s.Remaining))
		result += fmt.Sprintf("  Cycle:      %d/%d\n", s.CurrentCycle, s.NumCycles)
		if s.StepName != "" {
			result += fmt.Sprintf("  Step:       %s\n", s.StepName)
		}
	}
	if s.FirmwareVersion != "" {
		result += fmt.Sprintf("  Firmware:   %s\n", s.FirmwareVersion)
	}

	// Anything this host does not know about
	var extra []string
	for key, val := range s.Fields {
		if !strings.ContainsRune("dslbtoerucpv", rune(key)) {
			extra = append(extra, fmt.Sprintf("%c=%s", key, val))
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		result += fmt.Sprintf("  Other:      %s\n", strings.Join(extra, " "))
	}

	return result
}

func formatSeconds(secs uint32) string {
	return (time.Duration(secs) * time.Second).String()
}

func hexDump(payload []byte) string {
	result := "  Payload: "
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
