// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package program parses and renders thermocycler command text and the
// cycle/step programs it carries.
//
// A program is a sequence of components, each a cycle of steps repeated
// count times:
//
//	(1[300|95|Initial])(35[30|95|Denature][30|55|Anneal][30|72|Extend])
//
// A step is [seconds|temperature|name].
package program

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Limits
const (
	MaxNameLength     = 20
	MaxStepNameLength = 16
	MaxCycles         = 16
	MaxStepsPerCycle  = 16
)

// ErrSyntax is wrapped by every program parse error
var ErrSyntax = errors.New("program syntax error")

// Step holds the plate at Temp for Duration seconds
type Step struct {
	Duration uint32
	Temp     float64
	Name     string
}

// Cycle repeats its steps Count times
type Cycle struct {
	Count uint16
	Steps []Step
}

// Program is an ordered list of cycles
type Program struct {
	Cycles []Cycle
}

// Empty reports whether the program has no steps to run
func (p Program) Empty() bool {
	for _, c := range p.Cycles {
		if c.Count > 0 && len(c.Steps) > 0 {
			return false
		}
	}
	return true
}

// Duration returns the total hold time in seconds, ignoring ramps
func (p Program) Duration() uint32 {
	var total uint32
	for _, c := range p.Cycles {
		var per uint32
		for _, s := range c.Steps {
			per += s.Duration
		}
		total += per * uint32(c.Count)
	}
	return total
}

// String renders the program in wire syntax
func (p Program) String() string {
	var sb strings.Builder
	for _, c := range p.Cycles {
		sb.WriteByte('(')
		sb.WriteString(strconv.FormatUint(uint64(c.Count), 10))
		for _, s := range c.Steps {
			sb.WriteByte('[')
			sb.WriteString(strconv.FormatUint(uint64(s.Duration), 10))
			sb.WriteByte('|')
			sb.WriteString(strconv.FormatFloat(s.Temp, 'f', -1, 64))
			sb.WriteByte('|')
			sb.WriteString(s.Name)
			sb.WriteByte(']')
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// ParseProgram parses wire program syntax. Step names longer than
// MaxStepNameLength are truncated.
func ParseProgram(text string) (Program, error) {
	var p Program
	rest := text

	for len(rest) > 0 {
		if rest[0] != '(' {
			return Program{}, fmt.Errorf("%w: expected '(' at offset %d", ErrSyntax, len(text)-len(rest))
		}
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return Program{}, fmt.Errorf("%w: unterminated cycle", ErrSyntax)
		}
		if len(p.Cycles) == MaxCycles {
			return Program{}, fmt.Errorf("%w: more than %d cycles", ErrSyntax, MaxCycles)
		}

		cycle, err := parseCycle(rest[1:end])
		if err != nil {
			return Program{}, err
		}
		p.Cycles = append(p.Cycles, cycle)
		rest = rest[end+1:]
	}

	return p, nil
}

func parseCycle(text string) (Cycle, error) {
	open := strings.IndexByte(text, '[')
	if open < 0 {
		open = len(text)
	}

	count, err := strconv.ParseUint(text[:open], 10, 16)
	if err != nil {
		return Cycle{}, fmt.Errorf("%w: cycle count %q", ErrSyntax, text[:open])
	}
	c := Cycle{Count: uint16(count)}

	rest := text[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return Cycle{}, fmt.Errorf("%w: expected '[' in %q", ErrSyntax, text)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Cycle{}, fmt.Errorf("%w: unterminated step in %q", ErrSyntax, text)
		}
		if len(c.Steps) == MaxStepsPerCycle {
			return Cycle{}, fmt.Errorf("%w: more than %d steps in a cycle", ErrSyntax, MaxStepsPerCycle)
		}

		step, err := parseStep(rest[1:end])
		if err != nil {
			return Cycle{}, err
		}
		c.Steps = append(c.Steps, step)
		rest = rest[end+1:]
	}

	return c, nil
}

func parseStep(text string) (Step, error) {
	parts := strings.SplitN(text, "|", 3)
	if len(parts) < 2 {
		return Step{}, fmt.Errorf("%w: step %q needs duration and temperature", ErrSyntax, text)
	}

	duration, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Step{}, fmt.Errorf("%w: step duration %q", ErrSyntax, parts[0])
	}
	temp, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Step{}, fmt.Errorf("%w: step temperature %q", ErrSyntax, parts[1])
	}

	s := Step{Duration: uint32(duration), Temp: temp}
	if len(parts) == 3 {
		s.Name = truncate(parts[2], MaxStepNameLength)
	}
	return s, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
