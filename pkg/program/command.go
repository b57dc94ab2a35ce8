// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package program

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Action is the c= command verb
type Action int

// Command actions
const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionConfig
)

// String returns the wire name of the action
func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionConfig:
		return "cfg"
	default:
		return ""
	}
}

// ParseAction maps a wire name to an action
func ParseAction(name string) Action {
	switch name {
	case "start":
		return ActionStart
	case "stop":
		return ActionStop
	case "cfg":
		return ActionConfig
	default:
		return ActionNone
	}
}

// Command is a parsed command record
type Command struct {
	CommandID   uint32
	Action      Action
	Name        string
	LidTemp     int
	Contrast    uint8
	HasContrast bool
	Program     Program
}

// ID returns the command id echoed in status responses
func (c *Command) ID() uint32 {
	return c.CommandID
}

// ParseCommand parses &-separated key=value command text. Unknown keys are
// ignored and malformed values leave their field zero; parsing never fails.
func ParseCommand(text string) *Command {
	c := &Command{}
	for _, field := range strings.Split(text, "&") {
		key, val, ok := strings.Cut(field, "=")
		if !ok || len(key) != 1 {
			continue
		}

		switch key[0] {
		case 'd':
			if v, err := strconv.ParseUint(val, 10, 32); err == nil {
				c.CommandID = uint32(v)
			}
		case 'c':
			c.Action = ParseAction(val)
		case 'n':
			c.Name = truncate(val, MaxNameLength)
		case 'l':
			if v, err := strconv.Atoi(val); err == nil {
				c.LidTemp = v
			}
		case 'o':
			if v, err := strconv.ParseUint(val, 10, 8); err == nil {
				c.Contrast = uint8(v)
				c.HasContrast = true
			}
		case 'p':
			if p, err := ParseProgram(val); err == nil {
				c.Program = p
			}
		}
	}
	return c
}

// reserved cannot appear in names because the device parser splits on them
const reserved = "&=()[]|"

// Validate checks a command before it is sent
func (c *Command) Validate() error {
	if c.Action == ActionNone {
		return errors.New("command has no action")
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("program name longer than %d characters", MaxNameLength)
	}
	if strings.ContainsAny(c.Name, reserved) {
		return fmt.Errorf("program name %q contains one of %q", c.Name, reserved)
	}
	for _, cycle := range c.Program.Cycles {
		for _, s := range cycle.Steps {
			if len(s.Name) > MaxStepNameLength {
				return fmt.Errorf("step name %q longer than %d characters", s.Name, MaxStepNameLength)
			}
			if strings.ContainsAny(s.Name, reserved) {
				return fmt.Errorf("step name %q contains one of %q", s.Name, reserved)
			}
		}
	}
	if c.Action == ActionStart && c.Program.Empty() {
		return errors.New("start command has an empty program")
	}
	return nil
}

// Encode renders the command as wire text. Zero optional fields are
// left out.
func (c *Command) Encode() string {
	var fields []string
	fields = append(fields, "d="+strconv.FormatUint(uint64(c.CommandID), 10))
	if c.Action != ActionNone {
		fields = append(fields, "c="+c.Action.String())
	}
	if c.Name != "" {
		fields = append(fields, "n="+c.Name)
	}
	if c.LidTemp != 0 {
		fields = append(fields, "l="+strconv.Itoa(c.LidTemp))
	}
	if c.HasContrast {
		fields = append(fields, "o="+strconv.FormatUint(uint64(c.Contrast), 10))
	}
	if len(c.Program.Cycles) > 0 {
		fields = append(fields, "p="+c.Program.String())
	}
	return strings.Join(fields, "&")
}
