// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"bytes"
	"io"

	"github.com/rs/zerolog"
)

// Command is a parsed command. Its id is echoed in later status responses.
type Command interface {
	ID() uint32
}

// CommandParser turns raw command text into a Command. Parsing never fails
// from the dispatcher's point of view; syntax handling belongs to the parser.
type CommandParser interface {
	ParseCommand(text string) Command
}

// CommandParserFunc adapts a function to the CommandParser interface
type CommandParserFunc func(text string) Command

// ParseCommand calls fn(text)
func (fn CommandParserFunc) ParseCommand(text string) Command {
	return fn(text)
}

// CommandExecutor is the thermal/program control entry point
type CommandExecutor interface {
	ExecuteCommand(cmd Command)
}

// ProgramStore persists the last command text so it can be recovered after
// a reset
type ProgramStore interface {
	StoreProgram(text string) error
}

// DispatcherConfig wires the collaborators of a Dispatcher
type DispatcherConfig struct {
	Out       io.Writer // status responses are written here
	Store     ProgramStore
	Parser    CommandParser
	Executor  CommandExecutor
	Telemetry Telemetry
	Logger    zerolog.Logger
}

// Dispatcher routes completed frames. Command frames are stored, parsed and
// executed; status requests are answered immediately. It is a Handler and
// runs synchronously inside Decoder.Poll.
type Dispatcher struct {
	out       io.Writer
	store     ProgramStore
	parser    CommandParser
	executor  CommandExecutor
	telemetry Telemetry
	logger    zerolog.Logger

	status          *StatusEncoder
	commandID       uint32
	lastSeq         uint8
	statusRequested bool
}

// NewDispatcher creates a dispatcher. A zero Logger discards output.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		out:       cfg.Out,
		store:     cfg.Store,
		parser:    cfg.Parser,
		executor:  cfg.Executor,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
		status:    NewStatusEncoder(),
		lastSeq:   NoSequence,
	}
}

// HandleFrame implements Handler
func (d *Dispatcher) HandleFrame(f Frame) {
	// Every decoded frame moves the sequence, whatever its type
	d.lastSeq = f.Sequence

	switch f.Type {
	case TypeSendCommand:
		d.handleCommand(f.Payload)
	case TypeStatusRequest:
		d.statusRequested = true
		if err := d.SendStatus(); err != nil {
			d.logger.Warn().Err(err).Msg("status response write failed")
		}
	default:
		d.logger.Debug().
			Stringer("type", f.Type).
			Uint8("seq", f.Sequence).
			Int("len", len(f.Raw)).
			Msg("dropping frame")
	}
}

func (d *Dispatcher) handleCommand(payload []byte) {
	// The command text ends at the first NUL, if any
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	text := string(payload)

	if d.store != nil {
		if err := d.store.StoreProgram(text); err != nil {
			d.logger.Warn().Err(err).Msg("program store failed")
		}
	}

	if d.parser == nil {
		return
	}
	cmd := d.parser.ParseCommand(text)
	if cmd == nil {
		d.logger.Debug().Str("text", text).Msg("command not parsed")
		return
	}
	if d.executor != nil {
		d.executor.ExecuteCommand(cmd)
	}
	d.commandID = cmd.ID()

	d.logger.Debug().Uint32("command_id", d.commandID).Msg("command executed")
}

// SendStatus writes a status response built from the current telemetry
func (d *Dispatcher) SendStatus() error {
	if d.out == nil || d.telemetry == nil {
		return nil
	}
	_, err := d.out.Write(d.status.Encode(d.commandID, d.telemetry))
	return err
}

// CommandID returns the id of the last executed command
func (d *Dispatcher) CommandID() uint32 {
	return d.commandID
}

// LastSequence returns the sequence number of the last decoded frame, or
// NoSequence before any
func (d *Dispatcher) LastSequence() uint8 {
	return d.lastSeq
}

// StatusRequested reports whether a status request has ever been received.
// The flag is sticky.
func (d *Dispatcher) StatusRequested() bool {
	return d.statusRequested
}
