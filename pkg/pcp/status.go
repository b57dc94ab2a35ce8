// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// StatusEncoder serializes telemetry into a status response frame. The
// encoder owns fixed buffers and is reused for every response.
type StatusEncoder struct {
	text  *Buffer
	frame [StatusFrameSize]byte
}

// NewStatusEncoder creates a status encoder
func NewStatusEncoder() *StatusEncoder {
	// One byte of the body is reserved for the terminator
	return &StatusEncoder{text: NewBuffer(StatusBodySize - 1)}
}

// Encode builds a complete status response frame: header followed by exactly
// StatusBodySize body bytes (fields, NUL terminator, space padding). Fields
// that would not fit are left out. The returned slice aliases the encoder and
// is valid until the next call.
func (e *StatusEncoder) Encode(commandID uint32, t Telemetry) []byte {
	e.text.Reset()

	state := t.ProgramState()
	AppendUintParam(e.text, 'd', uint64(commandID), true)
	AppendStringParam(e.text, 's', state.String(), false)
	AppendIntParam(e.text, 'l', int64(t.LidTemp()), false)
	AppendFloatParam(e.text, 'b', t.PlateTemp(), 1, 0, false)
	AppendStringParam(e.text, 't', t.ThermalState().String(), false)
	AppendUintParam(e.text, 'o', uint64(t.Contrast()), false)

	switch state {
	case ProgramRunning, ProgramComplete:
		AppendUintParam(e.text, 'e', uint64(t.ElapsedSeconds()), false)
		AppendUintParam(e.text, 'r', uint64(t.RemainingSeconds()), false)
		AppendUintParam(e.text, 'u', uint64(t.NumCycles()), false)
		AppendUintParam(e.text, 'c', uint64(t.CurrentCycle()), false)
		if name, ok := t.CurrentStepName(); ok {
			AppendStringParam(e.text, 'p', name, false)
		}
	case ProgramIdle:
		AppendStringParam(e.text, 'v', t.FirmwareVersion(), false)
	}

	e.frame[0] = StartCode
	e.frame[1] = byte(StatusFrameSize)
	e.frame[2] = byte(StatusFrameSize >> 8)
	e.frame[3] = TypeByte(TypeStatusResponse, 0)

	body := e.frame[HeaderSize:]
	n := copy(body, e.text.Bytes())
	body[n] = 0
	for i := n + 1; i < len(body); i++ {
		body[i] = StatusPadByte
	}

	return e.frame[:]
}

// ErrNoStatus is returned when a status body lacks the mandatory fields
var ErrNoStatus = errors.New("pcp: not a status record")

// Status is a status response as parsed by the host
type Status struct {
	CommandID    uint32
	ProgramState ProgramState
	StateName    string
	LidTemp      int
	PlateTemp    float64
	ThermalState ThermalState
	Contrast     uint8

	// Present while running or complete
	HasProgress  bool
	Elapsed      uint32
	Remaining    uint32
	NumCycles    uint16
	CurrentCycle uint16
	StepName     string

	// Present while idle
	FirmwareVersion string

	// Fields holds every key/value pair as received
	Fields map[byte]string
}

// ParseStatus parses a status response body. The body may still carry its
// NUL terminator and space padding.
func ParseStatus(body []byte) (*Status, error) {
	if i := bytes.IndexByte(body, 0); i >= 0 {
		body = body[:i]
	}
	body = bytes.TrimRight(body, " ")
	if len(body) == 0 {
		return nil, ErrNoStatus
	}

	s := &Status{Fields: make(map[byte]string)}
	for _, field := range bytes.Split(body, []byte{'&'}) {
		if len(field) < 2 || field[1] != '=' {
			return nil, fmt.Errorf("malformed status field %q", field)
		}
		s.Fields[field[0]] = string(field[2:])
	}

	if _, ok := s.Fields['d']; !ok {
		return nil, fmt.Errorf("%w: missing command id", ErrNoStatus)
	}
	if _, ok := s.Fields['s']; !ok {
		return nil, fmt.Errorf("%w: missing program state", ErrNoStatus)
	}

	var err error
	for key, val := range s.Fields {
		switch key {
		case 'd':
			s.CommandID, err = parseUint32(val)
		case 's':
			s.StateName = val
			s.ProgramState = ParseProgramState(val)
		case 'l':
			s.LidTemp, err = strconv.Atoi(val)
		case 'b':
			s.PlateTemp, err = strconv.ParseFloat(val, 64)
		case 't':
			s.ThermalState = ParseThermalState(val)
		case 'o':
			var v uint64
			v, err = strconv.ParseUint(val, 10, 8)
			s.Contrast = uint8(v)
		case 'e':
			s.HasProgress = true
			s.Elapsed, err = parseUint32(val)
		case 'r':
			s.Remaining, err = parseUint32(val)
		case 'u':
			s.NumCycles, err = parseUint16(val)
		case 'c':
			s.CurrentCycle, err = parseUint16(val)
		case 'p':
			s.StepName = val
		case 'v':
			s.FirmwareVersion = val
		}
		if err != nil {
			return nil, fmt.Errorf("status field %c: %w", key, err)
		}
	}

	return s, nil
}

func parseUint32(val string) (uint32, error) {
	v, err := strconv.ParseUint(val, 10, 32)
	return uint32(v), err
}

func parseUint16(val string) (uint16, error) {
	v, err := strconv.ParseUint(val, 10, 16)
	return uint16(v), err
}
