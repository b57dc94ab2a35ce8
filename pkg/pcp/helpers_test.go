// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

// ============================================================
// Shared Test Doubles
// ============================================================

// capturedFrame is a Frame with its slices copied out of the decoder buffer
type capturedFrame struct {
	Type     FrameType
	Sequence uint8
	Length   uint16
	Payload  []byte
}

type frameRecorder struct {
	frames []capturedFrame
}

func (r *frameRecorder) HandleFrame(f Frame) {
	r.frames = append(r.frames, capturedFrame{
		Type:     f.Type,
		Sequence: f.Sequence,
		Length:   f.Length,
		Payload:  append([]byte(nil), f.Payload...),
	})
}

// mustEncode encodes a frame or panics
func mustEncode(t FrameType, seq uint8, payload []byte) []byte {
	frame, err := EncodeFrame(t, seq, payload)
	if err != nil {
		panic(err)
	}
	return frame
}

type fakeTelemetry struct {
	program   ProgramState
	thermal   ThermalState
	lid       float64
	plate     float64
	contrast  uint8
	elapsed   uint32
	remaining uint32
	cycles    uint16
	cycle     uint16
	step      string
	hasStep   bool
	version   string
}

func (f *fakeTelemetry) ProgramState() ProgramState { return f.program }
func (f *fakeTelemetry) ThermalState() ThermalState { return f.thermal }
func (f *fakeTelemetry) LidTemp() float64           { return f.lid }
func (f *fakeTelemetry) PlateTemp() float64         { return f.plate }
func (f *fakeTelemetry) Contrast() uint8            { return f.contrast }
func (f *fakeTelemetry) ElapsedSeconds() uint32     { return f.elapsed }
func (f *fakeTelemetry) RemainingSeconds() uint32   { return f.remaining }
func (f *fakeTelemetry) NumCycles() uint16          { return f.cycles }
func (f *fakeTelemetry) CurrentCycle() uint16       { return f.cycle }
func (f *fakeTelemetry) FirmwareVersion() string    { return f.version }

func (f *fakeTelemetry) CurrentStepName() (string, bool) {
	return f.step, f.hasStep
}

func runningTelemetry() *fakeTelemetry {
	return &fakeTelemetry{
		program:   ProgramRunning,
		thermal:   ThermalHolding,
		lid:       104.7,
		plate:     94.96,
		contrast:  110,
		elapsed:   620,
		remaining: 3300,
		cycles:    35,
		cycle:     4,
		step:      "Denature",
		hasStep:   true,
		version:   "1.0.5",
	}
}

func idleTelemetry() *fakeTelemetry {
	return &fakeTelemetry{
		program:  ProgramIdle,
		thermal:  ThermalIdle,
		lid:      23.2,
		plate:    22.51,
		contrast: 110,
		version:  "1.0.5",
	}
}

type fakeCommand struct {
	id uint32
}

func (c *fakeCommand) ID() uint32 { return c.id }

type fakeStore struct {
	stored []string
	err    error
}

func (s *fakeStore) StoreProgram(text string) error {
	s.stored = append(s.stored, text)
	return s.err
}

type fakeExecutor struct {
	executed []Command
}

func (e *fakeExecutor) ExecuteCommand(cmd Command) {
	e.executed = append(e.executed, cmd)
}
