// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/helix/pkg/lcd"
	"github.com/Thermoquad/helix/pkg/pcp"
	"github.com/Thermoquad/helix/pkg/program"
	"github.com/Thermoquad/helix/pkg/thermistor"
)

// Thermocycler simulates the plate, lid and program sequencer of the
// instrument. It is owned by one device loop goroutine and is not safe for
// concurrent use.
type Thermocycler struct {
	cfg             ThermalConfig
	sensor          thermistor.Sensor
	store           *Store
	version         string
	defaultContrast uint8
	logger          zerolog.Logger

	state       pcp.ProgramState
	thermal     pcp.ThermalState
	startupLeft float64

	plate     float64
	lid       float64
	lidTarget float64
	contrast  uint8

	name     string
	prog     program.Program
	cycle    int // index into prog.Cycles
	repeat   int // 1-based repetition of the current cycle
	step     int // index into the current cycle's steps
	holdLeft float64
	elapsed  float64
}

// NewThermocycler creates a simulator in the startup state with the plate
// and lid at ambient temperature
func NewThermocycler(cfg *Config, store *Store, logger zerolog.Logger) (*Thermocycler, error) {
	sensor, err := thermistor.ByName(cfg.Device.Sensor)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store, _ = OpenStore("")
	}

	t := &Thermocycler{
		cfg:             cfg.Thermal,
		sensor:          sensor,
		store:           store,
		version:         cfg.Device.FirmwareVersion,
		defaultContrast: cfg.Device.DefaultContrast,
		logger:          logger,
		state:           pcp.ProgramStartup,
		startupLeft:     cfg.Device.Startup.Seconds(),
		plate:           cfg.Thermal.Ambient,
		lid:             cfg.Thermal.Ambient,
		contrast:        store.RetrieveContrast(cfg.Device.DefaultContrast),
	}
	if t.startupLeft <= 0 {
		t.state = pcp.ProgramIdle
	}
	return t, nil
}

// ============================================================
// Command Executor
// ============================================================

// ExecuteCommand applies a parsed command
func (t *Thermocycler) ExecuteCommand(cmd pcp.Command) {
	c, ok := cmd.(*program.Command)
	if !ok {
		t.logger.Warn().Uint32("command_id", cmd.ID()).Msg("unsupported command type")
		return
	}

	if c.HasContrast {
		t.contrast = c.Contrast
		if err := t.store.StoreContrast(c.Contrast); err != nil {
			t.logger.Warn().Err(err).Msg("contrast store failed")
		}
	}

	switch c.Action {
	case program.ActionStart:
		t.start(c)
	case program.ActionStop:
		t.stop()
	case program.ActionConfig:
		t.logger.Info().Uint8("contrast", t.contrast).Msg("configuration updated")
	}
}

func (t *Thermocycler) start(c *program.Command) {
	if c.Program.Empty() {
		t.logger.Warn().Uint32("command_id", c.CommandID).Msg("start ignored: empty program")
		return
	}

	t.name = c.Name
	t.prog = c.Program
	t.lidTarget = float64(c.LidTemp)
	if c.LidTemp == 0 {
		t.lidTarget = float64(t.cfg.DefaultLid)
	}
	t.elapsed = 0
	t.cycle, t.repeat, t.step = 0, 1, 0
	t.skipEmptyCycles()
	t.holdLeft = float64(t.currentStep().Duration)
	t.state = pcp.ProgramLidWait
	t.thermal = pcp.ThermalIdle

	t.logger.Info().
		Str("name", t.name).
		Float64("lid_target", t.lidTarget).
		Uint32("hold_seconds", t.prog.Duration()).
		Msg("program started")
}

func (t *Thermocycler) stop() {
	if t.state == pcp.ProgramRunning || t.state == pcp.ProgramLidWait {
		t.logger.Info().Str("name", t.name).Msg("program stopped")
	}
	t.state = pcp.ProgramStopped
	t.thermal = pcp.ThermalIdle
	t.lidTarget = 0
}

// ============================================================
// Simulation
// ============================================================

// Tick advances the simulation by dt of real time
func (t *Thermocycler) Tick(dt time.Duration) {
	secs := dt.Seconds() * t.cfg.TimeScale
	if secs <= 0 {
		return
	}

	switch t.state {
	case pcp.ProgramStartup:
		t.startupLeft -= secs
		if t.startupLeft <= 0 {
			t.state = pcp.ProgramIdle
			t.logger.Debug().Msg("startup complete")
		}
		t.drift(secs)

	case pcp.ProgramLidWait:
		t.elapsed += secs
		t.heatLid(secs)
		t.plate = approach(t.plate, t.cfg.Ambient, t.cfg.CoolRate*secs)
		if t.lid >= t.lidTarget-t.cfg.HoldTolerance {
			t.state = pcp.ProgramRunning
			t.logger.Debug().Float64("lid", t.lid).Msg("lid at temperature")
		}

	case pcp.ProgramRunning:
		t.elapsed += secs
		t.heatLid(secs)
		t.runStep(secs)

	default:
		t.drift(secs)
	}
}

func (t *Thermocycler) heatLid(secs float64) {
	rate := t.cfg.LidHeatRate
	if t.lid > t.lidTarget {
		rate = t.cfg.LidCoolRate
	}
	t.lid = approach(t.lid, t.lidTarget, rate*secs)
}

// drift lets the plate and lid cool toward ambient with heaters off
func (t *Thermocycler) drift(secs float64) {
	t.plate = approach(t.plate, t.cfg.Ambient, t.cfg.CoolRate*secs)
	t.lid = approach(t.lid, t.cfg.Ambient, t.cfg.LidCoolRate*secs)
}

func (t *Thermocycler) runStep(secs float64) {
	target := t.currentStep().Temp
	diff := target - t.plate

	if math.Abs(diff) > t.cfg.HoldTolerance {
		if diff > 0 {
			t.thermal = pcp.ThermalHeating
			t.plate = approach(t.plate, target, t.cfg.HeatRate*secs)
		} else {
			t.thermal = pcp.ThermalCooling
			t.plate = approach(t.plate, target, t.cfg.CoolRate*secs)
		}
		return
	}

	t.thermal = pcp.ThermalHolding
	t.plate = target
	t.holdLeft -= secs
	if t.holdLeft <= 0 {
		t.advance()
	}
}

func (t *Thermocycler) advance() {
	c := t.prog.Cycles[t.cycle]
	t.step++
	if t.step >= len(c.Steps) {
		t.step = 0
		t.repeat++
		if t.repeat > int(c.Count) {
			t.cycle++
			t.repeat = 1
			t.skipEmptyCycles()
		}
	}

	if t.cycle >= len(t.prog.Cycles) {
		t.complete()
		return
	}
	t.holdLeft = float64(t.currentStep().Duration)
}

func (t *Thermocycler) skipEmptyCycles() {
	for t.cycle < len(t.prog.Cycles) {
		c := t.prog.Cycles[t.cycle]
		if c.Count > 0 && len(c.Steps) > 0 {
			return
		}
		t.cycle++
	}
}

func (t *Thermocycler) complete() {
	t.state = pcp.ProgramComplete
	t.thermal = pcp.ThermalIdle
	t.lidTarget = 0
	t.holdLeft = 0

	// Report the last cycle that ran
	t.cycle = len(t.prog.Cycles) - 1
	for t.cycle > 0 && (t.prog.Cycles[t.cycle].Count == 0 || len(t.prog.Cycles[t.cycle].Steps) == 0) {
		t.cycle--
	}
	t.repeat = int(t.prog.Cycles[t.cycle].Count)

	t.logger.Info().
		Str("name", t.name).
		Float64("elapsed_seconds", math.Round(t.elapsed)).
		Msg("program complete")
}

func (t *Thermocycler) currentStep() program.Step {
	return t.prog.Cycles[t.cycle].Steps[t.step]
}

// approach moves cur toward target by at most delta
func approach(cur, target, delta float64) float64 {
	if cur < target {
		return math.Min(cur+delta, target)
	}
	return math.Max(cur-delta, target)
}

// ============================================================
// Telemetry
// ============================================================

func (t *Thermocycler) ProgramState() pcp.ProgramState { return t.state }
func (t *Thermocycler) ThermalState() pcp.ThermalState { return t.thermal }
func (t *Thermocycler) Contrast() uint8                { return t.contrast }
func (t *Thermocycler) FirmwareVersion() string        { return t.version }

// LidTemp returns the lid temperature as read through the lid thermistor
func (t *Thermocycler) LidTemp() float64 {
	return t.sensor.LidTemp(t.sensor.LidReading(t.lid))
}

// PlateTemp returns the plate temperature as read through the plate thermistor
func (t *Thermocycler) PlateTemp() float64 {
	return t.sensor.PlateTemp(t.sensor.PlateReading(t.plate))
}

func (t *Thermocycler) ElapsedSeconds() uint32 {
	return uint32(t.elapsed)
}

// RemainingSeconds sums the hold time left in the program, ignoring ramps
func (t *Thermocycler) RemainingSeconds() uint32 {
	if t.state != pcp.ProgramRunning && t.state != pcp.ProgramLidWait {
		return 0
	}

	remaining := math.Max(math.Ceil(t.holdLeft), 0)
	c := t.prog.Cycles[t.cycle]
	for i := t.step + 1; i < len(c.Steps); i++ {
		remaining += float64(c.Steps[i].Duration)
	}

	var perCycle float64
	for _, s := range c.Steps {
		perCycle += float64(s.Duration)
	}
	remaining += perCycle * float64(int(c.Count)-t.repeat)

	for _, later := range t.prog.Cycles[t.cycle+1:] {
		var per float64
		for _, s := range later.Steps {
			per += float64(s.Duration)
		}
		remaining += per * float64(later.Count)
	}
	return uint32(remaining)
}

func (t *Thermocycler) NumCycles() uint16 {
	if len(t.prog.Cycles) == 0 {
		return 0
	}
	return t.prog.Cycles[t.cycle].Count
}

func (t *Thermocycler) CurrentCycle() uint16 {
	if len(t.prog.Cycles) == 0 {
		return 0
	}
	return uint16(t.repeat)
}

func (t *Thermocycler) CurrentStepName() (string, bool) {
	if t.state != pcp.ProgramRunning {
		return "", false
	}
	return t.currentStep().Name, true
}

// FinalStep reports whether the last step of the program is running
func (t *Thermocycler) FinalStep() bool {
	if t.state != pcp.ProgramRunning {
		return false
	}
	c := t.prog.Cycles[t.cycle]
	if t.step != len(c.Steps)-1 || t.repeat != int(c.Count) {
		return false
	}
	for _, later := range t.prog.Cycles[t.cycle+1:] {
		if later.Count > 0 && len(later.Steps) > 0 {
			return false
		}
	}
	return true
}

// Snapshot returns what the instrument display shows
func (t *Thermocycler) Snapshot() lcd.Snapshot {
	step, _ := t.CurrentStepName()
	return lcd.Snapshot{
		Program:          t.state,
		Thermal:          t.thermal,
		ProgramName:      t.name,
		StepName:         step,
		FinalStep:        t.FinalStep(),
		LidTemp:          t.LidTemp(),
		PlateTemp:        t.PlateTemp(),
		CurrentCycle:     t.CurrentCycle(),
		NumCycles:        t.NumCycles(),
		RemainingSeconds: t.RemainingSeconds(),
		FirmwareVersion:  t.version,
	}
}
