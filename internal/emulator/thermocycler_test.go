// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package emulator

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/helix/pkg/pcp"
	"github.com/Thermoquad/helix/pkg/program"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Device.Startup = 0
	cfg.Thermal.HeatRate = 10
	cfg.Thermal.CoolRate = 10
	cfg.Thermal.LidHeatRate = 50
	cfg.Thermal.LidCoolRate = 50
	return cfg
}

func newTestSim(t *testing.T) *Thermocycler {
	t.Helper()
	sim, err := NewThermocycler(testConfig(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewThermocycler: %v", err)
	}
	return sim
}

// run ticks the simulation one second at a time
func run(sim *Thermocycler, seconds int) {
	for i := 0; i < seconds; i++ {
		sim.Tick(time.Second)
	}
}

// runUntil ticks until cond holds, giving up after limit seconds
func runUntil(t *testing.T, sim *Thermocycler, limit int, cond func() bool) {
	t.Helper()
	for i := 0; i < limit; i++ {
		if cond() {
			return
		}
		sim.Tick(time.Second)
	}
	if !cond() {
		t.Fatalf("condition not reached within %d seconds (state %s/%s)", limit, sim.ProgramState(), sim.ThermalState())
	}
}

// ============================================================
// Startup
// ============================================================

func TestThermocycler_Startup(t *testing.T) {
	cfg := testConfig()
	cfg.Device.Startup = 2 * time.Second
	sim, err := NewThermocycler(cfg, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewThermocycler: %v", err)
	}

	if sim.ProgramState() != pcp.ProgramStartup {
		t.Fatalf("expected startup, got %s", sim.ProgramState())
	}
	run(sim, 1)
	if sim.ProgramState() != pcp.ProgramStartup {
		t.Errorf("still expected startup after 1s, got %s", sim.ProgramState())
	}
	run(sim, 1)
	if sim.ProgramState() != pcp.ProgramIdle {
		t.Errorf("expected idle after startup, got %s", sim.ProgramState())
	}
}

func TestThermocycler_UnknownSensor(t *testing.T) {
	cfg := testConfig()
	cfg.Device.Sensor = "pt100"
	if _, err := NewThermocycler(cfg, nil, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown sensor")
	}
}

// ============================================================
// Program Execution
// ============================================================

func TestThermocycler_RunsProgram(t *testing.T) {
	sim := newTestSim(t)
	sim.ExecuteCommand(program.ParseCommand("d=9&c=start&n=Quick&l=100&p=(2[5|60|Anneal][5|70|Extend])(1[3|40|Hold])"))

	if sim.ProgramState() != pcp.ProgramLidWait {
		t.Fatalf("expected lidwait, got %s", sim.ProgramState())
	}
	if sim.RemainingSeconds() != 23 {
		t.Errorf("expected 23s of holds remaining, got %d", sim.RemainingSeconds())
	}

	runUntil(t, sim, 10, func() bool { return sim.ProgramState() == pcp.ProgramRunning })
	if math.Abs(sim.LidTemp()-100) > 1 {
		t.Errorf("expected lid near 100, got %v", sim.LidTemp())
	}

	runUntil(t, sim, 10, func() bool { return sim.ThermalState() == pcp.ThermalHolding })
	if name, ok := sim.CurrentStepName(); !ok || name != "Anneal" {
		t.Errorf("expected Anneal step, got %q (%v)", name, ok)
	}
	if sim.NumCycles() != 2 || sim.CurrentCycle() != 1 {
		t.Errorf("expected cycle 1/2, got %d/%d", sim.CurrentCycle(), sim.NumCycles())
	}
	if math.Abs(sim.PlateTemp()-60) > 0.2 {
		t.Errorf("expected plate near 60, got %v", sim.PlateTemp())
	}

	runUntil(t, sim, 30, func() bool { return sim.CurrentCycle() == 2 })
	runUntil(t, sim, 30, func() bool {
		name, _ := sim.CurrentStepName()
		return name == "Hold"
	})
	if !sim.FinalStep() {
		t.Error("expected the last step to be final")
	}
	if sim.NumCycles() != 1 {
		t.Errorf("expected single repetition cycle, got %d", sim.NumCycles())
	}

	runUntil(t, sim, 30, func() bool { return sim.ProgramState() == pcp.ProgramComplete })
	if _, ok := sim.CurrentStepName(); ok {
		t.Error("no step should be active once complete")
	}
	if sim.RemainingSeconds() != 0 {
		t.Errorf("expected nothing remaining, got %d", sim.RemainingSeconds())
	}
	if sim.ElapsedSeconds() < 23 {
		t.Errorf("expected at least the hold time elapsed, got %d", sim.ElapsedSeconds())
	}
}

func TestThermocycler_SkipsEmptyCycles(t *testing.T) {
	sim := newTestSim(t)
	sim.ExecuteCommand(program.ParseCommand("c=start&l=30&p=(0[5|60|Never])(3)(1[2|30|Only])"))

	runUntil(t, sim, 10, func() bool { return sim.ThermalState() == pcp.ThermalHolding })
	if name, _ := sim.CurrentStepName(); name != "Only" {
		t.Errorf("expected the first non-empty cycle, got %q", name)
	}
	runUntil(t, sim, 10, func() bool { return sim.ProgramState() == pcp.ProgramComplete })
}

func TestThermocycler_EmptyProgramIgnored(t *testing.T) {
	sim := newTestSim(t)
	sim.ExecuteCommand(program.ParseCommand("c=start&p=(0[5|60|A])"))
	if sim.ProgramState() != pcp.ProgramIdle {
		t.Errorf("expected idle after empty start, got %s", sim.ProgramState())
	}
}

func TestThermocycler_Stop(t *testing.T) {
	sim := newTestSim(t)
	sim.ExecuteCommand(program.ParseCommand("c=start&l=100&p=(1[600|95|Long])"))
	runUntil(t, sim, 20, func() bool { return sim.ThermalState() == pcp.ThermalHolding })

	sim.ExecuteCommand(program.ParseCommand("c=stop"))
	if sim.ProgramState() != pcp.ProgramStopped || sim.ThermalState() != pcp.ThermalIdle {
		t.Fatalf("expected stopped/idle, got %s/%s", sim.ProgramState(), sim.ThermalState())
	}

	run(sim, 60)
	if math.Abs(sim.PlateTemp()-23) > 0.2 {
		t.Errorf("plate should cool to ambient, got %v", sim.PlateTemp())
	}
}

func TestThermocycler_ContrastPersisted(t *testing.T) {
	store, _ := OpenStore("")
	sim, err := NewThermocycler(testConfig(), store, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewThermocycler: %v", err)
	}
	if sim.Contrast() != 110 {
		t.Errorf("expected default contrast 110, got %d", sim.Contrast())
	}

	sim.ExecuteCommand(program.ParseCommand("c=cfg&o=75"))
	if sim.Contrast() != 75 || store.RetrieveContrast(0) != 75 {
		t.Errorf("contrast not applied and stored: %d / %d", sim.Contrast(), store.RetrieveContrast(0))
	}
	if sim.ProgramState() != pcp.ProgramIdle {
		t.Errorf("cfg must not change the program state, got %s", sim.ProgramState())
	}
}

type otherCommand struct{}

func (otherCommand) ID() uint32 { return 1 }

func TestThermocycler_ForeignCommandIgnored(t *testing.T) {
	sim := newTestSim(t)
	sim.ExecuteCommand(otherCommand{})
	if sim.ProgramState() != pcp.ProgramIdle {
		t.Errorf("expected idle, got %s", sim.ProgramState())
	}
}

func TestThermocycler_Snapshot(t *testing.T) {
	sim := newTestSim(t)
	sim.ExecuteCommand(program.ParseCommand("c=start&n=Snap&l=30&p=(4[100|50|Bind])"))
	runUntil(t, sim, 20, func() bool { return sim.ThermalState() == pcp.ThermalHolding })

	snap := sim.Snapshot()
	if snap.ProgramName != "Snap" || snap.StepName != "Bind" || snap.NumCycles != 4 || snap.CurrentCycle != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.FinalStep {
		t.Error("first repetition is not final")
	}
}
