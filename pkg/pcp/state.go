// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

// ProgramState represents the thermocycler program state
type ProgramState int

// Program state values
const (
	ProgramStartup ProgramState = iota
	ProgramIdle
	ProgramStopped
	ProgramLidWait
	ProgramRunning
	ProgramComplete
	ProgramError
)

// String returns the status response name of the program state
func (s ProgramState) String() string {
	switch s {
	case ProgramStartup:
		return "startup"
	case ProgramIdle:
		return "idle"
	case ProgramStopped:
		return "stopped"
	case ProgramLidWait:
		return "lidwait"
	case ProgramRunning:
		return "running"
	case ProgramComplete:
		return "complete"
	default:
		return "error"
	}
}

// ParseProgramState maps a status response name back to a program state.
// Unknown names map to ProgramError.
func ParseProgramState(name string) ProgramState {
	for s := ProgramStartup; s <= ProgramComplete; s++ {
		if s.String() == name {
			return s
		}
	}
	return ProgramError
}

// ThermalState represents what the plate control loop is doing
type ThermalState int

// Thermal state values
const (
	ThermalIdle ThermalState = iota
	ThermalHeating
	ThermalCooling
	ThermalHolding
	ThermalError
)

// String returns the status response name of the thermal state
func (s ThermalState) String() string {
	switch s {
	case ThermalHeating:
		return "heating"
	case ThermalCooling:
		return "cooling"
	case ThermalHolding:
		return "holding"
	case ThermalIdle:
		return "idle"
	default:
		return "error"
	}
}

// ParseThermalState maps a status response name back to a thermal state.
// Unknown names map to ThermalError.
func ParseThermalState(name string) ThermalState {
	for s := ThermalIdle; s <= ThermalHolding; s++ {
		if s.String() == name {
			return s
		}
	}
	return ThermalError
}

// Telemetry is the read-only snapshot consulted when a status request is
// answered. Every accessor must be a non-blocking read of current state.
type Telemetry interface {
	ProgramState() ProgramState
	ThermalState() ThermalState
	LidTemp() float64
	PlateTemp() float64
	Contrast() uint8
	ElapsedSeconds() uint32
	RemainingSeconds() uint32
	NumCycles() uint16
	CurrentCycle() uint16

	// CurrentStepName reports false when no step is active
	CurrentStepName() (string, bool)

	FirmwareVersion() string
}
