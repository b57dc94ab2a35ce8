// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package program

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is a program definition as written by hand:
//
//	name: Standard PCR
//	lid: 105
//	cycles:
//	  - count: 1
//	    steps:
//	      - {name: Initial, seconds: 300, temp: 95}
//	  - count: 35
//	    steps:
//	      - {name: Denature, seconds: 30, temp: 95}
//	      - {name: Anneal, seconds: 30, temp: 55}
//	      - {name: Extend, seconds: 30, temp: 72}
type File struct {
	Name   string      `yaml:"name"`
	Lid    int         `yaml:"lid"`
	Cycles []FileCycle `yaml:"cycles"`
}

// FileCycle is one cycle of a File
type FileCycle struct {
	Count uint16     `yaml:"count"`
	Steps []FileStep `yaml:"steps"`
}

// FileStep is one step of a FileCycle
type FileStep struct {
	Name    string  `yaml:"name"`
	Seconds uint32  `yaml:"seconds"`
	Temp    float64 `yaml:"temp"`
}

// ParseFile decodes a YAML program definition. Unknown keys are rejected.
func ParseFile(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse program file: %w", err)
	}
	if len(f.Cycles) > MaxCycles {
		return nil, fmt.Errorf("program file has %d cycles, at most %d allowed", len(f.Cycles), MaxCycles)
	}
	for i, c := range f.Cycles {
		if len(c.Steps) > MaxStepsPerCycle {
			return nil, fmt.Errorf("cycle %d has %d steps, at most %d allowed", i+1, len(c.Steps), MaxStepsPerCycle)
		}
	}
	return &f, nil
}

// LoadFile reads and decodes a YAML program definition
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFile(data)
}

// Program converts the definition into a Program
func (f *File) Program() Program {
	var p Program
	for _, fc := range f.Cycles {
		c := Cycle{Count: fc.Count}
		for _, fs := range fc.Steps {
			c.Steps = append(c.Steps, Step{
				Duration: fs.Seconds,
				Temp:     fs.Temp,
				Name:     fs.Name,
			})
		}
		p.Cycles = append(p.Cycles, c)
	}
	return p
}

// Command builds a start command for the definition
func (f *File) Command(id uint32) *Command {
	return &Command{
		CommandID: id,
		Action:    ActionStart,
		Name:      f.Name,
		LidTemp:   f.Lid,
		Program:   f.Program(),
	}
}
