// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package thermistor converts lid and plate thermistor readings to
// temperatures and back.
package thermistor

import (
	"fmt"
	"math"
	"strings"
)

// Divider and converter constants
const (
	DividerOhms  = 2200 // fixed resistor of the sensor divider
	ReferenceMV  = 5000 // ADC reference voltage, millivolts
	LidADCMax    = 1023 // 10-bit lid ADC
	PlateADCMax  = 0x1FFFFF
	lidADCCounts = LidADCMax + 1
)

// Table maps thermistor resistance to temperature. Entry i is the resistance
// at Start+i degrees Celsius; resistances strictly decrease.
type Table struct {
	Start int
	Ohms  []uint32
}

// Min returns the lowest temperature in the table
func (t Table) Min() float64 {
	return float64(t.Start)
}

// Max returns the highest temperature in the table
func (t Table) Max() float64 {
	return float64(t.Start + len(t.Ohms) - 1)
}

// Lookup returns the temperature for a resistance, interpolating linearly
// between table entries. Resistances above the first entry read as Min and
// below the last entry as Max.
func (t Table) Lookup(ohms uint32) float64 {
	i := 0
	for i < len(t.Ohms) && ohms < t.Ohms[i] {
		i++
	}

	switch {
	case i == 0:
		return t.Min()
	case i == len(t.Ohms):
		return t.Max()
	}

	high := float64(t.Ohms[i-1])
	low := float64(t.Ohms[i])
	return float64(i+t.Start) - (float64(ohms)-low)/(high-low)
}

// Resistance returns the resistance for a temperature, the inverse of
// Lookup. Temperatures outside the table clamp to its ends.
func (t Table) Resistance(celsius float64) uint32 {
	if celsius <= t.Min() {
		return t.Ohms[0]
	}
	if celsius >= t.Max() {
		return t.Ohms[len(t.Ohms)-1]
	}

	idx := celsius - float64(t.Start)
	i := int(math.Ceil(idx))
	frac := float64(i) - idx

	high := float64(t.Ohms[i-1])
	low := float64(t.Ohms[i])
	return uint32(math.Round(low + frac*(high-low)))
}

// Sensor is a matched pair of lid and plate thermistor tables
type Sensor struct {
	Name  string
	Lid   Table
	Plate Table
}

// Sensor profiles
var (
	Stock = Sensor{
		Name:  "stock",
		Lid:   Table{Start: 0, Ohms: stockLidOhms},
		Plate: Table{Start: -40, Ohms: stockPlateOhms},
	}
	NTC103A = Sensor{
		Name:  "ntc103a",
		Lid:   Table{Start: 0, Ohms: ntc103aLidOhms},
		Plate: Table{Start: -40, Ohms: ntc103aPlateOhms},
	}
)

// Sensors lists the known sensor profiles
var Sensors = []Sensor{Stock, NTC103A}

// ByName returns the sensor profile with the given name
func ByName(name string) (Sensor, error) {
	for _, s := range Sensors {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Sensor{}, fmt.Errorf("unknown thermistor profile %q", name)
}

// LidTemp converts a lid ADC reading to degrees Celsius
func (s Sensor) LidTemp(adc uint16) float64 {
	return s.Lid.Lookup(LidResistance(adc))
}

// PlateTemp converts the four plate converter SPI bytes to degrees Celsius
func (s Sensor) PlateTemp(spi [4]byte) float64 {
	return s.Plate.Lookup(PlateResistance(PlateConversion(spi)))
}

// LidReading returns the lid ADC reading the sensor produces at celsius
func (s Sensor) LidReading(celsius float64) uint16 {
	return LidADC(s.Lid.Resistance(celsius))
}

// PlateReading returns the SPI bytes the plate converter produces at celsius
func (s Sensor) PlateReading(celsius float64) [4]byte {
	return PlateSPIBytes(PlateADC(s.Plate.Resistance(celsius)))
}

func dividerOhms(mv uint64) uint32 {
	if mv >= ReferenceMV {
		return math.MaxUint32
	}
	return uint32(mv * DividerOhms / (ReferenceMV - mv))
}

func dividerMV(ohms uint32) float64 {
	return ReferenceMV * float64(ohms) / (DividerOhms + float64(ohms))
}

// LidResistance converts a 10-bit lid ADC reading to ohms
func LidResistance(adc uint16) uint32 {
	if adc > LidADCMax {
		adc = LidADCMax
	}
	mv := uint64(adc) * ReferenceMV / lidADCCounts
	return dividerOhms(mv)
}

// LidADC returns the lid ADC reading for a thermistor resistance
func LidADC(ohms uint32) uint16 {
	counts := math.Round(dividerMV(ohms) * lidADCCounts / ReferenceMV)
	return uint16(math.Min(counts, LidADCMax))
}

// PlateConversion unpacks the 21-bit conversion result from the plate
// converter's SPI bytes
func PlateConversion(spi [4]byte) uint32 {
	return uint32(spi[3]>>7)&0x01 |
		uint32(spi[2])<<1 |
		uint32(spi[1])<<9 |
		uint32(spi[0]&0x1F)<<17
}

// PlateSPIBytes packs a 21-bit conversion result the way the plate converter
// sends it
func PlateSPIBytes(conv uint32) [4]byte {
	return [4]byte{
		byte(conv>>17) & 0x1F,
		byte(conv >> 9),
		byte(conv >> 1),
		byte(conv&0x01) << 7,
	}
}

// PlateResistance converts a plate conversion result to ohms
func PlateResistance(conv uint32) uint32 {
	if conv > PlateADCMax {
		conv = PlateADCMax
	}
	volts := float64(conv) * 5.0 / PlateADCMax
	return dividerOhms(uint64(volts * 1000))
}

// PlateADC returns the plate conversion result for a thermistor resistance
func PlateADC(ohms uint32) uint32 {
	counts := math.Round(dividerMV(ohms) / ReferenceMV * PlateADCMax)
	return uint32(math.Min(counts, PlateADCMax))
}
