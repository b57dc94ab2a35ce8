// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"math"
	"strconv"
)

// Parameter helpers append one key=value field to a status record. A field
// is written whole or not at all; the return value reports which. The first
// field of a record is written without the leading '&'.

// maxFieldScratch covers every numeric field without heap allocation
const maxFieldScratch = 48

const maxDecimalDigits = 9

func fieldPrefix(dst []byte, key byte, first bool) []byte {
	if !first {
		dst = append(dst, '&')
	}
	return append(dst, key, '=')
}

// AppendIntParam appends a signed decimal field
func AppendIntParam(b *Buffer, key byte, val int64, first bool) bool {
	var scratch [maxFieldScratch]byte
	field := strconv.AppendInt(fieldPrefix(scratch[:0], key, first), val, 10)
	_, err := b.Write(field)
	return err == nil
}

// AppendUintParam appends an unsigned decimal field
func AppendUintParam(b *Buffer, key byte, val uint64, first bool) bool {
	var scratch [maxFieldScratch]byte
	field := strconv.AppendUint(fieldPrefix(scratch[:0], key, first), val, 10)
	_, err := b.Write(field)
	return err == nil
}

// AppendFloatParam appends a fixed-point field with decimalDigits digits
// after the point, zero padded to width characters (0 for no padding)
func AppendFloatParam(b *Buffer, key byte, val float64, decimalDigits, width int, first bool) bool {
	var scratch [maxFieldScratch]byte
	field := AppendFloat(fieldPrefix(scratch[:0], key, first), val, decimalDigits, width)
	_, err := b.Write(field)
	return err == nil
}

// AppendStringParam appends a string field verbatim
func AppendStringParam(b *Buffer, key byte, val string, first bool) bool {
	prefix := 2
	if !first {
		prefix++
	}
	if prefix+len(val) > b.Free() {
		return false
	}
	if !first {
		b.WriteByte('&')
	}
	b.WriteByte(key)
	b.WriteByte('=')
	b.WriteString(val)
	return true
}

// AppendFloat formats val in fixed point, rounding half away from zero at the
// requested number of decimal digits. When width is larger than the result
// the integer part is left padded with zeros after any sign.
func AppendFloat(dst []byte, val float64, decimalDigits, width int) []byte {
	if decimalDigits < 0 {
		decimalDigits = 0
	}
	if decimalDigits > maxDecimalDigits {
		decimalDigits = maxDecimalDigits
	}
	scale := math.Pow10(decimalDigits)
	scaled := math.Round(val * scale)
	if math.IsNaN(scaled) || math.Abs(scaled) >= 1<<62 {
		return strconv.AppendFloat(dst, val, 'f', decimalDigits, 64)
	}

	units := int64(scaled)
	negative := units < 0
	if negative {
		units = -units
	}
	div := int64(scale)
	intPart := units / div
	fracPart := units % div

	var scratch [maxFieldScratch]byte
	digits := strconv.AppendInt(scratch[:0], intPart, 10)
	if decimalDigits > 0 {
		digits = append(digits, '.')
		var fracScratch [maxDecimalDigits]byte
		frac := strconv.AppendInt(fracScratch[:0], fracPart, 10)
		for i := len(frac); i < decimalDigits; i++ {
			digits = append(digits, '0')
		}
		digits = append(digits, frac...)
	}

	if negative {
		dst = append(dst, '-')
		width--
	}
	for i := len(digits); i < width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, digits...)
}

// FormatFloat returns AppendFloat as a string
func FormatFloat(val float64, decimalDigits, width int) string {
	return string(AppendFloat(nil, val, decimalDigits, width))
}
