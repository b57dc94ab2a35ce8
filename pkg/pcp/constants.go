// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pcp implements the PCR control protocol spoken between a
// thermocycler and its host over a serial link.
//
// Frames are length prefixed and bounded by a start marker. The device side
// is a resumable, non-blocking decoder that reassembles frames from an
// arbitrarily fragmented byte stream, a dispatcher that routes command and
// status request frames, and a status encoder that answers with a fixed
// width ASCII key/value body. Host side helpers encode request frames and
// parse status responses.
package pcp

// Protocol framing bytes
const (
	StartCode  = 0xFF
	EscapeCode = 0xFE
)

// Frame size limits
const (
	HeaderSize   = 4   // start + length (2) + type/sequence
	MaxFrameSize = 256 // declared length upper bound, header included

	// Bytes written into the frame buffer before the type/sequence byte
	prefixSize = 3
)

// Status response layout
const (
	StatusBodySize  = 100
	StatusFrameSize = HeaderSize + StatusBodySize
	StatusPadByte   = 0x20
)

// Sequence numbers
const (
	SequenceMask = 0x0F

	// NoSequence is reported by Dispatcher.LastSequence before any frame is accepted
	NoSequence = 0xFF
)
