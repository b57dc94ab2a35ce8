// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"errors"
	"fmt"
)

// FrameType is the high nibble of the type/sequence byte
type FrameType uint8

// Frame type values
const (
	TypeSendCommand    FrameType = 0x1
	TypeStatusRequest  FrameType = 0x4
	TypeStatusResponse FrameType = 0x8
)

// String returns the wire name of the frame type
func (t FrameType) String() string {
	switch t {
	case TypeSendCommand:
		return "SEND_CMD"
	case TypeStatusRequest:
		return "STATUS_REQ"
	case TypeStatusResponse:
		return "STATUS_RESP"
	default:
		return "UNKNOWN"
	}
}

// Known reports whether t is one of the defined frame types
func (t FrameType) Known() bool {
	switch t {
	case TypeSendCommand, TypeStatusRequest, TypeStatusResponse:
		return true
	}
	return false
}

// TypeByte packs a frame type and sequence number into the header byte
func TypeByte(t FrameType, seq uint8) byte {
	return byte(t)<<4 | seq&SequenceMask
}

// SplitTypeByte unpacks the header byte into frame type and sequence number
func SplitTypeByte(b byte) (FrameType, uint8) {
	return FrameType(b >> 4), b & SequenceMask
}

// Frame is a decoded protocol frame.
//
// Frames handed to a Handler by the Decoder alias the decoder's frame buffer:
// Payload and Raw are overwritten by the next frame, so handlers that retain
// them must copy.
type Frame struct {
	Type     FrameType
	Sequence uint8
	Length   uint16 // declared length from the header
	Payload  []byte // de-escaped bytes after the header
	Raw      []byte // de-escaped frame including the header
}

// Handler receives completed frames from a Decoder
type Handler interface {
	HandleFrame(f Frame)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(f Frame)

// HandleFrame calls fn(f)
func (fn HandlerFunc) HandleFrame(f Frame) {
	fn(f)
}

// ErrFrameTooLarge is returned when an encoded frame would exceed MaxFrameSize
var ErrFrameTooLarge = errors.New("pcp: frame exceeds maximum size")

// EncodeFrame builds a wire frame. Every literal start code in the
// type/payload region is preceded by an escape code; escape codes themselves
// are sent as is, matching the device decoder. The declared length counts the
// bytes on the wire.
func EncodeFrame(t FrameType, seq uint8, payload []byte) ([]byte, error) {
	typeByte := TypeByte(t, seq)

	escapes := 0
	if typeByte == StartCode {
		escapes++
	}
	for _, b := range payload {
		if b == StartCode {
			escapes++
		}
	}

	total := HeaderSize + len(payload) + escapes
	if total > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, total, MaxFrameSize)
	}

	frame := make([]byte, 0, total)
	frame = append(frame, StartCode, byte(total), byte(total>>8))
	frame = appendEscaped(frame, typeByte)
	for _, b := range payload {
		frame = appendEscaped(frame, b)
	}

	return frame, nil
}

func appendEscaped(dst []byte, b byte) []byte {
	if b == StartCode {
		dst = append(dst, EscapeCode)
	}
	return append(dst, b)
}
