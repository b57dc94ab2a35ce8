// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"bytes"
	"errors"
	"testing"
)

// ============================================================
// Type Byte
// ============================================================

func TestTypeByte(t *testing.T) {
	tests := []struct {
		ft   FrameType
		seq  uint8
		want byte
	}{
		{TypeSendCommand, 3, 0x13},
		{TypeStatusRequest, 0, 0x40},
		{TypeStatusResponse, 0, 0x80},
		{TypeSendCommand, 0x1F, 0x1F}, // sequence is masked to four bits
	}

	for _, tt := range tests {
		got := TypeByte(tt.ft, tt.seq)
		if got != tt.want {
			t.Errorf("TypeByte(%s, %d) = 0x%02X, want 0x%02X", tt.ft, tt.seq, got, tt.want)
		}
		ft, seq := SplitTypeByte(got)
		if ft != tt.ft || seq != tt.seq&SequenceMask {
			t.Errorf("SplitTypeByte(0x%02X) = %s/%d", got, ft, seq)
		}
	}
}

func TestFrameType_String(t *testing.T) {
	tests := []struct {
		ft    FrameType
		name  string
		known bool
	}{
		{TypeSendCommand, "SEND_CMD", true},
		{TypeStatusRequest, "STATUS_REQ", true},
		{TypeStatusResponse, "STATUS_RESP", true},
		{FrameType(0x2), "UNKNOWN", false},
		{FrameType(0xF), "UNKNOWN", false},
	}

	for _, tt := range tests {
		if tt.ft.String() != tt.name {
			t.Errorf("FrameType(0x%X).String() = %q, want %q", uint8(tt.ft), tt.ft.String(), tt.name)
		}
		if tt.ft.Known() != tt.known {
			t.Errorf("FrameType(0x%X).Known() = %v, want %v", uint8(tt.ft), tt.ft.Known(), tt.known)
		}
	}
}

// ============================================================
// Encoding
// ============================================================

func TestEncodeFrame_Ping(t *testing.T) {
	got := mustEncode(TypeSendCommand, 3, []byte("ping"))
	want := []byte{StartCode, 0x08, 0x00, 0x13, 'p', 'i', 'n', 'g'}
	if !bytes.Equal(got, want) {
		t.Errorf("expected % X, got % X", want, got)
	}
}

func TestEncodeFrame_EscapesStartCode(t *testing.T) {
	got := mustEncode(TypeSendCommand, 0, []byte{'a', StartCode, EscapeCode})
	want := []byte{StartCode, 0x08, 0x00, 0x10, 'a', EscapeCode, StartCode, EscapeCode}
	if !bytes.Equal(got, want) {
		t.Errorf("expected % X, got % X", want, got)
	}
}

func TestEncodeFrame_EscapesTypeByte(t *testing.T) {
	got := mustEncode(FrameType(0xF), 0xF, nil)
	want := []byte{StartCode, 0x05, 0x00, EscapeCode, StartCode}
	if !bytes.Equal(got, want) {
		t.Errorf("expected % X, got % X", want, got)
	}

	rec := &frameRecorder{}
	NewDecoder(rec).Feed(got)
	if len(rec.frames) != 1 || rec.frames[0].Type != FrameType(0xF) || rec.frames[0].Sequence != 0xF {
		t.Errorf("escaped type byte did not decode: %+v", rec.frames)
	}
}

func TestEncodeFrame_TooLarge(t *testing.T) {
	if _, err := EncodeFrame(TypeSendCommand, 0, make([]byte, MaxFrameSize-HeaderSize)); err != nil {
		t.Fatalf("maximum payload should encode: %v", err)
	}

	_, err := EncodeFrame(TypeSendCommand, 0, make([]byte, MaxFrameSize-HeaderSize+1))
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}

	// Escapes count toward the limit
	payload := bytes.Repeat([]byte{StartCode}, (MaxFrameSize-HeaderSize)/2+1)
	_, err = EncodeFrame(TypeSendCommand, 0, payload)
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge once escaped, got %v", err)
	}
}
