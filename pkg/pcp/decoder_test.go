// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"bytes"
	"testing"
	"time"
)

// feedChunks pushes data into a SliceSource chunk by chunk, polling after
// each chunk until the decoder stops consuming
func feedChunks(d *Decoder, data []byte, chunk int) {
	src := NewSliceSource(nil)
	for i := 0; i < len(data); i += chunk {
		end := i + chunk
		if end > len(data) {
			end = len(data)
		}
		src.Push(data[i:end]...)
		for d.Poll(src) {
		}
	}
}

// ============================================================
// Basic Framing
// ============================================================

func TestDecoder_PingCommand(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	// Declared length 8 = header (4) + "ping"
	d.Feed([]byte{StartCode, 0x08, 0x00})
	if d.Phase() != PhaseHeaderDone {
		t.Fatalf("expected header_done after length bytes, got %s", d.Phase())
	}
	if d.Remaining() != 5 {
		t.Errorf("expected 5 bytes remaining (type + payload), got %d", d.Remaining())
	}

	d.Feed([]byte{0x13, 'p', 'i', 'n', 'g'})

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	f := rec.frames[0]
	if f.Type != TypeSendCommand {
		t.Errorf("expected SEND_CMD, got %s", f.Type)
	}
	if f.Sequence != 3 {
		t.Errorf("expected sequence 3, got %d", f.Sequence)
	}
	if string(f.Payload) != "ping" {
		t.Errorf("expected payload \"ping\", got %q", f.Payload)
	}
	if f.Length != 8 {
		t.Errorf("expected declared length 8, got %d", f.Length)
	}
	if d.Phase() != PhaseSeeking {
		t.Errorf("decoder should return to seeking, got %s", d.Phase())
	}
}

func TestDecoder_StatusRequestHeaderOnly(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)
	d.Feed(mustEncode(TypeStatusRequest, 9, nil))

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	if rec.frames[0].Type != TypeStatusRequest || rec.frames[0].Sequence != 9 {
		t.Errorf("unexpected frame %+v", rec.frames[0])
	}
	if len(rec.frames[0].Payload) != 0 {
		t.Errorf("expected empty payload, got % X", rec.frames[0].Payload)
	}
}

func TestDecoder_SkipsGarbageBeforeStart(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	data := append([]byte{0x00, 0x41, 0x13, 0x7E}, mustEncode(TypeSendCommand, 1, []byte("c=stop"))...)
	d.Feed(data)

	if len(rec.frames) != 1 || string(rec.frames[0].Payload) != "c=stop" {
		t.Fatalf("expected single c=stop frame, got %+v", rec.frames)
	}
	if d.Stats().BytesDiscarded != 4 {
		t.Errorf("expected 4 discarded bytes, got %d", d.Stats().BytesDiscarded)
	}
}

func TestDecoder_MaxSizeFrame(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	payload := bytes.Repeat([]byte{'x'}, MaxFrameSize-HeaderSize)
	d.Feed(mustEncode(TypeSendCommand, 0, payload))

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	if !bytes.Equal(rec.frames[0].Payload, payload) {
		t.Errorf("payload mismatch for maximum size frame")
	}
}

// ============================================================
// Resumability
// ============================================================

func TestDecoder_ChunkedMatchesWhole(t *testing.T) {
	frames := [][]byte{
		mustEncode(TypeSendCommand, 3, []byte("ping")),
		mustEncode(TypeStatusRequest, 15, nil),
		mustEncode(TypeSendCommand, 7, []byte{'a', StartCode, 'b', EscapeCode, 'c', StartCode, StartCode}),
		mustEncode(TypeSendCommand, 0, []byte("c=start&d=42&n=Test&l=110&p=(1[30|95|Denature])")),
	}

	for fi, frame := range frames {
		whole := &frameRecorder{}
		NewDecoder(whole).Feed(frame)
		if len(whole.frames) != 1 {
			t.Fatalf("frame %d: whole feed produced %d frames", fi, len(whole.frames))
		}

		for chunk := 1; chunk <= len(frame); chunk++ {
			rec := &frameRecorder{}
			d := NewDecoder(rec)
			feedChunks(d, frame, chunk)

			if len(rec.frames) != 1 {
				t.Fatalf("frame %d chunk %d: expected 1 frame, got %d", fi, chunk, len(rec.frames))
			}
			got, want := rec.frames[0], whole.frames[0]
			if got.Type != want.Type || got.Sequence != want.Sequence || !bytes.Equal(got.Payload, want.Payload) {
				t.Errorf("frame %d chunk %d: got %+v, want %+v", fi, chunk, got, want)
			}
		}
	}
}

func TestDecoder_PollReportsConsumption(t *testing.T) {
	d := NewDecoder(nil)
	src := NewSliceSource(nil)

	if d.Poll(src) {
		t.Error("Poll on an empty source should report no bytes consumed")
	}

	src.Push(StartCode, 0x08)
	if !d.Poll(src) {
		t.Error("Poll should report bytes consumed")
	}
	if src.Available() != 0 {
		t.Errorf("Poll should consume all available bytes, %d left", src.Available())
	}
	if d.Phase() != PhaseLenLow {
		t.Errorf("expected len_low, got %s", d.Phase())
	}
}

func TestDecoder_PollDispatchesEveryCompletedFrame(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	var data []byte
	data = append(data, mustEncode(TypeStatusRequest, 1, nil)...)
	data = append(data, mustEncode(TypeSendCommand, 2, []byte("c=stop"))...)
	data = append(data, mustEncode(TypeStatusRequest, 3, nil)...)

	d.Poll(NewSliceSource(data))

	if len(rec.frames) != 3 {
		t.Fatalf("expected 3 frames from a single poll, got %d", len(rec.frames))
	}
	for i, f := range rec.frames {
		if f.Sequence != uint8(i+1) {
			t.Errorf("frame %d: expected sequence %d, got %d", i, i+1, f.Sequence)
		}
	}
}

func TestDecoder_RepeatedSequenceStillDispatched(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	frame := mustEncode(TypeSendCommand, 3, []byte("c=stop"))
	d.Feed(frame)
	d.Feed(frame)

	if len(rec.frames) != 2 {
		t.Fatalf("expected 2 frames for a repeated sequence, got %d", len(rec.frames))
	}
}

// ============================================================
// Escaping
// ============================================================

func TestDecoder_EscapedStartCodeInPayload(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	payload := []byte{'n', '=', StartCode, 'x'}
	wire := mustEncode(TypeSendCommand, 2, payload)
	if len(wire) != HeaderSize+len(payload)+1 {
		t.Fatalf("expected one escape byte on the wire, got % X", wire)
	}

	d.Feed(wire)

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	if !bytes.Equal(rec.frames[0].Payload, payload) {
		t.Errorf("expected payload % X, got % X", payload, rec.frames[0].Payload)
	}
}

func TestDecoder_UnpairedEscapeIsKept(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"escape before data", []byte{EscapeCode, 'A', 'B'}},
		{"double escape", []byte{EscapeCode, EscapeCode, 'A'}},
		{"trailing escape", []byte{'A', EscapeCode}},
		{"escape only", []byte{EscapeCode}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &frameRecorder{}
			d := NewDecoder(rec)

			wire := append([]byte{StartCode, byte(HeaderSize + len(tt.payload)), 0x00, 0x10}, tt.payload...)
			d.Feed(wire)

			if len(rec.frames) != 1 {
				t.Fatalf("expected 1 frame, got %d", len(rec.frames))
			}
			if !bytes.Equal(rec.frames[0].Payload, tt.payload) {
				t.Errorf("expected payload % X, got % X", tt.payload, rec.frames[0].Payload)
			}
		})
	}
}

func TestDecoder_DoubleEscapeBeforeStartCollapsesOnce(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	// ESC ESC START decodes to ESC START
	d.Feed([]byte{StartCode, 0x07, 0x00, 0x10, EscapeCode, EscapeCode, StartCode})

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	want := []byte{EscapeCode, StartCode}
	if !bytes.Equal(rec.frames[0].Payload, want) {
		t.Errorf("expected payload % X, got % X", want, rec.frames[0].Payload)
	}
}

func TestDecoder_EscapedStartWhileSeekingIsIgnored(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	d.Feed([]byte{EscapeCode, StartCode})
	if d.Phase() != PhaseSeeking {
		t.Fatalf("escaped start code must not begin a frame, phase=%s", d.Phase())
	}

	d.Feed(mustEncode(TypeStatusRequest, 4, nil))
	if len(rec.frames) != 1 || rec.frames[0].Sequence != 4 {
		t.Errorf("expected the following frame to decode, got %+v", rec.frames)
	}
}

func TestDecoder_EscapeStateSurvivesPollBoundary(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)
	src := NewSliceSource(nil)

	src.Push(StartCode, 0x07, 0x00, 0x10, 'A', EscapeCode)
	d.Poll(src)
	src.Push(StartCode)
	d.Poll(src)

	if len(rec.frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(rec.frames))
	}
	if !bytes.Equal(rec.frames[0].Payload, []byte{'A', StartCode}) {
		t.Errorf("unexpected payload % X", rec.frames[0].Payload)
	}
}

// ============================================================
// Length Validation
// ============================================================

func TestDecoder_RejectsBadLengths(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"zero length", []byte{StartCode, 0x00, 0x00}},
		{"below header size", []byte{StartCode, HeaderSize - 1, 0x00}},
		{"one above maximum", []byte{StartCode, byte((MaxFrameSize + 1) & 0xFF), byte((MaxFrameSize + 1) >> 8)}},
		{"far above maximum", []byte{StartCode, 0xFF, 0x7F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &frameRecorder{}
			d := NewDecoder(rec)

			d.Feed(tt.header)
			if d.Phase() != PhaseSeeking {
				t.Fatalf("expected seeking after bad length, got %s", d.Phase())
			}
			if d.Stats().RejectedLengths != 1 {
				t.Errorf("expected 1 rejected length, got %d", d.Stats().RejectedLengths)
			}

			d.Feed(mustEncode(TypeSendCommand, 5, []byte("c=stop")))
			if len(rec.frames) != 1 {
				t.Fatalf("expected the next well-formed frame to decode, got %d frames", len(rec.frames))
			}
			if string(rec.frames[0].Payload) != "c=stop" {
				t.Errorf("unexpected payload %q", rec.frames[0].Payload)
			}
		})
	}
}

// ============================================================
// Stall Timeout
// ============================================================

func TestDecoder_StallTimeoutAbandonsFrame(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)
	d.SetStallTimeout(100 * time.Millisecond)

	clock := time.Unix(1000, 0)
	d.now = func() time.Time { return clock }

	d.Feed([]byte{StartCode, 0x20, 0x00, 0x10, 'x'})
	if d.Phase() != PhaseHeaderDone {
		t.Fatalf("expected header_done, got %s", d.Phase())
	}

	clock = clock.Add(time.Second)
	d.Feed(mustEncode(TypeStatusRequest, 6, nil))

	if d.Stats().StallResets != 1 {
		t.Errorf("expected 1 stall reset, got %d", d.Stats().StallResets)
	}
	if len(rec.frames) != 1 || rec.frames[0].Type != TypeStatusRequest {
		t.Errorf("expected the status request after the stall, got %+v", rec.frames)
	}
}

func TestDecoder_NoStallTimeoutWaitsForever(t *testing.T) {
	rec := &frameRecorder{}
	d := NewDecoder(rec)

	clock := time.Unix(1000, 0)
	d.now = func() time.Time { return clock }

	d.Feed([]byte{StartCode, 0x06, 0x00, 0x10})
	clock = clock.Add(time.Hour)
	d.Feed([]byte{'o', 'k'})

	if len(rec.frames) != 1 || string(rec.frames[0].Payload) != "ok" {
		t.Errorf("expected the slow frame to complete, got %+v", rec.frames)
	}
}
