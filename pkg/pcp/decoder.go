// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import "time"

// Phase is the current step of frame assembly
type Phase int

// Decoder phases
const (
	PhaseSeeking    Phase = iota // scanning for an unescaped start code
	PhaseStartFound              // next byte is the length low byte
	PhaseLenLow                  // next byte is the length high byte
	PhaseHeaderDone              // accumulating the declared number of bytes
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseSeeking:
		return "seeking"
	case PhaseStartFound:
		return "start_found"
	case PhaseLenLow:
		return "len_low"
	case PhaseHeaderDone:
		return "header_done"
	default:
		return "invalid"
	}
}

// Decoder implements the frame reassembly state machine. All parse state
// survives between calls, so a frame may arrive split across any number of
// polls. The decoder never blocks and never reports malformed input as an
// error: bad lengths resynchronize on the next start code and are counted in
// Stats.
type Decoder struct {
	phase         Phase
	lenLow        byte
	remaining     int
	escapePending bool
	overflowed    bool
	buf           *Buffer
	handler       Handler
	stats         *Statistics

	stallTimeout time.Duration
	lastByte     time.Time
	now          func() time.Time
}

// NewDecoder creates a decoder that hands completed frames to h
func NewDecoder(h Handler) *Decoder {
	return &Decoder{
		phase:   PhaseSeeking,
		buf:     NewBuffer(MaxFrameSize),
		handler: h,
		stats:   NewStatistics(),
		now:     time.Now,
	}
}

// SetHandler replaces the frame handler
func (d *Decoder) SetHandler(h Handler) {
	d.handler = h
}

// SetStallTimeout abandons a partial frame when the gap between two bytes
// exceeds timeout. Zero, the default, waits forever.
func (d *Decoder) SetStallTimeout(timeout time.Duration) {
	d.stallTimeout = timeout
}

// Phase returns the current phase
func (d *Decoder) Phase() Phase {
	return d.phase
}

// Remaining returns the number of declared bytes still expected
func (d *Decoder) Remaining() int {
	return d.remaining
}

// Stats returns the decoder statistics
func (d *Decoder) Stats() *Statistics {
	return d.stats
}

// Reset returns the decoder to seeking and drops any partial frame
func (d *Decoder) Reset() {
	d.phase = PhaseSeeking
	d.remaining = 0
	d.escapePending = false
	d.overflowed = false
	d.buf.Reset()
}

// Poll consumes the bytes available on src when the call starts, dispatching
// every frame they complete. It reports whether any byte was consumed.
func (d *Decoder) Poll(src ByteSource) bool {
	available := src.Available()
	consumed := 0
	for consumed < available {
		b, err := src.ReadByte()
		if err != nil {
			break
		}
		consumed++
		d.step(b)
	}
	return consumed > 0
}

// Feed pushes data through the state machine
func (d *Decoder) Feed(data []byte) {
	for _, b := range data {
		d.step(b)
	}
}

func (d *Decoder) step(b byte) {
	d.stats.BytesRead++

	if d.stallTimeout > 0 {
		now := d.now()
		if d.phase != PhaseSeeking && now.Sub(d.lastByte) > d.stallTimeout {
			d.stats.StallResets++
			d.Reset()
		}
		d.lastByte = now
	}

	switch d.phase {
	case PhaseSeeking:
		if b == StartCode && !d.escapePending {
			d.phase = PhaseStartFound
			return
		}
		d.escapePending = b == EscapeCode
		d.stats.BytesDiscarded++

	case PhaseStartFound:
		d.lenLow = b
		d.phase = PhaseLenLow

	case PhaseLenLow:
		d.beginFrame(int(d.lenLow) | int(b)<<8)

	case PhaseHeaderDone:
		d.remaining--
		d.unescape(b)
		if d.remaining == 0 {
			d.complete()
		}
	}
}

// beginFrame validates the declared length and starts accumulating. The
// length is clamped before validation; a declared length above the maximum
// is still rejected so the next start code is found before any payload byte
// is swallowed.
func (d *Decoder) beginFrame(declared int) {
	length := declared
	if length > MaxFrameSize {
		length = MaxFrameSize
	}
	if declared != length || length < HeaderSize {
		d.stats.RejectedLengths++
		d.Reset()
		return
	}

	d.buf.Reset()
	d.buf.WriteByte(StartCode)
	d.buf.WriteByte(byte(length))
	d.buf.WriteByte(byte(length >> 8))
	d.escapePending = false
	d.remaining = length - prefixSize
	d.phase = PhaseHeaderDone
}

// unescape appends b to the frame buffer. An escape code is held back one
// byte: followed by a start code it is dropped, followed by anything else it
// is written through unchanged.
func (d *Decoder) unescape(b byte) {
	if d.escapePending {
		d.escapePending = false
		if b != StartCode {
			d.append(EscapeCode)
		}
	}
	if b == EscapeCode {
		d.escapePending = true
		return
	}
	d.append(b)
}

func (d *Decoder) append(b byte) {
	if err := d.buf.WriteByte(b); err != nil {
		d.overflowed = true
	}
}

func (d *Decoder) complete() {
	if d.escapePending {
		d.append(EscapeCode)
	}

	raw := d.buf.Bytes()
	if d.overflowed || len(raw) < HeaderSize {
		d.stats.Overflows++
		d.Reset()
		return
	}

	t, seq := SplitTypeByte(raw[HeaderSize-1])
	frame := Frame{
		Type:     t,
		Sequence: seq,
		Length:   uint16(raw[1]) | uint16(raw[2])<<8,
		Payload:  raw[HeaderSize:],
		Raw:      raw,
	}

	d.stats.countFrame(t)
	d.Reset()

	if d.handler != nil {
		d.handler.HandleFrame(frame)
	}
}
