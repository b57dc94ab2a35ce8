// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"errors"
	"io"
	"sync"
)

// ErrNoData is returned by ReadByte when no byte is available
var ErrNoData = errors.New("pcp: no data available")

// ByteSource is the serial transport as seen by the decoder and dispatcher.
// Available and ReadByte must never block.
type ByteSource interface {
	// Available returns the number of bytes that can be read without blocking
	Available() int

	// ReadByte returns the next byte, or ErrNoData when none is available
	ReadByte() (byte, error)

	io.Writer
}

// SliceSource is an in-memory ByteSource. Input is queued with Push and
// everything written is captured for inspection.
type SliceSource struct {
	in  []byte
	out []byte
}

// NewSliceSource creates a source preloaded with data
func NewSliceSource(data []byte) *SliceSource {
	return &SliceSource{in: append([]byte(nil), data...)}
}

// Push queues more input bytes
func (s *SliceSource) Push(data ...byte) {
	s.in = append(s.in, data...)
}

// Available returns the number of queued input bytes
func (s *SliceSource) Available() int {
	return len(s.in)
}

// ReadByte pops the next queued input byte
func (s *SliceSource) ReadByte() (byte, error) {
	if len(s.in) == 0 {
		return 0, ErrNoData
	}
	b := s.in[0]
	s.in = s.in[1:]
	return b, nil
}

// Write captures p as output
func (s *SliceSource) Write(p []byte) (int, error) {
	s.out = append(s.out, p...)
	return len(p), nil
}

// Written returns everything written so far
func (s *SliceSource) Written() []byte {
	return s.out
}

// ResetWritten clears the captured output
func (s *SliceSource) ResetWritten() {
	s.out = s.out[:0]
}

// DefaultFifoSize is the receive FIFO capacity used by NewStreamSource
const DefaultFifoSize = 4096

// StreamSource adapts a blocking io.ReadWriter (serial port, WebSocket) to a
// non-blocking ByteSource. A pump goroutine moves received bytes into a
// bounded ring FIFO; bytes arriving while the FIFO is full are dropped and
// counted, like a UART receive overrun.
type StreamSource struct {
	rw io.ReadWriter

	mu       sync.Mutex
	fifo     []byte
	head     int
	count    int
	overruns uint64
	err      error

	ready chan struct{}
	done  chan struct{}
}

// NewStreamSource starts pumping rw into a FIFO of DefaultFifoSize bytes
func NewStreamSource(rw io.ReadWriter) *StreamSource {
	return NewStreamSourceSize(rw, DefaultFifoSize)
}

// NewStreamSourceSize starts pumping rw into a FIFO of the given capacity
func NewStreamSourceSize(rw io.ReadWriter, size int) *StreamSource {
	s := &StreamSource{
		rw:    rw,
		fifo:  make([]byte, size),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *StreamSource) pump() {
	defer close(s.done)
	buf := make([]byte, 256)
	for {
		n, err := s.rw.Read(buf)
		if n > 0 {
			s.push(buf[:n])
		}
		if err != nil {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			s.signal()
			return
		}
	}
}

func (s *StreamSource) push(data []byte) {
	s.mu.Lock()
	for _, b := range data {
		if s.count == len(s.fifo) {
			s.overruns++
			continue
		}
		s.fifo[(s.head+s.count)%len(s.fifo)] = b
		s.count++
	}
	s.mu.Unlock()
	s.signal()
}

func (s *StreamSource) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Available returns the number of buffered bytes
func (s *StreamSource) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// ReadByte pops the next buffered byte
func (s *StreamSource) ReadByte() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return 0, ErrNoData
	}
	b := s.fifo[s.head]
	s.head = (s.head + 1) % len(s.fifo)
	s.count--
	return b, nil
}

// Write sends p on the underlying stream
func (s *StreamSource) Write(p []byte) (int, error) {
	return s.rw.Write(p)
}

// Ready is signalled after new bytes arrive or the stream fails
func (s *StreamSource) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed once the pump goroutine has exited
func (s *StreamSource) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that stopped the pump, if any
func (s *StreamSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Overruns returns the number of bytes dropped because the FIFO was full
func (s *StreamSource) Overruns() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overruns
}
