// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import "errors"

// ErrBufferFull is returned when a write would exceed the buffer capacity
var ErrBufferFull = errors.New("pcp: buffer full")

// Buffer is a fixed-capacity byte buffer. The backing array is allocated once
// and reused; writes past capacity are rejected rather than truncated.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer creates a buffer with the given fixed capacity
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Len returns the number of bytes written
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the fixed capacity
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Free returns the number of bytes that can still be written
func (b *Buffer) Free() int {
	return len(b.data) - b.n
}

// Bytes returns the written bytes. The slice aliases the buffer and is only
// valid until the next Reset or write.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Reset discards the contents without releasing the backing array
func (b *Buffer) Reset() {
	b.n = 0
}

// WriteByte appends a single byte
func (b *Buffer) WriteByte(c byte) error {
	if b.n >= len(b.data) {
		return ErrBufferFull
	}
	b.data[b.n] = c
	b.n++
	return nil
}

// Write appends p in full or not at all
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > b.Free() {
		return 0, ErrBufferFull
	}
	copy(b.data[b.n:], p)
	b.n += len(p)
	return len(p), nil
}

// WriteString appends s in full or not at all
func (b *Buffer) WriteString(s string) (int, error) {
	if len(s) > b.Free() {
		return 0, ErrBufferFull
	}
	copy(b.data[b.n:], s)
	b.n += len(s)
	return len(s), nil
}
