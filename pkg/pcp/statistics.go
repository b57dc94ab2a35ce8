// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"fmt"
	"time"
)

// Statistics tracks decoder throughput and the malformed input it absorbed
type Statistics struct {
	StartTime time.Time

	// Counters
	BytesRead       uint64
	BytesDiscarded  uint64 // bytes skipped while seeking a start code
	Frames          uint64
	CommandFrames   uint64
	StatusRequests  uint64
	StatusResponses uint64
	UnknownFrames   uint64
	RejectedLengths uint64
	Overflows       uint64
	StallResets     uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// countFrame records a dispatched frame by type
func (s *Statistics) countFrame(t FrameType) {
	s.Frames++
	switch t {
	case TypeSendCommand:
		s.CommandFrames++
	case TypeStatusRequest:
		s.StatusRequests++
	case TypeStatusResponse:
		s.StatusResponses++
	default:
		s.UnknownFrames++
	}
}

// Errors returns the total number of framing errors absorbed
func (s *Statistics) Errors() uint64 {
	return s.RejectedLengths + s.Overflows + s.StallResets
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.Frames) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Read:      %8d\n", s.BytesRead)
	result += fmt.Sprintf("Bytes Discarded: %8d\n", s.BytesDiscarded)
	result += fmt.Sprintf("Frames:          %8d\n", s.Frames)
	if s.CommandFrames > 0 {
		result += fmt.Sprintf("  SEND_CMD:       %7d\n", s.CommandFrames)
	}
	if s.StatusRequests > 0 {
		result += fmt.Sprintf("  STATUS_REQ:     %7d\n", s.StatusRequests)
	}
	if s.StatusResponses > 0 {
		result += fmt.Sprintf("  STATUS_RESP:    %7d\n", s.StatusResponses)
	}
	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("  UNKNOWN:        %7d\n", s.UnknownFrames)
	}
	if s.RejectedLengths > 0 {
		result += fmt.Sprintf("Rejected Length: %8d\n", s.RejectedLengths)
	}
	if s.Overflows > 0 {
		result += fmt.Sprintf("Overflows:       %8d\n", s.Overflows)
	}
	if s.StallResets > 0 {
		result += fmt.Sprintf("Stall Resets:    %8d\n", s.StallResets)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = Statistics{StartTime: time.Now()}
}
