// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"context"
	"fmt"
	"io"
)

// Client is the host end of the link. It numbers outgoing frames with a
// rolling sequence and decodes status responses from the device.
type Client struct {
	src *StreamSource
	dec *Decoder
	seq uint8

	received  bool
	status    *Status
	statusErr error

	// Frames ending at or before this count belong to earlier requests
	staleEnd uint64
}

// NewClient starts reading from rw. The caller owns rw and closes it.
func NewClient(rw io.ReadWriter) *Client {
	c := &Client{src: NewStreamSource(rw)}
	c.dec = NewDecoder(HandlerFunc(c.handleFrame))
	return c
}

// frameEnds counts frames that finished decoding, valid or rejected
func (c *Client) frameEnds() uint64 {
	st := c.dec.Stats()
	return st.Frames + st.Errors()
}

func (c *Client) handleFrame(f Frame) {
	if f.Type != TypeStatusResponse || c.frameEnds() <= c.staleEnd {
		return
	}
	c.status, c.statusErr = ParseStatus(f.Payload)
	c.received = true
}

func (c *Client) nextSeq() uint8 {
	seq := c.seq
	c.seq = (c.seq + 1) & SequenceMask
	return seq
}

func (c *Client) send(t FrameType, payload []byte) error {
	frame, err := EncodeFrame(t, c.nextSeq(), payload)
	if err != nil {
		return err
	}
	if _, err := c.src.Write(frame); err != nil {
		return fmt.Errorf("failed to send %s: %w", t, err)
	}
	return nil
}

// SendCommand sends raw command text. The device does not acknowledge
// commands; the command id shows up in the next status response.
func (c *Client) SendCommand(text string) error {
	return c.send(TypeSendCommand, []byte(text))
}

// RequestStatus sends a status request and waits for the response
func (c *Client) RequestStatus(ctx context.Context) (*Status, error) {
	c.discardStale()
	if err := c.send(TypeStatusRequest, nil); err != nil {
		return nil, err
	}

	for {
		for c.dec.Poll(c.src) {
		}
		if c.received {
			return c.status, c.statusErr
		}
		if err := c.src.Err(); err != nil && c.src.Available() == 0 {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.src.Ready():
		}
	}
}

// discardStale drops responses to earlier requests that already arrived,
// including one still being decoded. A request that timed out is answered
// late; without this its answer would be taken for the next one.
func (c *Client) discardStale() {
	for c.dec.Poll(c.src) {
	}
	c.staleEnd = c.frameEnds()
	if c.dec.Phase() != PhaseSeeking {
		c.staleEnd++
	}
	c.received = false
	c.status, c.statusErr = nil, nil
}

// Stats returns the statistics of the response decoder
func (c *Client) Stats() *Statistics {
	return c.dec.Stats()
}
