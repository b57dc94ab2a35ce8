// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeDevice answers frames on conn with a Dispatcher until conn is closed
type fakeDevice struct {
	mu       sync.Mutex
	commands []string
	seqs     []uint8
	done     chan struct{}
}

func startFakeDevice(conn net.Conn, tel Telemetry) *fakeDevice {
	dev := &fakeDevice{done: make(chan struct{})}

	var disp *Dispatcher
	disp = NewDispatcher(DispatcherConfig{
		Out:       conn,
		Telemetry: tel,
		Parser: CommandParserFunc(func(text string) Command {
			dev.mu.Lock()
			defer dev.mu.Unlock()
			dev.commands = append(dev.commands, text)
			return &fakeCommand{id: uint32(len(dev.commands))}
		}),
	})
	dec := NewDecoder(HandlerFunc(func(f Frame) {
		dev.mu.Lock()
		dev.seqs = append(dev.seqs, f.Sequence)
		dev.mu.Unlock()
		disp.HandleFrame(f)
	}))

	go func() {
		defer close(dev.done)
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			dec.Feed(buf[:n])
			if err != nil {
				return
			}
		}
	}()
	return dev
}

func TestClient_RequestStatus(t *testing.T) {
	host, devConn := net.Pipe()
	defer host.Close()
	defer devConn.Close()

	dev := startFakeDevice(devConn, runningTelemetry())
	client := NewClient(host)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.SendCommand("c=start"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	st, err := client.RequestStatus(ctx)
	if err != nil {
		t.Fatalf("RequestStatus: %v", err)
	}

	if st.CommandID != 1 {
		t.Errorf("expected command id 1, got %d", st.CommandID)
	}
	if st.ProgramState != ProgramRunning {
		t.Errorf("expected running, got %s", st.ProgramState)
	}
	if st.StepName != "Denature" {
		t.Errorf("expected step Denature, got %q", st.StepName)
	}
	if client.Stats().StatusResponses != 1 {
		t.Errorf("expected 1 status response counted, got %d", client.Stats().StatusResponses)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.commands) != 1 || dev.commands[0] != "c=start" {
		t.Errorf("device received %v", dev.commands)
	}
	if len(dev.seqs) != 2 || dev.seqs[0] != 0 || dev.seqs[1] != 1 {
		t.Errorf("expected rolling sequence 0,1 got %v", dev.seqs)
	}
}

func TestClient_SequenceWraps(t *testing.T) {
	host, devConn := net.Pipe()
	defer host.Close()
	defer devConn.Close()

	dev := startFakeDevice(devConn, idleTelemetry())
	client := NewClient(host)

	for i := 0; i < 18; i++ {
		if err := client.SendCommand("c=stop"); err != nil {
			t.Fatalf("SendCommand: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.RequestStatus(ctx); err != nil {
		t.Fatalf("RequestStatus: %v", err)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.seqs) != 19 {
		t.Fatalf("expected 19 frames, got %d", len(dev.seqs))
	}
	if dev.seqs[15] != 15 || dev.seqs[16] != 0 || dev.seqs[18] != 2 {
		t.Errorf("sequence did not wrap at 16: %v", dev.seqs)
	}
}

func TestClient_RequestStatusTimeout(t *testing.T) {
	host, devConn := net.Pipe()
	defer host.Close()
	defer devConn.Close()

	// Swallow requests without answering
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := devConn.Read(buf); err != nil {
				return
			}
		}
	}()

	client := NewClient(host)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.RequestStatus(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestClient_RequestStatusClosed(t *testing.T) {
	host, devConn := net.Pipe()
	defer host.Close()

	go func() {
		buf := make([]byte, 64)
		devConn.Read(buf)
		devConn.Close()
	}()

	client := NewClient(host)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := client.RequestStatus(ctx); err == nil {
		t.Error("expected an error once the device side closed")
	}
}

// ============================================================
// Late Responses
// ============================================================

// watchRequests reads frames from conn and signals every status request
func watchRequests(conn net.Conn) <-chan struct{} {
	reqs := make(chan struct{}, 16)
	dec := NewDecoder(HandlerFunc(func(f Frame) {
		if f.Type == TypeStatusRequest {
			reqs <- struct{}{}
		}
	}))
	go func() {
		buf := make([]byte, 64)
		for {
			n, err := conn.Read(buf)
			dec.Feed(buf[:n])
			if err != nil {
				return
			}
		}
	}()
	return reqs
}

func waitRequest(t *testing.T, reqs <-chan struct{}) {
	t.Helper()
	select {
	case <-reqs:
	case <-time.After(2 * time.Second):
		t.Fatal("device never saw the status request")
	}
}

// waitBuffered waits until the client has n unread bytes queued
func waitBuffered(t *testing.T, c *Client, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.src.Available() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d buffered bytes, have %d", n, c.src.Available())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClient_LateResponseDiscarded(t *testing.T) {
	tests := []struct {
		name string
		// bytes of the late answer that arrive before the next request
		early int
	}{
		{"whole answer buffered", StatusFrameSize},
		{"answer half decoded", 40},
		{"only the start code", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, devConn := net.Pipe()
			defer host.Close()
			defer devConn.Close()

			reqs := watchRequests(devConn)
			client := NewClient(host)
			tel := idleTelemetry()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			_, err := client.RequestStatus(ctx)
			cancel()
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("expected the first request to time out, got %v", err)
			}
			waitRequest(t, reqs)

			late := append([]byte(nil), NewStatusEncoder().Encode(1, tel)...)
			if _, err := devConn.Write(late[:tt.early]); err != nil {
				t.Fatalf("write: %v", err)
			}
			waitBuffered(t, client, tt.early)

			answered := make(chan error, 1)
			go func() {
				<-reqs
				if _, err := devConn.Write(late[tt.early:]); err != nil {
					answered <- err
					return
				}
				_, err := devConn.Write(NewStatusEncoder().Encode(2, tel))
				answered <- err
			}()

			ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			st, err := client.RequestStatus(ctx)
			if err != nil {
				t.Fatalf("RequestStatus: %v", err)
			}
			if st.CommandID != 2 {
				t.Errorf("expected the answer to the second request, got command id %d", st.CommandID)
			}
			if err := <-answered; err != nil {
				t.Fatalf("device write: %v", err)
			}
		})
	}
}
