package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// startMockDaemon creates a Unix socket that accepts one connection, reads
// one command per canned response, and replies in order. Received commands
// are sent on the returned channel.
func startMockDaemon(t *testing.T, responses ...Response) (string, <-chan Command) {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	received := make(chan Command, len(responses))
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for _, resp := range responses {
			if !scanner.Scan() {
				return
			}
			var cmd Command
			json.Unmarshal(scanner.Bytes(), &cmd)
			received <- cmd

			data, _ := json.Marshal(resp)
			conn.Write(append(data, '\n'))
		}
	}()

	return sockPath, received
}

func TestClientDo(t *testing.T) {
	recording := true
	sockPath, received := startMockDaemon(t, Response{
		OK:        true,
		SessionID: "sess-1",
		Recording: &recording,
	})

	client, err := Dial(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	got, err := client.Do(context.Background(), Command{Cmd: CmdStart, Locale: "en-US", Interim: BoolPtr(true)})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !got.OK {
		t.Error("ok = false, want true")
	}
	if got.SessionID != "sess-1" {
		t.Errorf("sessionId = %q, want %q", got.SessionID, "sess-1")
	}

	cmd := <-received
	if cmd.Cmd != CmdStart || cmd.Locale != "en-US" {
		t.Errorf("daemon received %+v", cmd)
	}
	if cmd.Interim == nil || !*cmd.Interim {
		t.Errorf("interim = %v, want true", cmd.Interim)
	}
}

func TestClientDoSequential(t *testing.T) {
	sockPath, received := startMockDaemon(t,
		Response{OK: true, Status: "idle"},
		Response{OK: true, Devices: []string{"Mic A", "Mic B"}},
	)

	client, err := Dial(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	status, err := client.Do(context.Background(), Command{Cmd: CmdStatus})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Status != "idle" {
		t.Errorf("status = %q", status.Status)
	}

	devices, err := client.Do(context.Background(), Command{Cmd: CmdDevices})
	if err != nil {
		t.Fatalf("devices: %v", err)
	}
	if len(devices.Devices) != 2 {
		t.Errorf("devices = %v", devices.Devices)
	}

	if c := <-received; c.Cmd != CmdStatus {
		t.Errorf("first command = %q", c.Cmd)
	}
	if c := <-received; c.Cmd != CmdDevices {
		t.Errorf("second command = %q", c.Cmd)
	}
}

func TestClientDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "/nonexistent/path/steno.sock")
	if err == nil {
		t.Error("expected error connecting to nonexistent socket")
	}
}

func TestClientDoDeadline(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "silent.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	// Accept but never answer.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second)
	}()

	client, err := Dial(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := client.Do(ctx, Command{Cmd: CmdStatus}); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Do took %v, deadline not applied", elapsed)
	}
}

// startMockEventStream creates a daemon that answers subscribe and then
// streams events before closing the connection.
func startMockEventStream(t *testing.T, events []Event) string {
	t.Helper()

	sockPath := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Read subscribe command
		bufio.NewReader(conn).ReadString('\n')

		resp, _ := json.Marshal(Response{OK: true})
		conn.Write(append(resp, '\n'))

		for _, ev := range events {
			data, _ := json.Marshal(ev)
			conn.Write(append(data, '\n'))
		}
	}()

	return sockPath
}

func TestClientReadEvents(t *testing.T) {
	seq := 3
	events := []Event{
		{Event: EventPartial, Text: "hel"},
		{Event: EventSegment, Text: "hello", SequenceNumber: &seq},
	}
	sockPath := startMockEventStream(t, events)

	client, err := Dial(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.Do(context.Background(), Command{Cmd: CmdSubscribe}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ev1, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 1: %v", err)
	}
	if ev1.Event != EventPartial || ev1.Text != "hel" {
		t.Errorf("event1 = %+v", ev1)
	}

	ev2, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read event 2: %v", err)
	}
	if ev2.Event != EventSegment || ev2.SequenceNumber == nil || *ev2.SequenceNumber != 3 {
		t.Errorf("event2 = %+v", ev2)
	}

	// Stream ends when the daemon hangs up.
	if _, err := client.ReadEvent(); !errors.Is(err, ErrClosed) {
		t.Errorf("read after hangup = %v, want ErrClosed", err)
	}
}

func TestClientReadEventSkipsMalformedLine(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "test.sock")
	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("{not json\n"))
		data, _ := json.Marshal(Event{Event: EventSegment, Text: "still here"})
		conn.Write(append(data, '\n'))
	}()

	client, err := Dial(context.Background(), sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if _, err := client.ReadEvent(); !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("read malformed = %v, want ErrMalformedEvent", err)
	}
	ev, err := client.ReadEvent()
	if err != nil {
		t.Fatalf("read after malformed line: %v", err)
	}
	if ev.Text != "still here" {
		t.Errorf("event = %+v", ev)
	}
}
