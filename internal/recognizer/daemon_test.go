package recognizer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwulff/voicenotes/internal/daemon"
	"github.com/jwulff/voicenotes/internal/transcript"
)

// mockDaemon answers commands on any number of connections. Subscribed
// connections are handed to the test so it can stream events.
type mockDaemon struct {
	path      string
	startResp daemon.Response
	evConns   chan net.Conn
	commands  chan daemon.Command
}

func startMockDaemon(t *testing.T, startResp daemon.Response) *mockDaemon {
	t.Helper()

	md := &mockDaemon{
		path:      filepath.Join(t.TempDir(), "steno.sock"),
		startResp: startResp,
		evConns:   make(chan net.Conn, 4),
		commands:  make(chan daemon.Command, 16),
	}
	ln, err := net.Listen("unix", md.path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go md.serve(conn)
		}
	}()
	return md
}

func (md *mockDaemon) serve(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var cmd daemon.Command
		json.Unmarshal(scanner.Bytes(), &cmd)
		md.commands <- cmd

		resp := daemon.Response{OK: true}
		if cmd.Cmd == daemon.CmdStart {
			resp = md.startResp
		}
		data, _ := json.Marshal(resp)
		conn.Write(append(data, '\n'))

		if cmd.Cmd == daemon.CmdSubscribe {
			md.evConns <- conn
			return
		}
	}
	conn.Close()
}

func send(t *testing.T, conn net.Conn, ev daemon.Event) {
	t.Helper()
	data, _ := json.Marshal(ev)
	if _, err := conn.Write(append(data, '\n')); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func next(t *testing.T, rec Recognizer) Event {
	t.Helper()
	select {
	case e, ok := <-rec.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func newDaemonRecognizer(t *testing.T, md *mockDaemon) Recognizer {
	t.Helper()
	rec, err := DaemonProvider{SocketPath: md.path}.New(DefaultOptions())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { rec.Close() })
	return rec
}

func TestDaemonSupported(t *testing.T) {
	p := DaemonProvider{SocketPath: filepath.Join(t.TempDir(), "missing.sock")}
	if err := p.Supported(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Supported() = %v, want ErrUnsupported", err)
	}

	md := startMockDaemon(t, daemon.Response{OK: true})
	if err := (DaemonProvider{SocketPath: md.path}).Supported(); err != nil {
		t.Errorf("Supported() = %v, want nil", err)
	}
}

func TestDaemonStartSendsLocaleAndSubscribes(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true, SessionID: "s1"})
	rec := newDaemonRecognizer(t, md)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	var sawSubscribe, sawStart bool
	for i := 0; i < 2; i++ {
		cmd := <-md.commands
		switch cmd.Cmd {
		case daemon.CmdSubscribe:
			sawSubscribe = true
		case daemon.CmdStart:
			sawStart = true
			if cmd.Locale != "en-US" {
				t.Errorf("locale = %q, want en-US", cmd.Locale)
			}
			if cmd.Interim == nil || !*cmd.Interim {
				t.Errorf("interim = %v, want true", cmd.Interim)
			}
		}
	}
	if !sawSubscribe || !sawStart {
		t.Errorf("subscribe=%v start=%v, want both", sawSubscribe, sawStart)
	}
}

func TestDaemonTranslatesPartialAndSegment(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec := newDaemonRecognizer(t, md)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := <-md.evConns

	send(t, conn, daemon.Event{Event: daemon.EventPartial, Text: "hel"})
	send(t, conn, daemon.Event{Event: daemon.EventPartial, Text: "hello wor"})
	send(t, conn, daemon.Event{Event: daemon.EventSegment, Text: "hello world"})
	send(t, conn, daemon.Event{Event: daemon.EventPartial, Text: "ne"})

	var buf transcript.Buffer
	wantIdx := []int{0, 0, 0, 1}
	wantDisplay := []string{"hel", "hello wor", "hello world ", "hello world ne"}
	for i := range wantIdx {
		e := next(t, rec)
		if e.Kind != EventResult {
			t.Fatalf("event %d kind = %v, want result", i, e.Kind)
		}
		if e.Window.ResultIndex != wantIdx[i] {
			t.Errorf("event %d index = %d, want %d", i, e.Window.ResultIndex, wantIdx[i])
		}
		buf.Apply(e.Window)
		if got := buf.Display(); got != wantDisplay[i] {
			t.Errorf("display after event %d = %q, want %q", i, got, wantDisplay[i])
		}
	}
}

func TestDaemonStatusFalseIsEnd(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec := newDaemonRecognizer(t, md)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := <-md.evConns

	send(t, conn, daemon.Event{Event: daemon.EventStatus, Recording: daemon.BoolPtr(true)})
	send(t, conn, daemon.Event{Event: daemon.EventStatus, Recording: daemon.BoolPtr(false)})

	if e := next(t, rec); e.Kind != EventEnd {
		t.Errorf("kind = %v, want end", e.Kind)
	}
}

func TestDaemonErrorClassification(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec := newDaemonRecognizer(t, md)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := <-md.evConns

	cases := []struct {
		msg  string
		want ErrorCode
	}{
		{"No speech detected", CodeNoSpeech},
		{"Microphone permission denied", CodeNotAllowed},
		{"Speech analyzer crashed", CodeDaemon},
	}
	for _, tc := range cases {
		send(t, conn, daemon.Event{Event: daemon.EventError, Message: tc.msg})
		e := next(t, rec)
		if e.Kind != EventError || e.Code != tc.want {
			t.Errorf("%q -> %v/%q, want error/%q", tc.msg, e.Kind, e.Code, tc.want)
		}
	}
}

func TestDaemonStartPermissionDenied(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: false, Error: "Microphone permission denied"})
	rec := newDaemonRecognizer(t, md)

	err := rec.Start(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("start = %v, want ErrPermissionDenied", err)
	}
}

func TestDaemonStreamLossEndsAndReconnects(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec := newDaemonRecognizer(t, md)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := <-md.evConns
	conn.Close()

	if e := next(t, rec); e.Kind != EventError || e.Code != CodeNetwork {
		t.Errorf("first event = %+v, want network error", e)
	}
	if e := next(t, rec); e.Kind != EventEnd {
		t.Errorf("second event = %+v, want end", e)
	}

	// Restart on the same handle dials fresh connections.
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	conn = <-md.evConns
	send(t, conn, daemon.Event{Event: daemon.EventSegment, Text: "back"})
	if e := next(t, rec); e.Kind != EventResult || e.Window.Results[e.Window.ResultIndex].Text != "back" {
		t.Errorf("event after reconnect = %+v", e)
	}
}

func TestDaemonCloseClosesEvents(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec, err := DaemonProvider{SocketPath: md.path}.New(DefaultOptions())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	rec.Close()
	select {
	case _, ok := <-rec.Events():
		if ok {
			t.Error("unexpected event after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed")
	}
	if err := rec.Start(context.Background()); err == nil {
		t.Error("start after close should fail")
	}
}

func TestDaemonStopWithoutStart(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec := newDaemonRecognizer(t, md)
	if err := rec.Stop(context.Background()); err != nil {
		t.Errorf("stop before start = %v, want nil", err)
	}
}

func TestDaemonSkipsMalformedEvent(t *testing.T) {
	md := startMockDaemon(t, daemon.Response{OK: true})
	rec := newDaemonRecognizer(t, md)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	conn := <-md.evConns

	if _, err := conn.Write([]byte("{\"event\":\"segment\",\"text\":\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, conn, daemon.Event{Event: daemon.EventSegment, Text: "intact"})

	e := next(t, rec)
	if e.Kind != EventResult || e.Window.Results[e.Window.ResultIndex].Text != "intact" {
		t.Errorf("event after bad line = %+v, want result for %q", e, "intact")
	}
}
