package daemon

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// TestLiveDaemonStartStop drives a running daemon through start, stream and
// stop on separate command and event connections.
// Skipped if the daemon socket doesn't exist.
func TestLiveDaemonStartStop(t *testing.T) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("daemon not running")
	}
	ctx := context.Background()

	cmdClient, err := Dial(ctx, sockPath)
	if err != nil {
		t.Fatalf("dial cmd: %v", err)
	}
	defer cmdClient.Close()

	evClient, err := Dial(ctx, sockPath)
	if err != nil {
		t.Fatalf("dial ev: %v", err)
	}
	defer evClient.Close()

	resp, err := evClient.Do(ctx, Command{Cmd: CmdSubscribe})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !resp.OK {
		t.Fatalf("subscribe failed: %s", resp.Error)
	}

	resp, err = cmdClient.Do(ctx, Command{Cmd: CmdStart, Locale: "en-US", Interim: BoolPtr(true)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !resp.OK {
		t.Fatalf("start failed: %s", resp.Error)
	}
	fmt.Printf("Started: sessionId=%s\n", resp.SessionID)

	counts := map[string]int{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.After(3 * time.Second)
		for {
			select {
			case <-deadline:
				return
			default:
			}
			ev, err := evClient.ReadEvent()
			if err != nil {
				fmt.Printf("event read error: %v\n", err)
				return
			}
			counts[ev.Event]++
			if ev.Event == EventPartial || ev.Event == EventSegment {
				fmt.Printf("  %s: %q\n", ev.Event, ev.Text)
			}
		}
	}()
	<-done

	resp, err = cmdClient.Do(ctx, Command{Cmd: CmdStop})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !resp.OK {
		t.Fatalf("stop failed: %s", resp.Error)
	}

	fmt.Printf("Event counts: %v\n", counts)
}
