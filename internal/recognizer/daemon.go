package recognizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jwulff/voicenotes/internal/daemon"
	"github.com/jwulff/voicenotes/internal/transcript"
)

const eventBuffer = 64

// DaemonProvider recognizes speech through a steno-compatible daemon.
type DaemonProvider struct {
	SocketPath string
}

// Supported checks that the daemon socket exists.
func (p DaemonProvider) Supported() error {
	if _, err := os.Stat(p.SocketPath); err != nil {
		return fmt.Errorf("%w: no speech daemon at %s", ErrUnsupported, p.SocketPath)
	}
	return nil
}

// New returns an unconnected handle. The first Start dials the daemon.
func (p DaemonProvider) New(opts Options) (Recognizer, error) {
	if p.SocketPath == "" {
		return nil, fmt.Errorf("%w: daemon socket path not set", ErrUnsupported)
	}
	return &daemonRecognizer{
		socketPath: p.SocketPath,
		opts:       opts,
		events:     make(chan Event, eventBuffer),
		done:       make(chan struct{}),
	}, nil
}

// daemonRecognizer uses one connection for commands and one for the
// subscribed event stream, as the daemon requires.
type daemonRecognizer struct {
	socketPath string
	opts       Options

	mu      sync.Mutex
	cmd     *daemon.Client
	ev      *daemon.Client
	results []transcript.Result

	events    chan Event
	done      chan struct{}
	readers   sync.WaitGroup
	closeOnce sync.Once
}

func (r *daemonRecognizer) Events() <-chan Event { return r.events }

func (r *daemonRecognizer) Start(ctx context.Context) error {
	select {
	case <-r.done:
		return errors.New("recognizer closed")
	default:
	}

	cmd, err := r.connect(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.results = nil
	r.mu.Unlock()

	resp, err := cmd.Do(ctx, daemon.Command{
		Cmd:     daemon.CmdStart,
		Locale:  r.opts.Locale,
		Interim: daemon.BoolPtr(r.opts.InterimResults),
	})
	if err != nil {
		r.disconnect()
		return fmt.Errorf("start recognition: %w", err)
	}
	if !resp.OK {
		if classifyMessage(resp.Error).PermissionDenied() {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, resp.Error)
		}
		return fmt.Errorf("start recognition: %s", resp.Error)
	}
	return nil
}

func (r *daemonRecognizer) Stop(ctx context.Context) error {
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()
	if cmd == nil {
		return nil
	}

	resp, err := cmd.Do(ctx, daemon.Command{Cmd: daemon.CmdStop})
	if err != nil {
		return fmt.Errorf("stop recognition: %w", err)
	}
	if !resp.OK {
		return fmt.Errorf("stop recognition: %s", resp.Error)
	}
	return nil
}

func (r *daemonRecognizer) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.disconnect()
		r.readers.Wait()
		close(r.events)
	})
	return nil
}

// connect dials both connections and starts the event reader if they are
// not already open.
func (r *daemonRecognizer) connect(ctx context.Context) (*daemon.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return r.cmd, nil
	}

	cmd, err := daemon.Dial(ctx, r.socketPath)
	if err != nil {
		return nil, err
	}
	ev, err := daemon.Dial(ctx, r.socketPath)
	if err != nil {
		cmd.Close()
		return nil, err
	}

	resp, err := ev.Do(ctx, daemon.Command{
		Cmd:    daemon.CmdSubscribe,
		Events: []string{daemon.EventPartial, daemon.EventSegment, daemon.EventStatus, daemon.EventError},
	})
	if err == nil && !resp.OK {
		err = fmt.Errorf("subscribe: %s", resp.Error)
	}
	if err != nil {
		cmd.Close()
		ev.Close()
		return nil, err
	}

	r.cmd, r.ev = cmd, ev
	r.readers.Add(1)
	go r.readLoop(ev)
	return cmd, nil
}

func (r *daemonRecognizer) disconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		r.cmd.Close()
		r.cmd = nil
	}
	if r.ev != nil {
		r.ev.Close()
		r.ev = nil
	}
}

func (r *daemonRecognizer) readLoop(ev *daemon.Client) {
	defer r.readers.Done()
	for {
		e, err := ev.ReadEvent()
		if errors.Is(err, daemon.ErrMalformedEvent) {
			continue
		}
		if err != nil {
			select {
			case <-r.done:
				return
			default:
			}
			// Lost the stream; the next Start reconnects. A connection we
			// dropped ourselves is not reported.
			r.mu.Lock()
			current := r.ev == ev
			if current {
				r.cmd.Close()
				r.ev.Close()
				r.cmd, r.ev = nil, nil
			}
			r.mu.Unlock()
			if !current {
				return
			}
			r.emit(ErrorEvent(CodeNetwork, err.Error()))
			r.emit(EndEvent())
			return
		}
		if out, ok := r.translate(e); ok {
			r.emit(out)
		}
	}
}

// translate turns a daemon event into a recognizer event. Partial and
// segment events revise the trailing interim entry of the result list.
func (r *daemonRecognizer) translate(e daemon.Event) (Event, bool) {
	switch e.Event {
	case daemon.EventPartial, daemon.EventSegment:
		r.mu.Lock()
		defer r.mu.Unlock()

		res := transcript.Result{Text: e.Text, Final: e.Event == daemon.EventSegment}
		idx := len(r.results)
		if idx > 0 && !r.results[idx-1].Final {
			idx--
			r.results[idx] = res
		} else {
			r.results = append(r.results, res)
		}
		snapshot := make([]transcript.Result, len(r.results))
		copy(snapshot, r.results)
		return ResultEvent(idx, snapshot...), true

	case daemon.EventStatus:
		if e.Recording != nil && !*e.Recording {
			return EndEvent(), true
		}

	case daemon.EventError:
		return ErrorEvent(classifyMessage(e.Message), e.Message), true
	}
	return Event{}, false
}

func (r *daemonRecognizer) emit(e Event) {
	select {
	case r.events <- e:
	case <-r.done:
	}
}
