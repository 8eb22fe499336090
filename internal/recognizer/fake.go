package recognizer

import (
	"context"
	"errors"
	"sync"
)

// Fake is a scripted Recognizer for driving the recording lifecycle in
// tests. Events are delivered only when the test calls Emit.
type Fake struct {
	mu        sync.Mutex
	startErrs []error
	stopErr   error
	starts    int
	stops     int
	closed    bool
	events    chan Event
}

// NewFake returns a Fake whose Start succeeds until FailStart is used.
func NewFake() *Fake {
	return &Fake{events: make(chan Event, eventBuffer)}
}

// FailStart queues errors returned by the next Start calls, in order.
func (f *Fake) FailStart(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErrs = append(f.startErrs, errs...)
}

// FailStop makes every Stop return err.
func (f *Fake) FailStop(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopErr = err
}

// Emit delivers e on the event channel.
func (f *Fake) Emit(e Event) {
	f.events <- e
}

// Starts returns the number of Start calls.
func (f *Fake) Starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// Stops returns the number of Stop calls.
func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("recognizer closed")
	}
	f.starts++
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		return err
	}
	return nil
}

func (f *Fake) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *Fake) Events() <-chan Event { return f.events }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

// FakeProvider hands out a single Fake.
type FakeProvider struct {
	Fake        *Fake
	Unsupported bool
	NewErr      error

	mu   sync.Mutex
	news int
	opts Options
}

func (p *FakeProvider) Supported() error {
	if p.Unsupported {
		return ErrUnsupported
	}
	return nil
}

func (p *FakeProvider) New(opts Options) (Recognizer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.news++
	p.opts = opts
	if p.NewErr != nil {
		return nil, p.NewErr
	}
	if p.Fake == nil {
		p.Fake = NewFake()
	}
	return p.Fake, nil
}

// LastOptions returns the options of the most recent New call.
func (p *FakeProvider) LastOptions() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

// News returns how many handles were constructed.
func (p *FakeProvider) News() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.news
}
