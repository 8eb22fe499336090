// Package recognizer abstracts the host speech-recognition capability.
//
// A Provider reports whether the capability exists and builds handles. A
// Recognizer handle is started and stopped any number of times and delivers
// result, error and end events on a single channel for its whole lifetime.
package recognizer

import (
	"context"
	"errors"
	"strings"

	"github.com/jwulff/voicenotes/internal/transcript"
)

var (
	// ErrUnsupported means the host has no speech-recognition capability.
	ErrUnsupported = errors.New("speech recognition is not supported")
	// ErrPermissionDenied means the microphone or service refused access.
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// Options configures a recognition handle.
type Options struct {
	Locale         string
	Continuous     bool
	InterimResults bool
}

// DefaultOptions returns continuous English recognition with interim results.
func DefaultOptions() Options {
	return Options{Locale: "en-US", Continuous: true, InterimResults: true}
}

// EventKind discriminates Event.
type EventKind int

const (
	EventResult EventKind = iota
	EventError
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventEnd:
		return "end"
	}
	return "unknown"
}

// ErrorCode names a recognition failure. Values follow the browser speech API.
type ErrorCode string

const (
	CodeNoSpeech             ErrorCode = "no-speech"
	CodeAborted              ErrorCode = "aborted"
	CodeAudioCapture         ErrorCode = "audio-capture"
	CodeNetwork              ErrorCode = "network"
	CodeNotAllowed           ErrorCode = "not-allowed"
	CodeServiceNotAllowed    ErrorCode = "service-not-allowed"
	CodeLanguageNotSupported ErrorCode = "language-not-supported"
	CodeDaemon               ErrorCode = "daemon"
)

// PermissionDenied reports whether the code means access was refused.
func (c ErrorCode) PermissionDenied() bool {
	return c == CodeNotAllowed || c == CodeServiceNotAllowed
}

// Event is delivered by a Recognizer.
type Event struct {
	Kind    EventKind
	Window  transcript.Window // EventResult
	Code    ErrorCode         // EventError
	Message string            // EventError, optional detail
}

// ResultEvent builds an EventResult.
func ResultEvent(index int, results ...transcript.Result) Event {
	return Event{Kind: EventResult, Window: transcript.Window{ResultIndex: index, Results: results}}
}

// ErrorEvent builds an EventError.
func ErrorEvent(code ErrorCode, msg string) Event {
	return Event{Kind: EventError, Code: code, Message: msg}
}

// EndEvent builds an EventEnd.
func EndEvent() Event {
	return Event{Kind: EventEnd}
}

// Recognizer is one recognition handle.
type Recognizer interface {
	// Start begins listening. It returns only after the provider confirmed.
	Start(ctx context.Context) error
	// Stop asks the provider to stop. Teardown completes asynchronously and
	// is signalled by an EventEnd.
	Stop(ctx context.Context) error
	// Events is closed by Close and never before.
	Events() <-chan Event
	Close() error
}

// Provider constructs handles for a recognition backend.
type Provider interface {
	// Supported returns ErrUnsupported (possibly wrapped) when the backend
	// is unavailable on this host.
	Supported() error
	// New builds a handle without starting it.
	New(opts Options) (Recognizer, error)
}

// classifyMessage maps free-form provider error text onto an ErrorCode.
func classifyMessage(msg string) ErrorCode {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "permission"), strings.Contains(lower, "not authorized"),
		strings.Contains(lower, "not allowed"):
		return CodeNotAllowed
	case strings.Contains(lower, "no speech"):
		return CodeNoSpeech
	case strings.Contains(lower, "locale"), strings.Contains(lower, "language"):
		return CodeLanguageNotSupported
	}
	return CodeDaemon
}
