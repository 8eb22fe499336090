package app

import (
	"time"

	"github.com/jwulff/voicenotes/internal/db"
	"github.com/jwulff/voicenotes/internal/recognizer"
)

// ProbeResultMsg reports the mount-time capability and microphone checks.
type ProbeResultMsg struct {
	Err error
}

// RecognizerStartedMsg is sent once the recognizer confirmed (or refused) a start.
type RecognizerStartedMsg struct {
	Err error
}

// RecognizerRestartedMsg carries the outcome of a restart after an end event.
type RecognizerRestartedMsg struct {
	Err error
}

// RecognizerStoppedMsg carries the outcome of a stop request.
type RecognizerStoppedMsg struct {
	Err error
}

// RecognizerEventMsg wraps an event read from the recognizer.
type RecognizerEventMsg struct {
	Event recognizer.Event
}

// EventsClosedMsg is sent when the recognizer's event channel closes.
type EventsClosedMsg struct{}

// TimerTickMsg advances the elapsed-time display. Ticks whose ID is not the
// current timer generation are dropped.
type TimerTickMsg struct {
	ID   int
	Time time.Time
}

// ProcessingDoneMsg ends the processing phase for the given generation.
type ProcessingDoneMsg struct {
	ID int
}

// RestartTickMsg triggers another restart attempt after a backoff delay.
type RestartTickMsg struct {
	ID int
}

// ExportedMsg carries the result of writing the transcript file.
type ExportedMsg struct {
	Path    string
	Output  string // open command output
	Err     error
	OpenErr error
}

// ArchivedMsg carries the result of saving a finished session.
type ArchivedMsg struct {
	Transcript db.Transcript
	Err        error
}

type storeOpenedMsg struct {
	store *db.Store
	err   error
}
