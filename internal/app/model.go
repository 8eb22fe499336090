package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jwulff/voicenotes/internal/chat"
	"github.com/jwulff/voicenotes/internal/config"
	"github.com/jwulff/voicenotes/internal/db"
	"github.com/jwulff/voicenotes/internal/mic"
	"github.com/jwulff/voicenotes/internal/recognizer"
	"github.com/jwulff/voicenotes/internal/transcript"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// Status is the recording lifecycle state.
type Status int

const (
	StatusReady Status = iota
	StatusRecording
	StatusProcessing
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRecording:
		return "recording"
	case StatusProcessing:
		return "processing"
	}
	return "unknown"
}

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusTranscript PanelFocus = iota
	FocusChat
)

// ErrorKind classifies the displayed error.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	// ErrUnsupported is persistent and disables recording controls.
	ErrUnsupported
	// ErrPermission is persistent until the next start attempt.
	ErrPermission
	// ErrTransient is cleared by the next result or user action.
	ErrTransient
	// ErrStart is shown until the next user action.
	ErrStart
)

// User-facing error messages.
const (
	msgUnsupported         = "Speech recognition is not supported here. Start a steno-compatible daemon to record."
	msgPermission          = "Microphone access was denied. Allow microphone access and try again."
	msgStartFailed         = "Failed to start recording. Please try again."
	msgStoppedUnexpectedly = "Speech recognition stopped unexpectedly. Recording has been stopped."
	msgRecognitionErrorFmt = "Speech recognition error: %s"
	msgExportFailedFmt     = "Export failed: %v"
)

const (
	commandTimeout         = 5 * time.Second
	probeTimeout           = 5 * time.Second
	maxRestartBackoffShift = 4
	// restartSettleTime is how long a restarted session must run before
	// its restart stops counting as a failure.
	restartSettleTime = time.Second
)

// Model is the root bubbletea model for the voicenotes TUI.
type Model struct {
	// Dependencies
	provider recognizer.Provider
	cfg      *config.Config
	log      *logrus.Logger
	now      func() time.Time
	probe    func(context.Context) error

	// Recognizer handle, built lazily and reused across restarts
	rec        recognizer.Recognizer
	reading    bool
	supported  bool
	starting   bool
	restarting bool

	// Recording state
	status          Status
	buf             transcript.Buffer
	startedAt       time.Time
	elapsed         time.Duration
	timerID         int
	restartFailures int
	restartUnproven bool
	restartedAt     time.Time

	// Chat
	chat    chat.Panel
	persona string

	// UI state
	focus            PanelFocus
	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool

	// Errors
	errorMessage string
	errorKind    ErrorKind

	// Status
	statusText string

	// DB
	store *db.Store
}

// New creates a Model in the ready state. Recording stays disabled until
// the mount-time probe reports the recognizer is supported.
func New(provider recognizer.Provider, cfg *config.Config, log *logrus.Logger) Model {
	persona := cfg.Chat.Persona
	if persona == "" {
		persona = chat.Personas[0]
	}
	return Model{
		provider:       provider,
		cfg:            cfg,
		log:            log,
		now:            time.Now,
		probe:          mic.Probe,
		persona:        persona,
		focus:          FocusTranscript,
		transcriptLive: true,
		statusText:     "Checking speech recognition...",
	}
}

// Status returns the current lifecycle state.
func (m Model) Status() Status { return m.status }

// Transcript returns the finalized and displayed transcript text.
func (m Model) Transcript() (final, display string) {
	return m.buf.Final, m.buf.Display()
}

// Init probes the recognizer and microphone and opens the archive.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{probeCmd(m.provider, m.probe)}
	if m.cfg.Archive.Enabled {
		cmds = append(cmds, openStoreCmd(m.cfg.Archive.DBPath))
	}
	return tea.Batch(cmds...)
}

// probeCmd checks recognizer support, then opens and releases the microphone.
func probeCmd(provider recognizer.Provider, probe func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := provider.Supported(); err != nil {
			return ProbeResultMsg{Err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()
		if err := probe(ctx); err != nil {
			return ProbeResultMsg{Err: fmt.Errorf("%w: %v", recognizer.ErrPermissionDenied, err)}
		}
		return ProbeResultMsg{}
	}
}

// startRecognizerCmd starts the handle and reports once it is confirmed.
func startRecognizerCmd(rec recognizer.Recognizer) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return RecognizerStartedMsg{Err: rec.Start(ctx)}
	}
}

// restartCmd starts the same handle again after an unexpected end.
func restartCmd(rec recognizer.Recognizer) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return RecognizerRestartedMsg{Err: rec.Start(ctx)}
	}
}

// stopRecognizerCmd asks the handle to stop. The end event follows later.
func stopRecognizerCmd(rec recognizer.Recognizer) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return RecognizerStoppedMsg{Err: rec.Stop(ctx)}
	}
}

// listenCmd reads the next recognizer event.
func listenCmd(rec recognizer.Recognizer) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-rec.Events()
		if !ok {
			return EventsClosedMsg{}
		}
		return RecognizerEventMsg{Event: ev}
	}
}

// tickCmd schedules the next elapsed-time update for timer generation id.
func tickCmd(id int) tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TimerTickMsg{ID: id, Time: t}
	})
}

// processingDoneCmd ends the processing phase after delay.
func processingDoneCmd(id int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ProcessingDoneMsg{ID: id}
	})
}

// restartBackoff returns 1s, 2s, 4s ... for consecutive failures, capped at 16s.
func restartBackoff(failures int) time.Duration {
	shift := min(max(failures-1, 0), maxRestartBackoffShift)
	return time.Duration(1<<shift) * time.Second
}

// restartTickCmd schedules a restart attempt with exponential backoff.
func restartTickCmd(id, failures int) tea.Cmd {
	return tea.Tick(restartBackoff(failures), func(time.Time) tea.Msg {
		return RestartTickMsg{ID: id}
	})
}

// openStoreCmd opens the SQLite archive.
func openStoreCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return storeOpenedMsg{err: err}
		}
		store, err := db.Open(path)
		if err != nil {
			return storeOpenedMsg{err: err}
		}
		return storeOpenedMsg{store: store}
	}
}

// archiveCmd saves a finished session.
func archiveCmd(store *db.Store, t db.Transcript) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		saved, err := store.SaveTranscript(ctx, t)
		return ArchivedMsg{Transcript: saved, Err: err}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ProbeResultMsg:
		switch {
		case errors.Is(msg.Err, recognizer.ErrUnsupported):
			m.supported = false
			m.setError(ErrUnsupported, msgUnsupported)
			m.statusText = "Recording unavailable"
			m.log.WithError(msg.Err).Warn("speech recognition unsupported")
		case msg.Err != nil:
			m.supported = true
			m.setError(ErrPermission, msgPermission)
			m.statusText = "Ready"
			m.log.WithError(msg.Err).Warn("microphone probe failed")
		default:
			m.supported = true
			m.statusText = "Ready"
		}
		return m, nil

	case RecognizerStartedMsg:
		m.starting = false
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("start recognition")
			if errors.Is(msg.Err, recognizer.ErrPermissionDenied) {
				m.setError(ErrPermission, msgPermission)
			} else {
				m.setError(ErrStart, msgStartFailed)
			}
			return m, nil
		}
		m.status = StatusRecording
		m.restartFailures = 0
		m.restartUnproven = false
		m.startedAt = m.now()
		m.timerID++
		m.statusText = "Recording"
		cmds := []tea.Cmd{tickCmd(m.timerID)}
		if !m.reading {
			m.reading = true
			cmds = append(cmds, listenCmd(m.rec))
		}
		return m, tea.Batch(cmds...)

	case RecognizerRestartedMsg:
		m.restarting = false
		if m.status != StatusRecording {
			// Stopped while the restart was in flight.
			if msg.Err == nil && m.rec != nil {
				return m, stopRecognizerCmd(m.rec)
			}
			return m, nil
		}
		if msg.Err == nil {
			// Failures reset once the new session delivers a result or
			// survives restartSettleTime.
			m.restartUnproven = true
			m.restartedAt = m.now()
			m.log.Debug("recognition restarted")
			return m, nil
		}
		m.log.WithError(msg.Err).Warn("restart recognition")
		return m, m.restartFailed()

	case RestartTickMsg:
		if msg.ID != m.timerID || m.status != StatusRecording || m.rec == nil {
			m.restarting = false
			return m, nil
		}
		return m, restartCmd(m.rec)

	case RecognizerStoppedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("stop recognition")
		}
		return m, nil

	case RecognizerEventMsg:
		cmd := m.handleEvent(msg.Event)
		if m.rec == nil {
			return m, cmd
		}
		// Continue reading events
		return m, tea.Batch(cmd, listenCmd(m.rec))

	case EventsClosedMsg:
		m.reading = false
		return m, nil

	case TimerTickMsg:
		if msg.ID != m.timerID || m.status != StatusRecording {
			return m, nil
		}
		m.elapsed = msg.Time.Sub(m.startedAt)
		if m.restartUnproven && msg.Time.Sub(m.restartedAt) >= restartSettleTime {
			m.restartSettled()
		}
		return m, tickCmd(m.timerID)

	case ProcessingDoneMsg:
		if msg.ID != m.timerID || m.status != StatusProcessing {
			return m, nil
		}
		m.status = StatusReady
		m.statusText = "Ready"
		if m.shouldArchive() {
			return m, archiveCmd(m.store, m.sessionTranscript())
		}
		return m, nil

	case ArchivedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("archive transcript")
			return m, nil
		}
		m.log.WithField("id", msg.Transcript.ID).Info("transcript archived")
		m.statusText = "Saved to archive"
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("export transcript")
			m.setError(ErrTransient, fmt.Sprintf(msgExportFailedFmt, msg.Err))
			return m, nil
		}
		if msg.Output != "" {
			m.log.Infof("open command output: %s", msg.Output)
		}
		if msg.OpenErr != nil {
			m.log.WithError(msg.OpenErr).Warn("open exported transcript")
		}
		m.statusText = "Exported to " + msg.Path
		return m, nil

	case storeOpenedMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("open archive")
			return m, nil
		}
		m.store = msg.store
		return m, nil
	}

	return m, nil
}

// handleEvent applies a recognizer event and returns any resulting command.
func (m *Model) handleEvent(ev recognizer.Event) tea.Cmd {
	switch ev.Kind {
	case recognizer.EventResult:
		if m.status == StatusReady {
			return nil
		}
		m.buf.Apply(ev.Window)
		if m.restartUnproven {
			m.restartSettled()
		}
		if m.errorKind == ErrTransient {
			m.clearError()
		}
		if m.transcriptLive {
			m.scrollToBottom()
		}

	case recognizer.EventError:
		switch {
		case ev.Code == recognizer.CodeNoSpeech:
			m.log.Debug("no speech detected")
		case ev.Code.PermissionDenied():
			m.log.WithField("code", ev.Code).Warn("recognition permission denied")
			m.setError(ErrPermission, msgPermission)
			return m.stopRecording()
		default:
			m.log.WithFields(logrus.Fields{"code": ev.Code, "message": ev.Message}).Warn("recognition error")
			m.setError(ErrTransient, fmt.Sprintf(msgRecognitionErrorFmt, ev.Code))
		}

	case recognizer.EventEnd:
		if m.status != StatusRecording || m.restarting || m.rec == nil {
			return nil
		}
		m.buf.Interim = ""
		if m.restartUnproven {
			// Ended again before producing anything.
			m.restartUnproven = false
			m.log.Warn("recognition ended right after restart")
			return m.restartFailed()
		}
		// The provider gave up on its own; keep listening.
		m.restarting = true
		return restartCmd(m.rec)
	}
	return nil
}

// restartFailed counts a failed restart. Recording stops once the limit
// is reached, otherwise another attempt is scheduled with backoff.
func (m *Model) restartFailed() tea.Cmd {
	m.restartFailures++
	m.log.WithField("failures", m.restartFailures).Debug("restart failure")
	if m.restartFailures >= m.cfg.Recording.MaxRestartFailures {
		cmd := m.stopRecording()
		m.setError(ErrStart, msgStoppedUnexpectedly)
		return cmd
	}
	m.restarting = true
	return restartTickCmd(m.timerID, m.restartFailures)
}

func (m *Model) restartSettled() {
	m.restartUnproven = false
	m.restartFailures = 0
}

// startRecording begins a new session. Status changes only once the
// recognizer confirms.
func (m *Model) startRecording() tea.Cmd {
	if m.status != StatusReady || !m.supported || m.starting {
		return nil
	}
	m.buf.Reset()
	m.elapsed = 0
	m.errorMessage, m.errorKind = "", ErrNone

	if m.rec == nil {
		opts := recognizer.DefaultOptions()
		if m.cfg.Recognizer.Locale != "" {
			opts.Locale = m.cfg.Recognizer.Locale
		}
		rec, err := m.provider.New(opts)
		if err != nil {
			m.log.WithError(err).Warn("create recognizer")
			m.setError(ErrStart, msgStartFailed)
			return nil
		}
		m.rec = rec
	}
	m.starting = true
	m.statusText = "Starting..."
	return startRecognizerCmd(m.rec)
}

// stopRecording moves to processing and cancels the timer.
func (m *Model) stopRecording() tea.Cmd {
	if m.status != StatusRecording {
		return nil
	}
	m.status = StatusProcessing
	m.statusText = "Processing..."
	m.elapsed = m.now().Sub(m.startedAt)
	m.timerID++
	m.restarting = false
	m.restartUnproven = false

	cmds := []tea.Cmd{processingDoneCmd(m.timerID, m.cfg.ProcessingDelay())}
	if m.rec != nil {
		cmds = append(cmds, stopRecognizerCmd(m.rec))
	}
	return tea.Batch(cmds...)
}

// clearTranscript empties the transcript and the timer display.
func (m *Model) clearTranscript() {
	m.buf.Reset()
	m.elapsed = 0
	m.transcriptScroll = 0
	m.transcriptLive = true
}

// exportTranscript writes the finalized transcript to the export directory.
func (m *Model) exportTranscript() tea.Cmd {
	if !m.buf.Exportable() {
		return nil
	}
	return exportCmd(m.cfg.Export.Dir, m.buf.Final, m.now(), m.cfg.Export.OpenCommand)
}

// shouldArchive reports whether the current session belongs in the archive.
func (m *Model) shouldArchive() bool {
	return m.cfg.Archive.Enabled && m.store != nil && m.buf.Exportable()
}

func (m *Model) sessionTranscript() db.Transcript {
	return db.Transcript{
		Text:      m.buf.Final,
		Duration:  m.elapsed,
		Language:  m.cfg.Recognizer.Locale,
		CreatedAt: m.startedAt,
	}
}

// shutdown cancels the timer and releases the recognizer and store. A
// session still recording or processing is archived before the store
// closes; a ready session was archived when it finished.
func (m *Model) shutdown() {
	m.timerID++
	if m.status == StatusRecording {
		m.elapsed = m.now().Sub(m.startedAt)
	}
	if m.status != StatusReady && m.shouldArchive() {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		t, err := m.store.SaveTranscript(ctx, m.sessionTranscript())
		cancel()
		if err != nil {
			m.log.WithError(err).Warn("archive transcript on quit")
		} else {
			m.log.WithField("id", t.ID).Info("transcript archived on quit")
		}
	}
	if m.rec != nil {
		if m.status == StatusRecording {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := m.rec.Stop(ctx); err != nil {
				m.log.WithError(err).Warn("stop recognition on quit")
			}
			cancel()
		}
		m.rec.Close()
		m.rec = nil
	}
	if m.store != nil {
		m.store.Close()
		m.store = nil
	}
}

func (m *Model) setError(kind ErrorKind, msg string) {
	m.errorKind = kind
	m.errorMessage = msg
}

// clearError drops errors that a user action supersedes. Unsupported and
// permission errors stay.
func (m *Model) clearError() {
	if m.errorKind == ErrTransient || m.errorKind == ErrStart {
		m.errorKind = ErrNone
		m.errorMessage = ""
	}
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == KeyCtrlC {
		m.shutdown()
		return m, tea.Quit
	}
	if key == KeyTab {
		if m.focus == FocusChat {
			m.focus = FocusTranscript
		} else {
			m.focus = FocusChat
		}
		return m, nil
	}
	if m.focus == FocusChat {
		return m.handleChatKey(msg)
	}

	switch key {
	case KeyQuit, KeyQuitUpper:
		m.shutdown()
		return m, tea.Quit

	case KeySpace:
		switch m.status {
		case StatusReady:
			return m, m.startRecording()
		case StatusRecording:
			return m, m.stopRecording()
		}
		return m, nil

	case KeyClear:
		m.clearError()
		m.clearTranscript()
		return m, nil

	case KeyExport:
		if !m.buf.Exportable() {
			return m, nil
		}
		m.clearError()
		return m, m.exportTranscript()

	case KeyPersona:
		m.persona = chat.NextPersona(m.persona)
		return m, nil

	case KeyUp:
		m.transcriptLive = false
		if m.transcriptScroll > 0 {
			m.transcriptScroll--
		}
		return m, nil

	case KeyDown:
		maxScroll := m.maxTranscriptScroll()
		m.transcriptScroll++
		if m.transcriptScroll >= maxScroll {
			m.transcriptScroll = maxScroll
			m.transcriptLive = true
		}
		return m, nil
	}

	return m, nil
}

// handleChatKey edits and sends the chat input.
func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyEsc:
		m.focus = FocusTranscript
	case KeyEnter:
		m.clearError()
		m.chat.Send()
	case KeyBackspace:
		m.chat.Backspace()
	case KeySpace:
		m.chat.Type(' ')
	default:
		if msg.Type == tea.KeyRunes {
			m.chat.Type(msg.Runes...)
		}
	}
	return m, nil
}
