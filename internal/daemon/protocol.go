// Package daemon provides the client and protocol types for talking to a
// steno-compatible speech daemon over a Unix socket using NDJSON.
package daemon

// Command names understood by the daemon.
const (
	CmdStart     = "start"
	CmdStop      = "stop"
	CmdStatus    = "status"
	CmdDevices   = "devices"
	CmdSubscribe = "subscribe"
)

// Event names streamed to subscribers.
const (
	EventPartial = "partial"
	EventSegment = "segment"
	EventStatus  = "status"
	EventError   = "error"
)

// Command is sent from a client to the daemon.
type Command struct {
	Cmd     string   `json:"cmd"`
	Locale  string   `json:"locale,omitempty"`
	Device  string   `json:"device,omitempty"`
	Interim *bool    `json:"interim,omitempty"`
	Events  []string `json:"events,omitempty"`
}

// Response is returned by the daemon after processing a command.
type Response struct {
	OK        bool     `json:"ok"`
	SessionID string   `json:"sessionId,omitempty"`
	Recording *bool    `json:"recording,omitempty"`
	Devices   []string `json:"devices,omitempty"`
	Error     string   `json:"error,omitempty"`
	Status    string   `json:"status,omitempty"`
}

// Event is streamed from the daemon to subscribed clients.
type Event struct {
	Event          string `json:"event"`
	Text           string `json:"text,omitempty"`
	Source         string `json:"source,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	SequenceNumber *int   `json:"sequenceNumber,omitempty"`
	Message        string `json:"message,omitempty"`
	Transient      *bool  `json:"transient,omitempty"`
	Recording      *bool  `json:"recording,omitempty"`
}

// BoolPtr returns a pointer to a bool value. Convenience for building commands.
func BoolPtr(b bool) *bool { return &b }
