// Package chat holds the typed-message panel state.
package chat

import "strings"

// Role identifies who authored a message.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Message is an immutable entry in the log.
type Message struct {
	Role Role
	Text string
}

// Personas offered by the header droplist.
var Personas = []string{"Droplist", "Gen A", "Gen Z", "Millennial", "Professional"}

// Panel is the input field plus the append-only message log.
type Panel struct {
	Input    string
	messages []Message
}

// Messages returns the log in insertion order.
func (p Panel) Messages() []Message {
	return p.messages
}

// Type appends r to the input field.
func (p *Panel) Type(r ...rune) {
	p.Input += string(r)
}

// Backspace removes the last rune from the input field.
func (p *Panel) Backspace() {
	if p.Input == "" {
		return
	}
	runes := []rune(p.Input)
	p.Input = string(runes[:len(runes)-1])
}

// Send appends the input as a user message and clears it. Blank input is
// left untouched and nothing is appended.
func (p *Panel) Send() bool {
	if strings.TrimSpace(p.Input) == "" {
		return false
	}
	// Copy so earlier model values never share a backing array with later ones.
	next := make([]Message, len(p.messages), len(p.messages)+1)
	copy(next, p.messages)
	p.messages = append(next, Message{Role: RoleUser, Text: p.Input})
	p.Input = ""
	return true
}

// NextPersona returns the persona after current, wrapping around.
func NextPersona(current string) string {
	for i, name := range Personas {
		if name == current {
			return Personas[(i+1)%len(Personas)]
		}
	}
	return Personas[0]
}
