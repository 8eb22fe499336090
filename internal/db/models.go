// Package db provides SQLite storage for archived transcripts.
package db

import "time"

// Transcript is a finished recording session.
type Transcript struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Duration  time.Duration `json:"-"`
	Language  string        `json:"language"`
	CreatedAt time.Time     `json:"created_at"`
}

// DurationSeconds is Duration rounded down to whole seconds.
func (t Transcript) DurationSeconds() int {
	return int(t.Duration / time.Second)
}

// Page is one page of transcripts, newest first.
type Page struct {
	Transcripts []Transcript `json:"transcripts"`
	Page        int          `json:"page"`
	Limit       int          `json:"limit"`
	Total       int          `json:"total"`
	Pages       int          `json:"pages"`
}
