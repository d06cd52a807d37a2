// Package models defines the data structures for published scribe events.
package models

// TranscriptInterim represents the current provisional transcript of a
// session. Each event fully supersedes the previous interim for the session.
type TranscriptInterim struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// TranscriptFinal represents text newly appended to a session's final
// transcript.
type TranscriptFinal struct {
	EventType string `json:"eventType"`
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	Text      string `json:"text"`
}

// NoteCreated represents a clinical note extracted from a session's final
// transcript.
type NoteCreated struct {
	EventType   string   `json:"eventType"`
	SessionID   string   `json:"sessionId"`
	Timestamp   int64    `json:"timestamp"`
	Transcript  string   `json:"transcript"`
	Symptoms    []string `json:"symptoms"`
	History     []string `json:"history"`
	Assessment  []string `json:"assessment"`
	Medications []string `json:"medications"`
	Plan        []string `json:"plan"`
}
