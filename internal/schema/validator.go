// Package schema validates event payloads before they are published.
package schema

import (
	"errors"
	"fmt"

	"clinical-scribe/internal/models"
)

// Errors for payloads that must never reach the bus.
var (
	ErrMissingSessionID = errors.New("event missing sessionId")
	ErrMissingEventType = errors.New("event missing eventType")
	ErrEmptyText        = errors.New("transcript event carries no text")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the typed scribe payloads. Unknown payload types pass
// through; the publisher is also used with ad-hoc test events.
func (v *Validator) Validate(event any) error {
	switch e := event.(type) {
	case models.TranscriptInterim:
		return checkTranscript(e.EventType, e.SessionID, e.Text)
	case models.TranscriptFinal:
		return checkTranscript(e.EventType, e.SessionID, e.Text)
	case models.NoteCreated:
		if e.EventType == "" {
			return ErrMissingEventType
		}
		if e.SessionID == "" {
			return ErrMissingSessionID
		}
		if e.Transcript == "" {
			return fmt.Errorf("note for session %s has no source transcript", e.SessionID)
		}
		return nil
	default:
		return nil
	}
}

func checkTranscript(eventType, sessionID, text string) error {
	if eventType == "" {
		return ErrMissingEventType
	}
	if sessionID == "" {
		return ErrMissingSessionID
	}
	if text == "" {
		return ErrEmptyText
	}
	return nil
}
