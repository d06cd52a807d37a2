// Package transcript accumulates a transcript from incremental speech
// recognition events. Engines deliver results in batches: earlier entries in a
// batch may supersede trailing entries of previous batches, and the event's
// StartIndex marks where the new entries begin.
package transcript

import "strings"

// Alternative is one candidate transcription for a result. Only the first
// (highest confidence) alternative of a result is used.
type Alternative struct {
	Text       string
	Confidence float64
}

// Result is one finalized-or-not utterance from the recognition engine.
type Result struct {
	Alternatives []Alternative
	IsFinal      bool
}

// Text returns the top alternative's text, or "" if the result carries no
// alternatives. Malformed results are empty text, not errors.
func (r Result) Text() string {
	if len(r.Alternatives) == 0 {
		return ""
	}
	return r.Alternatives[0].Text
}

// Event is an ordered batch of recognition results. Entries before StartIndex
// were already reported by a previous event and must be ignored.
type Event struct {
	Results    []Result
	StartIndex int
}

// State holds the accumulated transcript for one recognition session.
//
// Final grows monotonically as results are finalized and is never rewritten.
// Interim is fully replaced on every event; it reflects only the latest
// event's provisional content.
type State struct {
	Final   string
	Interim string
}

// Fold applies one recognition event to the state and returns the next state.
//
// Results from StartIndex onward are scanned in order; each non-empty trimmed
// top-alternative text joins either the final or the interim accumulator with
// a single space. Interim is replaced wholesale, so an event carrying only
// finalized results clears it. Whitespace-only texts never introduce a space.
func Fold(s State, ev Event) State {
	var finals, interims []string

	start := ev.StartIndex
	if start < 0 {
		start = 0
	}
	for i := start; i < len(ev.Results); i++ {
		text := strings.TrimSpace(ev.Results[i].Text())
		if text == "" {
			continue
		}
		if ev.Results[i].IsFinal {
			finals = append(finals, text)
		} else {
			interims = append(interims, text)
		}
	}

	next := State{
		Final:   s.Final,
		Interim: strings.Join(interims, " "),
	}

	if len(finals) > 0 {
		batch := strings.Join(finals, " ")
		if next.Final == "" {
			next.Final = batch
		} else {
			next.Final = strings.TrimSpace(next.Final + " " + batch)
		}
	}

	return next
}

// ClearInterim returns the state with the interim transcript dropped. Called
// when the session ends or is stopped; the final transcript is retained for
// consumption.
func (s State) ClearInterim() State {
	s.Interim = ""
	return s
}
