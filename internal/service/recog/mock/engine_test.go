package mock

import (
	"testing"
	"time"

	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/transcript"
)

// collect runs the engine to completion and returns every emitted event.
func collect(t *testing.T, e *Engine) []transcript.Event {
	t.Helper()

	var events []transcript.Event
	done := make(chan struct{})

	h := recog.Handlers{
		OnEvent: func(ev transcript.Event) { events = append(events, ev) },
		OnEnd:   func() { close(done) },
	}
	if err := e.Start(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine never signalled end")
	}
	return events
}

func TestEngine_PlaysScript(t *testing.T) {
	script := []Utterance{
		{Interims: []string{"chest", "chest pain"}, Final: "chest pain", Confidence: 0.9},
		{Interims: []string{"for two"}, Final: "for two days", Confidence: 0.85},
	}
	events := collect(t, NewWithScript(script, 0))

	// Two interims plus one final per first utterance, one interim plus one
	// final for the second.
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}

	// First utterance: no finalized prefix yet.
	for i, ev := range events[:3] {
		if ev.StartIndex != 0 {
			t.Errorf("event %d: expected StartIndex 0, got %d", i, ev.StartIndex)
		}
	}
	if !events[2].Results[0].IsFinal {
		t.Error("expected third event to carry the final result")
	}
	if got := events[2].Results[0].Text(); got != "chest pain" {
		t.Errorf("expected final 'chest pain', got %q", got)
	}
	if events[2].Results[0].Alternatives[0].Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", events[2].Results[0].Alternatives[0].Confidence)
	}

	// Second utterance: batches are cumulative and StartIndex skips the
	// finalized prefix.
	for i, ev := range events[3:] {
		if ev.StartIndex != 1 {
			t.Errorf("event %d: expected StartIndex 1, got %d", i+3, ev.StartIndex)
		}
		if len(ev.Results) != 2 {
			t.Errorf("event %d: expected cumulative batch of 2, got %d", i+3, len(ev.Results))
		}
		if !ev.Results[0].IsFinal || ev.Results[0].Text() != "chest pain" {
			t.Errorf("event %d: expected finalized prefix retained, got %+v", i+3, ev.Results[0])
		}
	}
	last := events[4]
	if !last.Results[1].IsFinal || last.Results[1].Text() != "for two days" {
		t.Errorf("expected final 'for two days', got %+v", last.Results[1])
	}
}

func TestEngine_FoldedTranscript(t *testing.T) {
	events := collect(t, NewWithScript(DefaultScript, 0))

	var state transcript.State
	for _, ev := range events {
		state = transcript.Fold(state, ev)
	}

	want := "patient reports chest pain for two days " +
		"worse on exertion no radiation to the arm " +
		"currently taking lisinopril ten milligrams daily"
	if state.Final != want {
		t.Errorf("expected folded transcript %q, got %q", want, state.Final)
	}
	if state.Interim != "" {
		t.Errorf("expected empty interim after last final, got %q", state.Interim)
	}
}

func TestEngine_DoubleStart(t *testing.T) {
	e := NewWithScript(nil, 0)
	if err := e.Start(recog.Handlers{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e2 := NewWithScript(DefaultScript, time.Minute)
	if err := e2.Start(recog.Handlers{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e2.Start(recog.Handlers{}); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestEngine_StopHaltsPlayback(t *testing.T) {
	e := NewWithScript(DefaultScript, 50*time.Millisecond)

	count := 0
	ended := false
	h := recog.Handlers{
		OnEvent: func(transcript.Event) { count++ },
		OnEnd:   func() { ended = true },
	}
	if err := e.Start(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Give playback a chance to misbehave.
	time.Sleep(120 * time.Millisecond)

	if count != 0 {
		t.Errorf("expected no events after stop, got %d", count)
	}
	if ended {
		t.Error("OnEnd must not fire after a caller stop")
	}

	// Idempotent
	if err := e.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
