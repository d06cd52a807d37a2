package recog

import (
	"errors"
	"testing"

	"clinical-scribe/internal/service/transcript"
)

func event(text string, final bool) transcript.Event {
	return transcript.Event{Results: []transcript.Result{
		{Alternatives: []transcript.Alternative{{Text: text}}, IsFinal: final},
	}}
}

func TestRemote_PushDeliversToHandlers(t *testing.T) {
	r := NewRemote()

	var got []transcript.Event
	h := Handlers{OnEvent: func(ev transcript.Event) { got = append(got, ev) }}

	if err := r.Start(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Push(event("hello", false))
	r.Push(event("hello world", true))

	if len(got) != 2 {
		t.Fatalf("expected 2 events delivered, got %d", len(got))
	}
	if got[1].Results[0].Text() != "hello world" {
		t.Errorf("unexpected event payload: %+v", got[1])
	}
}

func TestRemote_DoubleStart(t *testing.T) {
	r := NewRemote()
	if err := r.Start(Handlers{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Start(Handlers{}); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestRemote_PushBeforeStartDropped(t *testing.T) {
	r := NewRemote()

	delivered := false
	r.Push(event("early", false))

	if err := r.Start(Handlers{OnEvent: func(transcript.Event) { delivered = true }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered {
		t.Error("event pushed before start must not be delivered")
	}
}

func TestRemote_PushAfterStopDropped(t *testing.T) {
	r := NewRemote()

	count := 0
	if err := r.Start(Handlers{OnEvent: func(transcript.Event) { count++ }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Push(event("one", true))
	if err := r.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Push(event("two", true))

	if count != 1 {
		t.Errorf("expected 1 delivered event, got %d", count)
	}

	// Stopped engine can be started again.
	if err := r.Start(Handlers{OnEvent: func(transcript.Event) { count++ }}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Push(event("three", true))
	if count != 2 {
		t.Errorf("expected restart to deliver again, got %d", count)
	}
}

func TestRemote_PushErrorStopsEngine(t *testing.T) {
	r := NewRemote()

	var gotErr error
	events := 0
	h := Handlers{
		OnEvent: func(transcript.Event) { events++ },
		OnError: func(err error) { gotErr = err },
	}
	if err := r.Start(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cause := errors.New("recognition aborted")
	r.PushError(cause)

	if gotErr != cause {
		t.Errorf("expected error delivered, got %v", gotErr)
	}

	r.Push(event("after error", true))
	if events != 0 {
		t.Error("events after an error must be dropped")
	}
}

func TestRemote_PushEndStopsEngine(t *testing.T) {
	r := NewRemote()

	ended := false
	events := 0
	h := Handlers{
		OnEvent: func(transcript.Event) { events++ },
		OnEnd:   func() { ended = true },
	}
	if err := r.Start(h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.PushEnd()
	if !ended {
		t.Error("expected OnEnd delivered")
	}

	r.PushEnd() // second end is a no-op
	r.Push(event("after end", true))
	if events != 0 {
		t.Error("events after end must be dropped")
	}
}

func TestFirstAvailable(t *testing.T) {
	a := NewRemote()
	b := NewRemote()

	if got := FirstAvailable(); got != nil {
		t.Errorf("expected nil with no factories, got %v", got)
	}

	got := FirstAvailable(
		func() Engine { return nil },
		func() Engine { return a },
		func() Engine { return b },
	)
	if got != a {
		t.Errorf("expected first non-nil engine, got %v", got)
	}
}
