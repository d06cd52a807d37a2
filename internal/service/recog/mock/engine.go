// Package mock provides a scripted recognition engine for tests and for
// running the service without cloud credentials. It simulates realistic
// engine behavior: progressive interim results, exactly one final per
// utterance, cumulative result batches with an advancing start index, and an
// engine-initiated end once the script is exhausted.
package mock

import (
	"errors"
	"sync"
	"time"

	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/transcript"
)

// Utterance is one scripted utterance with progressive interim texts.
type Utterance struct {
	Interims []string
	Final    string
	// Confidence for the final result.
	Confidence float64
}

// DefaultScript provides sample clinical utterances.
var DefaultScript = []Utterance{
	{
		Interims:   []string{"patient reports", "patient reports chest pain"},
		Final:      "patient reports chest pain for two days",
		Confidence: 0.94,
	},
	{
		Interims:   []string{"worse on", "worse on exertion"},
		Final:      "worse on exertion no radiation to the arm",
		Confidence: 0.91,
	},
	{
		Interims:   []string{"currently taking"},
		Final:      "currently taking lisinopril ten milligrams daily",
		Confidence: 0.96,
	},
}

// ErrAlreadyStarted is returned when Start is called on a running engine.
var ErrAlreadyStarted = errors.New("mock engine already started")

// Engine implements recog.Engine with scripted utterances.
//
// Each emitted event carries the cumulative batch of this session's results,
// with StartIndex pointing past the already-finalized prefix, the same shape
// real engines deliver.
type Engine struct {
	script []Utterance
	delay  time.Duration

	mu      sync.Mutex
	h       recog.Handlers
	running bool
	stopped chan struct{}
}

// New creates a mock engine playing the default script.
func New() *Engine {
	return NewWithScript(DefaultScript, 10*time.Millisecond)
}

// NewWithScript creates a mock engine playing the given utterances with the
// given delay between events. A zero delay emits synchronously on the
// playback goroutine, which is what most tests want.
func NewWithScript(script []Utterance, delay time.Duration) *Engine {
	return &Engine{script: script, delay: delay}
}

// Factory returns a recog.Factory producing this engine.
func (e *Engine) Factory() recog.Factory {
	return func() recog.Engine { return e }
}

// Start begins playback of the script on a background goroutine.
func (e *Engine) Start(h recog.Handlers) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyStarted
	}
	e.running = true
	e.h = h
	e.stopped = make(chan struct{})

	go e.play(h, e.stopped)
	return nil
}

// Stop ends playback. Idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.halt()
	return nil
}

// Abort ends playback immediately. Same as Stop for the mock.
func (e *Engine) Abort() error {
	return e.Stop()
}

func (e *Engine) halt() {
	if !e.running {
		return
	}
	e.running = false
	close(e.stopped)
	e.h = recog.Handlers{}
}

func (e *Engine) play(h recog.Handlers, stopped chan struct{}) {
	// Finalized results accumulate across utterances within the session.
	var done []transcript.Result

	for _, utt := range e.script {
		for _, text := range utt.Interims {
			ev := transcript.Event{
				Results:    append(append([]transcript.Result{}, done...), interimResult(text)),
				StartIndex: len(done),
			}
			if !e.emit(h, stopped, ev) {
				return
			}
		}

		final := transcript.Result{
			Alternatives: []transcript.Alternative{{Text: utt.Final, Confidence: utt.Confidence}},
			IsFinal:      true,
		}
		ev := transcript.Event{
			Results:    append(append([]transcript.Result{}, done...), final),
			StartIndex: len(done),
		}
		if !e.emit(h, stopped, ev) {
			return
		}
		done = append(done, final)
	}

	// Script exhausted: engine-initiated end, like silence detection.
	select {
	case <-stopped:
	default:
		e.mu.Lock()
		e.halt()
		e.mu.Unlock()
		if h.OnEnd != nil {
			h.OnEnd()
		}
	}
}

func (e *Engine) emit(h recog.Handlers, stopped chan struct{}, ev transcript.Event) bool {
	if e.delay > 0 {
		select {
		case <-stopped:
			return false
		case <-time.After(e.delay):
		}
	} else {
		select {
		case <-stopped:
			return false
		default:
		}
	}
	if h.OnEvent != nil {
		h.OnEvent(ev)
	}
	return true
}

func interimResult(text string) transcript.Result {
	return transcript.Result{Alternatives: []transcript.Alternative{{Text: text}}}
}
