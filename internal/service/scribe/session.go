// Package scribe manages recognition sessions: the Idle/Listening state
// machine, transcript accumulation, and publication of transcript events.
package scribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"clinical-scribe/internal/events"
	"clinical-scribe/internal/models"
	"clinical-scribe/internal/observability/logging"
	"clinical-scribe/internal/observability/metrics"
	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/transcript"
)

// Phase is the lifecycle phase of a session.
type Phase int

const (
	// PhaseIdle - no engine running. Error is a sub-state of Idle.
	PhaseIdle Phase = iota
	// PhaseListening - engine running, events being applied.
	PhaseListening
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseListening:
		return "LISTENING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", p)
	}
}

// Errors for start rejections.
var (
	// ErrUnavailable - no recognition capability exists on this platform.
	// Start stays disabled for the session lifetime.
	ErrUnavailable = errors.New("no recognition capability available")

	// ErrAlreadyListening - a session is already running on this accumulator.
	ErrAlreadyListening = errors.New("session already listening")
)

// StartError wraps a synchronous engine start rejection. Recoverable; the
// caller may retry Start.
type StartError struct {
	Err error
}

func (e *StartError) Error() string {
	return "engine start rejected: " + e.Err.Error()
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// Snapshot is the observable session state exposed to the UI layer.
type Snapshot struct {
	ID        string `json:"sessionId"`
	Listening bool   `json:"listening"`
	Err       string `json:"error,omitempty"`
	Interim   string `json:"interimTranscript"`
	Final     string `json:"finalTranscript"`
}

// Session owns one transcript accumulator and at most one running engine.
//
// All event application happens under the session mutex; the generation
// counter guarantees that events still in flight when the caller stops the
// session are discarded rather than applied late.
type Session struct {
	id        string
	factories []recog.Factory
	publisher *events.Publisher
	metrics   *metrics.Metrics
	log       zerolog.Logger

	mu          sync.Mutex
	phase       Phase
	gen         uint64
	engine      recog.Engine
	state       transcript.State
	errMsg      string
	unavailable bool
	started     time.Time
}

// NewSession creates an idle session. The factories are probed in order on
// every start; the first available capability wins. publisher may be nil.
func NewSession(publisher *events.Publisher, factories ...recog.Factory) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		factories: factories,
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithSession(id),
	}
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Start probes for an engine and begins listening.
//
// Returns ErrAlreadyListening while a session is running, ErrUnavailable when
// no capability exists (permanent for this session), or a *StartError when
// the engine rejects the start synchronously. State stays Idle on failure.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.phase == PhaseListening {
		s.mu.Unlock()
		return ErrAlreadyListening
	}
	if s.unavailable {
		s.mu.Unlock()
		return ErrUnavailable
	}

	engine := recog.FirstAvailable(s.factories...)
	if engine == nil {
		s.unavailable = true
		s.errMsg = ErrUnavailable.Error()
		s.mu.Unlock()
		s.log.Warn().Msg("recognition unavailable, start disabled")
		return ErrUnavailable
	}

	s.gen++
	gen := s.gen
	s.phase = PhaseListening
	s.engine = engine
	s.errMsg = ""
	s.started = time.Now()
	s.mu.Unlock()

	h := recog.Handlers{
		OnEvent: func(ev transcript.Event) { s.handleEvent(gen, ev) },
		OnError: func(err error) { s.handleError(gen, err) },
		OnEnd:   func() { s.handleEnd(gen) },
	}

	if err := engine.Start(h); err != nil {
		s.mu.Lock()
		s.phase = PhaseIdle
		s.engine = nil
		s.errMsg = err.Error()
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("engine rejected start")
		return &StartError{Err: err}
	}

	s.metrics.RecordSessionStart()
	s.log.Info().Msg("session listening")
	return nil
}

// Stop ends the session: the interim transcript is cleared, the final
// transcript is retained, and any event still in flight is discarded.
// Idempotent; stopping an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}
	s.gen++ // invalidate in-flight events
	s.phase = PhaseIdle
	s.state = s.state.ClearInterim()
	engine := s.engine
	s.engine = nil
	duration := time.Since(s.started)
	s.mu.Unlock()

	// Stopping an already-stopped engine is benign; nothing to surface.
	if err := engine.Stop(); err != nil {
		s.log.Debug().Err(err).Msg("engine stop ignored")
	}

	s.metrics.RecordSessionEnd("stopped", duration.Seconds())
	s.log.Info().Dur("duration", duration).Msg("session stopped")
}

// Snapshot returns the observable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.id,
		Listening: s.phase == PhaseListening,
		Err:       s.errMsg,
		Interim:   s.state.Interim,
		Final:     s.state.Final,
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// FinalTranscript returns the accumulated final transcript.
func (s *Session) FinalTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Final
}

// handleEvent folds one recognition event into the transcript. Events from a
// superseded generation or delivered after the session went idle are dropped.
func (s *Session) handleEvent(gen uint64, ev transcript.Event) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseListening {
		s.mu.Unlock()
		s.log.Debug().Msg("late recognition event discarded")
		return
	}

	prev := s.state
	s.state = transcript.Fold(prev, ev)
	next := s.state
	s.mu.Unlock()

	s.metrics.RecordEventFolded()

	if next.Interim != "" {
		s.metrics.RecordInterimTranscript()
		s.publishInterim(next.Interim)
	}
	if appended := finalDelta(prev.Final, next.Final); appended != "" {
		s.metrics.RecordFinalTranscript()
		s.publishFinal(appended)
	}
}

// handleError surfaces an engine error. The transcript is untouched; the
// session goes idle and the caller may retry Start.
func (s *Session) handleError(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.phase = PhaseIdle
	s.engine = nil
	s.errMsg = err.Error()
	duration := time.Since(s.started)
	s.mu.Unlock()

	s.metrics.RecordSessionEnd("error", duration.Seconds())
	s.log.Warn().Err(err).Msg("engine error, session idle")
}

// handleEnd applies an engine-initiated end: same effect as a caller stop.
func (s *Session) handleEnd(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.phase != PhaseListening {
		s.mu.Unlock()
		return
	}
	s.gen++
	s.phase = PhaseIdle
	s.state = s.state.ClearInterim()
	s.engine = nil
	duration := time.Since(s.started)
	s.mu.Unlock()

	s.metrics.RecordSessionEnd("ended", duration.Seconds())
	s.log.Info().Dur("duration", duration).Msg("engine ended session")
}

// finalDelta returns the text newly appended to the final transcript.
func finalDelta(prev, next string) string {
	if len(next) <= len(prev) {
		return ""
	}
	return strings.TrimSpace(next[len(prev):])
}

func (s *Session) publishInterim(text string) {
	if s.publisher == nil {
		return
	}
	ev := models.TranscriptInterim{
		EventType: "scribe.transcript.interim",
		SessionID: s.id,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishInterim(context.Background(), s.id, ev); err != nil {
		s.log.Error().Err(err).Msg("failed to publish interim transcript")
	}
}

func (s *Session) publishFinal(text string) {
	if s.publisher == nil {
		return
	}
	ev := models.TranscriptFinal{
		EventType: "scribe.transcript.final",
		SessionID: s.id,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishFinal(context.Background(), s.id, ev); err != nil {
		s.log.Error().Err(err).Msg("failed to publish final transcript")
	}
}
