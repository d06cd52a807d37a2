package recog

import (
	"errors"
	"sync"

	"clinical-scribe/internal/service/transcript"
)

// ErrAlreadyStarted is returned when Start is called on a running engine.
var ErrAlreadyStarted = errors.New("engine already started")

// Remote is an engine whose recognition runs elsewhere: the browser captures
// microphone audio with its native speech API and forwards result batches
// over the session transport, which pushes them here.
type Remote struct {
	mu      sync.Mutex
	h       Handlers
	running bool
}

// NewRemote creates a remote-fed engine.
func NewRemote() *Remote {
	return &Remote{}
}

// Start registers the handler set. The remote side is expected to begin
// forwarding events once the session transport acknowledges the start.
func (r *Remote) Start(h Handlers) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrAlreadyStarted
	}
	r.running = true
	r.h = h
	return nil
}

// Stop detaches the handlers. Events pushed after Stop are dropped.
func (r *Remote) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.h = Handlers{}
	return nil
}

// Abort is identical to Stop for a remote engine; there is nothing local to
// tear down.
func (r *Remote) Abort() error {
	return r.Stop()
}

// Push delivers a forwarded recognition event. Dropped when not running.
func (r *Remote) Push(ev transcript.Event) {
	r.mu.Lock()
	h := r.h
	running := r.running
	r.mu.Unlock()
	if running && h.OnEvent != nil {
		h.OnEvent(ev)
	}
}

// PushError delivers a forwarded engine error and stops the engine.
func (r *Remote) PushError(err error) {
	r.mu.Lock()
	h := r.h
	running := r.running
	r.running = false
	r.h = Handlers{}
	r.mu.Unlock()
	if running && h.OnError != nil {
		h.OnError(err)
	}
}

// PushEnd delivers a forwarded end-of-session signal and stops the engine.
func (r *Remote) PushEnd() {
	r.mu.Lock()
	h := r.h
	running := r.running
	r.running = false
	r.h = Handlers{}
	r.mu.Unlock()
	if running && h.OnEnd != nil {
		h.OnEnd()
	}
}
