// Package recog defines the interface between a recognition session and the
// engine that produces recognition events (cloud STT stream, browser-forwarded
// events, or a mock).
package recog

import "clinical-scribe/internal/service/transcript"

// Handlers receives engine callbacks for one session. Exactly one handler set
// is registered per engine start; the session detaches it on teardown so late
// callbacks cannot mutate state after the session logically ended.
type Handlers struct {
	// OnEvent delivers a batch of recognition results.
	OnEvent func(ev transcript.Event)

	// OnError reports an engine failure. The engine stops delivering events
	// after an error.
	OnError func(err error)

	// OnEnd signals an engine-initiated end of the session (e.g. silence
	// timeout or upstream stream close).
	OnEnd func()
}

// Engine is one recognition capability. Engines push events asynchronously;
// they never block the caller.
type Engine interface {
	// Start begins delivering events to h. Fails synchronously if the engine
	// is already running or cannot open its upstream.
	Start(h Handlers) error

	// Stop ends the session gracefully. Stopping an already-stopped engine
	// is harmless.
	Stop() error

	// Abort ends the session immediately, discarding in-flight results.
	Abort() error
}

// Factory probes one platform recognition capability and returns an engine
// handle, or nil if the capability is not present.
type Factory func() Engine

// FirstAvailable returns the first engine produced by the factories, in
// order, or nil if none of the probed capabilities exist.
func FirstAvailable(factories ...Factory) Engine {
	for _, f := range factories {
		if e := f(); e != nil {
			return e
		}
	}
	return nil
}
