package google

import (
	"errors"
	"io"
	"testing"
	"time"

	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/transcript"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.InterimResults != true {
		t.Errorf("expected default interim results true, got %v", cfg.InterimResults)
	}
	if cfg.ChunkBytes != 3200 {
		t.Errorf("expected default chunk size 3200, got %d", cfg.ChunkBytes)
	}
	if cfg.ChunkInterval != 100*time.Millisecond {
		t.Errorf("expected default chunk interval 100ms, got %v", cfg.ChunkInterval)
	}
}

func TestAvailable(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if Available() {
		t.Error("expected unavailable without credentials")
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")
	if !Available() {
		t.Error("expected available with credentials set")
	}
}

func TestFactory_ProbesCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if e := Factory(DefaultConfig(), nil)(); e != nil {
		t.Errorf("expected nil engine without credentials, got %v", e)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/tmp/creds.json")
	if e := Factory(DefaultConfig(), nil)(); e == nil {
		t.Error("expected engine with credentials set")
	}
}

// fakeStream replays canned streaming responses, then the configured error
// (io.EOF by default). Only Recv is exercised by the receive loop.
type fakeStream struct {
	grpc.ClientStream
	responses []*speechpb.StreamingRecognizeResponse
	err       error
}

func (f *fakeStream) Send(*speechpb.StreamingRecognizeRequest) error { return nil }

func (f *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	if len(f.responses) == 0 {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func response(isFinal bool, alts ...*speechpb.SpeechRecognitionAlternative) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			{Alternatives: alts, IsFinal: isFinal},
		},
	}
}

func alt(text string, confidence float32) *speechpb.SpeechRecognitionAlternative {
	return &speechpb.SpeechRecognitionAlternative{Transcript: text, Confidence: confidence}
}

func TestRecvLoop_MapsResponsesToEvents(t *testing.T) {
	stream := &fakeStream{responses: []*speechpb.StreamingRecognizeResponse{
		response(false, alt("chest", 0.0)),
		response(false, alt("chest pain", 0.0)),
		response(true, alt("chest pain for two days", 0.94), alt("chest pane for two days", 0.31)),
	}}

	var events []transcript.Event
	ended := false
	h := recog.Handlers{
		OnEvent: func(ev transcript.Event) { events = append(events, ev) },
		OnError: func(err error) { t.Errorf("unexpected error: %v", err) },
		OnEnd:   func() { ended = true },
	}

	e := New(DefaultConfig(), nil)
	e.recvLoop(stream, h)

	if !ended {
		t.Error("expected OnEnd after stream EOF")
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	// The streaming API never re-delivers finalized results, so every event
	// starts at index 0.
	for i, ev := range events {
		if ev.StartIndex != 0 {
			t.Errorf("event %d: expected StartIndex 0, got %d", i, ev.StartIndex)
		}
	}

	if events[0].Results[0].IsFinal {
		t.Error("expected first result interim")
	}
	if got := events[0].Results[0].Text(); got != "chest" {
		t.Errorf("expected text 'chest', got %q", got)
	}

	last := events[2].Results[0]
	if !last.IsFinal {
		t.Error("expected last result final")
	}
	if len(last.Alternatives) != 2 {
		t.Fatalf("expected both alternatives carried, got %d", len(last.Alternatives))
	}
	if last.Alternatives[0].Text != "chest pain for two days" {
		t.Errorf("unexpected top alternative: %q", last.Alternatives[0].Text)
	}
	if last.Alternatives[0].Confidence < 0.93 || last.Alternatives[0].Confidence > 0.95 {
		t.Errorf("expected confidence near 0.94, got %v", last.Alternatives[0].Confidence)
	}
}

func TestRecvLoop_WordOffsets(t *testing.T) {
	final := response(true, &speechpb.SpeechRecognitionAlternative{
		Transcript: "chest pain",
		Words: []*speechpb.WordInfo{
			{Word: "chest", StartTime: durationpb.New(1200 * time.Millisecond)},
			{Word: "pain", StartTime: durationpb.New(1550 * time.Millisecond)},
		},
	})
	interim := response(false, &speechpb.SpeechRecognitionAlternative{
		Transcript: "chest",
		Words: []*speechpb.WordInfo{
			{Word: "chest", StartTime: durationpb.New(1200 * time.Millisecond)},
		},
	})
	stream := &fakeStream{responses: []*speechpb.StreamingRecognizeResponse{interim, final}}

	cfg := DefaultConfig()
	cfg.WordOffsets = true
	e := New(cfg, nil)

	type word struct {
		text   string
		offset time.Duration
	}
	var words []word
	e.SetWordHandler(func(w string, offset time.Duration) {
		words = append(words, word{w, offset})
	})

	e.recvLoop(stream, recog.Handlers{})

	// Words come from final results only; interim words would repeat.
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0].text != "chest" || words[0].offset != 1200*time.Millisecond {
		t.Errorf("unexpected first word: %+v", words[0])
	}
	if words[1].text != "pain" || words[1].offset != 1550*time.Millisecond {
		t.Errorf("unexpected second word: %+v", words[1])
	}
}

func TestRecvLoop_StreamErrorSurfaced(t *testing.T) {
	cause := errors.New("upstream unavailable")
	stream := &fakeStream{err: cause}

	var got error
	e := New(DefaultConfig(), nil)
	e.running = true
	e.recvLoop(stream, recog.Handlers{OnError: func(err error) { got = err }})

	if got != cause {
		t.Errorf("expected stream error surfaced, got %v", got)
	}
}

func TestRecvLoop_CanceledSwallowed(t *testing.T) {
	stream := &fakeStream{err: status.Error(codes.Canceled, "context canceled")}

	e := New(DefaultConfig(), nil)
	e.running = true
	e.recvLoop(stream, recog.Handlers{
		OnError: func(err error) { t.Errorf("cancellation must not surface, got %v", err) },
	})
}

func TestRecvLoop_ErrorAfterTeardownSwallowed(t *testing.T) {
	stream := &fakeStream{err: errors.New("transport closing")}

	e := New(DefaultConfig(), nil)
	e.recvLoop(stream, recog.Handlers{
		OnError: func(err error) { t.Errorf("post-teardown error must not surface, got %v", err) },
	})
}
