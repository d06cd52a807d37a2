// Package google implements a recognition engine backed by Google Cloud
// Speech-to-Text streaming recognition.
package google

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/rs/zerolog/log"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/transcript"
)

// Config holds streaming recognition settings.
type Config struct {
	LanguageCode   string
	SampleRateHz   int32
	InterimResults bool

	// WordOffsets asks the engine for per-word time offsets on final results,
	// delivered through WordHandler.
	WordOffsets bool

	// ChunkBytes and ChunkInterval pace the audio send loop to simulate
	// real-time capture. At 16kHz 16-bit mono, 100ms is 3200 bytes.
	ChunkBytes    int
	ChunkInterval time.Duration
}

// DefaultConfig returns settings for 16kHz 16-bit mono English audio.
func DefaultConfig() Config {
	return Config{
		LanguageCode:   "en-US",
		SampleRateHz:   16000,
		InterimResults: true,
		ChunkBytes:     3200,
		ChunkInterval:  100 * time.Millisecond,
	}
}

// WordHandler receives word-level output from final results when
// Config.WordOffsets is set.
type WordHandler func(word string, offset time.Duration)

// ErrAlreadyStarted is returned when Start is called on a running engine.
var ErrAlreadyStarted = errors.New("google engine already started")

// Available reports whether Google STT credentials are present in the
// environment. Used as the capability probe for the engine factory.
func Available() bool {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != ""
}

// Engine implements recog.Engine over a Google streaming recognize session,
// reading audio from the configured source.
type Engine struct {
	cfg    Config
	source io.Reader
	words  WordHandler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	client  *speech.Client
	stream  speechpb.Speech_StreamingRecognizeClient
}

// New creates a Google engine reading audio from source.
func New(cfg Config, source io.Reader) *Engine {
	return &Engine{cfg: cfg, source: source}
}

// SetWordHandler installs the word-level output hook. Must be called before
// Start.
func (e *Engine) SetWordHandler(h WordHandler) {
	e.words = h
}

// Factory probes for credentials and returns the engine, or nil when the
// capability is absent.
func Factory(cfg Config, source io.Reader) recog.Factory {
	return func() recog.Engine {
		if !Available() {
			return nil
		}
		return New(cfg, source)
	}
}

// Start opens the streaming session, sends the recognition config, and spawns
// the audio send loop and the response receive loop.
func (e *Engine) Start(h recog.Handlers) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())

	client, err := speech.NewClient(ctx)
	if err != nil {
		cancel()
		return err
	}

	stream, err := client.StreamingRecognize(ctx)
	if err != nil {
		cancel()
		client.Close()
		return err
	}

	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:              speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:       e.cfg.SampleRateHz,
					LanguageCode:          e.cfg.LanguageCode,
					EnableWordTimeOffsets: e.cfg.WordOffsets,
				},
				InterimResults: e.cfg.InterimResults,
			},
		},
	})
	if err != nil {
		cancel()
		client.Close()
		return err
	}

	e.running = true
	e.cancel = cancel
	e.client = client
	e.stream = stream

	if e.source != nil {
		go e.sendLoop(ctx, stream)
	}
	go e.recvLoop(stream, h)
	return nil
}

// Stop closes the send side and releases the client. The session discards
// any event still in flight after Stop returns.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.running = false
	err := e.stream.CloseSend()
	e.cancel()
	e.client.Close()
	return err
}

// Abort tears the session down immediately, discarding in-flight results.
func (e *Engine) Abort() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.running = false
	e.cancel()
	e.client.Close()
	return nil
}

// sendLoop streams audio from the source in real-time-paced chunks.
func (e *Engine) sendLoop(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient) {
	buf := make([]byte, e.cfg.ChunkBytes)
	for {
		n, err := e.source.Read(buf)
		if n > 0 {
			req := &speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buf[:n],
				},
			}
			if sendErr := stream.Send(req); sendErr != nil {
				// Recv loop surfaces the stream error; just stop sending.
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.Warn().Err(err).Msg("audio source read failed")
			}
			stream.CloseSend()
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.ChunkInterval):
		}
	}
}

// recvLoop maps streaming responses to recognition events. The gRPC API does
// not redeliver finalized results in later responses, so every event starts
// at index 0.
func (e *Engine) recvLoop(stream speechpb.Speech_StreamingRecognizeClient, h recog.Handlers) {
	for {
		resp, err := stream.Recv()
		if err != nil {
			e.mu.Lock()
			running := e.running
			e.mu.Unlock()

			if err == io.EOF {
				if h.OnEnd != nil {
					h.OnEnd()
				}
				return
			}
			if !running {
				// Local teardown; gRPC cancellation noise is benign.
				return
			}
			if st, ok := status.FromError(err); ok && st.Code() == codes.Canceled {
				return
			}
			if h.OnError != nil {
				h.OnError(err)
			}
			return
		}

		ev := transcript.Event{}
		for _, r := range resp.Results {
			res := transcript.Result{IsFinal: r.IsFinal}
			for _, alt := range r.Alternatives {
				res.Alternatives = append(res.Alternatives, transcript.Alternative{
					Text:       alt.Transcript,
					Confidence: float64(alt.Confidence),
				})
			}
			ev.Results = append(ev.Results, res)

			if r.IsFinal && e.words != nil && len(r.Alternatives) > 0 {
				for _, w := range r.Alternatives[0].Words {
					e.words(w.Word, w.StartTime.AsDuration())
				}
			}
		}
		if len(ev.Results) > 0 && h.OnEvent != nil {
			h.OnEvent(ev)
		}
	}
}
