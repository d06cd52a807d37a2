// Package extract turns a final consultation transcript into structured
// clinical fields using a chat model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"clinical-scribe/internal/observability/logging"
	"clinical-scribe/internal/observability/metrics"
)

// Note holds the structured clinical fields extracted from a transcript.
type Note struct {
	Symptoms    []string `json:"symptoms"`
	History     []string `json:"history"`
	Assessment  []string `json:"assessment"`
	Medications []string `json:"medications"`
	Plan        []string `json:"plan"`
}

// Extractor extracts a clinical note from a final transcript.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*Note, error)
}

// Errors surfaced to the caller.
var (
	// ErrDisabled - no model credentials configured; extraction is off.
	ErrDisabled = errors.New("extraction disabled: no model configured")

	// ErrEmptyTranscript - nothing to extract from.
	ErrEmptyTranscript = errors.New("transcript is empty")
)

const systemPrompt = `You are a clinical scribe assistant. Extract structured fields from the consultation transcript.
Respond with a single JSON object and nothing else, using exactly these keys, each a JSON array of short strings:
"symptoms", "history", "assessment", "medications", "plan".
Use an empty array for fields the transcript does not mention. Do not invent clinical content.`

// Config holds chat model settings for extraction.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float32
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c Config) Enabled() bool {
	return c.Model != "" && c.APIKey != ""
}

// NewChatModel creates a model instance from the configuration.
func (c Config) NewChatModel(ctx context.Context) (model.BaseChatModel, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
}

// Service implements Extractor over a chat model.
type Service struct {
	chatModel model.BaseChatModel
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// NewService creates the extraction service, or a disabled one when the
// configuration carries no credentials.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	svc := &Service{
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("extract"),
	}
	if !cfg.Enabled() {
		svc.log.Info().Msg("extraction disabled, no model configured")
		return svc, nil
	}

	cm, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	svc.chatModel = cm
	svc.log.Info().Str("model", cfg.Model).Msg("extraction model ready")
	return svc, nil
}

// NewServiceWithModel creates the extraction service over an existing model.
func NewServiceWithModel(cm model.BaseChatModel) *Service {
	return &Service{
		chatModel: cm,
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithComponent("extract"),
	}
}

// Enabled reports whether a model is wired.
func (s *Service) Enabled() bool {
	return s.chatModel != nil
}

// Extract sends the transcript to the model and parses the strict-JSON
// response into a Note.
func (s *Service) Extract(ctx context.Context, transcript string) (*Note, error) {
	if s.chatModel == nil {
		return nil, ErrDisabled
	}
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrEmptyTranscript
	}

	start := time.Now()
	note, err := s.extract(ctx, transcript)
	s.metrics.RecordExtraction(err, time.Since(start).Seconds())
	if err != nil {
		s.log.Error().Err(err).Msg("extraction failed")
		return nil, err
	}

	s.log.Info().
		Int("symptoms", len(note.Symptoms)).
		Int("medications", len(note.Medications)).
		Dur("duration", time.Since(start)).
		Msg("note extracted")
	return note, nil
}

func (s *Service) extract(ctx context.Context, transcript string) (*Note, error) {
	resp, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(transcript),
	})
	if err != nil {
		return nil, fmt.Errorf("model generate failed: %w", err)
	}
	return parseNote(resp.Content)
}

// parseNote parses the model output into a Note, tolerating code fences and
// prose around the JSON object.
func parseNote(content string) (*Note, error) {
	body := strings.TrimSpace(content)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("model response contains no JSON object: %q", truncate(body, 120))
	}

	var note Note
	if err := json.Unmarshal([]byte(body[start:end+1]), &note); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return &note, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
