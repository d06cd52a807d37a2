package events

import (
	"context"
	"testing"

	"clinical-scribe/internal/models"
)

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"nil brokers", &Config{Enabled: true, Brokers: nil}},
		{"nil config", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.enabled {
				t.Error("expected publisher to be disabled")
			}
			if p.writerInterim != nil {
				t.Error("expected nil interim writer when disabled")
			}
			if p.writerFinal != nil {
				t.Error("expected nil final writer when disabled")
			}
			if p.writerNote != nil {
				t.Error("expected nil note writer when disabled")
			}
		})
	}
}

func TestNew_ConfigValues(t *testing.T) {
	cfg := &Config{
		Enabled:      false,
		Brokers:      []string{"localhost:9092"},
		TopicInterim: "test.interim",
		TopicFinal:   "test.final",
		TopicNote:    "test.note",
		Principal:    "test-principal",
	}

	p := New(cfg)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicInterim != "test.interim" {
		t.Errorf("expected topic interim 'test.interim', got %s", p.topicInterim)
	}
	if p.topicFinal != "test.final" {
		t.Errorf("expected topic final 'test.final', got %s", p.topicFinal)
	}
	if p.topicNote != "test.note" {
		t.Errorf("expected topic note 'test.note', got %s", p.topicNote)
	}
}

func TestPublisher_Publish_Disabled(t *testing.T) {
	p := New(&Config{Enabled: false})
	ctx := context.Background()

	if err := p.PublishInterim(ctx, "s-1", map[string]string{"text": "interim"}); err != nil {
		t.Errorf("PublishInterim: expected no error when disabled, got %v", err)
	}
	if err := p.PublishFinal(ctx, "s-1", map[string]string{"text": "final"}); err != nil {
		t.Errorf("PublishFinal: expected no error when disabled, got %v", err)
	}
	if err := p.PublishNote(ctx, "s-1", map[string]string{"plan": "rest"}); err != nil {
		t.Errorf("PublishNote: expected no error when disabled, got %v", err)
	}
}

func TestPublisher_Publish_InvalidJSON(t *testing.T) {
	p := New(&Config{Enabled: false})

	// Channels are not marshalable
	event := make(chan int)
	if err := p.PublishFinal(context.Background(), "s-1", event); err == nil {
		t.Error("expected error for unmarshalable event")
	}
}

func TestPublisher_Publish_RejectsInvalidPayload(t *testing.T) {
	p := New(&Config{Enabled: false})
	ctx := context.Background()

	missingSession := models.TranscriptFinal{
		EventType: "scribe.transcript.final",
		Text:      "chest pain",
	}
	if err := p.PublishFinal(ctx, "s-1", missingSession); err == nil {
		t.Error("expected validation error for missing sessionId")
	}

	emptyText := models.TranscriptInterim{
		EventType: "scribe.transcript.interim",
		SessionID: "s-1",
	}
	if err := p.PublishInterim(ctx, "s-1", emptyText); err == nil {
		t.Error("expected validation error for empty text")
	}
}

func TestPublisher_Publish_ValidEvents(t *testing.T) {
	p := New(&Config{
		Enabled:      false,
		TopicInterim: "test.interim",
		TopicFinal:   "test.final",
		TopicNote:    "test.note",
		Principal:    "test-svc",
	})
	ctx := context.Background()

	interim := models.TranscriptInterim{
		EventType: "scribe.transcript.interim",
		SessionID: "s-123",
		Text:      "patient reports",
		Timestamp: 1700000000000,
	}
	if err := p.PublishInterim(ctx, "s-123", interim); err != nil {
		t.Errorf("PublishInterim: expected no error, got %v", err)
	}

	final := models.TranscriptFinal{
		EventType: "scribe.transcript.final",
		SessionID: "s-123",
		Text:      "patient reports chest pain",
		Timestamp: 1700000000200,
	}
	if err := p.PublishFinal(ctx, "s-123", final); err != nil {
		t.Errorf("PublishFinal: expected no error, got %v", err)
	}

	note := models.NoteCreated{
		EventType:  "scribe.note.created",
		SessionID:  "s-123",
		Transcript: "patient reports chest pain",
		Symptoms:   []string{"chest pain"},
		Timestamp:  1700000001000,
	}
	if err := p.PublishNote(ctx, "s-123", note); err != nil {
		t.Errorf("PublishNote: expected no error, got %v", err)
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false})

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}

func TestPublisher_Close_NilWriters(t *testing.T) {
	p := &Publisher{}

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing publisher with nil writers, got %v", err)
	}
}
