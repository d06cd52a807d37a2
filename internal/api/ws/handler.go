// Package ws exposes recognition sessions over a WebSocket: the browser
// captures microphone speech with its native recognition API and forwards
// result batches here; the server folds them into the transcript, streams
// state snapshots back, and returns the extracted clinical note on stop.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clinical-scribe/internal/app"
	"clinical-scribe/internal/extract"
	"clinical-scribe/internal/models"
	"clinical-scribe/internal/observability/logging"
	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/scribe"
	"clinical-scribe/internal/service/transcript"
)

const extractTimeout = 30 * time.Second

// Handler upgrades session connections and runs the per-connection loop.
type Handler struct {
	app      *app.Application
	upgrader websocket.Upgrader
}

// New creates a WebSocket session handler.
func New(application *app.Application) *Handler {
	return &Handler{
		app: application,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes mounts the session endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions/ws", h.handle)
}

// Wire messages. The inbound event payload mirrors the browser recognition
// event shape.

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type startPayload struct {
	// Engine selects who runs recognition: "browser" (default, events are
	// forwarded over this socket) or "server" (the configured provider).
	Engine string `json:"engine,omitempty"`
}

type eventPayload struct {
	Results []struct {
		Alternatives []struct {
			Text       string  `json:"text"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
		IsFinal bool `json:"isFinal"`
	} `json:"results"`
	StartIndex int `json:"startIndex"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// conn is the per-connection state: one session, one optional remote engine.
type conn struct {
	h       *Handler
	ws      *websocket.Conn
	log     zerolog.Logger
	session *scribe.Session
	remote  *recog.Remote
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	c := &conn{h: h, ws: ws, log: logging.WithComponent("ws")}
	defer func() {
		if c.session != nil {
			c.session.Stop()
		}
	}()

	for {
		var msg inbound
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *conn) dispatch(msg inbound) {
	switch msg.Type {
	case "start":
		c.handleStart(msg.Data)
	case "event":
		c.handleEvent(msg.Data)
	case "error":
		c.handleError(msg.Data)
	case "end":
		if c.remote != nil {
			c.remote.PushEnd()
		}
		c.sendState()
	case "stop":
		c.handleStop()
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *conn) handleStart(data json.RawMessage) {
	var p startPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			c.sendError("malformed start payload")
			return
		}
	}

	if c.session == nil {
		if p.Engine == "server" {
			c.session = c.h.app.NewSession()
		} else {
			c.remote = recog.NewRemote()
			c.session = c.h.app.NewSession(func() recog.Engine { return c.remote })
		}
		c.log = logging.WithSession(c.session.ID())
	}

	if err := c.session.Start(); err != nil {
		switch {
		case errors.Is(err, scribe.ErrAlreadyListening):
			// Deterministic rejection; the UI disables its start control,
			// but a racing click is not an error worth surfacing.
			c.sendState()
		default:
			c.sendError(err.Error())
			c.sendState()
		}
		return
	}
	c.sendState()
}

func (c *conn) handleEvent(data json.RawMessage) {
	if c.remote == nil {
		c.sendError("no browser-fed session active")
		return
	}

	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		c.sendError("malformed recognition event")
		return
	}

	ev := transcript.Event{StartIndex: p.StartIndex}
	for _, r := range p.Results {
		res := transcript.Result{IsFinal: r.IsFinal}
		for _, alt := range r.Alternatives {
			res.Alternatives = append(res.Alternatives, transcript.Alternative{
				Text:       alt.Text,
				Confidence: alt.Confidence,
			})
		}
		ev.Results = append(ev.Results, res)
	}

	c.remote.Push(ev)
	c.sendState()
}

func (c *conn) handleError(data json.RawMessage) {
	if c.remote == nil {
		return
	}
	var p errorPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		p.Message = "recognition error"
	}
	c.remote.PushError(errors.New(p.Message))
	c.sendState()
}

func (c *conn) handleStop() {
	if c.session == nil {
		c.sendError("no session")
		return
	}

	c.session.Stop()
	c.sendState()

	final := c.session.FinalTranscript()
	if final == "" || !c.h.app.Extractor.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	note, err := c.h.app.Extractor.Extract(ctx, final)
	if err != nil {
		c.sendError("extraction failed: " + err.Error())
		return
	}

	c.publishNote(ctx, final, note)
	c.send(outbound{Type: "note", Data: note, Timestamp: time.Now().UnixMilli()})
}

func (c *conn) publishNote(ctx context.Context, final string, note *extract.Note) {
	ev := models.NoteCreated{
		EventType:   "scribe.note.created",
		SessionID:   c.session.ID(),
		Timestamp:   time.Now().UnixMilli(),
		Transcript:  final,
		Symptoms:    note.Symptoms,
		History:     note.History,
		Assessment:  note.Assessment,
		Medications: note.Medications,
		Plan:        note.Plan,
	}
	if err := c.h.app.Publisher.PublishNote(ctx, c.session.ID(), ev); err != nil {
		c.log.Error().Err(err).Msg("failed to publish note")
	}
}

func (c *conn) sendState() {
	if c.session == nil {
		return
	}
	c.send(outbound{Type: "state", Data: c.session.Snapshot(), Timestamp: time.Now().UnixMilli()})
}

func (c *conn) sendError(message string) {
	c.send(outbound{Type: "error", Data: errorPayload{Message: message}, Timestamp: time.Now().UnixMilli()})
}

func (c *conn) send(msg outbound) {
	if err := c.ws.WriteJSON(msg); err != nil {
		c.log.Warn().Err(err).Msg("websocket write failed")
	}
}
