// Command wsclient exercises the scribe session WebSocket with scripted
// recognition events, the way a browser front-end would drive it.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

type message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type alternative struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type result struct {
	Alternatives []alternative `json:"alternatives"`
	IsFinal      bool          `json:"isFinal"`
}

type event struct {
	Results    []result `json:"results"`
	StartIndex int      `json:"startIndex"`
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/v1/sessions/ws", "WebSocket endpoint")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("Connected to %s", *addr)

	// Print everything the server pushes back
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			log.Printf("<- %s", data)
		}
	}()

	send := func(m message) {
		log.Printf("-> %s", m.Type)
		if err := conn.WriteJSON(m); err != nil {
			log.Fatalf("failed to send %s: %v", m.Type, err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	send(message{Type: "start"})

	interim := func(texts ...string) result {
		return result{Alternatives: []alternative{{Text: texts[0]}}}
	}
	final := func(text string, conf float64) result {
		return result{Alternatives: []alternative{{Text: text, Confidence: conf}}, IsFinal: true}
	}

	// Progressive interims, then a final, then a follow-up utterance.
	send(message{Type: "event", Data: event{Results: []result{interim("patient reports")}}})
	send(message{Type: "event", Data: event{Results: []result{interim("patient reports chest pain")}}})
	send(message{Type: "event", Data: event{Results: []result{
		final("patient reports chest pain for two days", 0.94),
	}}})
	send(message{Type: "event", Data: event{Results: []result{
		final("patient reports chest pain for two days", 0.94),
		interim("currently taking"),
	}, StartIndex: 1}})
	send(message{Type: "event", Data: event{Results: []result{
		final("patient reports chest pain for two days", 0.94),
		final("currently taking lisinopril ten milligrams daily", 0.96),
	}, StartIndex: 1}})

	send(message{Type: "stop"})

	// Give the server time to extract and respond before closing.
	time.Sleep(3 * time.Second)
}
