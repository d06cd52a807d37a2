// Command relay streams an internet audio source to the Google Cloud Speech
// streaming API and prints word-level output as it arrives.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinical-scribe/internal/service/recog"
	"clinical-scribe/internal/service/recog/google"
	"clinical-scribe/internal/service/transcript"
)

// At 16kHz 16-bit mono = 32000 bytes/second, 100ms chunks = 3200 bytes.
const chunkSize = 3200
const chunkIntervalMs = 100

func main() {
	sourceURL := flag.String("url", "", "HTTP URL of the audio source (LINEAR16 PCM)")
	language := flag.String("language", "en-US", "Recognition language code")
	sampleRate := flag.Int("rate", 16000, "Audio sample rate in Hz")
	maxDuration := flag.Duration("max", 5*time.Minute, "Maximum relay duration")
	flag.Parse()

	if *sourceURL == "" {
		log.Fatal("missing -url")
	}
	if !google.Available() {
		log.Fatal("GOOGLE_APPLICATION_CREDENTIALS not set")
	}

	resp, err := http.Get(*sourceURL)
	if err != nil {
		log.Fatalf("Failed to open audio source: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Audio source returned %s", resp.Status)
	}

	log.Printf("Relaying %s (language=%s rate=%dHz)", *sourceURL, *language, *sampleRate)

	cfg := google.Config{
		LanguageCode:   *language,
		SampleRateHz:   int32(*sampleRate),
		InterimResults: true,
		WordOffsets:    true,
		ChunkBytes:     chunkSize,
		ChunkInterval:  chunkIntervalMs * time.Millisecond,
	}

	engine := google.New(cfg, resp.Body)
	engine.SetWordHandler(func(word string, offset time.Duration) {
		fmt.Printf("%10s  %s\n", offset.Round(10*time.Millisecond), word)
	})

	done := make(chan struct{})
	state := transcript.State{}

	h := recog.Handlers{
		OnEvent: func(ev transcript.Event) {
			prev := state.Final
			state = transcript.Fold(state, ev)
			if state.Final != prev {
				fmt.Printf("-- %s\n", state.Final)
			}
		},
		OnError: func(err error) {
			log.Printf("Stream error: %v", err)
			close(done)
		},
		OnEnd: func() {
			log.Println("Stream ended")
			close(done)
		},
	}

	if err := engine.Start(h); err != nil {
		log.Fatalf("Failed to start recognition: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
	case <-sig:
		log.Println("Interrupted")
	case <-time.After(*maxDuration):
		log.Println("Max duration reached")
	}

	if err := engine.Stop(); err != nil {
		log.Printf("Stop: %v", err)
	}

	if state.Final != "" {
		fmt.Printf("\nFinal transcript:\n%s\n", state.Final)
	}
}
