// wsclient is a manual test client for the interview session endpoint. It
// connects, loads a small context, streams an audio file (or silence) as
// binary frames, and prints everything the server sends back.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws/interview", "websocket endpoint")
	audioPath := flag.String("audio", "", "webm audio file to stream (optional)")
	chunkMs := flag.Int("chunk-ms", 100, "delay between audio chunks")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected to %s", *addr)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				os.Exit(0)
			}
			log.Printf("<- %s", data)
		}
	}()

	send := func(msg map[string]any) {
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Fatalf("marshal: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Fatalf("write: %v", err)
		}
	}

	send(map[string]any{"type": "config", "language": "en-US"})
	send(map[string]any{
		"type":    "context",
		"user_id": "wsclient-demo",
		"qa_pairs": []map[string]any{
			{
				"id":       "demo-1",
				"question": "Tell me about yourself",
				"answer":   "I am a backend engineer focused on real-time audio systems.",
			},
		},
	})

	if *audioPath != "" {
		audio, err := os.ReadFile(*audioPath)
		if err != nil {
			log.Fatalf("read audio: %v", err)
		}
		const chunkSize = 4096
		for off := 0; off < len(audio); off += chunkSize {
			end := off + chunkSize
			if end > len(audio) {
				end = len(audio)
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, audio[off:end]); err != nil {
				log.Fatalf("write audio: %v", err)
			}
			time.Sleep(time.Duration(*chunkMs) * time.Millisecond)
		}
		send(map[string]any{"type": "finalize"})
	} else {
		// No audio file: exercise the manual trigger instead.
		send(map[string]any{
			"type":          "generate_answer",
			"question":      "Why do you want to work here?",
			"question_type": "general",
		})
	}

	// Let streamed answers drain before hanging up.
	time.Sleep(10 * time.Second)
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(time.Second)
}
