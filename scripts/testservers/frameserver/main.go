// Command frameserver is a synthetic application endpoint for exercising
// framepulse attach mode. It accepts the instrumentation WebSocket protocol,
// streams frame events at a configurable rate, and answers input commands
// with a short burst of slower frames so scripted runs have something to
// measure.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

func main() {
	port := flag.Int("port", 9229, "Listening port")
	fps := flag.Int("fps", 60, "Frames emitted per second")
	buildMicros := flag.Int("build-micros", 8000, "Baseline frame build duration in microseconds")
	rasterMicros := flag.Int("raster-micros", 6000, "Baseline frame raster duration in microseconds")
	jitterPct := flag.Float64("jitter", 0.3, "Random jitter applied to each duration (fraction of baseline)")
	jankMicros := flag.Int("jank-micros", 24000, "Frame duration during post-command jank bursts, in microseconds")
	flag.Parse()

	if *port <= 0 {
		log.Fatalf("port must be > 0")
	}
	if *fps <= 0 {
		log.Fatalf("fps must be > 0")
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	mux := http.NewServeMux()
	mux.HandleFunc("/perf", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		session := &frameSession{
			conn:         conn,
			interval:     time.Second / time.Duration(*fps),
			buildMicros:  int64(*buildMicros),
			rasterMicros: int64(*rasterMicros),
			jitterPct:    *jitterPct,
			jankMicros:   int64(*jankMicros),
		}
		go session.run()
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("frame server listening on ws://localhost%s/perf", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// frameSession emits frame events for one connection. Commands from the
// harness adjust what the frame loop emits next.
type frameSession struct {
	conn         *websocket.Conn
	interval     time.Duration
	buildMicros  int64
	rasterMicros int64
	jitterPct    float64
	jankMicros   int64

	jankFrames  atomic.Int64
	idleRequest atomic.Bool
	closed      atomic.Bool
}

func (s *frameSession) run() {
	defer s.conn.Close()
	go s.readCommands()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for range ticker.C {
		if s.closed.Load() {
			return
		}
		if err := s.emitFrame(); err != nil {
			return
		}
		if s.idleRequest.Load() && s.jankFrames.Load() == 0 {
			s.idleRequest.Store(false)
			if err := s.emit(map[string]any{"event": "idle"}); err != nil {
				return
			}
		}
	}
}

// readCommands drains harness commands. Input commands queue a jank burst so
// the run records frames that miss the budget; window.quiesce requests an
// idle event once the burst drains.
func (s *frameSession) readCommands() {
	defer s.closed.Store(true)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		method := gjson.GetBytes(data, "method").String()
		switch method {
		case "window.quiesce":
			s.idleRequest.Store(true)
		case "":
			log.Printf("command missing method: %s", data)
		default:
			s.jankFrames.Add(6)
			log.Printf("command %s -> jank burst", method)
		}
	}
}

func (s *frameSession) emitFrame() error {
	build := s.jittered(s.buildMicros)
	raster := s.jittered(s.rasterMicros)
	if s.jankFrames.Load() > 0 {
		s.jankFrames.Add(-1)
		build = s.jittered(s.jankMicros)
		raster = s.jittered(s.jankMicros / 2)
	}
	return s.emit(map[string]any{
		"event":         "frame",
		"build_micros":  build,
		"raster_micros": raster,
	})
}

func (s *frameSession) jittered(base int64) int64 {
	if s.jitterPct <= 0 {
		return base
	}
	spread := float64(base) * s.jitterPct
	return base + int64((rand.Float64()*2-1)*spread)
}

func (s *frameSession) emit(payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
