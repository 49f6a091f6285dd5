package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/annel0/bucket-brigade/internal/brigade"
	"github.com/annel0/bucket-brigade/internal/eventbus"
	framesync "github.com/annel0/bucket-brigade/internal/sync"
	"github.com/annel0/bucket-brigade/internal/world"
)

const defaultURL = "nats://127.0.0.1:4222"

func main() {
	var (
		url    = flag.String("url", defaultURL, "NATS server URL")
		stream = flag.String("stream", "BRIGADE", "JetStream stream name")
		types  = flag.String("types", "", "Event types filter (comma-separated)")
		frames = flag.Bool("frames", false, "Decode and print frame summaries")
		limit  = flag.Int("limit", 0, "Stop after N events (0 - follow forever)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*url, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	codec, err := framesync.NewZstdCodec()
	if err != nil {
		log.Fatalf("❌ Frame codec: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	filter := eventbus.Filter{Types: parseStringList(*types)}

	var count int64
	done := make(chan struct{})
	var once atomic.Bool

	sub, err := bus.Subscribe(ctx, filter, func(_ context.Context, ev *eventbus.Envelope) {
		// кадры идут каждые несколько тиков и забивают вывод
		if ev.EventType == world.EventFrame && !*frames {
			return
		}
		printEnvelope(ev, codec)
		n := atomic.AddInt64(&count, 1)
		if *limit > 0 && n >= int64(*limit) && once.CompareAndSwap(false, true) {
			close(done)
		}
	})
	if err != nil {
		log.Fatalf("❌ Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("🎬 Tailing %s.> on %s\n", eventbus.SubjectPrefix, *url)

	select {
	case <-ctx.Done():
	case <-done:
	}
	fmt.Printf("\n📊 Total events: %d\n", atomic.LoadInt64(&count))
}

// printEnvelope выводит событие в читаемом формате
func printEnvelope(ev *eventbus.Envelope, codec framesync.FrameCodec) {
	timestamp := ev.Timestamp.Local().Format("15:04:05.000")
	run := ev.CorrelationID
	if len(run) > 8 {
		run = run[:8]
	}
	fmt.Printf("[%s] %s [%s] %s\n", timestamp, run, ev.EventType, ev.ID)

	if ev.EventType == world.EventFrame {
		f, err := codec.Decode(ev.Payload)
		if err != nil {
			fmt.Printf("  ⚠️ bad frame: %v\n", err)
			return
		}
		carrying := 0
		for _, b := range f.Bots {
			if b.V > 0 {
				carrying++
			}
		}
		fmt.Printf("  Frame: tick=%d t=%.1fs grid=%dx%d fires=%d buckets=%d bots=%d (carrying %d) choppers=%d\n",
			f.Tick, f.Elapsed, f.Rows, f.Cols, len(f.Fires), len(f.Buckets), len(f.Bots), carrying, len(f.Choppers))
		return
	}

	var e brigade.Event
	if err := json.Unmarshal(ev.Payload, &e); err != nil {
		fmt.Printf("  ⚠️ bad payload: %v\n", err)
		return
	}
	fmt.Printf("  Tick: %d Entity: %v Coord: %v", e.Tick, e.Entity, e.Coord)
	if e.Value != 0 {
		fmt.Printf(" Value: %.3f", e.Value)
	}
	fmt.Println()
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\nTails bucket-brigade events from NATS JetStream.\n\n", os.Args[0])
		flag.PrintDefaults()
	}
}
