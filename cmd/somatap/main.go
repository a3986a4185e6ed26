// Command somatap subscribes to a daemon's control frame stream and
// prints a one-line summary per frame. Quick way to eyeball what the
// bridge is producing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/soma-labs/go-soma/internal/log"
	"github.com/soma-labs/go-soma/pkg/stream"
)

func main() {
	url := flag.String("url", "ws://127.0.0.1:8090/ws/control", "Control stream websocket URL")
	every := flag.Int("every", 10, "Print every Nth frame (events always print)")
	flag.Parse()

	log.Init("warn")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := stream.NewClient(*url, log.L())
	go client.Run(ctx)

	var n int
	for frame := range client.Frames() {
		n++
		hasEvents := len(frame.Events) > 0
		if !hasEvents && *every > 1 && n%*every != 0 {
			continue
		}

		line := fmt.Sprintf("tick=%d face=%v(%.2fs) body=%v audio[f=%.1fHz c=%.2f env=%.3f gate=%v]",
			frame.Tick,
			frame.Face.Fresh, frame.Face.Staleness,
			frame.Body.Fresh,
			frame.Audio.Freq, frame.Audio.Confidence,
			frame.Audio.Envelope, frame.Audio.Gate)

		if hasEvents {
			names := make([]string, len(frame.Events))
			for i, ev := range frame.Events {
				names[i] = fmt.Sprintf("%s(%.2f)", ev.Name, ev.Velocity)
			}
			line += "  EVENTS: " + strings.Join(names, " ")
		}
		fmt.Printf("%s %s\n", time.Now().Format("15:04:05.000"), line)
	}
}
