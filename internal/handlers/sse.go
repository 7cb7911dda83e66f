package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const sseHeartbeat = 15 * time.Second

// serveEvents streams every value of sub as a server-sent event. The
// subscription must not depend on the request context: the body is written
// after the handler returns, and the writer closes sub when it stops.
func serveEvents[T any](c *fiber.Ctx, sub *stream.Subscription[T]) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Close()
		writeEvents(w, sub, sseHeartbeat)
	}))
	return nil
}

// writeEvents returns when the subscription completes or the client goes
// away. Completion is announced with an "end" event.
func writeEvents[T any](w *bufio.Writer, sub *stream.Subscription[T], heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case v, ok := <-sub.C:
			if !ok {
				fmt.Fprint(w, "event: end\ndata: {}\n\n")
				_ = w.Flush()
				return
			}
			payload, err := json.Marshal(v)
			if err != nil {
				slog.Error("failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			if err := w.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}
