package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"strings"
	"time"

	perr "picktrack/internal/platform/errors"
)

// SSEEvent is one server-sent event; Data is JSON encoded
type SSEEvent struct {
	Name string
	ID   string
	Data any
}

// SSEOptions tunes StreamSSE
type SSEOptions struct {
	// Heartbeat sends a comment line at this interval, 0 disables it
	Heartbeat time.Duration
	// Retry is the reconnect delay hint sent once to the client, 0 omits it
	Retry time.Duration
}

// StreamSSE writes events from ch until ctx is done or ch is closed
// returns an error only when the writer cannot stream
func StreamSSE(ctx context.Context, w stdhttp.ResponseWriter, ch <-chan SSEEvent, opt SSEOptions) error {
	flusher, ok := w.(stdhttp.Flusher)
	if !ok {
		return perr.Newf(perr.ErrorCodeUnavailable, "streaming not supported by response writer")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(stdhttp.StatusOK)

	if opt.Retry > 0 {
		_, _ = fmt.Fprintf(w, "retry: %d\n\n", opt.Retry.Milliseconds())
	}
	flusher.Flush()

	var tick <-chan time.Time
	if opt.Heartbeat > 0 {
		t := time.NewTicker(opt.Heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return nil
			}
			frame, err := FormatSSE(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte(frame)); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

// FormatSSE renders ev in the text/event-stream wire format
func FormatSSE(ev SSEEvent) (string, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return "", perr.Wrap(err, perr.ErrorCodeJSON, "encode event")
	}
	var b strings.Builder
	if ev.ID != "" {
		b.WriteString("id: ")
		b.WriteString(ev.ID)
		b.WriteString("\n")
	}
	if ev.Name != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Name)
		b.WriteString("\n")
	}
	for line := range strings.SplitSeq(string(payload), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String(), nil
}
