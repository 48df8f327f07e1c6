package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/karafriends/backend/internal/broker"
)

const heartbeatInterval = 30 * time.Second

// parseTopics reads topic filters from repeated or comma-separated topic
// query parameters. No filter means every topic.
func parseTopics(r *http.Request) ([]broker.Topic, error) {
	var topics []broker.Topic
	for _, raw := range r.URL.Query()["topic"] {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			t := broker.Topic(name)
			if !t.IsValid() {
				return nil, fmt.Errorf("unknown topic %q", name)
			}
			topics = append(topics, t)
		}
	}
	return topics, nil
}

// SSEHandler serves Server-Sent Events streams of session events.
type SSEHandler struct {
	broker *broker.Broker
}

// NewSSEHandler creates an SSEHandler backed by the given broker.
func NewSSEHandler(b *broker.Broker) *SSEHandler {
	return &SSEHandler{broker: b}
}

// Stream opens an SSE connection. It sends an initial "connected" event,
// then one event per published message on the requested topics. A
// heartbeat comment is sent every 30 seconds to keep the connection alive
// through proxies.
func (h *SSEHandler) Stream(w http.ResponseWriter, r *http.Request) {
	topics, err := parseTopics(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := h.broker.Subscribe(topics...)
	defer h.broker.Unsubscribe(sub)

	fmt.Fprintf(w, "event: connected\ndata: ok\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C:
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				slog.ErrorContext(ctx, "failed to encode event", slog.String("topic", string(ev.Topic)), slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
