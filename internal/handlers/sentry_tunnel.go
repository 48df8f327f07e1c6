package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const maxEnvelopeBytes = 1 << 20

// SentryTunnelHandler forwards error envelopes from the player page to
// Sentry's ingest API, so the browser never talks to Sentry directly.
type SentryTunnelHandler struct {
	dsn    string
	client *http.Client
}

// NewSentryTunnelHandler accepts envelopes addressed to dsn only. An empty
// dsn disables the tunnel.
func NewSentryTunnelHandler(dsn string) *SentryTunnelHandler {
	return &SentryTunnelHandler{dsn: dsn, client: &http.Client{}}
}

// ingestURL turns https://<key>@<host>/<project> into the envelope endpoint.
func ingestURL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	projectID := strings.Trim(u.Path, "/")
	if u.Host == "" || projectID == "" {
		return "", fmt.Errorf("malformed dsn")
	}
	return "https://" + u.Host + "/api/" + projectID + "/envelope/", nil
}

func (h *SentryTunnelHandler) Tunnel(w http.ResponseWriter, r *http.Request) {
	if h.dsn == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// first line of an envelope is a JSON header naming the dsn
	headerLine, _, _ := bytes.Cut(body, []byte("\n"))
	var header struct {
		DSN string `json:"dsn"`
	}
	if err := json.Unmarshal(headerLine, &header); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if header.DSN != h.dsn {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	target, err := ingestURL(header.DSN)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create sentry tunnel request", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/x-sentry-envelope")

	resp, err := h.client.Do(req)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to forward sentry envelope", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(resp.StatusCode)
}
