package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Webhook is a Client that forwards deliveries to an external bridge over
// HTTP. The bridge exposes:
//
//	POST {base}/send    {"recipient_id", "payload"}          -> {"wire_id"}
//	POST {base}/replay  {"recipient_id", "wire_id", "event"} -> 2xx
//
// 403 and 410 responses map to ErrUnreachable. A 404 stays transient: it
// points at a misrouted bridge, not at the recipient.
type Webhook struct {
	BaseURL string
	HTTP    *http.Client
}

// NewWebhook returns a Webhook with a traced HTTP client.
func NewWebhook(baseURL string, timeout time.Duration) *Webhook {
	return &Webhook{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type sendRequest struct {
	RecipientID int64           `json:"recipient_id"`
	Payload     json.RawMessage `json:"payload"`
}

type sendResponse struct {
	WireID int64 `json:"wire_id"`
}

type replayRequest struct {
	RecipientID int64 `json:"recipient_id"`
	WireID      int64 `json:"wire_id"`
	Event       Event `json:"event"`
}

// Send implements Client.
func (w *Webhook) Send(ctx context.Context, recipientID int64, payload json.RawMessage) (int64, error) {
	var out sendResponse
	if err := w.post(ctx, "/send", sendRequest{RecipientID: recipientID, Payload: payload}, &out); err != nil {
		return 0, err
	}
	if out.WireID == 0 {
		return 0, fmt.Errorf("transport: bridge returned no wire id for recipient %d", recipientID)
	}
	return out.WireID, nil
}

// Replay implements Client.
func (w *Webhook) Replay(ctx context.Context, recipientID, wireID int64, ev Event) error {
	return w.post(ctx, "/replay", replayRequest{RecipientID: recipientID, WireID: wireID, Event: ev}, nil)
}

func (w *Webhook) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("transport: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusGone:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %d", ErrUnreachable, path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transport: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("transport: decode %s response: %w", path, err)
	}
	return nil
}
