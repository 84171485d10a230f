// Package analysis submits a finished session's transcript and whiteboard
// image to the tutoring backend.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Path is appended to the configured base URL.
const Path = "/analyze-whiteboard"

const maxLoggedBody = 2048

// Payload is the JSON body of one submission. A nil Image encodes as null.
type Payload struct {
	Transcript  string  `json:"transcript"`
	Base64Image *string `json:"base64Image"`
}

// NewPayload encodes image (which may be nil) for submission.
func NewPayload(transcript string, image []byte) Payload {
	p := Payload{Transcript: transcript}
	if len(image) > 0 {
		encoded := base64.StdEncoding.EncodeToString(image)
		p.Base64Image = &encoded
	}
	return p
}

// Response is what the backend returned. Body is truncated for logging.
type Response struct {
	Status int
	Body   string
}

// Client posts payloads to {BaseURL}/analyze-whiteboard.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Submit sends one payload. Non-2xx replies are returned as errors together
// with the response so callers can log the body.
func (c *Client) Submit(ctx context.Context, payload Payload) (Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("encode analysis payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+Path, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("submit analysis: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody+1))
	if err != nil {
		return Response{Status: resp.StatusCode}, fmt.Errorf("read analysis response: %w", err)
	}
	out := Response{Status: resp.StatusCode, Body: truncate(string(raw))}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, fmt.Errorf("analysis endpoint returned %s", resp.Status)
	}
	return out, nil
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "…"
}
