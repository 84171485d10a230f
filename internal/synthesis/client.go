// Package synthesis turns reply text into raw PCM via a streaming
// text-to-speech WebSocket.
package synthesis

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrMissingKey is returned when no API key was configured.
var ErrMissingKey = errors.New("synthesis api key is not set")

// Config configures the synthesis client.
type Config struct {
	URL         string
	Version     string
	APIKey      string
	Model       string
	Speed       string
	Emotion     []string
	SampleRate  int
	DialTimeout time.Duration
}

// Voice selects the speaker for one request.
type Voice struct {
	ID      string
	Speed   string
	Emotion []string
}

type voiceSpec struct {
	Mode    string   `json:"mode"`
	ID      string   `json:"id"`
	Speed   string   `json:"speed,omitempty"`
	Emotion []string `json:"emotion,omitempty"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type request struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
	ContextID    string       `json:"context_id"`
}

type response struct {
	Type  string `json:"type"`
	Data  string `json:"data,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Error string `json:"error,omitempty"`
}

// Audio is one fully collected utterance.
type Audio struct {
	PCM        []byte
	SampleRate int
}

// Duration is the playback length of the utterance.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	samples := len(a.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// Client synthesises one utterance per connection.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// NewClient builds a client. Missing credentials surface on the first Synthesize.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	return &Client{cfg: cfg, logger: logger}
}

// Synthesize opens a connection, submits text, and collects every audio chunk
// until the service reports completion. The connection is always closed.
func (c *Client) Synthesize(ctx context.Context, text string, voice Voice) (Audio, error) {
	if c.cfg.APIKey == "" {
		return Audio{}, ErrMissingKey
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return Audio{}, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: c.cfg.DialTimeout,
	}
	header := http.Header{}
	header.Set("X-API-Key", c.cfg.APIKey)

	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return Audio{}, fmt.Errorf("dial synthesis service: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	req := c.request(text, voice)
	if err := conn.WriteJSON(req); err != nil {
		return Audio{}, fmt.Errorf("send synthesis request: %w", err)
	}

	var pcm []byte
	for {
		var msg response
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return Audio{}, ctx.Err()
			}
			return Audio{}, fmt.Errorf("read synthesis stream: %w", err)
		}

		switch msg.Type {
		case "chunk":
			data, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				return Audio{}, fmt.Errorf("decode audio chunk: %w", err)
			}
			pcm = append(pcm, data...)
			if msg.Done {
				return c.finish(conn, pcm, req.ContextID), nil
			}
		case "done":
			return c.finish(conn, pcm, req.ContextID), nil
		case "error":
			return Audio{}, fmt.Errorf("synthesis service error: %s", msg.Error)
		}
	}
}

func (c *Client) finish(conn *websocket.Conn, pcm []byte, contextID string) Audio {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if c.logger != nil {
		c.logger.Debug("synthesis complete", "context_id", contextID, "bytes", len(pcm))
	}
	return Audio{PCM: pcm, SampleRate: c.cfg.SampleRate}
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse synthesis url: %w", err)
	}
	if c.cfg.Version != "" {
		q := u.Query()
		q.Set("cartesia_version", c.cfg.Version)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) request(text string, voice Voice) request {
	speed := voice.Speed
	if speed == "" {
		speed = c.cfg.Speed
	}
	emotion := voice.Emotion
	if len(emotion) == 0 {
		emotion = c.cfg.Emotion
	}

	return request{
		ModelID:    c.cfg.Model,
		Transcript: text,
		Voice: voiceSpec{
			Mode:    "id",
			ID:      voice.ID,
			Speed:   speed,
			Emotion: emotion,
		},
		OutputFormat: outputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.cfg.SampleRate,
		},
		ContextID: uuid.NewString(),
	}
}
