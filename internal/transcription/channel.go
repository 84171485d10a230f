package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrMissingKey is returned by Dial when no API key was configured.
	ErrMissingKey = errors.New("transcription api key is not set")
	// ErrClosed is returned by Send once the service has ended the stream.
	ErrClosed = errors.New("transcription channel closed")
)

var closeStreamFrame = []byte(`{"type":"CloseStream"}`)

const defaultCloseGrace = 3 * time.Second

// Config configures one channel.
type Config struct {
	URL         string
	APIKey      string
	Model       string
	Language    string
	Sentiment   bool
	SampleRate  int
	DialTimeout time.Duration
	// CloseGrace bounds how long Close waits for the service to flush final results.
	CloseGrace time.Duration
}

// Channel is one open streaming session with the transcription service.
type Channel struct {
	conn   *websocket.Conn
	logger *slog.Logger
	grace  time.Duration

	events   chan Event
	finished chan struct{}

	writeMu sync.Mutex
	closing atomic.Bool
	ended   atomic.Bool
	once    sync.Once
}

// Endpoint returns the WebSocket URL carrying the audio format and feature query.
func Endpoint(cfg Config) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse transcription url: %w", err)
	}

	q := u.Query()
	if cfg.Model != "" {
		q.Set("model", cfg.Model)
	}
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(rate))
	q.Set("channels", "1")
	q.Set("sentiment", strconv.FormatBool(cfg.Sentiment))
	q.Set("interim_results", "false")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens an authenticated channel. The returned channel is already reading.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Channel, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingKey
	}

	endpoint, err := Endpoint(cfg)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: cfg.DialTimeout,
	}
	header := http.Header{}
	header.Set("Authorization", "Token "+cfg.APIKey)

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial transcription service: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial transcription service: %w", err)
	}

	grace := cfg.CloseGrace
	if grace <= 0 {
		grace = defaultCloseGrace
	}

	c := &Channel{
		conn:     conn,
		logger:   logger,
		grace:    grace,
		events:   make(chan Event, 64),
		finished: make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers segments in arrival order, then one closed or error event.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send forwards one binary audio chunk. Chunks sent after Close are dropped.
func (c *Channel) Send(chunk []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closing.Load() {
		return nil
	}
	if c.ended.Load() {
		return ErrClosed
	}
	if err := c.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		return fmt.Errorf("send audio chunk: %w", err)
	}
	return nil
}

// Close asks the service to flush and end the stream. It does not wait for
// the final events; the connection is torn down when the service closes it
// or after the grace period.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		c.closing.Store(true)
		if !c.ended.Load() {
			err = c.conn.WriteMessage(websocket.TextMessage, closeStreamFrame)
		}
		c.writeMu.Unlock()

		go func() {
			timer := time.NewTimer(c.grace)
			defer timer.Stop()
			select {
			case <-c.finished:
			case <-timer.C:
				c.logDebug("transcription close grace elapsed")
			}
			_ = c.conn.Close()
		}()
	})
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("send close stream: %w", err)
	}
	return nil
}

func (c *Channel) readLoop() {
	defer close(c.events)
	defer close(c.finished)

	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			c.ended.Store(true)
			c.events <- c.terminalEvent(err)
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		ev, ok, err := parseMessage(data)
		if err != nil {
			c.logWarn("ignoring malformed transcription message", "error", err.Error())
			continue
		}
		if !ok {
			continue
		}
		if ev.Kind == KindError {
			c.ended.Store(true)
			c.events <- ev
			_ = c.conn.Close()
			return
		}
		c.events <- ev
	}
}

func (c *Channel) terminalEvent(err error) Event {
	if c.closing.Load() {
		return Closed(true)
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return Closed(false)
	}
	return Failed(fmt.Errorf("read transcription stream: %w", err))
}

func (c *Channel) logWarn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Channel) logDebug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
