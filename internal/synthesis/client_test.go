package synthesis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newSynthesisTestServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/tts/websocket"
}

func chunk(data []byte) map[string]any {
	return map[string]any{"type": "chunk", "data": base64.StdEncoding.EncodeToString(data)}
}

func testClient(u string) *Client {
	return NewClient(Config{
		URL:         u,
		Version:     "2024-06-10",
		APIKey:      "ct-key",
		Model:       "sonic-english",
		Speed:       "normal",
		Emotion:     []string{"positivity:high"},
		SampleRate:  24000,
		DialTimeout: time.Second,
	}, nil)
}

func TestSynthesizeCollectsChunksInOrder(t *testing.T) {
	type captured struct {
		req     map[string]any
		key     string
		version string
	}
	seen := make(chan captured, 1)

	wsURL := newSynthesisTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		c := captured{key: r.Header.Get("X-API-Key"), version: r.URL.Query().Get("cartesia_version")}
		if err := conn.ReadJSON(&c.req); err != nil {
			return
		}
		seen <- c
		_ = conn.WriteJSON(chunk([]byte{1, 2}))
		_ = conn.WriteJSON(map[string]any{"type": "timestamps"})
		_ = conn.WriteJSON(chunk([]byte{3, 4}))
		_ = conn.WriteJSON(map[string]any{"type": "done", "done": true})
	})

	audio, err := testClient(wsURL).Synthesize(context.Background(), "Great question!", Voice{ID: "voice-einstein"})
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, audio.PCM)
	require.Equal(t, 24000, audio.SampleRate)

	got := <-seen
	gotReq := got.req
	require.Equal(t, "ct-key", got.key)
	require.Equal(t, "2024-06-10", got.version)
	require.Equal(t, "sonic-english", gotReq["model_id"])
	require.Equal(t, "Great question!", gotReq["transcript"])
	require.Equal(t, map[string]any{
		"mode":    "id",
		"id":      "voice-einstein",
		"speed":   "normal",
		"emotion": []any{"positivity:high"},
	}, gotReq["voice"])
	require.Equal(t, map[string]any{
		"container":   "raw",
		"encoding":    "pcm_s16le",
		"sample_rate": float64(24000),
	}, gotReq["output_format"])
	_, err = uuid.Parse(gotReq["context_id"].(string))
	require.NoError(t, err)
}

func TestSynthesizeVoiceOverridesDefaults(t *testing.T) {
	req := testClient("wss://tts.example/tts/websocket").request("hi", Voice{ID: "v", Speed: "slow", Emotion: []string{"curiosity"}})
	raw, err := json.Marshal(req.Voice)
	require.NoError(t, err)
	require.JSONEq(t, `{"mode":"id","id":"v","speed":"slow","emotion":["curiosity"]}`, string(raw))
}

func TestSynthesizeServiceError(t *testing.T) {
	wsURL := newSynthesisTestServer(t, func(_ *http.Request, conn *websocket.Conn) {
		var req json.RawMessage
		_ = conn.ReadJSON(&req)
		_ = conn.WriteJSON(chunk([]byte{1}))
		_ = conn.WriteJSON(map[string]any{"type": "error", "error": "voice not found"})
	})

	_, err := testClient(wsURL).Synthesize(context.Background(), "hi", Voice{ID: "missing"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "voice not found")
}

func TestSynthesizeConnectionDropIsError(t *testing.T) {
	wsURL := newSynthesisTestServer(t, func(_ *http.Request, conn *websocket.Conn) {
		var req json.RawMessage
		_ = conn.ReadJSON(&req)
		_ = conn.WriteJSON(chunk([]byte{1}))
	})

	_, err := testClient(wsURL).Synthesize(context.Background(), "hi", Voice{ID: "v"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "read synthesis stream")
}

func TestSynthesizeRequiresKey(t *testing.T) {
	client := NewClient(Config{URL: "wss://tts.example/tts/websocket"}, nil)
	_, err := client.Synthesize(context.Background(), "hi", Voice{})
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestSynthesizeHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	wsURL := newSynthesisTestServer(t, func(_ *http.Request, conn *websocket.Conn) {
		var req json.RawMessage
		_ = conn.ReadJSON(&req)
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := testClient(wsURL).Synthesize(ctx, "hi", Voice{ID: "v"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAudioDuration(t *testing.T) {
	require.Equal(t, time.Second, Audio{PCM: make([]byte, 48000), SampleRate: 24000}.Duration())
	require.Zero(t, Audio{PCM: []byte{1, 2}}.Duration())
}

func TestWriteWAV(t *testing.T) {
	var buf bytes.Buffer
	pcm := []byte{0x01, 0x00, 0xff, 0x7f}
	require.NoError(t, WriteWAV(&buf, Audio{PCM: pcm, SampleRate: 24000}))

	data := buf.Bytes()
	require.Len(t, data, 44+len(pcm))
	require.Equal(t, "RIFF", string(data[0:4]))
	require.Equal(t, "WAVE", string(data[8:12]))
	require.Equal(t, "data", string(data[36:40]))
	require.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))
	require.Equal(t, uint32(24000), binary.LittleEndian.Uint32(data[24:28]))
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(data[28:32]))
	require.Equal(t, pcm, data[44:])
}
