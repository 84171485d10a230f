package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newTranscriptionTestServer(t *testing.T, handler func(r *http.Request, conn *websocket.Conn)) string {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(r, conn)
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/listen"
}

func testConfig(u string) Config {
	return Config{
		URL:         u,
		APIKey:      "dg-test",
		Model:       "nova-3",
		Language:    "en-US",
		Sentiment:   true,
		SampleRate:  16000,
		DialTimeout: 2 * time.Second,
		CloseGrace:  time.Second,
	}
}

func result(text string, label string, score float64) map[string]any {
	return map[string]any{
		"type":       "Results",
		"channel":    map[string]any{"alternatives": []any{map[string]any{"transcript": text}}},
		"sentiments": map[string]any{"average": map[string]any{"sentiment": label, "sentiment_score": score}},
	}
}

func nextEvent(t *testing.T, ch *Channel) Event {
	t.Helper()
	select {
	case ev, ok := <-ch.Events():
		require.True(t, ok, "events closed early")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transcription event")
		return Event{}
	}
}

func requireEventsClosed(t *testing.T, ch *Channel) {
	t.Helper()
	select {
	case _, ok := <-ch.Events():
		require.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("events channel not closed")
	}
}

func TestEndpointCarriesAudioFormat(t *testing.T) {
	raw, err := Endpoint(testConfig("wss://stt.example/v1/listen?tier=edu"))
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "edu", q.Get("tier"))
	require.Equal(t, "nova-3", q.Get("model"))
	require.Equal(t, "en-US", q.Get("language"))
	require.Equal(t, "linear16", q.Get("encoding"))
	require.Equal(t, "16000", q.Get("sample_rate"))
	require.Equal(t, "1", q.Get("channels"))
	require.Equal(t, "true", q.Get("sentiment"))
	require.Equal(t, "false", q.Get("interim_results"))
}

func TestDialRequiresAPIKey(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1/v1/listen")
	cfg.APIKey = ""
	_, err := Dial(context.Background(), cfg, nil)
	require.ErrorIs(t, err, ErrMissingKey)
}

func TestDialReportsHandshakeStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := Dial(context.Background(), testConfig("ws"+strings.TrimPrefix(server.URL, "http")), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
}

func TestChannelStreamsSegmentsAndFlushesOnClose(t *testing.T) {
	gotAudio := make(chan []byte, 4)
	gotAuth := make(chan string, 1)

	wsURL := newTranscriptionTestServer(t, func(r *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		gotAuth <- r.Header.Get("Authorization")

		typ, data, err := conn.ReadMessage()
		if err != nil || typ != websocket.BinaryMessage {
			return
		}
		gotAudio <- data

		_ = conn.WriteJSON(map[string]any{"type": "Metadata"})
		_ = conn.WriteJSON(result("Hello ", "positive", 0.4))
		_ = conn.WriteJSON(result("world", "neutral", 0.1))

		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if typ == websocket.TextMessage && strings.Contains(string(data), "CloseStream") {
				break
			}
		}
		_ = conn.WriteJSON(result("again", "negative", -0.3))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	ch, err := Dial(context.Background(), testConfig(wsURL), nil)
	require.NoError(t, err)

	require.NoError(t, ch.Send([]byte{1, 2, 3, 4}))
	require.Equal(t, "Token dg-test", <-gotAuth)
	require.Equal(t, []byte{1, 2, 3, 4}, <-gotAudio)

	require.Equal(t, Segment("Hello ", Sentiment{Label: "positive", Score: 0.4}), nextEvent(t, ch))
	require.Equal(t, Segment("world", Sentiment{Label: "neutral", Score: 0.1}), nextEvent(t, ch))

	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Send([]byte{9, 9}), "sends after close are dropped")

	require.Equal(t, "again", nextEvent(t, ch).Transcript)
	require.Equal(t, Closed(true), nextEvent(t, ch))
	requireEventsClosed(t, ch)
}

func TestChannelUnexpectedNormalCloseIsNotExpected(t *testing.T) {
	wsURL := newTranscriptionTestServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "idle timeout"))
		time.Sleep(100 * time.Millisecond)
	})

	ch, err := Dial(context.Background(), testConfig(wsURL), nil)
	require.NoError(t, err)

	require.Equal(t, Closed(false), nextEvent(t, ch))
	requireEventsClosed(t, ch)
	require.ErrorIs(t, ch.Send([]byte{1}), ErrClosed)
}

func TestChannelAbruptDisconnectIsError(t *testing.T) {
	wsURL := newTranscriptionTestServer(t, func(_ *http.Request, conn *websocket.Conn) {
		_ = conn.WriteJSON(result("half a sen", "neutral", 0))
		_ = conn.UnderlyingConn().Close()
	})

	ch, err := Dial(context.Background(), testConfig(wsURL), nil)
	require.NoError(t, err)

	require.Equal(t, "half a sen", nextEvent(t, ch).Transcript)
	ev := nextEvent(t, ch)
	require.Equal(t, KindError, ev.Kind)
	require.Error(t, ev.Err)
	requireEventsClosed(t, ch)
}

func TestChannelCloseGraceTearsDownSilentServer(t *testing.T) {
	wsURL := newTranscriptionTestServer(t, func(_ *http.Request, conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := testConfig(wsURL)
	cfg.CloseGrace = 50 * time.Millisecond
	ch, err := Dial(context.Background(), cfg, nil)
	require.NoError(t, err)

	require.NoError(t, ch.Close())
	require.Equal(t, Closed(true), nextEvent(t, ch))
	requireEventsClosed(t, ch)
}
