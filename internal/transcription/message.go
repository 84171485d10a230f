package transcription

import (
	"encoding/json"
	"fmt"
	"strings"
)

type inboundMessage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Channel     struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
	Sentiments struct {
		Average struct {
			Sentiment      string  `json:"sentiment"`
			SentimentScore float64 `json:"sentiment_score"`
		} `json:"average"`
	} `json:"sentiments"`
}

// parseMessage decodes one inbound text frame. ok is false for frames that
// carry no transcript result (metadata, speech markers, utterance ends).
func parseMessage(data []byte) (Event, bool, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false, fmt.Errorf("decode transcription message: %w", err)
	}

	switch msg.Type {
	case "", "Results":
	case "Error":
		return Failed(fmt.Errorf("transcription service error: %s", msg.Description)), true, nil
	default:
		return Event{}, false, nil
	}

	var text string
	if len(msg.Channel.Alternatives) > 0 {
		text = msg.Channel.Alternatives[0].Transcript
	}

	sentiment := Neutral()
	if label := strings.TrimSpace(msg.Sentiments.Average.Sentiment); label != "" {
		sentiment.Label = label
	}
	sentiment.Score = msg.Sentiments.Average.SentimentScore

	return Segment(text, sentiment), true, nil
}
