// Package transcription streams microphone audio to a speech-to-text service
// over WebSocket and surfaces the replies as an ordered event stream.
package transcription

// Kind discriminates the Event union.
type Kind string

const (
	KindSegment Kind = "segment"
	KindClosed  Kind = "closed"
	KindError   Kind = "error"
)

// NeutralLabel is reported when the service omits a sentiment reading.
const NeutralLabel = "neutral"

// Sentiment is one sentiment reading as reported by the service.
type Sentiment struct {
	Label string
	Score float64
}

// Neutral returns the default sentiment.
func Neutral() Sentiment {
	return Sentiment{Label: NeutralLabel}
}

// Event is one item of the channel's output stream.
//
// A stream carries zero or more segments followed by exactly one closed or
// error event, after which the events channel is closed.
type Event struct {
	Kind       Kind
	Transcript string
	Sentiment  Sentiment
	Err        error
	// Expected is set on a closed event that followed a local Close.
	Expected bool
}

// Segment builds a segment event.
func Segment(text string, sentiment Sentiment) Event {
	return Event{Kind: KindSegment, Transcript: text, Sentiment: sentiment}
}

// Closed builds a closed event.
func Closed(expected bool) Event {
	return Event{Kind: KindClosed, Expected: expected}
}

// Failed builds an error event.
func Failed(err error) Event {
	return Event{Kind: KindError, Err: err}
}
