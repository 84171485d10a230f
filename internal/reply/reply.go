// Package reply produces the tutor's spoken answer to a finished session.
package reply

import (
	"context"
	"strings"

	"github.com/subham2006/mentora/internal/conversation"
)

// Request is everything a responder may use to answer.
type Request struct {
	Transcript string
	Image      []byte
	Character  string
	History    []conversation.Turn
}

// Responder produces the assistant reply. Implementations never return an
// empty string with a nil error.
type Responder interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// Fallback always answers with Text.
type Fallback struct {
	Text string
}

// Reply returns the fixed text.
func (f Fallback) Reply(context.Context, Request) (string, error) {
	return strings.TrimSpace(f.Text), nil
}
