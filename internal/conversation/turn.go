// Package conversation keeps the append-only record of tutoring turns.
package conversation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a stored role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleUser, RoleAssistant:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Turn is immutable once created.
type Turn struct {
	ID             string
	SessionID      string
	Role           Role
	Content        string
	Sentiment      string
	SentimentScore float64
	CreatedAt      time.Time
}

// NewTurn stamps a fresh ID and creation time.
func NewTurn(sessionID string, role Role, content string, sentiment string, score float64) Turn {
	return Turn{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		Role:           role,
		Content:        content,
		Sentiment:      sentiment,
		SentimentScore: score,
		CreatedAt:      time.Now().UTC(),
	}
}
