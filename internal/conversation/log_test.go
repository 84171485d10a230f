package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	turns     []Turn
	insertErr error
}

func (m *memoryStore) Insert(_ context.Context, t Turn) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.turns = append(m.turns, t)
	return nil
}

func (m *memoryStore) List(_ context.Context, limit int) ([]Turn, error) {
	if limit <= 0 || limit > len(m.turns) {
		limit = len(m.turns)
	}
	return append([]Turn(nil), m.turns[len(m.turns)-limit:]...), nil
}

func TestNewTurnStampsIdentity(t *testing.T) {
	turn := NewTurn("session-1", RoleUser, "Hello world", "positive", 0.5)
	_, err := uuid.Parse(turn.ID)
	require.NoError(t, err)
	require.False(t, turn.CreatedAt.IsZero())
	require.Equal(t, RoleUser, turn.Role)
	require.NotEqual(t, turn.ID, NewTurn("session-1", RoleUser, "x", "neutral", 0).ID)
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("assistant")
	require.NoError(t, err)
	require.Equal(t, RoleAssistant, role)

	_, err = ParseRole("system")
	require.Error(t, err)
}

func TestLogAppendPreservesOrderAndNotifies(t *testing.T) {
	store := &memoryStore{}
	log := NewLog(store)

	var seen []string
	log.Subscribe(func(turn Turn) { seen = append(seen, turn.Content) })

	first := NewTurn("s1", RoleUser, "first", "neutral", 0)
	second := NewTurn("s2", RoleUser, "second", "negative", -0.4)
	require.NoError(t, log.Append(context.Background(), first))
	require.NoError(t, log.Append(context.Background(), second))

	require.Equal(t, []Turn{first, second}, log.Turns())
	require.Equal(t, 2, log.Len())
	require.Equal(t, []string{"first", "second"}, seen)
	require.Equal(t, []Turn{first, second}, store.turns)
}

func TestLogTurnsReturnsCopy(t *testing.T) {
	log := NewLog(nil)
	require.NoError(t, log.Append(context.Background(), NewTurn("s", RoleUser, "original", "neutral", 0)))

	turns := log.Turns()
	turns[0].Content = "mutated"
	require.Equal(t, "original", log.Turns()[0].Content)
}

func TestLogAppendKeepsTurnWhenPersistFails(t *testing.T) {
	log := NewLog(&memoryStore{insertErr: errors.New("disk full")})

	err := log.Append(context.Background(), NewTurn("s", RoleUser, "kept", "neutral", 0))
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, 1, log.Len())
}

func TestLogRestorePrependsHistory(t *testing.T) {
	old := NewTurn("old", RoleUser, "yesterday", "neutral", 0)
	store := &memoryStore{turns: []Turn{old}}
	log := NewLog(store)

	fresh := NewTurn("new", RoleUser, "today", "neutral", 0)
	require.NoError(t, log.Append(context.Background(), fresh))
	require.NoError(t, log.Restore(context.Background(), 1))

	require.Equal(t, []Turn{old, fresh}, log.Turns())
	require.NoError(t, NewLog(nil).Restore(context.Background(), 10))
}

func TestLogRestoreSkipsTurnsAlreadyInMemory(t *testing.T) {
	older := NewTurn("a", RoleUser, "monday", "neutral", 0)
	old := NewTurn("b", RoleAssistant, "tuesday", "", 0)
	store := &memoryStore{turns: []Turn{older, old}}
	log := NewLog(store)

	first := NewTurn("c", RoleUser, "today", "neutral", 0)
	second := NewTurn("c", RoleAssistant, "answer", "", 0)
	require.NoError(t, log.Append(context.Background(), first))
	require.NoError(t, log.Append(context.Background(), second))
	require.NoError(t, log.Restore(context.Background(), 0))

	require.Equal(t, []Turn{older, old, first, second}, log.Turns())
}

func TestLogRestoreLimitCountsOnlyPersistedHistory(t *testing.T) {
	older := NewTurn("a", RoleUser, "monday", "neutral", 0)
	old := NewTurn("b", RoleUser, "tuesday", "neutral", 0)
	store := &memoryStore{turns: []Turn{older, old}}
	log := NewLog(store)

	fresh := NewTurn("c", RoleUser, "today", "neutral", 0)
	require.NoError(t, log.Append(context.Background(), fresh))
	require.NoError(t, log.Restore(context.Background(), 1))

	require.Equal(t, []Turn{old, fresh}, log.Turns())
}
