package conversation

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Persister durably records appended turns.
type Persister interface {
	Insert(ctx context.Context, turn Turn) error
	List(ctx context.Context, limit int) ([]Turn, error)
}

// Log is the in-process conversation history. Insertion order is
// chronological order; turns are never mutated or removed.
type Log struct {
	store Persister

	mu        sync.RWMutex
	turns     []Turn
	observers []func(Turn)
}

// NewLog returns an empty log. store may be nil.
func NewLog(store Persister) *Log {
	return &Log{store: store}
}

// Restore loads up to limit persisted turns ahead of anything appended
// since. Turns already in memory are not loaded twice. limit <= 0 loads all.
func (l *Log) Restore(ctx context.Context, limit int) error {
	if l.store == nil {
		return nil
	}
	fetch := 0
	if limit > 0 {
		fetch = limit + l.Len()
	}
	history, err := l.store.List(ctx, fetch)
	if err != nil {
		return fmt.Errorf("restore conversation: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	known := make(map[string]struct{}, len(l.turns))
	for _, t := range l.turns {
		known[t.ID] = struct{}{}
	}
	history = slices.DeleteFunc(history, func(t Turn) bool {
		_, ok := known[t.ID]
		return ok
	})
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	l.turns = append(history, l.turns...)
	return nil
}

// Append records turn in memory, then persists it. A persistence error is
// returned but the turn stays in the in-memory log.
func (l *Log) Append(ctx context.Context, turn Turn) error {
	l.mu.Lock()
	l.turns = append(l.turns, turn)
	observers := slices.Clone(l.observers)
	l.mu.Unlock()

	for _, fn := range observers {
		fn(turn)
	}

	if l.store == nil {
		return nil
	}
	if err := l.store.Insert(ctx, turn); err != nil {
		return fmt.Errorf("persist turn %s: %w", turn.ID, err)
	}
	return nil
}

// Turns returns a copy of the history.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Turn(nil), l.turns...)
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Subscribe registers fn for every subsequent Append.
func (l *Log) Subscribe(fn func(Turn)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}
