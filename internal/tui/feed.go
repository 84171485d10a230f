package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Feed coalesces change notifications from the session loop and the
// speaker into refreshes of the screen. Notify never blocks.
type Feed struct {
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewFeed() *Feed {
	return &Feed{signal: make(chan struct{}, 1), done: make(chan struct{})}
}

// Notify schedules a refresh.
func (f *Feed) Notify() {
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Close releases a pending wait.
func (f *Feed) Close() {
	f.once.Do(func() { close(f.done) })
}

func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-f.signal:
			return refreshMsg{}
		case <-f.done:
			return nil
		}
	}
}
