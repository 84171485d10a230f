package tui

import "github.com/subham2006/mentora/internal/session"

// refreshMsg means session, speech, or history state changed.
type refreshMsg struct{}

// toggleResultMsg carries the outcome of a space-bar toggle.
type toggleResultMsg struct {
	Result session.Result
}

// clearErrorMsg hides a transient error.
type clearErrorMsg struct{}
