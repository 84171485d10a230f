// Package tui is the tutor screen: the selected character, the live
// transcript, the character's spoken reply, and the conversation so far.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/subham2006/mentora/internal/character"
	"github.com/subham2006/mentora/internal/conversation"
	"github.com/subham2006/mentora/internal/fsm"
	"github.com/subham2006/mentora/internal/session"
	"github.com/subham2006/mentora/internal/voice"
)

// Session is the part of the session controller the screen drives.
type Session interface {
	Toggle(context.Context) session.Result
	Snapshot() session.Snapshot
}

// Characters is the character selector.
type Characters interface {
	Current() character.Character
	Cycle(delta int) character.Character
}

// History exposes the conversation log.
type History interface {
	Turns() []conversation.Turn
}

// Speech exposes the speaker state.
type Speech interface {
	State() voice.State
}

// Deps wires the model to the running session.
type Deps struct {
	Session    Session
	Characters Characters
	History    History
	Speech     Speech
	Feed       *Feed
}

const maxHistoryTurns = 6

// Model is the root bubbletea model.
type Model struct {
	deps Deps
	ctx  context.Context

	snapshot  session.Snapshot
	speech    voice.State
	turns     []conversation.Turn
	character character.Character

	toggling bool
	errText  string
	seenErr  string

	width  int
	height int
}

// New builds the model. ctx bounds toggle requests.
func New(ctx context.Context, deps Deps) Model {
	m := Model{deps: deps, ctx: ctx}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.deps.Feed == nil {
		return nil
	}
	return m.deps.Feed.wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshMsg:
		m.refresh()
		if m.deps.Feed == nil {
			return m, nil
		}
		return m, m.deps.Feed.wait()

	case toggleResultMsg:
		m.toggling = false
		m.refresh()
		if msg.Result.Err != nil {
			m.errText = msg.Result.Err.Error()
			return m, clearErrorAfter(5 * time.Second)
		}
		return m, nil

	case clearErrorMsg:
		m.errText = ""
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyCtrlC:
		return m, tea.Quit

	case KeyToggle:
		if m.toggling {
			return m, nil
		}
		m.toggling = true
		return m, toggleCmd(m.ctx, m.deps.Session)

	case KeyNextCharacter:
		m.character = m.deps.Characters.Cycle(1)
		return m, nil

	case KeyPrevCharacter:
		m.character = m.deps.Characters.Cycle(-1)
		return m, nil
	}
	return m, nil
}

func toggleCmd(ctx context.Context, s Session) tea.Cmd {
	return func() tea.Msg {
		return toggleResultMsg{Result: s.Toggle(ctx)}
	}
}

func clearErrorAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearErrorMsg{} })
}

func (m *Model) refresh() {
	m.snapshot = m.deps.Session.Snapshot()
	m.character = m.deps.Characters.Current()
	if m.deps.Speech != nil {
		m.speech = m.deps.Speech.State()
	}
	if m.deps.History != nil {
		m.turns = m.deps.History.Turns()
	}
	if last := m.snapshot.LastError; last != m.seenErr {
		m.seenErr = last
		if last != "" {
			m.errText = last
		}
	}
}

func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}

	sections := []string{
		m.renderHeader(),
		m.renderMic(),
		dividerStyle.Render(strings.Repeat("─", width)),
	}
	if transcript := m.renderTranscript(width); transcript != "" {
		sections = append(sections, transcript)
	}
	if m.speech.Speaking {
		sections = append(sections, m.renderBubble(width))
	}
	sections = append(sections,
		dividerStyle.Render(strings.Repeat("─", width)),
		m.renderHistory(width),
	)
	if m.errText != "" {
		sections = append(sections, errorStyle.Render("Error: ")+m.errText)
	}
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	return titleStyle.Render("EDUPAL") + dimStyle.Render(" · tutor ") + characterStyle.Render(m.character.Name)
}

func (m Model) renderMic() string {
	switch m.snapshot.State {
	case fsm.StateRecording:
		line := listeningStyle.Render("● Listening...")
		if m.snapshot.Reconnects > 0 {
			line += dimStyle.Render(fmt.Sprintf(" (reconnected %d×)", m.snapshot.Reconnects))
		}
		return line
	case fsm.StateStopping:
		return idleStyle.Render("◐ Sending to " + m.character.Name + "...")
	default:
		return idleStyle.Render("○ Press space to talk")
	}
}

func (m Model) renderTranscript(width int) string {
	if m.snapshot.State == fsm.StateIdle || m.snapshot.Transcript == "" {
		return ""
	}
	style := sentimentStyle(m.snapshot.Sentiment.Label)
	lines := wrapText(m.snapshot.Transcript, max(10, width-4))
	for i, line := range lines {
		lines[i] = "  " + style.Render(line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderBubble(width int) string {
	inner := max(10, min(width-4, 72))
	body := strings.Join(wrapText(m.speech.DisplayedText, inner-2), "\n")
	return bubbleStyle.Width(inner).Render(assistantLabelStyle.Render(m.character.Name) + "\n" + body)
}

func (m Model) renderHistory(width int) string {
	if len(m.turns) == 0 {
		return dimStyle.Render("  No conversation yet. Draw on the whiteboard and ask a question.")
	}

	turns := m.turns
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}

	textWidth := max(10, width-10)
	var lines []string
	for _, turn := range turns {
		label := userLabelStyle.Render("you")
		text := sentimentStyle(turn.Sentiment).Render
		if turn.Role == conversation.RoleAssistant {
			label = assistantLabelStyle.Render("tutor")
			text = lipgloss.NewStyle().Render
		}
		wrapped := wrapText(turn.Content, textWidth)
		lines = append(lines, "  "+padRight(label, 6)+" "+text(wrapped[0]))
		for _, w := range wrapped[1:] {
			lines = append(lines, strings.Repeat(" ", 9)+text(w))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	action := " Talk"
	if m.snapshot.State == fsm.StateRecording {
		action = " Stop"
	}
	parts := []string{
		footerKeyStyle.Render("Space") + dimStyle.Render(action),
		footerKeyStyle.Render("c/C") + dimStyle.Render(" Character"),
		footerKeyStyle.Render("q") + dimStyle.Render(" Quit"),
	}
	return strings.Join(parts, "  ")
}

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func wrapText(text string, width int) []string {
	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}
