// Package ui implements the terminal surface for the editor: a two-region
// display where line one shows the live document text, line two shows
// the last error, and the cursor sits at a visible column the engine
// never sees directly. It is styled with Bubble Tea / Lip Gloss.
package ui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/woot-crdt/wootedit/woot"
)

var (
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Sender ships a completed local operation to the peer. Model.Update
// returns a tea.Cmd that calls Send on its own goroutine, off the
// render path.
type Sender interface {
	Send(op woot.Operation) error
}

// remoteAppliedMsg is posted (via tea.Program.Send, from the network
// inbound side) after a remote operation is integrated, purely to force
// a repaint.
type remoteAppliedMsg struct{}

// RemoteApplied is the tea.Msg the caller should Send to the running
// tea.Program whenever the network layer integrates an inbound operation.
func RemoteApplied() tea.Msg { return remoteAppliedMsg{} }

type sendResultMsg struct{ err error }

// Model is the root Bubble Tea model driving the editor's terminal surface.
type Model struct {
	site   *woot.Site
	sender Sender
	log    *slog.Logger

	px     int // 0-based cursor column == count of visible chars to its left
	errMsg string
	cursor cursor.Model
}

// New builds a Model bound to site, shipping locally generated operations
// through sender.
func New(site *woot.Site, sender Sender, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	c := cursor.New()
	c.Focus()
	c.SetChar(" ")
	return Model{site: site, sender: sender, log: logger, cursor: c}
}

func (m Model) Init() tea.Cmd {
	return m.cursor.BlinkCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case remoteAppliedMsg:
		return m, nil

	case sendResultMsg:
		if msg.err != nil {
			m.log.Warn("send failed", "err", msg.err)
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.cursor, cmd = m.cursor.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		return m, nil

	case tea.KeyLeft, tea.KeyCtrlB:
		if m.px > 0 {
			m.px--
		}
		return m, nil

	case tea.KeyRight, tea.KeyCtrlF:
		m.px++
		if max := len([]rune(m.site.Text())); m.px > max {
			m.px = max
		}
		return m, nil

	case tea.KeyBackspace, tea.KeyCtrlH:
		op, err := m.site.GenerateDel(m.px)
		cmd := m.afterLocalOp(op, err)
		if m.px > 0 {
			m.px--
		}
		return m, cmd
	}

	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
		r := msg.Runes[0]
		if r >= 'a' && r <= 'z' {
			m.px++
			op, err := m.site.GenerateIns(m.px, string(r))
			return m, m.afterLocalOp(op, err)
		}
	}

	return m, nil
}

// afterLocalOp records/clears the error line and, on success, returns a
// tea.Cmd that ships op to the peer on its own goroutine.
func (m *Model) afterLocalOp(op woot.Operation, err error) tea.Cmd {
	if err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.errMsg = ""
	sender := m.sender
	return func() tea.Msg {
		return sendResultMsg{err: sender.Send(op)}
	}
}

func (m Model) View() string {
	text := []rune(m.site.Text())
	px := m.px
	if px > len(text) {
		px = len(text)
	}

	before := string(text[:px])
	var cursorChar string
	var after string
	if px < len(text) {
		cursorChar = string(text[px])
		after = string(text[px+1:])
	} else {
		cursorChar = " "
	}
	m.cursor.SetChar(cursorChar)

	line1 := textStyle.Render(before) + m.cursor.View() + textStyle.Render(after)

	line2 := dimStyle.Render("error: ")
	if m.errMsg != "" {
		line2 = errorStyle.Render(fmt.Sprintf("error: %s", m.errMsg))
	}

	return line1 + "\n" + line2
}
