package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/teachctl/internal/command"
	"github.com/danmuck/teachctl/internal/dispatch"
)

const poseRefreshInterval = 250 * time.Millisecond

// Dispatcher is the subset of *dispatch.Dispatcher the console uses.
type Dispatcher interface {
	Dispatch(ctx context.Context, action dispatch.Action) dispatch.Ack
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF")).
			MarginBottom(1)
	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 2).
			MarginRight(1)
	focusedButtonStyle = buttonStyle.
				BorderForeground(lipgloss.Color("#F7B801")).
				Bold(true)
	poseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	busyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
)

type button struct {
	action dispatch.Action
	label  string
}

var buttons = []button{
	{action: dispatch.ActionReset, label: "reset ghost"},
	{action: dispatch.ActionMatch, label: "match ghost"},
}

type ackMsg dispatch.Ack

type poseTickMsg time.Time

// Model is the console state.
type Model struct {
	ctx        context.Context
	dispatcher Dispatcher
	poses      command.PoseSource
	title      string

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	focus   int
	pending map[dispatch.Action]bool
	last    *dispatch.Ack
	seq     uint64
	pose    []float64
	width   int
}

func New(ctx context.Context, d Dispatcher, poses command.PoseSource, title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle
	return Model{
		ctx:        ctx,
		dispatcher: d,
		poses:      poses,
		title:      title,
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		pending:    make(map[dispatch.Action]bool),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickPose())
}

func tickPose() tea.Cmd {
	return tea.Tick(poseRefreshInterval, func(t time.Time) tea.Msg {
		return poseTickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reset):
			return m.press(dispatch.ActionReset)
		case key.Matches(msg, m.keys.Match):
			return m.press(dispatch.ActionMatch)
		case key.Matches(msg, m.keys.Next):
			m.focus = (m.focus + 1) % len(buttons)
			return m, nil
		case key.Matches(msg, m.keys.Press):
			return m.press(buttons[m.focus].action)
		}
		return m, nil

	case ackMsg:
		ack := dispatch.Ack(msg)
		if !ack.Busy {
			m.pending[ack.Action] = false
		}
		m.last = &ack
		return m, nil

	case poseTickMsg:
		if m.poses != nil {
			snap := m.poses.Read()
			m.seq = snap.Header.Seq
			m.pose = snap.Positions
		}
		return m, tickPose()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil
	}
	return m, nil
}

// press marks action pending and hands it to the dispatcher. A second press
// while pending still reaches the dispatcher, which answers busy.
func (m Model) press(action dispatch.Action) (tea.Model, tea.Cmd) {
	for i, b := range buttons {
		if b.action == action {
			m.focus = i
		}
	}
	m.pending[action] = true
	ctx, d := m.ctx, m.dispatcher
	return m, func() tea.Msg {
		return ackMsg(d.Dispatch(ctx, action))
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	rendered := make([]string, 0, len(buttons))
	for i, btn := range buttons {
		label := btn.label
		if m.pending[btn.action] {
			label = m.spinner.View() + " " + label
		}
		style := buttonStyle
		if i == m.focus {
			style = focusedButtonStyle
		}
		rendered = append(rendered, style.Render(label))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")

	b.WriteString(poseStyle.Render(m.poseLine()))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) poseLine() string {
	if m.seq == 0 {
		return "ghost: waiting for pose"
	}
	parts := make([]string, len(m.pose))
	for i, p := range m.pose {
		parts[i] = fmt.Sprintf("%.3f", p)
	}
	return fmt.Sprintf("ghost #%d [%s]", m.seq, strings.Join(parts, " "))
}

func (m Model) statusLine() string {
	if m.last == nil {
		return "ready"
	}
	ack := m.last
	switch {
	case ack.Busy:
		return busyStyle.Render(fmt.Sprintf("%s busy: %s", ack.Action, ack.Detail))
	case ack.OK:
		return okStyle.Render(fmt.Sprintf("%s ok", ack.Action)) + " " + ack.Detail
	default:
		return failStyle.Render(fmt.Sprintf("%s failed", ack.Action)) + " " + ack.Detail
	}
}

// Run owns the terminal until the operator quits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
