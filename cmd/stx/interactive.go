package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	statsStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const scrollback = 200

type interactiveModel struct {
	sess    *session
	input   textinput.Model
	lines   []string
	history []string
	histIdx int
	height  int
}

func newInteractiveModel(sess *session) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Prompt = promptStyle.Render("stx> ")
	ti.Width = 72
	ti.Focus()

	return &interactiveModel{
		sess:   sess,
		input:  ti,
		height: 24,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "up":
			if m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			} else {
				m.histIdx = len(m.history)
				m.input.SetValue("")
			}
			return m, nil

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.history = append(m.history, line)
			m.histIdx = len(m.history)
			m.execute(line)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) execute(line string) {
	m.push(commandStyle.Render("> " + line))

	out, err := m.sess.exec(line)
	if out != "" {
		style := resultStyle
		if strings.HasPrefix(line, "stats") {
			style = statsStyle
			out = strings.ReplaceAll(out, " ", "\n")
		}
		m.push(style.Render(out))
	}
	if err != nil {
		m.push(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
	}
}

func (m *interactiveModel) push(block string) {
	m.lines = append(m.lines, strings.Split(block, "\n")...)
	if over := len(m.lines) - scrollback; over > 0 {
		m.lines = m.lines[over:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("STX"))
	b.WriteString(" ")
	b.WriteString(m.sess.backend)
	b.WriteString(" backend\n\n")

	room := max(m.height-6, 1)
	lines := m.lines
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter run • ↑/↓ history • help commands • esc quit"))

	return b.String()
}

func runInteractive(ctx context.Context, sess *session) error {
	p := tea.NewProgram(newInteractiveModel(sess), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
