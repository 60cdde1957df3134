package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"math-with-slack/internal/locate"
)

type pickerModel struct {
	candidates []locate.Target
	cursor     int
	input      textinput.Model
	chosen     int
	canceled   bool
	message    string
}

func newPickerModel(candidates []locate.Target) pickerModel {
	input := textinput.New()
	input.Prompt = "number: "
	input.Placeholder = "enter to use the highlighted install"
	input.CharLimit = 4
	input.Width = 40
	input.Focus()
	return pickerModel{
		candidates: candidates,
		input:      input,
		chosen:     -1,
	}
}

func pickInstall(candidates []locate.Target) (int, error) {
	if !stdinIsTTY() {
		return 0, errors.New("--pick requires an interactive terminal (TTY); use --index <n> instead")
	}
	final, err := tea.NewProgram(newPickerModel(candidates)).Run()
	if err != nil {
		return 0, err
	}
	m, ok := final.(pickerModel)
	if !ok || m.canceled || m.chosen < 0 {
		return 0, errors.New("no Slack install selected")
	}
	return m.chosen, nil
}

func (m pickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.canceled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.choose()
	}

	if key.Type == tea.KeyRunes {
		for _, r := range key.Runes {
			if r < '0' || r > '9' {
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.message = ""
	return m, cmd
}

func (m pickerModel) choose() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.input.Value())
	if raw == "" {
		m.chosen = m.cursor
		return m, tea.Quit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > len(m.candidates) {
		m.message = fmt.Sprintf("enter a number between 1 and %d", len(m.candidates))
		m.input.SetValue("")
		return m, nil
	}
	m.chosen = n - 1
	m.cursor = m.chosen
	return m, tea.Quit
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Choose a Slack install"))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("up/down: move | type a number | enter: select | esc: cancel"))
	b.WriteString("\n\n")
	for i, c := range m.candidates {
		line := fmt.Sprintf("%d. %s", i+1, describeTarget(c))
		if i == m.cursor {
			line = selStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(errorStyle.Render(m.message))
		b.WriteString("\n")
	}
	return b.String()
}
