package picker

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/sadopc/apitester/internal/core/request"
)

const maxVisible = 15

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#cba6f7")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#585b70"))
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")).Bold(true)
)

// Model is a fuzzy history picker. Typing filters entries by method and
// URL; enter selects and esc cancels.
type Model struct {
	input    textinput.Model
	entries  []request.Record
	labels   []string
	filtered []int
	cursor   int

	selected  *request.Record
	cancelled bool
}

// New creates a picker over entries, which are shown in the given order.
func New(entries []request.Record) Model {
	ti := textinput.New()
	ti.Placeholder = "Filter history..."
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()

	labels := make([]string, len(entries))
	all := make([]int, len(entries))
	for i, e := range entries {
		labels[i] = label(e)
		all[i] = i
	}
	return Model{
		input:    ti,
		entries:  entries,
		labels:   labels,
		filtered: all,
	}
}

func label(e request.Record) string {
	s := string(e.Method) + " " + e.URL
	if e.Name != "" {
		s += " " + e.Name
	}
	return s
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		case "enter":
			if len(m.filtered) == 0 {
				return m, nil
			}
			rec := m.entries[m.filtered[m.cursor]]
			m.selected = &rec
			return m, tea.Quit
		case "up", "ctrl+p":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter()
	return m, cmd
}

func (m *Model) filter() {
	query := m.input.Value()
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
	} else {
		matches := fuzzy.Find(query, m.labels)
		m.filtered = make([]int, len(matches))
		for i, match := range matches {
			m.filtered[i] = match.Index
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.selected != nil || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Replay from history"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(mutedStyle.Render("  no matches"))
		b.WriteString("\n")
	}

	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(m.filtered))
	for i := start; i < end; i++ {
		line := fmt.Sprintf("%3d  %s", m.filtered[i]+1, m.labels[m.filtered[i]])
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter select • esc cancel • ↑/↓ move"))
	return b.String()
}

// Selected returns the chosen entry, if any.
func (m Model) Selected() (request.Record, bool) {
	if m.selected == nil {
		return request.Record{}, false
	}
	return *m.selected, true
}

// Run shows the picker on out, reading keys from in, and returns the chosen
// entry. ok is false when the user cancelled.
func Run(entries []request.Record, in io.Reader, out io.Writer) (rec request.Record, ok bool, err error) {
	p := tea.NewProgram(New(entries), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return request.Record{}, false, err
	}
	rec, ok = final.(Model).Selected()
	return rec, ok, nil
}
