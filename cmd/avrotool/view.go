package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/avro-runtime/codec"
	"github.com/wippyai/avro-runtime/valuefmt"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	detailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const pageSize = 20

type viewState int

const (
	stateList viewState = iota
	stateFilter
	stateDetail
)

type viewModel struct {
	err      error
	app      *app
	filename string
	schema   string
	values   []any
	visible  []int
	filter   textinput.Model
	where    string
	selected int
	state    viewState
}

type valuesLoadedMsg struct {
	err    error
	schema string
	values []any
}

func newViewModel(a *app, filename string) *viewModel {
	ti := textinput.New()
	ti.Placeholder = "expression, e.g. age > 30"
	ti.Prompt = "where: "
	ti.Width = 60
	return &viewModel{app: a, filename: filename, filter: ti, state: stateList}
}

func (m *viewModel) Init() tea.Cmd {
	return m.load
}

func (m *viewModel) load() tea.Msg {
	vals, c, err := m.app.readFile(context.Background(), m.filename, m.app.cfg.Workers)
	if err != nil {
		return valuesLoadedMsg{err: err}
	}
	trees := make([]any, len(vals))
	for i, v := range vals {
		if trees[i], err = codec.ValueToJSON(c, v); err != nil {
			return valuesLoadedMsg{err: err}
		}
	}
	return valuesLoadedMsg{schema: c.Schema().TypeName(), values: trees}
}

// applyFilter recomputes the visible rows for the current expression.
func (m *viewModel) applyFilter() {
	m.visible = m.visible[:0]
	var flt *filter
	if m.where != "" {
		var err error
		if flt, err = newFilter(m.where); err != nil {
			m.err = err
			return
		}
	}
	m.err = nil
	for i, v := range m.values {
		if flt != nil {
			ok, err := flt.match(v)
			if err != nil {
				m.err = err
				return
			}
			if !ok {
				continue
			}
		}
		m.visible = append(m.visible, i)
	}
	m.selected = 0
}

func (m *viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			switch msg.String() {
			case "enter":
				m.where = strings.TrimSpace(m.filter.Value())
				m.filter.Blur()
				m.state = stateList
				m.applyFilter()
				return m, nil
			case "esc":
				m.filter.Blur()
				m.state = stateList
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "pgdown":
			if m.state == stateList {
				m.selected = min(m.selected+pageSize, max(len(m.visible)-1, 0))
			}

		case "pgup":
			if m.state == stateList {
				m.selected = max(m.selected-pageSize, 0)
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.SetValue(m.where)
				return m, m.filter.Focus()
			}

		case "enter":
			switch m.state {
			case stateList:
				if len(m.visible) > 0 {
					m.state = stateDetail
				}
			case stateDetail:
				m.state = stateList
			}

		case "esc":
			m.state = stateList
		}

	case valuesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.schema = msg.schema
		m.values = msg.values
		m.applyFilter()
	}
	return m, nil
}

// summary renders v on one line, cut to width.
func summary(v any, width int) string {
	data, err := valuefmt.Marshal(valuefmt.JSON, v)
	if err != nil {
		return err.Error()
	}
	s := string(data)
	if r := []rune(s); len(r) > width {
		s = string(r[:width-1]) + "…"
	}
	return s
}

func (m *viewModel) View() string {
	if m.values == nil && m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.values == nil {
		return "Loading values..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Avro Viewer"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.schema))
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		fmt.Fprintf(&b, "%d of %d values", len(m.visible), len(m.values))
		if m.where != "" {
			fmt.Fprintf(&b, " where %s", m.where)
		}
		b.WriteString("\n\n")
		start := max(0, min(m.selected-pageSize/2, len(m.visible)-pageSize))
		end := min(start+pageSize, len(m.visible))
		for row := start; row < end; row++ {
			line := fmt.Sprintf("%6d  %s", m.visible[row], summary(m.values[m.visible[row]], 90))
			if row == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(m.err.Error()))
			b.WriteString("\n")
		}
		if m.state == stateFilter {
			b.WriteString(m.filter.View())
			b.WriteString("\n")
			b.WriteString(helpStyle.Render("enter apply • esc cancel"))
		} else {
			b.WriteString(helpStyle.Render("↑/↓ select • enter show • / filter • q quit"))
		}

	case stateDetail:
		idx := m.visible[m.selected]
		fmt.Fprintf(&b, "Value %d:\n\n", idx)
		data, err := valuefmt.Marshal(valuefmt.YAML, m.values[idx])
		if err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		} else {
			b.WriteString(detailStyle.Render(string(data)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))
	}
	return b.String()
}

func runView(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("view")
	a, files, err := setup(out, fs, cfgPath, args, "view FILE", 1)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("view needs a terminal; use avrotool cat instead")
	}
	p := tea.NewProgram(newViewModel(a, files[0]), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
