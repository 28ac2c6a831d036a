package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/benchlink/cli/reader"
)

const timeLayout = "2006-01-02 15:04:05"

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	samples  table.Model
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	m := InspectModel{viewType: viewType, data: data}
	if run, ok := data.(*reader.InspectRunResponse); ok {
		m.samples = newSampleTable(run.Samples)
	}
	return m
}

func newSampleTable(samples []reader.SampleRow) table.Model {
	cols := []table.Column{
		{Title: "Seq", Width: 5},
		{Title: "Sample", Width: 18},
		{Title: "Label", Width: 6},
		{Title: "Pred", Width: 6},
		{Title: "Result", Width: 22},
	}
	rows := make([]table.Row, 0, len(samples))
	for _, s := range samples {
		pred := "-"
		if s.Predicted != nil {
			pred = strconv.Itoa(*s.Predicted)
		}
		rows = append(rows, table.Row{
			strconv.Itoa(s.Seq),
			s.SampleID,
			strconv.Itoa(s.Label),
			pred,
			sampleResult(s),
		})
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 15)),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(mutedColor).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#FFFFFF")).Background(primaryColor)
	t.SetStyles(styles)
	return t
}

func sampleResult(s reader.SampleRow) string {
	switch {
	case s.Failure != "":
		return s.Failure
	case s.Correct:
		return "correct"
	default:
		return "wrong"
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.samples, cmd = m.samples.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "inspect_run":
		content = m.renderInspectRun()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("↑/↓ scroll samples • q quit")
	return content + "\n" + help
}

func (m InspectModel) renderInspectRun() string {
	data, ok := m.data.(*reader.InspectRunResponse)
	if !ok {
		return "Invalid data type for inspect_run"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Batch " + data.RunID))
	b.WriteString("\n")

	field := func(label, value string, style lipgloss.Style) {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render(label+":"), style.Render(value))
	}
	field("Suite", data.Suite, ValueStyle)
	if data.Model != "" {
		field("Model", data.Model, ValueStyle)
	}
	field("Attempt", strconv.Itoa(data.Attempt), ValueStyle)
	field("Started", data.StartedAt.Format(timeLayout), ValueStyle)
	field("Duration", data.FinishedAt.Sub(data.StartedAt).String(), ValueStyle)
	field("Scored", fmt.Sprintf("%d of %d attempted", data.Scored, data.Attempted), ValueStyle)
	field("Correct", strconv.Itoa(data.Correct), ValueStyle)
	field("Accuracy", FormatAccuracy(data.Accuracy), AccuracyStyle(data.Accuracy))

	if mt := data.Metrics; mt != nil {
		b.WriteString("\n")
		field("Transfers", fmt.Sprintf("%d ok, %d short, %d errors", mt.TransfersOK, mt.ShortReads, mt.ChannelErrors), ValueStyle)
		field("Persisted", fmt.Sprintf("%d of %d (%s)", mt.ResultsPersisted, mt.ResultsReceived, mt.Policy), ValueStyle)
	}

	header := BoxStyle.Render(b.String())
	if len(data.Samples) == 0 {
		return header
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.samples.View())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	p := tea.NewProgram(NewInspectModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders an inspect view without the event loop.
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
