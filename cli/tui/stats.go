package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/benchlink/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{viewType: viewType, data: data}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_runs":
		content = m.renderStatsRuns()
	case "stats_metrics":
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsRuns() string {
	data, ok := m.data.(*reader.RunStats)
	if !ok {
		return "Invalid data type for stats_runs"
	}

	title := "Batch Statistics"
	if data.Suite != "" {
		title += " (" + data.Suite + ")"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Batches", strconv.Itoa(data.Runs), highlightColor),
		renderStatBox("Scored", strconv.Itoa(data.ScoredRuns), successColor),
		renderStatBox("Nothing Scored", strconv.Itoa(data.NothingScored), warningColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Accuracy", FormatAccuracy(data.Accuracy), primaryColor),
		renderStatBox("Best", FormatAccuracy(data.BestAccuracy), successColor),
		renderStatBox("Worst", FormatAccuracy(data.WorstAccuracy), errorColor),
	))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s",
		LabelStyle.Render("Samples:"),
		ValueStyle.Render(fmt.Sprintf("%d correct of %d scored", data.SamplesCorrect, data.SamplesScored)))
	return b.String()
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*reader.MetricsSnapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Metrics for " + data.RunID))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Attempted", strconv.FormatInt(data.SamplesAttempted, 10), highlightColor),
		renderStatBox("Scored", strconv.FormatInt(data.SamplesScored, 10), successColor),
		renderStatBox("Correct", strconv.FormatInt(data.SamplesCorrect, 10), primaryColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Extraction", strconv.FormatInt(data.ExtractionFailures, 10), errorColor),
		renderStatBox("Label", strconv.FormatInt(data.LabelFailures, 10), errorColor),
		renderStatBox("Invocation", strconv.FormatInt(data.InvocationFailures, 10), errorColor),
	))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Link:"),
		ValueStyle.Render(fmt.Sprintf("%d transfers, %d short reads, %d errors", data.TransfersOK, data.ShortReads, data.ChannelErrors)))
	fmt.Fprintf(&b, "%s %s", LabelStyle.Render("Storage:"),
		ValueStyle.Render(fmt.Sprintf("%s via %s, %d/%d persisted", data.StorageBackend, data.Policy, data.ResultsPersisted, data.ResultsReceived)))
	return b.String()
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	p := tea.NewProgram(NewStatsModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders a stats view without the event loop.
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
