package runtime

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/benchlink/types"
)

const (
	idWidth   = 30
	cellWidth = 6
	ruleWidth = 65
)

// ResultTable prints one line per attempted sample and a closing summary.
type ResultTable struct {
	w     io.Writer
	ok    lipgloss.Style
	bad   lipgloss.Style
	dim   lipgloss.Style
	title lipgloss.Style
}

// NewResultTable writes to w. With color false every style renders plain.
func NewResultTable(w io.Writer, color bool) *ResultTable {
	t := &ResultTable{
		w:     w,
		ok:    lipgloss.NewStyle(),
		bad:   lipgloss.NewStyle(),
		dim:   lipgloss.NewStyle(),
		title: lipgloss.NewStyle(),
	}
	if color {
		t.ok = t.ok.Foreground(lipgloss.Color("10"))
		t.bad = t.bad.Foreground(lipgloss.Color("9"))
		t.dim = t.dim.Foreground(lipgloss.Color("8"))
		t.title = t.title.Bold(true)
	}
	return t
}

// Header prints the batch banner and the column titles.
func (t *ResultTable) Header(suite string, count int) {
	if t == nil {
		return
	}
	fmt.Fprintln(t.w, t.title.Render(fmt.Sprintf(">>> %s batch (%d samples) <<<", strings.ToUpper(suite), count)))
	fmt.Fprintf(t.w, "%-*s | %-*s | %-*s | %s\n", idWidth, "SAMPLE", cellWidth, "REAL", cellWidth, "PRED", "RESULT")
	fmt.Fprintln(t.w, strings.Repeat("-", ruleWidth))
}

// Scored prints a scored sample.
func (t *ResultTable) Scored(r types.EvaluationResult) {
	if t == nil {
		return
	}
	mark := t.ok.Render("ok")
	if !r.Correct {
		mark = t.bad.Render("miss")
	}
	fmt.Fprintf(t.w, "%-*s | %-*d | %-*d | %s\n", idWidth, r.SampleID, cellWidth, r.Label, cellWidth, r.Predicted, mark)
}

// Skipped prints a sample that was attempted but not scored.
func (t *ResultTable) Skipped(f types.SampleFailure, label int) {
	if t == nil {
		return
	}
	truth := "?"
	if label >= 0 {
		truth = fmt.Sprint(label)
	}
	fmt.Fprintf(t.w, "%-*s | %-*s | %-*s | %s\n", idWidth, f.SampleID, cellWidth, truth, cellWidth, "-",
		t.dim.Render("skipped ("+string(f.Kind)+")"))
}

// Summary prints the closing rule and the accuracy line.
func (t *ResultTable) Summary(r types.BatchReport) {
	if t == nil {
		return
	}
	fmt.Fprintln(t.w, strings.Repeat("-", ruleWidth))
	if !r.HasAccuracy() {
		fmt.Fprintf(t.w, "No samples could be scored (%d attempted).\n", r.TotalAttempted)
		return
	}
	fmt.Fprintf(t.w, "RESULT: %d out of %d scored samples correct (%d attempted).\n",
		r.CorrectCount, r.TotalScored, r.TotalAttempted)
	fmt.Fprintf(t.w, "ACCURACY: %.2f%%\n", *r.Accuracy*100)
}
