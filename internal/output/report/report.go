// Package report renders an analysis as a human-readable terminal report:
// a summary, the non-conformity table, and bar charts per type and per guard.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/crimson-sun/patrolaudit/internal/engine/compactor"
	"github.com/crimson-sun/patrolaudit/internal/model"
	"github.com/crimson-sun/patrolaudit/internal/output"
)

const (
	colStamp   = 20
	colGuard   = 12
	colType    = 38
	defaultBar = 30
)

// Option configures a report Output.
type Option func(*Output)

// WithDateLayout sets the time layout for the table's first column.
// Default: "01/02/2006 15:04:05".
func WithDateLayout(layout string) Option {
	return func(o *Output) { o.layout = layout }
}

// WithBarWidth sets the width of the longest chart bar. Default: 30.
func WithBarWidth(n int) Option {
	return func(o *Output) {
		if n > 0 {
			o.barWidth = n
		}
	}
}

// Output writes rendered reports to w.
type Output struct {
	w         io.Writer
	st        styles
	verbosity compactor.Verbosity
	layout    string
	barWidth  int
}

// New creates a report Output. Colour is enabled only when w is a terminal.
// At Full verbosity each violation lists its associated log lines.
func New(w io.Writer, verbosity compactor.Verbosity, opts ...Option) *Output {
	o := &Output{
		w:         w,
		st:        newStyles(lipgloss.NewRenderer(w)),
		verbosity: verbosity,
		layout:    "01/02/2006 15:04:05",
		barWidth:  defaultBar,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) Write(_ context.Context, rep output.Report) error {
	if _, err := io.WriteString(o.w, o.Render(output.FormatReport(rep, o.verbosity))); err != nil {
		return fmt.Errorf("report output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}

// Render returns the report as a string without writing it.
func (o *Output) Render(rep output.Report) string {
	var sb strings.Builder
	st := o.st

	title := "Patrol audit"
	if rep.Source != "" {
		title += ": " + rep.Source
	}
	sb.WriteString(st.title.Render(title) + "\n")
	sb.WriteString(fmt.Sprintf("%s %s  %s %s  %s %s  %s %s\n",
		st.label.Render("events"), st.value.Render(fmt.Sprint(rep.Events)),
		st.label.Render("rounds"), st.value.Render(fmt.Sprint(rep.Rounds)),
		st.label.Render("dropped lines"), st.value.Render(fmt.Sprint(rep.Dropped)),
		st.label.Render("non-conformities"), o.countStyle(len(rep.NonConformities)).Render(fmt.Sprint(len(rep.NonConformities)))))
	sb.WriteString("\n")

	if !rep.HasRounds && len(rep.NonConformities) == 0 {
		sb.WriteString(st.warn.Render("No patrol rounds found. Check that the log matches the expected line format.") + "\n")
		return sb.String()
	}
	if len(rep.NonConformities) == 0 {
		sb.WriteString(st.ok.Render("No non-conformities found.") + "\n")
		return sb.String()
	}

	sb.WriteString(o.table(rep.NonConformities))
	sb.WriteString("\n")
	sb.WriteString(o.chart("By type", rep.CountsByType))
	sb.WriteString("\n")
	sb.WriteString(o.chart("By guard", rep.CountsByGuard))
	return sb.String()
}

func (o *Output) countStyle(n int) lipgloss.Style {
	if n == 0 {
		return o.st.ok
	}
	return o.st.crit
}

func (o *Output) table(ncs []model.NonConformity) string {
	st := o.st
	var sb strings.Builder
	sb.WriteString(styledPad(st.header.Render("Date/time"), colStamp) + " " +
		styledPad(st.header.Render("Guard"), colGuard) + " " +
		styledPad(st.header.Render("Type"), colType) + " " +
		st.header.Render("Details") + "\n")

	for _, nc := range ncs {
		sb.WriteString(styledPad(st.value.Render(nc.Timestamp.Format(o.layout)), colStamp) + " " +
			styledPad(st.value.Render(clip(nc.Guard, colGuard)), colGuard) + " " +
			styledPad(st.warn.Render(nc.Kind.Label()), colType) + " " +
			nc.Details + "\n")
		if o.verbosity == compactor.Full {
			for _, ev := range nc.AssociatedEvents {
				sb.WriteString(st.dim.Render(fmt.Sprintf("    line %-5d %s  %s", ev.Line, ev.Timestamp.Format(o.layout), ev.Text)) + "\n")
			}
		}
	}
	return sb.String()
}

// chart draws one horizontal bar per item, scaled to the largest count.
func (o *Output) chart(title string, items []model.CountItem) string {
	st := o.st
	var sb strings.Builder
	sb.WriteString(st.title.Render(title) + "\n")

	nameW, top := 0, 0
	for _, it := range items {
		nameW = maxInt(nameW, utf8.RuneCountInString(it.Name))
		top = maxInt(top, it.Count)
	}
	for _, it := range items {
		filled := it.Count * o.barWidth / top
		if filled == 0 && it.Count > 0 {
			filled = 1
		}
		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			styledPad(st.label.Render(it.Name), nameW),
			st.crit.Render(strings.Repeat("█", filled))+st.dim.Render(strings.Repeat("░", o.barWidth-filled)),
			st.value.Render(fmt.Sprint(it.Count))))
	}
	return sb.String()
}

// styledPad pads a styled string to the given visual width using spaces.
func styledPad(styled string, width int) string {
	visW := lipgloss.Width(styled)
	if visW >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-visW)
}

// clip shortens s to width runes with an ellipsis.
func clip(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
