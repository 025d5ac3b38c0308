package report

import "github.com/charmbracelet/lipgloss"

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorWhite  = lipgloss.Color("#F8F8F2")
	colorGray   = lipgloss.Color("#6272A4")
)

// styles are bound to one renderer so colour output follows the
// destination writer, not the process's stdout.
type styles struct {
	title  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	dim    lipgloss.Style
	warn   lipgloss.Style
	crit   lipgloss.Style
	ok     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:  r.NewStyle().Bold(true).Foreground(colorCyan),
		header: r.NewStyle().Bold(true).Foreground(colorWhite).Underline(true),
		label:  r.NewStyle().Foreground(colorGray),
		value:  r.NewStyle().Foreground(colorWhite),
		dim:    r.NewStyle().Foreground(colorGray),
		warn:   r.NewStyle().Foreground(colorYellow).Bold(true),
		crit:   r.NewStyle().Foreground(colorRed).Bold(true),
		ok:     r.NewStyle().Foreground(colorGreen),
	}
}
