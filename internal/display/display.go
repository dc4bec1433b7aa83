// Package display renders user-facing terminal output.
package display

import (
	"fmt"
	"io"
	"strings"

	"image-optimizer-go/internal/statistics"

	"github.com/charmbracelet/lipgloss"
)

// Styling functions using lipgloss
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(18)
)

// Summary writes the end-of-run report.
func Summary(w io.Writer, r statistics.Result) {
	for _, line := range r.SummaryLines() {
		var style lipgloss.Style
		switch {
		case strings.HasPrefix(line, "Processed"):
			style = SuccessStyle
		case strings.HasPrefix(line, "Skipped"):
			style = WarningStyle
		case strings.HasPrefix(line, "Failed"):
			style = ErrorStyle
		default:
			style = InfoStyle
		}
		fmt.Fprintln(w, style.Render(line))
	}
}

// Info writes a neutral status line.
func Info(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, InfoStyle.Render(fmt.Sprintf(format, args...)))
}

// Error writes an error line.
func Error(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

// Field is one label/value row of a report.
type Field struct {
	Label string
	Value string
}

// Report writes a titled block of aligned fields.
func Report(w io.Writer, title string, fields []Field) {
	fmt.Fprintln(w, HeaderStyle.Render(title))
	for _, f := range fields {
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(f.Label+":"), f.Value))
	}
}
