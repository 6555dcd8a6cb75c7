// Package ui renders strata CLI output.
package ui

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

// Out receives regular output, Err receives errors.
var (
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

var (
	accent = lipgloss.Color("#00D9FF")
	muted  = lipgloss.Color("#6C757D")

	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
)

type level struct {
	icon  string
	style lipgloss.Style
}

var (
	success = level{"✓", lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88")).Bold(true)}
	failure = level{"✗", lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444")).Bold(true)}
	warning = level{"⚠", lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB800")).Bold(true)}
	info    = level{"ℹ", lipgloss.NewStyle().Foreground(accent)}
)

func (l level) print(w io.Writer, format string, args []any) {
	fmt.Fprintln(w, l.style.Render(l.icon+" "+fmt.Sprintf(format, args...)))
}

func width() int {
	if w := pterm.GetTerminalWidth(); w > 0 && w < 100 {
		return w
	}
	return 80
}

func PrintSuccess(format string, args ...any) { success.print(Out, format, args) }
func PrintError(format string, args ...any)   { failure.print(Err, format, args) }
func PrintWarning(format string, args ...any) { warning.print(Out, format, args) }
func PrintInfo(format string, args ...any)    { info.print(Out, format, args) }

// PrintHeader prints title and subtitle centered in a rounded box.
func PrintHeader(title, subtitle string) {
	body := lipgloss.JoinVertical(lipgloss.Center, titleStyle.Render(title), mutedStyle.Render(subtitle))
	fmt.Fprintln(Out, lipgloss.NewStyle().
		Width(width()-2).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 2).
		Render(body))
}

// PrintSection prints an underlined section title.
func PrintSection(title string) {
	fmt.Fprintln(Out, lipgloss.NewStyle().
		Width(width()).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(muted).
		Render(titleStyle.Render(title)))
}

func PrintList(items []string) {
	for _, item := range items {
		fmt.Fprintf(Out, "  • %s\n", item)
	}
}

// PrintTable renders rows under a header row.
func PrintTable(headers []string, rows [][]string) error {
	data := append(pterm.TableData{headers}, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(Out).Render()
}

// PrintMarkdown renders markdown for the terminal.
func PrintMarkdown(content string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width()))
	if err != nil {
		return err
	}
	rendered, err := r.Render(content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(Out, rendered)
	return err
}

var methodColors = map[string]*color.Color{
	http.MethodGet:    color.New(color.FgGreen, color.Bold),
	http.MethodPost:   color.New(color.FgYellow, color.Bold),
	http.MethodPut:    color.New(color.FgBlue, color.Bold),
	http.MethodPatch:  color.New(color.FgCyan, color.Bold),
	http.MethodDelete: color.New(color.FgRed, color.Bold),
}

// Method colors an HTTP method name.
func Method(method string) string {
	if c, ok := methodColors[method]; ok {
		return c.Sprint(method)
	}
	return color.New(color.Bold).Sprint(method)
}
