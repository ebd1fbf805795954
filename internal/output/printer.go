// Package output renders issueflow results for the terminal.
//
// Styling uses lipgloss with adaptive light/dark colors. Output written to a
// non-terminal (a file, a pipe, a test buffer) is rendered without escape
// codes by lipgloss's color profile detection; [NewPlainPrinter] forces plain
// text regardless of the destination.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"issueflow/internal/lifecycle"
	"issueflow/internal/workflow"
)

// Status icons.
const (
	IconPass = "✓"
	IconFail = "✗"
	IconWarn = "⚠"
	IconSkip = "○"
	IconInfo = "→"
)

var (
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorFail   = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

// Printer writes styled output to a writer.
type Printer struct {
	out   io.Writer
	plain bool

	pass   lipgloss.Style
	warn   lipgloss.Style
	fail   lipgloss.Style
	muted  lipgloss.Style
	accent lipgloss.Style
	header lipgloss.Style
	box    lipgloss.Style
}

// NewPrinter creates a [Printer] writing to stdout.
func NewPrinter() *Printer {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter creates a [Printer] writing to w. Colors are chosen
// from w's capabilities.
func NewPrinterWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		out:    w,
		pass:   r.NewStyle().Foreground(colorPass),
		warn:   r.NewStyle().Foreground(colorWarn),
		fail:   r.NewStyle().Foreground(colorFail),
		muted:  r.NewStyle().Foreground(colorMuted),
		accent: r.NewStyle().Foreground(colorAccent),
		header: r.NewStyle().Bold(true).Foreground(colorAccent),
		box: r.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1),
	}
}

// NewPlainPrinter creates a [Printer] that never styles its output.
func NewPlainPrinter(w io.Writer) *Printer {
	p := NewPrinterWithWriter(w)
	p.plain = true
	return p
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return style.Render(s)
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.printf("%s %s\n", p.render(p.accent, IconInfo), fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.printf("%s %s\n", p.render(p.warn, IconWarn), fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.printf("%s %s\n", p.render(p.fail, IconFail), fmt.Sprintf(format, args...))
}

// SuiteHeader announces a finished suite before its issue results.
func (p *Printer) SuiteHeader(report *lifecycle.Report) {
	mode := "active"
	if !report.Active {
		mode = "inactive, tracker untouched"
	}
	p.printf("\n%s %s\n", p.render(p.header, "SUITE"), report.Suite)
	p.printf("  %s\n", p.render(p.muted, fmt.Sprintf("run %s (%s)", report.RunID, mode)))
}

// IssueResult prints one issue's outcome and what happened to it.
func (p *Printer) IssueResult(res lifecycle.IssueResult) {
	icon := p.render(p.pass, IconPass)
	if res.Outcome == workflow.Failure {
		icon = p.render(p.fail, IconFail)
	}

	line := fmt.Sprintf("  %s %-20s %-8s", icon, res.IssueKey, res.Outcome)
	switch {
	case res.Err != nil && res.Err.Phase == lifecycle.PhaseStatus:
		line += " " + p.render(p.fail, "status unavailable")
	case res.Status != "":
		line += " " + p.render(p.muted, res.Status)
		if len(res.Planned) == 0 {
			line += " " + p.render(p.muted, "(no transition)")
		} else {
			line += " " + IconInfo + " " + p.transitions(res)
		}
	}
	p.printf("%s\n", line)

	if res.Err != nil {
		p.printf("      %s\n", p.render(p.fail, res.Err.Error()))
	}
}

func (p *Printer) transitions(res lifecycle.IssueResult) string {
	parts := make([]string, len(res.Planned))
	for i, name := range res.Planned {
		switch {
		case i < len(res.Applied):
			parts[i] = p.render(p.pass, name)
		case res.Err != nil && res.Err.Transition == name:
			parts[i] = p.render(p.fail, name)
		default:
			parts[i] = p.render(p.muted, name+" (skipped)")
		}
	}
	return strings.Join(parts, " "+IconInfo+" ")
}

// Report prints a suite header followed by every issue result.
func (p *Printer) Report(report *lifecycle.Report) {
	p.SuiteHeader(report)
	if len(report.Issues) == 0 {
		p.printf("  %s\n", p.render(p.muted, "no annotated tests"))
	}
	for _, res := range report.Issues {
		p.IssueResult(res)
	}
	for _, cerr := range report.CommentErrors {
		p.printf("  %s %s\n", p.render(p.warn, IconWarn), cerr.Error())
	}
}

// Summary holds run totals for [Printer.Summary].
type Summary struct {
	Suites       int
	Issues       int
	Transitioned int
	Errors       int
	Malformed    int
	Incomplete   []string
	DryRun       bool
}

// Summary prints the closing run summary box.
func (p *Printer) Summary(s Summary) {
	title := p.render(p.pass, IconPass+" RUN COMPLETE")
	if s.Errors > 0 || len(s.Incomplete) > 0 {
		title = p.render(p.warn, IconWarn+" RUN COMPLETE WITH ERRORS")
	}
	if s.DryRun {
		title += p.render(p.muted, " (dry run)")
	}

	lines := []string{
		title,
		fmt.Sprintf("Suites: %d | Issues: %d | Transitioned: %d | Errors: %d",
			s.Suites, s.Issues, s.Transitioned, s.Errors),
	}
	if s.Malformed > 0 {
		lines = append(lines, p.render(p.muted, fmt.Sprintf("Skipped %d malformed line(s)", s.Malformed)))
	}
	for _, pkg := range s.Incomplete {
		lines = append(lines, fmt.Sprintf("%s %s (did not finish)", p.render(p.warn, IconSkip), pkg))
	}

	body := strings.Join(lines, "\n")
	if p.plain {
		p.printf("\n%s\n", body)
		return
	}
	p.printf("\n%s\n", p.box.Render(body))
}

// Rules prints a rule table grouped by status.
func (p *Printer) Rules(source string, rules []workflow.Rule) {
	p.printf("%s %s\n", p.render(p.header, "RULES"), p.render(p.muted, source))
	for _, r := range rules {
		seq := p.render(p.muted, "(none)")
		if len(r.Transitions) > 0 {
			seq = strings.Join(r.Transitions, " "+IconInfo+" ")
		}
		p.printf("  %-16s %-8s %s\n", r.Status, r.Outcome, seq)
	}
}

// Sequence prints the transitions resolved for a status and outcome.
func (p *Printer) Sequence(status string, outcome workflow.Outcome, transitions []string) {
	if len(transitions) == 0 {
		p.printf("%s %s + %s: %s\n", p.render(p.muted, IconSkip), status, outcome, p.render(p.muted, "no transition"))
		return
	}
	p.printf("%s %s + %s: %s\n", p.render(p.accent, IconInfo), status, outcome, strings.Join(transitions, " "+IconInfo+" "))
}

// IssueStatus prints an issue's tracker status or the error reading it.
func (p *Printer) IssueStatus(issueKey, status string, err error) {
	if err != nil {
		p.printf("  %s %-20s %s\n", p.render(p.fail, IconFail), issueKey, p.render(p.fail, err.Error()))
		return
	}
	p.printf("  %s %-20s %s\n", p.render(p.pass, IconPass), issueKey, status)
}
