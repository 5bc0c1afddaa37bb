// Package ui provides terminal output and prompts for the insights CLI.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// UI writes messages to Out and Err and reads answers from In.
type UI struct {
	in      *bufio.Reader
	out     io.Writer
	err     io.Writer
	verbose bool
	spin    bool
}

// New creates a UI over the given streams. Colors and the spinner are
// disabled when noColor is set.
func New(in io.Reader, out, errOut io.Writer, noColor, verbose bool) *UI {
	if noColor {
		color.NoColor = true
	}
	return &UI{
		in:      bufio.NewReader(in),
		out:     out,
		err:     errOut,
		verbose: verbose,
		spin:    !noColor,
	}
}

// Terminal creates a UI over the process streams.
func Terminal(noColor, verbose bool) *UI {
	return New(os.Stdin, os.Stdout, os.Stderr, noColor, verbose)
}

// Out is the primary output stream.
func (u *UI) Out() io.Writer { return u.out }

// Verbose reports whether verbose output was requested.
func (u *UI) Verbose() bool { return u.verbose }

// Success displays a success message.
func (u *UI) Success(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(u.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error displays an error message to stderr.
func (u *UI) Error(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(u.err, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning displays a warning message.
func (u *UI) Warning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(u.out, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info displays an informational message.
func (u *UI) Info(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(u.out, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Step displays a step indicator message.
func (u *UI) Step(format string, args ...interface{}) {
	color.New(color.FgBlue).Fprintf(u.out, "→ %s\n", fmt.Sprintf(format, args...))
}

// Debug prints only in verbose mode.
func (u *UI) Debug(format string, args ...interface{}) {
	if !u.verbose {
		return
	}
	color.New(color.Faint).Fprintf(u.err, "%s\n", fmt.Sprintf(format, args...))
}

// Print writes text as is.
func (u *UI) Print(text string) {
	fmt.Fprint(u.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(u.out)
	}
}

// Newline prints a newline.
func (u *UI) Newline() {
	fmt.Fprintln(u.out)
}

// Section displays a section header.
func (u *UI) Section(title string) {
	color.New(color.Bold).Fprintf(u.out, "\n%s\n", title)
	fmt.Fprintf(u.out, "%s\n\n", strings.Repeat("=", len([]rune(title))))
}

// Table displays rows under headers.
func (u *UI) Table(headers []string, rows [][]string) {
	t := tablewriter.NewWriter(u.out)
	t.SetHeader(headers)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.AppendBulk(rows)
	t.Render()
}

// Spinner wraps a spinner for indeterminate progress.
type Spinner struct {
	spinner *spinner.Spinner
}

// NewSpinner creates a spinner writing to stderr. It is inert when colors
// are disabled, which keeps piped output clean.
func (u *UI) NewSpinner(message string) *Spinner {
	if !u.spin {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = u.err
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s.spinner != nil {
		s.spinner.Start()
	}
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}
