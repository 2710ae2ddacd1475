// Package output provides colored console output for the interactive
// review workflow.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// UI writes user-facing review progress to the console. All interactive
// text goes through it so tests can capture the conversation.
type UI struct {
	Out io.Writer
}

// New creates a UI writing to stdout.
func New() *UI {
	return &UI{Out: os.Stdout}
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

// Step prints the beginning of a progress line ("Get ticket... ")
// without a trailing newline; Done or one of the colored writers
// completes it.
func (u *UI) Step(format string, a ...any) {
	fmt.Fprintf(u.Out, format+"... ", a...)
}

// Done completes a progress line started by Step.
func (u *UI) Done() {
	fmt.Fprintln(u.Out, "done")
}

// Print writes a plain line.
func (u *UI) Print(format string, a ...any) {
	fmt.Fprintf(u.Out, format+"\n", a...)
}

// Prompt writes text without a newline, for input prompts.
func (u *UI) Prompt(format string, a ...any) {
	fmt.Fprintf(u.Out, format, a...)
}

// Success writes a green line.
func (u *UI) Success(format string, a ...any) {
	fmt.Fprintln(u.Out, green(fmt.Sprintf(format, a...)))
}

// Warning writes a yellow line.
func (u *UI) Warning(format string, a ...any) {
	fmt.Fprintln(u.Out, yellow(fmt.Sprintf(format, a...)))
}

// Error writes a red line.
func (u *UI) Error(format string, a ...any) {
	fmt.Fprintln(u.Out, red(fmt.Sprintf(format, a...)))
}
