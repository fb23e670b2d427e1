package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY.
	// Users can disable with NO_COLOR.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

// Output streams. Tests swap these for buffers.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	red     = color.New(color.FgRed, color.Bold)
	cyan    = color.New(color.FgCyan)
	magenta = color.New(color.FgMagenta, color.Bold)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a warning message in yellow with a warning prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(Stdout, msg)
}

// Verdict prints a green checkmark line for a correct solution and a red
// cross line otherwise.
func Verdict(correct bool, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if correct {
		green.Fprintf(Stdout, "✓ %s\n", msg)
		return
	}
	red.Fprintf(Stdout, "✗ %s\n", msg)
}

// Puzzle renders digits spaced out and highlighted, e.g. "1 2 3 4 5 6".
func Puzzle(digits string) string {
	return magenta.Sprint(strings.Join(strings.Split(digits, ""), " "))
}

// Error prints a formatted error with title, explanation and suggestions to
// Stderr and returns a plain error carrying only the title, for cobra
// (which is silenced).
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error plus key/value details, printed in key order.
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(Stderr, "\n")
		for _, k := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// Step prints a step message with emphasis
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Println prints a plain message
func Println(a ...any) {
	fmt.Fprintln(Stdout, a...)
}

// Printf prints a plain formatted message
func Printf(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}
