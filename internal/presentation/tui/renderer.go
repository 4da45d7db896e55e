package tui

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// RendererFor returns a markdown renderer when out is a terminal and nil
// otherwise, so piped output stays plain markdown.
func RendererFor(out *os.File) func(string) (string, error) {
	if !IsTerminal(out) {
		return nil
	}
	render, err := NewRenderer()
	if err != nil {
		return nil
	}
	return render
}
