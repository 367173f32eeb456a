package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner for Panel.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	lines := []struct {
		text  string
		color string
	}{
		{"  ____                  _ ", "#818cf8"},
		{" |  _ \\ __ _ _ __   ___| |", "#a78bfa"},
		{" | |_) / _` | '_ \\ / _ \\ |", "#c084fc"},
		{" |  __/ (_| | | | |  __/ |", "#e879f9"},
		{" |_|   \\__,_|_| |_|\\___|_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
