package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the stepflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"      _              __ _", "#34d399"},
		{"  ___| |_ ___ _ __  / _| | _____      __", "#2dd4bf"},
		{" / __| __/ _ \\ '_ \\| |_| |/ _ \\ \\ /\\ / /", "#22d3ee"},
		{" \\__ \\ ||  __/ |_) |  _| | (_) \\ V  V /", "#38bdf8"},
		{" |___/\\__\\___| .__/|_| |_|\\___/ \\_/\\_/", "#60a5fa"},
		{"             |_|", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
