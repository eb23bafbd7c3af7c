package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"  ____                 _                      ",
	" |  _ \\  __ _ _   _  __| |_ __ ___  __ _ _ __ ___  ",
	" | | | |/ _` | | | |/ _` | '__/ _ \\/ _` | '_ ` _ \\ ",
	" | |_| | (_| | |_| | (_| | | |  __/ (_| | | | | | |",
	" |____/ \\__,_|\\__, |\\__,_|_|  \\___|\\__,_|_| |_| |_|",
	"              |___/                                ",
}

// Dusk gradient, one color per line.
var bannerColors = []string{"#93c5fd", "#a5b4fc", "#c4b5fd", "#d8b4fe", "#f0abfc", "#f9a8d4"}

// PrintBanner writes the Daydream banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i])))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	}
	fmt.Fprintln(w)
}
