package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// styles holds the color formatters for human output
type styles struct {
	path     *color.Color
	position *color.Color
	label    *color.Color
	keyword  *color.Color
	value    *color.Color
	missing  *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		path:     color.New(color.Bold, color.FgHiWhite),
		position: color.New(color.FgHiBlue),
		label:    color.New(color.Bold),
		keyword:  color.New(color.FgHiGreen),
		value:    color.New(color.FgYellow),
		missing:  color.New(color.FgRed),
	}
	for _, c := range []*color.Color{s.path, s.position, s.label, s.keyword, s.value, s.missing} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// stylesFor applies --color to w. auto colors only terminals without NO_COLOR.
func stylesFor(mode string, w io.Writer) *styles {
	switch mode {
	case "always":
		return newStyles(true)
	case "never":
		return newStyles(false)
	}
	f, ok := w.(*os.File)
	enabled := ok && term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == ""
	return newStyles(enabled)
}
