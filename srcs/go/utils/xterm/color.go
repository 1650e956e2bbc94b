// Package xterm colors terminal output.
package xterm

import (
	"fmt"
	"os"
)

type Color interface {
	S(text string) string
}

// ansi is a bold foreground color.
type ansi uint8

func (c ansi) S(text string) string {
	return fmt.Sprintf("\x1b[1;%dm%s\x1b[m", uint8(c), text)
}

const (
	Red ansi = 31 + iota
	Green
	Yellow
	Blue
	Magenta
	Cyan
	Grey
)

// Warn marks errors and stderr.
var Warn Color = Red

type plain struct{}

func (plain) S(text string) string { return text }

var NoColor Color = plain{}

// Palette assigns colors to ranks round-robin.
type Palette []Color

func (p Palette) Choose(i int) Color {
	return p[i%len(p)]
}

var RankColors = Palette{Green, Blue, Yellow, Cyan, Magenta}

// For returns c if f is a terminal and NoColor otherwise.
func For(f *os.File, c Color) Color {
	if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
		return c
	}
	return NoColor
}
