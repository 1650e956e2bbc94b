package iostream

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lsds/ncclpg/srcs/go/utils/xterm"
)

// taggedWriter writes each line, as delivered by Tee, behind a tag naming
// the rank and stream. Writers sharing a terminal share a lock so lines of
// concurrent ranks do not interleave.
type taggedWriter struct {
	mu  *sync.Mutex
	tag string
	w   io.Writer
}

func (t taggedWriter) Write(bs []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintf(t.w, "%s %s", t.tag, bs); err != nil {
		return 0, err
	}
	return len(bs), nil
}

var terminalMu sync.Mutex

// NewRankRedirector copies a rank's output to the terminal, colored when
// the terminal supports it.
func NewRankRedirector(name string, c xterm.Color) *StdWriters {
	return newRankRedirector(name, c, os.Stdout, os.Stderr)
}

func newRankRedirector(name string, c xterm.Color, stdout, stderr *os.File) *StdWriters {
	if c == nil {
		c = xterm.NoColor
	}
	out := xterm.For(stdout, c)
	errc := xterm.For(stderr, c)
	warn := xterm.For(stderr, xterm.Warn)
	return &StdWriters{
		Stdout: taggedWriter{mu: &terminalMu, tag: "[" + out.S(name) + "]", w: stdout},
		Stderr: taggedWriter{mu: &terminalMu, tag: "[" + errc.S(name) + "|" + warn.S("err") + "]", w: stderr},
	}
}
