package iostream

import (
	"io"
	"os"
	"sync"
)

var Std = StdWriters{
	Stdout: os.Stdout,
	Stderr: os.Stderr,
}

type StdReaders struct {
	Stdout io.Reader
	Stderr io.Reader
}

type StdWriters struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Streamed is returned by Stream, Wait blocks until both readers are
// drained.
type Streamed struct {
	wg    sync.WaitGroup
	lines [2]int
}

func (s *Streamed) Wait() {
	s.wg.Wait()
}

// Lines returns the number of stdout and stderr lines, valid after Wait.
func (s *Streamed) Lines() (int, int) {
	return s.lines[0], s.lines[1]
}

func (r *StdReaders) Stream(ws ...*StdWriters) *Streamed {
	var outs, errs []io.Writer
	for _, w := range ws {
		outs = append(outs, w.Stdout)
		errs = append(errs, w.Stderr)
	}
	s := &Streamed{}
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.lines[0], _ = Tee(r.Stdout, outs...)
	}()
	go func() {
		defer s.wg.Done()
		s.lines[1], _ = Tee(r.Stderr, errs...)
	}()
	return s
}

// SaveFirstWriter remembers the content of the first Write call
type SaveFirstWriter struct {
	First string
}

func (w *SaveFirstWriter) Write(bs []byte) (int, error) {
	if len(w.First) == 0 {
		w.First = string(bs)
	}
	return len(bs), nil
}

// Null implements /dev/null
type Null struct{}

func (w *Null) Write(bs []byte) (int, error) {
	return len(bs), nil
}
