package iostream

import (
	"bufio"
	"fmt"
	"io"
)

// Tee copies r line by line to every writer of ws and returns the number
// of lines copied.
func Tee(r io.Reader, ws ...io.Writer) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	var n int
	for sc.Scan() {
		line := sc.Text()
		for _, w := range ws {
			fmt.Fprintln(w, line)
		}
		n++
	}
	return n, sc.Err()
}
