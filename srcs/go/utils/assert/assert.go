// Package assert exits the process on failed checks. It is meant for main
// packages and examples, library code returns errors.
package assert

import (
	"fmt"
	"os"
	"runtime"
)

var exit = os.Exit

func fail(name string, detail string) {
	_, fn, line, _ := runtime.Caller(2)
	fmt.Fprintf(os.Stderr, "%s failed at %s:%d%s\n", name, fn, line, detail)
	exit(1)
}

func OK(err error) {
	if err != nil {
		fail(`assertOK`, ": "+err.Error())
	}
}

func True(ok bool) {
	if !ok {
		fail(`assertTrue`, "")
	}
}

func Equal[T comparable](want, got T) {
	if want != got {
		fail(`assertEqual`, fmt.Sprintf(": want %v, got %v", want, got))
	}
}
