package utils

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/lsds/ncclpg/srcs/go/log"
)

// ExitErr logs err with the caller's position and exits. Only main packages
// call it.
func ExitErr(err error) {
	_, fn, line, _ := runtime.Caller(1)
	log.Exitf("exit on error: %v at %s:%d", err, fn, line)
}

// MultiError is the failure of one step applied to several items, such as
// destroying the communicators of every device.
type MultiError struct {
	Hint string
	Errs []error
}

func (e *MultiError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s failed with %s: %s", e.Hint, Pluralize(len(msgs), "error", "errors"), strings.Join(msgs, ", "))
}

func (e *MultiError) Unwrap() []error { return e.Errs }

// MergeErrors returns a *MultiError of the non-nil errors of errs, or nil
// if there are none.
func MergeErrors(errs []error, hint string) error {
	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &MultiError{Hint: hint, Errs: failed}
}
