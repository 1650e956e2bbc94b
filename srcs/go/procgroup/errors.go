package procgroup

import (
	"fmt"

	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/pkg/errors"
)

var (
	// ErrNotSupported is returned by operations this backend does not offer.
	ErrNotSupported = errors.New("not supported")

	// ErrResourceExhausted matches errors caused by asking for more local
	// devices than are visible.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ConfigurationError reports an unsupported element type, a malformed
// rendezvous payload or an empty device key.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

func configErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigurationError{Msg: fmt.Sprintf(format, args...)})
}

type ValidationKind int

// Buffer checks, in the order they are applied.
const (
	SizeMismatch ValidationKind = iota
	EmptyInput
	TooManyDevices
	NotDenseDevice
	TypeMismatch
	CountMismatch
	OutputCountMismatch
	NotContiguous
	DuplicateDevice
	DeviceMismatch
)

var validationKindNames = map[ValidationKind]string{
	SizeMismatch:        "size mismatch",
	EmptyInput:          "empty input",
	TooManyDevices:      "too many devices",
	NotDenseDevice:      "not a dense device buffer",
	TypeMismatch:        "type mismatch",
	CountMismatch:       "count mismatch",
	OutputCountMismatch: "output count mismatch",
	NotContiguous:       "not contiguous",
	DuplicateDevice:     "duplicate device",
	DeviceMismatch:      "device mismatch",
}

func (k ValidationKind) String() string {
	if name, ok := validationKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ValidationKind(%d)", int(k))
}

// ValidationError reports a buffer list that breaks the collective
// contract. Nothing has been issued when it is returned.
type ValidationError struct {
	Kind ValidationKind
	Msg  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid buffers (%s): %s", e.Kind, e.Msg)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrResourceExhausted && e.Kind == TooManyDevices
}

func validationErrorf(kind ValidationKind, format string, args ...interface{}) error {
	return errors.WithStack(&ValidationError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// ResourceError wraps a failure of the accelerator runtime.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

func resourceError(op string, err error) error {
	return errors.WithStack(&ResourceError{Op: op, Err: err})
}

// RuntimeLibraryError carries the code and message of a failed call into
// the communication library, or of a failed event query.
type RuntimeLibraryError struct {
	Op   string
	Code int
	Msg  string
}

func (e *RuntimeLibraryError) Error() string {
	return fmt.Sprintf("%s failed: %s (code %d)", e.Op, e.Msg, e.Code)
}

const unknownCode = -1

func libraryError(op string, err error) error {
	var ne *nccl.Error
	if errors.As(err, &ne) {
		return errors.WithStack(&RuntimeLibraryError{Op: ne.Op, Code: ne.Code, Msg: ne.Msg})
	}
	var de *device.Error
	if errors.As(err, &de) {
		return errors.WithStack(&RuntimeLibraryError{Op: de.Op, Code: de.Code, Msg: de.Msg})
	}
	return errors.WithStack(&RuntimeLibraryError{Op: op, Code: unknownCode, Msg: err.Error()})
}
