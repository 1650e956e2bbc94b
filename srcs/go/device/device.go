// Package device defines the accelerator runtime used by the process group:
// streams, events and the device allocator lock. Devices are addressed by
// their local index instead of a thread-local "current device".
package device

import (
	"fmt"
	"sync"
)

// Stream is an ordered queue of asynchronous commands on one device.
type Stream interface {
	Device() int
}

// Event is a device-side marker recorded on a stream.
type Event interface {
	Device() int
}

type EventStatus int

const (
	Pending EventStatus = iota
	Ready
)

func (s EventStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

type Runtime interface {
	// DeviceCount returns the number of locally visible devices.
	DeviceCount() int

	// CurrentStream returns the stream ordinary compute is issued on.
	CurrentStream(dev int) (Stream, error)

	NewStream(dev int) (Stream, error)

	// NewEvent creates an event with timing disabled.
	NewEvent(dev int) (Event, error)

	RecordEvent(ev Event, s Stream) error

	// StreamWaitEvent makes all future work on s wait for the most recent
	// record of ev, without blocking the caller.
	StreamWaitEvent(s Stream, ev Event) error

	QueryEvent(ev Event) (EventStatus, error)

	// AllocatorMutex serialises device memory (de)allocation with kernel
	// launches that must not interleave with it.
	AllocatorMutex() sync.Locker
}

// Error is a failure reported by the runtime.
type Error struct {
	Op   string
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s (code %d)", e.Op, e.Msg, e.Code)
}
