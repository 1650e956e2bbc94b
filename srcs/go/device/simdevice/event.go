package simdevice

import (
	"sync"

	"github.com/lsds/ncclpg/srcs/go/device"
)

// Event tracks each record separately. A wait captures the most recent record
// at enqueue time and is released only when that record executes, matching
// cudaStreamWaitEvent. Later records of the same event do not affect it.
type Event struct {
	dev int

	mu     sync.Mutex
	latest chan struct{} // nil until first record
}

func newEvent(dev int) *Event {
	return &Event{dev: dev}
}

func (e *Event) Device() int { return e.dev }

// record starts a new generation and returns its completion channel.
func (e *Event) record() chan struct{} {
	done := make(chan struct{})
	e.mu.Lock()
	e.latest = done
	e.mu.Unlock()
	return done
}

func (e *Event) snapshot() chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latest
}

func complete(done chan struct{}) { close(done) }

func waitFor(done chan struct{}) { <-done }

func (e *Event) status() device.EventStatus {
	done := e.snapshot()
	if done == nil {
		return device.Ready
	}
	select {
	case <-done:
		return device.Ready
	default:
		return device.Pending
	}
}
