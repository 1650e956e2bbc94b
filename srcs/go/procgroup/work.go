package procgroup

import (
	"sync"

	"github.com/lsds/ncclpg/srcs/go/device"
)

// Work tracks one issued collective. It never reports the collective as
// failed: errors are returned when the collective is issued.
type Work struct {
	rt      device.Runtime
	devices []int
	events  []device.Event

	mu        sync.Mutex
	completed bool
}

func newWork(rt device.Runtime, devices []int) (*Work, error) {
	w := &Work{
		rt:      rt,
		devices: append([]int(nil), devices...),
	}
	for _, dev := range devices {
		ev, err := rt.NewEvent(dev)
		if err != nil {
			return nil, resourceError("NewEvent", err)
		}
		w.events = append(w.events, ev)
	}
	return w, nil
}

func (w *Work) Devices() []int {
	return w.devices
}

// IsCompleted polls the completion events without blocking. Once it has
// returned true it keeps doing so.
func (w *Work) IsCompleted() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.completed {
		return true, nil
	}
	for _, ev := range w.events {
		status, err := w.rt.QueryEvent(ev)
		if err != nil {
			return false, libraryError("QueryEvent", err)
		}
		if status != device.Ready {
			return false, nil
		}
	}
	w.completed = true
	return true, nil
}

// Synchronize makes the current compute stream of each device wait for the
// collective. The caller does not block.
func (w *Work) Synchronize() error {
	for i, dev := range w.devices {
		s, err := w.rt.CurrentStream(dev)
		if err != nil {
			return resourceError("CurrentStream", err)
		}
		if err := w.rt.StreamWaitEvent(s, w.events[i]); err != nil {
			return resourceError("StreamWaitEvent", err)
		}
	}
	return nil
}

// Wait is Synchronize. The returned flag is always true.
func (w *Work) Wait() (bool, error) {
	return true, w.Synchronize()
}

func (w *Work) IsSuccess() bool {
	return true
}

// Exception always returns ErrNotSupported.
func (w *Work) Exception() error {
	return ErrNotSupported
}
