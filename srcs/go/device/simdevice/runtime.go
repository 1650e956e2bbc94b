// Package simdevice is an in-memory accelerator runtime. Streams run on
// goroutines and device memory is ordinary Go memory, which is enough to
// exercise stream ordering and the collective path without hardware.
package simdevice

import (
	"fmt"
	"sync"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/pkg/errors"
)

var errInvalidHandle = errors.New("handle does not belong to this runtime")

type Runtime struct {
	allocMu sync.Mutex

	mu        sync.Mutex
	current   []*Stream
	streams   []*Stream
	allocated []int64
	failures  map[string]*device.Error
	closed    bool
}

var _ device.Runtime = (*Runtime)(nil)

// New creates a runtime with n visible devices.
func New(n int) *Runtime {
	r := &Runtime{
		allocated: make([]int64, n),
		failures:  make(map[string]*device.Error),
	}
	for i := 0; i < n; i++ {
		s := newStream(i, 0)
		r.current = append(r.current, s)
		r.streams = append(r.streams, s)
	}
	return r
}

func (r *Runtime) DeviceCount() int {
	return len(r.current)
}

func (r *Runtime) checkDevice(op string, dev int) error {
	if dev < 0 || dev >= len(r.current) {
		return &device.Error{Op: op, Code: codeInvalidDevice, Msg: fmt.Sprintf("invalid device ordinal %d", dev)}
	}
	return nil
}

const (
	codeInvalidDevice = 101
	codeInvalidHandle = 400
)

// InjectError makes the next call of op fail with err.
func (r *Runtime) InjectError(op string, err *device.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

func (r *Runtime) takeFailure(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failures[op]; ok {
		delete(r.failures, op)
		return err
	}
	return nil
}

func (r *Runtime) CurrentStream(dev int) (device.Stream, error) {
	if err := r.checkDevice("CurrentStream", dev); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current[dev], nil
}

// SetCurrentStream changes the compute stream of dev, like a stream guard.
func (r *Runtime) SetCurrentStream(s *Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[s.dev] = s
}

func (r *Runtime) NewStream(dev int) (device.Stream, error) {
	return r.newStream(dev)
}

func (r *Runtime) newStream(dev int) (*Stream, error) {
	if err := r.checkDevice("NewStream", dev); err != nil {
		return nil, err
	}
	if err := r.takeFailure("NewStream"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s := newStream(dev, len(r.streams))
	r.streams = append(r.streams, s)
	return s, nil
}

// NewComputeStream is NewStream with the concrete type, for tests.
func (r *Runtime) NewComputeStream(dev int) (*Stream, error) {
	return r.newStream(dev)
}

func (r *Runtime) NewEvent(dev int) (device.Event, error) {
	if err := r.checkDevice("NewEvent", dev); err != nil {
		return nil, err
	}
	if err := r.takeFailure("NewEvent"); err != nil {
		return nil, err
	}
	return newEvent(dev), nil
}

func (r *Runtime) RecordEvent(ev device.Event, s device.Stream) error {
	if err := r.takeFailure("RecordEvent"); err != nil {
		return err
	}
	e, st, err := handles("RecordEvent", ev, s)
	if err != nil {
		return err
	}
	done := e.record()
	if err := st.enqueue(func() { complete(done) }); err != nil {
		complete(done)
		return &device.Error{Op: "RecordEvent", Code: codeInvalidHandle, Msg: err.Error()}
	}
	return nil
}

func (r *Runtime) StreamWaitEvent(s device.Stream, ev device.Event) error {
	if err := r.takeFailure("StreamWaitEvent"); err != nil {
		return err
	}
	e, st, err := handles("StreamWaitEvent", ev, s)
	if err != nil {
		return err
	}
	done := e.snapshot()
	if done == nil {
		return nil
	}
	if err := st.enqueue(func() { waitFor(done) }); err != nil {
		return &device.Error{Op: "StreamWaitEvent", Code: codeInvalidHandle, Msg: err.Error()}
	}
	return nil
}

func (r *Runtime) QueryEvent(ev device.Event) (device.EventStatus, error) {
	if err := r.takeFailure("QueryEvent"); err != nil {
		return device.Pending, err
	}
	e, ok := ev.(*Event)
	if !ok {
		return device.Pending, &device.Error{Op: "QueryEvent", Code: codeInvalidHandle, Msg: errInvalidHandle.Error()}
	}
	return e.status(), nil
}

func (r *Runtime) AllocatorMutex() sync.Locker {
	return &r.allocMu
}

func handles(op string, ev device.Event, s device.Stream) (*Event, *Stream, error) {
	e, ok := ev.(*Event)
	if !ok {
		return nil, nil, &device.Error{Op: op, Code: codeInvalidHandle, Msg: errInvalidHandle.Error()}
	}
	st, ok := s.(*Stream)
	if !ok {
		return nil, nil, &device.Error{Op: op, Code: codeInvalidHandle, Msg: errInvalidHandle.Error()}
	}
	return e, st, nil
}

// Alloc returns zeroed device memory for count elements of dtype.
func (r *Runtime) Alloc(dev int, count int, dtype base.DataType) (*Buffer, error) {
	if err := r.checkDevice("Alloc", dev); err != nil {
		return nil, err
	}
	r.allocMu.Lock()
	defer r.allocMu.Unlock()
	b := &Buffer{Vector: base.NewVector(count, dtype), dev: dev}
	r.mu.Lock()
	r.allocated[dev] += int64(len(b.Data))
	r.mu.Unlock()
	return b, nil
}

// Allocated returns the number of bytes allocated on dev so far.
func (r *Runtime) Allocated(dev int) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocated[dev]
}

// Launch enqueues a kernel on s.
func (r *Runtime) Launch(s device.Stream, kernel func()) error {
	if err := r.takeFailure("Launch"); err != nil {
		return err
	}
	st, ok := s.(*Stream)
	if !ok {
		return &device.Error{Op: "Launch", Code: codeInvalidHandle, Msg: errInvalidHandle.Error()}
	}
	if err := st.enqueue(kernel); err != nil {
		return &device.Error{Op: "Launch", Code: codeInvalidHandle, Msg: err.Error()}
	}
	return nil
}

// Synchronize blocks until everything enqueued on s so far has run.
func (r *Runtime) Synchronize(s device.Stream) error {
	done := make(chan struct{})
	if err := r.Launch(s, func() { close(done) }); err != nil {
		return err
	}
	<-done
	return nil
}

// SynchronizeDevice waits for the current stream of dev.
func (r *Runtime) SynchronizeDevice(dev int) error {
	s, err := r.CurrentStream(dev)
	if err != nil {
		return err
	}
	return r.Synchronize(s)
}

// Close stops all streams once their queues drain.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, s := range r.streams {
		s.close()
	}
	return nil
}
