//go:build cuda

// Package cudart implements device.Runtime on the CUDA runtime.
package cudart

/*
#cgo LDFLAGS: -lcudart

#include <cuda_runtime.h>
*/
import "C"

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/pkg/errors"
)

type Stream struct {
	dev int
	s   C.cudaStream_t
}

func (s *Stream) Device() int { return s.dev }

// Handle returns the cudaStream_t.
func (s *Stream) Handle() unsafe.Pointer { return unsafe.Pointer(s.s) }

type Event struct {
	dev int
	e   C.cudaEvent_t
}

func (e *Event) Device() int { return e.dev }

type Runtime struct {
	count   int
	allocMu sync.Mutex
}

func New() (*Runtime, error) {
	var n C.int
	if err := check("cudaGetDeviceCount", C.cudaGetDeviceCount(&n)); err != nil {
		return nil, err
	}
	return &Runtime{count: int(n)}, nil
}

func check(op string, code C.cudaError_t) error {
	if code == C.cudaSuccess {
		return nil
	}
	return &device.Error{
		Op:   op,
		Code: int(code),
		Msg:  C.GoString(C.cudaGetErrorString(code)),
	}
}

// onDevice runs f with dev current on a locked OS thread.
func (r *Runtime) onDevice(dev int, f func() error) error {
	if dev < 0 || dev >= r.count {
		return &device.Error{Op: "cudaSetDevice", Code: int(C.cudaErrorInvalidDevice), Msg: "invalid device ordinal"}
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if err := check("cudaSetDevice", C.cudaSetDevice(C.int(dev))); err != nil {
		return err
	}
	return f()
}

func (r *Runtime) DeviceCount() int { return r.count }

// CurrentStream returns the legacy default stream of dev.
func (r *Runtime) CurrentStream(dev int) (device.Stream, error) {
	if dev < 0 || dev >= r.count {
		return nil, errors.Errorf("invalid device %d", dev)
	}
	return &Stream{dev: dev}, nil
}

func (r *Runtime) NewStream(dev int) (device.Stream, error) {
	s := &Stream{dev: dev}
	err := r.onDevice(dev, func() error {
		return check("cudaStreamCreateWithFlags", C.cudaStreamCreateWithFlags(&s.s, C.cudaStreamNonBlocking))
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Runtime) NewEvent(dev int) (device.Event, error) {
	e := &Event{dev: dev}
	err := r.onDevice(dev, func() error {
		return check("cudaEventCreateWithFlags", C.cudaEventCreateWithFlags(&e.e, C.cudaEventDisableTiming))
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func handles(ev device.Event, s device.Stream) (*Event, *Stream, error) {
	e, ok := ev.(*Event)
	if !ok {
		return nil, nil, errors.Errorf("foreign event %T", ev)
	}
	st, ok := s.(*Stream)
	if !ok {
		return nil, nil, errors.Errorf("foreign stream %T", s)
	}
	return e, st, nil
}

func (r *Runtime) RecordEvent(ev device.Event, s device.Stream) error {
	e, st, err := handles(ev, s)
	if err != nil {
		return err
	}
	return r.onDevice(st.dev, func() error {
		return check("cudaEventRecord", C.cudaEventRecord(e.e, st.s))
	})
}

func (r *Runtime) StreamWaitEvent(s device.Stream, ev device.Event) error {
	e, st, err := handles(ev, s)
	if err != nil {
		return err
	}
	return r.onDevice(st.dev, func() error {
		return check("cudaStreamWaitEvent", C.cudaStreamWaitEvent(st.s, e.e, 0))
	})
}

func (r *Runtime) QueryEvent(ev device.Event) (device.EventStatus, error) {
	e, ok := ev.(*Event)
	if !ok {
		return device.Pending, errors.Errorf("foreign event %T", ev)
	}
	switch code := C.cudaEventQuery(e.e); code {
	case C.cudaSuccess:
		return device.Ready, nil
	case C.cudaErrorNotReady:
		return device.Pending, nil
	default:
		return device.Pending, check("cudaEventQuery", code)
	}
}

func (r *Runtime) AllocatorMutex() sync.Locker { return &r.allocMu }

// Malloc allocates bytes of device memory on dev.
func (r *Runtime) Malloc(dev int, bytes int) (unsafe.Pointer, error) {
	var p unsafe.Pointer
	r.allocMu.Lock()
	defer r.allocMu.Unlock()
	err := r.onDevice(dev, func() error {
		return check("cudaMalloc", C.cudaMalloc(&p, C.size_t(bytes)))
	})
	return p, err
}

func (r *Runtime) Free(dev int, p unsafe.Pointer) error {
	r.allocMu.Lock()
	defer r.allocMu.Unlock()
	return r.onDevice(dev, func() error {
		return check("cudaFree", C.cudaFree(p))
	})
}

func (r *Runtime) CopyToDevice(dev int, dst unsafe.Pointer, src []byte) error {
	return r.onDevice(dev, func() error {
		return check("cudaMemcpy", C.cudaMemcpy(dst, unsafe.Pointer(&src[0]), C.size_t(len(src)), C.cudaMemcpyHostToDevice))
	})
}

func (r *Runtime) CopyToHost(dev int, dst []byte, src unsafe.Pointer) error {
	return r.onDevice(dev, func() error {
		return check("cudaMemcpy", C.cudaMemcpy(unsafe.Pointer(&dst[0]), src, C.size_t(len(dst)), C.cudaMemcpyDeviceToHost))
	})
}

func (r *Runtime) SynchronizeDevice(dev int) error {
	return r.onDevice(dev, func() error {
		return check("cudaDeviceSynchronize", C.cudaDeviceSynchronize())
	})
}
