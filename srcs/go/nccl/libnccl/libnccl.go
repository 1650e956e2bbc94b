//go:build cuda

// Package libnccl implements nccl.Library on libnccl.
//
// NCCL group state is per OS thread: GroupStart locks the calling goroutine
// to its thread until the matching GroupEnd, and every call of the bracket
// must come from that goroutine.
package libnccl

/*
#cgo LDFLAGS: -lnccl -lcudart

#include <cuda_runtime.h>
#include <nccl.h>
*/
import "C"

import (
	"runtime"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/pkg/errors"
)

type Comm struct {
	comm  C.ncclComm_t
	dev   int
	rank  int
	count int
}

func (c *Comm) Device() int { return c.dev }
func (c *Comm) Rank() int   { return c.rank }
func (c *Comm) Count() int  { return c.count }

func (c *Comm) Destroy() error {
	return check("ncclCommDestroy", C.ncclCommDestroy(c.comm))
}

type Library struct{}

func New() *Library { return &Library{} }

func check(op string, r C.ncclResult_t) error {
	if r == C.ncclSuccess {
		return nil
	}
	return &nccl.Error{
		Op:   op,
		Code: int(r),
		Msg:  C.GoString(C.ncclGetErrorString(r)),
	}
}

func (l *Library) GetUniqueID() (nccl.UniqueID, error) {
	var id C.ncclUniqueId
	if err := check("ncclGetUniqueId", C.ncclGetUniqueId(&id)); err != nil {
		return nccl.UniqueID{}, err
	}
	return *(*nccl.UniqueID)(unsafe.Pointer(&id)), nil
}

func (l *Library) CommInitRank(dev, nranks, rank int, id nccl.UniqueID) (nccl.Comm, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if code := C.cudaSetDevice(C.int(dev)); code != C.cudaSuccess {
		return nil, &device.Error{Op: "cudaSetDevice", Code: int(code), Msg: C.GoString(C.cudaGetErrorString(code))}
	}
	c := &Comm{dev: dev, rank: rank, count: nranks}
	cid := *(*C.ncclUniqueId)(unsafe.Pointer(&id))
	if err := check("ncclCommInitRank", C.ncclCommInitRank(&c.comm, C.int(nranks), cid, C.int(rank))); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Library) GroupStart() error {
	runtime.LockOSThread()
	if err := check("ncclGroupStart", C.ncclGroupStart()); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

func (l *Library) GroupEnd() error {
	defer runtime.UnlockOSThread()
	return check("ncclGroupEnd", C.ncclGroupEnd())
}

var dtypes = map[nccl.DataType]C.ncclDataType_t{
	nccl.Int8:    C.ncclInt8,
	nccl.Uint8:   C.ncclUint8,
	nccl.Int32:   C.ncclInt32,
	nccl.Uint32:  C.ncclUint32,
	nccl.Int64:   C.ncclInt64,
	nccl.Uint64:  C.ncclUint64,
	nccl.Float16: C.ncclFloat16,
	nccl.Float32: C.ncclFloat32,
	nccl.Float64: C.ncclFloat64,
}

var ops = map[nccl.RedOp]C.ncclRedOp_t{
	nccl.Sum:  C.ncclSum,
	nccl.Prod: C.ncclProd,
	nccl.Max:  C.ncclMax,
	nccl.Min:  C.ncclMin,
}

type streamHandle interface {
	Handle() unsafe.Pointer
}

func args(op string, dt nccl.DataType, c nccl.Comm, s device.Stream) (C.ncclDataType_t, *Comm, C.cudaStream_t, error) {
	cdt, ok := dtypes[dt]
	if !ok {
		return 0, nil, nil, &nccl.Error{Op: op, Code: nccl.InvalidArgument, Msg: "invalid data type " + dt.String()}
	}
	comm, ok := c.(*Comm)
	if !ok {
		return 0, nil, nil, errors.Errorf("%s: foreign communicator %T", op, c)
	}
	h, ok := s.(streamHandle)
	if !ok {
		return 0, nil, nil, errors.Errorf("%s: foreign stream %T", op, s)
	}
	return cdt, comm, C.cudaStream_t(h.Handle()), nil
}

func redOp(op string, o nccl.RedOp) (C.ncclRedOp_t, error) {
	cop, ok := ops[o]
	if !ok {
		return 0, &nccl.Error{Op: op, Code: nccl.InvalidArgument, Msg: "invalid reduction " + o.String()}
	}
	return cop, nil
}

func (l *Library) AllReduce(send, recv unsafe.Pointer, count int, dt nccl.DataType, op nccl.RedOp, c nccl.Comm, s device.Stream) error {
	cdt, comm, st, err := args("ncclAllReduce", dt, c, s)
	if err != nil {
		return err
	}
	cop, err := redOp("ncclAllReduce", op)
	if err != nil {
		return err
	}
	return check("ncclAllReduce", C.ncclAllReduce(send, recv, C.size_t(count), cdt, cop, comm.comm, st))
}

func (l *Library) Broadcast(send, recv unsafe.Pointer, count int, dt nccl.DataType, root int, c nccl.Comm, s device.Stream) error {
	cdt, comm, st, err := args("ncclBroadcast", dt, c, s)
	if err != nil {
		return err
	}
	return check("ncclBroadcast", C.ncclBroadcast(send, recv, C.size_t(count), cdt, C.int(root), comm.comm, st))
}

func (l *Library) Reduce(send, recv unsafe.Pointer, count int, dt nccl.DataType, op nccl.RedOp, root int, c nccl.Comm, s device.Stream) error {
	cdt, comm, st, err := args("ncclReduce", dt, c, s)
	if err != nil {
		return err
	}
	cop, err := redOp("ncclReduce", op)
	if err != nil {
		return err
	}
	return check("ncclReduce", C.ncclReduce(send, recv, C.size_t(count), cdt, cop, C.int(root), comm.comm, st))
}

func (l *Library) AllGather(send, recv unsafe.Pointer, sendCount int, dt nccl.DataType, c nccl.Comm, s device.Stream) error {
	cdt, comm, st, err := args("ncclAllGather", dt, c, s)
	if err != nil {
		return err
	}
	return check("ncclAllGather", C.ncclAllGather(send, recv, C.size_t(sendCount), cdt, comm.comm, st))
}
