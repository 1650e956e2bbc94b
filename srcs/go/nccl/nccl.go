// Package nccl defines the communication-primitives library the process
// group delegates the collective algorithms to. The shape follows NCCL:
// a unique id, one communicator per device, group brackets and stream
// ordered collectives.
package nccl

import (
	"fmt"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/device"
)

// UniqueIDBytes is NCCL_UNIQUE_ID_BYTES.
const UniqueIDBytes = 128

type UniqueID [UniqueIDBytes]byte

type DataType int

const (
	Int8 DataType = iota
	Uint8
	Int32
	Uint32
	Int64
	Uint64
	Float16
	Float32
	Float64
)

var dtypeNames = map[DataType]string{
	Int8:    "ncclInt8",
	Uint8:   "ncclUint8",
	Int32:   "ncclInt32",
	Uint32:  "ncclUint32",
	Int64:   "ncclInt64",
	Uint64:  "ncclUint64",
	Float16: "ncclFloat16",
	Float32: "ncclFloat32",
	Float64: "ncclFloat64",
}

func (t DataType) String() string {
	if name, ok := dtypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ncclDataType(%d)", int(t))
}

type RedOp int

const (
	Sum RedOp = iota
	Prod
	Max
	Min
)

var opNames = map[RedOp]string{
	Sum:  "ncclSum",
	Prod: "ncclProd",
	Max:  "ncclMax",
	Min:  "ncclMin",
}

func (op RedOp) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("ncclRedOp(%d)", int(op))
}

// Comm is one device's membership in a clique of nranks participants.
type Comm interface {
	Device() int
	Rank() int
	Count() int
	Destroy() error
}

// Library is the set of primitives used by the process group. Collective
// calls only enqueue work on the stream. Calls for several devices issued
// by one thread must be bracketed by GroupStart and GroupEnd.
type Library interface {
	GetUniqueID() (UniqueID, error)
	CommInitRank(dev, nranks, rank int, id UniqueID) (Comm, error)

	GroupStart() error
	GroupEnd() error

	AllReduce(send, recv unsafe.Pointer, count int, dt DataType, op RedOp, c Comm, s device.Stream) error
	Broadcast(send, recv unsafe.Pointer, count int, dt DataType, root int, c Comm, s device.Stream) error
	Reduce(send, recv unsafe.Pointer, count int, dt DataType, op RedOp, root int, c Comm, s device.Stream) error
	AllGather(send, recv unsafe.Pointer, sendCount int, dt DataType, c Comm, s device.Stream) error
}

// Result codes, as in ncclResult_t.
const (
	Success            = 0
	UnhandledCudaError = 1
	SystemError        = 2
	InternalError      = 3
	InvalidArgument    = 4
	InvalidUsage       = 5
)

type Error struct {
	Op   string
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s (code %d)", e.Op, e.Msg, e.Code)
}
