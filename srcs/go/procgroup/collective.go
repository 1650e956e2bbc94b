package procgroup

import (
	"github.com/dustin/go-humanize"
	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/nccl"
)

var ncclDataTypes = map[base.DataType]nccl.DataType{
	base.I8:  nccl.Int8,
	base.U8:  nccl.Uint8,
	base.I32: nccl.Int32,
	base.I64: nccl.Int64,
	base.F16: nccl.Float16,
	base.F32: nccl.Float32,
	base.F64: nccl.Float64,
}

func ncclDataType(t base.DataType) (nccl.DataType, error) {
	if dt, ok := ncclDataTypes[t]; ok {
		return dt, nil
	}
	return 0, configErrorf("element type %s is not supported", t)
}

func ncclRedOp(op base.OP) (nccl.RedOp, error) {
	switch op {
	case base.SUM:
		return nccl.Sum, nil
	case base.PROD:
		return nccl.Prod, nil
	case base.MIN:
		return nccl.Min, nil
	case base.MAX:
		return nccl.Max, nil
	}
	return 0, configErrorf("reduction %s is not supported", op)
}

type AllReduceOptions struct {
	Op base.OP
}

type BroadcastOptions struct {
	RootRank   int
	RootTensor int
}

type ReduceOptions struct {
	Op         base.OP
	RootRank   int
	RootTensor int
}

// primitive issues the collective for the i-th buffer pair.
type primitive func(in, out Buffer, c nccl.Comm, s device.Stream, dt nccl.DataType) error

// binder turns the per-call options into a primitive, given the number of
// local devices taking part.
type binder func(n int) (primitive, error)

// AllReduce reduces bufs in place across all devices of all ranks.
func (pg *ProcessGroup) AllReduce(bufs []Buffer, opts AllReduceOptions) (*Work, error) {
	return pg.collective("allreduce", bufs, bufs, 1, func(n int) (primitive, error) {
		op, err := ncclRedOp(opts.Op)
		if err != nil {
			return nil, err
		}
		return func(in, out Buffer, c nccl.Comm, s device.Stream, dt nccl.DataType) error {
			return pg.lib.AllReduce(in.Ptr, out.Ptr, in.Count, dt, op, c, s)
		}, nil
	})
}

// Broadcast copies buffer RootTensor of rank RootRank into bufs of every
// device of every rank.
func (pg *ProcessGroup) Broadcast(bufs []Buffer, opts BroadcastOptions) (*Work, error) {
	return pg.collective("broadcast", bufs, bufs, 1, func(n int) (primitive, error) {
		root, err := pg.rootParticipant(opts.RootRank, opts.RootTensor, n)
		if err != nil {
			return nil, err
		}
		return func(in, out Buffer, c nccl.Comm, s device.Stream, dt nccl.DataType) error {
			return pg.lib.Broadcast(in.Ptr, out.Ptr, in.Count, dt, root, c, s)
		}, nil
	})
}

// Reduce reduces bufs in place into buffer RootTensor of rank RootRank.
// The other buffers are left unchanged.
func (pg *ProcessGroup) Reduce(bufs []Buffer, opts ReduceOptions) (*Work, error) {
	return pg.collective("reduce", bufs, bufs, 1, func(n int) (primitive, error) {
		op, err := ncclRedOp(opts.Op)
		if err != nil {
			return nil, err
		}
		root, err := pg.rootParticipant(opts.RootRank, opts.RootTensor, n)
		if err != nil {
			return nil, err
		}
		return func(in, out Buffer, c nccl.Comm, s device.Stream, dt nccl.DataType) error {
			return pg.lib.Reduce(in.Ptr, out.Ptr, in.Count, dt, op, root, c, s)
		}, nil
	})
}

// AllGather concatenates the inputs of all devices of all ranks, ordered by
// rank then by local position, into every output.
func (pg *ProcessGroup) AllGather(outputs, inputs []Buffer) (*Work, error) {
	return pg.collective("allgather", inputs, outputs, pg.size*len(inputs), func(n int) (primitive, error) {
		return func(in, out Buffer, c nccl.Comm, s device.Stream, dt nccl.DataType) error {
			return pg.lib.AllGather(in.Ptr, out.Ptr, in.Count, dt, c, s)
		}, nil
	})
}

func (pg *ProcessGroup) rootParticipant(rootRank, rootTensor, n int) (int, error) {
	if rootRank < 0 || rootRank >= pg.size || rootTensor < 0 || rootTensor >= n {
		return 0, configErrorf("root %d/%d is out of range for %d ranks with %d devices", rootRank, rootTensor, pg.size, n)
	}
	return rootRank*n + rootTensor, nil
}

func (pg *ProcessGroup) collective(name string, inputs, outputs []Buffer, outputOverInput int, bind binder) (*Work, error) {
	if err := checkBuffers(inputs, outputs, outputOverInput, pg.rt.DeviceCount()); err != nil {
		return nil, err
	}
	dt, err := ncclDataType(inputs[0].Type)
	if err != nil {
		return nil, err
	}
	issue, err := bind(len(inputs))
	if err != nil {
		return nil, err
	}
	devices := devicesOf(inputs)
	cs, err := pg.getOrCreate(NewDeviceSetKey(devices), devices)
	if err != nil {
		return nil, err
	}
	if err := pg.syncStreams(cs); err != nil {
		return nil, err
	}
	w, err := newWork(pg.rt, devices)
	if err != nil {
		return nil, err
	}
	if err := pg.issue(cs, inputs, outputs, dt, issue); err != nil {
		return nil, err
	}
	if err := recordCompletion(pg.rt, w, cs.Streams); err != nil {
		return nil, err
	}

	var payload int64
	for _, in := range inputs {
		payload += int64(in.Bytes())
	}
	pg.metrics.Collective(name, payload)
	if pg.log.Enabled(log.Debug) {
		pg.log.Debugf("%s of %d x %d %s (%s) on devices [%s]",
			name, len(inputs), inputs[0].Count, inputs[0].Type, humanize.Bytes(uint64(payload)), cs.Key)
	}
	return w, nil
}

// issue launches the primitive on every device within one group bracket,
// holding the allocator lock throughout.
func (pg *ProcessGroup) issue(cs *CommunicatorSet, inputs, outputs []Buffer, dt nccl.DataType, f primitive) error {
	mu := pg.rt.AllocatorMutex()
	mu.Lock()
	defer mu.Unlock()
	if err := pg.lib.GroupStart(); err != nil {
		return libraryError("GroupStart", err)
	}
	for i := range inputs {
		if err := f(inputs[i], outputs[i], cs.Comms[i], cs.Streams[i], dt); err != nil {
			if e := pg.lib.GroupEnd(); e != nil {
				pg.log.Warnf("closing group after failure: %v", e)
			}
			return libraryError("collective", err)
		}
	}
	if err := pg.lib.GroupEnd(); err != nil {
		return libraryError("GroupEnd", err)
	}
	return nil
}
