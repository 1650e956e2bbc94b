package simnccl

import (
	"sync"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/nccl"
)

type Comm struct {
	lib    *Library
	clique *clique
	dev    int
	rank   int
	nranks int

	launchMu sync.Mutex
	seq      uint64 // last launched call

	mu        sync.Mutex
	asyncErr  error
	destroyed bool
}

var _ nccl.Comm = (*Comm)(nil)

func (c *Comm) Device() int { return c.dev }
func (c *Comm) Rank() int   { return c.rank }
func (c *Comm) Count() int  { return c.nranks }

func (c *Comm) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.destroyed = true
	c.mu.Unlock()
	c.lib.fabric.leave(c.clique, c)
	return nil
}

// launch enqueues the kernel of the next call on s. The sequence number is
// consumed only if the enqueue succeeds, so peers stay aligned after a
// failed launch.
func (c *Comm) launch(l *Library, sig signature, send, recv unsafe.Pointer, s device.Stream) error {
	c.launchMu.Lock()
	defer c.launchMu.Unlock()
	seq := c.seq + 1
	if err := l.rt.Launch(s, func() { c.kernel(seq, sig, send, recv) }); err != nil {
		return err
	}
	c.seq = seq
	return nil
}

// AsyncError returns the first error hit by a collective of c after it was
// enqueued, as ncclCommGetAsyncError does.
func (c *Comm) AsyncError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asyncErr
}

func (c *Comm) setAsyncError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.asyncErr == nil {
		c.asyncErr = err
		log.Errorf("comm rank %d/%d on dev %d: %v", c.rank, c.nranks, c.dev, err)
	}
}

// kernel runs on the stream: it blocks until every member has reached the
// same call, then writes this member's output.
func (c *Comm) kernel(seq uint64, sig signature, send, recv unsafe.Pointer) {
	dt := dtypes[sig.dtype]
	var input []byte
	if sig.kind != kindBroadcast || c.rank == sig.root {
		in := vectorAt(send, sig.count, dt)
		input = in.Data
		if input == nil {
			input = []byte{}
		}
	}
	cl := c.clique.exchange(seq, c.rank, sig, input)
	defer c.clique.done(seq)
	if cl.err != nil {
		c.setAsyncError(&nccl.Error{Op: "nccl" + sig.kind.String(), Code: nccl.InvalidUsage, Msg: cl.err.Error()})
		return
	}
	if err := c.apply(cl, recv, dt); err != nil {
		c.setAsyncError(&nccl.Error{Op: "nccl" + sig.kind.String(), Code: nccl.InternalError, Msg: err.Error()})
	}
}

func (c *Comm) apply(cl *call, recv unsafe.Pointer, dt base.DataType) error {
	sig := cl.sig
	switch sig.kind {
	case kindAllReduce:
		return reduceInto(vectorAt(recv, sig.count, dt), cl.inputs, ops[sig.op])
	case kindReduce:
		if c.rank != sig.root {
			return nil
		}
		return reduceInto(vectorAt(recv, sig.count, dt), cl.inputs, ops[sig.op])
	case kindBroadcast:
		out := vectorAt(recv, sig.count, dt)
		copy(out.Data, cl.inputs[sig.root])
		return nil
	case kindAllGather:
		out := vectorAt(recv, sig.count*c.nranks, dt)
		for r, in := range cl.inputs {
			copy(out.Slice(r*sig.count, (r+1)*sig.count).Data, in)
		}
		return nil
	}
	return nil
}

// reduceInto folds the inputs in rank order, so every member computes
// bitwise identical results.
func reduceInto(out *base.Vector, inputs [][]byte, op base.OP) error {
	copy(out.Data, inputs[0])
	for _, in := range inputs[1:] {
		x := &base.Vector{Data: in, Count: out.Count, Type: out.Type}
		if err := base.Transform(out, x, op); err != nil {
			return err
		}
	}
	return nil
}
