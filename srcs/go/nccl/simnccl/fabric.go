// Package simnccl runs NCCL-style collectives between simulated devices of
// the same process. Every rank of a job gets its own Library, all sharing a
// Fabric, which plays the part of the network.
package simnccl

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/nccl"
)

type Fabric struct {
	mu      sync.Mutex
	cliques map[nccl.UniqueID]*clique
}

func NewFabric() *Fabric {
	return &Fabric{cliques: make(map[nccl.UniqueID]*clique)}
}

// Cliques returns the number of cliques with at least one live member.
func (f *Fabric) Cliques() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cliques)
}

func (f *Fabric) join(id nccl.UniqueID, c *Comm, nranks int) (*clique, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.cliques[id]
	if !ok {
		q = newClique(id, nranks)
		f.cliques[id] = q
	}
	if err := q.add(c, nranks); err != nil {
		return nil, err
	}
	return q, nil
}

func (f *Fabric) leave(q *clique, c *Comm) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.remove(c) == 0 {
		delete(f.cliques, q.id)
	}
}

type callKind int

const (
	kindAllReduce callKind = iota
	kindBroadcast
	kindReduce
	kindAllGather
)

var kindNames = map[callKind]string{
	kindAllReduce: "AllReduce",
	kindBroadcast: "Broadcast",
	kindReduce:    "Reduce",
	kindAllGather: "AllGather",
}

func (k callKind) String() string { return kindNames[k] }

// signature is what every member of a clique must agree on for one call.
type signature struct {
	kind  callKind
	count int
	dtype nccl.DataType
	op    nccl.RedOp
	root  int
}

type call struct {
	sig     signature
	inputs  [][]byte
	arrived int
	left    int
	err     error
}

type clique struct {
	id     nccl.UniqueID
	nranks int

	mu      sync.Mutex
	cond    *sync.Cond
	members []*Comm
	joined  int
	live    int
	aborted bool
	calls   map[uint64]*call
}

func newClique(id nccl.UniqueID, nranks int) *clique {
	q := &clique{
		id:      id,
		nranks:  nranks,
		members: make([]*Comm, nranks),
		calls:   make(map[uint64]*call),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *clique) add(c *Comm, nranks int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if nranks != q.nranks {
		return &nccl.Error{Op: "ncclCommInitRank", Code: nccl.InvalidArgument,
			Msg: fmt.Sprintf("clique has %d ranks, got nranks=%d", q.nranks, nranks)}
	}
	if q.members[c.rank] != nil {
		return &nccl.Error{Op: "ncclCommInitRank", Code: nccl.InvalidUsage,
			Msg: fmt.Sprintf("rank %d already joined", c.rank)}
	}
	q.members[c.rank] = c
	q.joined++
	q.live++
	q.cond.Broadcast()
	return nil
}

func (q *clique) remove(c *Comm) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.members[c.rank] == c {
		q.live--
	}
	if q.joined < q.nranks {
		q.aborted = true
		q.cond.Broadcast()
	}
	return q.live
}

// waitComplete blocks until all ranks have joined, or until a member
// leaves before that.
func (q *clique) waitComplete() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.joined < q.nranks && !q.aborted {
		q.cond.Wait()
	}
}

// exchange deposits the input of rank for call seq and blocks until all
// ranks have deposited theirs.
func (q *clique) exchange(seq uint64, rank int, sig signature, input []byte) *call {
	q.mu.Lock()
	defer q.mu.Unlock()
	cl, ok := q.calls[seq]
	if !ok {
		cl = &call{sig: sig, inputs: make([][]byte, q.nranks)}
		q.calls[seq] = cl
	} else if cl.sig != sig && cl.err == nil {
		cl.err = fmt.Errorf("call %d: rank %d issued %s(count=%d, %s), peers issued %s(count=%d, %s)",
			seq, rank, sig.kind, sig.count, sig.dtype, cl.sig.kind, cl.sig.count, cl.sig.dtype)
	}
	if input != nil {
		cl.inputs[rank] = append([]byte(nil), input...)
	}
	cl.arrived++
	q.cond.Broadcast()
	for cl.arrived < q.nranks {
		q.cond.Wait()
	}
	return cl
}

func (q *clique) done(seq uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cl := q.calls[seq]
	cl.left++
	if cl.left == q.nranks {
		delete(q.calls, seq)
	}
}

var dtypes = map[nccl.DataType]base.DataType{
	nccl.Int8:    base.I8,
	nccl.Uint8:   base.U8,
	nccl.Int32:   base.I32,
	nccl.Uint32:  base.U32,
	nccl.Int64:   base.I64,
	nccl.Uint64:  base.U64,
	nccl.Float16: base.F16,
	nccl.Float32: base.F32,
	nccl.Float64: base.F64,
}

var ops = map[nccl.RedOp]base.OP{
	nccl.Sum:  base.SUM,
	nccl.Prod: base.PROD,
	nccl.Max:  base.MAX,
	nccl.Min:  base.MIN,
}

// vectorAt views count elements at p as a Vector without copying.
func vectorAt(p unsafe.Pointer, count int, dt base.DataType) *base.Vector {
	v := &base.Vector{Count: count, Type: dt}
	if n := count * dt.Size(); n > 0 {
		v.Data = unsafe.Slice((*byte)(p), n)
	}
	return v
}
