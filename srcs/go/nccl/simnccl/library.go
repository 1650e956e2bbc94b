package simnccl

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/google/uuid"
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/device/simdevice"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/lsds/ncclpg/srcs/go/utils"
)

// Library is the view of a Fabric from one rank. Group brackets are
// tracked per Library, so a Library must not be driven by two goroutines
// inside overlapping brackets.
type Library struct {
	fabric *Fabric
	rt     *simdevice.Runtime

	mu       sync.Mutex
	depth    int
	launches []func() error
	inits    []*clique
	failures map[string]*nccl.Error
	comms    int
}

var _ nccl.Library = (*Library)(nil)

func (f *Fabric) NewLibrary(rt *simdevice.Runtime) *Library {
	return &Library{
		fabric:   f,
		rt:       rt,
		failures: make(map[string]*nccl.Error),
	}
}

// InjectError makes the next call of op, e.g. "ncclCommInitRank", fail.
func (l *Library) InjectError(op string, code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[op] = &nccl.Error{Op: op, Code: code, Msg: "injected failure"}
}

func (l *Library) takeFailure(op string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.failures[op]; ok {
		delete(l.failures, op)
		return err
	}
	return nil
}

// CommInits returns the number of communicators created through l.
func (l *Library) CommInits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.comms
}

func (l *Library) GetUniqueID() (nccl.UniqueID, error) {
	var id nccl.UniqueID
	if err := l.takeFailure("ncclGetUniqueId"); err != nil {
		return id, err
	}
	u := uuid.New()
	copy(id[:], u[:])
	return id, nil
}

func (l *Library) CommInitRank(dev, nranks, rank int, id nccl.UniqueID) (nccl.Comm, error) {
	const op = "ncclCommInitRank"
	if err := l.takeFailure(op); err != nil {
		return nil, err
	}
	if dev < 0 || dev >= l.rt.DeviceCount() {
		return nil, &nccl.Error{Op: op, Code: nccl.UnhandledCudaError, Msg: fmt.Sprintf("invalid device %d", dev)}
	}
	if nranks < 1 || rank < 0 || rank >= nranks {
		return nil, &nccl.Error{Op: op, Code: nccl.InvalidArgument, Msg: fmt.Sprintf("rank %d of %d", rank, nranks)}
	}
	c := &Comm{lib: l, dev: dev, rank: rank, nranks: nranks}
	q, err := l.fabric.join(id, c, nranks)
	if err != nil {
		return nil, err
	}
	c.clique = q

	l.mu.Lock()
	l.comms++
	grouped := l.depth > 0
	if grouped {
		l.inits = append(l.inits, q)
	}
	l.mu.Unlock()
	if !grouped {
		q.waitComplete()
	}
	return c, nil
}

func (l *Library) GroupStart() error {
	if err := l.takeFailure("ncclGroupStart"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.depth++
	return nil
}

// GroupEnd closes the outermost bracket by waiting for the communicators
// initialised inside it and launching the deferred collectives in call
// order. A failed launch does not stop the ones after it; all failures are
// returned together.
func (l *Library) GroupEnd() error {
	if err := l.takeFailure("ncclGroupEnd"); err != nil {
		return err
	}
	l.mu.Lock()
	if l.depth == 0 {
		l.mu.Unlock()
		return &nccl.Error{Op: "ncclGroupEnd", Code: nccl.InvalidUsage, Msg: "no group in progress"}
	}
	l.depth--
	if l.depth > 0 {
		l.mu.Unlock()
		return nil
	}
	inits, launches := l.inits, l.launches
	l.inits, l.launches = nil, nil
	l.mu.Unlock()

	for _, q := range inits {
		q.waitComplete()
	}
	var errs []error
	for _, launch := range launches {
		errs = append(errs, launch())
	}
	return utils.MergeErrors(errs, "ncclGroupEnd")
}

func (l *Library) AllReduce(send, recv unsafe.Pointer, count int, dt nccl.DataType, op nccl.RedOp, c nccl.Comm, s device.Stream) error {
	sig := signature{kind: kindAllReduce, count: count, dtype: dt, op: op}
	return l.issue("ncclAllReduce", sig, send, recv, c, s)
}

func (l *Library) Broadcast(send, recv unsafe.Pointer, count int, dt nccl.DataType, root int, c nccl.Comm, s device.Stream) error {
	sig := signature{kind: kindBroadcast, count: count, dtype: dt, root: root}
	return l.issue("ncclBroadcast", sig, send, recv, c, s)
}

func (l *Library) Reduce(send, recv unsafe.Pointer, count int, dt nccl.DataType, op nccl.RedOp, root int, c nccl.Comm, s device.Stream) error {
	sig := signature{kind: kindReduce, count: count, dtype: dt, op: op, root: root}
	return l.issue("ncclReduce", sig, send, recv, c, s)
}

func (l *Library) AllGather(send, recv unsafe.Pointer, sendCount int, dt nccl.DataType, c nccl.Comm, s device.Stream) error {
	sig := signature{kind: kindAllGather, count: sendCount, dtype: dt}
	return l.issue("ncclAllGather", sig, send, recv, c, s)
}

func (l *Library) issue(op string, sig signature, send, recv unsafe.Pointer, c nccl.Comm, s device.Stream) error {
	if err := l.takeFailure(op); err != nil {
		return err
	}
	comm, ok := c.(*Comm)
	if !ok || comm.lib.fabric != l.fabric {
		return &nccl.Error{Op: op, Code: nccl.InvalidArgument, Msg: "communicator does not belong to this fabric"}
	}
	if err := validate(op, sig, comm, s); err != nil {
		return err
	}
	launch := func() error { return comm.launch(l, sig, send, recv, s) }
	l.mu.Lock()
	if l.depth > 0 {
		l.launches = append(l.launches, launch)
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()
	return launch()
}

func validate(op string, sig signature, c *Comm, s device.Stream) error {
	invalid := func(format string, args ...interface{}) error {
		return &nccl.Error{Op: op, Code: nccl.InvalidArgument, Msg: fmt.Sprintf(format, args...)}
	}
	if _, ok := dtypes[sig.dtype]; !ok {
		return invalid("invalid data type %s", sig.dtype)
	}
	if _, ok := ops[sig.op]; !ok {
		return invalid("invalid reduction %s", sig.op)
	}
	if sig.count < 0 {
		return invalid("invalid count %d", sig.count)
	}
	if sig.root < 0 || sig.root >= c.nranks {
		return invalid("invalid root %d of %d ranks", sig.root, c.nranks)
	}
	if s == nil || s.Device() != c.dev {
		return invalid("stream is not on device %d", c.dev)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return invalid("communicator destroyed")
	}
	return nil
}
