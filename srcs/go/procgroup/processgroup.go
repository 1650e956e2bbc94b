// Package procgroup runs collectives over the devices of a group of ranks.
// Each rank owns one or more local devices, and every device takes part in
// a collective as an independent participant.
//
// Communicators are created lazily for each ordered list of local devices
// used in a call. Creating them is itself collective: all ranks must issue
// the same sequence of collectives over device lists of the same length.
package procgroup

import (
	"fmt"
	"sync"

	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/monitor"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/lsds/ncclpg/srcs/go/store"
	"github.com/lsds/ncclpg/srcs/go/utils"
	"github.com/pkg/errors"
)

var errClosed = errors.New("process group is closed")

type ProcessGroup struct {
	store    store.Store
	rank     int
	size     int
	groupID  int
	registry *Registry
	lib      nccl.Library
	rt       device.Runtime
	metrics  monitor.Monitor
	log      *log.Logger

	cacheMu sync.Mutex
	comms   map[DeviceSetKey]*CommunicatorSet
	closed  bool
}

type Option func(*ProcessGroup)

func WithRegistry(r *Registry) Option {
	return func(pg *ProcessGroup) { pg.registry = r }
}

func WithLibrary(lib nccl.Library) Option {
	return func(pg *ProcessGroup) { pg.lib = lib }
}

func WithRuntime(rt device.Runtime) Option {
	return func(pg *ProcessGroup) { pg.rt = rt }
}

func WithMetrics(m monitor.Monitor) Option {
	return func(pg *ProcessGroup) { pg.metrics = m }
}

// These are set by builds that link a real device stack.
var (
	defaultLibrary func() (nccl.Library, error)
	defaultRuntime func() (device.Runtime, error)
)

// New creates the process group of rank out of size ranks, which exchange
// communicator tokens through st.
func New(st store.Store, rank, size int, opts ...Option) (*ProcessGroup, error) {
	if size < 1 || rank < 0 || rank >= size {
		return nil, configErrorf("invalid rank %d of %d", rank, size)
	}
	if st == nil {
		return nil, configErrorf("no rendezvous store")
	}
	pg := &ProcessGroup{
		store:    st,
		rank:     rank,
		size:     size,
		registry: DefaultRegistry,
		metrics:  monitor.GetMonitor(),
		comms:    make(map[DeviceSetKey]*CommunicatorSet),
	}
	for _, opt := range opts {
		opt(pg)
	}
	if pg.lib == nil {
		if defaultLibrary == nil {
			return nil, configErrorf("no communication library")
		}
		lib, err := defaultLibrary()
		if err != nil {
			return nil, err
		}
		pg.lib = lib
	}
	if pg.rt == nil {
		if defaultRuntime == nil {
			return nil, configErrorf("no device runtime")
		}
		rt, err := defaultRuntime()
		if err != nil {
			return nil, err
		}
		pg.rt = rt
	}
	pg.groupID = pg.registry.Acquire()
	pg.log = log.With(fmt.Sprintf("pg=%d rank=%d/%d", pg.groupID, rank, size))
	pg.log.Infof("created with %s visible", utils.Pluralize(pg.rt.DeviceCount(), "device", "devices"))
	return pg, nil
}

func (pg *ProcessGroup) Rank() int { return pg.rank }

func (pg *ProcessGroup) Size() int { return pg.size }

func (pg *ProcessGroup) GroupID() int { return pg.groupID }

// Close destroys the cached communicators. Work still in flight must have
// completed.
func (pg *ProcessGroup) Close() error {
	pg.cacheMu.Lock()
	defer pg.cacheMu.Unlock()
	if pg.closed {
		return nil
	}
	pg.closed = true
	var errs []error
	for key, cs := range pg.comms {
		errs = append(errs, cs.destroy())
		delete(pg.comms, key)
	}
	pg.registry.Release(pg.groupID)
	return utils.MergeErrors(errs, "closing process group")
}
