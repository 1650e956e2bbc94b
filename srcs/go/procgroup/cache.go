package procgroup

import (
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/lsds/ncclpg/srcs/go/utils"
)

// CommunicatorSet holds, for each device of an ordered device list, the
// communicator, the stream collectives run on and the event used to order
// that stream after the caller's compute stream.
type CommunicatorSet struct {
	Key     DeviceSetKey
	Devices []int
	Comms   []nccl.Comm
	Streams []device.Stream
	Events  []device.Event
}

func (cs *CommunicatorSet) destroy() error {
	var errs []error
	for _, c := range cs.Comms {
		errs = append(errs, c.Destroy())
	}
	return utils.MergeErrors(errs, "destroying communicators of "+cs.Key.String())
}

// getOrCreate returns the cached set for key, creating it on first use.
// Creation is collective: every rank must call it for the same device
// lists in the same order.
func (pg *ProcessGroup) getOrCreate(key DeviceSetKey, devices []int) (*CommunicatorSet, error) {
	pg.cacheMu.Lock()
	defer pg.cacheMu.Unlock()
	if pg.closed {
		return nil, errClosed
	}
	if cs, ok := pg.comms[key]; ok {
		return cs, nil
	}
	if key.Empty() {
		return nil, configErrorf("empty device key")
	}
	cs, err := pg.createCommunicators(key, devices)
	if err != nil {
		return nil, err
	}
	pg.comms[key] = cs
	return cs, nil
}

func (pg *ProcessGroup) createCommunicators(key DeviceSetKey, devices []int) (*CommunicatorSet, error) {
	var id nccl.UniqueID
	if pg.rank == 0 {
		var err error
		if id, err = pg.lib.GetUniqueID(); err != nil {
			return nil, libraryError("GetUniqueID", err)
		}
	}
	if err := pg.broadcastUniqueID(&id); err != nil {
		return nil, err
	}

	n := len(devices)
	cs := &CommunicatorSet{
		Key:     key,
		Devices: append([]int(nil), devices...),
	}
	// Group brackets of one rank must not interleave, the collective path
	// opens its own under the same lock.
	mu := pg.rt.AllocatorMutex()
	mu.Lock()
	defer mu.Unlock()
	if err := pg.lib.GroupStart(); err != nil {
		return nil, libraryError("GroupStart", err)
	}
	// On failure the communicators created so far are destroyed before the
	// bracket is closed, so the library does not wait for their peers.
	fail := func(err error) (*CommunicatorSet, error) {
		if e := cs.destroy(); e != nil {
			pg.log.Warnf("%v", e)
		}
		if e := pg.lib.GroupEnd(); e != nil {
			pg.log.Warnf("closing group after failure: %v", e)
		}
		return nil, err
	}
	for i, dev := range devices {
		c, err := pg.lib.CommInitRank(dev, pg.size*n, pg.rank*n+i, id)
		if err != nil {
			return fail(libraryError("CommInitRank", err))
		}
		cs.Comms = append(cs.Comms, c)
		s, err := pg.rt.NewStream(dev)
		if err != nil {
			return fail(resourceError("NewStream", err))
		}
		ev, err := pg.rt.NewEvent(dev)
		if err != nil {
			return fail(resourceError("NewEvent", err))
		}
		cs.Streams = append(cs.Streams, s)
		cs.Events = append(cs.Events, ev)
	}
	if err := pg.lib.GroupEnd(); err != nil {
		if e := cs.destroy(); e != nil {
			pg.log.Warnf("%v", e)
		}
		return nil, libraryError("GroupEnd", err)
	}
	pg.log.Infof("created %s for devices [%s] as participants %d..%d of %d",
		utils.Pluralize(n, "communicator", "communicators"), key, pg.rank*n, pg.rank*n+n-1, pg.size*n)
	return cs, nil
}
