package procgroup

import "github.com/lsds/ncclpg/srcs/go/device"

// syncStreams orders each communication stream of cs after the work that is
// already queued on the device's compute stream. The caller never blocks.
func (pg *ProcessGroup) syncStreams(cs *CommunicatorSet) error {
	for i, dev := range cs.Devices {
		compute, err := pg.rt.CurrentStream(dev)
		if err != nil {
			return resourceError("CurrentStream", err)
		}
		if err := pg.rt.RecordEvent(cs.Events[i], compute); err != nil {
			return resourceError("RecordEvent", err)
		}
		if err := pg.rt.StreamWaitEvent(cs.Streams[i], cs.Events[i]); err != nil {
			return resourceError("StreamWaitEvent", err)
		}
	}
	return nil
}

// recordCompletion marks the end of the collective on every stream.
func recordCompletion(rt device.Runtime, w *Work, streams []device.Stream) error {
	for i, s := range streams {
		if err := rt.RecordEvent(w.events[i], s); err != nil {
			return resourceError("RecordEvent", err)
		}
	}
	return nil
}
