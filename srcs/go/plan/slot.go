package plan

import (
	"errors"
	"fmt"
)

// Slot is where one rank runs.
type Slot struct {
	Rank      int
	LocalRank int
	Host      HostSpec
}

func (s Slot) Name() string {
	return fmt.Sprintf("%s.rank-%d", FormatIPv4(s.Host.IPv4), s.Rank)
}

var errNotEnoughCapacity = errors.New("not enough capacity")

// Place fills the hosts in order, giving ranks 0..np-1 consecutive slots.
func (hl HostList) Place(np int) ([]Slot, error) {
	if hl.Cap() < np {
		return nil, fmt.Errorf("%w: %d ranks on %d slots", errNotEnoughCapacity, np, hl.Cap())
	}
	var slots []Slot
	for _, h := range hl {
		for j := 0; j < h.Slots && len(slots) < np; j++ {
			slots = append(slots, Slot{Rank: len(slots), LocalRank: j, Host: h})
		}
	}
	return slots, nil
}

// On returns the slots placed on the host with the given address.
func On(slots []Slot, ipv4 uint32) []Slot {
	var on []Slot
	for _, s := range slots {
		if s.Host.IPv4 == ipv4 {
			on = append(on, s)
		}
	}
	return on
}
