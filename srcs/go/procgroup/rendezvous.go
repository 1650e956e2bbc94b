package procgroup

import (
	"fmt"

	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/lsds/ncclpg/srcs/go/utils"
	"github.com/pkg/errors"
)

func storeKey(groupID, seq int) string {
	return fmt.Sprintf("%d_%d", groupID, seq)
}

// broadcastUniqueID makes every rank agree on the token in id: rank 0
// publishes its value, the other ranks overwrite id with the published one.
// A fresh store key is used on every call. Get blocks for as long as rank 0
// has not published.
func (pg *ProcessGroup) broadcastUniqueID(id *nccl.UniqueID) error {
	seq, err := pg.registry.NextSeq(pg.groupID)
	if err != nil {
		return err
	}
	key := storeKey(pg.groupID, seq)
	if pg.rank == 0 {
		pg.log.Debugf("publishing unique id under %q", key)
		if err := pg.store.Set(key, id[:]); err != nil {
			return errors.Wrapf(err, "publish unique id %q", key)
		}
		return nil
	}
	pg.log.Debugf("fetching unique id from %q", key)
	if config.EnableStallDetection {
		defer utils.WatchStall(fmt.Sprintf("fetching unique id %q", key), config.StallPeriod)()
	}
	val, err := pg.store.Get(key)
	if err != nil {
		return errors.Wrapf(err, "fetch unique id %q", key)
	}
	if len(val) != nccl.UniqueIDBytes {
		return configErrorf("unique id %q has %d bytes, want %d", key, len(val), nccl.UniqueIDBytes)
	}
	copy(id[:], val)
	return nil
}
