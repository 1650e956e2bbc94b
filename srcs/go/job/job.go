package job

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/env"
	"github.com/lsds/ncclpg/srcs/go/plan"
	"github.com/lsds/ncclpg/srcs/go/proc"
)

type Job struct {
	StartTime      time.Time
	HostList       plan.HostList
	Size           int
	DevicesPerRank int
	StoreAddr      string
	Prog           string
	Args           []string
	LogDir         string
}

// NewProc returns the process of the rank placed on slot. Each rank sees
// only its own devices, numbered from 0.
func (j Job) NewProc(slot plan.Slot) (proc.Proc, error) {
	ids, err := getCudaIndices(slot.LocalRank, j.DevicesPerRank)
	if err != nil {
		return proc.Proc{}, err
	}
	local := make([]int, j.DevicesPerRank)
	for i := range local {
		local[i] = i
	}
	envs := proc.Envs{
		env.JobStartTimestamp:  strconv.FormatInt(j.StartTime.Unix(), 10),
		env.RankEnvKey:         strconv.Itoa(slot.Rank),
		env.SizeEnvKey:         strconv.Itoa(j.Size),
		env.StoreAddrEnvKey:    j.StoreAddr,
		env.LocalDevicesEnvKey: env.FormatDeviceList(local),
		cudaVisibleDevicesKey:  env.FormatDeviceList(ids),
	}
	return proc.Proc{
		Name:     slot.Name(),
		Prog:     j.Prog,
		Args:     j.Args,
		Envs:     proc.Merge(getConfigEnvs(), envs),
		Hostname: slot.Host.PublicAddr,
		LogDir:   j.LogDir,
	}, nil
}

// CreateProcs returns the processes of every slot.
func (j Job) CreateProcs(slots []plan.Slot) ([]proc.Proc, error) {
	var ps []proc.Proc
	for _, s := range slots {
		p, err := j.NewProc(s)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %v", s.Rank, err)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

func getConfigEnvs() proc.Envs {
	envs := make(proc.Envs)
	for _, k := range config.ConfigEnvKeys {
		if val := os.Getenv(k); len(val) > 0 {
			envs[k] = val
		}
	}
	return envs
}

func (j Job) DebugString() string {
	return fmt.Sprintf("job{np=%d, devices-per-rank=%d, store=%s, prog=%s, args=%q}", j.Size, j.DevicesPerRank, j.StoreAddr, j.Prog, j.Args)
}
