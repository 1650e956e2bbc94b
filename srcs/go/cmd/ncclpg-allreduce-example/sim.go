//go:build !cuda

package main

import (
	"flag"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device/simdevice"
	"github.com/lsds/ncclpg/srcs/go/nccl/simnccl"
	"github.com/lsds/ncclpg/srcs/go/procgroup"
	"github.com/lsds/ncclpg/srcs/go/store"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	np      = flag.Int("np", 2, "number of simulated ranks")
	devices = flag.Int("devices", 2, "simulated devices per rank")
)

type simTensors struct {
	rt   *simdevice.Runtime
	bufs map[unsafe.Pointer]*simdevice.Buffer
}

func (ts simTensors) alloc(dev int, values []float32) (procgroup.Buffer, error) {
	b, err := ts.rt.Alloc(dev, len(values), base.F32)
	if err != nil {
		return procgroup.Buffer{}, err
	}
	copy(b.AsF32(), values)
	ts.bufs[b.Ptr()] = b
	return b.Descriptor(), nil
}

func (ts simTensors) read(b procgroup.Buffer) ([]float32, error) {
	if err := ts.rt.SynchronizeDevice(b.Device); err != nil {
		return nil, err
	}
	src, ok := ts.bufs[b.Ptr]
	if !ok {
		return nil, errors.Errorf("unknown buffer %s", b)
	}
	v := base.NewVector(b.Count, b.Type)
	if err := v.CopyFrom(src.Vector); err != nil {
		return nil, err
	}
	return v.AsF32(), nil
}

// run starts every rank in this process. Ranks share a store and a fabric
// but nothing else.
func run() error {
	st := store.NewMemStore()
	defer st.Close()
	fabric := simnccl.NewFabric()
	devs := make([]int, *devices)
	for i := range devs {
		devs[i] = i
	}
	var g errgroup.Group
	for r := 0; r < *np; r++ {
		g.Go(func() error {
			rt := simdevice.New(*devices)
			defer rt.Close()
			pg, err := procgroup.New(st, r, *np,
				procgroup.WithRegistry(procgroup.NewRegistry()),
				procgroup.WithLibrary(fabric.NewLibrary(rt)),
				procgroup.WithRuntime(rt))
			if err != nil {
				return err
			}
			defer pg.Close()
			return runRank(pg, simTensors{rt: rt, bufs: make(map[unsafe.Pointer]*simdevice.Buffer)}, devs)
		})
	}
	return g.Wait()
}
