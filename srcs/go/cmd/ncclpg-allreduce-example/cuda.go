//go:build cuda

package main

import (
	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device/cudart"
	"github.com/lsds/ncclpg/srcs/go/env"
	"github.com/lsds/ncclpg/srcs/go/procgroup"
	"github.com/lsds/ncclpg/srcs/go/store"
	"github.com/lsds/ncclpg/srcs/go/store/httpstore"
)

type cudaTensors struct {
	rt *cudart.Runtime
}

func (ts cudaTensors) alloc(dev int, values []float32) (procgroup.Buffer, error) {
	v := base.NewVector(len(values), base.F32)
	copy(v.AsF32(), values)
	p, err := ts.rt.Malloc(dev, len(v.Data))
	if err != nil {
		return procgroup.Buffer{}, err
	}
	if err := ts.rt.CopyToDevice(dev, p, v.Data); err != nil {
		return procgroup.Buffer{}, err
	}
	return procgroup.Buffer{
		Ptr:        p,
		Count:      v.Count,
		Type:       v.Type,
		Device:     dev,
		Contiguous: true,
		OnDevice:   true,
	}, nil
}

func (ts cudaTensors) read(b procgroup.Buffer) ([]float32, error) {
	if err := ts.rt.SynchronizeDevice(b.Device); err != nil {
		return nil, err
	}
	v := base.NewVector(b.Count, b.Type)
	if err := ts.rt.CopyToHost(b.Device, v.Data, b.Ptr); err != nil {
		return nil, err
	}
	return v.AsF32(), nil
}

// run drives the rank described by the environment set by ncclpg-run.
func run() error {
	cfg, err := env.ParseConfigFromEnv()
	if err != nil {
		return err
	}
	var st store.Store
	if cfg.Single {
		st = store.NewMemStore()
	} else {
		c, err := httpstore.NewClient(cfg.StoreAddr, "ncclpg-allreduce-example")
		if err != nil {
			return err
		}
		st = c
	}
	rt, err := cudart.New()
	if err != nil {
		return err
	}
	pg, err := procgroup.New(st, cfg.Rank, cfg.Size, procgroup.WithRuntime(rt))
	if err != nil {
		return err
	}
	defer pg.Close()
	return runRank(pg, cudaTensors{rt: rt}, cfg.LocalDevices)
}
