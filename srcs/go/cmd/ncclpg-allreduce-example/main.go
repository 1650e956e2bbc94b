// ncclpg-allreduce-example runs an all-reduce and a broadcast over every
// local device of each rank and checks the results.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/monitor"
	"github.com/lsds/ncclpg/srcs/go/procgroup"
	"github.com/lsds/ncclpg/srcs/go/utils"
)

var (
	count       = flag.Int("count", 1024, "float32 elements per device")
	steps       = flag.Int("steps", 3, "number of all-reduce steps")
	metricsPort = flag.Int("metrics-port", 9100, "port of /metrics when monitoring is enabled")
)

// tensors moves host values in and out of device buffers.
type tensors interface {
	alloc(dev int, values []float32) (procgroup.Buffer, error)
	read(b procgroup.Buffer) ([]float32, error)
}

func main() {
	flag.Parse()
	if config.EnableMonitoring {
		srv, err := monitor.StartServer(monitor.GetMonitor(), *metricsPort)
		if err != nil {
			utils.ExitErr(err)
		}
		defer srv.Close()
	}
	d, err := utils.Measure(run)
	if err != nil {
		utils.ExitErr(err)
	}
	log.Infof("ncclpg-allreduce-example took %s", d)
}

func fill(n int, x float32) []float32 {
	vs := make([]float32, n)
	for i := range vs {
		vs[i] = x
	}
	return vs
}

// participant value of device i of rank r, counting from 1.
func participant(pg *procgroup.ProcessGroup, ndev, i int) float32 {
	return float32(pg.Rank()*ndev + i + 1)
}

func allocAll(ts tensors, devices []int, values func(i int) []float32) ([]procgroup.Buffer, error) {
	var bufs []procgroup.Buffer
	for i, dev := range devices {
		b, err := ts.alloc(dev, values(i))
		if err != nil {
			return nil, err
		}
		bufs = append(bufs, b)
	}
	return bufs, nil
}

func check(ts tensors, name string, bufs []procgroup.Buffer, want float32) error {
	for _, b := range bufs {
		got, err := ts.read(b)
		if err != nil {
			return err
		}
		for j, x := range got {
			if x != want {
				return fmt.Errorf("%s: device %d element %d is %v, want %v", name, b.Device, j, x, want)
			}
		}
	}
	return nil
}

func wait(w *procgroup.Work) error {
	_, err := w.Wait()
	return err
}

func runRank(pg *procgroup.ProcessGroup, ts tensors, devices []int) error {
	n := len(devices)
	total := pg.Size() * n
	bufs, err := allocAll(ts, devices, func(i int) []float32 {
		return fill(*count, participant(pg, n, i))
	})
	if err != nil {
		return err
	}
	want := float32(total * (total + 1) / 2)
	t0 := time.Now()
	for step := 0; step < *steps; step++ {
		w, err := pg.AllReduce(bufs, procgroup.AllReduceOptions{Op: base.SUM})
		if err != nil {
			return err
		}
		if err := wait(w); err != nil {
			return err
		}
		if err := check(ts, "all-reduce", bufs, want); err != nil {
			return err
		}
		want *= float32(total)
	}
	bytes := uint64(*steps * n * *count * base.F32.Size())
	log.Infof("rank %d: %d all-reduce steps over %s took %s, %s",
		pg.Rank(), *steps, utils.Pluralize(n, "device", "devices"), time.Since(t0), humanize.Bytes(bytes))

	root := procgroup.BroadcastOptions{RootRank: pg.Size() - 1, RootTensor: 0}
	bufs, err = allocAll(ts, devices, func(i int) []float32 {
		return fill(*count, participant(pg, n, i))
	})
	if err != nil {
		return err
	}
	w, err := pg.Broadcast(bufs, root)
	if err != nil {
		return err
	}
	if err := wait(w); err != nil {
		return err
	}
	if err := check(ts, "broadcast", bufs, float32(root.RootRank*n+root.RootTensor+1)); err != nil {
		return err
	}
	log.Infof("rank %d: all checks passed", pg.Rank())
	return nil
}
