package procgroup

import (
	"testing"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device/simdevice"
	"github.com/lsds/ncclpg/srcs/go/monitor"
	"github.com/lsds/ncclpg/srcs/go/nccl/simnccl"
	"github.com/lsds/ncclpg/srcs/go/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type testRank struct {
	pg  *ProcessGroup
	rt  *simdevice.Runtime
	lib *simnccl.Library
}

type testCluster struct {
	store  *store.MemStore
	fabric *simnccl.Fabric
	ranks  []*testRank
}

// newCluster starts size ranks with devices simulated devices each. Every
// rank has its own registry and runtime, as if it were a separate process.
func newCluster(t *testing.T, size, devices int) *testCluster {
	c := &testCluster{
		store:  store.NewMemStore(),
		fabric: simnccl.NewFabric(),
	}
	for r := 0; r < size; r++ {
		rt := simdevice.New(devices)
		lib := c.fabric.NewLibrary(rt)
		pg, err := New(c.store, r, size,
			WithRegistry(NewRegistry()),
			WithLibrary(lib),
			WithRuntime(rt),
			WithMetrics(monitor.New(0)))
		require.NoError(t, err)
		c.ranks = append(c.ranks, &testRank{pg: pg, rt: rt, lib: lib})
	}
	t.Cleanup(func() {
		for _, r := range c.ranks {
			r.pg.Close()
			r.rt.Close()
		}
		c.store.Close()
	})
	return c
}

// run calls f for every rank concurrently.
func (c *testCluster) run(t *testing.T, f func(r *testRank) error) {
	var g errgroup.Group
	for _, r := range c.ranks {
		r := r
		g.Go(func() error { return f(r) })
	}
	require.NoError(t, g.Wait())
}

// alloc returns one buffer per device in devices, filled by init.
func (r *testRank) alloc(t *testing.T, devices []int, count int, dtype base.DataType) ([]*simdevice.Buffer, []Buffer) {
	var bufs []*simdevice.Buffer
	var descs []Buffer
	for _, dev := range devices {
		b, err := r.rt.Alloc(dev, count, dtype)
		require.NoError(t, err)
		bufs = append(bufs, b)
		descs = append(descs, b.Descriptor())
	}
	return bufs, descs
}

// finish waits for w on the compute streams, then drains them.
func (r *testRank) finish(w *Work) error {
	ok, err := w.Wait()
	if err != nil {
		return err
	}
	if !ok {
		panic("Wait reported failure")
	}
	for _, dev := range w.Devices() {
		if err := r.rt.SynchronizeDevice(dev); err != nil {
			return err
		}
	}
	return nil
}
