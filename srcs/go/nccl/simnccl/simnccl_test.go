package simnccl

import (
	"testing"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/device/simdevice"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type member struct {
	rt   *simdevice.Runtime
	lib  *Library
	comm nccl.Comm
	buf  *simdevice.Buffer
	out  *simdevice.Buffer
}

// setup joins one single-device member per rank into a clique of n.
func setup(t *testing.T, n, count, outCount int) []*member {
	f := NewFabric()
	seed := f.NewLibrary(simdevice.New(1))
	id, err := seed.GetUniqueID()
	require.NoError(t, err)

	ms := make([]*member, n)
	var g errgroup.Group
	for i := range ms {
		rt := simdevice.New(1)
		ms[i] = &member{rt: rt, lib: f.NewLibrary(rt)}
		ms[i].buf, err = rt.Alloc(0, count, base.F32)
		require.NoError(t, err)
		ms[i].out, err = rt.Alloc(0, outCount, base.F32)
		require.NoError(t, err)
		m, rank := ms[i], i
		g.Go(func() (err error) {
			m.comm, err = m.lib.CommInitRank(0, n, rank, id)
			return err
		})
	}
	require.NoError(t, g.Wait())
	t.Cleanup(func() {
		for _, m := range ms {
			m.comm.Destroy()
			m.rt.Close()
		}
	})
	return ms
}

func stream(t *testing.T, m *member) *simdevice.Stream {
	s, err := m.rt.CurrentStream(0)
	require.NoError(t, err)
	return s.(*simdevice.Stream)
}

func Test_AllReduce(t *testing.T) {
	const n, count = 3, 4
	ms := setup(t, n, count, count)
	for i, m := range ms {
		for j, x := range []float32{1, 2, 3, 4} {
			m.buf.AsF32()[j] = x * float32(i+1)
		}
		s := stream(t, m)
		require.NoError(t, m.lib.AllReduce(m.buf.Ptr(), m.buf.Ptr(), count, nccl.Float32, nccl.Sum, m.comm, s))
	}
	for _, m := range ms {
		require.NoError(t, m.rt.Synchronize(stream(t, m)))
		assert.Equal(t, []float32{6, 12, 18, 24}, m.buf.AsF32())
		assert.NoError(t, m.comm.(*Comm).AsyncError())
	}
}

func Test_BroadcastAndReduce(t *testing.T) {
	const n, count = 2, 3
	ms := setup(t, n, count, count)
	for i, m := range ms {
		copy(m.buf.AsF32(), []float32{float32(i + 1), 5, -1})
	}
	for _, m := range ms {
		s := stream(t, m)
		require.NoError(t, m.lib.Reduce(m.buf.Ptr(), m.out.Ptr(), count, nccl.Float32, nccl.Max, 1, m.comm, s))
		require.NoError(t, m.lib.Broadcast(m.buf.Ptr(), m.buf.Ptr(), count, nccl.Float32, 1, m.comm, s))
	}
	for _, m := range ms {
		require.NoError(t, m.rt.Synchronize(stream(t, m)))
		assert.Equal(t, []float32{2, 5, -1}, m.buf.AsF32())
	}
	assert.Equal(t, []float32{0, 0, 0}, ms[0].out.AsF32())
	assert.Equal(t, []float32{2, 5, -1}, ms[1].out.AsF32())
}

func Test_AllGather(t *testing.T) {
	const n, count = 3, 2
	ms := setup(t, n, count, n*count)
	for i, m := range ms {
		copy(m.buf.AsF32(), []float32{float32(i), float32(10 * i)})
		require.NoError(t, m.lib.AllGather(m.buf.Ptr(), m.out.Ptr(), count, nccl.Float32, m.comm, stream(t, m)))
	}
	for _, m := range ms {
		require.NoError(t, m.rt.Synchronize(stream(t, m)))
		assert.Equal(t, []float32{0, 0, 1, 10, 2, 20}, m.out.AsF32())
	}
}

// Two devices of one rank can only be initialised together inside a group.
func Test_GroupedInit(t *testing.T) {
	f := NewFabric()
	rt := simdevice.New(2)
	defer rt.Close()
	lib := f.NewLibrary(rt)
	id, err := lib.GetUniqueID()
	require.NoError(t, err)

	require.NoError(t, lib.GroupStart())
	var comms []nccl.Comm
	for dev := 0; dev < 2; dev++ {
		c, err := lib.CommInitRank(dev, 2, dev, id)
		require.NoError(t, err)
		comms = append(comms, c)
	}
	require.NoError(t, lib.GroupEnd())
	assert.Equal(t, 2, lib.CommInits())
	assert.Equal(t, 1, f.Cliques())

	var bufs []*simdevice.Buffer
	require.NoError(t, lib.GroupStart())
	for dev, c := range comms {
		b, err := rt.Alloc(dev, 2, base.I32)
		require.NoError(t, err)
		copy(b.AsI32(), []int32{int32(dev + 1), 7})
		bufs = append(bufs, b)
		s, err := rt.CurrentStream(dev)
		require.NoError(t, err)
		require.NoError(t, lib.AllReduce(b.Ptr(), b.Ptr(), 2, nccl.Int32, nccl.Prod, c, s))
	}
	require.NoError(t, lib.GroupEnd())
	for dev, b := range bufs {
		require.NoError(t, rt.SynchronizeDevice(dev))
		assert.Equal(t, []int32{2, 49}, b.AsI32())
	}
	for _, c := range comms {
		require.NoError(t, c.Destroy())
	}
	assert.Equal(t, 0, f.Cliques())
}

func Test_InvalidArguments(t *testing.T) {
	f := NewFabric()
	rt := simdevice.New(1)
	defer rt.Close()
	lib := f.NewLibrary(rt)
	id, err := lib.GetUniqueID()
	require.NoError(t, err)

	_, err = lib.CommInitRank(0, 2, 2, id)
	var ne *nccl.Error
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nccl.InvalidArgument, ne.Code)

	_, err = lib.CommInitRank(3, 1, 0, id)
	require.Error(t, err)

	c, err := lib.CommInitRank(0, 1, 0, id)
	require.NoError(t, err)
	defer c.Destroy()
	s, err := rt.CurrentStream(0)
	require.NoError(t, err)
	b, err := rt.Alloc(0, 1, base.F32)
	require.NoError(t, err)
	err = lib.Broadcast(b.Ptr(), b.Ptr(), 1, nccl.Float32, 1, c, s)
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "ncclBroadcast", ne.Op)

	assert.EqualError(t, lib.GroupEnd(), "ncclGroupEnd failed: no group in progress (code 5)")

	lib.InjectError("ncclAllReduce", nccl.SystemError)
	err = lib.AllReduce(b.Ptr(), b.Ptr(), 1, nccl.Float32, nccl.Sum, c, s)
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nccl.SystemError, ne.Code)
	require.NoError(t, lib.AllReduce(b.Ptr(), b.Ptr(), 1, nccl.Float32, nccl.Sum, c, s))
	require.NoError(t, rt.Synchronize(s))
}

func Test_GroupEndLaunchesPastFailure(t *testing.T) {
	f := NewFabric()
	rt := simdevice.New(2)
	defer rt.Close()
	lib := f.NewLibrary(rt)
	id, err := lib.GetUniqueID()
	require.NoError(t, err)

	require.NoError(t, lib.GroupStart())
	var comms []nccl.Comm
	for dev := 0; dev < 2; dev++ {
		c, err := lib.CommInitRank(dev, 2, dev, id)
		require.NoError(t, err)
		comms = append(comms, c)
	}
	require.NoError(t, lib.GroupEnd())

	var bufs []*simdevice.Buffer
	var streams []*simdevice.Stream
	for dev := 0; dev < 2; dev++ {
		b, err := rt.Alloc(dev, 1, base.I32)
		require.NoError(t, err)
		b.AsI32()[0] = int32(dev + 1)
		bufs = append(bufs, b)
		s, err := rt.CurrentStream(dev)
		require.NoError(t, err)
		streams = append(streams, s.(*simdevice.Stream))
	}

	rt.InjectError("Launch", &device.Error{Op: "Launch", Code: 2, Msg: "out of memory"})
	require.NoError(t, lib.GroupStart())
	for dev, c := range comms {
		require.NoError(t, lib.AllReduce(bufs[dev].Ptr(), bufs[dev].Ptr(), 1, nccl.Int32, nccl.Sum, c, streams[dev]))
	}
	err = lib.GroupEnd()
	var de *device.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Launch", de.Op)
	assert.Contains(t, err.Error(), "ncclGroupEnd failed with 1 error")

	// Device 1 was launched and waits for its peer.
	assert.False(t, streams[1].Idle())

	require.NoError(t, lib.AllReduce(bufs[0].Ptr(), bufs[0].Ptr(), 1, nccl.Int32, nccl.Sum, comms[0], streams[0]))
	for dev, b := range bufs {
		require.NoError(t, rt.SynchronizeDevice(dev))
		assert.Equal(t, []int32{3}, b.AsI32())
	}
	for _, c := range comms {
		assert.NoError(t, c.(*Comm).AsyncError())
		require.NoError(t, c.Destroy())
	}
}

func Test_MismatchedCalls(t *testing.T) {
	ms := setup(t, 2, 4, 4)
	require.NoError(t, ms[0].lib.AllReduce(ms[0].buf.Ptr(), ms[0].buf.Ptr(), 4, nccl.Float32, nccl.Sum, ms[0].comm, stream(t, ms[0])))
	require.NoError(t, ms[1].lib.AllReduce(ms[1].buf.Ptr(), ms[1].buf.Ptr(), 2, nccl.Float32, nccl.Sum, ms[1].comm, stream(t, ms[1])))
	for _, m := range ms {
		require.NoError(t, m.rt.Synchronize(stream(t, m)))
		assert.Error(t, m.comm.(*Comm).AsyncError())
	}
}
