package procgroup

import (
	"testing"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device/simdevice"
	"github.com/lsds/ncclpg/srcs/go/nccl/simnccl"
	"github.com/lsds/ncclpg/srcs/go/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GroupIDsIncrease(t *testing.T) {
	reg := NewRegistry()
	rt := simdevice.New(1)
	defer rt.Close()
	lib := simnccl.NewFabric().NewLibrary(rt)
	st := store.NewMemStore()
	var pgs []*ProcessGroup
	for i := 0; i < 4; i++ {
		pg, err := New(st, 0, 1, WithRegistry(reg), WithLibrary(lib), WithRuntime(rt))
		require.NoError(t, err)
		pgs = append(pgs, pg)
	}
	for i := 1; i < len(pgs); i++ {
		assert.Greater(t, pgs[i].GroupID(), pgs[i-1].GroupID())
	}
	require.NoError(t, pgs[1].Close())
	pg, err := New(st, 0, 1, WithRegistry(reg), WithLibrary(lib), WithRuntime(rt))
	require.NoError(t, err)
	assert.Equal(t, 4, pg.GroupID())
}

func Test_Registry(t *testing.T) {
	reg := NewRegistry()
	a, b := reg.Acquire(), reg.Acquire()
	for want := 0; want < 3; want++ {
		seq, err := reg.NextSeq(a)
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}
	seq, err := reg.NextSeq(b)
	require.NoError(t, err)
	assert.Equal(t, 0, seq)
	reg.Release(a)
	_, err = reg.NextSeq(a)
	assert.Error(t, err)
}

// Groups sharing a store keep their keys apart through their group IDs.
func Test_GroupsShareStore(t *testing.T) {
	reg := NewRegistry()
	st := store.NewMemStore()
	fabric := simnccl.NewFabric()
	for i := 0; i < 2; i++ {
		rt := simdevice.New(1)
		defer rt.Close()
		pg, err := New(st, 0, 1, WithRegistry(reg), WithLibrary(fabric.NewLibrary(rt)), WithRuntime(rt))
		require.NoError(t, err)
		defer pg.Close()
		b, err := rt.Alloc(0, 1, base.F32)
		require.NoError(t, err)
		_, err = pg.AllReduce([]Buffer{b.Descriptor()}, AllReduceOptions{})
		require.NoError(t, err)
	}
	for _, key := range []string{"0_0", "1_0"} {
		_, ok := st.Lookup(key)
		assert.True(t, ok, key)
	}
}

func Test_NewValidatesArguments(t *testing.T) {
	rt := simdevice.New(1)
	defer rt.Close()
	lib := simnccl.NewFabric().NewLibrary(rt)
	st := store.NewMemStore()
	for _, rs := range [][2]int{{0, 0}, {-1, 2}, {2, 2}} {
		_, err := New(st, rs[0], rs[1], WithLibrary(lib), WithRuntime(rt), WithRegistry(NewRegistry()))
		var ce *ConfigurationError
		assert.ErrorAs(t, err, &ce, "rank %d of %d", rs[0], rs[1])
	}
	_, err := New(nil, 0, 1, WithLibrary(lib), WithRuntime(rt))
	assert.Error(t, err)
	_, err = New(st, 0, 1, WithRuntime(rt), WithRegistry(NewRegistry()))
	assert.Error(t, err)
}

func Test_Close(t *testing.T) {
	c := newCluster(t, 1, 2)
	r := c.ranks[0]
	_, descs := r.alloc(t, []int{1, 0}, 3, base.F32)
	w, err := r.pg.AllReduce(descs, AllReduceOptions{})
	require.NoError(t, err)
	require.NoError(t, r.finish(w))
	assert.Equal(t, 1, c.fabric.Cliques())

	require.NoError(t, r.pg.Close())
	require.NoError(t, r.pg.Close())
	assert.Equal(t, 0, c.fabric.Cliques())
	_, err = r.pg.AllReduce(descs, AllReduceOptions{})
	assert.ErrorIs(t, err, errClosed)
}
