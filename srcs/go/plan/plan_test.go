package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseHostList(t *testing.T) {
	hl, err := ParseHostList("127.0.0.1:4,192.168.1.2:2:gpu-2,10.0.0.3")
	require.NoError(t, err)
	require.Len(t, hl, 3)
	assert.Equal(t, 4, hl[0].Slots)
	assert.Equal(t, "gpu-2", hl[1].PublicAddr)
	assert.Equal(t, 1, hl[2].Slots)
	assert.Equal(t, 7, hl.Cap())
	assert.Equal(t, "127.0.0.1:4:127.0.0.1,192.168.1.2:2:gpu-2,10.0.0.3:1:10.0.0.3", hl.String())

	for _, bad := range []string{"localhost", "127.0.0.1:x", "127.0.0.1:1:a:b", "127.0.0.1:-1"} {
		_, err := ParseHostList(bad)
		assert.Error(t, err, bad)
	}
}

func Test_Place(t *testing.T) {
	hl, err := ParseHostList("10.0.0.1:2,10.0.0.2:2")
	require.NoError(t, err)
	slots, err := hl.Place(3)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, Slot{Rank: 2, LocalRank: 0, Host: hl[1]}, slots[2])
	assert.Equal(t, "10.0.0.2.rank-2", slots[2].Name())
	assert.Len(t, On(slots, hl[0].IPv4), 2)
	assert.Len(t, On(slots, hl[1].IPv4), 1)

	_, err = hl.Place(5)
	assert.ErrorIs(t, err, errNotEnoughCapacity)
}

func Test_IsLocal(t *testing.T) {
	assert.True(t, IsLocal(MustParseIPv4("127.0.0.1")))
	hl := HostList{DefaultHostSpec}
	assert.True(t, hl.AllLocal())
}
