package procgroup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DeviceSetKey(t *testing.T) {
	assert.Equal(t, NewDeviceSetKey([]int{1, 12}), NewDeviceSetKey([]int{1, 12}))
	assert.True(t, NewDeviceSetKey(nil).Empty())
	assert.False(t, NewDeviceSetKey([]int{0}).Empty())

	distinct := [][]int{
		{1, 12},
		{11, 2},
		{112},
		{1, 1, 2},
		{12, 1},
		{0, 1},
		{1, 0},
		{10},
		{1, 0, 0},
	}
	seen := make(map[DeviceSetKey][]int)
	for _, devices := range distinct {
		k := NewDeviceSetKey(devices)
		if prev, ok := seen[k]; ok {
			t.Errorf("%v and %v share key %q", prev, devices, k)
		}
		seen[k] = devices
		assert.Equal(t, devices, k.Devices())
	}
}

func Test_DeviceSetKeyString(t *testing.T) {
	assert.Equal(t, "1,12", NewDeviceSetKey([]int{1, 12}).String())
	assert.Equal(t, "11,2", NewDeviceSetKey([]int{11, 2}).String())
	assert.Equal(t, "", NewDeviceSetKey(nil).String())
}
