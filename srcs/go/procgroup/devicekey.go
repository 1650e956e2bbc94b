package procgroup

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// DeviceSetKey identifies an ordered list of local devices. Each index is
// packed into a fixed width, so distinct lists never share a key.
type DeviceSetKey string

const deviceIndexBytes = 4

func NewDeviceSetKey(devices []int) DeviceSetKey {
	bs := make([]byte, deviceIndexBytes*len(devices))
	for i, d := range devices {
		binary.BigEndian.PutUint32(bs[i*deviceIndexBytes:], uint32(d))
	}
	return DeviceSetKey(bs)
}

func (k DeviceSetKey) Empty() bool {
	return len(k) == 0
}

func (k DeviceSetKey) Devices() []int {
	devices := make([]int, len(k)/deviceIndexBytes)
	for i := range devices {
		devices[i] = int(int32(binary.BigEndian.Uint32([]byte(k[i*deviceIndexBytes:]))))
	}
	return devices
}

func (k DeviceSetKey) String() string {
	var parts []string
	for _, d := range k.Devices() {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}
