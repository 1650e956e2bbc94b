package simdevice

import (
	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/lsds/ncclpg/srcs/go/device"
)

// Buffer is device memory of the simulated runtime. Its contents must only
// be touched from kernels launched on a stream, or after synchronising.
type Buffer struct {
	*base.Vector
	dev int
}

func (b *Buffer) Device() int { return b.dev }

func (b *Buffer) Descriptor() device.Buffer {
	return device.Buffer{
		Ptr:        b.Vector.Ptr(),
		Count:      b.Count,
		Type:       b.Type,
		Device:     b.dev,
		Contiguous: true,
		OnDevice:   true,
	}
}
