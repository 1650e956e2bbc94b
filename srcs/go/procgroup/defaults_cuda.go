//go:build cuda

package procgroup

import (
	"github.com/lsds/ncclpg/srcs/go/device"
	"github.com/lsds/ncclpg/srcs/go/device/cudart"
	"github.com/lsds/ncclpg/srcs/go/nccl"
	"github.com/lsds/ncclpg/srcs/go/nccl/libnccl"
)

func init() {
	defaultLibrary = func() (nccl.Library, error) { return libnccl.New(), nil }
	defaultRuntime = func() (device.Runtime, error) { return cudart.New() }
}
