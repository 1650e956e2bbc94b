package device

import (
	"fmt"
	"unsafe"

	"github.com/lsds/ncclpg/srcs/go/base"
)

// Buffer describes a caller-owned tensor passed to a collective. Only these
// fields are read, the storage itself stays with the caller.
type Buffer struct {
	Ptr        unsafe.Pointer
	Count      int
	Type       base.DataType
	Device     int
	Contiguous bool
	OnDevice   bool
	Sparse     bool
}

func (b Buffer) Bytes() int {
	return b.Count * b.Type.Size()
}

func (b Buffer) String() string {
	return fmt.Sprintf("%s[%d]@dev%d", b.Type, b.Count, b.Device)
}
