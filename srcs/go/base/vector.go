package base

import (
	"fmt"
	"unsafe"

	"github.com/x448/float16"
)

type Vector struct {
	Data  []byte
	Count int
	Type  DataType
}

func NewVector(count int, dtype DataType) *Vector {
	return &Vector{
		Data:  make([]byte, count*dtype.Size()),
		Count: count,
		Type:  dtype,
	}
}

// Slice returns a new Vector that points to a subset of the original Vector.
// 0 <= begin < end <= count
func (b *Vector) Slice(begin, end int) *Vector {
	return &Vector{
		Data:  b.Data[begin*b.Type.Size() : end*b.Type.Size()],
		Count: end - begin,
		Type:  b.Type,
	}
}

// Ptr returns the address of the first element, nil for empty vectors.
func (b *Vector) Ptr() unsafe.Pointer {
	if len(b.Data) == 0 {
		return nil
	}
	return unsafe.Pointer(&b.Data[0])
}

func (b *Vector) CopyFrom(c *Vector) error {
	if b.Count != c.Count {
		return fmt.Errorf("Vector::Copy error: inconsistent count: %d vs %d", b.Count, c.Count)
	}
	if b.Type != c.Type {
		return fmt.Errorf("Vector::Copy error: inconsistent type: %s vs %s", b.Type, c.Type)
	}
	copy(b.Data, c.Data)
	return nil
}

func asSlice[T any](b *Vector, t DataType) []T {
	if b.Type != t {
		panic(fmt.Sprintf("vector of %s used as %s", b.Type, t))
	}
	if b.Count == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.Data[0])), b.Count)
}

func (b *Vector) AsU8() []uint8 { return asSlice[uint8](b, U8) }
func (b *Vector) AsI8() []int8 { return asSlice[int8](b, I8) }
func (b *Vector) AsI32() []int32 { return asSlice[int32](b, I32) }
func (b *Vector) AsI64() []int64 { return asSlice[int64](b, I64) }
func (b *Vector) AsF16() []float16.Float16 { return asSlice[float16.Float16](b, F16) }
func (b *Vector) AsF32() []float32 { return asSlice[float32](b, F32) }
func (b *Vector) AsF64() []float64 { return asSlice[float64](b, F64) }
