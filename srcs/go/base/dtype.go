package base

import "fmt"

// DataType is the element type of a Vector or of a device buffer.
type DataType int32

const (
	U8 DataType = iota
	U16
	U32
	U64

	I8
	I16
	I32
	I64

	F16
	F32
	F64
)

var dtypeSizes = map[DataType]int{
	U8:  1,
	U16: 2,
	U32: 4,
	U64: 8,

	I8:  1,
	I16: 2,
	I32: 4,
	I64: 8,

	F16: 2,
	F32: 4,
	F64: 8,
}

func (t DataType) Size() int {
	return dtypeSizes[t]
}

var dtypeNames = map[DataType]string{
	U8:  "u8",
	U16: "u16",
	U32: "u32",
	U64: "u64",

	I8:  "i8",
	I16: "i16",
	I32: "i32",
	I64: "i64",

	F16: "f16",
	F32: "f32",
	F64: "f64",
}

func (t DataType) String() string {
	if name, ok := dtypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int32(t))
}

// ParseDataType is the inverse of String.
func ParseDataType(name string) (DataType, error) {
	for t, s := range dtypeNames {
		if s == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", name)
}
