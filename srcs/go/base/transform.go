package base

import (
	"fmt"

	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

type number interface {
	constraints.Integer | constraints.Float
}

func reduce[T number](z, x, y []T, op OP) {
	switch op {
	case SUM:
		for i := range z {
			z[i] = x[i] + y[i]
		}
	case PROD:
		for i := range z {
			z[i] = x[i] * y[i]
		}
	case MIN:
		for i := range z {
			z[i] = min(x[i], y[i])
		}
	case MAX:
		for i := range z {
			z[i] = max(x[i], y[i])
		}
	}
}

// f16 values are widened to float32 for the arithmetic.
func reduceF16(z, x, y []float16.Float16, op OP) {
	for i := range z {
		a, b := x[i].Float32(), y[i].Float32()
		var c float32
		switch op {
		case SUM:
			c = a + b
		case PROD:
			c = a * b
		case MIN:
			c = min(a, b)
		case MAX:
			c = max(a, b)
		}
		z[i] = float16.Fromfloat32(c)
	}
}

func view[T any](v *Vector) []T {
	return asSlice[T](v, v.Type)
}

// Transform performs y[i] = y[i] op x[i] for vectors y and x
func Transform(y, x *Vector, op OP) error {
	return Transform2(y, x, y, op)
}

// Transform2 performs z[i] = x[i] op y[i] for vectors z and x, y.
func Transform2(z, x, y *Vector, op OP) error {
	if x.Count != z.Count || y.Count != z.Count {
		return fmt.Errorf("Transform2: inconsistent count: %d, %d, %d", z.Count, x.Count, y.Count)
	}
	if x.Type != z.Type || y.Type != z.Type {
		return fmt.Errorf("Transform2: inconsistent type: %s, %s, %s", z.Type, x.Type, y.Type)
	}
	if _, ok := opNames[op]; !ok {
		return fmt.Errorf("Transform2: invalid op %s", op)
	}
	if z.Count == 0 {
		return nil
	}
	switch z.Type {
	case U8:
		reduce(view[uint8](z), view[uint8](x), view[uint8](y), op)
	case U16:
		reduce(view[uint16](z), view[uint16](x), view[uint16](y), op)
	case U32:
		reduce(view[uint32](z), view[uint32](x), view[uint32](y), op)
	case U64:
		reduce(view[uint64](z), view[uint64](x), view[uint64](y), op)
	case I8:
		reduce(view[int8](z), view[int8](x), view[int8](y), op)
	case I16:
		reduce(view[int16](z), view[int16](x), view[int16](y), op)
	case I32:
		reduce(view[int32](z), view[int32](x), view[int32](y), op)
	case I64:
		reduce(view[int64](z), view[int64](x), view[int64](y), op)
	case F16:
		reduceF16(view[float16.Float16](z), view[float16.Float16](x), view[float16.Float16](y), op)
	case F32:
		reduce(view[float32](z), view[float32](x), view[float32](y), op)
	case F64:
		reduce(view[float64](z), view[float64](x), view[float64](y), op)
	default:
		return fmt.Errorf("Transform2: unsupported type %s", z.Type)
	}
	return nil
}
