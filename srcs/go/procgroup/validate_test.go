package procgroup

import (
	"testing"

	"github.com/lsds/ncclpg/srcs/go/base"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dense(dev, count int, dtype base.DataType) Buffer {
	return Buffer{Count: count, Type: dtype, Device: dev, Contiguous: true, OnDevice: true}
}

func Test_checkBuffers(t *testing.T) {
	two := []Buffer{dense(0, 4, base.F32), dense(1, 4, base.F32)}
	with := func(bufs []Buffer, i int, f func(*Buffer)) []Buffer {
		out := append([]Buffer(nil), bufs...)
		f(&out[i])
		return out
	}
	tests := []struct {
		name    string
		inputs  []Buffer
		outputs []Buffer
		ratio   int
		want    ValidationKind
		ok      bool
	}{
		{"valid", two, two, 1, 0, true},
		{"valid gather", two, []Buffer{dense(0, 12, base.F32), dense(1, 12, base.F32)}, 3, 0, true},
		{"more outputs", two[:1], two, 1, SizeMismatch, false},
		{"more inputs", two, two[:1], 1, SizeMismatch, false},
		{"empty", nil, nil, 1, EmptyInput, false},
		{"too many devices", []Buffer{dense(0, 1, base.F32), dense(1, 1, base.F32), dense(2, 1, base.F32)},
			[]Buffer{dense(0, 1, base.F32), dense(1, 1, base.F32), dense(2, 1, base.F32)}, 1, TooManyDevices, false},
		{"host input", with(two, 1, func(b *Buffer) { b.OnDevice = false }), two, 1, NotDenseDevice, false},
		{"sparse output", two, with(two, 0, func(b *Buffer) { b.Sparse = true }), 1, NotDenseDevice, false},
		{"input type", with(two, 1, func(b *Buffer) { b.Type = base.F64 }), two, 1, TypeMismatch, false},
		{"output type", two, with(two, 1, func(b *Buffer) { b.Type = base.I32 }), 1, TypeMismatch, false},
		{"input count", with(two, 1, func(b *Buffer) { b.Count = 3 }), two, 1, CountMismatch, false},
		{"output count", two, two, 2, OutputCountMismatch, false},
		{"not contiguous", two, with(two, 1, func(b *Buffer) { b.Contiguous = false }), 1, NotContiguous, false},
		{"duplicate device", with(two, 1, func(b *Buffer) { b.Device = 0 }), with(two, 1, func(b *Buffer) { b.Device = 0 }), 1, DuplicateDevice, false},
		{"device mismatch", two, []Buffer{dense(1, 4, base.F32), dense(0, 4, base.F32)}, 1, DeviceMismatch, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBuffers(tt.inputs, tt.outputs, tt.ratio, 2)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.want, ve.Kind, ve.Error())
		})
	}
}

func Test_SizeMismatchAnyLength(t *testing.T) {
	for n := 1; n <= 3; n++ {
		for m := 0; m <= 3; m++ {
			if n == m {
				continue
			}
			in := make([]Buffer, n)
			out := make([]Buffer, m)
			var ve *ValidationError
			require.ErrorAs(t, checkBuffers(in, out, 1, 8), &ve)
			assert.Equal(t, SizeMismatch, ve.Kind)
		}
	}
}

func Test_DuplicateDeviceAnyShape(t *testing.T) {
	for _, dtype := range []base.DataType{base.U8, base.F16, base.I64} {
		for _, count := range []int{0, 1, 1000} {
			for _, dev := range []int{0, 5, 13} {
				bufs := []Buffer{dense(dev, count, dtype), dense(dev, count, dtype)}
				var ve *ValidationError
				require.ErrorAs(t, checkBuffers(bufs, bufs, 1, 16), &ve)
				assert.Equal(t, DuplicateDevice, ve.Kind)
			}
		}
	}
}

func Test_TooManyDevicesIsResourceExhausted(t *testing.T) {
	bufs := []Buffer{dense(0, 1, base.F32), dense(1, 1, base.F32)}
	err := checkBuffers(bufs, bufs, 1, 1)
	assert.True(t, errors.Is(err, ErrResourceExhausted))
	err = checkBuffers(bufs[:1], bufs, 1, 1)
	assert.False(t, errors.Is(err, ErrResourceExhausted))
}
