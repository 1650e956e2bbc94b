package procgroup

import "github.com/lsds/ncclpg/srcs/go/device"

type Buffer = device.Buffer

// checkBuffers enforces the buffer contract shared by all collectives.
// Each output must hold outputOverInput times the elements of its input.
// Only local properties are checked, agreement across ranks is up to the
// caller.
func checkBuffers(inputs, outputs []Buffer, outputOverInput int, visibleDevices int) error {
	if len(inputs) != len(outputs) {
		return validationErrorf(SizeMismatch, "%d inputs but %d outputs", len(inputs), len(outputs))
	}
	if len(inputs) == 0 {
		return validationErrorf(EmptyInput, "no input buffers")
	}
	if len(inputs) > visibleDevices {
		return validationErrorf(TooManyDevices, "%d buffers but only %d visible devices", len(inputs), visibleDevices)
	}
	dtype := inputs[0].Type
	count := inputs[0].Count
	used := make(map[int]struct{})
	for i, in := range inputs {
		out := outputs[i]
		if !isDenseDevice(in) || !isDenseDevice(out) {
			return validationErrorf(NotDenseDevice, "buffer %d: only dense device buffers are supported", i)
		}
		if in.Type != dtype || out.Type != dtype {
			return validationErrorf(TypeMismatch, "buffer %d: want %s, got %s -> %s", i, dtype, in.Type, out.Type)
		}
		if in.Count != count {
			return validationErrorf(CountMismatch, "input %d has %d elements, input 0 has %d", i, in.Count, count)
		}
		if out.Count != count*outputOverInput {
			return validationErrorf(OutputCountMismatch, "output %d has %d elements, want %d x %d", i, out.Count, count, outputOverInput)
		}
		if !in.Contiguous || !out.Contiguous {
			return validationErrorf(NotContiguous, "buffer %d is not contiguous", i)
		}
		if _, ok := used[in.Device]; ok {
			return validationErrorf(DuplicateDevice, "input %d is on device %d, which is already used", i, in.Device)
		}
		used[in.Device] = struct{}{}
		if in.Device != out.Device {
			return validationErrorf(DeviceMismatch, "input %d is on device %d, its output on device %d", i, in.Device, out.Device)
		}
	}
	return nil
}

func isDenseDevice(b Buffer) bool {
	return b.OnDevice && !b.Sparse
}

func devicesOf(bufs []Buffer) []int {
	devices := make([]int, len(bufs))
	for i, b := range bufs {
		devices[i] = b.Device
	}
	return devices
}
