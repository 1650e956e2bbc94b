package job

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// https://devblogs.nvidia.com/cuda-pro-tip-control-gpu-visibility-cuda_visible_devices/
const cudaVisibleDevicesKey = `CUDA_VISIBLE_DEVICES`

var lookupEnv = os.LookupEnv

// getCudaIndices returns the physical devices of the n devices of a local
// rank, honoring the CUDA_VISIBLE_DEVICES of the launcher.
func getCudaIndices(localRank, n int) ([]int, error) {
	first := localRank * n
	val, ok := lookupEnv(cudaVisibleDevicesKey)
	if !ok {
		ids := make([]int, n)
		for i := range ids {
			ids[i] = first + i
		}
		return ids, nil
	}
	ids, err := parseCudaVisibleDevices(val)
	if err != nil {
		return nil, fmt.Errorf("invalid value of %s: %q", cudaVisibleDevicesKey, val)
	}
	if len(ids) < first+n {
		return nil, fmt.Errorf("%s=%s is not enough for local rank %d with %d devices", cudaVisibleDevicesKey, val, localRank, n)
	}
	return ids[first : first+n], nil
}

var errInvalidCudaVisibleDevices = errors.New("invalid " + cudaVisibleDevicesKey)

func parseCudaVisibleDevices(val string) ([]int, error) {
	if len(val) == 0 {
		return nil, nil
	}
	set := make(map[int]struct{})
	var ids []int
	for _, p := range strings.Split(val, ",") {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			break
		}
		if _, ok := set[n]; ok {
			return nil, errInvalidCudaVisibleDevices
		}
		set[n] = struct{}{}
		ids = append(ids, n)
	}
	return ids, nil
}
