package env

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Rank      int
	Size      int
	StoreAddr string

	// LocalDevices are the device indices this rank drives, relative to
	// CUDA_VISIBLE_DEVICES.
	LocalDevices []int

	Single bool
}

func ParseConfigFromEnv() (*Config, error) {
	if _, ok := os.LookupEnv(RankEnvKey); !ok {
		return singleProcessEnv(), nil
	}
	rank, err := getIntFromEnv(RankEnvKey)
	if err != nil {
		return nil, err
	}
	size, err := getIntFromEnv(SizeEnvKey)
	if err != nil {
		return nil, err
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("invalid %s=%d for %s=%d", RankEnvKey, rank, SizeEnvKey, size)
	}
	storeAddr, ok := os.LookupEnv(StoreAddrEnvKey)
	if !ok {
		return nil, fmt.Errorf("%s not set", StoreAddrEnvKey)
	}
	devices, err := ParseDeviceList(os.Getenv(LocalDevicesEnvKey))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", LocalDevicesEnvKey, err)
	}
	if len(devices) == 0 {
		devices = []int{0}
	}
	return &Config{
		Rank:         rank,
		Size:         size,
		StoreAddr:    storeAddr,
		LocalDevices: devices,
	}, nil
}

func singleProcessEnv() *Config {
	return &Config{
		Rank:         0,
		Size:         1,
		LocalDevices: []int{0},
		Single:       true,
	}
}

func getIntFromEnv(key string) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return 0, fmt.Errorf("%s not set", key)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, val)
	}
	return n, nil
}

// ParseDeviceList parses a comma separated list of device indices.
func ParseDeviceList(val string) ([]int, error) {
	if len(val) == 0 {
		return nil, nil
	}
	var ids []int
	for _, p := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("negative device %d", n)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func FormatDeviceList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
