package env

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SingleProcess(t *testing.T) {
	t.Setenv(RankEnvKey, "")
	os.Unsetenv(RankEnvKey)
	cfg, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Single)
	assert.Equal(t, 0, cfg.Rank)
	assert.Equal(t, 1, cfg.Size)
	assert.Equal(t, []int{0}, cfg.LocalDevices)
}

func Test_ParseConfigFromEnv(t *testing.T) {
	t.Setenv(RankEnvKey, "1")
	t.Setenv(SizeEnvKey, "4")
	t.Setenv(StoreAddrEnvKey, "10.0.0.1:38080")
	t.Setenv(LocalDevicesEnvKey, "0,1")
	cfg, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, &Config{Rank: 1, Size: 4, StoreAddr: "10.0.0.1:38080", LocalDevices: []int{0, 1}}, cfg)

	t.Setenv(LocalDevicesEnvKey, "")
	cfg, err = ParseConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []int{0}, cfg.LocalDevices)
}

func Test_ParseConfigFromEnvErrors(t *testing.T) {
	t.Setenv(RankEnvKey, "4")
	t.Setenv(SizeEnvKey, "4")
	t.Setenv(StoreAddrEnvKey, "127.0.0.1:38080")
	_, err := ParseConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(RankEnvKey, "0")
	t.Setenv(LocalDevicesEnvKey, "0,x")
	_, err = ParseConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(LocalDevicesEnvKey, "0")
	t.Setenv(SizeEnvKey, "four")
	_, err = ParseConfigFromEnv()
	assert.Error(t, err)
}

func Test_DeviceList(t *testing.T) {
	ids, err := ParseDeviceList("3, 1,12")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 12}, ids)
	assert.Equal(t, "3,1,12", FormatDeviceList(ids))
	_, err = ParseDeviceList("-1")
	assert.Error(t, err)
}
