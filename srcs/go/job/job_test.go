package job

import (
	"os"
	"testing"

	"github.com/lsds/ncclpg/srcs/go/config"
	"github.com/lsds/ncclpg/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewProc(t *testing.T) {
	lookupEnv = mockLookupEnv
	defer func() { lookupEnv = os.LookupEnv }()
	delete(cudaEnv, `CUDA_VISIBLE_DEVICES`)
	t.Setenv(config.LogLevelEnvKey, "DEBUG")

	hl, err := plan.ParseHostList("127.0.0.1:2:localhost")
	require.NoError(t, err)
	slots, err := hl.Place(2)
	require.NoError(t, err)
	j := Job{
		HostList:       hl,
		Size:           2,
		DevicesPerRank: 2,
		StoreAddr:      "127.0.0.1:38080",
		Prog:           "./worker",
	}
	ps, err := j.CreateProcs(slots)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	p := ps[1]
	assert.Equal(t, "127.0.0.1.rank-1", p.Name)
	assert.Equal(t, "localhost", p.Hostname)
	assert.Equal(t, "1", p.Envs["NCCLPG_RANK"])
	assert.Equal(t, "2", p.Envs["NCCLPG_SIZE"])
	assert.Equal(t, "127.0.0.1:38080", p.Envs["NCCLPG_STORE_ADDR"])
	assert.Equal(t, "0,1", p.Envs["NCCLPG_LOCAL_DEVICES"])
	assert.Equal(t, "2,3", p.Envs["CUDA_VISIBLE_DEVICES"])
	assert.Equal(t, "DEBUG", p.Envs[config.LogLevelEnvKey])

	cudaEnv[`CUDA_VISIBLE_DEVICES`] = "0,1,2"
	_, err = j.CreateProcs(slots)
	assert.Error(t, err)
}
