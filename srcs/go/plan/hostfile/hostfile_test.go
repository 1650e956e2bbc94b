package hostfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse(t *testing.T) {
	text := `
	# ...
	127.0.0.1 slots=4 # ...
	# ...
   	192.168.0.2   slots=8 public_addr=gpu-2
	`
	hl, err := Parse(text)
	require.NoError(t, err)
	require.Len(t, hl, 2)
	assert.Equal(t, 4, hl[0].Slots)
	assert.Equal(t, "127.0.0.1", hl[0].PublicAddr)
	assert.Equal(t, 8, hl[1].Slots)
	assert.Equal(t, "gpu-2", hl[1].PublicAddr)
}

func Test_ParseErrors(t *testing.T) {
	for _, text := range []string{"host-1 slots=2", "127.0.0.1 slots", "127.0.0.1 slots=x", "127.0.0.1 gpus=2"} {
		_, err := Parse(text)
		assert.Error(t, err, text)
	}
}

func Test_ParseFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hostfile")
	require.NoError(t, os.WriteFile(name, []byte("10.0.0.1 slots=2\n10.0.0.2\n"), 0644))
	hl, err := ParseFile(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, 3, hl.Cap())
}
