package ssh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_withDefaultPort(t *testing.T) {
	assert.Equal(t, "10.0.0.1:22", withDefaultPort("10.0.0.1"))
	assert.Equal(t, "10.0.0.1:2222", withDefaultPort("10.0.0.1:2222"))
	assert.Equal(t, "[::1]:22", withDefaultPort("::1"))
}

func Test_completeConfig(t *testing.T) {
	c := completeConfig(Config{User: "alice", Host: "worker-1", KnownHosts: "/k"})
	assert.Equal(t, Config{User: "alice", Host: "worker-1:22", KnownHosts: "/k"}, c)
}

func Test_loadKeyFailures(t *testing.T) {
	_, err := loadKey(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "id_rsa")
	assert.NoError(t, os.WriteFile(bad, []byte("not a key"), 0600))
	_, err = loadKey(bad)
	assert.Error(t, err)

	t.Setenv("HOME", t.TempDir())
	_, err = loadKey("")
	assert.Error(t, err)
}

func Test_hostKeyCallback(t *testing.T) {
	cb, err := hostKeyCallback("")
	assert.NoError(t, err)
	assert.NotNil(t, cb)
	_, err = hostKeyCallback(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
