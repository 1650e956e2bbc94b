package store

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemStoreSetGet(t *testing.T) {
	s := NewMemStore()
	value := []byte{1, 2, 3}
	require.NoError(t, s.Set("0_0", value))
	value[0] = 9

	got, err := s.Get("0_0")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 7
	again, _ := s.Get("0_0")
	assert.Equal(t, []byte{1, 2, 3}, again)

	assert.ErrorIs(t, s.Set("", value), errInvalidKey)
	_, err = s.Get("")
	assert.Equal(t, errInvalidKey, errors.Cause(err))
}

func Test_MemStoreGetBlocks(t *testing.T) {
	s := NewMemStore()
	var wg sync.WaitGroup
	var got []byte
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		got, err = s.Get("late")
		assert.NoError(t, err)
	}()
	time.Sleep(20 * time.Millisecond)
	_, ok := s.Lookup("late")
	assert.False(t, ok)
	require.NoError(t, s.Set("late", []byte("token")))
	wg.Wait()
	assert.Equal(t, []byte("token"), got)
}

func Test_MemStoreClose(t *testing.T) {
	s := NewMemStore()
	errs := make(chan error, 1)
	go func() {
		_, err := s.Get("never")
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, <-errs, ErrClosed)
	assert.ErrorIs(t, s.Set("k", nil), ErrClosed)
}

func Test_PrefixStore(t *testing.T) {
	s := NewMemStore()
	a := NewPrefixStore("a", s)
	b := NewPrefixStore("b", s)
	require.NoError(t, a.Set("0_0", []byte{1}))
	require.NoError(t, b.Set("0_0", []byte{2}))

	got, err := a.Get("0_0")
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, got)
	raw, ok := s.Lookup("b/0_0")
	assert.True(t, ok)
	assert.Equal(t, []byte{2}, raw)
	assert.Equal(t, 2, s.Len())
}

func Test_Blob(t *testing.T) {
	b := NewBlob(2)
	assert.NoError(t, b.CopyFrom([]byte{1, 2}))
	assert.ErrorIs(t, b.CopyFrom([]byte{1}), errSizeNotMatch)
}
