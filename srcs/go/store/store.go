// Package store provides the key-value stores used for rendezvous between
// the ranks of a process group.
package store

import (
	"sync"

	"github.com/pkg/errors"
)

// Store is the rendezvous store shared by all ranks of a group.
// Get blocks until the key has been published by some rank.
type Store interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, error)
}

var (
	ErrClosed     = errors.New("store closed")
	errInvalidKey = errors.New("invalid key")
)

// MemStore is an in-process Store, shared by ranks that run as goroutines.
type MemStore struct {
	sync.Mutex
	cond   *sync.Cond
	data   map[string]*Blob
	closed bool
}

func NewMemStore() *MemStore {
	s := &MemStore{
		data: make(map[string]*Blob),
	}
	s.cond = sync.NewCond(&s.Mutex)
	return s
}

func (s *MemStore) Set(key string, value []byte) error {
	if len(key) == 0 {
		return errInvalidKey
	}
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.data[key] = blobOf(value)
	s.cond.Broadcast()
	return nil
}

// Get waits without timeout, a rank that never publishes blocks its peers
// until Close is called.
func (s *MemStore) Get(key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, errInvalidKey
	}
	s.Lock()
	defer s.Unlock()
	for {
		if b, ok := s.data[key]; ok {
			return b.Bytes(), nil
		}
		if s.closed {
			return nil, ErrClosed
		}
		s.cond.Wait()
	}
}

// Lookup is the non-blocking version of Get.
func (s *MemStore) Lookup(key string) ([]byte, bool) {
	s.Lock()
	defer s.Unlock()
	b, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return b.Bytes(), true
}

func (s *MemStore) Delete(key string) {
	s.Lock()
	defer s.Unlock()
	delete(s.data, key)
}

func (s *MemStore) Reset() {
	s.Lock()
	defer s.Unlock()
	s.data = make(map[string]*Blob)
}

func (s *MemStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.data)
}

// Close wakes up all pending Get calls with ErrClosed.
func (s *MemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}
