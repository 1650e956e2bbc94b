package procgroup

import (
	"sync"

	"github.com/pkg/errors"
)

// Registry hands out group IDs and, per group, the sequence numbers that
// keep rendezvous keys unique.
type Registry struct {
	mu     sync.Mutex
	nextID int
	seqs   map[int]int
}

func NewRegistry() *Registry {
	return &Registry{seqs: make(map[int]int)}
}

// DefaultRegistry is shared by all process groups that are not given one.
var DefaultRegistry = NewRegistry()

func (r *Registry) Acquire() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.seqs[id] = -1
	return id
}

func (r *Registry) Release(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.seqs, id)
}

// NextSeq returns 0 on its first call for a group, then 1, 2, ...
func (r *Registry) NextSeq(id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq, ok := r.seqs[id]
	if !ok {
		return 0, errors.Errorf("group %d is not registered", id)
	}
	seq++
	r.seqs[id] = seq
	return seq, nil
}
