package store

// PrefixStore namespaces all keys of an underlying Store, so that several
// process groups can share one rendezvous server.
type PrefixStore struct {
	prefix string
	store  Store
}

func NewPrefixStore(prefix string, s Store) *PrefixStore {
	return &PrefixStore{prefix: prefix, store: s}
}

func (s *PrefixStore) key(k string) string {
	return s.prefix + "/" + k
}

func (s *PrefixStore) Set(key string, value []byte) error {
	return s.store.Set(s.key(key), value)
}

func (s *PrefixStore) Get(key string) ([]byte, error) {
	return s.store.Get(s.key(key))
}
