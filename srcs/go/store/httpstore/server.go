// Package httpstore exposes a store.MemStore over HTTP so that ranks in
// different processes can rendezvous through the launcher.
package httpstore

import (
	"io"
	"net/http"
	"strings"

	"github.com/lsds/ncclpg/srcs/go/log"
	"github.com/lsds/ncclpg/srcs/go/store"
)

const DefaultPath = `/store/`

type Server struct {
	Path  string
	mux   http.ServeMux
	store *store.MemStore
}

func New(path string) *Server {
	s := &Server{
		Path:  path,
		store: store.NewMemStore(),
	}
	s.mux.HandleFunc(s.Path, http.HandlerFunc(s.handleKey))
	s.mux.HandleFunc(strings.TrimSuffix(s.Path, "/"), http.HandlerFunc(s.handleAll))
	return s
}

func (s *Server) Store() *store.MemStore {
	return s.store
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.mux.ServeHTTP(w, req)
}

func (s *Server) handleKey(w http.ResponseWriter, req *http.Request) {
	key := strings.TrimPrefix(req.URL.Path, s.Path)
	if len(key) == 0 {
		s.handleAll(w, req)
		return
	}
	switch req.Method {
	case http.MethodGet:
		s.getKey(w, key)
	case http.MethodPut, http.MethodPost:
		s.setKey(w, req, key)
	case http.MethodDelete:
		s.store.Delete(key)
		log.Debugf("deleted %q", key)
	default:
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAll(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		http.Error(w, "unsupported method", http.StatusMethodNotAllowed)
		return
	}
	s.store.Reset()
	log.Warnf("store cleared!")
}

func (s *Server) getKey(w http.ResponseWriter, key string) {
	value, ok := s.store.Lookup(key)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(value); err != nil {
		log.Errorf("failed to write value of %q: %v", key, err)
	}
}

func (s *Server) setKey(w http.ResponseWriter, req *http.Request, key string) {
	value, err := io.ReadAll(req.Body)
	if err != nil {
		log.Errorf("failed to read value of %q: %v", key, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.Set(key, value); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	log.Debugf("set %q (%d bytes)", key, len(value))
}

// LogRequest wraps h with a debug log line per request.
func LogRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		log.Debugf("%s %s from %s, UA: %s", req.Method, req.URL.Path, req.RemoteAddr, req.UserAgent())
		h.ServeHTTP(w, req)
	})
}
