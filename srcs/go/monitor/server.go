package monitor

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/lsds/ncclpg/srcs/go/log"
)

// Server serves a Monitor on /metrics.
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// Addr is the address the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops serving.
func (s *Server) Close() error { return s.srv.Close() }

// StartServer serves m on /metrics at port, 0 picks a free port. Binding
// errors are returned, serving errors are logged.
func StartServer(m Monitor, port int) (*Server, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m)
	s := &Server{srv: &http.Server{Handler: mux}, ln: ln}
	log.Infof("serving metrics on http://%s/metrics", s.Addr())
	go func() {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	return s, nil
}
