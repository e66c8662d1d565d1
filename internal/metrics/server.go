package metrics

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc supplies the current session snapshot for the /status
// endpoint. Returned values must be JSON-encodable.
type StatusFunc func() interface{}

// Server serves /metrics and /status for one interactive session.
type Server struct {
	srv *http.Server
}

// NewServer builds the HTTP listener. Call Start to begin serving.
func NewServer(addr string, m *Metrics, status StatusFunc) *Server {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods("GET")

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Start binds the listen address and serves in the background. Binding
// happens here so an unusable address fails immediately instead of
// inside the serving goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	go s.srv.Serve(ln)
	return nil
}

// Close shuts the listener down immediately.
func (s *Server) Close() error {
	return s.srv.Close()
}
