package helpers

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

type route struct {
	status      int
	contentType string
	body        []byte
}

// StatsServer serves statistics files and publication pages from memory
type StatsServer struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]route
	hits   map[string]int
}

// NewStatsServer starts a server without routes. Unknown paths answer 404.
func NewStatsServer() *StatsServer {
	s := &StatsServer{
		routes: make(map[string]route),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Serve answers path with body
func (s *StatsServer) Serve(path, contentType string, body []byte) {
	s.set(path, route{status: http.StatusOK, contentType: contentType, body: body})
}

// ServeHTML answers path with an HTML page
func (s *StatsServer) ServeHTML(path, page string) {
	s.Serve(path, "text/html; charset=utf-8", []byte(page))
}

// ServeStatus answers path with an empty response of the given status
func (s *StatsServer) ServeStatus(path string, status int) {
	s.set(path, route{status: status})
}

// Hits returns how many requests path received
func (s *StatsServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *StatsServer) set(path string, r route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = r
}

func (s *StatsServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	rt, ok := s.routes[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if rt.contentType != "" {
		w.Header().Set("Content-Type", rt.contentType)
	}
	w.WriteHeader(rt.status)
	_, _ = w.Write(rt.body)
}
