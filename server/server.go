// Package server exposes the development backend over HTTP with the same
// contract as the hosted one.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-contest-portal/backend/fakebackend"
	"github.com/jrsteele09/go-contest-portal/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env     string // Environment (e.g., "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	backend *fakebackend.Backend
}

func New(config config.Config, backend *fakebackend.Backend) (*Server, error) {
	if config == nil {
		return nil, errors.New("[server.New] config is required")
	}
	if backend == nil {
		return nil, errors.New("[server.New] backend is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		config:  config,
		backend: backend,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Msg(colourMethod(parts[0]) + " " + parts[1])
		} else {
			log.Info().Msg(colourMethod("") + " " + parts[0])
		}
	}
}

func colourMethod(method string) string {
	padded := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColors[method]; ok {
		return "[" + colour + padded + ResetColor + "]"
	}
	return "[" + Gray + padded + ResetColor + "]"
}
