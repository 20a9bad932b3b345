package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-contest-portal/backend"
	"github.com/jrsteele09/go-contest-portal/backend/fakebackend"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 20
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": s.config.GetAppName()})
	}
}

// ParticipantSessionHandler exchanges contest and participant codes for a session.
func (s *Server) ParticipantSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req backend.ParticipantSessionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, berr := s.backend.EnterSession(req)
		if berr != nil {
			writeJSONError(w, berr)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// TokenHandler is the password grant.
func (s *Server) TokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gt := r.URL.Query().Get("grant_type"); gt != "" && gt != "password" {
			writeJSONError(w, &backend.Error{Status: http.StatusBadRequest, Code: "unsupported_grant_type", Message: "only the password grant is supported"})
			return
		}
		var req backend.SignInRequest
		if !decodeBody(w, r, &req) {
			return
		}
		resp, berr := s.backend.SignIn(req)
		if berr != nil {
			writeJSONError(w, berr)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if berr := s.backend.Logout(bearerToken(r)); berr != nil {
			writeJSONError(w, berr)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SelectHandler returns the rows of a resource filtered by the query string.
func (s *Server) SelectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters := make(map[string]string)
		for k, v := range r.URL.Query() {
			if k == "select" || len(v) == 0 {
				continue
			}
			filters[k] = v[0]
		}
		rows, berr := s.backend.Select(claimsFrom(r.Context()), r.PathValue("resource"), filters)
		if berr != nil {
			writeJSONError(w, berr)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func (s *Server) InsertHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var row fakebackend.Row
		if !decodeBody(w, r, &row) {
			return
		}
		stored, berr := s.backend.Insert(claimsFrom(r.Context()), r.PathValue("resource"), row)
		if berr != nil {
			writeJSONError(w, berr)
			return
		}
		writeJSON(w, http.StatusCreated, stored)
	}
}

// PreflightHandler answers CORS preflight requests; the headers are set by CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, &backend.Error{Status: http.StatusBadRequest, Code: "invalid_request", Message: "request body must be JSON"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, e *backend.Error) {
	writeJSON(w, e.Status, backend.ErrorBody{Code: e.Code, Message: e.Message})
}
