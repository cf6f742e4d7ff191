package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-pkgz/rest"

	"github.com/umputun/jobboard/app/service/request"
	"github.com/umputun/jobboard/app/web/enums"
)

type ctxKey string

const userIDKey ctxKey = "user-id"

// handleRegister creates a new account
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req request.Register
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.svc.Register(r.Context(), req); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rest.JSON{"msg": "User registered successfully"})
}

// handleLogin exchanges credentials for an access token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if !s.decodeJSON(w, r, &req) {
		return
	}
	tok, user, err := s.svc.Login(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LoginResponse{AccessToken: tok, User: toUserResponse(user)})
}

// handleMe returns the authenticated user
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Me(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toUserResponse(user))
}

// authMiddleware requires a valid bearer token and puts its user id to the request context
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.writeJSONError(w, enums.ErrorKindUnauthenticated, "Missing authorization token")
			return
		}
		id, err := s.tokens.Verify(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			s.writeJSONError(w, enums.ErrorKindUnauthenticated, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// userID returns id set by authMiddleware, zero if not authenticated
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}
