package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is absent or malformed.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(common.BearerPrefix):])
	return token, token != ""
}

// isPublic reports whether path skips authentication. A pattern ending in
// "/*" matches everything below its prefix.
func (s *Server) isPublic(path string) bool {
	for _, p := range s.publicPaths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// authenticate admits requests to public paths, requests already carrying a
// principal, and requests whose bearer token validates. Everything else is
// answered here and never reaches the next handler.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		if _, ok := PrincipalFromContext(ctx); ok {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			s.fail(w, http.StatusUnauthorized, msgUnauthorised)
			return
		}

		principal, err := s.tokens.Authenticate(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrInvalidToken):
				s.fail(w, http.StatusUnauthorized, msgInvalidToken)
			case errors.Is(err, common.ErrInvalidUser):
				s.fail(w, http.StatusUnauthorized, msgInvalidUser)
			case errors.Is(err, common.ErrTokenExpired):
				s.fail(w, http.StatusUnauthorized, msgTokenExpired)
			default:
				s.logger.Error(ctx, "authentication failed", "error", err)
				s.fail(w, http.StatusInternalServerError, msgAuthenticationError)
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests tags each request with an id, logs it and observes its latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(common.RequestIDHeaderName)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)

		s.metrics.RequestDuration.With(
			"method", r.Method, "route", route, "status", strconv.Itoa(rec.status),
		).Observe(elapsed.Seconds())

		s.logger.Info(r.Context(), "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
		)
	})
}
