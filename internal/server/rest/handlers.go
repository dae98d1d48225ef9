package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/userservice/internal/common"
	"github.com/dmitrijs2005/userservice/internal/server/services"
)

func (s *Server) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeRequest(&req, w, r) {
			return
		}

		_, err := s.users.Register(r.Context(), services.RegisterRequest{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			switch {
			case errors.Is(err, common.ErrEmailTaken):
				s.fail(w, http.StatusConflict, msgEmailTaken)
			default:
				if !errors.Is(err, common.ErrConfigurationMissing) {
					s.logger.Error(r.Context(), "registration failed", "error", err)
				}
				s.fail(w, http.StatusInternalServerError, msgRegistrationFailed)
			}
			return
		}

		s.respond(w, http.StatusOK, success())
	}
}

func (s *Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeRequest(&req, w, r) {
			return
		}

		res, err := s.users.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, common.ErrWrongCredentials) {
				s.fail(w, http.StatusUnauthorized, msgWrongCredentials)
				return
			}
			s.logger.Error(r.Context(), "login failed", "error", err)
			s.fail(w, http.StatusInternalServerError, msgLoginFailed)
			return
		}

		s.respond(w, http.StatusOK, LoginResponse{
			Envelope: success(),
			UserInfo: &res.UserInfo,
			Token:    res.Token,
		})
	}
}

// Authenticate only answers requests the middleware has admitted.
func (s *Server) Authenticate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusOK, success())
	}
}

func (s *Server) Subscribe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.fail(w, http.StatusUnauthorized, msgUnauthorised)
			return
		}

		newToken, err := s.users.Subscribe(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrInvalidToken):
				s.fail(w, http.StatusUnauthorized, msgInvalidToken)
			case errors.Is(err, common.ErrTokenExpired):
				s.fail(w, http.StatusUnauthorized, msgTokenExpired)
			case errors.Is(err, common.ErrAlreadyElevated):
				s.fail(w, http.StatusOK, msgAlreadyPremium)
			default:
				if !errors.Is(err, common.ErrConfigurationMissing) {
					s.logger.Error(r.Context(), "subscription failed", "error", err)
				}
				s.fail(w, http.StatusInternalServerError, msgSubscriptionFailed)
			}
			return
		}

		s.respond(w, http.StatusOK, SubscribeResponse{Envelope: success(), NewToken: newToken})
	}
}

// Logout is reachable without authentication; store presence of the bearer
// token alone decides the outcome.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.fail(w, http.StatusUnauthorized, msgNotLoggedIn)
			return
		}

		removed, err := s.tokens.Revoke(r.Context(), token)
		if err != nil {
			s.logger.Error(r.Context(), "logout failed", "error", err)
			s.fail(w, http.StatusInternalServerError, msgLogoutFailed)
			return
		}
		if !removed {
			s.fail(w, http.StatusUnauthorized, msgInvalidOrExpired)
			return
		}

		s.respond(w, http.StatusOK, success())
	}
}

func (s *Server) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			s.fail(w, http.StatusUnauthorized, msgUnauthorised)
			return
		}
		s.respond(w, http.StatusOK, PrincipalResponse{
			Envelope:    success(),
			Email:       p.Email,
			Authorities: p.Authorities,
		})
	}
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
