package rest

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/userservice/internal/server/models"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// User-facing failure messages.
const (
	msgUnauthorised        = "Unauthorised!"
	msgInvalidToken        = "Invalid token!"
	msgInvalidUser         = "Invalid user!"
	msgTokenExpired        = "Token expired!"
	msgNotLoggedIn         = "You are not logged in!"
	msgInvalidOrExpired    = "Invalid or expired token!"
	msgEmailTaken          = "Email is already used!"
	msgRegistrationFailed  = "Error during registration!"
	msgWrongCredentials    = "Wrong email or password!"
	msgAlreadyPremium      = "Already a premium subscriber!"
	msgSubscriptionFailed  = "Error during subscription!"
	msgLoginFailed         = "Error during login!"
	msgLogoutFailed        = "Error during logout!"
	msgAuthenticationError = "Error during authentication!"
	msgMalformedRequest    = "Malformed request!"
)

// Envelope is the common part of every JSON response.
type Envelope struct {
	Status       string  `json:"status"`
	ErrorMessage *string `json:"errorMessage"`
}

func success() Envelope {
	return Envelope{Status: statusSuccess}
}

func failure(msg string) Envelope {
	return Envelope{Status: statusFailure, ErrorMessage: &msg}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type LoginResponse struct {
	Envelope
	UserInfo *models.UserInfo `json:"userInfo,omitempty"`
	Token    string           `json:"token,omitempty"`
}

type SubscribeResponse struct {
	Envelope
	NewToken string `json:"newToken,omitempty"`
}

type PrincipalResponse struct {
	Envelope
	Email       string   `json:"email"`
	Authorities []string `json:"authorities"`
}

func decodeRequest[T any](req *T, w http.ResponseWriter, r *http.Request) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, failure(msgMalformedRequest))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// respond writes data with code, or with 200 when legacy status codes are on.
func (s *Server) respond(w http.ResponseWriter, code int, data any) {
	if s.legacyStatusCodes {
		code = http.StatusOK
	}
	writeJSON(w, code, data)
}

func (s *Server) fail(w http.ResponseWriter, code int, msg string) {
	s.respond(w, code, failure(msg))
}
