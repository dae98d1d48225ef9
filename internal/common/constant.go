package common

// Role names provisioned by the initial migrations.
const (
	RoleUser        = "USER"
	RolePremiumUser = "PREMIUM_USER"
)

// TokenTypeBearer is the only token type the service issues.
const TokenTypeBearer = "BEARER"

// AuthorizationHeaderName carries the bearer token on inbound requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// RequestIDHeaderName is echoed on every response.
const RequestIDHeaderName = "X-Request-ID"
