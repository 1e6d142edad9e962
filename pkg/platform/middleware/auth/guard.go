package auth

import (
	"log/slog"
	"net/http"
)

// Guard bundles the auth middleware configuration shared by every handler so
// each handler can pick the protection level of its own routes.
type Guard struct {
	Validator             JWTValidator
	Checker               VerificationChecker
	AllowPublicAlerts     bool
	AllowUnverifiedAlerts bool
	Logger                *slog.Logger
}

// Authenticated requires a valid access token.
func (g Guard) Authenticated() func(http.Handler) http.Handler {
	return RequireAuth(g.Validator, g.Logger)
}

// Optional attaches the user when a valid token is present.
func (g Guard) Optional() func(http.Handler) http.Handler {
	return OptionalAuth(g.Validator, g.Logger)
}

// Verified requires a verified email unless unverified alerts are allowed.
func (g Guard) Verified() func(http.Handler) http.Handler {
	return RequireVerified(g.Checker, g.AllowUnverifiedAlerts, g.Logger)
}

// StrictlyVerified always requires a verified email.
func (g Guard) StrictlyVerified() func(http.Handler) http.Handler {
	return RequireVerified(g.Checker, false, g.Logger)
}

// Alerts applies the public/unverified alert policy after Optional.
func (g Guard) Alerts() func(http.Handler) http.Handler {
	return AlertAccess(g.Checker, g.AllowPublicAlerts, g.AllowUnverifiedAlerts, g.Logger)
}
