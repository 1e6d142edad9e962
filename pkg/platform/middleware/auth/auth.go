package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"safesupport/pkg/platform/httputil"
	"safesupport/pkg/platform/sentinel"
	request "safesupport/pkg/platform/middleware/request"
	"safesupport/pkg/requestcontext"
)

// JWTValidator validates access tokens. Verify and reset tokens must be
// rejected by implementations.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID string
	JTI    string
}

// VerificationChecker reports whether a user has verified their email.
// Implementations return sentinel.ErrNotFound for unknown users.
type VerificationChecker interface {
	IsVerified(ctx context.Context, userID string) (bool, error)
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(ctx context.Context) string {
	return requestcontext.UserID(ctx)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func writeJSONError(w http.ResponseWriter, status int, errCode, message string) {
	httputil.WriteJSON(w, status, httputil.ErrorResponse{Error: errCode, Message: message})
}

// RequireAuth rejects requests without a valid access token: 401 when the
// header is missing, 403 when the token is invalid or expired.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			token, ok := BearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the user ID when a valid access token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				ctx := r.Context()
				logger.DebugContext(ctx, "ignoring invalid optional token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			ctx := requestcontext.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireVerified must run after RequireAuth. Unknown users and users with an
// unverified email get 403 unless allowUnverified is set.
func RequireVerified(checker VerificationChecker, allowUnverified bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			verified, err := checker.IsVerified(ctx, GetUserID(ctx))
			if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				logger.ErrorContext(ctx, "failed to check verification",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
				return
			}
			if err != nil || (!verified && !allowUnverified) {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Email not verified")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AlertAccess gates the public alert endpoints. It must run after
// OptionalAuth. A token for an unknown user is treated as anonymous;
// anonymous callers need allowPublic, known callers need a verified email
// unless allowUnverified is set.
func AlertAccess(checker VerificationChecker, allowPublic, allowUnverified bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := GetUserID(ctx)

			verified := false
			if userID != "" {
				var err error
				verified, err = checker.IsVerified(ctx, userID)
				switch {
				case errors.Is(err, sentinel.ErrNotFound):
					userID = ""
					ctx = requestcontext.WithUserID(ctx, "")
				case err != nil:
					logger.ErrorContext(ctx, "failed to check verification",
						"error", err,
						"request_id", request.GetRequestID(ctx),
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "")
					return
				}
			}

			if userID == "" && !allowPublic {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if userID != "" && !verified && !allowUnverified {
				writeJSONError(w, http.StatusForbidden, "forbidden", "Email not verified")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
