package testutil

import (
	"net/http"

	"safesupport/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating the auth
// middleware for handler unit tests.
func WithUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}
