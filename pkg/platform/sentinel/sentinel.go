// Package sentinel lists infrastructure facts that stores report to services.
package sentinel

import "errors"

// Stores return these, optionally wrapped, and services translate them into
// domain errors. They describe the state of a resource, never bad input.
//
//   - ErrNotFound: no user, report or log file for the key
//   - ErrConflict: a unique key (user email) is already taken
//   - ErrExpired: a verify or reset token is past its expiry
//   - ErrInvalidState: the record cannot take the requested transition
//   - ErrUnavailable: a backing service (SMTP, Redis, Postgres) is unreachable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
