package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"safesupport/internal/alertlog"
	"safesupport/internal/platform/metrics"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/requestcontext"
)

// Store is the alert log backend.
type Store interface {
	Append(ctx context.Context, entry alertlog.Entry) error
	Recent(ctx context.Context, userID string, limit int) ([]alertlog.Entry, error)
}

// Service records and reads back alert history.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, metrics *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: metrics, logger: logger}
}

// Append stamps ReceivedAt from the request clock when unset and appends the
// entry. Failures are logged and counted; callers decide whether to surface them.
func (s *Service) Append(ctx context.Context, entry alertlog.Entry) error {
	if entry.ReceivedAt == 0 {
		entry.ReceivedAt = requestcontext.Now(ctx).UnixMilli()
	}
	err := s.store.Append(ctx, entry)
	s.metrics.ObserveAlertLogAppend(err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to append alert log entry",
			"type", entry.Type,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return err
}

// RecordPanic appends a panic-alert or panic-audit entry carrying the client
// payload verbatim.
func (s *Service) RecordPanic(ctx context.Context, userID, entryType string, payload json.RawMessage) error {
	if entryType != alertlog.TypePanicAlert && entryType != alertlog.TypePanicAudit {
		return dErrors.New(dErrors.CodeBadRequest, "unknown panic entry type")
	}
	return s.Append(ctx, alertlog.Entry{
		Type:    entryType,
		UserID:  userID,
		Payload: payload,
	})
}

// Recent returns the caller's entries among the last DefaultRecentLimit lines,
// newest first.
func (s *Service) Recent(ctx context.Context, userID string) ([]alertlog.Entry, error) {
	entries, err := s.store.Recent(ctx, userID, alertlog.DefaultRecentLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read alerts")
	}
	return entries, nil
}
