package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"safesupport/internal/platform/metrics"
	"safesupport/internal/vault"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/requestcontext"
)

var tracer = otel.Tracer("safesupport/vault")

// Store persists encrypted report records.
type Store interface {
	Put(ctx context.Context, rec vault.Record) error
	Candidates(ctx context.Context, prefix string) iter.Seq2[vault.Record, error]
}

// Service seals reports under a vault password and sweeps the vault for the
// reports a password opens.
type Service struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

// Submission is a report as received: every field except the vault password.
type Submission map[string]any

// Store encrypts the whole submission and writes a new record owned by
// userID, or by "anonymous" when userID is empty.
func (s *Service) Store(ctx context.Context, payload Submission, password, userID string) (string, error) {
	if password == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "Vault password required")
	}
	if userID == "" {
		userID = vault.AnonymousUserID
	}

	key, err := vault.DeriveKey(password)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Failed to save report")
	}
	plain, err := json.Marshal(payload)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid report body")
	}
	env, err := key.Seal(plain)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Failed to save report")
	}

	now := requestcontext.Now(ctx)
	id, err := newReportID(now.UnixMilli())
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Failed to save report")
	}
	category, _ := payload["category"].(string)
	isAnonymous, _ := payload["isAnonymous"].(bool)
	isWitness, _ := payload["isWitness"].(bool)

	rec := vault.Record{
		ID:          id,
		UserID:      userID,
		CreatedAt:   vault.FormatCreatedAt(now),
		Category:    category,
		IsAnonymous: isAnonymous,
		IsWitness:   isWitness,
		Encrypted:   env,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "Failed to save report")
	}

	s.metrics.IncrementReportsStored()
	s.logger.InfoContext(ctx, "report saved encrypted",
		"report_id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return id, nil
}

// RetrieveAll returns every report under idPrefix that password decrypts.
// Records that fail to read, decrypt or parse are skipped without telling
// the caller; a wrong password and an empty vault look the same.
func (s *Service) RetrieveAll(ctx context.Context, password, idPrefix string) ([]vault.Report, error) {
	if password == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Password required")
	}

	ctx, span := tracer.Start(ctx, "vault.RetrieveAll")
	defer span.End()

	key, err := vault.DeriveKey(password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "key derivation failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "Failed to retrieve reports")
	}

	reports := make([]vault.Report, 0)
	var stats vault.SweepStats
	for rec, err := range s.store.Candidates(ctx, idPrefix) {
		stats.Scanned++
		if err != nil {
			stats.Skipped++
			s.logger.WarnContext(ctx, "skipping unreadable report",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			continue
		}
		body, ok := open(key, rec)
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Decrypted++
		reports = append(reports, rec.Merge(body))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.metrics.ObserveVaultSweep(stats.Scanned, stats.Decrypted, stats.Skipped)
	span.SetAttributes(
		attribute.Int("vault.scanned", stats.Scanned),
		attribute.Int("vault.decrypted", stats.Decrypted),
		attribute.Int("vault.skipped", stats.Skipped),
	)
	span.SetStatus(codes.Ok, "")
	s.logger.InfoContext(ctx, "vault sweep finished",
		"scanned", stats.Scanned,
		"decrypted", stats.Decrypted,
		"skipped", stats.Skipped,
		"request_id", requestcontext.RequestID(ctx),
	)
	return reports, nil
}

// open decrypts a record body that must be a JSON object.
func open(key vault.Key, rec vault.Record) (map[string]any, bool) {
	plain, err := key.Open(rec.Encrypted)
	if err != nil {
		return nil, false
	}
	var body map[string]any
	if err := json.Unmarshal(plain, &body); err != nil || body == nil {
		return nil, false
	}
	return body, true
}

// newReportID is report_<unix ms>_<8 hex chars>.
func newReportID(unixMilli int64) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating report id: %w", err)
	}
	return fmt.Sprintf("report_%d_%s", unixMilli, hex.EncodeToString(b)), nil
}
