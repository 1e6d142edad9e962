package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safesupport/internal/alertlog"
	"safesupport/internal/alertlog/store"
	dErrors "safesupport/pkg/domain-errors"
	"safesupport/pkg/requestcontext"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type failingStore struct{}

func (failingStore) Append(context.Context, alertlog.Entry) error { return errors.New("disk full") }
func (failingStore) Recent(context.Context, string, int) ([]alertlog.Entry, error) {
	return nil, errors.New("disk full")
}

func TestRecordPanicStampsRequestTime(t *testing.T) {
	mem := store.NewInMemoryStore()
	svc := New(mem, nil, discard)
	now := time.UnixMilli(1_700_000_000_123)
	ctx := requestcontext.WithTime(context.Background(), now)

	err := svc.RecordPanic(ctx, "u1", alertlog.TypePanicAlert, json.RawMessage(`{"type":"panic","lat":1.5}`))
	require.NoError(t, err)

	all := mem.All()
	require.Len(t, all, 1)
	assert.Equal(t, int64(1_700_000_000_123), all[0].ReceivedAt)
	assert.Equal(t, "u1", all[0].UserID)
	assert.JSONEq(t, `{"type":"panic","lat":1.5}`, string(all[0].Payload))
}

func TestRecordPanicRejectsUnknownType(t *testing.T) {
	svc := New(store.NewInMemoryStore(), nil, discard)
	err := svc.RecordPanic(context.Background(), "u1", "sms", nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestAppendFailureIsReturned(t *testing.T) {
	svc := New(failingStore{}, nil, discard)
	require.Error(t, svc.Append(context.Background(), alertlog.Entry{Type: alertlog.TypeSMS}))

	_, err := svc.Recent(context.Background(), "u1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
