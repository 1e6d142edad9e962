package filesink

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

func TestWriteSMS(t *testing.T) {
	dir := t.TempDir()
	sink := New(filepath.Join(dir, "sms"), filepath.Join(dir, "emails"))
	ua := iphoneUA
	at := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)

	path, err := sink.WriteSMS(SMSRecord{
		UserID:     "user-1",
		To:         []string{"+1555", "+1666"},
		Message:    "help",
		ReceivedAt: at.UnixMilli(),
		UserAgent:  &ua,
		Client:     ParseClient(ua),
	}, at)
	require.NoError(t, err)

	name := filepath.Base(path)
	assert.True(t, strings.HasPrefix(name, "sms-2026-03-04T05-06-07-890Z-"), name)
	assert.Equal(t, ".json", filepath.Ext(name))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "user-1", got["userId"])
	assert.Equal(t, []any{"+1555", "+1666"}, got["to"])
	assert.Equal(t, "help", got["message"])
	assert.Equal(t, iphoneUA, got["userAgent"])
	client := got["client"].(map[string]any)
	assert.Equal(t, true, client["mobile"])
}

func TestWriteSMSNullUserAgent(t *testing.T) {
	sink := New(t.TempDir(), t.TempDir())

	path, err := sink.WriteSMS(SMSRecord{UserID: "public-anon", To: []string{"+1"}, Message: "m"}, time.Now())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"userAgent": null`)
	assert.NotContains(t, string(data), `"client"`)
}

func TestWriteSMSSameInstantDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir, dir)
	at := time.Now()

	a, err := sink.WriteSMS(SMSRecord{Message: "a"}, at)
	require.NoError(t, err)
	b, err := sink.WriteSMS(SMSRecord{Message: "b"}, at)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWriteEmail(t *testing.T) {
	dir := t.TempDir()
	sink := New(dir, filepath.Join(dir, "emails"))

	path, err := sink.WriteEmail(EmailRecord{
		Timestamp: 1700000000000,
		To:        "Jane Doe+alerts@Example.com",
		From:      "no-reply@example.com",
		Subject:   "Alert",
		Text:      "body",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "emails", "1700000000000-Jane_Doe_alerts@Example.com.json"), path)

	var rec EmailRecord
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "Alert", rec.Subject)
	assert.Equal(t, "no-reply@example.com", rec.From)
}

func TestWriteEmailSanitizedNameCollision(t *testing.T) {
	dir := t.TempDir()
	sink := New(t.TempDir(), dir)

	first, err := sink.WriteEmail(EmailRecord{Timestamp: 1700000000000, To: "a+b@x.io", Text: "first"})
	require.NoError(t, err)
	second, err := sink.WriteEmail(EmailRecord{Timestamp: 1700000000000, To: "a-b@x.io", Text: "second"})
	require.NoError(t, err)
	third, err := sink.WriteEmail(EmailRecord{Timestamp: 1700000000000, To: "a b@x.io", Text: "third"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "1700000000000-a_b@x.io.json"), first)
	assert.Equal(t, filepath.Join(dir, "1700000000000-a_b@x.io-1.json"), second)
	assert.Equal(t, filepath.Join(dir, "1700000000000-a_b@x.io-2.json"), third)

	var rec EmailRecord
	data, err := os.ReadFile(first)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "first", rec.Text, "existing file is left untouched")
	assert.Equal(t, "a+b@x.io", rec.To)
}

func TestParseClient(t *testing.T) {
	assert.Nil(t, ParseClient("  "))

	c := ParseClient(iphoneUA)
	require.NotNil(t, c)
	assert.True(t, c.Mobile)
	assert.False(t, c.Bot)
	assert.Equal(t, "Safari", c.Browser)
}
