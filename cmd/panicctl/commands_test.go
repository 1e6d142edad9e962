package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu    sync.Mutex
	paths []string
	sms   map[string]any
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.paths = append(f.paths, r.Method+" "+r.URL.Path)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/alerts/sms":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.sms = body
			f.mu.Unlock()
			_, _ = w.Write([]byte(`{"ok":true,"mode":"twilio","results":[{"to":"+15550001","ok":true}]}`))
		case "/alerts":
			_, _ = w.Write([]byte(`[{"type":"sms","receivedAt":1700000000000,"userId":"u1","transport":"twilio","to":["+15550001"]}]`))
		default:
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPressSendsSMS(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)

	out, err := run(t, "press", "--server", srv.URL, "--token", "tok",
		"--hold", "1ms", "--release-after", "5ms", "--sms-to", "+15550001", "--lat", "1", "--lng", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "SMS sent to 1 recipient(s).")

	assert.Equal(t, []string{
		"POST /api/panic-audit",
		"POST /api/panic-audit",
		"POST /api/alerts/sms",
	}, api.paths)
	assert.Contains(t, api.sms["message"], "https://www.google.com/maps?q=1,2")
}

func TestPressReleasedEarly(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)

	out, err := run(t, "press", "--server", srv.URL, "--hold", "1h", "--release-after", "1ms", "--sms-to", "+15550001")
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled")
	assert.Equal(t, []string{"POST /api/panic-audit", "POST /api/panic-audit"}, api.paths)
}

func TestAlertRequiresLocation(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)

	out, err := run(t, "alert", "--server", srv.URL, "--duration", "1ms")
	require.Error(t, err)
	assert.Contains(t, out, "Geolocation not available.")
}

func TestAlertRunsForDuration(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)

	out, err := run(t, "alert", "--server", srv.URL, "--lat", "1", "--lng", "2", "--duration", "20ms", "--interval", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Panic alert sent.")
	assert.Contains(t, out, "Stopped sending location updates.")
	assert.Contains(t, api.paths, "POST /api/panic-alert")
}

func TestHistory(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)

	out, err := run(t, "history", "--server", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "2023-11-14T22:13:20Z")
	assert.Contains(t, out, "via twilio")
	assert.Contains(t, out, "to +15550001")
}
