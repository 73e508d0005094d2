package auth_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizhub/socialauth/pkg/auth"
)

type mockOAuthClient struct {
	mock.Mock
}

func (m *mockOAuthClient) AuthorizationURL(ctx context.Context, provider string, cfg auth.ProviderConfig) (string, error) {
	args := m.Called(ctx, provider, cfg)
	return args.String(0), args.Error(1)
}

func (m *mockOAuthClient) ExchangeCallback(ctx context.Context, provider string, cfg auth.ProviderConfig, params auth.CallbackParams) (auth.SocialIdentity, error) {
	args := m.Called(ctx, provider, cfg, params)
	return args.Get(0).(auth.SocialIdentity), args.Error(1)
}

type logRecord map[string]any

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func readRecords(t *testing.T, buf *bytes.Buffer) []logRecord {
	t.Helper()
	var out []logRecord
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var rec logRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func countMessages(t *testing.T, buf *bytes.Buffer, msg string) int {
	t.Helper()
	n := 0
	for _, rec := range readRecords(t, buf) {
		if rec["msg"] == msg {
			n++
		}
	}
	return n
}

func googleConfig() map[string]string {
	return map[string]string{
		auth.KeyClientID:     "x",
		auth.KeyClientSecret: "y",
		auth.KeyRedirect:     "r",
		auth.KeyEnabled:      "true",
	}
}

type testLog struct {
	t   *testing.T
	buf *bytes.Buffer
}

func (l *testLog) count(msg string) int {
	return countMessages(l.t, l.buf, msg)
}
