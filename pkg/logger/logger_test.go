package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MasksSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(Config{Level: "debug"}, &buf)
	require.NoError(t, err)

	l.Info("connecting",
		slog.String("bot_token", "123:abc"),
		slog.Group("storage", slog.String("uri", "mongodb://user:pw@host")),
		slog.String("driver", "mongo"),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "***", entry["bot_token"])
	assert.Equal(t, "mongo", entry["driver"])
	assert.Equal(t, map[string]any{"uri": "***"}, entry["storage"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(Config{Level: "info", Format: "text"}, &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	require.NoError(t, l.SetLevel("debug"))
	l.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Equal(t, slog.LevelDebug, l.Level())

	assert.Error(t, l.SetLevel("loud"))
}

func TestNew_RejectsUnknownSettings(t *testing.T) {
	_, err := newLogger(Config{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = newLogger(Config{Level: "trace"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew_WritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	l, err := newLogger(Config{File: FileConfig{Enabled: true, Path: path, MaxSizeMB: 1}}, &bytes.Buffer{})
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Close())
	assert.FileExists(t, path)
}

func TestMiddleware_PropagatesCorrelationID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Correlation-ID"))

	ctx := WithCorrelationID(context.Background(), "")
	assert.NotEmpty(t, CorrelationIDFromContext(ctx))
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}
