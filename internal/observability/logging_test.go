package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProductionAddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production")

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSessionID(ctx, "sid-9")
	logger.With("component", "feed").InfoContext(ctx, "page fetched")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "page fetched", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "sid-9", rec["session_id"])
	assert.Equal(t, "feed", rec["component"])
	assert.NotContains(t, rec, "trace_id")
}

func TestNewLogger_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, "development").Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "vibeweb-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := StartBackendSpan(context.Background(), "list_posts", "GET", "/posts")
	EndSpan(span, 200, nil)
}
