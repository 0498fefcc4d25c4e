package research

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tooltrack-cli/internal/model"
	"github.com/sells-group/tooltrack-cli/internal/resilience"
)

// newTestClient creates an sdkClient pointing at a local test server, with
// the SDK's own retry disabled and near-zero backoff.
func newTestClient(baseURL string) *sdkClient {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey("test-key"),
			option.WithBaseURL(baseURL),
			option.WithMaxRetries(0),
		),
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
			Multiplier:     1.0,
		},
	}
}

func writeMessage(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":   "msg_test_001",
		"type": "message",
		"role": "assistant",
		"content": []map[string]any{
			{"type": "text", "text": text},
		},
		"model":       defaultModel,
		"stop_reason": "end_turn",
		"usage": map[string]any{
			"input_tokens":  10,
			"output_tokens": 5,
		},
	})
}

const snapshotJSON = `{"document":{"description":"AI coding assistant","version":{"current":"1.2.0"}},"confidence":0.8}`

func TestCollectRetriesTransientAPIFailures(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`)) //nolint:errcheck
			return
		}
		writeMessage(w, snapshotJSON)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	snap, err := client.Collect(context.Background(), model.Tool{Slug: "cursor"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, "1.2.0", snap.Document.Version.Current)
	assert.InDelta(t, 0.8, snap.Confidence, 1e-9)
	require.NotNil(t, snap.Document.CollectedAt)
}

func TestCollectDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"type":"error","error":{"type":"not_found_error","message":"no such model"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)
	_, err := client.Collect(context.Background(), model.Tool{Slug: "cursor"})
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestClassifyAPIError(t *testing.T) {
	var te *resilience.TransientError

	classified := classifyAPIError(&sdk.Error{StatusCode: 503})
	require.True(t, errors.As(classified, &te))
	assert.Equal(t, 503, te.StatusCode)

	classified = classifyAPIError(&sdk.Error{StatusCode: 429})
	assert.True(t, errors.As(classified, &te))

	// Client errors and non-API errors pass through unclassified.
	notFound := &sdk.Error{StatusCode: 404}
	assert.False(t, errors.As(classifyAPIError(notFound), &te))

	plain := eris.New("bad request")
	assert.False(t, errors.As(classifyAPIError(plain), &te))
}
