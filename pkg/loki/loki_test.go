package loki

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type mockLogger struct {
	errors atomic.Int32
}

func (m *mockLogger) Error(_ string, _ ...any) {
	m.errors.Add(1)
}

func decodePush(t *testing.T, r *http.Request) pushRequest {
	gz, err := gzip.NewReader(r.Body)
	require.NoError(t, err)
	var req pushRequest
	require.NoError(t, json.NewDecoder(gz).Decode(&req))
	return req
}

func Test_ConfigValidation(t *testing.T) {

	_, err := New(context.Background(), Config{}, &mockLogger{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Url: "not a url"}, &mockLogger{})
	assert.Error(t, err)

	_, err = New(context.Background(), Config{Url: "http://loki:3100/loki/api/v1/push", Username: "user"}, &mockLogger{})
	assert.Error(t, err)

	pusher, err := New(context.Background(), Config{Url: "http://loki:3100/loki/api/v1/push"}, &mockLogger{})
	require.NoError(t, err)
	defer pusher.Stop()

	assert.Equal(t, 500, pusher.config.BatchMaxSize)
	assert.Equal(t, 5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(t, 3, pusher.config.SendAttempts)
	assert.Equal(t, map[string]string{}, pusher.config.Labels)
}

func Test_Pusher_FlushesStreamPerLevelOnStop(t *testing.T) {

	received := make(chan pushRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- decodePush(t, r)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pusher, err := New(context.Background(), Config{
		Url:          server.URL,
		BatchMaxWait: time.Hour,
		Labels:       map[string]string{"app": "test"},
	}, &mockLogger{})
	require.NoError(t, err)

	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "send failed", ErrorType: "tg_api"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "info", Message: "pass finished"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "fetch failed", ErrorType: "feed_api"}))
	pusher.Stop()

	var req pushRequest
	select {
	case req = <-received:
	case <-time.After(5 * time.Second):
		require.Fail(t, "timed out")
	}

	require.Len(t, req.Streams, 2)
	byLevel := map[string]stream{}
	for _, s := range req.Streams {
		assert.Equal(t, "test", s.Stream["app"])
		byLevel[s.Stream["level"]] = s
	}

	require.Len(t, byLevel["error"].Values, 2)
	assert.Contains(t, byLevel["error"].Values[0][1], "send failed")
	assert.Contains(t, byLevel["error"].Values[0][1], "tg_api")
	require.Len(t, byLevel["info"].Values, 1)
	assert.NotEmpty(t, byLevel["info"].Values[0][0])

	assert.ErrorIs(t, pusher.Push(LogEntry{Message: "late"}), ErrStopped)
}

func Test_Pusher_RetriesServerErrors(t *testing.T) {

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logger := &mockLogger{}
	pusher, err := New(context.Background(), Config{Url: server.URL, BatchMaxWait: time.Hour, RetryDelay: time.Millisecond}, logger)
	require.NoError(t, err)

	require.NoError(t, pusher.Push(LogEntry{Level: "warning", Message: "skipped entry"}))
	pusher.Stop()

	assert.EqualValues(t, 2, calls.Load())
	assert.Zero(t, logger.errors.Load())
}

func Test_Pusher_DoesNotRetryClientErrors(t *testing.T) {

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	logger := &mockLogger{}
	pusher, err := New(context.Background(), Config{Url: server.URL, BatchMaxWait: time.Hour, RetryDelay: time.Millisecond}, logger)
	require.NoError(t, err)

	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "bad"}))
	pusher.Stop()

	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, logger.errors.Load())
}
