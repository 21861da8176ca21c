// File path: internal/chat/client_test.go
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func streamServer(t *testing.T, lines []string, delay time.Duration) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		require.NotEmpty(t, req.Messages)

		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		for _, line := range lines {
			if delay > 0 {
				time.Sleep(delay)
			}
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	}))
}

func TestCompleteAssemblesStreamedTokens(t *testing.T) {
	server := streamServer(t, []string{
		`{"message":{"role":"assistant","content":"Kayıt "}}`,
		`{"message":{"role":"assistant","content":"yenileme "}}`,
		`not valid json`,
		`{"message":{"role":"assistant","content":"15 Eylül."},"done":true}`,
	}, 0)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	text, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.NoError(t, err)
	require.Equal(t, "Kayıt yenileme 15 Eylül.", text)
}

func TestCompleteRejectsEmptyMessages(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:0"})
	_, err := client.Complete(context.Background(), nil)
	require.Error(t, err)
}

func TestCompleteBackendDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCompleteNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCompleteEmptyStreamIsError(t *testing.T) {
	server := streamServer(t, nil, 0)
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, ErrEmptyStream)
}

func TestCompleteFirstByteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: server.URL, FirstByteTimeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCompleteFirstByteTimeoutBeforeHeaders(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Accept the request but never write a status line.
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{
		BaseURL:          server.URL,
		FirstByteTimeout: 50 * time.Millisecond,
		StreamTimeout:    10 * time.Second,
	})
	start := time.Now()
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestCompleteStreamDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"message":{"content":"başla"}}`)
		flusher.Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{
		BaseURL:          server.URL,
		FirstByteTimeout: time.Second,
		StreamTimeout:    100 * time.Millisecond,
	})
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCompleteCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"message":{"content":"kısmi"}}`)
		flusher.Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Complete(ctx, []Message{{Role: "user", Content: "soru"}})
	require.ErrorIs(t, err, context.Canceled)
}
