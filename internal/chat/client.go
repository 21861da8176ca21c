// File path: internal/chat/client.go
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kampusdesk/kampusdesk/internal/common"
)

var (
	// ErrUnavailable reports that the chat backend could not be reached
	// or refused the request before any tokens arrived.
	ErrUnavailable = errors.New("chat backend unavailable")
	// ErrTimeout reports that the stream exceeded the first-byte or total
	// duration budget. Any partial answer is discarded.
	ErrTimeout = errors.New("chat stream timed out")
)

// Message is one role-tagged turn of a conversation, in the wire shape the
// chat backend expects.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config selects the streaming chat endpoint (Ollama-compatible /api/chat).
type Config struct {
	BaseURL          string
	Model            string
	FirstByteTimeout time.Duration
	StreamTimeout    time.Duration
}

func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.BaseURL) != "" {
		result.BaseURL = strings.TrimSpace(override.BaseURL)
	}
	if strings.TrimSpace(override.Model) != "" {
		result.Model = strings.TrimSpace(override.Model)
	}
	if override.FirstByteTimeout > 0 {
		result.FirstByteTimeout = override.FirstByteTimeout
	}
	if override.StreamTimeout > 0 {
		result.StreamTimeout = override.StreamTimeout
	}
	return result
}

func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "gemma3:12b"
	}
	if c.FirstByteTimeout <= 0 {
		c.FirstByteTimeout = 30 * time.Second
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 5 * time.Minute
	}
}

// Client streams chat completions. The underlying HTTP client is pooled and
// safe for concurrent questions; per-call state lives on the stack.
type Client struct {
	httpClient *http.Client
	cfg        Config
}

func NewClient(cfg Config) *Client {
	cfg.ApplyDefaults()
	// No client-wide timeout: the per-call context governs the stream.
	return &Client{
		httpClient: &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: 4}},
		cfg:        cfg,
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Complete sends the messages and consumes the token stream into the final
// answer text. Caller cancellation propagates into the network read and
// releases the connection promptly. On timeout the partial text is
// discarded and ErrTimeout returned.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages provided")
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StreamTimeout)
	defer cancel()

	payload, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: messages, Stream: true})
	if err != nil {
		return "", err
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	// The first byte must arrive within its own budget. The timer is armed
	// before the request goes out so it also bounds a backend that accepts
	// the connection but never writes a status line; after the first body
	// byte only the total stream deadline applies.
	var timedOut atomic.Bool
	firstByte := time.AfterFunc(c.cfg.FirstByteTimeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer firstByte.Stop()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.classify(ctx, &timedOut, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		firstByte.Stop()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	asm := NewAssembler()
	buf := make([]byte, 4096)
	sawData := false
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if !sawData {
				firstByte.Stop()
				sawData = true
			}
			asm.Feed(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", c.classify(ctx, &timedOut, err)
		}
	}
	text, err := asm.Finish()
	if err != nil {
		return "", err
	}
	common.Logger().Debug("chat: stream complete",
		"model", c.cfg.Model, "chars", len(text), "skipped", asm.Skipped(), "dur", time.Since(start))
	return text, nil
}

// classify maps a transport failure to the error taxonomy. A deadline or a
// fired first-byte timer is a Timeout; a caller cancellation is passed
// through as the context error; everything else means the backend is
// unreachable.
func (c *Client) classify(ctx context.Context, timedOut *atomic.Bool, err error) error {
	if timedOut != nil && timedOut.Load() {
		return fmt.Errorf("%w: no data within %s", ErrTimeout, c.cfg.FirstByteTimeout)
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: exceeded %s", ErrTimeout, c.cfg.StreamTimeout)
	case errors.Is(ctx.Err(), context.Canceled):
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
