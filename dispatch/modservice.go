package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ModService is the outbound moderation surface of the chat platform.
type ModService interface {
	Announce(ctx context.Context, channel, text string) error
	Timeout(ctx context.Context, channel, userID string, duration time.Duration, reason string) error
	Ban(ctx context.Context, channel, userID, reason string) error
	Unban(ctx context.Context, channel, userID string) error
	Delete(ctx context.Context, channel, messageID string) error
}

// HTTPModService talks to the platform's moderation REST API. Transient
// failures (5xx, 429, network) are retried with backoff before surfacing as
// a TransientAPIError; 4xx responses surface immediately as permanent.
type HTTPModService struct {
	Host   string
	Token  string
	Client *retryablehttp.Client
}

func NewHTTPModService(host, token string) *HTTPModService {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil
	return &HTTPModService{
		Host:   host,
		Token:  token,
		Client: client,
	}
}

func (s *HTTPModService) post(ctx context.Context, op, path string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", op, err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", s.Host+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("constructing %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := s.Client.Do(req)
	if err != nil {
		// retryablehttp only returns an error after exhausting retries
		return &TransientAPIError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &TransientAPIError{Op: op, StatusCode: resp.StatusCode}
	}
	return &PermanentAPIError{Op: op, StatusCode: resp.StatusCode, Msg: string(msg)}
}

type userActionBody struct {
	Channel  string `json:"channel"`
	UserID   string `json:"user_id"`
	Duration int    `json:"duration_seconds,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

func (s *HTTPModService) Announce(ctx context.Context, channel, text string) error {
	return s.post(ctx, "announce", "/moderation/announce", map[string]string{
		"channel": channel,
		"text":    text,
	})
}

func (s *HTTPModService) Timeout(ctx context.Context, channel, userID string, duration time.Duration, reason string) error {
	return s.post(ctx, "timeout", "/moderation/timeout", userActionBody{
		Channel:  channel,
		UserID:   userID,
		Duration: int(duration.Seconds()),
		Reason:   reason,
	})
}

func (s *HTTPModService) Ban(ctx context.Context, channel, userID, reason string) error {
	return s.post(ctx, "ban", "/moderation/ban", userActionBody{
		Channel: channel,
		UserID:  userID,
		Reason:  reason,
	})
}

func (s *HTTPModService) Unban(ctx context.Context, channel, userID string) error {
	return s.post(ctx, "unban", "/moderation/unban", userActionBody{
		Channel: channel,
		UserID:  userID,
	})
}

func (s *HTTPModService) Delete(ctx context.Context, channel, messageID string) error {
	return s.post(ctx, "delete", "/moderation/delete", map[string]string{
		"channel":    channel,
		"message_id": messageID,
	})
}
