package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	domain "github.com/geocoder89/speechgate/internal/domain/speech"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	speechEndpoint = "/audio/speech"

	maxErrorBody = 64 << 10
)

// Client calls an OpenAI compatible /audio/speech endpoint with the service's
// own API key.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different host (tests, proxies).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		// no client-wide timeout: the caller's context bounds the whole exchange,
		// including the streamed body
		client: &http.Client{Transport: http.DefaultTransport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Audio is an open synthesis response. Body must be closed by the caller.
type Audio struct {
	Body          io.ReadCloser
	ContentLength int64
	ContentType   string
}

type synthesisRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Synthesize forwards req and returns the upstream audio stream on a 2xx answer.
// Non-2xx answers become *UpstreamError; deadline expiry becomes ErrTimeout and
// any other transport failure ErrTransport.
func (c *Client) Synthesize(ctx context.Context, req domain.Request) (*Audio, error) {
	body, err := json.Marshal(synthesisRequest{
		Model:          req.Model,
		Input:          req.Input,
		Voice:          req.Voice,
		ResponseFormat: req.ResponseFormat,
	})

	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+speechEndpoint, bytes.NewReader(body))

	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, upstreamError(resp)
	}

	return &Audio{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		ContentType:   resp.Header.Get("Content-Type"),
	}, nil
}

func upstreamError(resp *http.Response) error {
	e := &UpstreamError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if err != nil || len(raw) == 0 {
		return e
	}

	var parsed errorResponse

	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		e.Code = parsed.Error.Code
		e.Message = parsed.Error.Message
		return e
	}

	e.Message = string(bytes.TrimSpace(raw))
	return e
}

// deadlineBody releases the request-scoped deadline once the audio is drained
// or abandoned.
type deadlineBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *deadlineBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// SynthesizeWithin is Synthesize bounded by timeout. The deadline also covers
// reading Audio.Body and is released when the body is closed.
func (c *Client) SynthesizeWithin(ctx context.Context, timeout time.Duration, req domain.Request) (*Audio, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	audio, err := c.Synthesize(ctx, req)

	if err != nil {
		cancel()
		return nil, err
	}

	audio.Body = &deadlineBody{ReadCloser: audio.Body, cancel: cancel}
	return audio, nil
}
