package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/extract"
	"github.com/alexcong/askpro-mcp/pkg/logger"
	"github.com/alexcong/askpro-mcp/pkg/metrics"
)

// maxReplyBytes caps how much of a reply body is read into memory.
const maxReplyBytes = 32 << 20

// Option customises a backend client.
type Option func(*responsesClient)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(rc *responsesClient) {
		if c != nil {
			rc.client = c
		}
	}
}

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(rc *responsesClient) {
		if l != nil {
			rc.logger = l
		}
	}
}

// responsesClient owns the HTTP exchange with a Responses-style endpoint.
// It is immutable after construction.
type responsesClient struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func newResponsesClient(name string, cfg Config, opts ...Option) (*responsesClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, apperr.Configuration("%s API key is required", name)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, apperr.Configuration("%s model is required", name)
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperr.Configuration("%s base URL %q is not a valid http(s) URL", name, baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := &responsesClient{
		name:    name,
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("provider").With("backend", name),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(rc)
		}
	}
	return rc, nil
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type inputPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type inputMessage struct {
	Role    string      `json:"role"`
	Content []inputPart `json:"content"`
}

type toolSpec struct {
	Type string `json:"type"`
}

type responsesRequest struct {
	Model       string         `json:"model"`
	Input       []inputMessage `json:"input"`
	Temperature *float64       `json:"temperature,omitempty"`
	Tools       []toolSpec     `json:"tools,omitempty"`
	Background  bool           `json:"background,omitempty"`
	Store       bool           `json:"store,omitempty"`
	Include     []string       `json:"include,omitempty"`
}

func (c *responsesClient) newRequest(prompt string) responsesRequest {
	return responsesRequest{
		Model: c.model,
		Input: []inputMessage{{
			Role:    "user",
			Content: []inputPart{{Type: "input_text", Text: prompt}},
		}},
	}
}

func (c *responsesClient) placeholder() string {
	return fmt.Sprintf("No response text returned from %s.", c.name)
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

func (c *responsesClient) generate(ctx context.Context, req Request, tools []toolSpec) (Result, error) {
	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	body := c.newRequest(req.Prompt)
	body.Temperature = &temperature
	body.Tools = tools

	raw, err := c.post(ctx, "generate", body)
	if err != nil {
		return Result{}, err
	}

	reply, err := extract.Decode(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%s: decode response: %w", c.name, err)
	}

	text := extract.Text(reply)
	if text == "" {
		text = c.placeholder()
	}
	return Result{Text: text, Sources: extract.Sources(reply)}, nil
}

func (c *responsesClient) enqueue(ctx context.Context, req Request) (JobHandle, error) {
	body := c.newRequest(req.Prompt)
	body.Temperature = req.Temperature
	body.Background = true
	body.Store = true
	body.Include = []string{"reasoning.encrypted_content"}

	raw, err := c.post(ctx, "enqueue", body)
	if err != nil {
		return JobHandle{}, apperr.EnqueueFailed(c.name, err)
	}

	reply, err := extract.Decode(raw)
	if err != nil {
		return JobHandle{}, apperr.EnqueueFailed(c.name, err)
	}

	id, err := extract.JobID(reply, c.name)
	if err != nil {
		return JobHandle{}, err
	}
	return JobHandle{ID: id, Status: extract.Status(reply)}, nil
}

func (c *responsesClient) retrieve(ctx context.Context, id string) (JobResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return JobResult{}, apperr.Validation("response ID is required")
	}

	raw, err := c.get(ctx, "retrieve", "/responses/"+url.PathEscape(id))
	if err != nil {
		return JobResult{}, apperr.RetrieveFailed(c.name, err)
	}

	reply, err := extract.Decode(raw)
	if err != nil {
		return JobResult{}, apperr.RetrieveFailed(c.name, err)
	}

	replyID, err := extract.JobID(reply, c.name)
	if err != nil {
		return JobResult{}, err
	}

	text := extract.Text(reply)
	if text == "" {
		text = c.placeholder()
	}
	return JobResult{
		ID:      replyID,
		Text:    text,
		Summary: extract.Summary(reply),
		Sources: extract.Sources(reply),
		Status:  extract.Status(reply),
	}, nil
}

// ---------------------------------------------------------------------------
// HTTP exchange
// ---------------------------------------------------------------------------

func (c *responsesClient) post(ctx context.Context, op string, body responsesRequest) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(op, httpReq)
}

func (c *responsesClient) get(ctx context.Context, op, path string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.name, err)
	}
	return c.do(op, httpReq)
}

func (c *responsesClient) do(op string, httpReq *http.Request) (body []byte, err error) {
	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		metrics.ObserveBackendCall(c.name, op, err == nil, elapsed)
		attrs := []any{"operation", op, "http_status", status, "duration", elapsed}
		if err != nil {
			c.logger.Warn("backend call failed", append(attrs, "error", err)...)
			return
		}
		c.logger.Debug("backend call", attrs...)
	}()

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeBackendRequestFailed, err, c.name+" request failed")
	}
	defer httpResp.Body.Close()
	status = httpResp.StatusCode

	body, err = io.ReadAll(io.LimitReader(httpResp.Body, maxReplyBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeBackendRequestFailed, err, c.name+" read response failed")
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, apperr.BackendRequestFailed(c.name, httpResp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
