// Package provider defines the LLM backend capabilities and the shared
// request/result types.
package provider

import (
	"context"
	"time"

	"github.com/alexcong/askpro-mcp/pkg/extract"
)

const (
	// DefaultBaseURL is used when a backend config leaves BaseURL empty.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTemperature applies to Generate when the request sets none.
	DefaultTemperature = 0.7
	// DefaultTimeout bounds a single HTTP exchange.
	DefaultTimeout = 5 * time.Minute
)

// Job statuses reported by the backend. Other strings pass through as-is.
const (
	StatusQueued     = "queued"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusUnknown    = extract.StatusUnknown
)

// IsTerminal reports whether a job in status will not change again.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Request is a single prompt sent to a backend.
type Request struct {
	Prompt string
	// Temperature is optional; nil lets the client pick its default.
	Temperature *float64
}

// Result is the normalised outcome of a synchronous generation.
type Result struct {
	Text    string
	Sources []string
}

// JobHandle identifies a background job created by Enqueue.
type JobHandle struct {
	ID     string
	Status string
}

// JobResult is the state of a background job as of a Retrieve call.
type JobResult struct {
	ID      string
	Text    string
	Summary extract.ReasoningSummary
	Sources []string
	Status  string
}

// Config holds the immutable settings of one backend client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Generator performs a single request/response generation.
type Generator interface {
	// Name returns a human-readable backend name (e.g. "OpenAI").
	Name() string

	// Generate sends req and returns the extracted result. It never polls.
	Generate(ctx context.Context, req Request) (Result, error)
}

// BackgroundRunner runs long jobs on the backend. The caller owns the poll
// loop; Retrieve is safe to call repeatedly for the same id.
type BackgroundRunner interface {
	Name() string

	// Enqueue submits req as a stored background job.
	Enqueue(ctx context.Context, req Request) (JobHandle, error)

	// Retrieve fetches the job's latest state. Non-terminal statuses are
	// returned as successful results.
	Retrieve(ctx context.Context, id string) (JobResult, error)
}
