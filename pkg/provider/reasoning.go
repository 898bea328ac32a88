package provider

import "context"

// ReasoningClient talks to a reasoning-oriented model. It supports both the
// synchronous and the background mode.
type ReasoningClient struct {
	core *responsesClient
}

var (
	_ Generator        = (*ReasoningClient)(nil)
	_ BackgroundRunner = (*ReasoningClient)(nil)
)

// NewReasoningClient validates cfg and creates a reasoning client.
// An invalid cfg yields a CONFIGURATION_ERROR.
func NewReasoningClient(cfg Config, opts ...Option) (*ReasoningClient, error) {
	core, err := newResponsesClient("OpenAI", cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &ReasoningClient{core: core}, nil
}

func (r *ReasoningClient) Name() string { return r.core.name }

// Model returns the configured model identifier.
func (r *ReasoningClient) Model() string { return r.core.model }

// Generate runs the prompt in a single exchange.
func (r *ReasoningClient) Generate(ctx context.Context, req Request) (Result, error) {
	return r.core.generate(ctx, req, nil)
}

// Enqueue submits the prompt as a stored background job.
func (r *ReasoningClient) Enqueue(ctx context.Context, req Request) (JobHandle, error) {
	return r.core.enqueue(ctx, req)
}

// Retrieve fetches the latest state of a background job.
func (r *ReasoningClient) Retrieve(ctx context.Context, id string) (JobResult, error) {
	return r.core.retrieve(ctx, id)
}
