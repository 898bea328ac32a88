package provider

import "context"

const webSearchTool = "web_search"

// SearchClient talks to a search-augmented model: every request enables the
// backend's web search tool so replies can carry citations.
type SearchClient struct {
	core *responsesClient
}

var _ Generator = (*SearchClient)(nil)

// NewSearchClient validates cfg and creates a search client.
func NewSearchClient(cfg Config, opts ...Option) (*SearchClient, error) {
	core, err := newResponsesClient("Search", cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &SearchClient{core: core}, nil
}

func (s *SearchClient) Name() string { return s.core.name }

// Model returns the configured model identifier.
func (s *SearchClient) Model() string { return s.core.model }

// Generate runs the prompt with web search enabled.
func (s *SearchClient) Generate(ctx context.Context, req Request) (Result, error) {
	return s.core.generate(ctx, req, []toolSpec{{Type: webSearchTool}})
}
