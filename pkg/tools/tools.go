// Package tools defines the callable tools exposed to MCP clients.
//
// Each Definition pairs a JSON Schema generated from its argument struct
// with a handler. Handlers validate their arguments before any backend
// call and render backend results into a single text block.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/invopop/jsonschema"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/jobs"
	"github.com/alexcong/askpro-mcp/pkg/logger"
	"github.com/alexcong/askpro-mcp/pkg/provider"
)

// Handler executes a tool with raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Output, error)

// Definition describes one tool.
type Definition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema"`
	Handler     Handler            `json:"-"`
}

// Output is a successful tool result.
type Output struct {
	Text string
	// Structured is the machine-readable form of the result.
	Structured map[string]any
}

// GenerateSchema derives an inline JSON Schema from T.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	return schema
}

// ReasoningBackend is what the GPT tools need from the reasoning client.
type ReasoningBackend interface {
	provider.Generator
	provider.BackgroundRunner
}

// Config wires a Toolset to its collaborators.
type Config struct {
	Reasoning ReasoningBackend
	Search    provider.Generator
	// Ledger records background job ids; nil disables recording and the
	// list_gpt_jobs tool.
	Ledger jobs.Ledger
	// Background selects enqueue/retrieve for ask_gpt instead of a single
	// synchronous exchange.
	Background bool
	Logger     *slog.Logger
}

// Toolset holds the collaborators shared by the tool handlers.
type Toolset struct {
	reasoning  ReasoningBackend
	search     provider.Generator
	ledger     jobs.Ledger
	background bool
	logger     *slog.Logger
}

// New creates a Toolset.
func New(cfg Config) *Toolset {
	l := cfg.Logger
	if l == nil {
		l = logger.Named("tools")
	}
	return &Toolset{
		reasoning:  cfg.Reasoning,
		search:     cfg.Search,
		ledger:     cfg.Ledger,
		background: cfg.Background,
		logger:     l,
	}
}

// Definitions returns every tool this Toolset can serve, in listing order.
func (t *Toolset) Definitions() []Definition {
	var defs []Definition
	if t.reasoning != nil {
		defs = append(defs, t.askGPTDefinition(), t.getGPTAnswerDefinition())
	}
	if t.search != nil {
		defs = append(defs, t.askSearchDefinition())
	}
	if t.ledger != nil {
		defs = append(defs, t.listJobsDefinition())
	}
	return defs
}

// decodeArgs unmarshals a JSON object into T. Missing or null arguments
// decode to the zero value so field validation reports what is missing.
func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var v T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return v, nil
	}
	if trimmed[0] != '{' {
		return v, apperr.Validation("arguments must be a JSON object")
	}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return v, apperr.Validation("invalid arguments: %v", err)
	}
	return v, nil
}

func (t *Toolset) record(ctx context.Context, id, status string) {
	if t.ledger == nil {
		return
	}
	if err := t.ledger.Record(ctx, id, status); err != nil {
		t.logger.Warn("job ledger record failed", "response_id", id, "error", err)
	}
}
