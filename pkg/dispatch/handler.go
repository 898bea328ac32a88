// Package dispatch routes tool calls and prompt requests by name and turns
// every outcome, including failures, into a client-visible reply.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/logger"
	"github.com/alexcong/askpro-mcp/pkg/metrics"
	"github.com/alexcong/askpro-mcp/pkg/prompts"
	"github.com/alexcong/askpro-mcp/pkg/tools"
)

// Metric namespaces.
const (
	namespaceTool   = "tool"
	namespacePrompt = "prompt"

	// unknownLabel replaces unregistered names in metric labels.
	unknownLabel = "unknown"
)

// Content is one item of a reply.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply is the outcome of a dispatched call.
type Reply struct {
	Content           []Content      `json:"content"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

// Text returns the concatenated text of the reply.
func (r Reply) Text() string {
	var s string
	for _, c := range r.Content {
		s += c.Text
	}
	return s
}

func textReply(text string) Reply {
	return Reply{Content: []Content{{Type: "text", Text: text}}}
}

func errorReply(err error) Reply {
	r := textReply("Error: " + err.Error())
	r.IsError = true
	return r
}

// Config holds the dispatcher configuration.
type Config struct {
	Tools   []tools.Definition
	Prompts []prompts.Template
	// RequestTimeout bounds a single tool call; zero disables the bound.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Handler routes calls to the registered tools and prompts.
type Handler struct {
	tools          []tools.Definition
	toolIndex      map[string]tools.Definition
	prompts        []prompts.Template
	promptIndex    map[string]prompts.Template
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewHandler creates a Handler. Later registrations of a duplicate name are
// ignored.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		tools:          make([]tools.Definition, 0, len(cfg.Tools)),
		prompts:        make([]prompts.Template, 0, len(cfg.Prompts)),
		toolIndex:      make(map[string]tools.Definition, len(cfg.Tools)),
		promptIndex:    make(map[string]prompts.Template, len(cfg.Prompts)),
		requestTimeout: cfg.RequestTimeout,
		logger:         cfg.Logger,
	}
	if h.logger == nil {
		h.logger = logger.Named("dispatch")
	}
	for _, def := range cfg.Tools {
		if _, dup := h.toolIndex[def.Name]; dup {
			h.logger.Warn("duplicate tool ignored", "tool", def.Name)
			continue
		}
		h.toolIndex[def.Name] = def
		h.tools = append(h.tools, def)
	}
	for _, tpl := range cfg.Prompts {
		if _, dup := h.promptIndex[tpl.Name]; dup {
			h.logger.Warn("duplicate prompt ignored", "prompt", tpl.Name)
			continue
		}
		h.promptIndex[tpl.Name] = tpl
		h.prompts = append(h.prompts, tpl)
	}
	return h
}

// Tools returns the registered tool definitions in registration order.
func (h *Handler) Tools() []tools.Definition { return h.tools }

// Prompts returns the registered templates in registration order.
func (h *Handler) Prompts() []prompts.Template { return h.prompts }

// CallTool runs the named tool. Failures never escape as Go errors; they
// become replies with IsError set.
func (h *Handler) CallTool(ctx context.Context, name string, args json.RawMessage) (reply Reply) {
	start := time.Now()
	metrics.ActiveCalls.Inc()
	defer metrics.ActiveCalls.Dec()

	log := h.logger.With("request_id", uuid.NewString(), "tool", name)
	label := unknownLabel
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panicked", "panic", r)
			reply = errorReply(fmt.Errorf("internal error: %v", r))
		}
		metrics.ObserveCall(namespaceTool, label, !reply.IsError)
	}()

	def, ok := h.toolIndex[name]
	if !ok {
		log.Warn("unknown tool")
		return errorReply(apperr.UnknownTool(name))
	}
	label = name

	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	out, err := def.Handler(ctx, args)
	if err != nil {
		log.Warn("tool call failed",
			"code", apperr.CodeOf(err),
			"duration", time.Since(start),
			"error", err,
		)
		return errorReply(err)
	}

	log.Info("tool call completed", "duration", time.Since(start))
	reply = textReply(out.Text)
	reply.StructuredContent = out.Structured
	return reply
}

// GetPrompt renders the named template. The reply text tells the client
// which tool to call with which arguments.
func (h *Handler) GetPrompt(_ context.Context, name string, args map[string]string) (reply Reply) {
	log := h.logger.With("request_id", uuid.NewString(), "prompt", name)
	label := unknownLabel
	defer func() {
		if r := recover(); r != nil {
			log.Error("prompt panicked", "panic", r)
			reply = errorReply(fmt.Errorf("internal error: %v", r))
		}
		metrics.ObserveCall(namespacePrompt, label, !reply.IsError)
	}()

	tpl, ok := h.promptIndex[name]
	if !ok {
		log.Warn("unknown prompt")
		return errorReply(apperr.UnknownPrompt(name))
	}
	label = name

	suggestion, err := tpl.Build(args)
	if err != nil {
		log.Warn("prompt build failed", "error", err)
		return errorReply(err)
	}

	encoded, err := json.MarshalIndent(suggestion.Arguments, "", "  ")
	if err != nil {
		return errorReply(fmt.Errorf("encode prompt arguments: %w", err))
	}
	return textReply(fmt.Sprintf("Use the %s tool with these arguments: %s", suggestion.Tool, encoded))
}
