package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/metrics"
	"github.com/alexcong/askpro-mcp/pkg/provider"
)

// Tool names.
const (
	AskGPT       = "ask_gpt"
	GetGPTAnswer = "get_gpt_answer"
	AskSearch    = "ask_search"
	ListGPTJobs  = "list_gpt_jobs"
)

const (
	minTemperature   = 0
	maxTemperature   = 2
	defaultJobsLimit = 20
	maxJobsLimit     = 100
)

// AskInput is the argument object of ask_gpt and ask_search.
type AskInput struct {
	Prompt      string   `json:"prompt" jsonschema:"minLength=1" jsonschema_description:"The question or task to send to the model."`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"minimum=0,maximum=2" jsonschema_description:"Sampling temperature between 0 and 2. Defaults to 0.7."`
}

func (in AskInput) validate() error {
	if strings.TrimSpace(in.Prompt) == "" {
		return apperr.Validation("prompt is required")
	}
	if in.Temperature != nil && (*in.Temperature < minTemperature || *in.Temperature > maxTemperature) {
		return apperr.Validation("temperature must be between %d and %d", minTemperature, maxTemperature)
	}
	return nil
}

func (in AskInput) request() provider.Request {
	return provider.Request{Prompt: in.Prompt, Temperature: in.Temperature}
}

// AnswerInput is the argument object of get_gpt_answer.
type AnswerInput struct {
	ResponseID string `json:"response_id" jsonschema:"minLength=1" jsonschema_description:"The response id returned by ask_gpt."`
}

// ListJobsInput is the argument object of list_gpt_jobs.
type ListJobsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100" jsonschema_description:"Maximum number of jobs to list. Defaults to 20."`
}

func (t *Toolset) askGPTDefinition() Definition {
	desc := "Ask the OpenAI reasoning model for deep reasoning, structured analysis and complex problem solving."
	if t.background {
		desc += " The request runs in the background: this returns a response id to pass to get_gpt_answer."
	}
	return Definition{
		Name:        AskGPT,
		Description: desc,
		InputSchema: GenerateSchema[AskInput](),
		Handler:     t.askGPT,
	}
}

func (t *Toolset) getGPTAnswerDefinition() Definition {
	return Definition{
		Name:        GetGPTAnswer,
		Description: "Fetch the current state of a background ask_gpt request by response id. Repeat until the status is completed.",
		InputSchema: GenerateSchema[AnswerInput](),
		Handler:     t.getGPTAnswer,
	}
}

func (t *Toolset) askSearchDefinition() Definition {
	return Definition{
		Name:        AskSearch,
		Description: "Ask the search-grounded model for up-to-date information from the web. Answers include the source URLs they cite.",
		InputSchema: GenerateSchema[AskInput](),
		Handler:     t.askSearch,
	}
}

func (t *Toolset) listJobsDefinition() Definition {
	return Definition{
		Name:        ListGPTJobs,
		Description: "List recently enqueued ask_gpt requests with their last observed status, newest first.",
		InputSchema: GenerateSchema[ListJobsInput](),
		Handler:     t.listJobs,
	}
}

func (t *Toolset) askGPT(ctx context.Context, raw json.RawMessage) (Output, error) {
	in, err := decodeArgs[AskInput](raw)
	if err != nil {
		return Output{}, err
	}
	if err := in.validate(); err != nil {
		return Output{}, err
	}

	if !t.background {
		res, err := t.reasoning.Generate(ctx, in.request())
		if err != nil {
			return Output{}, fmt.Errorf("failed to query GPT: %w", err)
		}
		return Rendering{Text: res.Text, Sources: res.Sources}.output(), nil
	}

	handle, err := t.reasoning.Enqueue(ctx, in.request())
	if err != nil {
		return Output{}, fmt.Errorf("failed to enqueue GPT request: %w", err)
	}
	metrics.ObserveJobStatus(handle.Status)
	t.record(ctx, handle.ID, handle.Status)
	t.logger.Info("gpt request enqueued", "response_id", handle.ID, "status", handle.Status)

	// The text is the bare id so it can be passed straight to get_gpt_answer.
	r := Rendering{Text: handle.ID, Status: handle.Status}
	return Output{
		Text:       handle.ID,
		Structured: withResponseID(r.Structured(), handle.ID),
	}, nil
}

func (t *Toolset) getGPTAnswer(ctx context.Context, raw json.RawMessage) (Output, error) {
	in, err := decodeArgs[AnswerInput](raw)
	if err != nil {
		return Output{}, err
	}
	id := strings.TrimSpace(in.ResponseID)
	if id == "" {
		return Output{}, apperr.Validation("response_id is required")
	}

	res, err := t.reasoning.Retrieve(ctx, id)
	if err != nil {
		return Output{}, fmt.Errorf("failed to retrieve GPT response: %w", err)
	}
	metrics.ObserveJobStatus(res.Status)
	t.record(ctx, res.ID, res.Status)

	r := Rendering{
		Text:    res.Text,
		Summary: res.Summary,
		Sources: res.Sources,
		Status:  res.Status,
	}
	out := r.output()
	out.Structured = withResponseID(out.Structured, res.ID)
	return out, nil
}

func (t *Toolset) askSearch(ctx context.Context, raw json.RawMessage) (Output, error) {
	in, err := decodeArgs[AskInput](raw)
	if err != nil {
		return Output{}, err
	}
	if err := in.validate(); err != nil {
		return Output{}, err
	}

	res, err := t.search.Generate(ctx, in.request())
	if err != nil {
		return Output{}, fmt.Errorf("failed to query search model: %w", err)
	}
	return Rendering{Text: res.Text, Sources: res.Sources}.output(), nil
}

func (t *Toolset) listJobs(ctx context.Context, raw json.RawMessage) (Output, error) {
	in, err := decodeArgs[ListJobsInput](raw)
	if err != nil {
		return Output{}, err
	}
	limit := in.Limit
	switch {
	case limit == 0:
		limit = defaultJobsLimit
	case limit < 0 || limit > maxJobsLimit:
		return Output{}, apperr.Validation("limit must be between 1 and %d", maxJobsLimit)
	}

	entries, err := t.ledger.Recent(ctx, limit)
	if err != nil {
		return Output{}, fmt.Errorf("failed to list GPT jobs: %w", err)
	}

	if len(entries) == 0 {
		return Output{
			Text:       "No background GPT requests recorded.",
			Structured: map[string]any{"jobs": entries},
		}, nil
	}

	var b strings.Builder
	b.WriteString("Recent GPT requests:")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n- %s (%s, created %s)", e.ID, e.Status, e.CreatedAt.UTC().Format(time.RFC3339))
	}
	return Output{
		Text:       b.String(),
		Structured: map[string]any{"jobs": entries},
	}, nil
}

func withResponseID(structured map[string]any, id string) map[string]any {
	structured["response_id"] = id
	return structured
}
