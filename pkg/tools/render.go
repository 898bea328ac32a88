package tools

import (
	"fmt"
	"strings"

	"github.com/alexcong/askpro-mcp/pkg/extract"
	"github.com/alexcong/askpro-mcp/pkg/provider"
)

// Rendering is the normalised content of one tool reply.
type Rendering struct {
	Text    string
	Summary extract.ReasoningSummary
	Sources []string
	// Status is empty for synchronous results.
	Status string
}

// Render formats r as primary text, then the reasoning summary, then a
// numbered source list, then a status footer for unfinished jobs.
func Render(r Rendering) string {
	var b strings.Builder
	b.WriteString(r.Text)

	if r.Summary.Renderable() {
		b.WriteString("\n\n**Reasoning Summary:** ")
		b.WriteString(r.Summary.Text)
	}

	if len(r.Sources) > 0 {
		b.WriteString("\n\n**Sources:**")
		for i, src := range r.Sources {
			fmt.Fprintf(&b, "\n%d. %s", i+1, src)
		}
	}

	if r.Status != "" && r.Status != provider.StatusCompleted {
		fmt.Fprintf(&b, "\n\n_Status: %s_", r.Status)
	}
	return b.String()
}

// Structured returns the machine-readable form of r. reasoning_summary is
// omitted when absent and null when present but empty.
func (r Rendering) Structured() map[string]any {
	sources := r.Sources
	if sources == nil {
		sources = []string{}
	}
	out := map[string]any{
		"text":    r.Text,
		"sources": sources,
	}
	if r.Status != "" {
		out["status"] = r.Status
	}
	switch r.Summary.Kind {
	case extract.SummaryNull:
		out["reasoning_summary"] = nil
	case extract.SummaryText:
		out["reasoning_summary"] = r.Summary.Text
	}
	return out
}

func (r Rendering) output() Output {
	return Output{Text: Render(r), Structured: r.Structured()}
}
