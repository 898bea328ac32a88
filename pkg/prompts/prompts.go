// Package prompts holds the canned prompt templates offered to MCP
// clients. A template turns a few named arguments into a suggested call of
// one of the tools.
package prompts

import (
	"fmt"
	"strings"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/tools"
)

// Argument describes one prompt parameter.
type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Template is a named prompt.
type Template struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Arguments   []Argument `json:"arguments"`

	// Tool is the tool the suggestion targets.
	Tool  string `json:"-"`
	build func(args map[string]string) map[string]any
}

// Suggestion is a tool invocation recommended by a template.
type Suggestion struct {
	Tool      string
	Arguments map[string]any
}

// Build renders the suggestion for args. It fails only when a required
// argument is missing or blank.
func (t Template) Build(args map[string]string) (Suggestion, error) {
	clean := make(map[string]string, len(args))
	for k, v := range args {
		clean[k] = strings.TrimSpace(v)
	}
	for _, a := range t.Arguments {
		if a.Required && clean[a.Name] == "" {
			return Suggestion{}, apperr.Validation("prompt %s: missing required argument %q", t.Name, a.Name)
		}
	}
	return Suggestion{Tool: t.Tool, Arguments: t.build(clean)}, nil
}

// Catalog returns every template in listing order.
func Catalog() []Template {
	return []Template{
		researchAnalysis,
		currentEvents,
		technicalDocumentation,
		compareSources,
		factCheck,
		deepThink,
	}
}

// Lookup finds a template by name.
func Lookup(name string) (Template, bool) {
	for _, t := range Catalog() {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var researchAnalysis = Template{
	Name:        "research_analysis",
	Description: "Research a topic on the web and return a structured analysis with sources.",
	Arguments: []Argument{
		{Name: "topic", Description: "The topic to research", Required: true},
		{Name: "focus", Description: "Aspect to concentrate on"},
	},
	Tool: tools.AskSearch,
	build: func(args map[string]string) map[string]any {
		prompt := fmt.Sprintf("Research %q thoroughly.", args["topic"])
		if args["focus"] != "" {
			prompt += fmt.Sprintf(" Focus on %s.", args["focus"])
		}
		prompt += " Provide a structured analysis with key findings, supporting evidence and the sources you relied on."
		return map[string]any{"prompt": prompt}
	},
}

var currentEvents = Template{
	Name:        "current_events",
	Description: "Summarise the latest developments on a topic.",
	Arguments: []Argument{
		{Name: "topic", Description: "The subject to follow", Required: true},
		{Name: "timeframe", Description: "Period to cover, e.g. \"the past week\""},
	},
	Tool: tools.AskSearch,
	build: func(args map[string]string) map[string]any {
		return map[string]any{
			"prompt": fmt.Sprintf("What are the most important developments about %s during %s? List them chronologically with dates and cite each source.",
				args["topic"], withDefault(args["timeframe"], "the past week")),
		}
	},
}

var technicalDocumentation = Template{
	Name:        "technical_documentation",
	Description: "Look up current documentation for a technology.",
	Arguments: []Argument{
		{Name: "technology", Description: "Library, framework or tool name", Required: true},
		{Name: "question", Description: "Specific question about it"},
	},
	Tool: tools.AskSearch,
	build: func(args map[string]string) map[string]any {
		prompt := fmt.Sprintf("Find the current official documentation for %s.", args["technology"])
		if args["question"] != "" {
			prompt += " Answer this question from it: " + args["question"]
		} else {
			prompt += " Summarise installation, core concepts and the most recent breaking changes."
		}
		prompt += " Include code examples where relevant and link the pages used."
		return map[string]any{"prompt": prompt}
	},
}

var compareSources = Template{
	Name:        "compare_sources",
	Description: "Compare how different sources report on a topic.",
	Arguments: []Argument{
		{Name: "topic", Description: "The topic to compare coverage of", Required: true},
		{Name: "sources", Description: "Comma-separated outlets or sites to compare"},
	},
	Tool: tools.AskSearch,
	build: func(args map[string]string) map[string]any {
		prompt := fmt.Sprintf("Compare how different sources cover %s.", args["topic"])
		if args["sources"] != "" {
			prompt += fmt.Sprintf(" Include these sources: %s.", args["sources"])
		}
		prompt += " Point out where they agree, where they disagree and any notable omissions."
		return map[string]any{"prompt": prompt}
	},
}

var factCheck = Template{
	Name:        "fact_check",
	Description: "Verify a claim against current sources.",
	Arguments: []Argument{
		{Name: "claim", Description: "The statement to verify", Required: true},
	},
	Tool: tools.AskSearch,
	build: func(args map[string]string) map[string]any {
		return map[string]any{
			"prompt": fmt.Sprintf("Fact-check the following claim: %q. State whether it is true, false or partially true, explain the evidence and cite the sources.",
				args["claim"]),
			"temperature": 0.2,
		}
	},
}

var deepThink = Template{
	Name:        "deepthink",
	Description: "Work through a hard problem with the reasoning model.",
	Arguments: []Argument{
		{Name: "problem", Description: "The problem to solve", Required: true},
		{Name: "context", Description: "Background, constraints or prior attempts"},
	},
	Tool: tools.AskGPT,
	build: func(args map[string]string) map[string]any {
		prompt := "Think step by step about the following problem and give a well-justified answer.\n\nProblem: " + args["problem"]
		if args["context"] != "" {
			prompt += "\n\nContext: " + args["context"]
		}
		return map[string]any{"prompt": prompt}
	},
}
