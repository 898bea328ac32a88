package extract

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
)

// SummaryKind distinguishes the three observable states of a reasoning
// summary.
type SummaryKind int

const (
	// SummaryAbsent means the reply carried no reasoning object.
	SummaryAbsent SummaryKind = iota
	// SummaryNull means a reasoning object was present but its summary was
	// null or missing.
	SummaryNull
	// SummaryText means the summary was a string, possibly empty.
	SummaryText
)

func (k SummaryKind) String() string {
	switch k {
	case SummaryNull:
		return "null"
	case SummaryText:
		return "text"
	default:
		return "absent"
	}
}

// ReasoningSummary is the tri-state reasoning summary of a reply.
type ReasoningSummary struct {
	Kind SummaryKind
	Text string
}

// SummaryOf returns a SummaryText summary.
func SummaryOf(text string) ReasoningSummary {
	return ReasoningSummary{Kind: SummaryText, Text: text}
}

// Renderable reports whether the summary has text worth showing.
func (s ReasoningSummary) Renderable() bool {
	return s.Kind == SummaryText && s.Text != ""
}

// Text returns the reply's final text: the flat field when non-empty,
// otherwise the output_text parts of message items joined by a blank line.
// An empty string means nothing could be extracted.
func Text(r *Reply) string {
	if r == nil {
		return ""
	}
	if r.OutputText != "" {
		return r.OutputText
	}

	var texts []string
	for _, item := range r.Output {
		if item.Type != itemTypeMessage {
			continue
		}
		for _, part := range item.Content {
			if part.Type == partTypeText && part.HasText {
				texts = append(texts, part.Text)
			}
		}
	}
	return strings.Join(texts, "\n\n")
}

// Sources returns the unique citation URLs found anywhere in the reply's
// output tree, in order of first occurrence.
func Sources(r *Reply) []string {
	if r == nil {
		return []string{}
	}
	return CollectSources(r.output)
}

// CollectSources walks v and collects every non-empty string stored under a
// key named url, uri, or ending in _url. Scalars of other types are skipped.
func CollectSources(v gjson.Result) []string {
	c := sourceCollector{seen: make(map[string]struct{}), urls: []string{}}
	c.walk(v)
	return c.urls
}

type sourceCollector struct {
	seen map[string]struct{}
	urls []string
}

func (c *sourceCollector) walk(v gjson.Result) {
	switch {
	case v.IsArray():
		v.ForEach(func(_, el gjson.Result) bool {
			c.walk(el)
			return true
		})
	case v.IsObject():
		v.ForEach(func(key, el gjson.Result) bool {
			if el.Type == gjson.String && isURLKey(key.Str) {
				c.add(el.Str)
			}
			c.walk(el)
			return true
		})
	}
}

func (c *sourceCollector) add(url string) {
	if url == "" {
		return
	}
	if _, ok := c.seen[url]; ok {
		return
	}
	c.seen[url] = struct{}{}
	c.urls = append(c.urls, url)
}

func isURLKey(key string) bool {
	return key == "url" || key == "uri" || strings.HasSuffix(key, "_url")
}

// Summary returns the reply's reasoning summary.
func Summary(r *Reply) ReasoningSummary {
	if r == nil {
		return ReasoningSummary{}
	}
	return r.Reasoning
}

// Status returns the reply's status, normalised to StatusUnknown.
func Status(r *Reply) string {
	if r == nil || r.Status == "" {
		return StatusUnknown
	}
	return r.Status
}

// JobID returns the reply's id or a MissingIdentifier error naming backend.
func JobID(r *Reply, backend string) (string, error) {
	if r == nil || r.ID == "" {
		return "", apperr.MissingIdentifier(backend)
	}
	return r.ID, nil
}
