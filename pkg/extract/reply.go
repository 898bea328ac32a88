// Package extract turns a backend's raw Responses-style reply into plain
// text, citation sources, a reasoning summary and a job status.
//
// Decode is the only place that looks at untyped JSON; the remaining
// functions operate on the typed Reply it produces.
package extract

import (
	"github.com/tidwall/gjson"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
)

const (
	itemTypeMessage = "message"
	partTypeText    = "output_text"

	// StatusUnknown replaces a missing, empty or non-string status.
	StatusUnknown = "unknown"
)

// Reply is the typed view of a backend reply.
type Reply struct {
	// OutputText is the flat top-level text field, empty when absent.
	OutputText string
	// Output holds the structured output items in document order.
	Output    []OutputItem
	Reasoning ReasoningSummary
	Status    string
	ID        string

	output gjson.Result
}

// OutputItem is one entry of the reply's output list.
type OutputItem struct {
	Type    string
	Content []ContentPart
}

// ContentPart is one content entry of an output item. HasText is false
// when the part carried no string text field.
type ContentPart struct {
	Type    string
	Text    string
	HasText bool
}

// Decode parses raw into a Reply. Missing optional fields are tolerated;
// only malformed JSON or a non-object reply is an error.
func Decode(raw []byte) (*Reply, error) {
	if !gjson.ValidBytes(raw) {
		return nil, apperr.New(apperr.CodeDecodeFailed, "reply is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, apperr.New(apperr.CodeDecodeFailed, "reply is not a JSON object")
	}

	reply := &Reply{
		Reasoning: decodeSummary(root.Get("reasoning")),
		Status:    StatusUnknown,
		output:    root.Get("output"),
	}
	if text := root.Get("output_text"); text.Type == gjson.String {
		reply.OutputText = text.Str
	}
	if status := root.Get("status"); status.Type == gjson.String && status.Str != "" {
		reply.Status = status.Str
	}
	if id := root.Get("id"); id.Type == gjson.String {
		reply.ID = id.Str
	}
	if reply.output.IsArray() {
		for _, item := range reply.output.Array() {
			reply.Output = append(reply.Output, decodeItem(item))
		}
	}
	return reply, nil
}

func decodeItem(item gjson.Result) OutputItem {
	var out OutputItem
	if !item.IsObject() {
		return out
	}
	if typ := item.Get("type"); typ.Type == gjson.String {
		out.Type = typ.Str
	}
	content := item.Get("content")
	if !content.IsArray() {
		return out
	}
	for _, part := range content.Array() {
		var p ContentPart
		if part.IsObject() {
			if typ := part.Get("type"); typ.Type == gjson.String {
				p.Type = typ.Str
			}
			if text := part.Get("text"); text.Type == gjson.String {
				p.Text = text.Str
				p.HasText = true
			}
		}
		out.Content = append(out.Content, p)
	}
	return out
}

func decodeSummary(reasoning gjson.Result) ReasoningSummary {
	if !reasoning.IsObject() {
		return ReasoningSummary{}
	}
	summary := reasoning.Get("summary")
	switch {
	case summary.Type == gjson.String:
		return SummaryOf(summary.Str)
	case !summary.Exists() || summary.Type == gjson.Null:
		return ReasoningSummary{Kind: SummaryNull}
	default:
		return ReasoningSummary{}
	}
}
