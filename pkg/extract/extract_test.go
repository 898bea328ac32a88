package extract

import (
	"reflect"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
)

func mustDecode(t *testing.T, raw string) *Reply {
	t.Helper()
	reply, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return reply
}

func TestTextPrefersFlatField(t *testing.T) {
	reply := mustDecode(t, `{
		"output_text": "flat answer",
		"output": [{"type": "message", "content": [{"type": "output_text", "text": "structured"}]}]
	}`)
	if got := Text(reply); got != "flat answer" {
		t.Fatalf("got %q want flat answer", got)
	}
}

func TestTextFromStructuredOutput(t *testing.T) {
	reply := mustDecode(t, `{
		"output_text": "",
		"output": [
			{"type": "reasoning", "content": [{"type": "output_text", "text": "hidden"}]},
			{"type": "message", "content": [
				{"type": "output_text", "text": "first"},
				{"type": "refusal", "text": "skip"},
				{"type": "output_text", "text": 42}
			]},
			"not an object",
			{"type": "message", "content": "not an array"},
			{"type": "message", "content": [{"type": "output_text", "text": "second"}]}
		]
	}`)
	if got := Text(reply); got != "first\n\nsecond" {
		t.Fatalf("got %q", got)
	}
}

func TestTextEmptyWhenNothingPresent(t *testing.T) {
	cases := []string{
		`{}`,
		`{"output_text": 7, "output": {"type": "message"}}`,
		`{"output": []}`,
	}
	for _, raw := range cases {
		if got := Text(mustDecode(t, raw)); got != "" {
			t.Fatalf("%s: expected empty text, got %q", raw, got)
		}
	}
}

func TestCollectSourcesDeduplicates(t *testing.T) {
	v := gjson.Parse(`{"a": {"url": "http://x"}, "b": [{"uri": "http://x"}, {"foo_url": "http://y"}]}`)
	got := CollectSources(v)
	want := []string{"http://x", "http://y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSourcesWalkOutputTree(t *testing.T) {
	reply := mustDecode(t, `{
		"url": "http://ignored-top-level",
		"output": [
			{"type": "web_search_call", "action": {"sources": [{"url": "https://a.example"}, {"url": null}]}},
			{"type": "message", "content": [{"type": "output_text", "text": "t",
				"annotations": [
					{"type": "url_citation", "url": "https://b.example", "start_index": 0},
					{"type": "url_citation", "url": "https://a.example"},
					{"image_url": "https://c.example", "count": 3, "ok": true},
					{"url": {"uri": "https://d.example"}},
					{"url": ""}
				]}]}
		]
	}`)
	got := Sources(reply)
	want := []string{"https://a.example", "https://b.example", "https://c.example", "https://d.example"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSourcesEmptyIsNotNil(t *testing.T) {
	got := Sources(mustDecode(t, `{"output_text": "x"}`))
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSummaryTriState(t *testing.T) {
	cases := []struct {
		raw  string
		want ReasoningSummary
	}{
		{`{}`, ReasoningSummary{Kind: SummaryAbsent}},
		{`{"reasoning": "effort"}`, ReasoningSummary{Kind: SummaryAbsent}},
		{`{"reasoning": null}`, ReasoningSummary{Kind: SummaryAbsent}},
		{`{"reasoning": {"summary": null}}`, ReasoningSummary{Kind: SummaryNull}},
		{`{"reasoning": {"effort": "high"}}`, ReasoningSummary{Kind: SummaryNull}},
		{`{"reasoning": {"summary": ["a"]}}`, ReasoningSummary{Kind: SummaryAbsent}},
		{`{"reasoning": {"summary": ""}}`, ReasoningSummary{Kind: SummaryText}},
		{`{"reasoning": {"summary": "thought hard"}}`, SummaryOf("thought hard")},
	}
	for _, tc := range cases {
		got := Summary(mustDecode(t, tc.raw))
		if got != tc.want {
			t.Fatalf("%s: got %+v want %+v", tc.raw, got, tc.want)
		}
	}
	if SummaryOf("").Renderable() {
		t.Fatalf("empty summary text should not render")
	}
}

func TestStatusNormalisation(t *testing.T) {
	cases := map[string]string{
		`{}`:                        StatusUnknown,
		`{"status": ""}`:            StatusUnknown,
		`{"status": 3}`:             StatusUnknown,
		`{"status": "in_progress"}`: "in_progress",
		`{"status": "cancelled"}`:   "cancelled",
	}
	for raw, want := range cases {
		if got := Status(mustDecode(t, raw)); got != want {
			t.Fatalf("%s: got %q want %q", raw, got, want)
		}
	}
}

func TestJobIDRequired(t *testing.T) {
	for _, raw := range []string{`{}`, `{"id": ""}`, `{"id": 12}`} {
		_, err := JobID(mustDecode(t, raw), "OpenAI")
		if !apperr.HasCode(err, apperr.CodeMissingIdentifier) {
			t.Fatalf("%s: expected missing identifier, got %v", raw, err)
		}
	}
	id, err := JobID(mustDecode(t, `{"id": "resp_1"}`), "OpenAI")
	if err != nil || id != "resp_1" {
		t.Fatalf("got %q, %v", id, err)
	}
}

func TestDecodeRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{``, `{`, `[1,2]`, `"text"`, `null`} {
		if _, err := Decode([]byte(raw)); !apperr.HasCode(err, apperr.CodeDecodeFailed) {
			t.Fatalf("%q: expected decode failure, got %v", raw, err)
		}
	}
}
