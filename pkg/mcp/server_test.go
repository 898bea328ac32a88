package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alexcong/askpro-mcp/pkg/dispatch"
	"github.com/alexcong/askpro-mcp/pkg/prompts"
	"github.com/alexcong/askpro-mcp/pkg/provider"
	"github.com/alexcong/askpro-mcp/pkg/tools"
)

type echoSearch struct{}

func (echoSearch) Name() string { return "Search" }

func (echoSearch) Generate(_ context.Context, req provider.Request) (provider.Result, error) {
	return provider.Result{Text: "echo: " + req.Prompt}, nil
}

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func newTestServer() *Server {
	h := dispatch.NewHandler(dispatch.Config{
		Tools:   tools.New(tools.Config{Search: echoSearch{}}).Definitions(),
		Prompts: prompts.Catalog(),
	})
	return NewServer(h, ServerInfo{Name: "askpro-mcp-server", Version: "test"}, nil)
}

// run feeds input to a fresh server and returns the replies keyed by id.
func run(t *testing.T, input string) map[string]rpcReply {
	t.Helper()
	var out bytes.Buffer
	if err := newTestServer().Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	replies := make(map[string]rpcReply)
	sc := bufio.NewScanner(&out)
	for sc.Scan() {
		var r rpcReply
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad output line %q: %v", sc.Text(), err)
		}
		replies[string(r.ID)] = r
	}
	return replies
}

func TestInitializeAndPing(t *testing.T) {
	replies := run(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","id":"p","method":"ping"}
`)
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}

	var init initializeResult
	if err := json.Unmarshal(replies["1"].Result, &init); err != nil {
		t.Fatalf("decode initialize: %v", err)
	}
	if init.ProtocolVersion != "2024-11-05" || init.ServerInfo.Name != "askpro-mcp-server" {
		t.Fatalf("unexpected initialize result: %+v", init)
	}
	if _, ok := init.Capabilities["tools"]; !ok {
		t.Fatalf("tools capability missing: %+v", init.Capabilities)
	}
	if string(replies[`"p"`].Result) != "{}" {
		t.Fatalf("unexpected ping result: %s", replies[`"p"`].Result)
	}
}

func TestToolsListAndCall(t *testing.T) {
	replies := run(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}
{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"ask_search","arguments":{"prompt":"hi"}}}
{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"ask_search","arguments":{}}}
{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"nonexistent"}}
`)

	var list struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(replies["1"].Result, &list); err != nil {
		t.Fatalf("decode tools/list: %v", err)
	}
	if len(list.Tools) != 1 || list.Tools[0].Name != "ask_search" || list.Tools[0].InputSchema["type"] != "object" {
		t.Fatalf("unexpected tools: %+v", list.Tools)
	}

	var ok dispatch.Reply
	_ = json.Unmarshal(replies["2"].Result, &ok)
	if ok.IsError || ok.Text() != "echo: hi" {
		t.Fatalf("unexpected call result: %s", replies["2"].Result)
	}

	var invalid dispatch.Reply
	_ = json.Unmarshal(replies["3"].Result, &invalid)
	if !invalid.IsError || !strings.Contains(invalid.Text(), "prompt is required") {
		t.Fatalf("unexpected validation result: %s", replies["3"].Result)
	}

	var unknown dispatch.Reply
	_ = json.Unmarshal(replies["4"].Result, &unknown)
	if !unknown.IsError || !strings.Contains(unknown.Text(), "nonexistent") {
		t.Fatalf("unexpected unknown tool result: %s", replies["4"].Result)
	}
}

func TestPrompts(t *testing.T) {
	replies := run(t, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}
{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"fact_check","arguments":{"claim":"the moon is cheese"}}}
{"jsonrpc":"2.0","id":3,"method":"prompts/get","params":{"name":"fact_check"}}
`)

	var list struct {
		Prompts []prompts.Template `json:"prompts"`
	}
	if err := json.Unmarshal(replies["1"].Result, &list); err != nil {
		t.Fatalf("decode prompts/list: %v", err)
	}
	if len(list.Prompts) != 6 {
		t.Fatalf("expected 6 prompts, got %d", len(list.Prompts))
	}

	var got promptsGetResult
	if err := json.Unmarshal(replies["2"].Result, &got); err != nil {
		t.Fatalf("decode prompts/get: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" ||
		!strings.HasPrefix(got.Messages[0].Content.Text, "Use the ask_search tool") {
		t.Fatalf("unexpected prompt: %+v", got)
	}

	if e := replies["3"].Error; e == nil || e.Code != codeInvalidParams || !strings.Contains(e.Message, "claim") {
		t.Fatalf("expected invalid params error, got %+v", replies["3"])
	}
}

func TestProtocolErrors(t *testing.T) {
	replies := run(t, `{not json}
{"jsonrpc":"2.0","id":7,"method":"resources/list"}
{"jsonrpc":"2.0","id":8,"method":"tools/call","params":"oops"}
{"jsonrpc":"1.0","id":9,"method":"ping"}
`)

	if e := replies["null"].Error; e == nil || e.Code != codeParseError {
		t.Fatalf("expected parse error, got %+v", replies["null"])
	}
	if e := replies["7"].Error; e == nil || e.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", replies["7"])
	}
	if e := replies["8"].Error; e == nil || e.Code != codeInvalidParams {
		t.Fatalf("expected invalid params, got %+v", replies["8"])
	}
	if e := replies["9"].Error; e == nil || e.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", replies["9"])
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- newTestServer().Serve(ctx, pr, io.Discard)
	}()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("serve did not return after cancel")
	}
}
