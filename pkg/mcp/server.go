// Package mcp serves the Model Context Protocol over newline-delimited
// JSON-RPC 2.0 on a pair of streams (normally stdin and stdout).
//
// Requests are handled concurrently; responses are written whole, one per
// line, in completion order.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/alexcong/askpro-mcp/pkg/dispatch"
	"github.com/alexcong/askpro-mcp/pkg/logger"
)

var nullID = json.RawMessage("null")

// Server is an MCP server bound to a dispatch.Handler.
type Server struct {
	handler *dispatch.Handler
	info    ServerInfo
	logger  *slog.Logger

	mu  sync.Mutex // guards out
	out io.Writer
}

// NewServer creates a Server. A nil logger selects the package default.
func NewServer(h *dispatch.Handler, info ServerInfo, l *slog.Logger) *Server {
	if l == nil {
		l = logger.Named("mcp")
	}
	return &Server{handler: h, info: info, logger: l}
}

// Serve reads requests from in and writes responses to out until in is
// exhausted or ctx is cancelled. In-flight requests finish before Serve
// returns. A clean end of input returns nil.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		r := bufio.NewReader(in)
		for {
			line, err := r.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-lines:
			s.handleLine(ctx, line, &wg)
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				s.logger.Info("input closed")
				return nil
			}
			return fmt.Errorf("mcp: read: %w", err)
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte, wg *sync.WaitGroup) {
	line = bytes.TrimSpace(line)
	if line[0] == '[' {
		s.writeError(nullID, codeInvalidRequest, "batch requests are not supported")
		return
	}

	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.writeError(nullID, codeParseError, "parse error: "+err.Error())
		return
	}
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		if !req.isNotification() {
			s.writeError(req.ID, codeInvalidRequest, "invalid request")
		}
		return
	}

	if req.isNotification() {
		if req.Method == methodInitialized {
			s.logger.Info("client initialized")
		} else {
			s.logger.Debug("notification ignored", "method", req.Method)
		}
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, rerr := s.dispatch(ctx, req)
		if rerr != nil {
			s.write(response{JSONRPC: jsonrpcVersion, ID: req.ID, Error: rerr})
			return
		}
		s.write(response{JSONRPC: jsonrpcVersion, ID: req.ID, Result: result})
	}()
}

func (s *Server) dispatch(ctx context.Context, req request) (result any, rerr *rpcError) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("request panicked", "method", req.Method, "panic", r)
			result, rerr = nil, &rpcError{Code: codeInternalError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	s.logger.Debug("request received", "method", req.Method)

	switch req.Method {
	case methodInitialize:
		var p initializeParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		version := p.ProtocolVersion
		if version == "" {
			version = DefaultProtocolVersion
		}
		return initializeResult{
			ProtocolVersion: version,
			Capabilities: map[string]any{
				"tools":   map[string]any{"listChanged": false},
				"prompts": map[string]any{"listChanged": false},
			},
			ServerInfo: s.info,
		}, nil

	case methodPing:
		return struct{}{}, nil

	case methodToolsList:
		return toolsListResult{Tools: s.handler.Tools()}, nil

	case methodToolsCall:
		var p toolsCallParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, &rpcError{Code: codeInvalidParams, Message: "tools/call params.name is required"}
		}
		return s.handler.CallTool(ctx, name, p.Arguments), nil

	case methodPromptsList:
		return promptsListResult{Prompts: s.handler.Prompts()}, nil

	case methodPromptsGet:
		var p promptsGetParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, err
		}
		reply := s.handler.GetPrompt(ctx, p.Name, p.Arguments)
		if reply.IsError {
			return nil, &rpcError{Code: codeInvalidParams, Message: reply.Text()}
		}
		return promptsGetResult{
			Description: s.promptDescription(p.Name),
			Messages: []promptMessage{{
				Role:    "user",
				Content: promptMsgValue{Type: "text", Text: reply.Text()},
			}},
		}, nil

	default:
		return nil, &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) promptDescription(name string) string {
	for _, tpl := range s.handler.Prompts() {
		if tpl.Name == name {
			return tpl.Description
		}
	}
	return "Prompt for " + name
}

func decodeParams(raw json.RawMessage, v any) *rpcError {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

func (s *Server) writeError(id json.RawMessage, code int, msg string) {
	s.write(response{JSONRPC: jsonrpcVersion, ID: id, Error: &rpcError{Code: code, Message: msg}})
}

func (s *Server) write(resp response) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode response failed", "error", err)
		b, _ = json.Marshal(response{
			JSONRPC: jsonrpcVersion,
			ID:      resp.ID,
			Error:   &rpcError{Code: codeInternalError, Message: "failed to encode response"},
		})
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(b); err != nil {
		s.logger.Error("write response failed", "error", err)
	}
}
