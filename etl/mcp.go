package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/exametl/kit"
	"github.com/hazyhaar/exametl/pathguard"
)

// RegisterMCP registers the exametl tools on an MCP server.
func (r *Runner) RegisterMCP(srv *mcp.Server) {
	r.registerExtractTool(srv)
	r.registerSubjectsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type extractReq struct {
	Path      string `json:"path"`
	Subject   string `json:"subject,omitempty"`
	OutputCSV string `json:"output_csv,omitempty"`
	NoCache   bool   `json:"no_cache,omitempty"`
}

func (r *Runner) extractEndpoint() kit.Endpoint {
	ep := func(ctx context.Context, req any) (any, error) {
		x := req.(*extractReq)
		if err := r.guard(x); err != nil {
			return nil, err
		}
		return r.ProcessFile(ctx, x.Path, Options{
			Subject:   x.Subject,
			OutputCSV: x.OutputCSV,
			NoCache:   x.NoCache,
		})
	}
	return kit.Logging(r.logger, "extract")(ep)
}

func (r *Runner) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "exametl_extract",
		Description: "Extract the questions of an exam paper (PDF or form-feed text), tag them and write the CSV and reports.",
		InputSchema: inputSchema(map[string]any{
			"path":       map[string]any{"type": "string", "description": "Paper file path"},
			"subject":    map[string]any{"type": "string", "description": "Subject id, or auto to detect"},
			"output_csv": map[string]any{"type": "string", "description": "CSV output path (default from config)"},
			"no_cache":   map[string]any{"type": "boolean", "description": "Bypass the recognition cache"},
		}, []string{"path"}),
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var x extractReq
		if err := json.Unmarshal(req.Params.Arguments, &x); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &x}, nil
	}

	kit.RegisterMCPTool(srv, tool, r.extractEndpoint(), decode)
}

// ErrInvalidRequest marks requests rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid request")

// guard validates a remote extract request and confines its paths: the
// input under ServeRoot when configured, the CSV always under OutputDir.
func (r *Runner) guard(x *extractReq) error {
	if x.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	if x.Subject != "" && x.Subject != "auto" {
		if err := pathguard.ValidateIdentifier(x.Subject); err != nil {
			return fmt.Errorf("%w: subject: %v", ErrInvalidRequest, err)
		}
	}
	if r.cfg.ServeRoot != "" {
		p, err := pathguard.SafePath(r.cfg.ServeRoot, x.Path)
		if err != nil {
			return err
		}
		x.Path = p
	}
	if x.OutputCSV != "" {
		p, err := pathguard.SafePath(r.cfg.OutputDir, x.OutputCSV)
		if err != nil {
			return err
		}
		x.OutputCSV = p
	}
	return nil
}

type subjectInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tags int    `json:"tags"`
}

func (r *Runner) subjectsEndpoint() kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		var out []subjectInfo
		for _, p := range r.Subjects() {
			out = append(out, subjectInfo{ID: p.ID, Name: p.Name, Tags: len(p.Tags)})
		}
		return map[string]any{"subjects": out}, nil
	}
}

func (r *Runner) registerSubjectsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "exametl_subjects",
		Description: "List the subject profiles available for parsing and tagging.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	decode := func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}
	kit.RegisterMCPTool(srv, tool, r.subjectsEndpoint(), decode)
}
