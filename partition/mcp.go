package partition

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/ingestkit/filetype"
	"github.com/hazyhaar/ingestkit/kit"
)

// RegisterMCP registers partition tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerPartitionTool(srv)
	p.registerDetectTool(srv)
	p.registerFileTypesTool(srv)
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

// --- partition ---

type partitionReq struct {
	Path string `json:"path"`
}

func (p *Pipeline) registerPartitionTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ingest_partition",
		Description: "Partition a document file (docx, odt, pdf, md, txt, html, csv, eml, images) into structured elements.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to partition"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*partitionReq)
		return p.Partition(ctx, r.Path)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r partitionReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- detect ---

type detectReq struct {
	Path string `json:"path"`
}

func (p *Pipeline) registerDetectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ingest_detect",
		Description: "Classify a file by extension and report its file type, MIME type and partitioner.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to classify"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*detectReq)
		ft, err := p.Detect(r.Path)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"name":          ft.Name(),
			"mime_type":     ft.MimeType(),
			"partitionable": ft.IsPartitionable(),
		}
		if s := ft.PartitionerShortname(); s != "" {
			out["shortname"] = s
		}
		return out, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r detectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- filetypes ---

func (p *Pipeline) registerFileTypesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ingest_filetypes",
		Description: "List every registered file type and whether it can be partitioned.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		types := filetype.All()
		out := make([]map[string]any, 0, len(types))
		for _, ft := range types {
			out = append(out, map[string]any{
				"name":          ft.Name(),
				"mime_type":     ft.MimeType(),
				"extensions":    ft.Extensions(),
				"partitionable": ft.IsPartitionable(),
			})
		}
		return map[string]any{"filetypes": out}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
