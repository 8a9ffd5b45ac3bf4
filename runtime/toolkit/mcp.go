package toolkit

import (
	"context"
	"encoding/json"
	"fmt"

	googleschema "github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ExportMCP registers every tool in the dispatcher's registry on srv. Each
// MCP call is routed through Dispatcher.Call so the envelope, validation and
// deadline semantics are identical for every transport.
func ExportMCP(srv *mcp.Server, d *Dispatcher) error {
	for _, name := range d.reg.Names() {
		desc, _ := d.reg.Describe(name)

		var input googleschema.Schema
		if err := json.Unmarshal(desc.ArgsSchema, &input); err != nil {
			return fmt.Errorf("tool %q: argument schema: %w", name, err)
		}

		openWorld := desc.Annotations.OpenWorld
		tool := &mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: &input,
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   desc.Annotations.ReadOnly,
				IdempotentHint: desc.Annotations.Idempotent,
				OpenWorldHint:  &openWorld,
			},
		}
		srv.AddTool(tool, mcpHandler(d, desc.Name))
	}
	return nil
}

// mcpHandler adapts one registered tool to the SDK's raw handler shape. The
// envelope travels as the structured content and, serialized, as the text
// content for hosts that only render text.
func mcpHandler(d *Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args json.RawMessage
		if req != nil && req.Params != nil {
			args = req.Params.Arguments
		}
		env := d.Call(ctx, name, args)

		text, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("marshal envelope: %w", err)
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
			StructuredContent: env,
			IsError:           !env.OK,
		}, nil
	}
}
