package toolschema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/nexusdaemon/nexus/internal/common/logger"
	"github.com/nexusdaemon/nexus/internal/registry"
)

// BuildMCPServer wires every registry command as an MCP tool, so an MCP
// client (Claude Desktop, Cursor, an agent SDK) can call Nexus commands the
// same way nexusctl or the daemon would.
func BuildMCPServer(r *registry.Registry, log *logger.Logger) *server.MCPServer {
	s := server.NewMCPServer("nexus", "1.0.0", server.WithToolCapabilities(false))

	for _, cmd := range r.List() {
		s.AddTool(toolFor(cmd), handlerFor(r, cmd, log))
	}
	log.Info("registered MCP tools", zap.Int("count", len(r.List())))
	return s
}

// toolFor translates one registry.Command into an mcp.Tool, mapping each
// Param to the matching mcp.WithXxx option by its declared type.
func toolFor(cmd registry.Command) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(cmd.Description)}
	for _, p := range cmd.Params {
		propOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			propOpts = append(propOpts, mcp.Required())
		}
		if len(p.Enum) > 0 {
			propOpts = append(propOpts, mcp.Enum(p.Enum...))
		}
		switch p.Type {
		case "integer", "number":
			if p.Default != nil {
				if d, ok := toFloat(p.Default); ok {
					propOpts = append(propOpts, mcp.DefaultNumber(d))
				}
			}
			opts = append(opts, mcp.WithNumber(p.Name, propOpts...))
		case "boolean":
			if d, ok := p.Default.(bool); ok {
				propOpts = append(propOpts, mcp.DefaultBool(d))
			}
			opts = append(opts, mcp.WithBoolean(p.Name, propOpts...))
		default:
			if d, ok := p.Default.(string); ok {
				propOpts = append(propOpts, mcp.DefaultString(d))
			}
			opts = append(opts, mcp.WithString(p.Name, propOpts...))
		}
	}
	return mcp.NewTool(cmd.Name, opts...)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// handlerFor builds the MCP call handler for cmd: pull its declared
// arguments out of the MCP request, execute through the registry, and
// render the result as text for the calling model.
func handlerFor(r *registry.Registry, cmd registry.Command, log *logger.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		kwargs := make(map[string]any, len(args))
		for _, p := range cmd.Params {
			if v, ok := args[p.Name]; ok {
				kwargs[p.Name] = v
			}
		}

		result, err := r.Execute(cmd.Name, kwargs)
		if err != nil {
			log.Error("mcp tool call failed", zap.String("command", cmd.Name), zap.Error(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		formatted, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(formatted)), nil
	}
}
