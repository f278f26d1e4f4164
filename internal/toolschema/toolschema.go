// Package toolschema turns the command registry into tool descriptions an
// LLM can consume: OpenAI-style function schemas for direct tool-calling
// integrations, and a markdown reference for humans, mirroring
// tools_schema.py's generate_schemas/generate_markdown.
package toolschema

import (
	"fmt"
	"strings"

	"github.com/nexusdaemon/nexus/internal/registry"
)

// ParamSchema is one property of a tool's JSON Schema "properties" object.
type ParamSchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Parameters is the JSON Schema "parameters" object of a tool schema.
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]ParamSchema `json:"properties"`
	Required   []string               `json:"required"`
}

// Annotations mirrors the MCP/OpenAI tool-hint triplet.
type Annotations struct {
	ReadOnlyHint    bool `json:"readOnlyHint"`
	DestructiveHint bool `json:"destructiveHint"`
	IdempotentHint  bool `json:"idempotentHint"`
}

// Schema is one tool's complete OpenAI-style function schema.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  Parameters  `json:"parameters"`
	Annotations Annotations `json:"annotations"`
}

// jsonSchemaType maps a registry.Param's Go-ish type name to its JSON
// Schema equivalent.
func jsonSchemaType(t string) string {
	switch t {
	case "integer", "number", "boolean", "array", "object":
		return t
	default:
		return "string"
	}
}

// GenerateSchemas builds one Schema per command in the registry, in
// registration order.
func GenerateSchemas(r *registry.Registry) []Schema {
	commands := r.List()
	schemas := make([]Schema, 0, len(commands))
	for _, cmd := range commands {
		props := make(map[string]ParamSchema, len(cmd.Params))
		var required []string
		for _, p := range cmd.Params {
			props[p.Name] = ParamSchema{
				Type: jsonSchemaType(p.Type), Description: p.Description,
				Default: p.Default, Enum: p.Enum,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		schemas = append(schemas, Schema{
			Name: cmd.Name, Description: cmd.Description,
			Parameters: Parameters{Type: "object", Properties: props, Required: required},
			Annotations: Annotations{
				ReadOnlyHint: cmd.Annotations.ReadOnly, DestructiveHint: cmd.Annotations.Destructive,
				IdempotentHint: cmd.Annotations.Idempotent,
			},
		})
	}
	return schemas
}

// GenerateMarkdown renders a human/LLM-readable reference document grouping
// commands by category, in the order categories first appear in the
// registry.
func GenerateMarkdown(r *registry.Registry) string {
	commands := r.List()
	var categories []string
	seen := map[string]bool{}
	byCategory := map[string][]registry.Command{}
	for _, cmd := range commands {
		if !seen[cmd.Category] {
			seen[cmd.Category] = true
			categories = append(categories, cmd.Category)
		}
		byCategory[cmd.Category] = append(byCategory[cmd.Category], cmd)
	}

	var b strings.Builder
	b.WriteString("# Nexus Tool Reference\n\n")
	fmt.Fprintf(&b, "Nexus gives AI agents eyes and hands on a Windows desktop. %d tools across %d categories.\n", len(commands), len(categories))
	b.WriteString("Call via the one-shot CLI (`nexusctl <command>`), the persistent daemon, or the MCP server (`nexus-mcp`).\n\n")

	for _, category := range categories {
		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, cmd := range byCategory[category] {
			fmt.Fprintf(&b, "### `%s`\n\n", cmd.Name)
			b.WriteString(cmd.Description + "\n\n")
			for _, p := range cmd.Params {
				req := ""
				if p.Required {
					req = " **(required)**"
				}
				line := fmt.Sprintf("- `%s` (%s)%s", p.Name, jsonSchemaType(p.Type), req)
				if p.Description != "" {
					line += " — " + p.Description
				}
				if len(p.Enum) > 0 {
					line += " Choices: " + "`" + strings.Join(p.Enum, "`, `") + "`."
				}
				if p.Default != nil {
					line += fmt.Sprintf(" Default: `%v`.", p.Default)
				}
				b.WriteString(line + "\n")
			}
			if len(cmd.Params) > 0 {
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}
