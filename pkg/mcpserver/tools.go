package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fieldprobe/fieldprobe/pkg/inputvalidation"
)

// registerTools adds every fieldprobe tool to the MCP server.
func (s *Server) registerTools() {
	s.addListPayloadsTool()
	s.addClassifyFieldTool()
	s.addProbePageTool()
}

var categoryEnum = []string{"xss", "sqli", "special"}

// ═══════════════════════════════════════════════════════════════════════════
// list_payloads: browse the payload catalog
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addListPayloadsTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "list_payloads",
			Title: "List Test Payloads",
			Description: `Lists the payloads probe_page types into each field, WITHOUT loading any page.

USE THIS TOOL WHEN:
• The user asks what is tested or which categories exist
• You want to explain a finding by showing the payload that triggered it

EXAMPLE INPUTS:
• Everything: {}
• SQL injection only: {"category": "sqli"}

Returns: catalog version, count per category and every payload with its description.`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"category": map[string]any{
						"type":        "string",
						"description": "Only list payloads of this category. Leave empty for all.",
						"enum":        categoryEnum,
					},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "List Test Payloads",
			},
		},
		s.handleListPayloads,
	)
}

type listPayloadsArgs struct {
	Category string `json:"category"`
}

type payloadListing struct {
	CatalogVersion string                    `json:"catalog_version"`
	Total          int                       `json:"total"`
	ByCategory     map[string]int            `json:"by_category"`
	Payloads       []inputvalidation.Payload `json:"payloads"`
}

func (s *Server) handleListPayloads(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listPayloadsArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v. Expected optional 'category' (string).", err)), nil
	}

	payloads := inputvalidation.Catalog()
	if args.Category != "" {
		c, err := inputvalidation.ParseCategory(args.Category)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		payloads = inputvalidation.PayloadsFor(c)
	}

	listing := payloadListing{
		CatalogVersion: inputvalidation.CatalogVersion,
		Total:          len(payloads),
		ByCategory:     make(map[string]int),
		Payloads:       payloads,
	}
	for _, p := range payloads {
		listing.ByCategory[string(p.Category)]++
	}
	return jsonResult(listing)
}

// ═══════════════════════════════════════════════════════════════════════════
// classify_field: explain how a field would be judged
// ═══════════════════════════════════════════════════════════════════════════

func (s *Server) addClassifyFieldTool() {
	s.mcp.AddTool(
		&mcp.Tool{
			Name:  "classify_field",
			Title: "Classify Input Field",
			Description: `Derives the context of a field from its attributes and shows the verdict every payload
would get if the page accepted it unchanged. No page is loaded.

USE THIS TOOL WHEN:
• The user asks why a field was (or was not) reported for a category
• You want to predict which categories apply before running probe_page

The verdicts are a worst case: a page that sanitizes, encodes or rejects a payload
turns the corresponding verdict safe during a real run.

EXAMPLE INPUTS:
• A search box: {"name": "q"}
• A rich editor: {"tag": "div", "name": "body", "content_editable": true}
• A constrained code field: {"name": "zip", "pattern": "[0-9]{5}", "max_length": 5}`,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"tag": map[string]any{
						"type":        "string",
						"description": "Element tag: input, textarea or div for contenteditable.",
						"default":     "input",
					},
					"name": map[string]any{"type": "string", "description": "The name attribute."},
					"id":   map[string]any{"type": "string", "description": "The id attribute."},
					"type": map[string]any{
						"type":        "string",
						"description": "The type attribute of an input. Defaults to text.",
					},
					"max_length": map[string]any{
						"type":        "integer",
						"description": "The maxlength attribute; 0 or less means none.",
					},
					"pattern":          map[string]any{"type": "string", "description": "The pattern attribute."},
					"content_editable": map[string]any{"type": "boolean", "description": "The element is contenteditable."},
					"rich_text":        map[string]any{"type": "boolean", "description": "The element belongs to a known rich text editor."},
				},
			},
			Annotations: &mcp.ToolAnnotations{
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  boolPtr(false),
				Title:          "Classify Input Field",
			},
		},
		s.handleClassifyField,
	)
}

type classifyFieldArgs struct {
	Tag             string `json:"tag"`
	Name            string `json:"name"`
	ID              string `json:"id"`
	Type            string `json:"type"`
	MaxLength       int    `json:"max_length"`
	Pattern         string `json:"pattern"`
	ContentEditable bool   `json:"content_editable"`
	RichText        bool   `json:"rich_text"`
}

type payloadVerdict struct {
	Category    inputvalidation.Category `json:"category"`
	Description string                   `json:"description"`
	Payload     string                   `json:"payload"`
	Verdict     inputvalidation.Verdict  `json:"verdict"`
}

type fieldClassification struct {
	Field    string                       `json:"field"`
	Type     string                       `json:"type"`
	Context  inputvalidation.FieldContext `json:"context"`
	Verdicts []payloadVerdict             `json:"verdicts"`
}

func (s *Server) handleClassifyField(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args classifyFieldArgs
	if err := parseArgs(req, &args); err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if args.Tag == "" {
		args.Tag = "input"
	}

	el := inputvalidation.FieldElement{
		Tag:             args.Tag,
		Name:            args.Name,
		ID:              args.ID,
		Type:            args.Type,
		MaxLength:       args.MaxLength,
		Pattern:         args.Pattern,
		ContentEditable: args.ContentEditable,
		RichText:        args.RichText,
	}
	fc := inputvalidation.ClassifyField(el)

	out := fieldClassification{
		Field:   el.DisplayName(),
		Type:    el.DisplayType(),
		Context: fc,
	}
	for _, p := range inputvalidation.Catalog() {
		accepted := inputvalidation.Outcome{Payload: p.Value, Final: p.Value, Decoded: p.Value, Valid: true}
		out.Verdicts = append(out.Verdicts, payloadVerdict{
			Category:    p.Category,
			Description: p.Description,
			Payload:     p.Value,
			Verdict:     inputvalidation.Classify(p.Category, fc, accepted),
		})
	}
	return jsonResult(out)
}
