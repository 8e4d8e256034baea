package server

import "github.com/ironsheep/sharp-frames/internal/sparkline"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// selectionProperties describes the selection.Options fields shared by the
// selection tools.
func selectionProperties() map[string]interface{} {
	return map[string]interface{}{
		"group_count": map[string]interface{}{
			"type":        "integer",
			"description": "Number of sequence windows. Omit to derive it from scalar. Values above the candidate count are clamped.",
		},
		"scalar": map[string]interface{}{
			"type":        "integer",
			"description": "Group coarsening: groups = target / 2^(scalar-1). Default 1",
			"default":     1,
		},
		"two_pass": map[string]interface{}{
			"type":        "boolean",
			"description": "Reconcile a second pass over half-window shifted groups",
		},
		"force_grouped": map[string]interface{}{
			"type":        "boolean",
			"description": "Group even when fewer than 2 candidates exist per retained image",
		},
		"force_ungrouped": map[string]interface{}{
			"type":        "boolean",
			"description": "Always take the globally sharpest images",
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "frames_select",
			Description: "Select the sharpest target_count images from a scored sequence while keeping them spread along it. Returns the selected images in sequence order plus the strategy, group layout and any warnings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"images": map[string]interface{}{
						"type":        "array",
						"description": "Scored candidates in sequence order",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"id":    map[string]interface{}{"type": "string"},
								"score": map[string]interface{}{"type": "number"},
							},
							"required": []string{"id", "score"},
						},
					},
					"target_count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of images to retain (1..len(images))",
					},
				}, selectionProperties()),
				"required": []string{"images", "target_count"},
			},
		},
		{
			Name:        "images_score",
			Description: "Compute the sharpness of image files (variance of the Laplacian by default). Scores are cached until a file changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths to image files, in sequence order",
						"items":       map[string]interface{}{"type": "string"},
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "directory_select",
			Description: "Score every image in a directory and report which ones a selection would retain. Files are never modified.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"directory": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a directory of frames, ordered by file name",
					},
					"target_count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of images to retain. Set this or target_percentage",
					},
					"target_percentage": map[string]interface{}{
						"type":        "number",
						"description": "Percentage of images to retain, in (0, 100]",
					},
					"extensions": map[string]interface{}{
						"type":        "array",
						"description": "File extensions to consider. Default from configuration (.jpg)",
						"items":       map[string]interface{}{"type": "string"},
					},
				}, selectionProperties()),
				"required": []string{"directory"},
			},
		},
		{
			Name:        "sparkline_render",
			Description: "Render a series of numbers as a one-line block-character chart of fixed width.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"values": map[string]interface{}{
						"type":        "array",
						"description": "Series to chart",
						"items":       map[string]interface{}{"type": "number"},
					},
					"bins": map[string]interface{}{
						"type":        "integer",
						"description": "Chart width in characters. Default 100",
						"default":     100,
						"minimum":     1,
						"maximum":     sparkline.MaxBins,
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "Optional title; adds a formatted text block to the result",
					},
				},
				"required": []string{"values"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
