package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/sharp-frames/internal/app"
	"github.com/ironsheep/sharp-frames/internal/logger"
	"github.com/ironsheep/sharp-frames/internal/scoring"
	"github.com/ironsheep/sharp-frames/internal/selection"
	"github.com/ironsheep/sharp-frames/internal/sparkline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "frames_select", "images_score").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn(ctx, "tool failed",
			logger.String("tool", params.Name),
			logger.Error(err),
		)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
// A panicking handler is reported as a tool error so the server keeps serving.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "tool panicked",
				logger.String("tool", name),
				logger.Any("panic", r),
			)
			result, err = nil, fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()

	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "frames_select":
		return s.handleFramesSelect(args)
	case "images_score":
		return s.handleImagesScore(ctx, args)
	case "directory_select":
		return s.handleDirectorySelect(ctx, args)
	case "sparkline_render":
		return s.handleSparklineRender(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Selection Handlers ===

type framesSelectArgs struct {
	Images      []selection.ScoredImage `json:"images"`
	TargetCount int                     `json:"target_count"`
	selection.Options
}

func (s *Server) handleFramesSelect(args json.RawMessage) (interface{}, error) {
	var a framesSelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	table, err := selection.NewScoreTable(a.Images)
	if err != nil {
		return nil, err
	}
	res, err := selection.Select(table, a.TargetCount, a.Options)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSelection(string(res.Strategy), len(res.Selected), res.Candidates, res.Split)
	return res, nil
}

type imagesScoreArgs struct {
	Paths []string `json:"paths"`
}

type imagesScoreResult struct {
	Images []selection.ScoredImage `json:"images"`
	Cached int                     `json:"cached"`
}

func (s *Server) handleImagesScore(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imagesScoreArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	table, err := scoring.ScoreAll(ctx, a.Paths, s.cache,
		scoring.WithWorkers(s.cfg.Workers),
		scoring.WithLogger(s.logger.Named("scoring")),
		scoring.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, err
	}
	return imagesScoreResult{Images: table.Images(), Cached: s.cache.Len()}, nil
}

type directorySelectArgs struct {
	Directory        string   `json:"directory"`
	TargetCount      int      `json:"target_count"`
	TargetPercentage float64  `json:"target_percentage"`
	Extensions       []string `json:"extensions"`
	selection.Options
}

type directorySelectResult struct {
	*selection.Result
	Discarded []string `json:"discarded"`
	Report    string   `json:"report"`
}

// handleDirectorySelect scores a directory and reports the selection without
// touching any file.
func (s *Server) handleDirectorySelect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a directorySelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := os.Stat(a.Directory)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", a.Directory)
	}

	cfg := *s.cfg
	cfg.Progress = false
	cfg.SparklineColor = false
	cfg.MetricsFile = ""
	if len(a.Extensions) > 0 {
		cfg.Extensions = a.Extensions
	}

	var report bytes.Buffer
	svc := app.New(&cfg,
		app.WithScorer(s.cache),
		app.WithMetrics(s.metrics),
		app.WithReport(&report),
		app.WithLogger(s.logger.Named("app")),
	)
	out, err := svc.Run(ctx, app.Request{
		Input:            a.Directory,
		TargetCount:      a.TargetCount,
		TargetPercentage: a.TargetPercentage,
		Selection:        a.Options,
		Pretend:          true,
	})
	if err != nil {
		return nil, err
	}

	kept := out.Result.Set()
	discarded := []string{}
	for _, p := range out.Candidates {
		if _, ok := kept[p]; !ok {
			discarded = append(discarded, p)
		}
	}
	return directorySelectResult{Result: out.Result, Discarded: discarded, Report: report.String()}, nil
}

type sparklineRenderArgs struct {
	Values []float64 `json:"values"`
	Bins   int       `json:"bins"`
	Title  string    `json:"title"`
}

type sparklineRenderResult struct {
	Sparkline string `json:"sparkline"`
	Levels    []int  `json:"levels"`
	Text      string `json:"text,omitempty"`
}

func (s *Server) handleSparklineRender(args json.RawMessage) (interface{}, error) {
	var a sparklineRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Bins == 0 {
		a.Bins = s.cfg.SparklineBins
	}
	if a.Bins < 0 || a.Bins > sparkline.MaxBins {
		return nil, fmt.Errorf("bins must be between 1 and %d, got %d", sparkline.MaxBins, a.Bins)
	}
	res := sparklineRenderResult{
		Sparkline: sparkline.Render(a.Values, a.Bins),
		Levels:    sparkline.Levels(a.Values, a.Bins),
	}
	if a.Title != "" {
		res.Text = sparkline.Format(a.Title, a.Values, a.Bins)
	}
	return res, nil
}
