// Package server implements the MCP (Model Context Protocol) server for frame
// selection tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - frames_select: Select from caller-supplied scores
//   - images_score: Score image files
//   - directory_select: Score a directory and report the selection
//   - sparkline_render: Chart a series
//
// # Score Caching
//
// Image scores are cached by path for the lifetime of the server and
// recomputed when a file's size or modification time changes.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(cfg)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
