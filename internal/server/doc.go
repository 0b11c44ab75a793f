// Package server implements the MCP (Model Context Protocol) server for
// invoice recognition tools.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Stdout carries protocol messages only. Logging goes to the injected
// logrus entry, which callers point at stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Invoice processing:
//   - invoice_scan: OCR a PDF or image and extract the invoice record
//   - invoice_parse_text: Extract a record from already recognized text
//   - invoice_get, invoice_list: Read stored documents (store configured only)
//
// Image analysis:
//   - image_estimate_skew: Skew estimate with per-sampler angles
//   - image_text_regions: Text regions of the conditioned page, optionally
//     recognized or drawn
//   - ocr_engines: Engine availability on this host
//
// # Image Caching
//
// Images opened by the analysis tools are cached by path for the lifetime
// of the server process. invoice_scan always reads the file afresh.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
package server
