package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ironsheep/thai-invoice-ocr/internal/conditioning"
	"github.com/ironsheep/thai-invoice-ocr/internal/detection"
	"github.com/ironsheep/thai-invoice-ocr/internal/imaging"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/ocr"
	"github.com/ironsheep/thai-invoice-ocr/internal/store"
)

// errNoStore is returned by tools that need a store when none is configured.
var errNoStore = errors.New("no document store configured")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "invoice_scan").
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
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("Tool failed")
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Invoice processing
	case "invoice_scan":
		return s.handleInvoiceScan(ctx, args)
	case "invoice_parse_text":
		return s.handleInvoiceParseText(ctx, args)
	case "invoice_get":
		return s.handleInvoiceGet(ctx, args)
	case "invoice_list":
		return s.handleInvoiceList(ctx, args)

	// Image analysis
	case "image_estimate_skew":
		return s.handleEstimateSkew(args)
	case "image_text_regions":
		return s.handleTextRegions(ctx, args)
	case "ocr_engines":
		return ocr.Probe(s.ocrConfig), nil

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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Invoice Handlers ===

type invoiceScanArgs struct {
	Path        string `json:"path"`
	Save        bool   `json:"save"`
	IncludeText *bool  `json:"include_text"`
}

// scanResult is the invoice_scan payload.
type scanResult struct {
	Document *invoice.Document `json:"document"`
	Pages    int               `json:"pages"`
	Failed   int               `json:"failed_pages"`
	Saved    bool              `json:"saved"`
}

func (s *Server) handleInvoiceScan(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a invoiceScanArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	res, err := s.pipeline.ProcessFile(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	saved, err := s.save(ctx, res.Document, a.Save)
	if err != nil {
		return nil, err
	}

	out := &scanResult{Document: res.Document, Saved: saved}
	if res.Batch != nil {
		out.Pages = len(res.Batch.Pages)
		out.Failed = res.Batch.Failed
	}
	if a.IncludeText != nil && !*a.IncludeText {
		doc := *res.Document
		doc.RawText = ""
		out.Document = &doc
	}
	return out, nil
}

type invoiceParseTextArgs struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Save   bool   `json:"save"`
}

func (s *Server) handleInvoiceParseText(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a invoiceParseTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Source == "" {
		a.Source = "text"
	}

	doc := s.pipeline.ParseText(ctx, a.Source, a.Text)
	saved, err := s.save(ctx, doc, a.Save)
	if err != nil {
		return nil, err
	}
	return &scanResult{Document: doc, Saved: saved}, nil
}

func (s *Server) save(ctx context.Context, doc *invoice.Document, want bool) (bool, error) {
	if !want {
		return false, nil
	}
	if s.store == nil {
		return false, errNoStore
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

type invoiceGetArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleInvoiceGet(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	var a invoiceGetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, a.ID)
}

func (s *Server) handleInvoiceList(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	var a store.ListOptions
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.store.List(ctx, a)
}

// === Image Analysis Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) loadPage(path string) (imaging.PageImage, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return imaging.PageImage{}, err
	}
	return imaging.NewPage(img, imaging.Meta{DocumentID: filepath.Base(path)}), nil
}

func (s *Server) handleEstimateSkew(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	page, err := s.loadPage(a.Path)
	if err != nil {
		return nil, err
	}
	return s.corrector.Estimate(page.Gray()), nil
}

type textRegionsArgs struct {
	Path     string `json:"path"`
	OCR      bool   `json:"ocr"`
	Annotate bool   `json:"annotate"`
	MinArea  int    `json:"min_area"`
}

// textRegionsResult reports regions in the coordinates of the conditioned
// page, which may be rotated relative to the file.
type textRegionsResult struct {
	Regions     []detection.TextRegion        `json:"regions"`
	Count       int                           `json:"count"`
	Orientation detection.OrientationEstimate `json:"orientation"`
	Profile     conditioning.Profile          `json:"profile"`
	Texts       []ocr.RegionText              `json:"texts,omitempty"`
	Annotated   *imaging.EncodedImage         `json:"annotated,omitempty"`
}

func (s *Server) handleTextRegions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a textRegionsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	page, err := s.loadPage(a.Path)
	if err != nil {
		return nil, err
	}

	cond, err := s.conditioner.Condition(ctx, page)
	if err != nil {
		return nil, err
	}

	cfg := s.regions
	if a.MinArea > 0 {
		cfg.MinRegionArea = a.MinArea
	}
	regions := conditioning.DetectTextRegions(cond.Page, cfg)

	res := &textRegionsResult{
		Regions:     regions,
		Count:       len(regions),
		Orientation: cond.Orientation,
		Profile:     cond.Profile,
	}
	if res.Regions == nil {
		res.Regions = []detection.TextRegion{}
	}

	if a.OCR {
		engine := s.pipeline.Engine()
		if engine == nil {
			return nil, ocr.ErrRecognitionUnavailable
		}
		if res.Texts, err = ocr.ExtractRegions(ctx, engine, cond.Enhanced.Image, regions); err != nil {
			return nil, err
		}
	}
	if a.Annotate {
		annotated := imaging.Annotate(cond.Enhanced.Image, detection.Rects(regions), "#FF0000")
		if res.Annotated, err = imaging.Encode(annotated, 1.0); err != nil {
			return nil, err
		}
	}
	return res, nil
}
