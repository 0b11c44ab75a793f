package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
	"github.com/ironsheep/thai-invoice-ocr/internal/store"
)

// createTestImageFile writes a white page with a few dark bars and returns
// its path.
func createTestImageFile(t *testing.T, width, height int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for row := 0; row < 4; row++ {
		y0 := 30 + row*40
		for y := y0; y < y0+10 && y < height; y++ {
			for x := 20; x < width-20; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "invoice.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into v.
func callTool(t *testing.T, s *Server, name string, args interface{}, v interface{}) *MCPResponse {
	t.Helper()

	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}
	params, _ := json.Marshal(ToolCallParams{Name: name, Arguments: raw})
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || v == nil {
		return resp
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return resp
}

type decodedScan struct {
	Document *invoice.Document `json:"document"`
	Pages    int               `json:"pages"`
	Failed   int               `json:"failed_pages"`
	Saved    bool              `json:"saved"`
}

func TestInvoiceScan(t *testing.T) {
	st, err := store.OpenFiles(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFiles: %v", err)
	}
	s := newTestServer(t, &fakeEngine{text: scenarioText}, st)
	path := createTestImageFile(t, 200, 200)

	var got decodedScan
	resp := callTool(t, s, "invoice_scan", map[string]interface{}{"path": path, "save": true}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}

	if got.Pages != 1 || got.Failed != 0 {
		t.Errorf("pages: got %d/%d failed", got.Pages, got.Failed)
	}
	if !got.Saved {
		t.Error("document not saved")
	}
	rec := got.Document.Record
	if rec.InvoiceNumber != "CT68-000612" {
		t.Errorf("InvoiceNumber: got %q", rec.InvoiceNumber)
	}
	if rec.TotalAmount != "5830.00" {
		t.Errorf("TotalAmount: got %q", rec.TotalAmount)
	}
	if got.Document.Source != "invoice.png" {
		t.Errorf("Source: got %q", got.Document.Source)
	}
	if got.Document.RawText == "" {
		t.Error("RawText should be included by default")
	}

	stored, err := st.Get(context.Background(), got.Document.ID)
	if err != nil {
		t.Fatalf("stored document: %v", err)
	}
	if stored.Record.InvoiceNumber != "CT68-000612" {
		t.Errorf("stored InvoiceNumber: got %q", stored.Record.InvoiceNumber)
	}

	var listed []store.Summary
	callTool(t, s, "invoice_list", map[string]interface{}{}, &listed)
	if len(listed) != 1 || listed[0].ID != got.Document.ID {
		t.Errorf("invoice_list: got %+v", listed)
	}

	var fetched invoice.Document
	callTool(t, s, "invoice_get", map[string]interface{}{"id": got.Document.ID}, &fetched)
	if fetched.ID != got.Document.ID {
		t.Errorf("invoice_get: got id %q", fetched.ID)
	}
}

func TestInvoiceScan_OmitText(t *testing.T) {
	s := newTestServer(t, &fakeEngine{text: scenarioText}, nil)
	path := createTestImageFile(t, 120, 120)

	var got decodedScan
	callTool(t, s, "invoice_scan", map[string]interface{}{"path": path, "include_text": false}, &got)
	if got.Document == nil || got.Document.RawText != "" {
		t.Errorf("RawText should be omitted, got %+v", got.Document)
	}
}

func TestInvoiceScan_Errors(t *testing.T) {
	s := newTestServer(t, &fakeEngine{text: scenarioText}, nil)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"missing file", map[string]interface{}{"path": "/nonexistent/invoice.png"}},
		{"unsupported", map[string]interface{}{"path": "/tmp/invoice.docx"}},
		{"save without store", map[string]interface{}{"path": createTestImageFile(t, 80, 80), "save": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, "invoice_scan", tt.args, nil)
			if resp.Error == nil {
				t.Fatal("Expected error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestInvoiceScan_EngineFailure(t *testing.T) {
	s := newTestServer(t, &fakeEngine{err: errors.New("engine crashed")}, nil)
	resp := callTool(t, s, "invoice_scan", map[string]interface{}{"path": createTestImageFile(t, 80, 80)}, nil)
	if resp.Error == nil {
		t.Fatal("Expected error response")
	}
	if !strings.Contains(resp.Error.Data.(string), "no text recognized") {
		t.Errorf("Data: got %v", resp.Error.Data)
	}
}

func TestInvoiceParseText(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)

	var got decodedScan
	callTool(t, s, "invoice_parse_text", map[string]interface{}{"text": scenarioText}, &got)
	if got.Document == nil {
		t.Fatal("no document")
	}
	if got.Document.Record.TaxID != "0135563000952" {
		t.Errorf("TaxID: got %q", got.Document.Record.TaxID)
	}
	if got.Document.Source != "text" {
		t.Errorf("Source: got %q", got.Document.Source)
	}
	if got.Saved {
		t.Error("Saved should be false")
	}
}

func TestStoreToolsWithoutStore(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)
	for _, name := range []string{"invoice_get", "invoice_list"} {
		resp := callTool(t, s, name, map[string]interface{}{"id": "x"}, nil)
		if resp.Error == nil {
			t.Errorf("%s: expected error without store", name)
		}
	}
}

func TestEstimateSkew(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)

	var got map[string]interface{}
	resp := callTool(t, s, "image_estimate_skew", map[string]interface{}{"path": createTestImageFile(t, 300, 200)}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	for _, key := range []string{"angle", "status", "line_angles", "morph_angles"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing %s in %v", key, got)
		}
	}
}

func TestTextRegions(t *testing.T) {
	s := newTestServer(t, &fakeEngine{text: "ยอดเงินสุทธิ"}, nil)
	path := createTestImageFile(t, 300, 200)

	var got struct {
		Regions   []map[string]interface{} `json:"regions"`
		Count     int                      `json:"count"`
		Profile   string                   `json:"profile"`
		Texts     []map[string]interface{} `json:"texts"`
		Annotated *struct {
			Width    int    `json:"width"`
			MimeType string `json:"mime_type"`
		} `json:"annotated"`
	}
	resp := callTool(t, s, "image_text_regions", map[string]interface{}{"path": path, "ocr": true, "annotate": true}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if got.Count != len(got.Regions) {
		t.Errorf("count %d does not match %d regions", got.Count, len(got.Regions))
	}
	if len(got.Texts) != got.Count {
		t.Errorf("texts: got %d, want %d", len(got.Texts), got.Count)
	}
	if got.Profile != "gentle" {
		t.Errorf("Profile: got %q", got.Profile)
	}
	if got.Annotated == nil || got.Annotated.Width == 0 || got.Annotated.MimeType != "image/png" {
		t.Errorf("Annotated: got %+v", got.Annotated)
	}
}

func TestTextRegions_NonExistentFile(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)
	resp := callTool(t, s, "image_text_regions", map[string]interface{}{"path": "/nonexistent/page.png"}, nil)
	if resp.Error == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestOCREngines(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)

	var got []map[string]interface{}
	resp := callTool(t, s, "ocr_engines", map[string]interface{}{}, &got)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	if len(got) != 3 {
		t.Fatalf("engines: got %d, want 3", len(got))
	}
	if got[0]["kind"] != "tesseract" {
		t.Errorf("first engine: got %v", got[0]["kind"])
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)
	resp := callTool(t, s, "image_crop", map[string]interface{}{}, nil)
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("Expected tool error, got %+v", resp.Error)
	}
	if !strings.Contains(resp.Error.Data.(string), "unknown tool") {
		t.Errorf("Data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t, &fakeEngine{}, nil)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("Expected -32602, got %+v", resp.Error)
	}
}
