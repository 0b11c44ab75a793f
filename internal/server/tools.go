package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetToolDefinitions returns the available tools. The store tools are
// included only when withStore is true.
func GetToolDefinitions(withStore bool) []Tool {
	tools := []Tool{
		// Invoice processing
		{
			Name:        "invoice_scan",
			Description: "Run OCR on a Thai tax invoice (PDF or image) and return the extracted record with confidence and validation report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the PDF or image file"),
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Persist the document to the configured store. Default false",
						"default":     false,
					},
					"include_text": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the raw recognized text in the result. Default true",
						"default":     true,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "invoice_parse_text",
			Description: "Extract invoice fields from text that was already recognized, without running OCR.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Recognized invoice text, Thai and/or English",
					},
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Optional source name recorded on the document",
					},
					"save": map[string]interface{}{
						"type":        "boolean",
						"description": "Persist the document to the configured store. Default false",
						"default":     false,
					},
				},
				"required": []string{"text"},
			},
		},

		// Image analysis
		{
			Name:        "image_estimate_skew",
			Description: "Estimate the skew angle of a scanned page from its ruling lines and text blobs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_text_regions",
			Description: "Condition a page and find text-like regions. Optionally recognize the text of each region or return an annotated image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
					"ocr": map[string]interface{}{
						"type":        "boolean",
						"description": "Recognize the text inside every region. Default false",
						"default":     false,
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the page with region boxes drawn as base64 PNG. Default false",
						"default":     false,
					},
					"min_area": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum region area in pixels. Default from configuration",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "ocr_engines",
			Description: "List the OCR engines and whether each is available on this host.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}

	if withStore {
		tools = append(tools,
			Tool{
				Name:        "invoice_get",
				Description: "Fetch a stored invoice document by id.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id": map[string]interface{}{
							"type":        "string",
							"description": "Document id returned by invoice_scan",
						},
					},
					"required": []string{"id"},
				},
			},
			Tool{
				Name:        "invoice_list",
				Description: "List stored invoice documents, newest first.",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"limit": map[string]interface{}{
							"type":        "integer",
							"description": "Maximum number of documents. Default 50",
							"default":     50,
						},
						"offset": map[string]interface{}{
							"type":        "integer",
							"description": "Number of documents to skip. Default 0",
							"default":     0,
						},
					},
				},
			},
		)
	}
	return tools
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(s.store != nil),
		},
	}
}
