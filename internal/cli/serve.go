package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/thai-invoice-ocr/internal/api"
	"github.com/ironsheep/thai-invoice-ocr/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the scanner over HTTP:

  POST /scan-invoice   multipart "file" upload or "text" form field
  GET  /invoices       stored documents, newest first (?limit=&offset=)
  GET  /invoices/:id   one stored document
  GET  /healthz        engine and store status`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().Bool("no-store", false, "do not persist scanned documents")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	noStore, _ := cmd.Flags().GetBool("no-store")

	a, err := newApp(cmd, needs{engine: true, store: !noStore})
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if cmd.Flags().Changed("addr") {
		addr, _ = cmd.Flags().GetString("addr")
	}
	return api.Serve(cmd.Context(), addr, api.Options{
		Pipeline:       a.pipeline,
		Store:          a.store,
		MaxUploadBytes: int64(a.cfg.Server.MaxUploadMB) << 20,
		Log:            a.log,
	})
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The server speaks JSON-RPC over stdin and stdout; logs go to stderr.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "invoice-ocr": {
        "command": "/path/to/invoice-ocr",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().Bool("no-store", false, "disable saving and the invoice_get and invoice_list tools")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	noStore, _ := cmd.Flags().GetBool("no-store")

	a, err := newApp(cmd, needs{engine: true, store: !noStore})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Options{
		Pipeline:     a.pipeline,
		Store:        a.store,
		Conditioning: a.cfg.Conditioning,
		Regions:      a.cfg.Regions,
		OCR:          a.cfg.OCR,
		Version:      version,
		Log:          a.log,
	})
	a.log.WithField("version", version).Debug("MCP server starting")
	return srv.Run(cmd.Context())
}
