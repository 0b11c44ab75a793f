// Package cli implements the invoice-ocr command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// Set by ldflags during build.
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersion records build information for the version command and the
// MCP server handshake.
func SetVersion(v, built, commit string) {
	if v != "" {
		version = v
	}
	if built != "" {
		buildTime = built
	}
	if commit != "" {
		gitCommit = commit
	}
}

var rootCmd = &cobra.Command{
	Use:   "invoice-ocr",
	Short: "Read Thai tax invoices from scans and PDFs",
	Long: `invoice-ocr recognizes the text of scanned Thai tax invoices and turns it
into structured, validated invoice records.

Settings come from invoice-ocr.toml (or --config), a .env file and the
environment, in that order. Flags override all three.`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringP("config", "c", "", "config file (default invoice-ocr.toml if present)")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")
	f.String("profile", "", "enhancement profile: gentle or aggressive")
	f.String("engine", "", "OCR engine: auto, tesseract, tesseract-cli or azure")
	f.String("store", "", "document store: files, sqlite or postgres")
	f.String("store-path", "", "output directory or SQLite database file")
	f.Int("workers", 0, "concurrent pages (0 = one per CPU)")
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
