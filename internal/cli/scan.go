package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/thai-invoice-ocr/internal/config"
	"github.com/ironsheep/thai-invoice-ocr/internal/invoice"
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "Scan invoice images or PDFs",
	Long: `Scan recognizes each file and prints its invoice document as JSON.

Files are processed one after another; the pages of a PDF are processed
concurrently. A file that fails is reported and the rest continue.

Examples:
  invoice-ocr scan invoice.jpg
  invoice-ocr scan --save --profile aggressive scans/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Bool("save", false, "save documents to the configured store")
	scanCmd.Flags().Bool("no-text", false, "omit the recognized text from the output")
	scanCmd.Flags().BoolP("quiet", "q", false, "do not print documents")
	scanCmd.Flags().Float64("angle", 0, "rotate pages by this many degrees instead of estimating")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	save, _ := flags.GetBool("save")
	noText, _ := flags.GetBool("no-text")
	quiet, _ := flags.GetBool("quiet")

	n := needs{engine: true, store: save}
	if flags.Changed("angle") {
		angle, _ := flags.GetFloat64("angle")
		n.adjust = func(cfg *config.Config) { cfg.Conditioning.ManualAngle = &angle }
	}

	a, err := newApp(cmd, n)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var failed []string
	for _, path := range args {
		if ctx.Err() != nil {
			break
		}
		res, err := a.pipeline.ProcessFile(ctx, path)
		if err != nil {
			a.log.WithError(err).WithField("file", filepath.Base(path)).Error("Scan failed")
			failed = append(failed, path)
			continue
		}
		doc := res.Document
		if save {
			if err := a.store.Save(ctx, doc); err != nil {
				return fmt.Errorf("saving %s: %w", path, err)
			}
		}
		if noText {
			doc.RawText = ""
		}
		if !quiet {
			if err := writeDocument(cmd.OutOrStdout(), doc); err != nil {
				return err
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %s", len(failed), len(args), strings.Join(failed, ", "))
	}
	return nil
}

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract an invoice from recognized text",
	Long: `Parse runs field extraction, correction and reconciliation on text that
was already recognized, read from file or from stdin when file is "-" or
omitted. No OCR engine is needed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().Bool("save", false, "save the document to the configured store")
	parseCmd.Flags().String("source", "", "source name recorded in the document")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	save, _ := cmd.Flags().GetBool("save")
	source, _ := cmd.Flags().GetString("source")

	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if source == "" {
			source = "stdin"
		}
	} else {
		data, err = os.ReadFile(args[0])
		if source == "" {
			source = filepath.Base(args[0])
		}
	}
	if err != nil {
		return fmt.Errorf("reading text: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return errors.New("no text to parse")
	}

	a, err := newApp(cmd, needs{store: save})
	if err != nil {
		return err
	}
	defer a.Close()

	doc := a.pipeline.ParseText(cmd.Context(), source, string(data))
	if save {
		if err := a.store.Save(cmd.Context(), doc); err != nil {
			return fmt.Errorf("saving document: %w", err)
		}
	}
	return writeDocument(cmd.OutOrStdout(), doc)
}

func writeDocument(w io.Writer, doc *invoice.Document) error {
	if err := doc.WriteJSON(w); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	return nil
}
