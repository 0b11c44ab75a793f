package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/thai-invoice-ocr/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process invoices dropped into an inbox directory",
	Long: `Watch processes the files already in the inbox, then every supported file
that appears there, and saves each document to the configured store.
Inputs are moved to the processed or failed directory afterwards.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("inbox", "", "directory to watch")
	watchCmd.Flags().String("processed", "", "directory for processed inputs")
	watchCmd.Flags().String("failed", "", "directory for inputs that failed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, needs{engine: true, store: true})
	if err != nil {
		return err
	}
	defer a.Close()

	opts := watch.Options{
		Inbox:     a.cfg.Watch.Inbox,
		Processed: a.cfg.Watch.Processed,
		Failed:    a.cfg.Watch.Failed,
		Log:       a.log,
	}
	flags := cmd.Flags()
	if flags.Changed("inbox") {
		opts.Inbox, _ = flags.GetString("inbox")
	}
	if flags.Changed("processed") {
		opts.Processed, _ = flags.GetString("processed")
	}
	if flags.Changed("failed") {
		opts.Failed, _ = flags.GetString("failed")
	}
	if opts.Inbox == "" {
		return fmt.Errorf("no inbox directory configured")
	}

	w := watch.New(opts, watch.ProcessorFunc(func(ctx context.Context, path string) error {
		res, err := a.pipeline.ProcessFile(ctx, path)
		if err != nil {
			return err
		}
		return a.store.Save(ctx, res.Document)
	}))
	return w.Run(cmd.Context())
}
