package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/ironsheep/thai-invoice-ocr/internal/ocr"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("invoice-ocr %s\n", version)
		cmd.Printf("  Build time: %s\n", buildTime)
		cmd.Printf("  Git commit: %s\n", gitCommit)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long: `Config prints the settings after the config file, .env file, environment
and flags are applied. Secrets are never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List OCR engines and whether they are available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		infos := ocr.Probe(cfg.OCR)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), engineTable(infos).Render())
		return err
	},
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.Color("86"))
	missStyle   = cellStyle.Foreground(lipgloss.Color("241"))
)

func engineTable(infos []ocr.Info) *table.Table {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("241"))).
		Headers("ENGINE", "AVAILABLE", "DETAIL")

	for _, info := range infos {
		detail := info.Version
		if !info.Available {
			detail = info.Error
		}
		t.Row(string(info.Kind), fmt.Sprintf("%t", info.Available), detail)
	}

	return t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case col != 1:
			return cellStyle
		case infos[row].Available:
			return okStyle
		}
		return missStyle
	})
}

func init() {
	enginesCmd.Flags().Bool("json", false, "print JSON")
	rootCmd.AddCommand(versionCmd, configCmd, enginesCmd)
}
