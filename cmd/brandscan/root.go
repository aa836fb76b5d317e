package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	brandlog "github.com/nao1215/brandscan/internal/log"
)

// NewRootCmd creates the root command for brandscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brandscan",
		Short: "Extract brand assets from a website",
		Long: `brandscan crawls a company website and collects its brand assets.

It visits the site breadth-first within a depth and page budget, then:
- Downloads images, keeping one copy of byte-identical files
- Detects logos and stores them separately
- Normalizes raster images to bounded JPEGs
- Records video references and page text
- Writes a Markdown brand brief (name, tagline, tone, colors, fonts)

Runs are recorded in a local history database so sites can be compared
over time. The serve command exposes the same extraction over HTTP.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the redacting logger used by every command.
func setupLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	if jsonFormat {
		return brandlog.NewSecureJSONLogger(w, verbose)
	}
	return brandlog.NewSecureLogger(w, verbose)
}
