package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/catalogfile"
	"github.com/ewilliams-labs/ecmcatalog/internal/adapters/tagscan"
	"github.com/ewilliams-labs/ecmcatalog/internal/app"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

var scanWorkers int

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a catalogue document",
	Long: `Import a YAML or JSON catalogue document into the configured storage.

Invalid entries are reported and skipped; everything else is saved.

Examples:
  ecmctl import seed.yaml
  ecmctl import --config prod.yaml catalogue.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			report, err := a.Seed(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		})
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Import albums from the ID3 tags of MP3 files",
	Long: `Walk a directory of MP3 files and import one album per TALB tag.

The record number comes from a TXXX frame described CATALOGNUMBER; files
without one are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := tagscan.NewScanner(scanWorkers).Scan(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, s := range res.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", s.Path, s.Reason)
		}
		return importCatalogue(cmd, res.Catalogue)
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Import the catalogue from the configured remote feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			if a.Feed == nil {
				return fmt.Errorf("no feed configured: set feed.url or ECM_FEED_URL")
			}
			c, err := a.Feed.FetchCatalogue(cmd.Context())
			if err != nil {
				return err
			}
			report, err := a.Catalog.ImportCatalogue(cmd.Context(), c)
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the stored catalogue to a YAML or JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := catalogfile.ForPath(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			c, err := a.Catalog.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			if err := codec.Export(catalogfile.FromCatalogue(c), f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entities to %s\n", c.Size(), args[0])
			return nil
		})
	},
}

func importCatalogue(cmd *cobra.Command, c domain.Catalogue) error {
	return withApp(cmd, func(a *app.App) error {
		report, err := a.Catalog.ImportCatalogue(cmd.Context(), c)
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), report)
	})
}

func init() {
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Concurrent tag readers (default: GOMAXPROCS)")
	rootCmd.AddCommand(importCmd, scanCmd, fetchCmd, exportCmd)
}
