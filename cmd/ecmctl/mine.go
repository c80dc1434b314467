package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/ecmcatalog/internal/app"
	"github.com/ewilliams-labs/ecmcatalog/internal/core/domain"
)

var (
	mineK      int
	mineStart  int
	mineEnd    int
	albumYear  int
	albumRec   string
	albumTitle string
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Run a mining query against the stored catalogue",
	Long: `Run one of the catalogue mining queries and print the results.

Examples:
  ecmctl mine prolific --k 5 --start 1970 --end 1979
  ecmctl mine similar --k 3 --year 1975 --record "ECM 1064/65" --name "The Köln Concert"
  ecmctl mine next-concerts --k 10 --format yaml`,
}

// miningCommand builds a subcommand that runs query and prints its results.
func miningCommand(use, short string, query func(ctx context.Context, a *app.App) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				results, err := query(cmd.Context(), a)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), outFormat, results)
			})
		},
	}
}

func init() {
	prolific := miningCommand("prolific", "Musicians with the most albums in a year range",
		func(ctx context.Context, a *app.App) (any, error) {
			return a.Miner.MostProlificMusicians(ctx, mineK, mineStart, mineEnd)
		})
	prolific.Flags().IntVar(&mineStart, "start", 0, "First release year, inclusive (0 for no bound)")
	prolific.Flags().IntVar(&mineEnd, "end", 0, "Last release year, inclusive (0 for no bound)")

	similar := miningCommand("similar", "Albums sharing the most musicians with a target album",
		func(ctx context.Context, a *app.App) (any, error) {
			// An album missing from the store is passed by key so the miner
			// rejects it as an invalid argument.
			target := domain.Album{ReleaseYear: albumYear, RecordNumber: albumRec, Name: albumTitle}
			if mineK >= 1 {
				stored, err := a.Catalog.GetAlbum(ctx, target.Key())
				switch {
				case err == nil:
					target = stored
				case !errors.Is(err, domain.ErrNotFound):
					return nil, err
				}
			}
			return a.Miner.MostSimilarAlbums(ctx, mineK, target)
		})
	similar.Flags().IntVar(&albumYear, "year", 0, "Release year of the target album")
	similar.Flags().StringVar(&albumRec, "record", "", "Record number of the target album")
	similar.Flags().StringVar(&albumTitle, "name", "", "Name of the target album")
	_ = similar.MarkFlagRequired("year")
	_ = similar.MarkFlagRequired("record")
	_ = similar.MarkFlagRequired("name")

	mineCmd.AddCommand(
		prolific,
		miningCommand("talented", "Musicians playing the most instruments",
			func(ctx context.Context, a *app.App) (any, error) {
				return a.Miner.MostTalentedMusicians(ctx, mineK)
			}),
		miningCommand("social", "Musicians with the most distinct collaborators",
			func(ctx context.Context, a *app.App) (any, error) {
				return a.Miner.MostSocialMusicians(ctx, mineK)
			}),
		miningCommand("busiest-years", "Years with the most releases",
			func(ctx context.Context, a *app.App) (any, error) {
				return a.Miner.BusiestYears(ctx, mineK)
			}),
		similar,
		miningCommand("highest-rated", "Albums with the best average rating",
			func(ctx context.Context, a *app.App) (any, error) {
				return a.Miner.HighestRatedAlbums(ctx, mineK)
			}),
		miningCommand("most-selling", "Albums with the highest sales",
			func(ctx context.Context, a *app.App) (any, error) {
				return a.Miner.MostSellingAlbums(ctx, mineK)
			}),
		miningCommand("next-concerts", "Upcoming concerts, soonest first",
			func(ctx context.Context, a *app.App) (any, error) {
				return a.Miner.FindNextConcerts(ctx, mineK)
			}),
	)
	mineCmd.PersistentFlags().IntVar(&mineK, "k", 10, "Number of results")
	rootCmd.AddCommand(mineCmd)
}
