package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"studiogear/internal/catalog"
	"studiogear/internal/model"

	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newImportCmd(configPath *string) *cobra.Command {
	var fetchImages, generate bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk import gear from a text file (- for stdin)",
		Long: `Parse a text file of gear, one item per line, and store every usable line.

Lines ending in ':' set the category for the lines below them. Items can
be "Brand Model #tag" or "Brand Model | category | description". The
report lists created gear, per-line errors and items that need review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)
			if args[0] == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			a, err := newApp(cmd.Context(), *configPath, logTo(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.close()

			// No background queue here: the process exits when the command does.
			importer := catalog.NewImporter(a.db, a.describer, nil, a.log)
			report, err := importer.Import(cmd.Context(), string(text), catalog.ImportOptions{GenerateDescriptions: generate})
			if err != nil {
				return err
			}

			out := map[string]any{"import": report}
			if fetchImages {
				if a.fetcher == nil {
					return fmt.Errorf("image search is not configured")
				}
				gear, err := a.db.ListGearByIDs(cmd.Context(), report.GearIDs)
				if err != nil {
					return err
				}
				classified := make([]model.Gear, 0, len(gear))
				for _, g := range gear {
					if !g.NeedsReview {
						classified = append(classified, g)
					}
				}
				out["images"] = a.fetcher.FetchBatch(cmd.Context(), classified)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&fetchImages, "fetch-images", false, "Fetch images for imported gear (uses the daily quota)")
	cmd.Flags().BoolVar(&generate, "describe", false, "Generate descriptions for items without one")
	return cmd
}

func newQuotaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show today's image search allowance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, logTo(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.close()

			avail, err := a.counter.CheckAvailability(cmd.Context(), 1)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), avail)
		},
	}
}

func newFetchImagesCmd(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "fetch-images",
		Short: "Fetch images for gear that has none",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, logTo(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.close()

			if a.fetcher == nil {
				return fmt.Errorf("image search is not configured")
			}
			if limit <= 0 {
				limit = a.cfg.Scheduler.ImageFetchLimit
			}
			gear, err := a.db.ListGearWithoutImages(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), a.fetcher.FetchBatch(cmd.Context(), gear))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of gear to process (default scheduler.image_fetch_limit)")
	return cmd
}
