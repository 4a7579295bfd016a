package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emaland/spotinfer/internal/offer"
	"github.com/emaland/spotinfer/internal/render"
)

type offersFlags struct {
	gpuType  string
	spot     bool
	cheapest bool
	limit    int
	maxPrice float64
	sortBy   string
	output   string
}

func newOffersCmd() *cobra.Command {
	var f offersFlags
	cmd := &cobra.Command{
		Use:   "offers",
		Short: "List GPU offers, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffers(cmd, f)
		},
	}
	bindOffersFlags(cmd, &f)
	cmd.AddCommand(newOffersListCmd())
	return cmd
}

func newOffersListCmd() *cobra.Command {
	var f offersFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List GPU offers, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOffers(cmd, f)
		},
	}
	bindOffersFlags(cmd, &f)
	return cmd
}

func bindOffersFlags(cmd *cobra.Command, f *offersFlags) {
	cmd.Flags().StringVarP(&f.gpuType, "gpu-type", "g", "", "Only show this GPU type, e.g. H100 (case-insensitive)")
	cmd.Flags().BoolVarP(&f.spot, "spot", "s", false, "Only show spot offers")
	cmd.Flags().BoolVarP(&f.cheapest, "cheapest", "c", false, "Only show the single cheapest offer")
	cmd.Flags().IntVarP(&f.limit, "limit", "l", 10, "Max offers to show, 0 for all (default from config)")
	cmd.Flags().Float64Var(&f.maxPrice, "max-price", 0, "Max price per hour (0 = no limit)")
	cmd.Flags().StringVar(&f.sortBy, "sort", "price", "Sort by: price, gpu, none")
	cmd.Flags().StringVarP(&f.output, "output", "o", "table", "Output format: table, json, yaml")
}

// resolveOffersFlags fills unset flags from the config file.
func resolveOffersFlags(cmd *cobra.Command, f offersFlags) offersFlags {
	if !cmd.Flags().Changed("limit") {
		f.limit = cfg.DefaultLimit
	}
	if !cmd.Flags().Changed("sort") && cfg.DefaultSort != "" {
		f.sortBy = cfg.DefaultSort
	}
	if !cmd.Flags().Changed("output") && cfg.Output != "" {
		f.output = cfg.Output
	}
	return f
}

func runOffers(cmd *cobra.Command, f offersFlags) error {
	f = resolveOffersFlags(cmd, f)

	sel := offer.SelectionConfig{
		GPUType:      strings.TrimSpace(f.gpuType),
		SpotOnly:     f.spot,
		CheapestOnly: f.cheapest,
		Limit:        f.limit,
		MaxPrice:     f.maxPrice,
	}
	// Bad input fails before any provider call.
	if err := sel.Validate(); err != nil {
		return err
	}
	sortKey, err := offer.ParseSortKey(f.sortBy)
	if err != nil {
		return err
	}
	if err := render.ValidateFormat(f.output); err != nil {
		return err
	}

	ctx := cmd.Context()
	src, err := openSource(ctx)
	if err != nil {
		return err
	}
	all, err := src.FetchOffers(ctx)
	if err != nil {
		return fmt.Errorf("fetching offers from %s: %w", src.Name(), err)
	}
	log.WithField("count", len(all)).Debug("fetched offers")

	ranked, err := offer.Rank(all, sortKey)
	if err != nil {
		return err
	}
	selected, err := offer.Select(ranked, sel)
	if err != nil {
		return err
	}

	out, hints := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if len(selected) == 0 {
		printNoMatch(hints, all, sel)
		if strings.EqualFold(f.output, render.Table) {
			return nil
		}
	}
	if err := render.Offers(out, selected, f.output); err != nil {
		return err
	}

	if sel.Limit > 0 && !sel.CheapestOnly && len(selected) == sel.Limit {
		unlimited := sel
		unlimited.Limit = 0
		if matched, err := offer.Select(ranked, unlimited); err == nil && len(matched) > sel.Limit {
			fmt.Fprintf(hints, "\nShowing first %d of %d offers. Use --limit 0 to see all.\n", sel.Limit, len(matched))
		}
	}
	return nil
}

func printNoMatch(w io.Writer, all []offer.Offer, sel offer.SelectionConfig) {
	if sel.GPUType == "" {
		fmt.Fprintln(w, "No offers match the given filters.")
		return
	}
	fmt.Fprintf(w, "No offers found for GPU type %q.\n", sel.GPUType)
	if types := offer.SortedGPUTypes(all); len(types) > 0 {
		fmt.Fprintf(w, "Available GPU types: %s\n", strings.Join(types, ", "))
	}
}
