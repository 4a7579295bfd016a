package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emaland/spotinfer/internal/offer"
	"github.com/emaland/spotinfer/internal/render"
)

func newGPUTypesCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "gpu-types",
		Short: "List the GPU types currently offered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("output") && cfg.Output != "" {
				output = cfg.Output
			}
			if err := render.ValidateFormat(output); err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := openSource(ctx)
			if err != nil {
				return err
			}
			offers, err := src.FetchOffers(ctx)
			if err != nil {
				return fmt.Errorf("fetching offers from %s: %w", src.Name(), err)
			}
			types := offer.SortedGPUTypes(offers)
			if len(types) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No GPU types found.")
			}
			return render.GPUTypes(cmd.OutOrStdout(), types, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, json, yaml")
	return cmd
}
