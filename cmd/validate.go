package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sebas5384/now-builders/internal/builder"
)

func init() {
	var params configParams

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := params.load()
			if err != nil {
				return err
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := builder.ValidateEntrypoint(cfg.Entrypoint); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}

	params.addFlags(validate.Flags())
	RootCommand.AddCommand(validate)
}
