package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/flow/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph-file>...",
	Short: "Check graphs for consistency",
	Long: `Builds and initializes every graph in a throwaway scope, reporting unknown
kinds, unresolved ports, type mismatches and failing settings.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		eng, err := prepareEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Shutdown()

		var errs []error
		for _, path := range args {
			def, err := cli.LoadDefinition(path)
			if err == nil {
				err = eng.Validate(ctx, def)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: graph %q is valid! ✅\n", path, def.Name)
		}
		if len(errs) > 0 {
			return fmt.Errorf("validation failed: %w", errors.Join(errs...))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
