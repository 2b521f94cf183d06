package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/flow/internal/cli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Print the node kinds and exported graphs available to editors",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		eng, err := prepareEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Shutdown()

		spec := eng.Spec()
		switch format {
		case "yaml":
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(spec)
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(spec)
		}
		return fmt.Errorf("unknown format %q", format)
	},
}

func init() {
	rootCmd.AddCommand(specCmd)
	specCmd.Flags().StringP("format", "f", "yaml", "Output format: yaml or json")
}
