package main

import (
	"context"
	"fmt"

	"github.com/aretw0/flow"
	"github.com/aretw0/flow/internal/cli"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// runResult is what run prints for one independent run.
type runResult struct {
	Run    int            `yaml:"run"`
	Probes []util.Reading `yaml:"probes"`
}

var runCmd = &cobra.Command{
	Use:   "run <graph-file>",
	Short: "Run a graph and print what its probes observed",
	Long: `Initializes the graph in a fresh scope, triggers one of its control inputs
and prints the probe readings as YAML. Graphs in --dir are deployed first so
the graph can use them as node kinds.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger, _ := cmd.Flags().GetString("trigger")
		times, _ := cmd.Flags().GetInt("times")
		runs, _ := cmd.Flags().GetInt("runs")
		if runs < 1 {
			return fmt.Errorf("--runs must be at least 1")
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		eng, err := prepareEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Shutdown()

		def, err := cli.LoadDefinition(args[0])
		if err != nil {
			return err
		}
		ref, err := cli.FindTrigger(def, trigger)
		if err != nil {
			return err
		}

		results, err := eng.RunParallel(ctx, def, ref, times, runs)
		if err != nil {
			return err
		}

		out := make([]runResult, len(results))
		for i, readings := range results {
			out[i] = runResult{Run: i, Probes: readings}
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(out)
	},
}

// prepareEngine creates the engine and deploys the graphs of the graphs dir.
func prepareEngine(ctx context.Context) (*flow.Engine, error) {
	eng, err := cli.NewEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	src, err := cli.OpenSource(cfg, cfg.GraphsDir)
	if err != nil {
		_ = eng.Shutdown()
		return nil, err
	}
	if src != nil {
		if err := eng.Load(ctx, src); err != nil {
			_ = eng.Shutdown()
			return nil, fmt.Errorf("failed to deploy %s: %w", cfg.GraphsDir, err)
		}
	}
	return eng, nil
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("trigger", "t", "", "Control input to trigger (default: the only one)")
	runCmd.Flags().IntP("times", "n", 1, "Signals sent per run")
	runCmd.Flags().Int("runs", 1, "Independent runs, executed concurrently in separate scopes")
}
