package main

import (
	"fmt"

	"github.com/aretw0/flow/internal/cli"
	"github.com/aretw0/flow/internal/presentation/graph"
	"github.com/aretw0/flow/pkg/nodes/util"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <graph-file>",
	Short: "Export the graph wiring as a Mermaid diagram",
	Long: `Builds the graph and outputs a Mermaid flowchart of its nodes and wires.
With --trigger, the graph is run once and the probes that saw a signal are
highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trigger, _ := cmd.Flags().GetString("trigger")

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
		d, err := eng.Manager().Instantiate(ctx, def)
		if err != nil {
			return err
		}
		defer d.Close()

		var overlay *graph.Overlay
		if trigger != "" {
			ref, err := cli.FindTrigger(def, trigger)
			if err != nil {
				return err
			}
			if err := d.Scope.Trigger(ref); err != nil {
				return err
			}
			overlay = &graph.Overlay{}
			for i, n := range d.Graph.Nodes {
				if p, ok := n.(*util.Probe); ok && p.Read(d.Scope).Hits > 0 {
					overlay.Active = append(overlay.Active, i)
				}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(d.Graph, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("trigger", "t", "", "Control input to trigger once before rendering")
}
