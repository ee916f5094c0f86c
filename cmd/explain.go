package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/workflow"
)

var explainCmd = &cobra.Command{
	Use:   "explain <workflow.json>",
	Short: "Describe each action without touching the desktop",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := workflow.LoadFile(args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			type step struct {
				Index   int    `json:"index"`
				Kind    string `json:"kind"`
				Summary string `json:"summary"`
				Enabled bool   `json:"enabled"`
			}
			steps := make([]step, len(wf.Actions))
			for i := range wf.Actions {
				a := &wf.Actions[i]
				steps[i] = step{Index: i, Kind: a.Kind, Summary: a.Summary(), Enabled: a.IsEnabled()}
			}
			return json.NewEncoder(os.Stdout).Encode(steps)
		}

		if wf.Name != "" {
			fmt.Printf("Workflow: %s\n", wf.Name)
		}
		for i := range wf.Actions {
			a := &wf.Actions[i]
			marker := " "
			if !a.IsEnabled() {
				marker = "-"
			}
			fmt.Printf("%s %2d. %s\n", marker, i+1, a.Summary())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}
