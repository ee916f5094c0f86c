package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/workflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.json>",
	Short: "Check a workflow file without replaying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := workflow.LoadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Workflow is valid: %d actions", len(wf.Actions))
		if len(wf.BatchData) > 0 {
			fmt.Printf(", %d batch rows over columns %v", len(wf.BatchData), wf.BatchColumns)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
