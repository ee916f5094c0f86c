package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/replaykit/replaykit/internal/driver"
	"github.com/replaykit/replaykit/internal/engine"
	"github.com/replaykit/replaykit/internal/hotkeys"
	"github.com/replaykit/replaykit/internal/screen"
	"github.com/replaykit/replaykit/internal/workflow"
)

var (
	runInputs      []string
	runSingleValue string
	runNoHotkeys   bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow.json>",
	Short: "Replay a workflow once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := workflow.LoadFile(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := buildLogger()
		defer log.Sync()

		opts := engine.Options{
			Driver:  driver.NewRobot(cfg.Failsafe),
			Matcher: screen.NewDisplayMatcher(),
			Config:  cfg,
			Signals: engine.NewSignals(),
			Logger:  log,
			Capture: screen.Display{}.Capture,
		}
		if !jsonOutput {
			opts.Reporter = printProgress
		}
		if cmd.Flags().Changed("value") {
			opts.SingleValue = &runSingleValue
		}

		ctl := engine.New(opts)
		if !runNoHotkeys {
			release := hotkeys.Listen(ctl.Signals(), log)
			defer release()
			fmt.Println("Replaying... press 's' to stop, 'p' to pause.")
		}

		res, err := ctl.Run(wf, parseRow(runInputs))
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(res)
		}
		printOutcome(res)
		return nil
	},
}

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Variable values (column=value)")
	runCmd.Flags().StringVar(&runSingleValue, "value", "", "Single-variable mode: one value for every placeholder")
	runCmd.Flags().BoolVar(&runNoHotkeys, "no-hotkeys", false, "Disable the global stop/pause keys")
	rootCmd.AddCommand(runCmd)
}

func printProgress(e engine.Event) {
	switch e.Status {
	case "running":
		fmt.Printf("[%d/%d] %s: %s\n", e.Step, e.Total, e.Kind, e.Detail)
	case "skipped":
		fmt.Printf("[%d/%d] SKIPPED (disabled): %s\n", e.Step, e.Total, e.Kind)
	case "failed", "aborted":
		fmt.Printf("[%d/%d] %s: %s\n", e.Step, e.Total, e.Status, e.Kind)
	}
}

func printOutcome(res *engine.RunResult) {
	switch res.Status {
	case engine.RunCompleted:
		fmt.Printf("Completed %d actions in %s.\n", len(res.Actions), res.Duration)
	case engine.RunStopped:
		fmt.Printf("Stopped after %d actions.\n", len(res.Actions))
	case engine.RunFailed:
		fmt.Printf("Failed at action %d.\n", res.FailedIndex+1)
		if res.Error != nil {
			fmt.Printf("  Error: %s\n", res.Error.Message)
			if res.Error.Hint != "" {
				fmt.Printf("  Hint: %s\n", res.Error.Hint)
			}
		}
	}
	fmt.Printf("Run ID: %s\n", res.RunID)
}
