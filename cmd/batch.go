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
	"github.com/replaykit/replaykit/internal/vars"
	"github.com/replaykit/replaykit/internal/workflow"
)

var (
	batchDataPath  string
	batchNoHotkeys bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <workflow.json>",
	Short: "Replay a workflow once per variable row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := workflow.LoadFile(args[0])
		if err != nil {
			return err
		}

		var table *vars.Table
		if batchDataPath != "" {
			table, err = vars.LoadCSV(batchDataPath)
			if err != nil {
				return err
			}
		} else if len(wf.BatchData) > 0 {
			table = vars.FromWorkflowData(wf.BatchColumns, wf.BatchData)
		} else {
			return fmt.Errorf("no batch data: embed batch_data in the workflow or pass --data <file.csv>")
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

		var rowReport engine.RowReporter
		if !jsonOutput {
			rowReport = func(row int, res *engine.RunResult) {
				fmt.Printf("Row %d/%d: %s\n", row+1, table.Len(), res.Status)
			}
		}

		b := engine.NewBatch(opts, rowReport)
		if !batchNoHotkeys {
			release := hotkeys.Listen(b.Signals(), log)
			defer release()
			fmt.Printf("Replaying %d rows... press 's' to stop, 'p' to pause.\n", table.Len())
		}

		sum, err := b.Run(wf, table)
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(sum)
		}
		fmt.Printf("Batch finished: %d completed, %d failed, %d stopped of %d rows.\n",
			sum.Completed, sum.Failed, sum.Stopped, sum.Total)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDataPath, "data", "", "Batch variable table (CSV with a header row)")
	batchCmd.Flags().BoolVar(&batchNoHotkeys, "no-hotkeys", false, "Disable the global stop/pause keys")
	rootCmd.AddCommand(batchCmd)
}
