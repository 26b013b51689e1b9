package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/history"
	"github.com/haivivi/livestudio/pkg/live"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved live sessions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()

		runs, err := store.Runs(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return err
		}
		if outputJSON || outputFile != "" {
			return outputResult(runs)
		}
		if len(runs) == 0 {
			fmt.Println("No sessions recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tLENGTH\tTURNS\tMODEL\tERROR")
		for _, r := range runs {
			length := "-"
			if !r.EndedAt.IsZero() {
				length = cli.FormatDuration(r.EndedAt.Sub(r.StartedAt))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), length, r.Turns, r.Model, r.Error)
		}
		return w.Flush()
	},
}

// runDetail is a run with its turns.
type runDetail struct {
	history.Run `yaml:",inline"`
	Transcript  []live.Turn `json:"transcript" yaml:"transcript"`
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the transcript of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		run, err := store.Run(ctx, args[0])
		if err != nil {
			return err
		}
		turns, err := store.Turns(ctx, run.ID)
		if err != nil {
			return err
		}
		if outputJSON || outputFile != "" {
			return outputResult(runDetail{Run: run, Transcript: turns})
		}

		fmt.Printf("Run %s (%s, %s)\n", run.ID, run.Model, run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		if run.Error != "" {
			fmt.Printf("Ended with error: %s\n", run.Error)
		}
		fmt.Println()
		for _, t := range turns {
			printTurn(t)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a run and its turns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openHistory()
		if err != nil {
			return err
		}
		defer closeStore()

		if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Run %s deleted", args[0])
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "maximum number of runs (0 for all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}
