package runs

import (
	"scribe/internal/app"

	"github.com/spf13/cobra"
)

var limit int

var Cmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent agent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		runs, err := a.History.RecentRuns(ctx, limit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			status := "ok"
			if !r.Success {
				status = "failed"
			}
			cmd.Printf("%s  %-20s %-7s %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"), r.AgentType, status, r.Query)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
}
