package validate

import (
	"fmt"

	"scribe/internal/agent"
	"scribe/internal/app"

	"github.com/spf13/cobra"
)

var (
	criteria     []string
	requirements string
)

var Cmd = &cobra.Command{
	Use:   "validate [content]...",
	Short: "Review one or more pieces of copy",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		ag, err := a.Agent(agent.TypeContentValidator, agent.Options{ValidationCriteria: criteria})
		if err != nil {
			return err
		}

		for i, content := range args {
			query := requirements
			if query == "" {
				query = fmt.Sprintf("Review item %d", i+1)
			}
			resp := ag.Process(ctx, agent.Params{
				Query: query,
				Extra: map[string]any{agent.ParamContent: content},
			})
			a.Record(ctx, agent.TypeContentValidator, query, resp)
			printResult(cmd, i+1, resp)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringSliceVarP(&criteria, "criteria", "c", nil, "validation criteria (default set when omitted)")
	Cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "review requirements applied to every item")
}

func printResult(cmd *cobra.Command, n int, resp agent.Response) {
	if !resp.Success {
		cmd.PrintErrf("[%d] FAILED: %s\n", n, resp.ErrorMessage)
		return
	}
	cmd.Printf("[%d] %s\n", n, resp.Content)
}
