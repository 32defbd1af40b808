package rewrite

import (
	"scribe/internal/agent"
	"scribe/internal/app"

	"github.com/spf13/cobra"
)

var (
	persona  string
	scenario string
)

var Cmd = &cobra.Command{
	Use:   "rewrite <text>",
	Short: "Rewrite copy for a persona and scenario",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		ag, err := a.Agent(agent.TypeContentRewriter, agent.Options{})
		if err != nil {
			return err
		}

		text := args[0]
		resp := ag.Process(ctx, agent.Params{
			Query: text,
			Extra: map[string]any{
				agent.ParamPersona:  persona,
				agent.ParamScenario: scenario,
			},
		})
		a.Record(ctx, agent.TypeContentRewriter, text, resp)

		if !resp.Success {
			cmd.PrintErrf("FAILED: %s\n", resp.ErrorMessage)
			return nil
		}
		cmd.Println(resp.Content)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&persona, "persona", "p", "", "persona the rewritten copy should speak as")
	Cmd.Flags().StringVarP(&scenario, "scenario", "s", "", "scenario the rewritten copy targets")
}
