package generate

import (
	"scribe/internal/agent"
	"scribe/internal/app"

	"github.com/spf13/cobra"
)

var (
	count        int
	scenarioType string
	audience     string
)

var Cmd = &cobra.Command{
	Use:   "generate <query>",
	Short: "Generate scenario content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.New(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		ag, err := a.Agent(agent.TypeScenarioGenerator, agent.Options{})
		if err != nil {
			return err
		}

		query := args[0]
		if gen, ok := unwrap(ag); ok && count > 1 {
			for i, resp := range gen.GenerateScenarios(ctx, query, count, scenarioType) {
				a.Record(ctx, agent.TypeScenarioGenerator, query, resp)
				printVariant(cmd, i+1, resp)
			}
			return nil
		}

		// Single scenario streams to stdout as it is generated.
		var final agent.Response
		for resp := range ag.ProcessStreaming(ctx, agent.Params{
			Query: query,
			Extra: map[string]any{
				agent.ParamScenarioType:   scenarioType,
				agent.ParamTargetAudience: audience,
			},
		}) {
			final = resp
			if !resp.Success {
				break
			}
			// The message_end envelope repeats the aggregated text.
			if ev, _ := resp.Metadata["event"].(string); ev == "message_end" {
				continue
			}
			cmd.Print(resp.Content)
		}
		cmd.Println()

		if !final.Success {
			cmd.PrintErrf("FAILED: %s\n", final.ErrorMessage)
		}
		a.Record(ctx, agent.TypeScenarioGenerator, query, final)
		return nil
	},
}

func init() {
	Cmd.Flags().IntVarP(&count, "count", "n", 1, "number of scenario variants")
	Cmd.Flags().StringVarP(&scenarioType, "type", "t", "", "scenario type")
	Cmd.Flags().StringVarP(&audience, "audience", "a", "", "target audience")
}

// unwrap digs the concrete generator out of tracing decorators for the
// multi-variant helper.
func unwrap(ag agent.Agent) (*agent.ScenarioGenerator, bool) {
	type unwrapper interface{ Unwrap() agent.Agent }
	for {
		if gen, ok := ag.(*agent.ScenarioGenerator); ok {
			return gen, true
		}
		u, ok := ag.(unwrapper)
		if !ok {
			return nil, false
		}
		ag = u.Unwrap()
	}
}

func printVariant(cmd *cobra.Command, n int, resp agent.Response) {
	if !resp.Success {
		cmd.PrintErrf("--- variant %d FAILED: %s\n", n, resp.ErrorMessage)
		return
	}
	cmd.Printf("--- variant %d ---\n%s\n", n, resp.Content)
}
