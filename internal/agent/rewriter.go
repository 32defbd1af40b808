package agent

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/dify"
)

// ContentRewriter rewrites copy to fit a persona and a scenario. Persona and
// scenario are required; a missing one yields a failed envelope before any
// network call.
type ContentRewriter struct {
	base
}

func NewContentRewriter(client *dify.Client) *ContentRewriter {
	r := &ContentRewriter{}
	r.base = newBase(client, Config{
		Name:         "content-rewriter",
		Description:  "Rewrites copy to match a persona and scenario",
		Type:         TypeContentRewriter,
		SystemPrompt: "You are a professional copywriter. Rewrite the provided copy so it matches the stated persona and scenario.",
	}, hooks{
		validateParams: r.validateParams,
		buildQuery:     r.buildQuery,
		prepareInputs:  r.prepareInputs,
	})
	return r
}

// Rewrite rewrites text for the given persona and scenario.
func (r *ContentRewriter) Rewrite(ctx context.Context, text, persona, scenario string) Response {
	return r.Process(ctx, Params{Query: text, Extra: map[string]any{
		ParamPersona:  persona,
		ParamScenario: scenario,
	}})
}

func (r *ContentRewriter) validateParams(p Params) error {
	if p.extraString(ParamPersona) == "" {
		return fmt.Errorf("missing required parameter: %s", ParamPersona)
	}
	if p.extraString(ParamScenario) == "" {
		return fmt.Errorf("missing required parameter: %s", ParamScenario)
	}
	return nil
}

func (r *ContentRewriter) buildQuery(p Params) string {
	var sb strings.Builder
	sb.WriteString(r.framedQuery("Rewrite the following copy."))
	sb.WriteString("\nPersona: ")
	sb.WriteString(p.extraString(ParamPersona))
	sb.WriteString("\nScenario: ")
	sb.WriteString(p.extraString(ParamScenario))
	sb.WriteString("\n\nOriginal copy:\n")
	sb.WriteString(p.Query)
	return sb.String()
}

func (r *ContentRewriter) prepareInputs(p Params, inputs map[string]any) {
	inputs[ParamPersona] = p.extraString(ParamPersona)
	inputs[ParamScenario] = p.extraString(ParamScenario)
	inputs["query"] = p.Query
	// Unknown extra keys ride along so app-side variables keep working.
	for k, v := range p.Extra {
		if k == ParamPersona || k == ParamScenario {
			continue
		}
		inputs[k] = v
	}
}
