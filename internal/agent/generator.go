package agent

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/dify"
)

var defaultScenarioTypes = []string{
	"marketing scenario",
	"user story",
	"test case",
	"product demo",
	"training scenario",
}

// ScenarioGenerator produces scenario content (marketing scenarios, user
// stories, test cases...) shaped by type and target audience.
type ScenarioGenerator struct {
	base
	scenarioTypes []string
}

// NewScenarioGenerator builds a generator. Empty scenarioTypes select the
// default set.
func NewScenarioGenerator(client *dify.Client, scenarioTypes []string) *ScenarioGenerator {
	if len(scenarioTypes) == 0 {
		scenarioTypes = defaultScenarioTypes
	}
	g := &ScenarioGenerator{scenarioTypes: scenarioTypes}
	g.base = newBase(client, Config{
		Name:        "scenario-generator",
		Description: "Generates customized scenario content of multiple types",
		Type:        TypeScenarioGenerator,
		DefaultInputs: map[string]any{
			"scenario_types":   scenarioTypes,
			"output_format":    "detailed",
			"creativity_level": "medium",
		},
		SystemPrompt: "You are a professional scenario designer. Generate scenario content that fits the stated requirements.",
	}, hooks{
		buildQuery:    g.buildQuery,
		prepareInputs: g.prepareInputs,
	})
	return g
}

// Generate produces one scenario for the given type and audience. Either
// may be empty.
func (g *ScenarioGenerator) Generate(ctx context.Context, query, scenarioType, targetAudience string) Response {
	return g.Process(ctx, Params{Query: query, Extra: map[string]any{
		ParamScenarioType:   scenarioType,
		ParamTargetAudience: targetAudience,
	}})
}

// GenerateScenarios issues count independent calls, one per variant, and
// returns the results in issuance order. The endpoint returns a single
// candidate per call, so variants cannot be batched into one request.
func (g *ScenarioGenerator) GenerateScenarios(ctx context.Context, baseQuery string, count int, scenarioType string) []Response {
	results := make([]Response, 0, count)
	for i := 0; i < count; i++ {
		query := fmt.Sprintf("%s (variant %d)", baseQuery, i+1)
		results = append(results, g.Generate(ctx, query, scenarioType, ""))
	}
	return results
}

func (g *ScenarioGenerator) buildQuery(p Params) string {
	query := g.framedQuery(p.Query)

	var details []string
	if t := p.extraString(ParamScenarioType); t != "" {
		details = append(details, "Scenario type: "+t)
	}
	if a := p.extraString(ParamTargetAudience); a != "" {
		details = append(details, "Target audience: "+a)
	}
	if len(details) == 0 {
		return query
	}
	return query + "\n\n" + strings.Join(details, "\n")
}

func (g *ScenarioGenerator) prepareInputs(p Params, inputs map[string]any) {
	if t := p.extraString(ParamScenarioType); t != "" {
		inputs[ParamScenarioType] = t
	}
	if a := p.extraString(ParamTargetAudience); a != "" {
		inputs[ParamTargetAudience] = a
	}
}
