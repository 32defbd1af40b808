package agent

import (
	"context"
	"fmt"
	"strings"

	"scribe/internal/dify"
)

var defaultValidationCriteria = []string{
	"grammar correctness",
	"factual accuracy",
	"style consistency",
	"compliance",
}

// ContentValidator reviews copy against a list of validation criteria.
// Criteria values are not checked locally; the endpoint owns their meaning
// and rejects nonsense as a normal failed envelope.
type ContentValidator struct {
	base
	criteria []string
}

// NewContentValidator builds a validator. Empty criteria select the default
// set.
func NewContentValidator(client *dify.Client, criteria []string) *ContentValidator {
	if len(criteria) == 0 {
		criteria = defaultValidationCriteria
	}
	v := &ContentValidator{criteria: criteria}
	v.base = newBase(client, Config{
		Name:        "content-validator",
		Description: "Reviews copy against multiple quality criteria",
		Type:        TypeContentValidator,
		DefaultInputs: map[string]any{
			"validation_criteria": criteria,
			"output_format":       "structured",
		},
		SystemPrompt: "You are a professional content reviewer. Assess the provided copy against every listed criterion.",
	}, hooks{
		buildQuery:    v.buildQuery,
		prepareInputs: v.prepareInputs,
	})
	return v
}

// Validate reviews a single piece of content. query describes what to check
// for.
func (v *ContentValidator) Validate(ctx context.Context, query, content string) Response {
	return v.Process(ctx, Params{Query: query, Extra: map[string]any{ParamContent: content}})
}

// ValidateBatch reviews contents one by one, preserving input order. A
// failed item is reported in place and does not abort its siblings.
func (v *ContentValidator) ValidateBatch(ctx context.Context, contents []string, criteria string) []Response {
	results := make([]Response, 0, len(contents))
	for i, content := range contents {
		query := criteria
		if query == "" {
			query = fmt.Sprintf("Review item %d", i+1)
		}
		results = append(results, v.Validate(ctx, query, content))
	}
	return results
}

func (v *ContentValidator) buildQuery(p Params) string {
	query := v.framedQuery(p.Query)
	if content := p.extraString(ParamContent); content != "" {
		var sb strings.Builder
		sb.WriteString(query)
		sb.WriteString("\n\nContent under review:\n")
		sb.WriteString(content)
		return sb.String()
	}
	return query
}

func (v *ContentValidator) prepareInputs(p Params, inputs map[string]any) {
	if content := p.extraString(ParamContent); content != "" {
		inputs[ParamContent] = content
	}
}
