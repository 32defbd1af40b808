// Package agent wraps the dify client with task-specialized agents. Every
// agent shapes its own prompts and inputs but returns the same Response
// envelope; expected failures are data, not errors.
package agent

import (
	"context"

	"scribe/internal/dify"
)

// Type identifies an agent kind in the factory registry.
type Type string

const (
	TypeContentValidator  Type = "content_validator"
	TypeScenarioGenerator Type = "scenario_generator"
	TypeContentRewriter   Type = "content_rewriter"
)

// Config is the static description of an agent instance. Set at
// construction, never mutated.
type Config struct {
	Name          string
	Description   string
	Type          Type
	DefaultInputs map[string]any
	SystemPrompt  string
}

// Info is the caller-visible summary of an agent.
type Info struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Type          Type           `json:"type"`
	DefaultInputs map[string]any `json:"default_inputs,omitempty"`
}

// Response is the uniform envelope every agent operation returns. Success
// false implies ErrorMessage is set.
type Response struct {
	Success      bool           `json:"success"`
	Content      string         `json:"content"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Raw          map[string]any `json:"-"`
}

// Params carries the arguments of one agent call. Extra holds task-specific
// values keyed by the Param* constants; unknown keys are passed through to
// the endpoint inputs.
type Params struct {
	Query  string
	Inputs map[string]any
	User   string
	Files  []dify.FileInfo
	Extra  map[string]any
}

// Task-specific Extra keys.
const (
	ParamContent        = "content_to_validate"
	ParamScenarioType   = "scenario_type"
	ParamTargetAudience = "target_audience"
	ParamPersona        = "persona"
	ParamScenario       = "scenario"
)

// Agent is the capability contract all task agents implement. Process and
// ProcessStreaming never return raw errors; faults are recovered into
// failed Response envelopes so batch and streaming callers need no guard
// logic.
type Agent interface {
	Process(ctx context.Context, p Params) Response
	ProcessStreaming(ctx context.Context, p Params) <-chan Response
	Info() Info
}

func (p Params) extraString(key string) string {
	if v, ok := p.Extra[key].(string); ok {
		return v
	}
	return ""
}
