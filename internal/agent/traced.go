package agent

import (
	"context"

	"scribe/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type tracedAgent struct {
	Agent
}

// WithTrace wraps an agent so every Process and ProcessStreaming call gets
// its own span. Only the agent type and outcome are recorded; queries and
// credentials are not.
func WithTrace(a Agent) Agent {
	return &tracedAgent{Agent: a}
}

func (t *tracedAgent) Process(ctx context.Context, p Params) Response {
	ctx, span := trace.Tracer().Start(ctx, "agent.process",
		oteltrace.WithAttributes(
			attribute.String("agent.type", string(t.Agent.Info().Type)),
		),
	)
	defer span.End()

	resp := t.Agent.Process(ctx, p)
	recordOutcome(span, resp)
	return resp
}

func (t *tracedAgent) ProcessStreaming(ctx context.Context, p Params) <-chan Response {
	ctx, span := trace.Tracer().Start(ctx, "agent.process_streaming",
		oteltrace.WithAttributes(
			attribute.String("agent.type", string(t.Agent.Info().Type)),
		),
	)

	in := t.Agent.ProcessStreaming(ctx, p)
	out := make(chan Response)
	go func() {
		defer close(out)
		defer span.End()
		var last Response
		for resp := range in {
			last = resp
			select {
			case out <- resp:
			case <-ctx.Done():
				return
			}
		}
		recordOutcome(span, last)
	}()
	return out
}

// Unwrap exposes the decorated agent for callers needing its concrete type.
func (t *tracedAgent) Unwrap() Agent {
	return t.Agent
}

func recordOutcome(span oteltrace.Span, resp Response) {
	span.SetAttributes(attribute.Bool("agent.success", resp.Success))
	if !resp.Success {
		span.SetStatus(codes.Error, resp.ErrorMessage)
	}
}
