package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scribe/internal/dify"
)

// hooks are the only extension seam concrete agents get. The blocking and
// streaming control flow and the fault-recovery policy live in base and are
// identical for every agent type.
type hooks struct {
	// validateParams rejects a call before any network I/O. A non-nil
	// error becomes a failed envelope, never a raised fault.
	validateParams func(p Params) error
	// buildQuery replaces the default system-prompt framing.
	buildQuery func(p Params) string
	// prepareInputs adds task-specific values to the merged inputs.
	prepareInputs func(p Params, inputs map[string]any)
}

type base struct {
	client *dify.Client
	config Config
	hooks  hooks
}

func newBase(client *dify.Client, config Config, h hooks) base {
	return base{client: client, config: config, hooks: h}
}

func (b *base) Info() Info {
	return Info{
		Name:          b.config.Name,
		Description:   b.config.Description,
		Type:          b.config.Type,
		DefaultInputs: b.config.DefaultInputs,
	}
}

// Process performs one blocking call and maps the result into a Response.
// Transport faults are recovered here and surfaced as data.
func (b *base) Process(ctx context.Context, p Params) Response {
	if r, ok := b.reject(p); ok {
		return r
	}

	result, err := b.client.CompleteBlocking(ctx, b.buildRequest(p))
	if err != nil {
		slog.Debug("agent call failed", "agent", b.config.Type, "error", err)
		return failuref("api call failed: %v", err)
	}
	return responseFromResult(result)
}

// ProcessStreaming performs one streaming call, emitting a Response per
// message chunk and a final aggregated one on message_end. The channel
// closes after a terminal event. Abandoning the channel requires cancelling
// ctx, which releases the connection.
func (b *base) ProcessStreaming(ctx context.Context, p Params) <-chan Response {
	out := make(chan Response)
	go func() {
		defer close(out)

		if r, ok := b.reject(p); ok {
			send(ctx, out, r)
			return
		}

		stream, err := b.client.CompleteStreaming(ctx, b.buildRequest(p))
		if err != nil {
			slog.Debug("agent stream failed", "agent", b.config.Type, "error", err)
			send(ctx, out, failuref("api call failed: %v", err))
			return
		}
		defer stream.Close()

		var text strings.Builder
		for stream.Next() {
			ev := stream.Current()
			switch ev.Event {
			case dify.EventMessage:
				text.WriteString(ev.Answer)
				if !send(ctx, out, chunkResponse(ev)) {
					return
				}
			case dify.EventMessageReplace:
				text.Reset()
				text.WriteString(ev.Answer)
				if !send(ctx, out, chunkResponse(ev)) {
					return
				}
			case dify.EventMessageEnd:
				send(ctx, out, finalResponse(ev, text.String()))
				return
			case dify.EventError:
				send(ctx, out, failuref("api call failed: [%d] %s: %s", ev.Status, ev.Code, ev.Message))
				return
			}
			// tts and ping events carry no answer text.
		}
		if err := stream.Err(); err != nil {
			send(ctx, out, failuref("api call failed: %v", err))
		}
	}()
	return out
}

func (b *base) reject(p Params) (Response, bool) {
	if b.hooks.validateParams == nil {
		return Response{}, false
	}
	if err := b.hooks.validateParams(p); err != nil {
		return failuref("%v", err), true
	}
	return Response{}, false
}

func (b *base) buildRequest(p Params) dify.Request {
	inputs := make(map[string]any, len(b.config.DefaultInputs)+len(p.Inputs))
	for k, v := range b.config.DefaultInputs {
		inputs[k] = v
	}
	for k, v := range p.Inputs {
		inputs[k] = v
	}
	if b.hooks.prepareInputs != nil {
		b.hooks.prepareInputs(p, inputs)
	}

	query := b.framedQuery(p.Query)
	if b.hooks.buildQuery != nil {
		query = b.hooks.buildQuery(p)
	}

	user := p.User
	if user == "" {
		user = string(b.config.Type)
	}

	return dify.Request{Query: query, Inputs: inputs, User: user, Files: p.Files}
}

// framedQuery prepends the agent's system prompt when one is configured.
func (b *base) framedQuery(query string) string {
	if b.config.SystemPrompt == "" {
		return query
	}
	return b.config.SystemPrompt + "\n\n" + query
}

func responseFromResult(result *dify.CompletionResult) Response {
	return Response{
		Success: true,
		Content: result.Answer,
		Metadata: map[string]any{
			"message_id":          result.MessageID,
			"usage":               result.Usage,
			"retriever_resources": result.RetrieverResources,
		},
		Raw: result.Raw,
	}
}

func chunkResponse(ev dify.StreamEvent) Response {
	return Response{
		Success: true,
		Content: ev.Answer,
		Metadata: map[string]any{
			"event":      string(ev.Event),
			"message_id": ev.MessageID,
		},
	}
}

func finalResponse(ev dify.StreamEvent, text string) Response {
	metadata := map[string]any{
		"event":      string(ev.Event),
		"message_id": ev.MessageID,
	}
	if u := ev.Usage(); u != nil {
		metadata["usage"] = *u
	}
	if rs := ev.RetrieverResources(); len(rs) > 0 {
		metadata["retriever_resources"] = rs
	}
	return Response{Success: true, Content: text, Metadata: metadata}
}

func failuref(format string, args ...any) Response {
	return Response{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}

func send(ctx context.Context, out chan<- Response, r Response) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
