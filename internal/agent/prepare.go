package agent

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/locuscode/locus/internal/event"
	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/memory/graphstore"
	"github.com/locuscode/locus/internal/session"
	"github.com/locuscode/locus/internal/stream"
)

// prepareLLMCall assembles the next provider Request: recall relevant
// memories for query, compress context if near the token limit, then
// compose the system prompt and message array against the cached active
// tool set. Mirrors §4.6.1 / agent_loop.rs's Runtime::prepare_llm_call.
func (rt *Runtime) prepareLLMCall(ctx context.Context, query string) (llm.Request, error) {
	ctx, span := tracer.Start(ctx, "agent.prepare_llm_call")
	span.SetAttributes(attribute.String("session.id", rt.sess.ID()))
	defer span.End()

	cfg := rt.sess.Config()

	var memories string
	if rt.mem != nil {
		result := rt.mem.RetrieveMemories(ctx, query, graphstore.RetrieveOptions{
			Limit: cfg.MemoryLimit,
		})
		memories = result.Memories
	}

	estimated := rt.estimator.EstimateSession(rt.sess.Turns())
	if nearContextLimit(estimated, cfg.ContextLimit) && rt.mem != nil {
		compressContext(ctx, rt.mem, rt.sess, nil, func(s string) { rt.emit(event.Status(s)) })
	}

	systemPrompt := buildSystemPrompt(rt.activeTools)
	messages := buildMessages(systemPrompt, rt.sess, memories)
	return buildGenerateRequest(cfg.Model, messages, rt.activeTools, cfg.MaxTokens), nil
}

// streamLLMResponse drives the provider stream via the Streaming
// Response Handler, forwards text/thinking deltas onto the event
// channel, appends the resulting assistant turn (and, if it carries any
// tool calls, the dispatcher's Tool-role turn), and records the LLM-call
// memory hook. Mirrors runtime/llm.rs's stream_llm_response.
func (rt *Runtime) streamLLMResponse(ctx context.Context, req llm.Request) error {
	rt.emit(event.TurnStart(session.RoleAssistant))

	ch, err := rt.provider.Stream(ctx, req)
	if err != nil {
		return err
	}

	acc, err := stream.Drive(ctx, ch, func(ev llm.StreamEvent) {
		switch ev.Kind {
		case llm.EventTextDelta:
			rt.emit(event.TextDelta(ev.Text))
		case llm.EventReasoningDelta:
			rt.emit(event.ThinkingDelta(ev.Text))
		}
	})
	if err != nil {
		return err
	}

	turn := acc.Turn()
	if err := rt.sess.AppendTurn(turn); err != nil {
		return err
	}

	if rt.mem != nil {
		usage := acc.Usage()
		rt.mem.StoreLLMCall(req.Model, uint64(usage.PromptTokens), uint64(usage.CompletionTokens), 0, false, graphstore.EventLinks{})
	}

	if toolUses := acc.ToolUses(); len(toolUses) > 0 {
		toolTurn := rt.dispatch.Dispatch(ctx, toolUses, rt.events)
		if err := rt.sess.AppendTurn(toolTurn); err != nil {
			return err
		}
	}

	return nil
}
