// Package agent implements the Agent Orchestrator: the top-level loop
// that turns one user message into a sequence of LLM calls and tool
// dispatches, driving the Session, Memory Client, Streaming Response
// Handler, and Tool Dispatcher to completion or suspension.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/locuscode/locus/internal/dispatcher"
	"github.com/locuscode/locus/internal/event"
	"github.com/locuscode/locus/internal/llm"
	"github.com/locuscode/locus/internal/memory"
	"github.com/locuscode/locus/internal/memory/graphstore"
	"github.com/locuscode/locus/internal/session"
	"github.com/locuscode/locus/internal/stream"
	"github.com/locuscode/locus/internal/tool"
)

var tracer = otel.Tracer("github.com/locuscode/locus/internal/agent")

// Runtime is one agent run: a Session, its cached active-tool set, and
// the collaborators it drives (an LLM Provider, a Tool Dispatcher, a
// Memory Client) plus the outbound event channel consumers observe it
// through. One Runtime instance is good for exactly one top-level Run
// call; the "task" meta-tool spawns a fresh child Runtime per call
// rather than reusing the parent's.
type Runtime struct {
	sess     *session.Session
	provider llm.Provider
	registry *tool.Registry
	mem      *memory.Client
	dispatch *dispatcher.Dispatcher
	events   chan<- event.Event
	approval dispatcher.ApprovalPolicy
	estimator TokenEstimator

	activeTools []llm.ToolSpec
}

// New constructs a Runtime around a fresh Session, wiring dispatch's
// TaskRunner to spawn sub-agent Runtimes for the "task" meta-tool.
// mem may be nil (the agent remains functional without memory).
// estimator may be nil, defaulting to CharEstimator.
func New(cfg session.Config, provider llm.Provider, reg *tool.Registry, mem *memory.Client, dispatch *dispatcher.Dispatcher, approval dispatcher.ApprovalPolicy, events chan<- event.Event, estimator TokenEstimator) *Runtime {
	if estimator == nil {
		estimator = CharEstimator{}
	}
	rt := &Runtime{
		sess:      session.New(cfg),
		provider:  provider,
		registry:  reg,
		mem:       mem,
		dispatch:  dispatch,
		events:    events,
		approval:  approval,
		estimator: estimator,
	}
	rt.activeTools = buildActiveTools(reg.Descriptors())
	if mem != nil {
		mem.BootstrapToolSchemas(toolDescriptorsForMemory(reg.Descriptors()), "toolbus")
	}
	dispatch.SetTaskRunner(rt.runTask)
	return rt
}

// Session exposes the underlying Session for summary/diagnostic reads.
func (rt *Runtime) Session() *session.Session { return rt.sess }

func toolDescriptorsForMemory(descs []tool.Descriptor) []memory.ToolDescriptor {
	out := make([]memory.ToolDescriptor, len(descs))
	for i, d := range descs {
		out[i] = memory.ToolDescriptor{Name: d.Name, Description: d.Description, Schema: d.Schema}
	}
	return out
}

func (rt *Runtime) emit(ev event.Event) {
	if rt.events == nil {
		return
	}
	select {
	case rt.events <- ev:
	default:
	}
}

// Run drives message through admission, the initial LLM call, and the
// agent loop until the session suspends (Waiting), completes, is
// cancelled, or fails. Mirrors agent_loop.rs's Runtime::run.
func (rt *Runtime) Run(ctx context.Context, message string) (session.Status, error) {
	ctx, span := tracer.Start(ctx, "agent.run")
	span.SetAttributes(attribute.String("session.id", rt.sess.ID()))
	defer span.End()

	if err := rt.sess.SetStatus(session.StatusRunning); err != nil {
		return rt.sess.Status(), err
	}
	rt.sess.StartRun()
	rt.emit(event.Status("Session started"))

	if err := rt.processMessage(ctx, message); err != nil {
		if errors.Is(err, stream.ErrCancelled) || errors.Is(err, context.Canceled) {
			_ = rt.sess.SetStatus(session.StatusCancelled)
			rt.emit(event.TurnEnd())
			rt.sess.FinishRun()
			p, c := rt.sess.TokenTotals()
			rt.emit(event.SessionEnd(session.StatusCancelled, p, c))
			return session.StatusCancelled, nil
		}
		rt.emit(event.TurnEnd())
		rt.emit(event.Error(err.Error()))
		_ = rt.sess.SetStatus(session.StatusFailed)
		rt.sess.FinishRun()
		p, c := rt.sess.TokenTotals()
		rt.emit(event.SessionEnd(session.StatusFailed, p, c))
		return rt.sess.Status(), err
	}

	if err := rt.agentLoop(ctx); err != nil {
		rt.emit(event.Error(err.Error()))
		_ = rt.sess.SetStatus(session.StatusFailed)
		rt.sess.FinishRun()
		p, c := rt.sess.TokenTotals()
		rt.emit(event.SessionEnd(session.StatusFailed, p, c))
		return rt.sess.Status(), err
	}

	rt.sess.FinishRun()
	p, c := rt.sess.TokenTotals()
	status := rt.sess.Status()
	rt.emit(event.SessionEnd(status, p, c))
	return status, nil
}

// agentLoop re-runs the LLM against pending tool results until the
// session is no longer active, max_turns is hit, or there is nothing
// left to reason over (status becomes Waiting). Mirrors agent_loop.rs's
// Runtime::agent_loop.
func (rt *Runtime) agentLoop(ctx context.Context) error {
	for {
		if !rt.sess.IsActive() {
			return nil
		}

		maxTurns := rt.sess.Config().MaxTurns
		if maxTurns > 0 && rt.sess.TurnCount() >= maxTurns {
			return rt.sess.SetStatus(session.StatusCompleted)
		}

		if !rt.hasPendingToolResults() {
			return rt.sess.SetStatus(session.StatusWaiting)
		}

		if err := rt.processToolResults(ctx); err != nil {
			return err
		}
	}
}

// hasPendingToolResults reports whether the last turn in the log is a
// Tool-role turn the model hasn't reasoned over yet.
func (rt *Runtime) hasPendingToolResults() bool {
	last, ok := rt.sess.LastTurn()
	return ok && last.Role == session.RoleTool
}

// processMessage appends the user's turn, fires the user_intent hook,
// and drives one LLM call. Mirrors agent_loop.rs's Runtime::process_message.
func (rt *Runtime) processMessage(ctx context.Context, message string) error {
	rt.emit(event.TurnStart(session.RoleUser))

	if rt.mem != nil {
		rt.mem.StoreUserIntent(message, summarizeIntent(message), graphstore.EventLinks{})
	}

	userTurn := session.NewTurn(session.RoleUser).WithBlock(session.TextBlock(message))
	if err := rt.sess.AppendTurn(userTurn); err != nil {
		return err
	}

	req, err := rt.prepareLLMCall(ctx, message)
	if err != nil {
		return err
	}
	if err := rt.streamLLMResponse(ctx, req); err != nil {
		return err
	}

	rt.emit(event.TurnEnd())
	return nil
}

// processToolResults re-prepares and re-streams against the last user
// message, then records a decision event. Mirrors agent_loop.rs's
// Runtime::process_tool_results.
func (rt *Runtime) processToolResults(ctx context.Context) error {
	query := rt.lastUserMessage()

	req, err := rt.prepareLLMCall(ctx, query)
	if err != nil {
		return err
	}
	if err := rt.streamLLMResponse(ctx, req); err != nil {
		return err
	}

	if rt.mem != nil {
		rt.mem.StoreDecision("Processed tool results and continued reasoning", nil, graphstore.EventLinks{})
	}
	return nil
}

// lastUserMessage returns the most recent User-role turn's text.
// Mirrors agent_loop.rs's Runtime::last_user_message.
func (rt *Runtime) lastUserMessage() string {
	return rt.sess.LastUserText()
}

// runTask is the dispatcher.TaskRunner wired in at construction: it
// spawns a fresh sub-agent Runtime sharing this Runtime's Tool Registry,
// Memory Client, LLM Provider, and event channel, gives it its own
// Session capped at 30 turns, and returns the sub-agent's last
// assistant text (or a status fallback) as the "task" tool's result.
//
// Unlike original_source's run_task_tool, no separate forwarding
// goroutine relays sub-agent events into the parent's channel: a Go
// channel accepts sends from multiple goroutines natively, so the
// child Runtime is simply given the parent's events channel directly.
func (rt *Runtime) runTask(ctx context.Context, prompt, description string) (string, error) {
	rt.emit(event.Status(fmt.Sprintf("Sub-agent: %s", description)))

	childCfg := rt.sess.Config()
	childCfg.MaxTurns = 30

	childDispatch := dispatcher.New(rt.registry, rt.mem, rt.approval)
	child := New(childCfg, rt.provider, rt.registry, rt.mem, childDispatch, rt.approval, rt.events, rt.estimator)

	status, err := child.Run(ctx, prompt)
	if err != nil {
		return "", err
	}

	summary := lastAssistantText(child.sess)
	if summary == "" {
		summary = fmt.Sprintf("Task completed: %s", status)
	}
	return summary, nil
}

// lastAssistantText scans turns in reverse for the most recent
// Assistant-role turn with non-empty text.
func lastAssistantText(sess *session.Session) string {
	turns := sess.Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != session.RoleAssistant {
			continue
		}
		if text := turns[i].Text(); text != "" {
			return text
		}
	}
	return ""
}
