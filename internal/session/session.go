// Package session implements the single-writer, in-memory turn log that
// backs one agent run: ordered turns, lifecycle status, cumulative token
// accounting, and run timing. The orchestrator is the sole writer;
// concurrent readers (a TUI, a summary emitter) must go through Summary
// or Turns, which copy state out from under the lock.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusRunning   Status = "running"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status admits no further mutation.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// ErrTerminalSession is returned when a mutation is attempted on a
// session whose status is already terminal.
var ErrTerminalSession = errors.New("session: mutation attempted on terminal session")

// ErrInvalidTransition is returned for a status change that isn't a legal
// forward transition.
var ErrInvalidTransition = errors.New("session: invalid status transition")

// Config is the subset of runtime configuration a Session remembers for
// its own lifetime and for continuation sessions.
type Config struct {
	Model         string
	Provider      string
	MaxTurns      int
	ContextLimit  int
	MemoryLimit   int
	MaxTokens     int
	RepoRoot      string
}

// Summary is the derived, copyable view of a Session returned by
// Session.Summary(): (session id, status, run duration, totals, turn
// count, tool-name set preserving first-seen order, first user-text
// preview, creation instant).
type Summary struct {
	ID               string
	Status           Status
	LastRunDuration  time.Duration
	PromptTokens     int
	CompletionTokens int
	TurnCount        int
	ToolNames        []string
	FirstUserPreview string
	CreatedAt        time.Time
}

// Session is the ordered turn log for one run. All mutation methods are
// safe for the single orchestrator writer; read methods are additionally
// safe for concurrent readers.
type Session struct {
	mu sync.RWMutex

	id       string
	parentID string
	repoRoot string
	config   Config
	status   Status

	turns []Turn

	totalPrompt     int
	totalCompletion int

	createdAt     time.Time
	runStart      time.Time
	lastRunDur    time.Duration
	firstUserText string

	toolNamesSeen map[string]struct{}
	toolNameOrder []string
}

// New creates a fresh Active session.
func New(cfg Config) *Session {
	return &Session{
		id:            uuid.NewString(),
		repoRoot:      cfg.RepoRoot,
		config:        cfg,
		status:        StatusActive,
		createdAt:     time.Now(),
		toolNamesSeen: make(map[string]struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// ParentID returns the id of the session this one continues from, or "".
func (s *Session) ParentID() string { return s.parentID }

// RepoRoot returns the repository root this session operates against.
func (s *Session) RepoRoot() string { return s.repoRoot }

// Config returns a copy of the session's runtime configuration.
func (s *Session) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus transitions the session to status. Fails fast if the current
// status is terminal.
func (s *Session) SetStatus(status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return fmt.Errorf("%w: session %s is %s", ErrTerminalSession, s.id, s.status)
	}
	s.status = status
	return nil
}

// IsActive reports whether the session can still be driven forward:
// true for any non-terminal status (Active, Running or Waiting).
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.status.IsTerminal()
}

// AppendTurn appends turn to the log and folds in its usage, if any.
// Fails fast if the session is terminal.
func (s *Session) AppendTurn(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsTerminal() {
		return fmt.Errorf("%w: cannot append turn to session %s", ErrTerminalSession, s.id)
	}

	if t.Role == RoleUser && s.firstUserText == "" {
		s.firstUserText = preview(t.Text(), 120)
	}

	for _, tu := range t.ToolUses() {
		if _, seen := s.toolNamesSeen[tu.Name]; !seen {
			s.toolNamesSeen[tu.Name] = struct{}{}
			s.toolNameOrder = append(s.toolNameOrder, tu.Name)
		}
	}

	if t.Usage != nil {
		s.totalPrompt, s.totalCompletion = saturatingAdd(s.totalPrompt, s.totalCompletion, *t.Usage)
	}

	s.turns = append(s.turns, t)
	return nil
}

func saturatingAdd(prompt, completion int, u Usage) (int, int) {
	np := prompt + u.PromptTokens
	if np < prompt {
		np = prompt
	}
	nc := completion + u.CompletionTokens
	if nc < completion {
		nc = completion
	}
	return np, nc
}

// Turns returns a copy of the turn slice. Safe for concurrent callers.
func (s *Session) Turns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// ReplaceTurns overwrites the turn log (used by context compression). Does
// not touch token totals — compression summarises content, not usage.
func (s *Session) ReplaceTurns(turns []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = turns
}

// TurnCount returns the number of turns currently in the log.
func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// LastTurn returns the most recent turn and true, or the zero Turn and
// false if the log is empty.
func (s *Session) LastTurn() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

// LastUserText returns the text of the most recent User-role turn.
func (s *Session) LastUserText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleUser {
			return s.turns[i].Text()
		}
	}
	return ""
}

// TokenTotals returns the cumulative prompt and completion token counts.
func (s *Session) TokenTotals() (prompt, completion int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPrompt, s.totalCompletion
}

// StartRun stamps the current instant as the start of a run.
func (s *Session) StartRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runStart = time.Now()
}

// FinishRun records the elapsed duration since StartRun.
func (s *Session) FinishRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runStart.IsZero() {
		s.lastRunDur = time.Since(s.runStart)
	}
}

// Summary derives the (session id, status, run duration, totals, turn
// count, tool-name set, first user preview, creation instant) tuple.
func (s *Session) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.toolNameOrder))
	copy(names, s.toolNameOrder)
	return Summary{
		ID:               s.id,
		Status:           s.status,
		LastRunDuration:  s.lastRunDur,
		PromptTokens:     s.totalPrompt,
		CompletionTokens: s.totalCompletion,
		TurnCount:        len(s.turns),
		ToolNames:        names,
		FirstUserPreview: s.firstUserText,
		CreatedAt:        s.createdAt,
	}
}

// Continue spawns a continuation session copying repo root and config,
// stamping the new session's ParentID with this session's id.
func (s *Session) Continue() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child := New(s.config)
	child.parentID = s.id
	child.repoRoot = s.repoRoot
	return child
}

func preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max]
}
