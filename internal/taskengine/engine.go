// Package taskengine owns the Task state machine: creation, capability
// dispatch, contribution intake, merge-on-completion, cancellation, and
// expiry. One Engine is the single writer of every Task it creates.
package taskengine

import (
	"context"
	"sync"
	"time"

	"github.com/cloi-dev/hub/internal/handler"
	"github.com/cloi-dev/hub/internal/hubcore"
)

// AgentFinder is the capability-based lookup the engine needs from the
// agent registry; satisfied by *agentregistry.Registry.
type AgentFinder interface {
	Find(required []string) []hubcore.AgentRecord
}

// Clock abstracts time.Now for deterministic tests.
type Clock func() time.Time

// Config tunes engine-wide behavior not carried on individual tasks.
type Config struct {
	// ConsensusThreshold is the winning proposal's minimum share of
	// total submitted vote weight, in (0, 1]. Defaults to 0.5.
	ConsensusThreshold float64
}

// Engine is the single-writer owner of every Task it creates.
type Engine struct {
	mu    sync.Mutex
	tasks map[string]*hubcore.Task

	agents    AgentFinder
	handler   handler.Handler
	now       Clock
	threshold float64
}

// New creates an Engine. agents supplies capability-based dispatch; h is
// the Handler Interface (C6) invoked whenever a task has no peer agent
// to dispatch to. A nil h defaults to handler.Stub{}, matching the
// hub's ship-with-a-working-default stance.
func New(agents AgentFinder, h handler.Handler, cfg Config) *Engine {
	threshold := cfg.ConsensusThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	if h == nil {
		h = handler.Stub{}
	}
	return &Engine{
		tasks:     make(map[string]*hubcore.Task),
		agents:    agents,
		handler:   h,
		now:       time.Now,
		threshold: threshold,
	}
}

// WithClock overrides the time source, for deterministic tests.
func (e *Engine) WithClock(clock Clock) *Engine {
	e.now = clock
	return e
}

// Create dispatches a new task to every registered agent whose
// capabilities are a superset of required, under the named
// coordination pattern. input is the task's originating request text;
// it is only consulted when no peer agent matches (see below). Create
// returns KindInvalidParams if pattern is not one of the three known
// values.
//
// When no agent satisfies required, the task does not fail with
// KindNoSuitableAgents: the engine answers the request itself by
// invoking its Handler Interface (C6) on input and completing the task
// with the handler's Result. This is the default, no-peer baseline
// every hub can answer even with an empty registry.
func (e *Engine) Create(ctx context.Context, requester, input string, required []string, pattern hubcore.CoordinationPatternName) (hubcore.Task, error) {
	p, ok := patternByName(pattern, e.threshold)
	if !ok {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindInvalidParams, "unknown coordination pattern")
	}

	matched := e.agents.Find(required)

	now := e.now()
	task := &hubcore.Task{
		ID:                   hubcore.NewIdentity(),
		ContextID:            hubcore.NewIdentity(),
		RequiredCapabilities: required,
		Requester:            requester,
		Participants:         p.Initiate(matched),
		State:                hubcore.TaskStateWorking,
		CoordinationPattern:  pattern,
		CreatedAt:            now,
		UpdatedAt:            now,
		StatusHistory: []hubcore.StatusEntry{
			{State: hubcore.TaskStateSubmitted, Timestamp: now},
			{State: hubcore.TaskStateWorking, Timestamp: now},
		},
	}

	e.mu.Lock()
	e.tasks[task.ID] = task
	e.mu.Unlock()

	if len(matched) == 0 {
		result, err := e.handler.Handle(ctx, input)
		e.mu.Lock()
		at := e.now()
		if err != nil {
			e.transitionLocked(task, hubcore.TaskStateFailed, err.Error(), at)
		} else {
			task.Result = result
			e.transitionLocked(task, hubcore.TaskStateCompleted, "", at)
		}
		e.mu.Unlock()
	}

	return *task, nil
}

// Get returns a copy of the task with id.
func (e *Engine) Get(id string) (hubcore.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[id]
	if !ok {
		return hubcore.Task{}, false
	}
	return *task, true
}

// Contribute records a participant's contribution to a working task
// and, once the task's coordination pattern judges enough contributions
// are in, merges them into the task's terminal Result. It returns
// KindTaskNotFound if id is unknown, KindInvalidRequest if identity is
// not a participant, and KindTaskNotCancelable-equivalent (InternalError
// is not used; InvalidRequest is reused) if the task has already
// reached a terminal state.
func (e *Engine) Contribute(id, identity string, contribution any) (hubcore.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[id]
	if !ok {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindTaskNotFound, id)
	}
	if task.State.Terminal() {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindInvalidRequest, "task has already reached a terminal state")
	}

	found := false
	for i := range task.Participants {
		if task.Participants[i].Identity == identity {
			task.Participants[i].Contribution = contribution
			task.Participants[i].SubmittedAt = e.now()
			found = true
			break
		}
	}
	if !found {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindInvalidRequest, "identity is not a participant in this task")
	}

	p, _ := patternByName(task.CoordinationPattern, e.threshold)
	result, reached, mergeErr := p.Merge(task)
	now := e.now()
	task.UpdatedAt = now

	if mergeErr != nil {
		e.transitionLocked(task, hubcore.TaskStateFailed, mergeErr.Error(), now)
		return *task, nil
	}
	if reached {
		task.Result = result
		e.transitionLocked(task, hubcore.TaskStateCompleted, "", now)
	}
	return *task, nil
}

// Cancel transitions a task to canceled. Only the task's own
// Requester may cancel it, and only while it is not yet terminal.
func (e *Engine) Cancel(id, requester string) (hubcore.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task, ok := e.tasks[id]
	if !ok {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindTaskNotFound, id)
	}
	if task.Requester != requester {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindTaskNotCancelable, "only the requesting agent may cancel this task")
	}
	if task.State.Terminal() {
		return hubcore.Task{}, hubcore.NewError(hubcore.KindTaskNotCancelable, "task has already reached a terminal state")
	}

	e.transitionLocked(task, hubcore.TaskStateCanceled, "canceled by requester", e.now())
	return *task, nil
}

// Expire transitions every non-terminal task whose UpdatedAt is more
// than olderThan ago to the expired state. It is intended to be driven by
// internal/scheduler on a recurring basis.
func (e *Engine) Expire(olderThan time.Duration) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-olderThan)
	var expired []string
	for id, task := range e.tasks {
		if task.State.Terminal() {
			continue
		}
		if task.UpdatedAt.Before(cutoff) {
			e.transitionLocked(task, hubcore.TaskStateExpired, "expired without reaching a terminal state", e.now())
			expired = append(expired, id)
		}
	}
	return expired
}

// transitionLocked must be called with e.mu held.
func (e *Engine) transitionLocked(task *hubcore.Task, state hubcore.TaskState, reason string, at time.Time) {
	task.State = state
	task.UpdatedAt = at
	task.StatusHistory = append(task.StatusHistory, hubcore.StatusEntry{State: state, Timestamp: at, Reason: reason})
	if state.Terminal() {
		task.CompletedAt = at
	}
}

// All returns a copy of every task, for diagnostics and status queries.
func (e *Engine) All() []hubcore.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]hubcore.Task, 0, len(e.tasks))
	for _, t := range e.tasks {
		out = append(out, *t)
	}
	return out
}
