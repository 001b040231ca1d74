// Package scheduler implements the parallel action executor.
package scheduler

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scheduler executes actions in dependency order. Sibling actions run
// concurrently up to the parallelism cap; syncio actions additionally
// serialize behind a process-wide console lock and run unbuffered.
type Scheduler struct {
	spawner   domain.Spawner
	telemetry ports.Telemetry
	logger    ports.Logger

	console sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(spawner domain.Spawner, telemetry ports.Telemetry, logger ports.Logger) *Scheduler {
	return &Scheduler{
		spawner:   spawner,
		telemetry: telemetry,
		logger:    logger,
	}
}

type result struct {
	action *domain.Action
	err    error
}

type runState struct {
	inDegree   map[*domain.Action]int
	dependents map[*domain.Action][]*domain.Action
	ready      []*domain.Action
	active     int
	resultsCh  chan result
	errs       error
	failed     bool
}

// Run executes the given actions honoring their dependency edges.
// Dependencies outside the selection are assumed terminal already. A
// failed action is fatal for its transitive dependents but unrelated
// branches keep running; the joined error reports every failure plus
// the count of actions never started.
func (s *Scheduler) Run(ctx context.Context, actions []*domain.Action, parallelism int) error {
	if parallelism < 1 {
		parallelism = 1
	}
	state := newRunState(actions)
	sem := semaphore.NewWeighted(int64(parallelism))
	done := ctx.Done()

	for !state.isDone() {
		s.schedule(ctx, state, sem)

		if state.isDone() {
			break
		}
		if ctx.Err() != nil && state.active == 0 {
			break
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-done:
			// Observed once; block on results alone while the in-flight
			// actions drain.
			done = nil
		}
	}

	if blocked := state.blockedCount(); blocked > 0 {
		state.errs = errors.Join(state.errs, zerr.With(
			zerr.Wrap(domain.ErrBuildFailed, "dependent actions were not started"),
			"blocked", blocked))
	}
	if ctx.Err() != nil {
		state.errs = errors.Join(state.errs, ctx.Err())
	}
	return state.errs
}

func newRunState(actions []*domain.Action) *runState {
	selected := make(map[*domain.Action]bool, len(actions))
	for _, a := range actions {
		selected[a] = true
	}

	state := &runState{
		inDegree:   make(map[*domain.Action]int, len(actions)),
		dependents: make(map[*domain.Action][]*domain.Action),
		resultsCh:  make(chan result),
	}
	for _, a := range actions {
		degree := 0
		for _, dep := range a.Deps {
			if selected[dep] {
				degree++
				state.dependents[dep] = append(state.dependents[dep], a)
			}
		}
		state.inDegree[a] = degree
		if degree == 0 {
			state.ready = append(state.ready, a)
		}
	}
	return state
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

// blockedCount counts selected actions that never became ready.
func (state *runState) blockedCount() int {
	blocked := 0
	for _, degree := range state.inDegree {
		if degree > 0 {
			blocked++
		}
	}
	return blocked
}

func (s *Scheduler) schedule(ctx context.Context, state *runState, sem *semaphore.Weighted) {
	for len(state.ready) > 0 && ctx.Err() == nil {
		if !sem.TryAcquire(1) {
			return
		}
		action := state.ready[0]
		state.ready = state.ready[1:]
		state.active++

		go func(a *domain.Action) {
			defer sem.Release(1)
			state.resultsCh <- result{action: a, err: s.runAction(ctx, a)}
		}(action)
	}
}

func (state *runState) handleResult(res result) {
	state.active--
	if res.err != nil {
		state.failed = true
		state.errs = errors.Join(state.errs, zerr.With(
			zerr.Wrap(res.err, "action failed"),
			"action", res.action.LongName()))
		return
	}
	for _, dep := range state.dependents[res.action] {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
			delete(state.inDegree, dep)
		}
	}
	delete(state.inDegree, res.action)
}

// runAction executes one action behind a telemetry vertex. Skippable
// actions are marked cached without running their payload.
func (s *Scheduler) runAction(ctx context.Context, a *domain.Action) error {
	_, vertex := s.telemetry.Record(ctx, a.Display())

	if a.IsSkippable() {
		if err := a.Skip(); err != nil {
			vertex.Complete(err)
			return err
		}
		vertex.Cached()
		vertex.Complete(nil)
		return nil
	}

	progress := domain.NewProgress(s.spawner, !a.Syncio)
	progress.OnUpdate(vertex.Progress)
	stopAbort := context.AfterFunc(ctx, progress.Abort)
	defer stopAbort()

	if a.Syncio {
		// Exclusive interactive access to the real streams.
		s.console.Lock()
		defer s.console.Unlock()
	}

	code, err := a.Execute(ctx, progress)
	if progress.Buffered() && progress.HasOutput() {
		if _, werr := progress.WriteTo(vertex.Stdout()); werr != nil {
			s.logger.Warn("failed to flush action output")
		}
	}
	if err != nil {
		vertex.Complete(err)
		return err
	}
	if code != 0 {
		ferr := zerr.With(zerr.Wrap(domain.ErrBuildFailed, "action exited with a nonzero code"),
			"code", code)
		vertex.Complete(ferr)
		return ferr
	}
	vertex.Complete(nil)
	return nil
}
