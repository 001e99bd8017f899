package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-ai/ragcore/internal/model"
)

// StepEvent is emitted once per executed node, for the agent logger
// (spec.md §4.9).
type StepEvent struct {
	NodeName string
	State    model.GraphState
}

// StepObserver receives one StepEvent per node the executor runs. The
// executor never fails a query because an observer call fails; callers
// that need that guarantee should make their observer itself
// warn-and-continue, as the agent logger does.
type StepObserver func(StepEvent)

// Input holds the per-query inputs the executor initializes state from
// (spec.md §4.8).
type Input struct {
	Question       string
	ThreadID       string
	UserID         string
	DocFilter      []string
	DocExclude     []string
	CrossDoc       bool
	UploadedDocIDs []string
	SelectedDocIDs []string
	Deadline       time.Time

	// DocTitle/DocPreview feed the planner's single-doc context hint.
	DocTitle   string
	DocPreview string
}

// Run executes the full node sequence: planner -> retriever -> compressor
// -> critic -> {refine -> retriever -> compressor -> critic | synthesizer}
// (spec.md §4.8). It enforces iterations <= MAX_ITERS and the per-query
// deadline, and finalizes to abstain on any unhandled node error.
func (g *Graph) Run(ctx context.Context, in Input, observe StepObserver) model.GraphState {
	state := model.GraphState{
		Question:       in.Question,
		ThreadID:       in.ThreadID,
		UserID:         in.UserID,
		DocFilter:      in.DocFilter,
		DocExclude:     in.DocExclude,
		CrossDoc:       in.CrossDoc,
		UploadedDocIDs: in.UploadedDocIDs,
		SelectedDocIDs: in.SelectedDocIDs,
		StartedAt:      time.Now(),
		Deadline:       in.Deadline,
	}

	if !in.Deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, in.Deadline)
		defer cancel()
	}

	emit := func(node string, s model.GraphState) {
		if observe != nil {
			observe(StepEvent{NodeName: node, State: s})
		}
	}

	state = g.Plan(ctx, state, in.DocTitle, in.DocPreview)
	emit("planner", state)

	for {
		if deadlineExceeded(ctx) {
			return g.finalizeAbstain(ctx, state, emit)
		}

		next, err := g.Retrieve(ctx, state)
		if err != nil {
			return g.finalizeAbstain(ctx, annotateErr(state, err), emit)
		}
		state = next
		emit("retriever", state)

		state = g.Compress(state)
		emit("compressor", state)

		if deadlineExceeded(ctx) {
			return g.finalizeAbstain(ctx, state, emit)
		}

		var route Route
		state, route = g.Critique(state)
		emit("critic", state)

		if route == RouteSynthesize {
			break
		}

		state = g.Refine(ctx, state)
		emit("refine_retrieve", state)
	}

	state = g.Synthesize(ctx, state)
	emit("synthesizer", state)
	return state
}

func deadlineExceeded(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

func annotateErr(state model.GraphState, err error) model.GraphState {
	state.Err = err
	return state
}

// finalizeAbstain routes directly to the synthesizer's abstain path,
// bypassing the LLM call, on a deadline expiry or an unrecoverable node
// error (spec.md §4.8, §7).
func (g *Graph) finalizeAbstain(ctx context.Context, state model.GraphState, emit func(string, model.GraphState)) model.GraphState {
	state.Action = model.ActionAbstain
	state.FinalAnswer = dontKnow
	state.Citations = nil
	if state.Err == nil && ctx.Err() != nil {
		state.Err = fmt.Errorf("graph.Run: %w", ctx.Err())
	}
	emit("synthesizer", state)
	return state
}
