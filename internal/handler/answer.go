package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-ai/ragcore/internal/cache"
	"github.com/meridian-ai/ragcore/internal/citation"
	"github.com/meridian-ai/ragcore/internal/graph"
	"github.com/meridian-ai/ragcore/internal/model"
)

// GraphRunner is the narrow surface AnswerDeps needs from graph.Graph.
type GraphRunner interface {
	Run(ctx context.Context, in graph.Input, observe graph.StepObserver) model.GraphState
}

// ThreadRecorder is the narrow surface AnswerDeps needs from tracker.Tracker.
type ThreadRecorder interface {
	InsertOnStart(ctx context.Context, userID, threadID, queryText string, entryPoint model.EntryPoint, pipelineType model.PipelineType, crossDoc bool) (int64, error)
	UpdateOnCompletion(ctx context.Context, recordID int64, finalAnswer string, docIDs []string, graphState any, metadata map[string]any) error
}

// AnswerDeps holds the collaborators the Answer handler wires together
// (spec.md §6.2's Answer operation, exposed over REST).
type AnswerDeps struct {
	Graph        GraphRunner
	Cache        cache.AnswerCache
	Tracker      ThreadRecorder
	Observer     graph.StepObserver
	EntryPoint   model.EntryPoint
	PipelineType model.PipelineType
	QueryTimeout time.Duration
}

// AnswerRequest is the JSON body for POST /api/answer.
type AnswerRequest struct {
	UserID         string   `json:"userId"`
	ThreadID       string   `json:"threadId"`
	Question       string   `json:"question"`
	DocFilter      []string `json:"docFilter"`
	DocExclude     []string `json:"docExclude"`
	CrossDoc       bool     `json:"crossDoc"`
	UploadedDocIDs []string `json:"uploadedDocIds"`
	SelectedDocIDs []string `json:"selectedDocIds"`
}

// AnswerResponse is the JSON body returned from POST /api/answer.
type AnswerResponse struct {
	Answer     string              `json:"answer"`
	Citations  []model.CitationRef `json:"citations"`
	Action     model.Action        `json:"action"`
	Confidence float64             `json:"confidence"`
	ThreadID   string              `json:"threadId"`
	Cached     bool                `json:"cached"`
}

// Answer handles POST /api/answer: cache lookup -> tracker insert ->
// graph.Run -> citation prune -> tracker update -> cache store (only for
// action=answer) (spec.md §4.1-§4.11). Cross-doc requests bypass the cache.
func Answer(deps AnswerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Question == "" {
			writeJSONError(w, http.StatusBadRequest, "question is required")
			return
		}
		if req.ThreadID == "" {
			req.ThreadID = uuid.New().String()
		}

		timeout := deps.QueryTimeout
		if timeout <= 0 {
			timeout = 3 * time.Minute
		}
		if req.CrossDoc {
			timeout = 10 * time.Minute
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if deps.Cache != nil && !req.CrossDoc {
			if cached, ok := deps.Cache.Get(ctx, req.UserID, req.Question, req.DocFilter); ok {
				writeJSON(w, http.StatusOK, AnswerResponse{
					Answer:     cached.FinalAnswer,
					Citations:  cached.Citations,
					Action:     cached.Action,
					Confidence: cached.Confidence,
					ThreadID:   req.ThreadID,
					Cached:     true,
				})
				return
			}
		}

		var recordID int64
		var haveRecord bool
		if deps.Tracker != nil {
			id, err := deps.Tracker.InsertOnStart(ctx, req.UserID, req.ThreadID, req.Question, deps.EntryPoint, deps.PipelineType, req.CrossDoc)
			if err == nil {
				recordID = id
				haveRecord = true
			}
		}

		deadline, _ := ctx.Deadline()
		state := deps.Graph.Run(ctx, graph.Input{
			Question:       req.Question,
			ThreadID:       req.ThreadID,
			UserID:         req.UserID,
			DocFilter:      req.DocFilter,
			DocExclude:     req.DocExclude,
			CrossDoc:       req.CrossDoc,
			UploadedDocIDs: req.UploadedDocIDs,
			SelectedDocIDs: req.SelectedDocIDs,
			Deadline:       deadline,
		}, deps.Observer)

		finalAnswer := citation.Prune(state.FinalAnswer)

		if haveRecord && deps.Tracker != nil {
			meta := map[string]any{
				"cross_doc": req.CrossDoc,
				"action":    state.Action,
			}
			if state.Err != nil {
				meta["error"] = state.Err.Error()
			}
			_ = deps.Tracker.UpdateOnCompletion(ctx, recordID, finalAnswer, state.EffectiveDocFilter(), state, meta)
		}

		result := cache.AnswerResult{
			FinalAnswer: finalAnswer,
			Citations:   state.Citations,
			Action:      state.Action,
			Confidence:  state.Confidence,
			Candidates:  state.Candidates,
		}
		if deps.Cache != nil && !req.CrossDoc && state.Action == model.ActionAnswer {
			deps.Cache.Set(ctx, req.UserID, req.Question, req.DocFilter, result)
		}

		writeJSON(w, http.StatusOK, AnswerResponse{
			Answer:     finalAnswer,
			Citations:  state.Citations,
			Action:     state.Action,
			Confidence: state.Confidence,
			ThreadID:   req.ThreadID,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
