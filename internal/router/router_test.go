package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/meridian-ai/ragcore/internal/graph"
	"github.com/meridian-ai/ragcore/internal/handler"
	"github.com/meridian-ai/ragcore/internal/model"
)

type mockDB struct{ err error }

func (m *mockDB) Ping(ctx context.Context) error { return m.err }

type fakeGraphRunner struct {
	state model.GraphState
}

func (f *fakeGraphRunner) Run(ctx context.Context, in graph.Input, observe graph.StepObserver) model.GraphState {
	return f.state
}

func TestRouter_HealthEndpoint(t *testing.T) {
	deps := &Dependencies{DB: &mockDB{}, Version: "test"}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_AnswerEndpoint(t *testing.T) {
	deps := &Dependencies{
		DB:      &mockDB{},
		Version: "test",
		AnswerDeps: handler.AnswerDeps{
			Graph: &fakeGraphRunner{state: model.GraphState{
				FinalAnswer: "the answer",
				Action:      model.ActionAnswer,
				Confidence:  0.9,
			}},
		},
	}
	r := New(deps)

	body := `{"userId":"u1","question":"what is it?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/answer", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestRouter_NotFound(t *testing.T) {
	deps := &Dependencies{DB: &mockDB{}, Version: "test"}
	r := New(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
