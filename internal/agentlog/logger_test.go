package agentlog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/meridian-ai/ragcore/internal/graph"
	"github.com/meridian-ai/ragcore/internal/model"
)

func TestLogger_WritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	state := model.GraphState{ThreadID: "sess-1", Question: "what is revenue?"}
	l.Record(graph.StepEvent{NodeName: "planner", State: state})
	l.Record(graph.StepEvent{NodeName: "retriever", State: state})

	f, err := os.Open(filepath.Join(dir, "sess-1.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Fatalf("expected header row, got %v", rows[0])
	}
	if rows[1][2] != "planner" || rows[2][2] != "retriever" {
		t.Fatalf("unexpected node_name values: %v / %v", rows[1][2], rows[2][2])
	}
}

func TestLogger_SeparatesSessions(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	l.Record(graph.StepEvent{NodeName: "planner", State: model.GraphState{ThreadID: "a"}})
	l.Record(graph.StepEvent{NodeName: "planner", State: model.GraphState{ThreadID: "b"}})

	if _, err := os.Stat(filepath.Join(dir, "a.csv")); err != nil {
		t.Fatalf("expected a.csv: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.csv")); err != nil {
		t.Fatalf("expected b.csv: %v", err)
	}
}

func TestLogger_TXTContainsFinalAnswer(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	state := model.GraphState{ThreadID: "sess-2", FinalAnswer: "the answer is 42"}
	l.Record(graph.StepEvent{NodeName: "synthesizer", State: state})

	raw, err := os.ReadFile(filepath.Join(dir, "sess-2.txt"))
	if err != nil {
		t.Fatalf("read txt: %v", err)
	}
	if !strings.Contains(string(raw), "the answer is 42") {
		t.Fatalf("expected final answer in txt log, got: %s", raw)
	}
}

func TestLogger_MissingThreadIDFallsBackToUnknown(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	l.Record(graph.StepEvent{NodeName: "planner", State: model.GraphState{}})

	if _, err := os.Stat(filepath.Join(dir, "unknown.csv")); err != nil {
		t.Fatalf("expected unknown.csv for empty thread id: %v", err)
	}
}

func TestLogger_ObserverAdaptsToStepObserver(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer l.Close()

	var obs graph.StepObserver = l.Observer()
	obs(graph.StepEvent{NodeName: "critic", State: model.GraphState{ThreadID: "sess-3"}})

	if _, err := os.Stat(filepath.Join(dir, "sess-3.csv")); err != nil {
		t.Fatalf("expected sess-3.csv: %v", err)
	}
}
