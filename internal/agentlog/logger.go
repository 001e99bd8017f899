// Package agentlog implements the per-session agent logger (spec.md §4.9):
// one CSV (machine-readable) and one TXT (human-readable) file per
// session, written under a configured log directory. The session id is the
// query's thread_id, so queries that share a thread_id append to the same
// two files.
package agentlog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/meridian-ai/ragcore/internal/graph"
)

var csvHeader = []string{
	"timestamp", "session_id", "node_name", "action", "question", "plan",
	"query_used", "num_chunks", "pages", "confidence", "iterations",
	"refinements", "final_answer", "extra_metadata",
}

// Logger is one per process (spec.md §4.9 "Scope"). It opens a session's
// CSV handle lazily on its first write and keeps it open until Close; the
// TXT file is opened for append on every write. Writes happen under a
// single mutex: log appends are serialized per process by design
// (spec.md §5 "Shared resources").
type Logger struct {
	mu      sync.Mutex
	dir     string
	csvFile map[string]*csvSession
}

type csvSession struct {
	f *os.File
	w *csv.Writer
}

// New creates a Logger rooted at dir, creating the directory if absent.
func New(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("agentlog.New: %w", err)
	}
	return &Logger{dir: dir, csvFile: make(map[string]*csvSession)}, nil
}

// Observer adapts Logger to graph.StepObserver, so the executor can emit
// step events directly into it without the graph package knowing logging
// exists.
func (l *Logger) Observer() graph.StepObserver {
	return func(ev graph.StepEvent) {
		l.Record(ev)
	}
}

// Record writes one row/line for the given step event to both the CSV and
// TXT files for that session. Never fails the query: any write error is
// logged as a warning and the row is dropped (spec.md §4.9 "survive
// disk-full").
func (l *Logger) Record(ev graph.StepEvent) {
	sessionID := ev.State.ThreadID
	if sessionID == "" {
		sessionID = "unknown"
	}

	row := buildRow(sessionID, ev)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeCSVLocked(sessionID, row); err != nil {
		slog.Warn("[AGENT-LOG] csv write failed, dropping row", "session_id", sessionID, "error", err)
	}
	if err := l.writeTXTLocked(sessionID, ev); err != nil {
		slog.Warn("[AGENT-LOG] txt write failed, dropping line", "session_id", sessionID, "error", err)
	}
}

// Close flushes and closes every open session file handle. Call once at
// process shutdown.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, sess := range l.csvFile {
		sess.w.Flush()
		if err := sess.f.Close(); err != nil {
			slog.Warn("[AGENT-LOG] close failed", "session_id", id, "error", err)
		}
	}
}

func (l *Logger) writeCSVLocked(sessionID string, row []string) error {
	sess, ok := l.csvFile[sessionID]
	if !ok {
		path := filepath.Join(l.dir, sessionID+".csv")
		isNew := true
		if _, err := os.Stat(path); err == nil {
			isNew = false
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("agentlog.writeCSVLocked: open: %w", err)
		}
		w := csv.NewWriter(f)
		sess = &csvSession{f: f, w: w}
		l.csvFile[sessionID] = sess
		if isNew {
			if err := w.Write(csvHeader); err != nil {
				return fmt.Errorf("agentlog.writeCSVLocked: header: %w", err)
			}
		}
	}

	if err := sess.w.Write(row); err != nil {
		return fmt.Errorf("agentlog.writeCSVLocked: row: %w", err)
	}
	sess.w.Flush()
	if err := sess.w.Error(); err != nil {
		return fmt.Errorf("agentlog.writeCSVLocked: flush: %w", err)
	}
	return sess.f.Sync()
}

func (l *Logger) writeTXTLocked(sessionID string, ev graph.StepEvent) error {
	path := filepath.Join(l.dir, sessionID+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("agentlog.writeTXTLocked: open: %w", err)
	}
	defer f.Close()

	line := formatHumanLine(ev)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("agentlog.writeTXTLocked: write: %w", err)
	}
	return f.Sync()
}

func buildRow(sessionID string, ev graph.StepEvent) []string {
	s := ev.State

	pages := make([]string, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		pages = append(pages, c.DocID+"#p"+strconv.Itoa(c.PageStart)+"-"+strconv.Itoa(c.PageEnd))
	}
	pagesJSON, _ := json.Marshal(pages)

	refs := make([]string, 0, len(s.Refinements))
	for _, r := range s.Refinements {
		refs = append(refs, r.SubQuery)
	}
	refsJSON, _ := json.Marshal(refs)

	extra := map[string]any{
		"user_id":    s.UserID,
		"cross_doc":  s.CrossDoc,
		"doc_filter": s.DocFilter,
	}
	if s.Err != nil {
		extra["error"] = s.Err.Error()
	}
	extraJSON, _ := json.Marshal(extra)

	queryUsed := s.SubQuery
	if queryUsed == "" {
		queryUsed = s.Question
	}

	return []string{
		time.Now().UTC().Format(time.RFC3339Nano),
		sessionID,
		ev.NodeName,
		string(s.Action),
		s.Question,
		s.Plan,
		queryUsed,
		strconv.Itoa(len(s.Candidates)),
		string(pagesJSON),
		strconv.FormatFloat(s.Confidence, 'f', 4, 64),
		strconv.Itoa(s.Iteration),
		string(refsJSON),
		s.FinalAnswer,
		string(extraJSON),
	}
}

func formatHumanLine(ev graph.StepEvent) string {
	s := ev.State
	ts := time.Now().UTC().Format(time.RFC3339)
	if ev.NodeName == "synthesizer" && s.FinalAnswer != "" {
		return fmt.Sprintf("[%s] %-14s action=%-8s confidence=%.3f iterations=%d\n    answer: %s\n",
			ts, ev.NodeName, s.Action, s.Confidence, s.Iteration, truncate(s.FinalAnswer, 400))
	}
	return fmt.Sprintf("[%s] %-14s chunks=%d iterations=%d\n", ts, ev.NodeName, len(s.Candidates), s.Iteration)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
