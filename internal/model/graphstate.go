package model

import "time"

// Action is the critic's terminal routing decision (spec.md §4.6/§GLOSSARY).
type Action string

const (
	ActionAnswer  Action = "answer"
	ActionClarify Action = "clarify"
	ActionAbstain Action = "abstain"
)

// Refinement records one refine_retrieve cycle (spec.md §4.7).
type Refinement struct {
	Iteration int    `json:"iteration"`
	SubQuery  string `json:"subQuery"`
	Reason    string `json:"reason"`
}

// GraphState is the per-query mutable record the executor threads through
// the node sequence (spec.md §3). The executor exclusively owns it; nodes
// receive and return it by value so each step's mutation is explicit.
type GraphState struct {
	Question string
	ThreadID string
	UserID   string

	Plan     string
	SubQuery string

	Candidates []Candidate
	Evidence   string
	Iteration  int

	Confidence float64
	Action     Action

	Refinements []Refinement

	FinalAnswer string
	Citations   []CitationRef

	// Scope hints (spec.md §3, §4.7, §9 Open Question 2).
	DocFilter       []string
	DocExclude      []string
	CrossDoc        bool
	UploadedDocIDs  []string
	SelectedDocIDs  []string

	// StartedAt/Deadline back the per-query timeout (spec.md §5).
	StartedAt time.Time
	Deadline  time.Time

	// Err is set when the executor terminates early on a node exception
	// that has no local fallback (spec.md §4.8, §7).
	Err error
}

// ExplicitDocSelection reports whether any doc-scope hint was supplied,
// which governs the synthesizer's threshold choice (spec.md §4.7) and the
// confidence scorer's legacy fallback thresholds (spec.md §4.6).
func (s GraphState) ExplicitDocSelection() bool {
	return len(s.DocFilter) > 0 || len(s.UploadedDocIDs) > 0 || len(s.SelectedDocIDs) > 0
}

// EffectiveDocFilter is the union of doc_filter, uploaded_doc_ids, and
// selected_doc_ids used to scope retrieval when more than one is supplied
// (spec.md §9 Open Question 2 — decided: union for scoping, "any non-empty"
// for threshold selection).
func (s GraphState) EffectiveDocFilter() []string {
	if !s.ExplicitDocSelection() {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{s.DocFilter, s.UploadedDocIDs, s.SelectedDocIDs} {
		for _, id := range group {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// CitationRef maps an inline citation number to its source chunk (spec.md
// §4.11).
type CitationRef struct {
	Index      int     `json:"index"`
	ChunkID    string  `json:"chunkId"`
	DocID      string  `json:"docId"`
	PageStart  int     `json:"pageStart"`
	PageEnd    int     `json:"pageEnd"`
	Relevance  float64 `json:"relevance"`
	Excerpt    string  `json:"excerpt"`
}
