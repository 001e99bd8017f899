package model

import (
	"encoding/json"
	"time"
)

// EntryPoint is the caller surface that originated a query (spec.md §3/§6.4).
type EntryPoint string

const (
	EntryCLI  EntryPoint = "cli"
	EntryREST EntryPoint = "rest"
	EntryMake EntryPoint = "make"
	EntryTOML EntryPoint = "toml"
)

// PipelineType distinguishes the direct executor from a LangGraph-style one.
type PipelineType string

const (
	PipelineDirect    PipelineType = "direct"
	PipelineLangGraph PipelineType = "langgraph"
)

// ThreadRecord is the audit/persistence row for one top-level query
// invocation (spec.md §3, §4.10, §6.3). Inserted once on start and updated
// once on completion; never mutated after completion except the Archived
// flag.
type ThreadRecord struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"userId"`
	ThreadID      string          `json:"threadId"`
	DocIDs        []string        `json:"docIds"`
	QueryText     string          `json:"queryText"`
	FinalAnswer   string          `json:"finalAnswer"`
	GraphState    json.RawMessage `json:"graphState"`
	IngestionMeta json.RawMessage `json:"ingestionMeta,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	EntryPoint    EntryPoint      `json:"entryPoint"`
	PipelineType  PipelineType    `json:"pipelineType"`
	CrossDoc      bool            `json:"crossDoc"`
	Archived      bool            `json:"archived"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// ThreadSummary is the lightweight row returned by ListThreads.
type ThreadSummary struct {
	ThreadID     string    `json:"threadId"`
	QueryText    string    `json:"queryText"`
	FinalAnswer  string    `json:"finalAnswer"`
	LastActivity time.Time `json:"lastActivity"`
	Archived     bool      `json:"archived"`
}
