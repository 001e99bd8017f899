package model

import (
	"encoding/json"
	"time"
)

// ContentType enumerates the kinds of chunk content the retriever ranks.
type ContentType string

const (
	ContentText       ContentType = "text"
	ContentImage      ContentType = "image"
	ContentMultimodal ContentType = "multimodal"
	ContentPDFText    ContentType = "pdf_text"
	ContentPDFImage   ContentType = "pdf_image"
)

// Document is an ingested source document. Ingestion, chunking, and OCR
// happen outside the core (spec.md §1); this is the read-side view the
// retriever and tracker operate on.
type Document struct {
	ID          string          `json:"docId"`
	Title       string          `json:"title"`
	SourcePath  string          `json:"sourcePath"`
	ContentHash string          `json:"contentHash"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Chunk is a contiguous passage of a Document with its own embedding and
// metadata (spec.md §3). Embedding width must equal the process-global
// configured dimension D; a mismatch is a fatal config error at startup,
// never a per-query failure.
type Chunk struct {
	ID          string          `json:"chunkId"`
	DocID       string          `json:"docId"`
	PageStart   int             `json:"pageStart"`
	PageEnd     int             `json:"pageEnd"`
	Section     string          `json:"section,omitempty"`
	Text        string          `json:"text"`
	IsOCR       bool            `json:"isOcr"`
	IsFigure    bool            `json:"isFigure"`
	ContentType ContentType     `json:"contentType"`
	ImagePath   string          `json:"imagePath,omitempty"`
	Embedding   []float32       `json:"-"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}
