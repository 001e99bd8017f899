package graph

import (
	"fmt"
	"strings"

	"github.com/meridian-ai/ragcore/internal/model"
)

// perChunkCharCap bounds how much of any single chunk's text enters the
// evidence bundle, so one long chunk cannot starve the others within the
// overall budget (spec.md §4.7).
const perChunkCharCap = 1200

// Compress builds the extractive evidence bundle the synthesizer reads:
// each selected chunk's text prefixed by "[index] doc:DOCID p{start}-{end}",
// concatenated up to the configured character budget (spec.md §4.7).
// Compression is purely extractive, never generative.
func (g *Graph) Compress(state model.GraphState) model.GraphState {
	var b strings.Builder
	budget := g.cfg.CompressionBudgetChars
	if budget <= 0 {
		budget = 4000
	}

	for i, c := range state.Candidates {
		text := c.Text
		if len(text) > perChunkCharCap {
			text = text[:perChunkCharCap]
		}
		entry := fmt.Sprintf("[%d] doc:%s p%d-%d\n%s\n\n", i+1, c.DocID, c.PageStart, c.PageEnd, text)
		if b.Len()+len(entry) > budget {
			remaining := budget - b.Len()
			if remaining <= 0 {
				break
			}
			b.WriteString(entry[:remaining])
			break
		}
		b.WriteString(entry)
	}

	state.Evidence = b.String()
	return state
}
