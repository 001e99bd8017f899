// Package citation implements the post-synthesis citation pruner (spec.md
// §4.11): dangling citation lines and inline confidence fragments are
// stripped from an answer without touching the surrounding prose.
package citation

import (
	"regexp"
	"strings"
)

// bodyMarkerRe matches an inline [N] citation marker anywhere in the text.
var bodyMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// citationLineRe matches a trailing citation line: "[N] doc:<DOCID> p<start>-<end>".
var citationLineRe = regexp.MustCompile(`^\[(\d+)\]\s+doc:\S+\s+p\d+-\d+\s*$`)

// confidenceFragmentRe matches an inline "(confidence: XX.X%)" fragment.
var confidenceFragmentRe = regexp.MustCompile(`\s*\(confidence:\s*[\d.]+%\)`)

// Prune removes citation lines whose [N] marker does not appear elsewhere
// in the body, and strips inline "(confidence: XX.X%)" fragments. It is
// idempotent: pruning an already-pruned answer is a no-op.
func Prune(answer string) string {
	answer = confidenceFragmentRe.ReplaceAllString(answer, "")

	lines := strings.Split(answer, "\n")
	var bodyLines []string
	var citationLines []string
	for _, line := range lines {
		if citationLineRe.MatchString(strings.TrimSpace(line)) {
			citationLines = append(citationLines, line)
		} else {
			bodyLines = append(bodyLines, line)
		}
	}

	body := strings.Join(bodyLines, "\n")
	usedMarkers := make(map[string]bool)
	for _, m := range bodyMarkerRe.FindAllStringSubmatch(body, -1) {
		usedMarkers[m[1]] = true
	}

	if len(citationLines) == 0 {
		return strings.TrimRight(body, "\n")
	}
	var out []string
	for _, line := range lines {
		marker := citationLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if marker != nil && !usedMarkers[marker[1]] {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
