// Package confidence implements the ten-feature scorer and action mapping
// described in spec.md §4.6.
package confidence

import (
	"math"
	"strconv"
	"strings"

	"github.com/meridian-ai/ragcore/internal/model"
)

// cosCoverageThreshold is the s_vec cutoff for feature f5 (spec.md §4.6).
const cosCoverageThreshold = 0.22

// Weights holds w0..w10 from spec.md §6.4.
type Weights [11]float64

// Thresholds holds the action-mapping cutoffs.
type Thresholds struct {
	Abstain float64
	Clarify float64
}

// Features holds the ten computed feature values f1..f10.
type Features struct {
	MaxRerank      float64
	Margin         float64
	MeanCosine     float64
	CosineStd      float64
	CosCoverage    float64
	BM25Norm       float64
	TermCoverage   float64
	UniquePageFrac float64
	DocDiversity   float64
	AnswerOverlap  float64
}

// Result is the scorer's output: the computed features, the aggregated
// probability, and the routed action.
type Result struct {
	Features Features
	Logit    float64
	P        float64
	Action   model.Action
}

// Score computes the ten features over candidates (C_K, typically 6-8
// items), aggregates them via the logistic weights, and maps the result
// to an action using the configured thresholds (spec.md §4.6).
//
// queryTerms is the sanitized term list from spec.md §4.1. provisionalAnswer
// may be empty, in which case f10 is 0.
func Score(candidates []model.Candidate, queryTerms []string, provisionalAnswer string, w Weights, th Thresholds) Result {
	f := computeFeatures(candidates, queryTerms, provisionalAnswer)

	logit := w[0] +
		w[1]*f.MaxRerank +
		w[2]*f.Margin +
		w[3]*f.MeanCosine +
		w[4]*f.CosineStd +
		w[5]*f.CosCoverage +
		w[6]*f.BM25Norm +
		w[7]*f.TermCoverage +
		w[8]*f.UniquePageFrac +
		w[9]*f.DocDiversity +
		w[10]*f.AnswerOverlap

	p := sigmoid(logit)

	action := model.ActionAbstain
	switch {
	case p >= th.Clarify:
		action = model.ActionAnswer
	case p >= th.Abstain:
		action = model.ActionClarify
	}

	return Result{Features: f, Logit: logit, P: p, Action: action}
}

// LegacyScore is the retained fallback (spec.md §4.6) used when rerank
// scores are entirely absent: confidence reduces to 100*max(s_final)
// percent, mapped via percent thresholds rather than the logistic model.
func LegacyScore(candidates []model.Candidate, explicitSelection bool, defaultThresholdPct, explicitThresholdPct float64) (percent float64, action model.Action) {
	percent = MaxSFinalPercent(candidates)

	threshold := defaultThresholdPct
	if explicitSelection {
		threshold = explicitThresholdPct
	}

	if percent >= threshold {
		return percent, model.ActionAnswer
	}
	return percent, model.ActionAbstain
}

// MaxSFinalPercent computes 100*max(s_final) over candidates, where
// s_final is s_ce when populated and s_hyb otherwise (spec.md §4.6).
func MaxSFinalPercent(candidates []model.Candidate) float64 {
	max := 0.0
	for _, c := range candidates {
		sFinal := c.SCE
		if sFinal == 0 {
			sFinal = c.SHyb
		}
		if sFinal > max {
			max = sFinal
		}
	}
	return 100 * max
}

func computeFeatures(candidates []model.Candidate, queryTerms []string, provisionalAnswer string) Features {
	var f Features
	n := len(candidates)
	if n == 0 {
		return f
	}

	// f1 max_rerank, f2 margin
	sorted := make([]float64, n)
	for i, c := range candidates {
		sorted[i] = c.SCE
	}
	f.MaxRerank = maxOf(sorted)
	if n >= 2 {
		top2 := topTwo(sorted)
		f.Margin = top2[0] - top2[1]
	}

	// f3 mean_cosine, f4 cosine_std, f5 cos_coverage
	var sumVec, sumVecSq float64
	coverCount := 0
	for _, c := range candidates {
		sumVec += c.SVec
		sumVecSq += c.SVec * c.SVec
		if c.SVec >= cosCoverageThreshold {
			coverCount++
		}
	}
	f.MeanCosine = sumVec / float64(n)
	variance := sumVecSq/float64(n) - f.MeanCosine*f.MeanCosine
	if variance < 0 {
		variance = 0
	}
	f.CosineStd = math.Sqrt(variance)
	f.CosCoverage = float64(coverCount) / float64(n)

	// f6 bm25_norm
	var sumLex float64
	for _, c := range candidates {
		sumLex += c.SLex
	}
	f.BM25Norm = sumLex / float64(n)

	// f7 term_coverage
	f.TermCoverage = termCoverage(candidates, queryTerms)

	// f8 unique_page_frac
	pages := make(map[string]bool, n)
	docs := make(map[string]bool, n)
	for _, c := range candidates {
		pages[c.DocID+"#"+strconv.Itoa(c.PageStart)] = true
		docs[c.DocID] = true
	}
	f.UniquePageFrac = float64(len(pages)) / float64(n)
	f.DocDiversity = float64(len(docs)) / float64(n)

	// f10 answer_overlap
	f.AnswerOverlap = answerOverlap(provisionalAnswer, candidates)

	return f
}

func termCoverage(candidates []model.Candidate, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	var combined strings.Builder
	for _, c := range candidates {
		combined.WriteString(strings.ToLower(c.Text))
		combined.WriteByte(' ')
	}
	haystack := combined.String()

	found := 0
	for _, term := range queryTerms {
		if strings.Contains(haystack, term) {
			found++
		}
	}
	return float64(found) / float64(len(queryTerms))
}

func answerOverlap(provisionalAnswer string, candidates []model.Candidate) float64 {
	if provisionalAnswer == "" {
		return 0
	}
	answerSet := tokenSet(provisionalAnswer)
	if len(answerSet) == 0 {
		return 0
	}

	var combined strings.Builder
	for _, c := range candidates {
		combined.WriteString(c.Text)
		combined.WriteByte(' ')
	}
	chunkSet := tokenSet(combined.String())

	return jaccard(answerSet, chunkSet)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func maxOf(vals []float64) float64 {
	m := 0.0
	for i, v := range vals {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

func topTwo(vals []float64) [2]float64 {
	sorted := append([]float64(nil), vals...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] > sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return [2]float64{sorted[0], sorted[1]}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
