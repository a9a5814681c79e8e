// Package reconcile compares a bill of quantities against a semantic model
// summary and flags discrepancies above tolerance.
package reconcile

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/pattern"
)

// SimilarityThreshold is the minimum cosine similarity an embedding match
// must reach to be accepted.
const SimilarityThreshold = 0.30

// Match is one accepted result from a matcher tier.
type Match struct {
	Label      string
	Method     model.MatchMethod
	Confidence float64
}

// GroupMatcher is one tier of the matching chain. Implementations report a
// miss instead of an error: external-service failures downgrade to (zero,
// false) so the chain can move on.
type GroupMatcher interface {
	TryMatch(ctx context.Context, name string, labels []string) (Match, bool)
}

// GroupSuggester is the language-model service consulted by the AI tier.
// An empty label with a nil error means the service explicitly declined.
type GroupSuggester interface {
	SuggestGroup(ctx context.Context, name string, labels []string) (string, error)
}

// Embedder produces embedding vectors for the similarity tier.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

type keywordMatcher struct {
	matcher *pattern.Matcher
}

// NewKeywordMatcher builds the deterministic first tier: classify the line
// name with the full pattern table, no category restriction, and accept the
// matched pattern's label only when the summary actually contains it.
func NewKeywordMatcher(m *pattern.Matcher) GroupMatcher {
	return &keywordMatcher{matcher: m}
}

func (k *keywordMatcher) TryMatch(_ context.Context, name string, labels []string) (Match, bool) {
	p, ok := k.matcher.Match(name, "")
	if !ok {
		return Match{}, false
	}
	label := p.DisplayLabel()
	for _, l := range labels {
		if l == label {
			return Match{Label: label, Method: model.MatchKeyword, Confidence: 1}, true
		}
	}
	return Match{}, false
}

type aiMatcher struct {
	svc GroupSuggester
}

// NewAIMatcher builds the language-model tier. A nil service produces a
// matcher that always misses, so the chain works without AI configured.
func NewAIMatcher(svc GroupSuggester) GroupMatcher {
	return &aiMatcher{svc: svc}
}

func (a *aiMatcher) TryMatch(ctx context.Context, name string, labels []string) (Match, bool) {
	if a.svc == nil || len(labels) == 0 {
		return Match{}, false
	}
	label, err := a.svc.SuggestGroup(ctx, name, labels)
	if err != nil {
		slog.Debug("AI match tier unavailable", "name", name, "error", err)
		return Match{}, false
	}
	if label == "" {
		return Match{}, false
	}
	for _, l := range labels {
		if l == label {
			return Match{Label: label, Method: model.MatchAI, Confidence: 1}, true
		}
	}
	// The model answered with something outside the offered list; treat it
	// as a miss rather than trusting a hallucinated label.
	slog.Debug("AI suggested unknown label", "name", name, "label", label)
	return Match{}, false
}

type embeddingMatcher struct {
	svc       Embedder
	threshold float64
}

// NewEmbeddingMatcher builds the similarity tier: cosine ranking of the line
// name against the labels, accepted above the threshold, with token-overlap
// scoring as the in-tier fallback when the service is missing or the best
// score is too weak.
func NewEmbeddingMatcher(svc Embedder, threshold float64) GroupMatcher {
	if threshold <= 0 {
		threshold = SimilarityThreshold
	}
	return &embeddingMatcher{svc: svc, threshold: threshold}
}

func (e *embeddingMatcher) TryMatch(ctx context.Context, name string, labels []string) (Match, bool) {
	if len(labels) == 0 {
		return Match{}, false
	}
	if e.svc != nil {
		if m, ok := e.tryEmbeddings(ctx, name, labels); ok {
			return m, true
		}
	}
	return overlapMatch(name, labels)
}

func (e *embeddingMatcher) tryEmbeddings(ctx context.Context, name string, labels []string) (Match, bool) {
	vecs, err := e.svc.EmbedBatch(ctx, append([]string{name}, labels...))
	if err != nil || len(vecs) != len(labels)+1 {
		slog.Debug("embedding tier unavailable", "name", name, "error", err)
		return Match{}, false
	}
	best, bestScore := -1, 0.0
	for i, vec := range vecs[1:] {
		score := cosine(vecs[0], vec)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < e.threshold {
		return Match{}, false
	}
	return Match{Label: labels[best], Method: model.MatchSemantic, Confidence: bestScore}, true
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// overlapMatch is the last resort: count shared significant tokens between
// the line name and each label, longest overlap wins, first label wins ties.
func overlapMatch(name string, labels []string) (Match, bool) {
	nameTokens := significantTokens(name)
	if len(nameTokens) == 0 {
		return Match{}, false
	}
	best, bestCount := -1, 0
	for i, label := range labels {
		count := 0
		for tok := range significantTokens(label) {
			if _, ok := nameTokens[tok]; ok {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{
		Label:      labels[best],
		Method:     model.MatchSemantic,
		Confidence: float64(bestCount) / float64(len(nameTokens)),
	}, true
}

func significantTokens(s string) map[string]struct{} {
	tokens := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) > 3 {
			out[tok] = struct{}{}
		}
	}
	return out
}
