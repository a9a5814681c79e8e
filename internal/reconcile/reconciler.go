package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/pattern"
	"github.com/mbagrov/bimtally/internal/service"
)

// DefaultTolerancePct is the red-flag threshold used when the caller does
// not supply one.
const DefaultTolerancePct = 3.0

// Options wires the optional collaborators. Every field may be left nil;
// the reconciler then runs on the keyword tier and token overlap alone.
type Options struct {
	AI       GroupSuggester
	Embedder Embedder
	Storage  service.Storage
}

// Reconciler matches bill-of-quantities lines against semantic summary
// groups through a layered chain and flags quantity deviations.
type Reconciler struct {
	patterns []model.Pattern
	byID     map[string]model.Pattern
	keyword  GroupMatcher
	fallback []GroupMatcher
	cache    *matchCache
}

// New builds a reconciler over the given pattern table.
func New(patterns []model.Pattern, opts Options) *Reconciler {
	byID := make(map[string]model.Pattern, len(patterns))
	for _, p := range patterns {
		byID[p.ID] = p
	}
	return &Reconciler{
		patterns: patterns,
		byID:     byID,
		keyword:  NewKeywordMatcher(pattern.NewMatcher(patterns)),
		fallback: []GroupMatcher{
			NewAIMatcher(opts.AI),
			NewEmbeddingMatcher(opts.Embedder, SimilarityThreshold),
		},
		cache: newMatchCache(opts.Storage),
	}
}

// groupRef is one summary group flattened for matching.
type groupRef struct {
	group     string
	label     string
	patternID string
	unit      model.Unit
	entry     *model.GroupEntry
	matched   bool
}

// Reconcile compares each BoQ line with the summary and produces the full
// report: per-line verdicts in input order, red flags, groups the bill
// never mentions, and run statistics. Lines are processed sequentially so
// output order is deterministic.
func (r *Reconciler) Reconcile(ctx context.Context, doc *model.BoQDocument, summary *model.Summary, tolerancePct float64) *model.ReconciliationReport {
	if tolerancePct <= 0 {
		tolerancePct = DefaultTolerancePct
	}

	refs, byLabel := r.indexGroups(summary)
	labels := make([]string, 0, len(byLabel))
	for _, ref := range refs {
		labels = append(labels, ref.label)
	}
	sort.Strings(labels)
	labels = dedupe(labels)
	labelsKey := LabelsKey(labels)

	report := &model.ReconciliationReport{
		Matches:  []model.ReconciliationEntry{},
		RedFlags: []model.ReconciliationEntry{},
	}
	var lines []model.BoQLine
	if doc != nil {
		lines = doc.Lines
		report.ParseWarnings = doc.Warnings
	}

	for _, line := range lines {
		ref, method := r.matchLine(ctx, line.Name, labels, labelsKey, byLabel)
		entry := r.buildEntry(line, ref, method, tolerancePct)
		switch entry.Status {
		case model.StatusRedFlag, model.StatusZeroInVOR:
			report.RedFlags = append(report.RedFlags, entry)
		default:
			report.Matches = append(report.Matches, entry)
		}
	}

	report.MissingInVOR = missingGroups(refs)
	report.Summary = r.stats(report, len(lines), tolerancePct)
	return report
}

// matchLine runs the chain: keyword first, then the cache, then the
// external tiers with accepted results written through.
func (r *Reconciler) matchLine(ctx context.Context, name string, labels []string, labelsKey string, byLabel map[string]*groupRef) (*groupRef, model.MatchMethod) {
	if len(labels) == 0 {
		return nil, model.MatchNone
	}

	if m, ok := r.keyword.TryMatch(ctx, name, labels); ok {
		if ref := byLabel[m.Label]; ref != nil {
			ref.matched = true
			return ref, m.Method
		}
	}

	if m, ok := r.cache.get(ctx, name, labelsKey); ok {
		if ref := byLabel[m.Label]; ref != nil {
			ref.matched = true
			return ref, m.Method
		}
	}

	for _, tier := range r.fallback {
		m, ok := tier.TryMatch(ctx, name, labels)
		if !ok {
			continue
		}
		ref := byLabel[m.Label]
		if ref == nil {
			continue
		}
		r.cache.put(ctx, name, labelsKey, m)
		ref.matched = true
		return ref, m.Method
	}
	return nil, model.MatchNone
}

func (r *Reconciler) buildEntry(line model.BoQLine, ref *groupRef, method model.MatchMethod, tolerancePct float64) model.ReconciliationEntry {
	entry := model.ReconciliationEntry{
		Name:        line.Name,
		Unit:        line.Unit,
		VORVolume:   line.Volume,
		MatchMethod: method,
	}
	if ref == nil {
		entry.Status = model.StatusNoBIMMatch
		return entry
	}

	unit := inferUnit(line.Unit, ref.unit)
	bim := ref.entry.PrimaryQuantity(unit)
	entry.BIMVolume = &bim
	entry.MatchedPattern = ref.patternID

	if line.Volume == 0 {
		entry.Status = model.StatusZeroInVOR
		return entry
	}
	diff := round2(math.Abs(line.Volume-bim) / line.Volume * 100)
	entry.DiffPct = &diff
	if diff > tolerancePct {
		entry.Status = model.StatusRedFlag
	} else {
		entry.Status = model.StatusOK
	}
	return entry
}

// indexGroups flattens the summary into matching references, resolving each
// group's canonical unit through its owning pattern. Groups are walked in
// sorted key order so duplicate labels resolve deterministically.
func (r *Reconciler) indexGroups(summary *model.Summary) ([]*groupRef, map[string]*groupRef) {
	var refs []*groupRef
	byLabel := make(map[string]*groupRef)
	if summary == nil {
		return refs, byLabel
	}

	tops := make([]string, 0, len(summary.Groups))
	for top := range summary.Groups {
		tops = append(tops, top)
	}
	sort.Strings(tops)
	for _, top := range tops {
		subs := make([]string, 0, len(summary.Groups[top]))
		for sub := range summary.Groups[top] {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		for _, sub := range subs {
			g := summary.Groups[top][sub]
			if g.Label == "" {
				continue
			}
			unit := model.UnitVolume
			if p, ok := r.byID[g.PatternID]; ok && p.CanonicalUnit != "" {
				unit = p.CanonicalUnit
			}
			ref := &groupRef{
				group:     fmt.Sprintf("%s.%s", top, sub),
				label:     g.Label,
				patternID: g.PatternID,
				unit:      unit,
				entry:     g,
			}
			refs = append(refs, ref)
			if _, exists := byLabel[ref.label]; !exists {
				byLabel[ref.label] = ref
			}
		}
	}
	return refs, byLabel
}

func missingGroups(refs []*groupRef) []model.MissingEntry {
	missing := []model.MissingEntry{}
	for _, ref := range refs {
		if ref.matched {
			continue
		}
		qty := ref.entry.PrimaryQuantity(ref.unit)
		if qty <= 0 {
			continue
		}
		missing = append(missing, model.MissingEntry{
			Group:    ref.group,
			Label:    ref.label,
			Unit:     ref.unit,
			Quantity: qty,
		})
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].Quantity > missing[j].Quantity
	})
	return missing
}

func (r *Reconciler) stats(report *model.ReconciliationReport, total int, tolerancePct float64) model.ReconciliationStats {
	stats := model.ReconciliationStats{
		TotalVOR:       total,
		RedFlags:       len(report.RedFlags),
		Missing:        len(report.MissingInVOR),
		TolerancePct:   tolerancePct,
		PatternsLoaded: len(r.patterns),
	}
	for _, m := range report.Matches {
		switch m.Status {
		case model.StatusOK:
			stats.OK++
		case model.StatusNoBIMMatch:
			stats.NoMatch++
		}
	}
	if stats.NoMatch > 0 {
		slog.Debug("reconciliation lines without model match", "count", stats.NoMatch)
	}
	return stats
}

// inferUnit reads the measurement dimension out of a free-form unit string,
// falling back to the pattern's canonical unit when nothing recognizable is
// present. Both Latin and Cyrillic notations occur in real bills.
func inferUnit(unitStr string, canonical model.Unit) model.Unit {
	u := strings.ToLower(strings.TrimSpace(unitStr))
	switch {
	case u == "":
	case strings.Contains(u, "м3"), strings.Contains(u, "m3"),
		strings.Contains(u, "м³"), strings.Contains(u, "m³"),
		strings.Contains(u, "куб"):
		return model.UnitVolume
	case strings.Contains(u, "м2"), strings.Contains(u, "m2"),
		strings.Contains(u, "м²"), strings.Contains(u, "m²"),
		strings.Contains(u, "кв"):
		return model.UnitArea
	case strings.Contains(u, "пог"), strings.Contains(u, "п.м"),
		strings.Contains(u, "м.п"):
		return model.UnitLength
	case strings.Contains(u, "шт"), strings.Contains(u, "pcs"):
		return model.UnitCount
	case u == "м", u == "m":
		return model.UnitLength
	}
	if canonical == "" {
		return model.UnitVolume
	}
	return canonical
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
