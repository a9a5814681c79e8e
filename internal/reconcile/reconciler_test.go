package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// fakeStorage implements just enough of service.Storage to observe the
// reconciler's write-through match cache.
type fakeStorage struct {
	matches map[string]*service.CachedMatch
	saves   int
	reads   int
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{matches: make(map[string]*service.CachedMatch)}
}

func (f *fakeStorage) GetCachedMatch(_ context.Context, name, labelsKey string) (*service.CachedMatch, error) {
	f.reads++
	return f.matches[name+"\x00"+labelsKey], nil
}

func (f *fakeStorage) SaveCachedMatch(_ context.Context, m *service.CachedMatch) error {
	f.saves++
	f.matches[m.Name+"\x00"+m.LabelsKey] = m
	return nil
}

func (f *fakeStorage) PruneMatchCache(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakeStorage) SaveRun(context.Context, *model.RunRecord) error           { return nil }
func (f *fakeStorage) GetRun(context.Context, string) (*model.RunRecord, error)  { return nil, nil }
func (f *fakeStorage) ListRuns(context.Context, int) ([]model.RunRecord, error)  { return nil, nil }
func (f *fakeStorage) Migrate(context.Context) error                             { return nil }
func (f *fakeStorage) BeginTx(context.Context) (service.Transaction, error)      { return nil, nil }
func (f *fakeStorage) Close() error                                              { return nil }

func wallSummary(volume float64) *model.Summary {
	s := model.NewSummary()
	g := s.EnsureGroup("structural", "wall")
	g.Label = "Стены"
	g.PatternID = "structural_wall"
	g.TotalCount = 10
	g.TotalVolumeM3 = volume
	return s
}

func boq(lines ...model.BoQLine) *model.BoQDocument {
	return &model.BoQDocument{Lines: lines}
}

func TestReconcile_WithinTolerance(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(model.BoQLine{Name: "Кладка стен кирпичная", Unit: "м3", Volume: 10.1})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	require.Len(t, report.Matches, 1)
	entry := report.Matches[0]
	assert.Equal(t, model.StatusOK, entry.Status)
	assert.Equal(t, model.MatchKeyword, entry.MatchMethod)
	assert.Equal(t, "structural_wall", entry.MatchedPattern)
	require.NotNil(t, entry.BIMVolume)
	assert.Equal(t, 10.0, *entry.BIMVolume)
	require.NotNil(t, entry.DiffPct)
	assert.InDelta(t, 0.99, *entry.DiffPct, 0.001)
	assert.Empty(t, report.RedFlags)
	assert.Equal(t, 1, report.Summary.OK)
}

func TestReconcile_RedFlagJustAboveTolerance(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	// 9.7 vs 10.0 deviates by 3.09% of the bill quantity, just past the
	// 3.0% default.
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 9.7})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	require.Len(t, report.RedFlags, 1)
	entry := report.RedFlags[0]
	assert.Equal(t, model.StatusRedFlag, entry.Status)
	require.NotNil(t, entry.DiffPct)
	assert.Equal(t, 3.09, *entry.DiffPct)
	assert.Empty(t, report.Matches)
	assert.Equal(t, 1, report.Summary.RedFlags)
	assert.Equal(t, 0, report.Summary.OK)
}

func TestReconcile_ZeroInVOR(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 0})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	require.Len(t, report.RedFlags, 1)
	entry := report.RedFlags[0]
	assert.Equal(t, model.StatusZeroInVOR, entry.Status)
	assert.Nil(t, entry.DiffPct)
	require.NotNil(t, entry.BIMVolume)
	assert.Equal(t, 10.0, *entry.BIMVolume)
}

func TestReconcile_NoBIMMatch(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(model.BoQLine{Name: "Рытье котлована экскаватором", Unit: "м3", Volume: 500})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	require.Len(t, report.Matches, 1)
	entry := report.Matches[0]
	assert.Equal(t, model.StatusNoBIMMatch, entry.Status)
	assert.Equal(t, model.MatchNone, entry.MatchMethod)
	assert.Nil(t, entry.BIMVolume)
	assert.Nil(t, entry.DiffPct)
	assert.Empty(t, entry.MatchedPattern)
	assert.Equal(t, 1, report.Summary.NoMatch)
}

func TestReconcile_EveryLineLandsExactlyOnce(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(
		model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 10.0},
		model.BoQLine{Name: "Кладка перегородочная стена", Unit: "м3", Volume: 5.0},
		model.BoQLine{Name: "Неопознанная работа", Unit: "м3", Volume: 7.0},
		model.BoQLine{Name: "Стена подпорная", Unit: "м3", Volume: 0},
	)

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	assert.Equal(t, len(doc.Lines), len(report.Matches)+len(report.RedFlags))
	assert.Equal(t, len(doc.Lines), report.Summary.TotalVOR)
}

func TestReconcile_MissingInVOR(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	s := wallSummary(10.0)
	duct := s.EnsureGroup("mep", "duct")
	duct.Label = "Воздуховоды"
	duct.PatternID = "mep_duct"
	duct.TotalAreaM2 = 120.5
	empty := s.EnsureGroup("architectural", "door")
	empty.Label = "Двери"
	empty.PatternID = "arch_door"

	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 10.0})

	report := r.Reconcile(context.Background(), doc, s, 3.0)

	// Ducts have quantity and were never mentioned; doors aggregate to zero
	// count so they stay out.
	require.Len(t, report.MissingInVOR, 1)
	missing := report.MissingInVOR[0]
	assert.Equal(t, "mep.duct", missing.Group)
	assert.Equal(t, "Воздуховоды", missing.Label)
	assert.Equal(t, model.UnitArea, missing.Unit)
	assert.Equal(t, 120.5, missing.Quantity)
	assert.Equal(t, 1, report.Summary.Missing)
}

func TestReconcile_MissingSortedByQuantity(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	s := model.NewSummary()
	small := s.EnsureGroup("structural", "wall")
	small.Label = "Стены"
	small.PatternID = "structural_wall"
	small.TotalVolumeM3 = 5.0
	big := s.EnsureGroup("mep", "duct")
	big.Label = "Воздуховоды"
	big.PatternID = "mep_duct"
	big.TotalAreaM2 = 300.0

	report := r.Reconcile(context.Background(), boq(), s, 3.0)

	require.Len(t, report.MissingInVOR, 2)
	assert.Equal(t, "Воздуховоды", report.MissingInVOR[0].Label)
	assert.Equal(t, "Стены", report.MissingInVOR[1].Label)
}

func TestReconcile_UnitInferenceSelectsQuantity(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	s := wallSummary(10.0)
	g := s.Group("structural", "wall")
	g.TotalAreaM2 = 80.0

	// The bill prices the walls in square meters, so the area total is the
	// comparison basis even though the pattern's canonical unit is volume.
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м2", Volume: 80.0})

	report := r.Reconcile(context.Background(), doc, s, 3.0)

	require.Len(t, report.Matches, 1)
	require.NotNil(t, report.Matches[0].BIMVolume)
	assert.Equal(t, 80.0, *report.Matches[0].BIMVolume)
	assert.Equal(t, model.StatusOK, report.Matches[0].Status)
}

func TestReconcile_AITierConsultedAfterKeywordMiss(t *testing.T) {
	ai := &stubSuggester{label: "Стены"}
	r := New(reconcilerPatterns(), Options{AI: ai})
	doc := boq(model.BoQLine{Name: "Возведение ограждающих конструкций", Unit: "м3", Volume: 10.0})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, model.MatchAI, report.Matches[0].MatchMethod)
	assert.Equal(t, "structural_wall", report.Matches[0].MatchedPattern)
	assert.Equal(t, 1, ai.calls)
}

func TestReconcile_KeywordTierSkipsAI(t *testing.T) {
	ai := &stubSuggester{label: "Стены"}
	r := New(reconcilerPatterns(), Options{AI: ai})
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 10.0})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	assert.Equal(t, model.MatchKeyword, report.Matches[0].MatchMethod)
	assert.Equal(t, 0, ai.calls)
}

func TestReconcile_CacheHitSkipsExternalTiers(t *testing.T) {
	ai := &stubSuggester{label: "Стены"}
	r := New(reconcilerPatterns(), Options{AI: ai})
	doc := boq(model.BoQLine{Name: "Возведение ограждающих конструкций", Unit: "м3", Volume: 10.0})

	first := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)
	second := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	assert.Equal(t, 1, ai.calls)
	assert.Equal(t, model.MatchAI, first.Matches[0].MatchMethod)
	// The cached verdict keeps the method that originally produced it.
	assert.Equal(t, model.MatchAI, second.Matches[0].MatchMethod)
}

func TestReconcile_PersistentCacheSurvivesRestart(t *testing.T) {
	store := newFakeStorage()
	doc := boq(model.BoQLine{Name: "Возведение ограждающих конструкций", Unit: "м3", Volume: 10.0})

	ai1 := &stubSuggester{label: "Стены"}
	r1 := New(reconcilerPatterns(), Options{AI: ai1, Storage: store})
	r1.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)
	assert.Equal(t, 1, ai1.calls)
	assert.Equal(t, 1, store.saves)

	// A fresh reconciler has a cold in-memory cache but finds the persisted
	// match, so the AI service stays untouched.
	ai2 := &stubSuggester{label: "Стены"}
	r2 := New(reconcilerPatterns(), Options{AI: ai2, Storage: store})
	report := r2.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	assert.Equal(t, 0, ai2.calls)
	assert.Equal(t, model.MatchAI, report.Matches[0].MatchMethod)
}

func TestReconcile_DefaultToleranceApplied(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 9.7})

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 0)

	assert.Equal(t, DefaultTolerancePct, report.Summary.TolerancePct)
	require.Len(t, report.RedFlags, 1)
}

func TestReconcile_EmptySummary(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 10.0})

	report := r.Reconcile(context.Background(), doc, model.NewSummary(), 3.0)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, model.StatusNoBIMMatch, report.Matches[0].Status)
	assert.Empty(t, report.MissingInVOR)
}

func TestReconcile_ParseWarningsCarriedThrough(t *testing.T) {
	r := New(reconcilerPatterns(), Options{})
	doc := boq(model.BoQLine{Name: "Кладка стен", Unit: "м3", Volume: 10.0})
	doc.Warnings = []model.ParseWarning{{Row: 7, Field: "volume", Value: "n/a", Reason: "not a number"}}

	report := r.Reconcile(context.Background(), doc, wallSummary(10.0), 3.0)

	require.Len(t, report.ParseWarnings, 1)
	assert.Equal(t, 7, report.ParseWarnings[0].Row)
}

func TestInferUnit(t *testing.T) {
	tests := []struct {
		unit      string
		canonical model.Unit
		want      model.Unit
	}{
		{"м3", "", model.UnitVolume},
		{"m3", "", model.UnitVolume},
		{"м³", "", model.UnitVolume},
		{"куб.м", "", model.UnitVolume},
		{"м2", "", model.UnitArea},
		{"кв.м", "", model.UnitArea},
		{"пог.м", "", model.UnitLength},
		{"м.п.", "", model.UnitLength},
		{"м", "", model.UnitLength},
		{"шт", "", model.UnitCount},
		{"шт.", "", model.UnitCount},
		{"pcs", "", model.UnitCount},
		{"компл", model.UnitCount, model.UnitCount},
		{"", model.UnitArea, model.UnitArea},
		{"", "", model.UnitVolume},
		{"тонн", model.UnitVolume, model.UnitVolume},
	}
	for _, tt := range tests {
		t.Run(tt.unit+"_"+string(tt.canonical), func(t *testing.T) {
			assert.Equal(t, tt.want, inferUnit(tt.unit, tt.canonical))
		})
	}
}
