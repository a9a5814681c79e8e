package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
	"github.com/mbagrov/bimtally/internal/testutil"
	"github.com/mbagrov/bimtally/internal/vor"
)

func wallsSummary(t *testing.T, e *Engine) *model.Summary {
	t.Helper()
	fake := &fakeExec{responses: []string{wallsBatch}}
	scanEngine := newTestEngine(t, fake, Dependencies{})
	sum, err := scanEngine.BuildSummary(context.Background(), SummaryOptions{Categories: []string{"Walls"}})
	require.NoError(t, err)
	return sum
}

func TestReconcile(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	sum := wallsSummary(t, e)

	doc := &model.BoQDocument{Lines: []model.BoQLine{
		{Name: "Кладка стен", Unit: "м3", Volume: 9.7},
	}}

	report, err := e.Reconcile(context.Background(), doc, sum, 3.0)
	require.NoError(t, err)
	require.Len(t, report.RedFlags, 1)
	assert.Equal(t, model.StatusRedFlag, report.RedFlags[0].Status)
	assert.InDelta(t, 3.0, report.Summary.TolerancePct, 0.001)
}

func TestReconcile_EmptyBill(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})

	_, err := e.Reconcile(context.Background(), &model.BoQDocument{}, nil, 3.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestReconcile_DefaultToleranceFromConfig(t *testing.T) {
	e := New(Config{PatternsPath: writePatternsFile(t), TolerancePct: 7.5}, Dependencies{Logger: quietLogger()})
	sum := wallsSummary(t, e)

	doc := &model.BoQDocument{Lines: []model.BoQLine{{Name: "Кладка стен", Unit: "м3", Volume: 9.7}}}
	report, err := e.Reconcile(context.Background(), doc, sum, 0)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, report.Summary.TolerancePct, 0.001)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, model.StatusOK, report.Matches[0].Status)
}

func TestReconcile_BuildsSummaryWhenAbsent(t *testing.T) {
	fake := &fakeExec{responses: []string{wallsBatch}}
	e := newTestEngine(t, fake, Dependencies{})

	doc := &model.BoQDocument{Lines: []model.BoQLine{{Name: "Кладка стен", Unit: "м3", Volume: 10.0}}}
	report, err := e.Reconcile(context.Background(), doc, nil, 3.0)
	require.NoError(t, err)
	require.Equal(t, 6, fake.calls, "nil summary must trigger a full registry scan")
	require.Len(t, report.Matches, 1)
}

func TestReconcile_PersistsRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	e := newTestEngine(t, &fakeExec{}, Dependencies{Storage: db.Storage})
	sum := wallsSummary(t, e)

	doc := &model.BoQDocument{Lines: []model.BoQLine{{Name: "Кладка стен", Unit: "м3", Volume: 9.7}}}
	_, err := e.Reconcile(context.Background(), doc, sum, 3.0)
	require.NoError(t, err)

	runs, err := e.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].RedFlags)
	assert.NotEmpty(t, runs[0].ID)

	full, err := e.GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)

	var report model.ReconciliationReport
	require.NoError(t, json.Unmarshal([]byte(full.ReportJSON), &report))
	require.Len(t, report.RedFlags, 1)
	assert.Equal(t, "Кладка стен", report.RedFlags[0].Name)
}

func TestListRuns_StorageNotConfigured(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	_, err := e.ListRuns(context.Background(), 5)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestReconcile_AITierWired(t *testing.T) {
	ai := &fakeAI{label: "Стены"}
	e := newTestEngine(t, &fakeExec{}, Dependencies{AI: ai})
	sum := wallsSummary(t, e)

	doc := &model.BoQDocument{Lines: []model.BoQLine{
		// No pattern keyword matches this, so the AI tier is consulted.
		{Name: "Возведение ограждающих конструкций", Unit: "м3", Volume: 10.0},
	}}
	report, err := e.Reconcile(context.Background(), doc, sum, 3.0)
	require.NoError(t, err)
	require.Equal(t, 1, ai.calls)
	require.Len(t, report.Matches, 1)
	assert.Equal(t, model.MatchAI, report.Matches[0].MatchMethod)
}

func TestLoadBoQJSON(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})

	doc, err := e.LoadBoQJSON([]byte(`[{"name": "Кладка стен", "unit": "м3", "volume": 120.5}]`))
	require.NoError(t, err)
	require.Len(t, doc.Lines, 1)
	assert.InDelta(t, 120.5, doc.Lines[0].Volume, 0.001)
}

func TestLoadBoQFile(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vor.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Стена", "unit": "м3", "volume": 1}]`), 0o600))

		doc, err := e.LoadBoQFile(path)
		require.NoError(t, err)
		require.Len(t, doc.Lines, 1)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := e.LoadBoQFile("bill.csv")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestLoadBoQSheet_NotConfigured(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	_, err := e.LoadBoQSheet(context.Background(), "sheet-id", "")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestGenerateVOR(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	sum := wallsSummary(t, e)

	doc, err := e.GenerateVOR(context.Background(), sum, vor.Options{Title: "ВОР"})
	require.NoError(t, err)
	require.Len(t, doc.Positions, 1)
	assert.Equal(t, "Стены", doc.Positions[0].Name)
	assert.Equal(t, "м3", doc.Positions[0].Unit)
	assert.InDelta(t, 10.0, doc.Positions[0].Volume, 0.001)
}

func TestConvertVOR(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	sum := wallsSummary(t, e)

	mapping := filepath.Join(t.TempDir(), "mapping.json")
	require.NoError(t, os.WriteFile(mapping, []byte(`[{"group": "structural.wall", "name": "Кладка наружных стен"}]`), 0o600))

	doc, err := e.ConvertVOR(context.Background(), sum, mapping, "ВОР")
	require.NoError(t, err)
	require.Len(t, doc.Positions, 1)
	assert.Equal(t, "Кладка наружных стен", doc.Positions[0].Name)
}

func TestExportSummaryExcel(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	sum := wallsSummary(t, e)

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	result, err := e.ExportSummaryExcel(sum, path, "")
	require.NoError(t, err)
	assert.FileExists(t, result.Path)
}

func TestExportVORSheets_NotConfigured(t *testing.T) {
	e := newTestEngine(t, &fakeExec{}, Dependencies{})
	_, err := e.ExportVORSheets(context.Background(), &model.VORDocument{}, service.SheetTarget{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
