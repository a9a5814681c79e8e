package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/engine"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/testutil"
)

type fakeExec struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (f *fakeExec) ExecuteCode(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.calls
	f.calls++
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "", fmt.Errorf("fakeExec: unexpected call %d", idx)
}

const wallsBatch = `{
	"Walls": {"total_count": 5, "total_volume_m3": 10.0, "total_area_m2": 40.0, "total_length_m": 0,
		"types": [{"name": "Стена кирпичная", "count": 5, "volume_m3": 10.0, "area_m2": 40.0, "length_m": 0}]}
}`

func newTestServer(t *testing.T, fake *fakeExec) *Server {
	t.Helper()

	data, err := json.Marshal(map[string]any{"patterns": testutil.Patterns()})
	require.NoError(t, err)
	patternsPath := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(patternsPath, data, 0o600))

	deps := engine.Dependencies{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if fake != nil {
		deps.Executor = fake
	}
	eng := engine.New(engine.Config{PatternsPath: patternsPath, ExportDir: t.TempDir()}, deps)
	return New(eng, "test")
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestHandleSummary(t *testing.T) {
	fake := &fakeExec{responses: []string{wallsBatch}}
	s := newTestServer(t, fake)

	result, err := s.handleSummary(context.Background(), callRequest(map[string]any{
		"categories": "Walls",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var sum model.Summary
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &sum))
	g := sum.Group("structural", "wall")
	require.NotNil(t, g)
	assert.Equal(t, 5, g.TotalCount)
	assert.InDelta(t, 10.0, g.TotalVolumeM3, 0.001)
}

func TestHandleSummary_HostNotConfigured(t *testing.T) {
	s := newTestServer(t, nil)

	result, err := s.handleSummary(context.Background(), callRequest(nil))
	require.NoError(t, err, "configuration failures must stay tool errors")
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "not configured")
}

func TestHandleVORvsBIM(t *testing.T) {
	responses := make([]string, 6)
	responses[0] = wallsBatch
	for i := 1; i < 6; i++ {
		responses[i] = "{}"
	}
	s := newTestServer(t, &fakeExec{responses: responses})

	result, err := s.handleVORvsBIM(context.Background(), callRequest(map[string]any{
		"vor_data":      `[{"name": "Кладка стен", "unit": "м3", "volume": 9.7}]`,
		"tolerance_pct": 3.0,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var report model.ReconciliationReport
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &report))
	require.Len(t, report.RedFlags, 1)
	assert.Equal(t, model.StatusRedFlag, report.RedFlags[0].Status)
}

func TestHandleVORvsBIM_MissingArgument(t *testing.T) {
	s := newTestServer(t, &fakeExec{})

	result, err := s.handleVORvsBIM(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "vor_data")
}

func TestHandleVORGenerate(t *testing.T) {
	responses := make([]string, 6)
	responses[0] = wallsBatch
	for i := 1; i < 6; i++ {
		responses[i] = "{}"
	}
	s := newTestServer(t, &fakeExec{responses: responses})

	result, err := s.handleVORGenerate(context.Background(), callRequest(map[string]any{
		"title": "ВОР по модели",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var doc model.VORDocument
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &doc))
	require.Len(t, doc.Positions, 1)
	assert.Equal(t, "Стены", doc.Positions[0].Name)
	assert.Equal(t, "ВОР по модели", doc.Title)
}

func TestHandleSearch(t *testing.T) {
	s := newTestServer(t, &fakeExec{responses: []string{
		`{"count": 1, "total_volume_m3": 9.1, "total_area_m2": 30.0, "elements": [
			{"id": 1001, "type_name": "Кладка 250мм", "level": "Уровень 1", "volume_m3": 9.1, "area_m2": 30.0, "length_m": 0}
		], "colorized": false}`,
	}})

	result, err := s.handleSearch(context.Background(), callRequest(map[string]any{
		"category": "Walls",
		"filters":  `[{"param": "Объем", "op": "gt", "value": "5"}]`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))
	assert.Contains(t, textOf(t, result), "Кладка 250мм")
}

func TestHandleSearch_BadFilters(t *testing.T) {
	s := newTestServer(t, &fakeExec{})

	result, err := s.handleSearch(context.Background(), callRequest(map[string]any{
		"category": "Walls",
		"filters":  "not json",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "JSON array")
}

func TestHandleExecuteCode(t *testing.T) {
	s := newTestServer(t, &fakeExec{responses: []string{"42"}})

	result, err := s.handleExecuteCode(context.Background(), callRequest(map[string]any{
		"code": "OUTPUT = 42",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "42", textOf(t, result))
}

func TestHandleNWStatus_NotConfigured(t *testing.T) {
	s := newTestServer(t, &fakeExec{})

	result, err := s.handleNWStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), "navisworks")
}

func TestHandleExportExcel(t *testing.T) {
	s := newTestServer(t, &fakeExec{})

	result, err := s.handleExportExcel(context.Background(), callRequest(map[string]any{
		"data": `[{"name": "Кладка стен", "unit": "м3", "volume": 120.5}]`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var export struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &export))
	assert.FileExists(t, export.Path)
}
