package navisworks

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbagrov/bimtally/internal/common"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	u, err := url.Parse(serverURL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return NewClient(Config{Host: u.Hostname(), Port: port}, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{}, nil)
	assert.Equal(t, "http://localhost:48885", client.baseURL)

	client = NewClient(Config{Host: "buildsrv", Port: 9100}, nil)
	assert.Equal(t, "http://buildsrv:9100", client.baseURL)
}

func TestClient_GetStatus(t *testing.T) {
	t.Run("returns instance status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/status", r.URL.Path)
			_ = json.NewEncoder(w).Encode(Status{
				Version:  "2020",
				Status:   "ok",
				File:     `C:\models\federated.nwd`,
				Elements: 26548,
				Port:     48885,
			})
		}))
		defer server.Close()

		status, err := newTestClient(t, server.URL).GetStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", status.Status)
		assert.Equal(t, 26548, status.Elements)
	})

	t.Run("transport failure names the host", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		client := newTestClient(t, server.URL)
		server.Close()

		_, err := client.GetStatus(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrHostUnavailable)
	})
}

func TestClient_Clashes(t *testing.T) {
	inventory := ClashList{
		Tests: []ClashTest{
			{Name: "КР vs ОВиК", Status: "Done", TotalClashes: 47, ByStatus: map[string]int{"New": 32, "Active": 12, "Resolved": 3}},
			{Name: "КР vs ВК", Status: "Done", TotalClashes: 5},
			{Name: "Structural vs Electrical", Status: "New", TotalClashes: 0},
		},
		Count: 3,
	}

	newServer := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/clash/list", r.URL.Path)
			_ = json.NewEncoder(w).Encode(inventory)
		}))
	}

	t.Run("no filter returns everything", func(t *testing.T) {
		server := newServer()
		defer server.Close()

		list, err := newTestClient(t, server.URL).Clashes(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, 3, list.Count)
		assert.Equal(t, 47, list.Tests[0].TotalClashes)
	})

	t.Run("filter matches case-insensitive substring", func(t *testing.T) {
		server := newServer()
		defer server.Close()

		list, err := newTestClient(t, server.URL).Clashes(context.Background(), "овик")
		require.NoError(t, err)
		require.Equal(t, 1, list.Count)
		assert.Equal(t, "КР vs ОВиК", list.Tests[0].Name)
	})

	t.Run("no match lists available tests", func(t *testing.T) {
		server := newServer()
		defer server.Close()

		_, err := newTestClient(t, server.URL).Clashes(context.Background(), "Plumbing")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.Contains(t, err.Error(), "КР vs ОВиК")
		assert.Contains(t, err.Error(), "Structural vs Electrical")
	})

	t.Run("plugin error becomes APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "no document open"})
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Clashes(context.Background(), "")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "no document open", apiErr.Message)
	})
}

func TestClient_RunClash(t *testing.T) {
	t.Run("requires a test name", func(t *testing.T) {
		_, err := NewClient(Config{}, nil).RunClash(context.Background(), "  ")
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("runs by escaped name and rolls up statuses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/clash/run/КР vs ОВиК", r.URL.Path)
			assert.Contains(t, r.URL.EscapedPath(), "%20")

			_ = json.NewEncoder(w).Encode(ClashRun{
				TestName:     "КР vs ОВиК",
				TotalClashes: 4,
				Clashes: []Clash{
					{ID: "Clash1", Status: "New", Distance: -0.15, Level: "01 Этаж"},
					{ID: "Clash2", Status: "New", Distance: -0.08},
					{ID: "Clash3", Status: "Active", Distance: -0.30},
					{ID: "Clash4", Distance: -0.02},
				},
				RunAt: "2026-02-23T12:00:00Z",
			})
		}))
		defer server.Close()

		run, err := newTestClient(t, server.URL).RunClash(context.Background(), "КР vs ОВиК")
		require.NoError(t, err)
		assert.Equal(t, 4, run.TotalClashes)
		assert.Equal(t, map[string]int{"New": 2, "Active": 1, "Unknown": 1}, run.ByStatus)
	})
}

func TestClient_Volumes(t *testing.T) {
	t.Run("passes category filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/quantify/volumes", r.URL.Path)
			assert.Equal(t, "Стены", r.URL.Query().Get("category"))
			_ = json.NewEncoder(w).Encode(VolumeReport{
				Method:         "bbox_approximation",
				CategoryFilter: "Стены",
				TotalVolumeM3:  847.3,
				Categories:     []CategoryVolume{{Category: "Стены", VolumeM3: 847.3}},
			})
		}))
		defer server.Close()

		report, err := newTestClient(t, server.URL).Volumes(context.Background(), "Стены")
		require.NoError(t, err)
		assert.Equal(t, "bbox_approximation", report.Method)
		assert.InDelta(t, 847.3, report.TotalVolumeM3, 0.001)
	})

	t.Run("omits empty filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			_ = json.NewEncoder(w).Encode(VolumeReport{Method: "takeoff"})
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Volumes(context.Background(), "")
		require.NoError(t, err)
	})
}

func TestClient_Aggregate(t *testing.T) {
	t.Run("validates inputs", func(t *testing.T) {
		client := NewClient(Config{}, nil)

		_, err := client.Aggregate(context.Background(), nil, "out.nwd")
		assert.ErrorIs(t, err, common.ErrValidation)

		_, err = client.Aggregate(context.Background(), []string{"a.nwc"}, "")
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("posts model list and defaults method", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/aggregate", r.URL.Path)

			var req aggregateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{`C:\models\AR.nwc`, `C:\models\KR.nwc`}, req.Inputs)
			assert.Equal(t, `C:\models\Federated.nwd`, req.Output)

			_ = json.NewEncoder(w).Encode(AggregateResult{
				Success:       true,
				AppendedCount: 2,
				Appended:      req.Inputs,
				SavedTo:       req.Output,
			})
		}))
		defer server.Close()

		result, err := newTestClient(t, server.URL).Aggregate(context.Background(),
			[]string{`C:\models\AR.nwc`, `C:\models\KR.nwc`}, `C:\models\Federated.nwd`)
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "plugin", result.Method)
		assert.Equal(t, 2, result.AppendedCount)
	})
}

func TestClient_doJSON(t *testing.T) {
	t.Run("non-JSON body becomes APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("Internal Server Error"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).GetStatus(context.Background())
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.Contains(t, apiErr.Message, "unexpected response")
	})

	t.Run("error status without error body becomes APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("{}"))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).GetStatus(context.Background())
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}
