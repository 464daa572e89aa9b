package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/eldamo/pkg/db"
	"github.com/japaniel/eldamo/pkg/snapshot"
	"github.com/japaniel/eldamo/pkg/source"
)

const samplePath = "../eldamo/testdata/sample.xml"

func newTestServer(t *testing.T, path string) (*httptest.Server, *sql.DB) {
	t.Helper()
	hist, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	hist.SetMaxOpenConns(1)
	require.NoError(t, db.InitDB(hist))
	t.Cleanup(func() { hist.Close() })

	reg := prometheus.NewRegistry()
	cache := snapshot.New(source.NewFileSource(path),
		snapshot.WithMetrics(reg),
		snapshot.WithObserver(db.NewRecorder(hist, path, nil)))
	srv := httptest.NewServer(NewServer(cache, hist, reg, nil))
	t.Cleanup(srv.Close)
	return srv, hist
}

func get(t *testing.T, srv *httptest.Server, path string, into any) int {
	t.Helper()
	resp, err := srv.Client().Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)
	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, srv, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestWordByID(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)

	var w wordView
	require.Equal(t, http.StatusOK, get(t, srv, "/api/words/100", &w))
	assert.Equal(t, "alda", w.Verbum)
	assert.Equal(t, "Quenya", w.LanguageName)
	assert.Equal(t, []string{"101"}, w.Children)
	require.Len(t, w.Refs, 1)
	assert.Equal(t, "PE17/056.2410", w.Refs[0].Source)

	var cognate *relationView
	for i := range w.Relations {
		if w.Relations[i].Kind == "cognate" {
			cognate = &w.Relations[i]
		}
	}
	require.NotNil(t, cognate)
	assert.Equal(t, "s galadh", cognate.Target)
	assert.Equal(t, "200", cognate.PageID)

	require.Len(t, w.Notes, 1)
	assert.Equal(t,
		`See <a href="/api/words?l=s&amp;v=galadh">galadh</a> and <a href="/api/refs?source=PE17%2F153.1030">the root</a>.`,
		w.Notes[0])
}

func TestFindWord(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)

	var w wordView
	require.Equal(t, http.StatusOK, get(t, srv, "/api/words?l=s&v=galadh", &w))
	assert.Equal(t, "200", w.PageID)

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/words?l=s&v=nope", &e))
	assert.Contains(t, e["error"], "not found")
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/words?l=s", &e))
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/words/999", &e))
}

func TestRefs(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)

	var ref refView
	require.Equal(t, http.StatusOK, get(t, srv, "/api/refs?source="+url.QueryEscape("PE17/153.1030"), &ref))
	assert.Equal(t, "200", ref.Owner)

	var owner wordView
	require.Equal(t, http.StatusOK, get(t, srv, "/api/refs/owner?source="+url.QueryEscape("PE17/056.2410"), &owner))
	assert.Equal(t, "100", owner.PageID)

	var related struct {
		Refs []refView `json:"refs"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/api/words/100/refs", &related))
	assert.Equal(t, []refView{
		{Source: "PE17/056.2410", Verbum: "alda", Owner: "100"},
		{Source: "PE17/153.1030", Verbum: "galadh", Owner: "200"},
	}, related.Refs)

	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/refs", &e))
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/refs/owner?source=XX/1", &e))
}

func TestRules(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)

	var w wordView
	q := url.Values{"l": {"q"}, "rule": {"a"}, "from": {"ā"}}
	require.Equal(t, http.StatusOK, get(t, srv, "/api/rules?"+q.Encode(), &w))
	assert.Equal(t, "400", w.PageID)

	var e map[string]string
	q.Set("from", "o")
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/rules?"+q.Encode(), &e))
}

func TestStatsAndHistory(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)

	var st statsView
	require.Equal(t, http.StatusOK, get(t, srv, "/api/stats", &st))
	assert.Equal(t, 6, st.Words)
	assert.Equal(t, 4, st.Refs)
	assert.Equal(t, 2, st.Rules)
	assert.Equal(t, "0.9.1", st.Document)

	var hist struct {
		Loads []loadView `json:"loads"`
	}
	require.Equal(t, http.StatusOK, get(t, srv, "/api/history", &hist))
	require.Len(t, hist.Loads, 1)
	assert.Equal(t, st.SnapshotID, hist.Loads[0].LoadID)
	assert.Empty(t, hist.Loads[0].Error)

	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/history?limit=x", &e))
}

func TestSourceUnavailable(t *testing.T) {
	srv, hist := newTestServer(t, filepath.Join(t.TempDir(), "missing.xml"))

	var e map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv, "/api/words/100", &e))
	assert.Contains(t, e["error"], "document source unavailable")

	// the version check fails before any reload is attempted
	loads, err := db.RecentLoads(hist, 10)
	require.NoError(t, err)
	assert.Empty(t, loads)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, samplePath)
	get(t, srv, "/api/words/100", nil)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `eldamo_http_requests_total{method="GET",route="/api/words/{pageID}",status="200"} 1`)
	assert.Contains(t, string(body), "eldamo_snapshot_words 6")
}
