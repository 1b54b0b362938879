package lookup

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"nsiwatch/internal/catalog"
	"nsiwatch/internal/config"
	"nsiwatch/internal/search"
	"nsiwatch/internal/store"
)

type fakeSource struct {
	snap *catalog.Snapshot
}

func (f *fakeSource) Refresh(context.Context) error { return nil }
func (f *fakeSource) Current() *catalog.Snapshot    { return f.snap }

func setup(t *testing.T, snap *catalog.Snapshot) (*Plugin, *sql.DB, *http.ServeMux) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := store.Migrate(db); err != nil {
		t.Fatal(err)
	}

	p := New(db, &fakeSource{snap: snap}, &config.Config{
		SearchCacheSize: 8,
		SearchCacheTTL:  time.Minute,
	})

	mux := http.NewServeMux()
	for _, route := range p.Commands() {
		mux.HandleFunc(route.Method+" "+route.Path, route.Handler)
	}
	return p, db, mux
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot("1.0", []catalog.Record{
		{OID: 1, DocType: "Protocol", Name: "Consultation protocol"},
		{OID: 2, DocType: "Referral", Name: "Consultation referral"},
	})
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	_, _, mux := setup(t, testSnapshot())

	rec := get(t, mux, "/api/search?user_id=7&q=consultation")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var page search.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Errorf("total = %d, want 2", page.Total)
	}
}

func TestSearchRequiresUserID(t *testing.T) {
	_, _, mux := setup(t, testSnapshot())
	if rec := get(t, mux, "/api/search?q=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSearchBeforeCatalogLoaded(t *testing.T) {
	_, _, mux := setup(t, nil)
	if rec := get(t, mux, "/api/search?user_id=7&q=x"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSearchRecordsActivity(t *testing.T) {
	_, db, mux := setup(t, testSnapshot())

	get(t, mux, "/api/search?user_id=7&username=alex&q=consultation")

	summary, err := store.ActivitySummary(db, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(summary) != 1 || summary[0].UserID != 7 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestPageEndpoint(t *testing.T) {
	_, _, mux := setup(t, testSnapshot())

	get(t, mux, "/api/search?user_id=7&q=consultation&limit=1")

	rec := get(t, mux, "/api/search/page?user_id=7&limit=1&offset=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var page search.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 1 || page.Results[0].OID != 2 {
		t.Errorf("page = %+v, want second result", page)
	}
}

func TestPageWithoutSession(t *testing.T) {
	_, _, mux := setup(t, testSnapshot())

	rec := get(t, mux, "/api/search/page?user_id=42&limit=1&offset=0")
	if rec.Code != http.StatusGone {
		t.Errorf("status = %d, want 410 for expired session", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != search.ErrExpired.Error() {
		t.Errorf("error = %q", body["error"])
	}
}

func TestResetActionExpiresSession(t *testing.T) {
	p, _, mux := setup(t, testSnapshot())
	for _, action := range p.Actions() {
		mux.HandleFunc("POST /api/actions/"+action.Name, action.Handler)
	}

	get(t, mux, "/api/search?user_id=7&q=consultation")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/actions/search-reset?user_id=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	if rec := get(t, mux, "/api/search/page?user_id=7&limit=1&offset=0"); rec.Code != http.StatusGone {
		t.Errorf("status = %d, want 410 after reset", rec.Code)
	}
}

func TestScheduledRefreshTask(t *testing.T) {
	p, _, _ := setup(t, testSnapshot())
	tasks := p.ScheduledTasks()
	if len(tasks) != 1 || tasks[0].Name != "catalog-refresh" {
		t.Fatalf("tasks = %+v", tasks)
	}
}
