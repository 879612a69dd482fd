package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readtrack/internal/activity"
	"github.com/mrlokans/readtrack/internal/audit"
	"github.com/mrlokans/readtrack/internal/catalog"
	"github.com/mrlokans/readtrack/internal/clock"
	"github.com/mrlokans/readtrack/internal/config"
	"github.com/mrlokans/readtrack/internal/database"
	auditRepo "github.com/mrlokans/readtrack/internal/database/audit"
	"github.com/mrlokans/readtrack/internal/database/keyvalue"
	"github.com/mrlokans/readtrack/internal/document"
	"github.com/mrlokans/readtrack/internal/ledger"
	"github.com/mrlokans/readtrack/internal/metrics"
	"github.com/mrlokans/readtrack/internal/progress"
	"github.com/mrlokans/readtrack/internal/reader"
	"github.com/mrlokans/readtrack/internal/session"
	"github.com/mrlokans/readtrack/internal/settingsstore"
	"github.com/mrlokans/readtrack/internal/stats"
	"github.com/mrlokans/readtrack/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	clock   *clock.Manual
	catalog *catalog.Manager
	index   *activity.Index
	audit   *audit.Service
	queue   *fakeQueue
}

type fakeQueue struct {
	enqueued []backlite.Task
}

func (f *fakeQueue) Enqueue(ctx context.Context, task backlite.Task) (string, error) {
	f.enqueued = append(f.enqueued, task)
	return "task-" + task.Config().Name, nil
}

func (f *fakeQueue) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	if taskID == "task-rebuild_index" {
		return backlite.TaskStatusSuccess, nil
	}
	return backlite.TaskStatusNotFound, nil
}

func newTestServer(t *testing.T, cascade config.CascadePolicy) *testServer {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := keyvalue.NewRepository(db.DB)
	u := store.NewUpdater(s, 5)
	clk := clock.NewManual(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := metrics.New()
	auditSvc := audit.NewService(auditRepo.NewRepository(db.DB))
	t.Cleanup(auditSvc.Wait)

	idx := activity.NewIndex(s, u, clk, m)
	l := ledger.NewRepository(s, u)
	cat := catalog.NewManager(catalog.ManagerConfig{
		Store:   s,
		Updater: u,
		Cascade: cascade,
		Clock:   clk,
		Audit:   auditSvc,
		Metrics: m,
	})
	tracker := progress.NewTracker(progress.TrackerConfig{Store: s, Updater: u, Books: cat, Finished: idx, Clock: clk})
	cat.SetProgressSource(tracker)
	cat.SetPurger(tracker)

	reading := session.NewReadingClock(clk, l, idx, m)
	app := session.NewAppClock(clk, l, m)
	queue := &fakeQueue{}

	router := NewRouter(RouterConfig{
		Database:       db,
		StoreBackend:   "sqlite",
		Version:        "test",
		Catalog:        cat,
		Cascade:        string(cat.Cascade()),
		Progress:       tracker,
		Annotations:    tracker,
		Reader:         reader.NewSurface(cat, document.NewLoader(0), tracker, reading),
		SessionState:   reading,
		App:            app,
		Calendar:       idx,
		Stats:          stats.NewAggregator(l, idx, tracker),
		Preferences:    settingsstore.New(s, config.Preferences{}),
		AuditLog:       auditSvc,
		NoteAuditor:    auditSvc,
		TaskQueue:      queue,
		MetricsHandler: m.Handler(),
	})

	return &testServer{router: router, clock: clk, catalog: cat, index: idx, audit: auditSvc, queue: queue}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return "file://" + path
}

func (ts *testServer) importBook(t *testing.T, name, text string) BookView {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/books", ImportBookRequest{Locator: writeFile(t, name, []byte(text)), Name: name})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return BookView{Book: decode[BookView](t, w).Book}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	w := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "ok", resp.Checks["database"])
	assert.Equal(t, "sqlite", resp.Checks["store_backend"])

	w = ts.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

type brokenPinger struct{}

func (brokenPinger) Ping() error { return assert.AnError }

func TestHealth_Unhealthy(t *testing.T) {
	router := gin.New()
	router.GET("/health", NewHealthController(brokenPinger{}, "pebble", "").Status)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBooks_ImportListGet(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	first := ts.importBook(t, "alpha.txt", "alpha")
	second := ts.importBook(t, "beta.txt", "beta")
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "2", second.ID)

	w := ts.do(t, http.MethodGet, "/api/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Books []BookView `json:"books"`
		Count int        `json:"count"`
	}](t, w)
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "alpha.txt", list.Books[0].Title)

	w = ts.do(t, http.MethodGet, "/api/books/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[BookView](t, w)
	assert.Equal(t, "beta.txt", got.Title)
	assert.Zero(t, got.Progress)

	w = ts.do(t, http.MethodGet, "/api/books/2/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"book_id":"2","progress":0}`, w.Body.String())
}

func TestBooks_Errors(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/books?filter=epub", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/books?sort=title", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/books/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/books/42", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/books", gin.H{"name": "x.txt"}).Code)
}

func TestBooks_FilterAndSort(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "plain.txt", "plain")
	ts.importBook(t, "scan.pdf", "not really a pdf")

	w := ts.do(t, http.MethodGet, "/api/books?filter=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scan.pdf")
	assert.NotContains(t, w.Body.String(), "plain.txt")

	w = ts.do(t, http.MethodPost, "/api/reader/1/scroll", reader.Viewport{Offset: 400, ContentHeight: 1000, ViewportHeight: 200})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/books?sort=progress_desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Books []BookView `json:"books"`
	}](t, w)
	require.Len(t, list.Books, 2)
	assert.Equal(t, "1", list.Books[0].ID)
	assert.InDelta(t, 50.0, list.Books[0].Progress, 0.001)
}

func TestFavourites_Toggle(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "fav.txt", "fav")

	w := ts.do(t, http.MethodPost, "/api/books/1/favourite", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "favourite added")

	w = ts.do(t, http.MethodGet, "/api/books?filter=favorites", nil)
	assert.Contains(t, w.Body.String(), "fav.txt")

	w = ts.do(t, http.MethodPost, "/api/books/1/favourite", nil)
	assert.Contains(t, w.Body.String(), "favourite removed")

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/books/9/favourite", nil).Code)
}

func TestDelete_TwoStep(t *testing.T) {
	ts := newTestServer(t, config.CascadePurge)
	ts.importBook(t, "gone.txt", "gone")
	ts.importBook(t, "kept.txt", "kept")

	w := ts.do(t, http.MethodPost, "/api/books/1/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	req := decode[struct {
		Token   string `json:"token"`
		Cascade string `json:"cascade"`
	}](t, w)
	require.NotEmpty(t, req.Token)
	assert.Equal(t, "purge", req.Cascade)

	// The book stays until the request is confirmed.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/books/1", nil).Code)

	w = ts.do(t, http.MethodPost, "/api/books/delete/"+req.Token+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/books/1", nil).Code)

	// A token can only be used once.
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/books/delete/"+req.Token+"/confirm", nil).Code)

	// Ids are never reused.
	next := ts.importBook(t, "new.txt", "new")
	assert.Equal(t, "3", next.ID)
}

func TestDelete_CancelAndExpire(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "stay.txt", "stay")

	w := ts.do(t, http.MethodPost, "/api/books/1/delete", nil)
	token := decode[struct {
		Token string `json:"token"`
	}](t, w).Token

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodDelete, "/api/books/delete/"+token, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/books/delete/"+token+"/confirm", nil).Code)

	w = ts.do(t, http.MethodPost, "/api/books/1/delete", nil)
	token = decode[struct {
		Token string `json:"token"`
	}](t, w).Token
	ts.clock.Advance(catalog.DefaultDeleteConfirmTTL + time.Second)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/books/delete/"+token+"/confirm", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/books/1", nil).Code)
}

func TestAnnotations(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "marks.txt", "marks")

	w := ts.do(t, http.MethodPost, "/api/books/1/bookmarks", gin.H{"offset": 120.5})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPost, "/api/books/1/bookmarks", gin.H{"offset": 0})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/books/1/bookmarks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"bookmarks":[120.5,0]}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/books/1/bookmarks", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/books/1/bookmarks", gin.H{"offset": -3}).Code)

	w = ts.do(t, http.MethodPost, "/api/books/1/notes", AddNoteRequest{Text: "remember the lighthouse"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/books/1/notes", AddNoteRequest{Text: "  "}).Code)

	w = ts.do(t, http.MethodGet, "/api/books/1/notes", nil)
	assert.JSONEq(t, `{"notes":["remember the lighthouse"]}`, w.Body.String())

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/books/5/notes", nil).Code)
}

func TestReader_SessionFlow(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "story.txt", "It was a dark and stormy night.")
	today := activity.DateOf(ts.clock.Now())

	w := ts.do(t, http.MethodGet, "/api/reader/session", nil)
	assert.JSONEq(t, `{"state":"idle"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/reader/1/open", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	opened := decode[reader.OpenResult](t, w)
	assert.Equal(t, "It was a dark and stormy night.", opened.Document.Text)
	assert.Equal(t, "1", opened.Session.BookID)

	ts.clock.Advance(125 * time.Second)

	w = ts.do(t, http.MethodGet, "/api/reader/session", nil)
	assert.Contains(t, w.Body.String(), `"state":"running"`)
	assert.Contains(t, w.Body.String(), `"accumulated_seconds":125`)

	w = ts.do(t, http.MethodPost, "/api/reader/1/scroll", reader.Viewport{Offset: 800, ContentHeight: 1000, ViewportHeight: 200})
	require.Equal(t, http.StatusOK, w.Code)
	scrolled := decode[reader.ScrollResult](t, w)
	assert.InDelta(t, 100.0, scrolled.Progress, 0.001)

	w = ts.do(t, http.MethodPost, "/api/reader/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accumulated_seconds":125`)

	// Closing again has no session to end.
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/api/reader/close", nil).Code)

	w = ts.do(t, http.MethodGet, "/api/calendar/days/"+today, nil)
	require.Equal(t, http.StatusOK, w.Code)
	day := decode[struct {
		Entry struct {
			ReadingSeconds  uint64   `json:"reading_seconds"`
			FinishedBookIDs []string `json:"finished_book_ids"`
		} `json:"entry"`
		HasActivity bool `json:"has_activity"`
	}](t, w)
	assert.Equal(t, uint64(125), day.Entry.ReadingSeconds)
	assert.Equal(t, []string{"1"}, day.Entry.FinishedBookIDs)
	assert.True(t, day.HasActivity)

	w = ts.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[StatsResponse](t, w)
	assert.Equal(t, uint64(125), summary.TotalReadingSeconds)
	assert.Equal(t, "2m 5s", summary.TotalReadingTime)
	assert.Equal(t, 1, summary.FinishedBookCount)
	assert.Equal(t, 1, summary.DaysWithReadingRecord)
	require.NotNil(t, summary.LastSessionEnd)
}

func TestReader_OpenUndecodable(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "binary.txt", "bad\x00bytes")

	w := ts.do(t, http.MethodPost, "/api/reader/1/open", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = ts.do(t, http.MethodGet, "/api/reader/session", nil)
	assert.JSONEq(t, `{"state":"idle"}`, w.Body.String())
}

func TestApp_ForegroundBackground(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/api/app/foreground", nil).Code)
	assert.JSONEq(t, `{"foreground":true}`, ts.do(t, http.MethodGet, "/api/app", nil).Body.String())

	ts.clock.Advance(90 * time.Second)
	w := ts.do(t, http.MethodPost, "/api/app/background", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"foreground":false,"flushed_seconds":90}`, w.Body.String())

	summary := decode[StatsResponse](t, ts.do(t, http.MethodGet, "/api/stats", nil))
	assert.Equal(t, uint64(90), summary.TotalAppSeconds)
	assert.Equal(t, "1m 30s", summary.TotalAppTime)
}

func TestCalendar(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	w := ts.do(t, http.MethodPut, "/api/calendar/days/2026-03-02/note", SetNoteRequest{Text: "finished the first part"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/calendar/days/2026-03-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "finished the first part")

	w = ts.do(t, http.MethodGet, "/api/calendar/2026/3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	month := decode[struct {
		Days       []activity.CalendarDay `json:"days"`
		ActiveDays int                    `json:"active_days"`
	}](t, w)
	assert.Len(t, month.Days, 31)
	assert.Equal(t, 1, month.ActiveDays)
	assert.True(t, month.Days[1].HasActivity)
	assert.True(t, month.Days[13].IsToday)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/calendar/2026/13", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/calendar/days/2026-02-30", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/calendar/days/yesterday/note", SetNoteRequest{Text: "x"}).Code)

	ts.audit.Wait()
	w = ts.do(t, http.MethodGet, "/api/audit?type=note", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestPreferences(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	w := ts.do(t, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	info := decode[settingsstore.AppearanceInfo](t, w)
	assert.Equal(t, config.DefaultTheme, info.Theme)
	assert.Equal(t, "default", info.ThemeSource)

	w = ts.do(t, http.MethodPut, "/api/preferences", gin.H{"theme": "dark", "background_image": "file:///bg.png"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info = decode[settingsstore.AppearanceInfo](t, w)
	assert.Equal(t, "dark", info.Theme)
	assert.Equal(t, "store", info.ThemeSource)
	assert.Equal(t, "file:///bg.png", info.BackgroundImage)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/preferences", gin.H{"theme": "neon"}).Code)
}

func TestAudit_ImportHistory(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "logged.txt", "logged")
	ts.audit.Wait()

	w := ts.do(t, http.MethodGet, "/api/audit/book/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_import")
}

func TestTasks(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)

	w := ts.do(t, http.MethodGet, "/api/tasks/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rebuild_index")

	w = ts.do(t, http.MethodPost, "/api/tasks/rebuild_index/run", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "task-rebuild_index")
	require.Len(t, ts.queue.enqueued, 1)

	w = ts.do(t, http.MethodPost, "/api/tasks/cleanup_audit_events/run", gin.H{"retention_days": 3})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, ts.queue.enqueued, 2)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/tasks/purge_book/run", nil).Code)

	w = ts.do(t, http.MethodGet, "/api/tasks/task-rebuild_index", nil)
	assert.JSONEq(t, `{"id":"task-rebuild_index","status":"success"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, config.CascadeRetain)
	ts.importBook(t, "counted.txt", "counted")

	w := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}
