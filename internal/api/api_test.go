package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/autowriter/internal/bulk"
	"github.com/bilgisen/autowriter/internal/config"
	"github.com/bilgisen/autowriter/internal/importer"
	"github.com/bilgisen/autowriter/internal/middleware"
	"github.com/bilgisen/autowriter/internal/models"
	"github.com/bilgisen/autowriter/internal/pipeline"
	"github.com/bilgisen/autowriter/internal/pipeline/pipelinetest"
	"github.com/bilgisen/autowriter/internal/scheduler"
	"github.com/bilgisen/autowriter/internal/store/memory"
	"github.com/bilgisen/autowriter/internal/utils"
)

// Wednesday 09:00 UTC
var fixed = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

type testApp struct {
	app  *fiber.App
	db   *memory.DB
	bulk *bulk.Manager
}

type activityReader struct {
	limits []int
}

func (r *activityReader) Recent(_ context.Context, siteID string, limit int) ([]models.Activity, error) {
	r.limits = append(r.limits, limit)
	return []models.Activity{{SiteID: siteID, Type: models.ActivityArticleGenerated}}, nil
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, nil)
}

func newTestAppWith(t *testing.T, reader ActivityReader) *testApp {
	t.Helper()
	db := memory.New()
	db.AddSite(models.Site{ID: "s1", Name: "Site One"})
	for _, id := range []string{"k1", "k2"} {
		text := "topic " + id
		db.AddKeyword(models.Keyword{ID: id, SiteID: "s1", Text: text, TextHash: utils.KeywordHash(text), Status: models.KeywordPending, CreatedAt: fixed})
	}

	s := db.Store()
	now := func() time.Time { return fixed }
	p := pipeline.New(s, pipeline.Deps{Generator: &pipelinetest.Generator{}, Now: now})
	mgr := bulk.NewManager(context.Background(), s, bulk.NewOrchestrator(p, nil, time.Second))

	h := NewHandlers(Deps{
		Config:   &config.Config{CronSecret: "secret", AdminAPIKey: "admin", ActivityMaxEntries: 100},
		Store:    s,
		Generate: scheduler.NewGeneratePass(s, p, time.UTC),
		Publish:  scheduler.NewPublishPass(s, nil),
		Sweeper:  scheduler.NewSweeper(s.Keywords, nil, time.Minute),
		Bulk:     mgr,
		Importer: importer.New(s),
		Activity: reader,
		Now:      now,
	})
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	SetupRoutes(app, h)
	return &testApp{app: app, db: db, bulk: mgr}
}

func (a *testApp) do(t *testing.T, method, path, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (a *testApp) admin(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	return a.do(t, method, path, body, "X-API-Key", "admin")
}

func TestHealthCheck(t *testing.T) {
	a := newTestApp(t)
	resp, body := a.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestCronRequiresSecret(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.do(t, http.MethodGet, "/api/cron/generate", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/cron/generate", "", "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCronGenerateAndPublish(t *testing.T) {
	a := newTestApp(t)
	a.db.AddSchedule(models.SchedulerConfig{SiteID: "s1", Enabled: true, DaysOfWeek: []int64{3}, PublishHours: []int64{9}, MaxPerDay: 1})

	resp, body := a.do(t, http.MethodPost, "/api/cron/generate", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var gen struct {
		Success       bool `json:"success"`
		Generated     int  `json:"generated"`
		ActiveConfigs int  `json:"active_configs"`
	}
	require.NoError(t, json.Unmarshal(body, &gen))
	assert.True(t, gen.Success)
	assert.Equal(t, 1, gen.Generated)
	assert.Equal(t, 1, gen.ActiveConfigs)

	resp, body = a.do(t, http.MethodGet, "/api/cron/publish", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"published":0`)

	resp, body = a.do(t, http.MethodGet, "/api/cron/sweep", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"reset":0`)
}

func TestAdminRoutesRequireKey(t *testing.T) {
	a := newTestApp(t)
	resp, _ := a.do(t, http.MethodGet, "/api/sites", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/sites", "", "X-API-Key", "nope")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := a.admin(t, http.MethodGet, "/api/sites", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Site One")
}

func TestPutScheduler(t *testing.T) {
	a := newTestApp(t)

	resp, body := a.admin(t, http.MethodPut, "/api/sites/s1/scheduler", `{"enabled":true,"days_of_week":[1],"publish_hours":[25],"max_per_day":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, string(body), "publish_hours")

	resp, body = a.admin(t, http.MethodPut, "/api/sites/s1/scheduler", `{"enabled":true,"days_of_week":[1,3,3],"publish_hours":[9],"max_per_day":5,"max_per_week":6}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Config   models.SchedulerConfig `json:"config"`
		Warnings []string               `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, []int64{1, 3}, []int64(out.Config.DaysOfWeek))
	assert.Len(t, out.Warnings, 1)

	resp, _ = a.admin(t, http.MethodGet, "/api/sites/s1/scheduler", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.admin(t, http.MethodPut, "/api/sites/missing/scheduler", `{"enabled":false}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetKeywordStatus(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.admin(t, http.MethodPatch, "/api/keywords/status", `{"ids":["k1"],"status":"generating"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := a.admin(t, http.MethodPatch, "/api/keywords/status", `{"ids":["k1","nope"],"status":"archived"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"updated":1`)
	assert.Contains(t, string(body), `"skipped":1`)
	k, _ := a.db.Keyword("k1")
	assert.Equal(t, models.KeywordArchived, k.Status)

	held := models.Keyword{ID: "k3", SiteID: "s1", Text: "held", Status: models.KeywordGenerating, CreatedAt: fixed}
	a.db.AddKeyword(held)
	resp, body = a.admin(t, http.MethodPatch, "/api/keywords/status", `{"ids":["k3"],"status":"pending"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"updated":0`)
	assert.Contains(t, string(body), `"skipped":1`)
	k, _ = a.db.Keyword("k3")
	assert.Equal(t, models.KeywordGenerating, k.Status)
}

func TestImportKeywords(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.admin(t, http.MethodPost, "/api/sites/s1/keywords/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := a.admin(t, http.MethodPost, "/api/sites/s1/keywords/import", `{"keywords":[{"text":"fresh topic","priority":2},{"text":"Topic K1"}]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var report importer.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 2, report.Received)
	assert.Equal(t, 1, report.Inserted)
}

func TestArticleTransitions(t *testing.T) {
	a := newTestApp(t)
	a.db.AddArticle(models.Article{ID: "a1", SiteID: "s1", Slug: "a1", Status: models.ArticleStatusDraft, CreatedAt: fixed})

	resp, body := a.admin(t, http.MethodPost, "/api/articles/a1/ready", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"status":"ready"`)

	resp, _ = a.admin(t, http.MethodPost, "/api/articles/a1/ready", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = a.admin(t, http.MethodPost, "/api/articles/missing/ready", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/api/cron/publish", "", "Authorization", "Bearer secret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.admin(t, http.MethodPost, "/api/articles/a1/unpublish", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "s1 does not auto-publish, a1 is still ready")
}

func TestBulkRunLifecycle(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.admin(t, http.MethodGet, "/api/bulk/runs/current", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = a.admin(t, http.MethodPost, "/api/bulk/runs/current/cancel", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = a.admin(t, http.MethodPost, "/api/bulk/runs", `{"sites":[{"site_id":"s1","count":1}],"options":{"improvement_model":"claude"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = a.admin(t, http.MethodPost, "/api/bulk/runs", `{"sites":[]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := a.admin(t, http.MethodPost, "/api/bulk/runs", `{"sites":[{"site_id":"s1","count":5}],"options":{"auto_publish":true}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	var plan bulk.Plan
	require.NoError(t, json.Unmarshal(body, &plan))
	assert.Equal(t, 2, plan.Total)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.bulk.Wait(ctx))

	resp, body = a.admin(t, http.MethodGet, "/api/bulk/runs/current", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap bulk.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.False(t, snap.IsRunning)
	assert.Equal(t, 2, snap.Completed)
	assert.Len(t, snap.Results, 2)

	for _, art := range a.db.SiteArticles("s1") {
		assert.Equal(t, models.ArticleStatusPublished, art.Status)
	}

	resp, body = a.admin(t, http.MethodGet, "/api/bulk/runs/current/stream", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "event: done\ndata: ")
}

func TestSiteActivityLimit(t *testing.T) {
	reader := &activityReader{}
	a := newTestAppWith(t, reader)

	resp, body := a.admin(t, http.MethodGet, "/api/sites/s1/activity", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"total":1`)

	resp, _ = a.admin(t, http.MethodGet, "/api/sites/s1/activity?limit=1000000", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.admin(t, http.MethodGet, "/api/sites/s1/activity?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, []int{50, 100}, reader.limits)
}

func TestSiteActivityWithoutLog(t *testing.T) {
	a := newTestApp(t)
	resp, _ := a.admin(t, http.MethodGet, "/api/sites/s1/activity", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
