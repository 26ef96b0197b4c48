package salaryhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takehome/internal/domain/audit"
	"takehome/internal/domain/auth"
	"takehome/internal/domain/salary"
	"takehome/internal/platform/display"
	"takehome/internal/platform/jobs"
	"takehome/internal/requestctx"
	"takehome/internal/transport/http/middleware"
)

const testSecret = "handler-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func rulesDir() string {
	return filepath.Join("..", "..", "..", "..", "..", "rules")
}

func newTestRouter(t *testing.T, configure func(*Handler)) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := rulesDir()
	source := salary.NewFileSource(
		filepath.Join(dir, "medicare_levy.csv"),
		filepath.Join(dir, "budget_repair_levy.csv"),
		filepath.Join(dir, "income_tax.csv"),
		logger,
	)
	svc, err := salary.NewService(context.Background(), source, decimal.RequireFromString("9.5"), salary.WithLogger(logger))
	require.NoError(t, err)
	money, err := display.New("en-AU", "AUD")
	require.NoError(t, err)

	h := NewHandler(svc, money)
	h.Logger = logger
	if configure != nil {
		configure(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestCalculateHighIncome(t *testing.T) {
	router := newTestRouter(t, nil)
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", `{"grossSalary":"250,000","payFrequency":"W"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, env.Success)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "76938", data["incomeTax"])
	assert.Equal(t, "4567", data["medicareLevy"])
	assert.Equal(t, "967", data["budgetRepairLevy"])
	assert.Equal(t, "82472", data["deductions"])
	assert.Equal(t, "W", data["payFrequency"])
	assert.Equal(t, "AUD", data["currency"])

	formatted, ok := data["formatted"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, formatted["payPacket"], "per week")
}

func TestCalculateAcceptsNumbersAndSuperOverride(t *testing.T) {
	router := newTestRouter(t, nil)
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate",
		`{"grossSalary":36500,"payFrequency":"fortnightly","superannuationPercentage":0}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "36500", data["taxableIncome"])
	assert.Equal(t, "0", data["superannuation"])
	assert.Equal(t, "F", data["payFrequency"])
}

func TestCalculateValidation(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", `{"grossSalary":"abc","payFrequency":"Y","superannuationPercentage":"120"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_error", env.Error.Code)
	fields, ok := env.Error.Details["fields"].([]any)
	require.True(t, ok)
	assert.Len(t, fields, 3)

	rec, env = doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", `{"grossSalary":`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_payload", env.Error.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", `{"grossSalary":"-5","payFrequency":"M"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateRejectsExponentAmounts(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, body := range []string{
		`{"grossSalary":"1e2000000","payFrequency":"W"}`,
		`{"grossSalary":1e9,"payFrequency":"W"}`,
		`{"grossSalary":"65000","payFrequency":"W","superannuationPercentage":"1e1"}`,
	} {
		rec, env := doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", body, "")
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		require.NotNil(t, env.Error, body)
		assert.Equal(t, "validation_error", env.Error.Code, body)
	}
}

func TestPayslipReturnsPDFAndArchives(t *testing.T) {
	dir := t.TempDir()
	router := newTestRouter(t, func(h *Handler) { h.PayslipDir = dir })

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/salary/payslip", `{"grossSalary":"65000","payFrequency":"M","employee":"Jordan Lee"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	payslipID := rec.Header().Get("X-Payslip-ID")
	require.NotEmpty(t, payslipID)
	stored, err := os.ReadFile(filepath.Join(dir, payslipID+".pdf"))
	require.NoError(t, err)
	assert.Equal(t, rec.Body.Bytes(), stored)
}

func TestListRules(t *testing.T) {
	router := newTestRouter(t, nil)
	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view RuleBookView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Sets, 3)
	counts := map[salary.Category]int{}
	for _, set := range view.Sets {
		counts[set.Category] = len(set.Rules)
	}
	assert.Equal(t, 3, counts[salary.CategoryMedicareLevy])
	assert.Equal(t, 2, counts[salary.CategoryBudgetRepairLevy])
	assert.Equal(t, 5, counts[salary.CategoryIncomeTax])
}

func TestReloadRequiresRulesAdmin(t *testing.T) {
	router := newTestRouter(t, nil)

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/rules/reload", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := auth.GenerateToken(testSecret, "viewer-1", auth.RoleViewer, time.Hour)
	require.NoError(t, err)
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/rules/reload", "", viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := auth.GenerateToken(testSecret, "ops-1", auth.RoleRulesAdmin, time.Hour)
	require.NoError(t, err)
	rec, env := doJSON(t, router, http.MethodPost, "/api/v1/rules/reload", "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
}

func TestRequireAuthGuardsCalculation(t *testing.T) {
	router := newTestRouter(t, func(h *Handler) { h.RequireAuth = true })

	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", `{"grossSalary":"65000","payFrequency":"W"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer, err := auth.GenerateToken(testSecret, "viewer-1", auth.RoleViewer, time.Hour)
	require.NoError(t, err)
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/salary/calculate", `{"grossSalary":"65000","payFrequency":"W"}`, viewer)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeAuditor struct {
	events []audit.Event
}

func (f *fakeAuditor) Record(_ context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	f.events = append(f.events, audit.Event{
		ID:         int64(len(f.events) + 1),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  requestID,
		IP:         ip,
		CreatedAt:  time.Now(),
		Before:     beforeJSON,
		After:      afterJSON,
	})
	return nil
}

func (f *fakeAuditor) List(_ context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error) {
	var out []audit.Event
	for _, evt := range f.events {
		if filter.Action != "" && evt.Action != filter.Action {
			continue
		}
		if filter.ActorUser != "" && evt.ActorID != filter.ActorUser {
			continue
		}
		out = append(out, evt)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestReloadRecordsAuditEvent(t *testing.T) {
	auditor := &fakeAuditor{}
	router := newTestRouter(t, func(h *Handler) { h.Audit = auditor })

	admin, err := auth.GenerateToken(testSecret, "ops-1", auth.RoleRulesAdmin, time.Hour)
	require.NoError(t, err)
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/rules/reload", "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, auditor.events, 1)
	evt := auditor.events[0]
	assert.Equal(t, "ops-1", evt.ActorID)
	assert.Equal(t, audit.ActionRulesReload, evt.Action)
	assert.Equal(t, audit.EntityRuleBook, evt.EntityType)
	assert.NotEmpty(t, evt.RequestID)
	assert.JSONEq(t, `{"medicare_levy":3,"budget_repair_levy":2,"income_tax":5}`, string(evt.After))

	rec, env := doJSON(t, router, http.MethodGet, "/api/v1/rules/audit?actor=ops-1&limit=10", "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var events []audit.Event
	require.NoError(t, json.Unmarshal(env.Data, &events))
	assert.Len(t, events, 1)

	rec, _ = doJSON(t, router, http.MethodGet, "/api/v1/rules/audit?limit=-1", "", admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuditRouteAbsentWithoutAuditor(t *testing.T) {
	router := newTestRouter(t, nil)
	admin, err := auth.GenerateToken(testSecret, "ops-1", auth.RoleRulesAdmin, time.Hour)
	require.NoError(t, err)
	rec, _ := doJSON(t, router, http.MethodGet, "/api/v1/rules/audit", "", admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type recordingRunner struct {
	runner  *jobs.Service
	types   []string
	actors  []string
	details []any
}

func (r *recordingRunner) RunNow(ctx context.Context, jobType string, run jobs.RunFunc) (any, error) {
	r.types = append(r.types, jobType)
	r.actors = append(r.actors, requestctx.GetActor(ctx))
	details, err := r.runner.RunNow(ctx, jobType, run)
	r.details = append(r.details, details)
	return details, err
}

func TestReloadRunsAsJob(t *testing.T) {
	runner := &recordingRunner{runner: jobs.New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))}
	router := newTestRouter(t, func(h *Handler) { h.Jobs = runner })

	admin, err := auth.GenerateToken(testSecret, "ops-1", auth.RoleRulesAdmin, time.Hour)
	require.NoError(t, err)
	rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/rules/reload", "", admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, []string{jobs.JobRulesReload}, runner.types)
	assert.Equal(t, []string{"ops-1"}, runner.actors)
	counts, ok := runner.details[0].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 5, counts["income_tax"])
}
