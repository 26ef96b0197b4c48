package salaryhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"takehome/internal/domain/audit"
	"takehome/internal/domain/auth"
	"takehome/internal/domain/salary"
	"takehome/internal/platform/jobs"
	"takehome/internal/requestctx"
	"takehome/internal/transport/http/api"
	"takehome/internal/transport/http/middleware"
	"takehome/internal/transport/http/shared"
)

// SalaryService is the part of salary.Service the handlers use.
type SalaryService interface {
	Calculate(gross decimal.Decimal, frequency salary.Frequency) (salary.Computation, error)
	CalculateWithSuper(gross, superPercentage decimal.Decimal, frequency salary.Frequency) (salary.Computation, error)
	Rules() salary.RuleBook
	LoadedAt() time.Time
	Reload(ctx context.Context) error
}

// Auditor stores the rule change trail. It is optional.
type Auditor interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Event, error)
}

// JobRunner records on-demand work as a job run. It is optional.
type JobRunner interface {
	RunNow(ctx context.Context, jobType string, run jobs.RunFunc) (any, error)
}

type MoneyFormatter interface {
	salary.MoneyFormatter
	PayPacket(c salary.Computation) string
	Currency() string
}

type Handler struct {
	Service     SalaryService
	Money       MoneyFormatter
	Audit       Auditor
	Jobs        JobRunner
	RequireAuth bool
	PayslipDir  string
	Logger      *slog.Logger
}

func NewHandler(service SalaryService, money MoneyFormatter) *Handler {
	return &Handler{Service: service, Money: money, Logger: slog.Default()}
}

// amountField accepts either a JSON string ("65,000") or a JSON number.
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*a = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return errors.New("amount must be a string or number")
	}
	*a = amountField(n.String())
	return nil
}

type calculatePayload struct {
	GrossSalary              amountField `json:"grossSalary"`
	PayFrequency             string      `json:"payFrequency"`
	SuperannuationPercentage amountField `json:"superannuationPercentage"`
	Employee                 string      `json:"employee"`
}

type CalculationView struct {
	salary.Computation
	Deductions decimal.Decimal `json:"deductions"`
	Currency   string          `json:"currency"`
	Formatted  FormattedView   `json:"formatted"`
}

type FormattedView struct {
	GrossSalary   string `json:"grossSalary"`
	TaxableIncome string `json:"taxableIncome"`
	NetIncome     string `json:"netIncome"`
	PayPacket     string `json:"payPacket"`
}

type RuleSetView struct {
	Category salary.Category        `json:"category"`
	Source   string                 `json:"source"`
	Skipped  int                    `json:"skipped"`
	Rules    []salary.ThresholdRule `json:"rules"`
}

type RuleBookView struct {
	LoadedAt time.Time     `json:"loadedAt"`
	Sets     []RuleSetView `json:"sets"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/salary", func(r chi.Router) {
		r.With(h.guard(auth.PermSalaryCalculate)).Post("/calculate", h.handleCalculate)
		r.With(h.guard(auth.PermSalaryCalculate)).Post("/payslip", h.handlePayslip)
	})
	r.Route("/rules", func(r chi.Router) {
		r.With(h.guard(auth.PermRulesRead)).Get("/", h.handleListRules)
		r.With(middleware.RequirePermission(auth.PermRulesReload)).Post("/reload", h.handleReloadRules)
		if h.Audit != nil {
			r.With(middleware.RequirePermission(auth.PermRulesReload)).Get("/audit", h.handleListAudit)
		}
	})
}

// guard only enforces the permission when the deployment requires auth.
func (h *Handler) guard(permission string) func(http.Handler) http.Handler {
	if h.RequireAuth {
		return middleware.RequirePermission(permission)
	}
	return func(next http.Handler) http.Handler { return next }
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	comp, _, ok := h.compute(w, r)
	if !ok {
		return
	}
	api.Success(w, h.view(comp), requestID)
}

func (h *Handler) handlePayslip(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	comp, payload, ok := h.compute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := salary.RenderPayslipPDF(&buf, comp, h.Money, salary.PayslipOptions{
		Employee: strings.TrimSpace(payload.Employee),
		IssuedAt: time.Now(),
	})
	if err != nil {
		h.logger().Error("render payslip failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to render payslip", requestID)
		return
	}

	payslipID := uuid.NewString()
	if h.PayslipDir != "" {
		path := filepath.Join(h.PayslipDir, payslipID+".pdf")
		if err := os.WriteFile(path, buf.Bytes(), 0o640); err != nil {
			h.logger().Error("archive payslip failed", "err", err, "path", path, "requestId", requestID)
			api.Fail(w, http.StatusInternalServerError, "payslip_failed", "failed to store payslip", requestID)
			return
		}
	}

	w.Header().Set("X-Payslip-ID", payslipID)
	api.Attachment(w, api.ContentTypePDF, "payslip-"+payslipID+".pdf", buf.Bytes())
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.ruleBookView(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReloadRules(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	before := h.Service.Rules().Counts()
	ctx := requestctx.WithActor(r.Context(), user.Subject)
	reload := func(ctx context.Context) (any, error) {
		if err := h.Service.Reload(ctx); err != nil {
			return nil, err
		}
		return h.Service.Rules().Counts(), nil
	}
	var err error
	if h.Jobs != nil {
		_, err = h.Jobs.RunNow(ctx, jobs.JobRulesReload, reload)
	} else {
		_, err = reload(ctx)
	}
	if err != nil {
		h.logger().Error("rule reload failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "rules_reload_failed", "failed to reload rules", requestID)
		return
	}
	view := h.ruleBookView()

	h.logger().Info("rules reloaded", "subject", user.Subject, "requestId", requestID)
	if h.Audit != nil {
		if err := h.Audit.Record(r.Context(), user.Subject, audit.ActionRulesReload, audit.EntityRuleBook, "all", requestID, middleware.ClientIP(r), before, h.Service.Rules().Counts()); err != nil {
			h.logger().Warn("audit record failed", "err", err, "requestId", requestID)
		}
	}
	api.Success(w, view, requestID)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	limit, offset, ok := pagination(w, r)
	if !ok {
		return
	}
	filter := audit.Filter{
		Action:    strings.TrimSpace(r.URL.Query().Get("action")),
		ActorUser: strings.TrimSpace(r.URL.Query().Get("actor")),
	}
	events, err := h.Audit.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.logger().Error("audit list failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	api.Success(w, events, requestID)
}

func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	const (
		defaultLimit = 50
		maxLimit     = 200
	)
	validator := shared.NewValidator()
	limit, offset := defaultLimit, 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			validator.Add("limit", "must be a positive integer")
		} else {
			limit = min(parsed, maxLimit)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			validator.Add("offset", "must be zero or greater")
		} else {
			offset = parsed
		}
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return 0, 0, false
	}
	return limit, offset, true
}

func (h *Handler) compute(w http.ResponseWriter, r *http.Request) (salary.Computation, calculatePayload, bool) {
	requestID := middleware.GetRequestID(r.Context())

	var payload calculatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return salary.Computation{}, payload, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return salary.Computation{}, payload, false
	}

	validator := shared.NewValidator()
	gross, _ := validator.Amount("grossSalary", string(payload.GrossSalary))
	frequency, _ := validator.Frequency("payFrequency", payload.PayFrequency)
	superPercentage, hasSuper := validator.Percentage("superannuationPercentage", string(payload.SuperannuationPercentage))
	if validator.Reject(w, requestID) {
		return salary.Computation{}, payload, false
	}

	var (
		comp salary.Computation
		err  error
	)
	if hasSuper {
		comp, err = h.Service.CalculateWithSuper(gross, superPercentage, frequency)
	} else {
		comp, err = h.Service.Calculate(gross, frequency)
	}
	if err != nil {
		h.logger().Error("salary calculation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "calculation_failed", "failed to calculate salary", requestID)
		return salary.Computation{}, payload, false
	}
	return comp, payload, true
}

func (h *Handler) view(c salary.Computation) CalculationView {
	return CalculationView{
		Computation: c,
		Deductions:  c.Deductions(),
		Currency:    h.Money.Currency(),
		Formatted: FormattedView{
			GrossSalary:   h.Money.Money(c.GrossSalary),
			TaxableIncome: h.Money.Money(c.TaxableIncome),
			NetIncome:     h.Money.Money(c.NetIncome),
			PayPacket:     h.Money.PayPacket(c),
		},
	}
}

func (h *Handler) ruleBookView() RuleBookView {
	book := h.Service.Rules()
	view := RuleBookView{LoadedAt: h.Service.LoadedAt(), Sets: make([]RuleSetView, 0, len(salary.Categories))}
	for _, category := range salary.Categories {
		set, err := book.Set(category)
		if err != nil {
			continue
		}
		view.Sets = append(view.Sets, RuleSetView{
			Category: category,
			Source:   set.Source,
			Skipped:  set.Skipped,
			Rules:    set.Rules(),
		})
	}
	return view
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
