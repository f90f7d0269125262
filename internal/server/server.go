package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/commission-calculator/internal/calculator"
	"github.com/iwvelando/commission-calculator/internal/config"
	"github.com/iwvelando/commission-calculator/internal/metrics"
	"github.com/iwvelando/commission-calculator/pkg/commission"
	"github.com/iwvelando/commission-calculator/pkg/constants"
	"github.com/iwvelando/commission-calculator/pkg/format"
	"github.com/iwvelando/commission-calculator/pkg/output"
	"github.com/iwvelando/commission-calculator/pkg/validation"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvContentType  = "text/csv; charset=utf-8"
)

// Options configures the commission API handler.
type Options struct {
	Logger         *zap.Logger
	Calculator     *calculator.Calculator
	Metrics        *metrics.Recorder
	MaxUploadSize  int64
	Version        string
	Currency       string
	AllowedOrigins []string
}

type handler struct {
	logger        *zap.Logger
	calc          *calculator.Calculator
	metrics       *metrics.Recorder
	maxUploadSize int64
	version       string
	display       format.DisplayContext
}

// NewHandler constructs the HTTP handler that serves the commission API.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Calculator == nil {
		return nil, errors.New("a calculator is required")
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	display, err := format.NewDisplayContext(opts.Currency)
	if err != nil {
		return nil, err
	}

	h := &handler{
		logger:        opts.Logger,
		calc:          opts.Calculator,
		metrics:       opts.Metrics,
		maxUploadSize: opts.MaxUploadSize,
		version:       version,
		display:       display,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	}).Handler)
	r.Use(h.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/version", h.handleVersion)
		api.Get("/tiers", h.handleTiers)
		api.Route("/commission", func(cr chi.Router) {
			cr.Post("/validate", h.handleValidate)
			cr.Post("/calculate", h.handleCalculate)
			cr.Post("/export", h.handleExport)
			cr.Post("/split-evenly", h.handleSplitEvenly)
		})
	})

	return r, nil
}

type splitRequest struct {
	RecruiterName string  `json:"recruiterName" validate:"max=200"`
	Percentage    float64 `json:"percentage"`
}

type commissionRequest struct {
	Name              string         `json:"name" validate:"max=200"`
	PlacementValue    float64        `json:"placementValue"`
	TierID            string         `json:"tierId" validate:"max=64"`
	CustomRatePercent *float64       `json:"customRatePercent"`
	ApplyBonus        bool           `json:"applyBonus"`
	TeamSplits        []splitRequest `json:"teamSplits" validate:"max=100,dive"`
}

type splitEvenlyRequest struct {
	RecruiterNames []string `json:"recruiterNames" validate:"required,max=100,dive,required,max=200"`
}

type validateResponse struct {
	Valid    bool                 `json:"valid"`
	Failures []commission.Failure `json:"failures"`
}

type calculateResponse struct {
	ID       string               `json:"id"`
	Name     string               `json:"name,omitempty"`
	Valid    bool                 `json:"valid"`
	Result   *resultResponse      `json:"result,omitempty"`
	Failures []commission.Failure `json:"failures,omitempty"`
}

type resultResponse struct {
	Currency              string          `json:"currency"`
	PlacementValue        float64         `json:"placementValue"`
	EffectiveRatePercent  float64         `json:"effectiveRatePercent"`
	BonusApplied          bool            `json:"bonusApplied"`
	TotalCommissionAmount float64         `json:"totalCommissionAmount"`
	Breakdown             []shareResponse `json:"breakdown"`
	Display               displayResponse `json:"display"`
}

type shareResponse struct {
	RecruiterName string  `json:"recruiterName"`
	Percentage    float64 `json:"percentage"`
	Amount        float64 `json:"amount"`
	Display       string  `json:"display"`
}

type displayResponse struct {
	PlacementValue        string `json:"placementValue"`
	EffectiveRate         string `json:"effectiveRate"`
	TotalCommissionAmount string `json:"totalCommissionAmount"`
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleTiers(w http.ResponseWriter, r *http.Request) {
	tiers := h.calc.Tiers()
	if tiers == nil {
		tiers = commission.Tiers{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tiers": tiers,
	})
}

func (h *handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleValidate"

	_, input, ok := h.decodeInput(w, r, op)
	if !ok {
		return
	}

	result := h.calc.Validate(input)
	h.writeJSON(w, http.StatusOK, validateResponse{
		Valid:    result.Valid(),
		Failures: failures(result),
	})
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"

	display, ok := h.displayContext(w, r, op)
	if !ok {
		return
	}

	outcome, ok := h.run(w, r, op)
	if !ok {
		return
	}

	if !outcome.Valid() {
		h.writeJSON(w, http.StatusUnprocessableEntity, calculateResponse{
			ID:       outcome.ID,
			Name:     outcome.Name,
			Failures: failures(outcome.Validation),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, calculateResponse{
		ID:     outcome.ID,
		Name:   outcome.Name,
		Valid:  true,
		Result: buildResult(display, outcome),
	})
}

func (h *handler) handleSplitEvenly(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSplitEvenly"

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	var req splitEvenlyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondDecodeError(w, err, op)
		return
	}
	if err := validation.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, strings.Join(validation.Messages(err), "; "), op)
		return
	}

	splits, err := commission.SplitEvenly(req.RecruiterNames)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"teamSplits": splits,
	})
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"

	exportFormat := r.URL.Query().Get("format")
	if exportFormat == "" {
		exportFormat = constants.OutputFormatXLSX
	}
	if exportFormat != constants.OutputFormatXLSX && exportFormat != constants.OutputFormatCSV {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("unsupported export format %q", exportFormat), op)
		return
	}

	outcome, ok := h.run(w, r, op)
	if !ok {
		return
	}

	if !outcome.Valid() {
		h.writeJSON(w, http.StatusUnprocessableEntity, calculateResponse{
			ID:       outcome.ID,
			Name:     outcome.Name,
			Failures: failures(outcome.Validation),
		})
		return
	}

	var buf bytes.Buffer
	contentType := xlsxContentType
	outcomes := []calculator.Outcome{outcome}
	var err error
	if exportFormat == constants.OutputFormatCSV {
		contentType = csvContentType
		err = output.CsvFormat(&buf, outcomes)
	} else {
		err = output.XLSXFormat(&buf, outcomes)
	}
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build %s export: %v", exportFormat, err), op)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "commission-"+outcome.ID+"."+exportFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write export",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// run decodes the request and passes it through the calculator. It writes the
// error response itself and returns false when the request cannot be run.
func (h *handler) run(w http.ResponseWriter, r *http.Request, op string) (calculator.Outcome, bool) {
	start := time.Now()

	name, input, ok := h.decodeInput(w, r, op)
	if !ok {
		return calculator.Outcome{}, false
	}

	outcome, err := h.calc.Run(name, input)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, calculator.ErrAmountOverflow) {
			status = http.StatusUnprocessableEntity
		}
		h.respondError(w, status, err.Error(), op)
		return calculator.Outcome{}, false
	}

	h.logger.Info("commission request processed",
		zap.String("op", op),
		zap.String("requestId", middleware.GetReqID(r.Context())),
		zap.String("id", outcome.ID),
		zap.Bool("valid", outcome.Valid()),
		zap.Duration("duration", time.Since(start)),
	)
	return outcome, true
}

func (h *handler) decodeInput(w http.ResponseWriter, r *http.Request, op string) (string, commission.Input, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var req commissionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.respondDecodeError(w, err, op)
		return "", commission.Input{}, false
	}

	if err := validation.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, strings.Join(validation.Messages(err), "; "), op)
		return "", commission.Input{}, false
	}

	input, err := req.toCalculation().ToInput()
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return "", commission.Input{}, false
	}

	return req.Name, input, true
}

func (h *handler) displayContext(w http.ResponseWriter, r *http.Request, op string) (format.DisplayContext, bool) {
	code := r.URL.Query().Get("currency")
	if code == "" {
		return h.display, true
	}

	display, err := format.NewDisplayContext(code)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), op)
		return format.DisplayContext{}, false
	}
	return display, true
}

func (req commissionRequest) toCalculation() config.CalculationConfig {
	calc := config.CalculationConfig{
		Name:              req.Name,
		Active:            true,
		PlacementValue:    req.PlacementValue,
		TierID:            req.TierID,
		CustomRatePercent: req.CustomRatePercent,
		ApplyBonus:        req.ApplyBonus,
		TeamSplits:        make([]config.SplitConfig, 0, len(req.TeamSplits)),
	}
	for _, split := range req.TeamSplits {
		calc.TeamSplits = append(calc.TeamSplits, config.SplitConfig{
			RecruiterName: split.RecruiterName,
			Percentage:    split.Percentage,
		})
	}
	return calc
}

func buildResult(display format.DisplayContext, outcome calculator.Outcome) *resultResponse {
	result := outcome.Result
	rate := format.Percent(result.EffectiveRatePercent)
	if outcome.BonusApplied {
		rate += " (bonus applied)"
	}

	response := &resultResponse{
		Currency:              display.Currency,
		PlacementValue:        result.PlacementValue,
		EffectiveRatePercent:  result.EffectiveRatePercent,
		BonusApplied:          outcome.BonusApplied,
		TotalCommissionAmount: result.TotalCommissionAmount,
		Breakdown:             make([]shareResponse, 0, len(result.Breakdown)),
		Display: displayResponse{
			PlacementValue:        format.Money(display, result.PlacementValue),
			EffectiveRate:         rate,
			TotalCommissionAmount: format.Money(display, result.TotalCommissionAmount),
		},
	}
	for _, share := range result.Breakdown {
		response.Breakdown = append(response.Breakdown, shareResponse{
			RecruiterName: share.RecruiterName,
			Percentage:    share.Percentage,
			Amount:        share.Amount,
			Display:       format.Money(display, share.Amount),
		})
	}
	return response
}

func failures(result commission.ValidationResult) []commission.Failure {
	if result.Failures == nil {
		return []commission.Failure{}
	}
	return result.Failures
}

// observe counts every request by its matched route pattern.
func (h *handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := recorder.Status()
		if status == 0 {
			status = http.StatusOK
		}
		h.metrics.ObserveRequest(route, r.Method, status)
	})
}

func (h *handler) respondDecodeError(w http.ResponseWriter, err error, op string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.respondError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
		return
	}
	h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("commission request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err),
		)
	}
}
