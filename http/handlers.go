package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"loanwise/logger"
	"loanwise/ml"
	"loanwise/monitoring"
)

// ChangeReporter reports artifact drift for the health endpoint.
type ChangeReporter interface {
	Changed() bool
}

type handlers struct {
	engine   *ml.Engine
	drift    ChangeReporter
	limiter  *RateLimiter
	metrics  *monitoring.MetricsCollector
	log      logger.ILogger
	pages    *template.Template
	upgrader websocket.Upgrader
	maxFrame int64
}

// predictionResponse is the JSON body of a successful prediction.
type predictionResponse struct {
	ml.PredictionResult
	Progress int `json:"progress"`
}

func newPredictionResponse(result ml.PredictionResult) predictionResponse {
	return predictionResponse{PredictionResult: result, Progress: result.Progress()}
}

type errorResponse struct {
	Error  string           `json:"error"`
	Fields validationErrors `json:"fields,omitempty"`
}

func (h *handlers) register(mux *http.ServeMux, limit Middleware) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.Handle("POST /predict", limit(http.HandlerFunc(h.handleFormPredict)))
	mux.Handle("POST /api/predict", limit(http.HandlerFunc(h.handleAPIPredict)))
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
	mux.Handle("GET /ws/predict", limit(http.HandlerFunc(h.handleLivePredict)))
	mux.Handle("GET /static/", staticHandler())
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, pageData{Record: ml.DefaultApplicant()})
}

func (h *handlers) handleFormPredict(w http.ResponseWriter, r *http.Request) {
	record, verrs := parseApplicantForm(r)
	if verrs != nil {
		h.metrics.RecordPrediction("form", monitoring.OutcomeInvalid, 0)
		h.render(w, http.StatusBadRequest, pageData{Record: record, Errors: verrs})
		return
	}

	result, err := h.evaluate("form", record)
	if err != nil {
		status := h.logPredictError(r, err)
		h.render(w, status, pageData{Record: record, Failure: err.Error()})
		return
	}
	h.render(w, http.StatusOK, pageData{Record: record, Result: &result})
}

func (h *handlers) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	record := ml.DefaultApplicant()
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if verrs := validateNumbers(record); verrs != nil {
		h.metrics.RecordPrediction("api", monitoring.OutcomeInvalid, 0)
		respondJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid input", Fields: verrs})
		return
	}

	result, err := h.evaluate("api", record)
	if err != nil {
		respondError(w, h.logPredictError(r, err), err.Error())
		return
	}
	respondJSON(w, newPredictionResponse(result))
}

func (h *handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"model_type": h.engine.ModelType(),
		"columns":    h.engine.Schema().Columns(),
	})
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	changed := h.drift != nil && h.drift.Changed()
	respondJSON(w, map[string]interface{}{
		"status":            "ok",
		"artifacts_changed": changed,
	})
}

func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(h.metrics.ExportPrometheus()))
}

// evaluate runs the engine and counts the outcome for channel.
func (h *handlers) evaluate(channel string, record ml.ApplicantRecord) (ml.PredictionResult, error) {
	start := time.Now()
	result, err := h.engine.Evaluate(record)
	outcome := monitoring.OutcomeRejected
	switch {
	case err != nil:
		outcome = monitoring.OutcomeFailed
	case result.Approved:
		outcome = monitoring.OutcomeApproved
	}
	took := time.Since(start)
	h.metrics.RecordPrediction(channel, outcome, took)
	if err == nil {
		h.log.Debug("prediction",
			logger.String("channel", channel),
			logger.Bool("approved", result.Approved),
			logger.Float64("confidence_percent", result.ConfidencePercent),
			logger.Duration("took", took),
		)
	}
	return result, err
}

// logPredictError logs a failed evaluation once and maps it to a status code.
func (h *handlers) logPredictError(r *http.Request, err error) int {
	status := http.StatusInternalServerError
	if ml.IsInferenceError(err) {
		status = http.StatusUnprocessableEntity
	}
	h.log.Error("prediction failed",
		logger.String("request_id", GetRequestID(r.Context())),
		logger.Int("status", status),
		logger.Error(err),
	)
	return status
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSONStatus(w, status, errorResponse{Error: msg})
}
