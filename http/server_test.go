package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanwise/logger"
	"loanwise/ml"
	"loanwise/monitoring"
)

var testColumns = []string{
	"ApplicantIncome", "CoapplicantIncome", "LoanAmount", "Loan_Amount_Term", "Credit_History",
	"Gender_Female", "Gender_Male", "Married_No", "Married_Yes",
	"Dependents_0", "Dependents_1", "Dependents_2", "Dependents_3+",
	"Education_Graduate", "Education_Not Graduate",
	"Self_Employed_No", "Self_Employed_Yes",
	"Property_Area_Rural", "Property_Area_Semiurban", "Property_Area_Urban",
}

type stubModel struct {
	label       int
	probability float64
	err         error
	panics      bool
}

func (m *stubModel) Predict(features []float64) (int, float64, error) {
	if m.panics {
		panic("model exploded")
	}
	return m.label, m.probability, m.err
}

func (m *stubModel) FeatureNames() []string {
	return append([]string(nil), testColumns...)
}

type fakeDrift bool

func (f fakeDrift) Changed() bool { return bool(f) }

func newTestServer(t *testing.T, model ml.Classifier, mutate ...func(*ServerConfig)) http.Handler {
	t.Helper()
	schema, err := ml.NewColumnSchema(testColumns)
	require.NoError(t, err)
	engine, err := ml.NewEngine(schema, model, ml.ModelDecisionTree)
	require.NoError(t, err)

	cfg := DefaultServerConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := NewServer(cfg, engine, logger.NewNop(), fakeDrift(false), nil)
	require.NoError(t, err)
	return srv.Handler()
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func sampleForm() url.Values {
	return url.Values{
		"gender":             {"Male"},
		"married":            {"Yes"},
		"dependents":         {"3+"},
		"education":          {"Not Graduate"},
		"self_employed":      {"No"},
		"applicant_income":   {"12345"},
		"coapplicant_income": {"1500.5"},
		"loan_amount":        {"128"},
		"loan_term_months":   {"360"},
		"credit_history":     {"1"},
		"property_area":      {"Semiurban"},
	}
}

func TestIndexRendersForm(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Loan Approval Prediction")
	assert.Contains(t, body, `name="applicant_income"`)
	assert.Contains(t, body, `<option value="Not Graduate">Not Graduate</option>`)
	assert.Contains(t, body, `<option value="360" selected>360</option>`)
	assert.NotContains(t, body, "confidence")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestUnknownPathIsNotFound(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFormPredictApproved(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.82})

	w := postForm(h, sampleForm())
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Loan Approved with 82.00% confidence!")
	assert.Contains(t, body, `<progress max="100" value="82">`)
	assert.Contains(t, body, "Approval Probability: 82.00%")
	assert.Contains(t, body, "Applicant income 12,345.00")
	assert.Contains(t, body, `<option value="3&#43;" selected>3&#43;</option>`)
}

func TestFormPredictRejected(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 0, probability: 0.30})

	w := postForm(h, sampleForm())
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Loan Rejected with 70.00% confidence.")
	assert.Contains(t, body, `<progress max="100" value="70">`)
	assert.Contains(t, body, "Approval Probability: 30.00%")
}

func TestFormPredictValidation(t *testing.T) {
	model := &stubModel{label: 1, probability: 0.9}
	h := newTestServer(t, model)

	form := sampleForm()
	form.Set("applicant_income", "-5")
	form.Set("loan_amount", "lots")

	w := postForm(h, form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "must not be negative")
	assert.Contains(t, body, "is not a number")
	assert.NotContains(t, body, "Loan Approved")
}

func TestFormPredictInferenceFailure(t *testing.T) {
	h := newTestServer(t, &stubModel{err: errors.New("booster corrupted")})

	w := postForm(h, sampleForm())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Prediction failed")
	assert.Contains(t, w.Body.String(), "booster corrupted")
}

func TestAPIPredict(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.8234})

	w := postJSON(h, `{"gender":"Female","married":"No","dependents":"0","education":"Graduate",
		"self_employed":"No","applicant_income":4583,"coapplicant_income":1508,"loan_amount":128,
		"loan_term_months":360,"credit_history":1,"property_area":"Rural"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["approved"])
	assert.InDelta(t, 82.34, got["confidence_percent"], 1e-9)
	assert.InDelta(t, 82.34, got["approval_percent"], 1e-9)
	assert.InDelta(t, 82, got["progress"], 1e-9)
}

func TestAPIPredictErrors(t *testing.T) {
	tests := []struct {
		name   string
		model  *stubModel
		body   string
		status int
		want   string
	}{
		{"invalid json", &stubModel{label: 1, probability: 0.9}, `{"gender":`, http.StatusBadRequest, "invalid JSON"},
		{"negative income", &stubModel{label: 1, probability: 0.9}, `{"applicant_income":-1}`, http.StatusBadRequest, "must not be negative"},
		{"model error", &stubModel{err: errors.New("nan margin")}, `{}`, http.StatusUnprocessableEntity, "nan margin"},
		{"bad label", &stubModel{label: 7, probability: 0.9}, `{}`, http.StatusUnprocessableEntity, "label"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.model)
			w := postJSON(h, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestAPIPredictBodyTooLarge(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9}, func(c *ServerConfig) {
		c.MaxBodyBytes = 16
	})
	w := postJSON(h, `{"gender":"Male","married":"Yes","dependents":"0"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSchemaAndHealth(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var schema struct {
		ModelType string   `json:"model_type"`
		Columns   []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schema))
	assert.Equal(t, ml.ModelDecisionTree, schema.ModelType)
	assert.Equal(t, testColumns, schema.Columns)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","artifacts_changed":false}`, w.Body.String())
}

func TestHealthReportsDrift(t *testing.T) {
	schema, err := ml.NewColumnSchema(testColumns)
	require.NoError(t, err)
	engine, err := ml.NewEngine(schema, &stubModel{label: 1, probability: 0.9}, ml.ModelLogistic)
	require.NoError(t, err)
	srv, err := NewServer(DefaultServerConfig(), engine, logger.NewNop(), fakeDrift(true), nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.JSONEq(t, `{"status":"ok","artifacts_changed":true}`, w.Body.String())
}

func TestStaticAssets(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9})

	for path, want := range map[string]string{
		"/static/style.css": ".banner.success",
		"/static/live.js":   "/ws/predict",
	} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), want, path)
	}
}

func TestPredictRateLimited(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9}, func(c *ServerConfig) {
		c.RateLimit = 2
	})

	assert.Equal(t, http.StatusOK, postJSON(h, `{}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(h, `{}`).Code)
	w := postJSON(h, `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	// other clients and unlimited endpoints are unaffected
	assert.Equal(t, http.StatusOK, postForm(h, sampleForm()).Code)
	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &stubModel{label: 1, probability: 0.9}, func(c *ServerConfig) {
		c.AllowedOrigins = []string{"https://loans.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "https://loans.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://loans.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := newTestServer(t, &stubModel{panics: true})

	w := postJSON(h, `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestLivePredictRoundTrip(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &stubModel{label: 0, probability: 0.25}))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/predict"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"applicant_income":5000,"credit_history":0}`)))
	var reply struct {
		Result *struct {
			Approved          bool    `json:"approved"`
			ConfidencePercent float64 `json:"confidence_percent"`
			Progress          int     `json:"progress"`
		} `json:"result"`
		Error string `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Result)
	assert.Empty(t, reply.Error)
	assert.False(t, reply.Result.Approved)
	assert.InDelta(t, 75.0, reply.Result.ConfidencePercent, 1e-9)
	assert.Equal(t, 75, reply.Result.Progress)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"loan_amount":-3}`)))
	reply.Result = nil
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Nil(t, reply.Result)
	assert.Equal(t, "invalid input", reply.Error)
}

func TestMetricsEndpoint(t *testing.T) {
	schema, err := ml.NewColumnSchema(testColumns)
	require.NoError(t, err)
	engine, err := ml.NewEngine(schema, &stubModel{label: 1, probability: 0.9}, ml.ModelLogistic)
	require.NoError(t, err)
	metrics := monitoring.NewMetricsCollector()
	cfg := DefaultServerConfig()
	cfg.RateLimit = 1
	srv, err := NewServer(cfg, engine, logger.NewNop(), nil, metrics)
	require.NoError(t, err)
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, postJSON(h, `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(h, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, postForm(h, url.Values{"loan_amount": {"-1"}}).Code)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `loanwise_predictions_total{channel="api",outcome="approved"} 1`)
	assert.Contains(t, body, `loanwise_predictions_total{channel="form",outcome="invalid"} 1`)
	assert.Contains(t, body, "loanwise_rate_limited_total 1")
}
