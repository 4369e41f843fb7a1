package http

import (
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanwise/ml"
)

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseApplicantForm(t *testing.T) {
	record, errs := parseApplicantForm(formRequest(sampleForm()))
	require.Nil(t, errs)
	assert.Equal(t, ml.ApplicantRecord{
		Gender:            "Male",
		Married:           "Yes",
		Dependents:        "3+",
		Education:         "Not Graduate",
		SelfEmployed:      "No",
		ApplicantIncome:   12345,
		CoapplicantIncome: 1500.5,
		LoanAmount:        128,
		LoanTermMonths:    360,
		CreditHistory:     1,
		PropertyArea:      "Semiurban",
	}, record)
}

func TestParseApplicantFormDefaults(t *testing.T) {
	record, errs := parseApplicantForm(formRequest(url.Values{}))
	require.Nil(t, errs)
	assert.Equal(t, ml.DefaultApplicant(), record)
}

func TestParseApplicantFormErrors(t *testing.T) {
	form := sampleForm()
	form.Set("coapplicant_income", "1,500")
	form.Set("credit_history", "-1")

	_, errs := parseApplicantForm(formRequest(form))
	require.Len(t, errs, 2)
	assert.Contains(t, errs["coapplicant_income"], "not a number")
	assert.Equal(t, "must not be negative", errs["credit_history"])
	assert.Equal(t, `coapplicant_income: "1,500" is not a number; credit_history: must not be negative`, errs.Error())
}

func TestValidateNumbers(t *testing.T) {
	record := ml.DefaultApplicant()
	assert.Nil(t, validateNumbers(record))

	record.LoanAmount = math.Inf(1)
	record.ApplicantIncome = -0.01
	errs := validateNumbers(record)
	assert.Equal(t, "must be a finite number", errs["loan_amount"])
	assert.Equal(t, "must not be negative", errs["applicant_income"])
}
