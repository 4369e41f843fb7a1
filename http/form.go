package http

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cast"

	"loanwise/ml"
)

// Form field names; they match the JSON tags of ml.ApplicantRecord.
const (
	fieldGender            = "gender"
	fieldMarried           = "married"
	fieldDependents        = "dependents"
	fieldEducation         = "education"
	fieldSelfEmployed      = "self_employed"
	fieldApplicantIncome   = "applicant_income"
	fieldCoapplicantIncome = "coapplicant_income"
	fieldLoanAmount        = "loan_amount"
	fieldLoanTerm          = "loan_term_months"
	fieldCreditHistory     = "credit_history"
	fieldPropertyArea      = "property_area"
)

// validationErrors maps a field to the message shown next to its widget.
type validationErrors map[string]string

func (v validationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+v[field])
	}
	return strings.Join(parts, "; ")
}

// parseApplicantForm reads a submitted form. Missing select values fall back
// to the form defaults; number inputs must parse and be non-negative.
func parseApplicantForm(r *http.Request) (ml.ApplicantRecord, validationErrors) {
	record := ml.DefaultApplicant()
	if err := r.ParseForm(); err != nil {
		return record, validationErrors{"form": err.Error()}
	}

	choice := func(field, fallback string) string {
		if v := strings.TrimSpace(r.PostForm.Get(field)); v != "" {
			return v
		}
		return fallback
	}
	record.Gender = choice(fieldGender, record.Gender)
	record.Married = choice(fieldMarried, record.Married)
	record.Dependents = choice(fieldDependents, record.Dependents)
	record.Education = choice(fieldEducation, record.Education)
	record.SelfEmployed = choice(fieldSelfEmployed, record.SelfEmployed)
	record.PropertyArea = choice(fieldPropertyArea, record.PropertyArea)

	errs := validationErrors{}
	number := func(field string, fallback float64) float64 {
		raw := strings.TrimSpace(r.PostForm.Get(field))
		if raw == "" {
			return fallback
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			errs[field] = fmt.Sprintf("%q is not a number", raw)
			return fallback
		}
		return v
	}
	record.ApplicantIncome = number(fieldApplicantIncome, record.ApplicantIncome)
	record.CoapplicantIncome = number(fieldCoapplicantIncome, record.CoapplicantIncome)
	record.LoanAmount = number(fieldLoanAmount, record.LoanAmount)
	record.LoanTermMonths = number(fieldLoanTerm, record.LoanTermMonths)
	record.CreditHistory = number(fieldCreditHistory, record.CreditHistory)

	for field, msg := range validateNumbers(record) {
		if _, seen := errs[field]; !seen {
			errs[field] = msg
		}
	}
	if len(errs) > 0 {
		return record, errs
	}
	return record, nil
}

// validateNumbers enforces the number-widget constraints that JSON and
// WebSocket clients can otherwise bypass.
func validateNumbers(record ml.ApplicantRecord) validationErrors {
	errs := validationErrors{}
	check := func(field string, v float64) {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			errs[field] = "must be a finite number"
		case v < 0:
			errs[field] = "must not be negative"
		}
	}
	check(fieldApplicantIncome, record.ApplicantIncome)
	check(fieldCoapplicantIncome, record.CoapplicantIncome)
	check(fieldLoanAmount, record.LoanAmount)
	check(fieldLoanTerm, record.LoanTermMonths)
	check(fieldCreditHistory, record.CreditHistory)
	if len(errs) == 0 {
		return nil
	}
	return errs
}
