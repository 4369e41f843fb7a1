package ml

import "strings"

// Categorical values use the labels the model was trained on, since they
// become part of the one-hot column names.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"

	Yes = "Yes"
	No  = "No"

	Dependents0      = "0"
	Dependents1      = "1"
	Dependents2      = "2"
	Dependents3Plus  = "3+"
	EducationGrad    = "Graduate"
	EducationNotGrad = "Not Graduate"

	PropertyUrban     = "Urban"
	PropertySemiurban = "Semiurban"
	PropertyRural     = "Rural"
)

// Column names and one-hot prefixes of the training data set.
const (
	ColGender            = "Gender"
	ColMarried           = "Married"
	ColDependents        = "Dependents"
	ColEducation         = "Education"
	ColSelfEmployed      = "Self_Employed"
	ColApplicantIncome   = "ApplicantIncome"
	ColCoapplicantIncome = "CoapplicantIncome"
	ColLoanAmount        = "LoanAmount"
	ColLoanAmountTerm    = "Loan_Amount_Term"
	ColCreditHistory     = "Credit_History"
	ColPropertyArea      = "Property_Area"
)

// Widget option lists, in display order.
var (
	GenderOptions        = []string{GenderMale, GenderFemale}
	MarriedOptions       = []string{Yes, No}
	DependentsOptions    = []string{Dependents0, Dependents1, Dependents2, Dependents3Plus}
	EducationOptions     = []string{EducationGrad, EducationNotGrad}
	SelfEmployedOptions  = []string{Yes, No}
	PropertyAreaOptions  = []string{PropertyUrban, PropertySemiurban, PropertyRural}
	LoanTermOptions      = []float64{360, 120, 180, 240, 300, 480}
	CreditHistoryOptions = []float64{1.0, 0.0}
)

// ApplicantRecord is the input of a single prediction request.
type ApplicantRecord struct {
	Gender            string  `json:"gender"`
	Married           string  `json:"married"`
	Dependents        string  `json:"dependents"`
	Education         string  `json:"education"`
	SelfEmployed      string  `json:"self_employed"`
	ApplicantIncome   float64 `json:"applicant_income"`
	CoapplicantIncome float64 `json:"coapplicant_income"`
	LoanAmount        float64 `json:"loan_amount"` // thousands
	LoanTermMonths    float64 `json:"loan_term_months"`
	CreditHistory     float64 `json:"credit_history"`
	PropertyArea      string  `json:"property_area"`
}

// DefaultApplicant returns the record the form starts with: the first option
// of every select widget and zero for the number inputs.
func DefaultApplicant() ApplicantRecord {
	return ApplicantRecord{
		Gender:         GenderOptions[0],
		Married:        MarriedOptions[0],
		Dependents:     DependentsOptions[0],
		Education:      EducationOptions[0],
		SelfEmployed:   SelfEmployedOptions[0],
		LoanTermMonths: LoanTermOptions[0],
		CreditHistory:  CreditHistoryOptions[0],
		PropertyArea:   PropertyAreaOptions[0],
	}
}

// labelAliases maps the lowercase and hyphenated spellings clients send
// (male, not-graduate, 3-or-more, ...) to the training labels, per field.
var labelAliases = map[string]map[string]string{
	ColGender:       aliasesFor(GenderOptions),
	ColMarried:      aliasesFor(MarriedOptions),
	ColDependents:   aliasesFor(DependentsOptions, "3-or-more", Dependents3Plus),
	ColEducation:    aliasesFor(EducationOptions),
	ColSelfEmployed: aliasesFor(SelfEmployedOptions),
	ColPropertyArea: aliasesFor(PropertyAreaOptions),
}

func aliasesFor(options []string, extra ...string) map[string]string {
	aliases := make(map[string]string, 2*len(options)+len(extra)/2)
	for _, label := range options {
		key := strings.ToLower(label)
		aliases[key] = label
		aliases[strings.ReplaceAll(key, " ", "-")] = label
	}
	for i := 0; i+1 < len(extra); i += 2 {
		aliases[extra[i]] = extra[i+1]
	}
	return aliases
}

// CanonicalLabel returns the training label for value of the categorical
// field. Values it does not recognise come back unchanged, so they still
// encode to no schema column.
func CanonicalLabel(field, value string) string {
	if label, ok := labelAliases[field][strings.ToLower(strings.TrimSpace(value))]; ok {
		return label
	}
	return value
}

// categorical returns the one-hot source fields in training column order,
// with values mapped to their training labels.
func (r ApplicantRecord) categorical() [][2]string {
	fields := [][2]string{
		{ColGender, r.Gender},
		{ColMarried, r.Married},
		{ColDependents, r.Dependents},
		{ColEducation, r.Education},
		{ColSelfEmployed, r.SelfEmployed},
		{ColPropertyArea, r.PropertyArea},
	}
	for i := range fields {
		fields[i][1] = CanonicalLabel(fields[i][0], fields[i][1])
	}
	return fields
}

func (r ApplicantRecord) numeric() map[string]float64 {
	return map[string]float64{
		ColApplicantIncome:   r.ApplicantIncome,
		ColCoapplicantIncome: r.CoapplicantIncome,
		ColLoanAmount:        r.LoanAmount,
		ColLoanAmountTerm:    r.LoanTermMonths,
		ColCreditHistory:     r.CreditHistory,
	}
}
