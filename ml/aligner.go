package ml

// FeatureVector is an encoded applicant record laid out exactly as the
// schema it was aligned against.
type FeatureVector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Len returns the vector width.
func (v FeatureVector) Len() int {
	return len(v.Values)
}

// Get returns the value of the named column.
func (v FeatureVector) Get(name string) (float64, bool) {
	for i, col := range v.Columns {
		if col == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

// OneHotColumn names the indicator column for a categorical value, following
// the field_value convention the schema was generated with.
func OneHotColumn(field, value string) string {
	return field + "_" + value
}

// Encode one-hot encodes the categorical fields of the record and keeps the
// numeric fields as they are. Column order is irrelevant here; Align imposes
// the schema order.
func Encode(record ApplicantRecord) map[string]float64 {
	encoded := record.numeric()
	for _, field := range record.categorical() {
		encoded[OneHotColumn(field[0], field[1])] = 1
	}
	return encoded
}

// Align encodes the record and reindexes it against the schema: every schema
// column takes its encoded value or 0, and encoded columns the schema does not
// list are dropped. A category value the model never saw therefore leaves all
// of that field's indicator columns at 0.
func Align(record ApplicantRecord, schema *ColumnSchema) (FeatureVector, error) {
	if schema.Len() == 0 {
		return FeatureVector{}, configErr("align", ErrEmptySchema)
	}
	encoded := Encode(record)

	columns := schema.Columns()
	values := make([]float64, len(columns))
	for i, col := range columns {
		values[i] = encoded[col]
	}
	return FeatureVector{Columns: columns, Values: values}, nil
}
