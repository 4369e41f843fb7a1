package ml

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Logistic is a fitted logistic-regression classifier.
type Logistic struct {
	features     []string
	coefficients []float64
	intercept    float64
	threshold    float64
}

type logisticArtifact struct {
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Threshold    *float64  `json:"threshold"`
}

// ParseLogistic decodes a logistic artifact. threshold defaults to 0.5.
func ParseLogistic(data []byte) (*Logistic, error) {
	var artifact logisticArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, err
	}
	if len(artifact.Coefficients) == 0 {
		return nil, errors.New("no coefficients")
	}
	if len(artifact.FeatureNames) > 0 && len(artifact.FeatureNames) != len(artifact.Coefficients) {
		return nil, fmt.Errorf("%d feature names for %d coefficients",
			len(artifact.FeatureNames), len(artifact.Coefficients))
	}
	threshold := 0.5
	if artifact.Threshold != nil {
		threshold = *artifact.Threshold
	}
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold %v must be in (0,1)", threshold)
	}
	return &Logistic{
		features:     artifact.FeatureNames,
		coefficients: artifact.Coefficients,
		intercept:    artifact.Intercept,
		threshold:    threshold,
	}, nil
}

// Loaded reports whether coefficients were set.
func (l *Logistic) Loaded() bool {
	return l != nil && len(l.coefficients) > 0
}

func (l *Logistic) Predict(features []float64) (int, float64, error) {
	if !l.Loaded() {
		return 0, 0, ErrModelNotLoaded
	}
	if len(features) != len(l.coefficients) {
		return 0, 0, fmt.Errorf("expected %d features, got %d", len(l.coefficients), len(features))
	}
	probability := sigmoid(floats.Dot(l.coefficients, features) + l.intercept)
	label := 0
	if probability >= l.threshold {
		label = 1
	}
	return label, probability, nil
}

func (l *Logistic) FeatureNames() []string {
	if l == nil || len(l.features) == 0 {
		return nil
	}
	return append([]string(nil), l.features...)
}
