package ml

import (
	"fmt"
	"math"
)

// PredictionResult is the verdict for one applicant. ConfidencePercent is
// measured against the predicted class, so a rejection at 30% approval
// probability reports 70% confidence.
type PredictionResult struct {
	Approved          bool    `json:"approved"`
	ConfidencePercent float64 `json:"confidence_percent"`
	ApprovalPercent   float64 `json:"approval_percent"`
}

// Progress is the progress-bar value: ConfidencePercent as an integer in [0,100].
func (r PredictionResult) Progress() int {
	return int(math.Round(clampPercent(r.ConfidencePercent)))
}

// Predict invokes the classifier on an aligned vector and maps label and
// positive-class probability to a verdict.
func Predict(features FeatureVector, model Classifier) (PredictionResult, error) {
	if !isLoaded(model) {
		return PredictionResult{}, inferenceErr("predict", ErrModelNotLoaded)
	}
	if err := checkColumns(features, model.FeatureNames()); err != nil {
		return PredictionResult{}, inferenceErr("predict", err)
	}

	label, probability, err := model.Predict(features.Values)
	if err != nil {
		return PredictionResult{}, inferenceErr("predict", err)
	}
	if label != 0 && label != 1 {
		return PredictionResult{}, inferenceErr("predict", fmt.Errorf("unexpected class label %d", label))
	}
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		return PredictionResult{}, inferenceErr("predict", fmt.Errorf("probability %v out of range", probability))
	}

	approved := label == 1
	confidence := probability
	if !approved {
		confidence = 1 - probability
	}
	return PredictionResult{
		Approved:          approved,
		ConfidencePercent: toPercent(confidence),
		ApprovalPercent:   toPercent(probability),
	}, nil
}

func checkColumns(features FeatureVector, expected []string) error {
	if len(features.Columns) != len(features.Values) {
		return fmt.Errorf("vector has %d columns but %d values", len(features.Columns), len(features.Values))
	}
	if len(expected) == 0 {
		return nil
	}
	if len(expected) != len(features.Values) {
		return fmt.Errorf("model expects %d features, got %d", len(expected), len(features.Values))
	}
	for i, name := range expected {
		if features.Columns[i] != name {
			return fmt.Errorf("column %d is %q, model expects %q", i, features.Columns[i], name)
		}
	}
	return nil
}

func toPercent(p float64) float64 {
	return clampPercent(roundTo2Decimals(p * 100))
}

func roundTo2Decimals(value float64) float64 {
	return math.Round(value*100) / 100
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
