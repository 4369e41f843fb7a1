package ml

// Classifier is a loaded binary classifier. Predict returns the class label
// (0 rejected, 1 approved) and the probability of the positive class.
// FeatureNames lists the columns the model was trained on, or nil when the
// artifact does not record them.
type Classifier interface {
	Predict(features []float64) (label int, probability float64, err error)
	FeatureNames() []string
}

// isLoaded catches nil interfaces and typed-nil or empty handles. Classifiers
// that cannot be empty need not implement Loaded.
func isLoaded(model Classifier) bool {
	if model == nil {
		return false
	}
	if l, ok := model.(interface{ Loaded() bool }); ok {
		return l.Loaded()
	}
	return true
}

// Model types understood by LoadModel.
const (
	ModelDecisionTree = "decision_tree"
	ModelXGBoostJSON  = "xgboost_json"
	ModelLogistic     = "logistic"
)

// ModelTypes lists the supported model types.
func ModelTypes() []string {
	return []string{ModelDecisionTree, ModelXGBoostJSON, ModelLogistic}
}
