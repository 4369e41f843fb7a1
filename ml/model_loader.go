package ml

import (
	"fmt"
	"os"
)

// ParseModel decodes a model artifact of the given type.
func ParseModel(modelType string, data []byte) (Classifier, error) {
	var (
		model Classifier
		err   error
	)
	switch modelType {
	case ModelDecisionTree:
		model, err = ParseDecisionTree(data)
	case ModelXGBoostJSON:
		model, err = ParseBoostedTrees(data)
	case ModelLogistic:
		model, err = ParseLogistic(data)
	default:
		return nil, configErr("parse model", fmt.Errorf("unsupported model type %q", modelType))
	}
	if err != nil {
		return nil, configErr("parse model", fmt.Errorf("%s: %w", modelType, err))
	}
	return model, nil
}

// LoadModel reads a model artifact from disk.
func LoadModel(modelType, path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr("load model", err)
	}
	return ParseModel(modelType, data)
}
