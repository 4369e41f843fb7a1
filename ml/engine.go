package ml

import (
	"errors"
	"fmt"
)

// Engine holds the model and column schema loaded at startup. It is never
// mutated after construction and is safe to share between goroutines.
type Engine struct {
	schema    *ColumnSchema
	model     Classifier
	modelType string
}

// NewEngine pairs a schema with a model. A model that records its training
// columns must agree with the schema exactly.
func NewEngine(schema *ColumnSchema, model Classifier, modelType string) (*Engine, error) {
	if schema.Len() == 0 {
		return nil, configErr("new engine", ErrEmptySchema)
	}
	if !isLoaded(model) {
		return nil, configErr("new engine", ErrModelNotLoaded)
	}
	if names := model.FeatureNames(); len(names) > 0 && !schema.Equal(names) {
		return nil, configErr("new engine", fmt.Errorf(
			"model was trained on %d columns that do not match the %d schema columns",
			len(names), schema.Len()))
	}
	return &Engine{schema: schema, model: model, modelType: modelType}, nil
}

// Evaluate aligns the record against the schema and runs the classifier.
func (e *Engine) Evaluate(record ApplicantRecord) (PredictionResult, error) {
	if e == nil {
		return PredictionResult{}, inferenceErr("evaluate", ErrModelNotLoaded)
	}
	features, err := Align(record, e.schema)
	if err != nil {
		return PredictionResult{}, err
	}
	return Predict(features, e.model)
}

// Schema returns the column schema.
func (e *Engine) Schema() *ColumnSchema {
	return e.schema
}

// ModelType returns the type the model artifact was loaded as.
func (e *Engine) ModelType() string {
	return e.modelType
}

// ArtifactSource locates the model and schema files.
type ArtifactSource struct {
	ModelType  string
	ModelPath  string
	SchemaPath string
}

// LoadArtifacts reads both artifacts from disk and builds an Engine.
func LoadArtifacts(src ArtifactSource) (*Engine, error) {
	if src.ModelPath == "" || src.SchemaPath == "" {
		return nil, configErr("load artifacts", errors.New("model and schema paths are required"))
	}
	schema, err := LoadSchema(src.SchemaPath)
	if err != nil {
		return nil, err
	}
	model, err := LoadModel(src.ModelType, src.ModelPath)
	if err != nil {
		return nil, err
	}
	return NewEngine(schema, model, src.ModelType)
}

// ParseArtifacts builds an Engine from in-memory artifact payloads.
func ParseArtifacts(modelType string, modelData, schemaData []byte) (*Engine, error) {
	schema, err := ParseSchema(schemaData)
	if err != nil {
		return nil, err
	}
	model, err := ParseModel(modelType, modelData)
	if err != nil {
		return nil, err
	}
	return NewEngine(schema, model, modelType)
}
