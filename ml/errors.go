package ml

import (
	"errors"
	"fmt"
)

// ErrModelNotLoaded is returned when a prediction is attempted without a model.
var ErrModelNotLoaded = errors.New("model not loaded")

// ErrEmptySchema is returned when the column schema is unset or has no columns.
var ErrEmptySchema = errors.New("column schema is empty")

// ConfigurationError reports a missing or unusable model or schema artifact.
// It is fatal at startup.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// InferenceError reports a failed prediction: an unloaded model or a feature
// vector that does not match what the model expects.
type InferenceError struct {
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference error: %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

func configErr(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

func inferenceErr(op string, err error) error {
	return &InferenceError{Op: op, Err: err}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsInferenceError reports whether err wraps an InferenceError.
func IsInferenceError(err error) bool {
	var target *InferenceError
	return errors.As(err, &target)
}
