// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrJournalUnavailable = errors.New("signal journal is not available")
)

// ConfigError represents a configuration error, fatal at construction time.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// TechniqueError represents a failure inside one technique analyzer.
// Analyzers recover these locally with neutral defaults; they are logged,
// never propagated out of an evaluation.
type TechniqueError struct {
	Technique string
	Operation string
	Err       error
}

func (e *TechniqueError) Error() string {
	return fmt.Sprintf("technique error [%s] %s: %v", e.Technique, e.Operation, e.Err)
}

func (e *TechniqueError) Unwrap() error {
	return e.Err
}

// NewTechniqueError creates a new TechniqueError.
func NewTechniqueError(technique, operation string, err error) *TechniqueError {
	return &TechniqueError{
		Technique: technique,
		Operation: operation,
		Err:       err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
