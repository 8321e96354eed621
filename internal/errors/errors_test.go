package errors

import (
	stderrors "errors"
	"testing"
)

func TestConfigErrorUnwrapsToSentinel(t *testing.T) {
	err := NewConfigError("max_position_size", 0.0, "must be positive")
	if !Is(err, ErrConfigInvalid) {
		t.Error("ConfigError should unwrap to ErrConfigInvalid")
	}
	var ce *ConfigError
	if !As(err, &ce) || ce.Field != "max_position_size" {
		t.Errorf("As should recover the ConfigError, got %+v", ce)
	}
}

func TestTechniqueErrorUnwrapsCause(t *testing.T) {
	cause := stderrors.New("model file missing")
	err := NewTechniqueError("ml_ensemble", "enrich", cause)
	if !Is(err, cause) {
		t.Error("TechniqueError should unwrap to its cause")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) must return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) must return nil")
	}
}
