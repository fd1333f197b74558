package validation

import (
	"fmt"

	"github.com/flowgraph/portgraph/internal/core/graph"
)

// ModelValidationOptions controls optional validation checks.
type ModelValidationOptions struct {
	// CheckCycles enables detection of directed cycles.
	CheckCycles bool
	// CheckResolution resolves every reference and runs node verification.
	CheckResolution bool
}

// ValidateModel performs structural validation on a model. It is intended for
// models assembled programmatically or edited after a load, where the load's
// own checks no longer hold.
func ValidateModel(m *graph.Model, opts ...ModelValidationOptions) error {
	if m == nil {
		return fmt.Errorf("model is nil")
	}

	var cfg ModelValidationOptions
	if len(opts) > 0 {
		cfg = opts[0]
	}

	d := Describe(m)
	if err := ValidateStruct(&d); err != nil {
		return err
	}

	if cfg.CheckResolution {
		if err := m.Resolve(); err != nil {
			return err
		}
	}
	if cfg.CheckCycles {
		if _, err := m.TopologicalOrder(); err != nil {
			return err
		}
	}
	return nil
}
