package scorer

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a trained model artifact. A missing or corrupt artifact is
// reported as ErrModelUnavailable so startup can fail fast.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelUnavailable, path, err)
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrModelUnavailable, path, err)
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	return &model, nil
}

// Save writes the model artifact atomically via a temp file rename.
func Save(model *Model, path string) error {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace model artifact: %w", err)
	}

	return nil
}
