// Package testutil provides common utility functions for testing.
package testutil

import (
	"path/filepath"
	"runtime"

	"github.com/iwvelando/commission-calculator/internal/calculator"
)

// FindOutcome finds a calculation outcome by name in the outcomes slice.
// Returns a pointer to the outcome if found, nil otherwise.
func FindOutcome(outcomes []calculator.Outcome, name string) *calculator.Outcome {
	for i := range outcomes {
		if outcomes[i].Name == name {
			return &outcomes[i]
		}
	}
	return nil
}

// TestDataPath returns the path of a file in the repository's test directory,
// independent of the package the test runs in.
func TestDataPath(name string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("test", name)
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "test", name)
}
