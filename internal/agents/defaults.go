package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/aylahq/ayla-agent/personas"
)

// builtinNames maps each shipped persona key to its display name. The
// prompt text for each key lives in the embedded personas package.
var builtinNames = map[string]string{
	KeyOnboarding:         "Ayla Onboarding",
	KeyOnboardingReminder: "Ayla Onboarding Reminder",
	KeySales:              "Ayla Sales Agent",
	KeySupport:            "Ayla Support Agent",
	KeyOutContext:         "Ayla Out of Context Agent",
	KeyNutrition:          "Ayla Nutrition Agent",
	KeyFitness:            "Ayla Fitness Agent",
}

// Builtins returns the shipped persona set, read from the embedded
// files. It never returns an empty map: a missing or unreadable
// embedded file is a packaging bug and surfaces as an error.
func Builtins() (map[string]Definition, error) {
	defs := make(map[string]Definition, len(builtinNames))
	now := time.Now().UTC()
	for key, name := range builtinNames {
		data, err := personas.FS.ReadFile(key + ".md")
		if err != nil {
			return nil, fmt.Errorf("embedded persona %s: %w", key, err)
		}
		defs[key] = Definition{
			Identifier: key,
			Name:       name,
			Prompt:     strings.TrimSpace(string(data)),
			Active:     true,
			UpdatedAt:  now,
		}
	}
	return defs, nil
}

// Seed writes the shipped persona set into an empty store. Stores that
// already hold records are left untouched so operator edits survive
// restarts.
func Seed(store *Store) error {
	n, err := store.Count()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	defs, err := Builtins()
	if err != nil {
		return err
	}
	for _, d := range defs {
		if err := store.Upsert(d); err != nil {
			return err
		}
	}
	return nil
}
