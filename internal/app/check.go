package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vk/phasebot/internal/fsutil"
	"github.com/vk/phasebot/internal/scenario"
)

// Check validates the loaded profile against the catalog and parses every
// scenario file under the scenarios directory, reporting all problems at
// once instead of stopping at the first.
func (a *App) Check(ctx context.Context) error {
	var problems []string

	// Every action a scenario names must resolve against the catalog; so
	// must every direct action in the profile's phases.
	for _, phase := range a.profile.Phases {
		for _, action := range phase.Actions {
			if _, err := a.catalog.Resolve(action.Name); err != nil {
				problems = append(problems, fmt.Sprintf("profile phase %q: %v", phase.Name, err))
			}
		}
	}

	files, err := fsutil.FindFilesByExtension(".json", a.config.ScenariosPath)
	if err != nil {
		return fmt.Errorf("failed to scan scenarios directory: %w", err)
	}

	checked := 0
	for _, file := range files {
		if strings.HasSuffix(file, "manifest.json") {
			continue
		}
		def, err := scenario.Load(file)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		checked++
		for i, action := range def.Actions {
			if _, err := a.catalog.Resolve(action.Name); err != nil {
				problems = append(problems, fmt.Sprintf("%s: action %d: %v", file, i, err))
			}
		}
	}

	a.logger.Info("Check complete.",
		"scenarios", checked, "profile_phases", len(a.profile.Phases), "problems", len(problems))

	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintln(a.outW, "check:", p)
		}
		return errors.New("check found problems")
	}
	fmt.Fprintln(a.outW, "check: ok")
	return nil
}
