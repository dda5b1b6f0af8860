package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/vk/phasebot/internal/catalog"
	"github.com/vk/phasebot/internal/ctxlog"
)

// ErrUnknownTemplate marks a template name outside the known set.
var ErrUnknownTemplate = errors.New("unknown template")

// DefaultTemplate is applied when a bot does not name one.
const DefaultTemplate = "aggressive"

// templateMethods maps template names to the method invoked on the
// "templates" capability component.
var templateMethods = map[string]string{
	"aggressive":          "Aggressive",
	"pacifist":            "Pacifist",
	"multibox_aggressive": "MultiboxAggressive",
}

// TemplateNames lists the known template names, sorted.
func TemplateNames() []string {
	names := make([]string, 0, len(templateMethods))
	for name := range templateMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveTemplate maps a template name to its catalog invocation. Unknown
// template names and a missing templates component are both build-time
// fatal.
func resolveTemplate(c *catalog.Catalog, name string) (catalog.Invocation, error) {
	method, ok := templateMethods[name]
	if !ok {
		return catalog.Invocation{}, fmt.Errorf("%w: %q (choose from: %v)", ErrUnknownTemplate, name, TemplateNames())
	}
	iv, err := c.Resolve("templates." + method)
	if err != nil {
		return catalog.Invocation{}, fmt.Errorf("template %q: %w", name, err)
	}
	return iv, nil
}

// applyTemplate switches the bot to the named template. Template switches
// must complete within the tick, so a suspending registration is rejected.
func applyTemplate(ctx context.Context, c *catalog.Catalog, name string) error {
	iv, err := resolveTemplate(c, name)
	if err != nil {
		return err
	}
	if iv.Suspending() {
		return fmt.Errorf("template %q: %s.%s is suspending, template actions must be synchronous",
			name, iv.Component, iv.Method)
	}
	ctxlog.FromContext(ctx).Info("Applying template.", "template", name)
	_, err = iv.Call(ctx, nil, nil)
	return err
}
