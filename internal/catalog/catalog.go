// Package catalog holds the capability surface: named components whose
// registered actions are the operations scenarios can invoke. Registration
// is explicit and happens once at startup; the normalized name index is
// built from the registrations and validated before the first run, so
// missing methods and ambiguous names fail at build time instead of
// mid-scenario.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/phasebot/internal/task"
)

var (
	// ErrUnknownComponent is returned by dotted resolution when the named
	// capability component does not exist.
	ErrUnknownComponent = errors.New("unknown capability component")
	// ErrUnknownMethod is returned by dotted resolution when the component
	// exists but the method does not.
	ErrUnknownMethod = errors.New("unknown component method")
	// ErrUnknownAction is returned when an indexed action name resolves to
	// nothing.
	ErrUnknownAction = errors.New("unknown scenario action")
	// ErrAmbiguousAction is returned when a bare action name is bound by
	// more than one component.
	ErrAmbiguousAction = errors.New("ambiguous scenario action name")
)

// Action is one registered operation. Run is the synchronous form. Start,
// when non-nil, is the suspending variant and always takes precedence at
// resolution; its task may implement task.ValueTask to report a result.
type Action struct {
	Run   func(ctx context.Context, args []any, kwargs map[string]any) (any, error)
	Start func(args []any, kwargs map[string]any) task.Task
}

// Module is implemented by packages that contribute components to the catalog.
type Module interface {
	Register(c *Catalog)
}

// Component is a named capability namespace holding registered actions.
type Component struct {
	name    string
	actions map[string]*Action
	order   []string
}

// Register adds a named action to the component. Registering the same
// method twice is a programmer error and panics, matching registry
// conventions elsewhere in the codebase.
func (c *Component) Register(method string, a Action) {
	if _, exists := c.actions[method]; exists {
		panic(fmt.Sprintf("action %q already registered on component %q", method, c.name))
	}
	if a.Run == nil && a.Start == nil {
		panic(fmt.Sprintf("action %q on component %q has no callable", method, c.name))
	}
	slog.Debug("Registering action.", "component", c.name, "method", method, "suspending", a.Start != nil)
	c.actions[method] = &a
	c.order = append(c.order, method)
}

// Invocation is a resolved action ready to be invoked.
type Invocation struct {
	Component string
	Method    string
	action    *Action
}

// Suspending reports whether the caller must treat the call as suspending.
func (iv Invocation) Suspending() bool { return iv.action.Start != nil }

// Call invokes the synchronous form. Callers must check Suspending first.
func (iv Invocation) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return iv.action.Run(ctx, args, kwargs)
}

// Task starts the suspending form.
func (iv Invocation) Task(args []any, kwargs map[string]any) task.Task {
	return iv.action.Start(args, kwargs)
}

// binding records which component/method an index key points at.
type binding struct {
	component string
	method    string
}

// Catalog is the set of registered components plus the cached name index.
type Catalog struct {
	components map[string]*Component
	order      []string

	index     map[string]binding
	ambiguous map[string][]binding
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{components: make(map[string]*Component)}
}

// Component returns the named component, creating it on first use.
// Component names are stored lowercase; scan order is creation order.
func (c *Catalog) Component(name string) *Component {
	key := strings.ToLower(name)
	if comp, ok := c.components[key]; ok {
		return comp
	}
	comp := &Component{name: key, actions: make(map[string]*Action)}
	c.components[key] = comp
	c.order = append(c.order, key)
	c.index = nil // registrations invalidate the cached index
	return comp
}

// ComponentNames lists components in registration order.
func (c *Catalog) ComponentNames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Validate forces the index build and fails fast on ambiguous bare-name
// bindings. Called once at startup, after all modules have registered.
func (c *Catalog) Validate() error {
	c.buildIndex()
	if len(c.ambiguous) == 0 {
		return nil
	}

	keys := make([]string, 0, len(c.ambiguous))
	for k := range c.ambiguous {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msgs []string
	for _, k := range keys {
		var owners []string
		for _, b := range c.ambiguous[k] {
			owners = append(owners, b.component+"."+b.method)
		}
		msgs = append(msgs, fmt.Sprintf("%q is bound by %s", k, strings.Join(owners, " and ")))
	}
	return fmt.Errorf("%w: %s", ErrAmbiguousAction, strings.Join(msgs, "; "))
}

// Resolve maps an action name to an invocation. A dotted name addresses a
// component directly and bypasses the index; anything else is looked up by
// its normalized form.
func (c *Catalog) Resolve(name string) (Invocation, error) {
	if strings.Contains(name, ".") {
		compName, method, _ := strings.Cut(name, ".")
		return c.resolveDotted(strings.TrimSpace(compName), strings.TrimSpace(method))
	}

	c.buildIndex()
	key := normalizeToken(name)
	if bs, ok := c.ambiguous[key]; ok {
		var owners []string
		for _, b := range bs {
			owners = append(owners, b.component+"."+b.method)
		}
		return Invocation{}, fmt.Errorf("%w: %q matches %s", ErrAmbiguousAction, name, strings.Join(owners, " and "))
	}
	b, ok := c.index[key]
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return c.invocation(b)
}

// resolveDotted addresses component.method directly, raising distinct
// errors for a missing component versus a missing method.
func (c *Catalog) resolveDotted(compName, method string) (Invocation, error) {
	comp, ok := c.components[strings.ToLower(compName)]
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %q", ErrUnknownComponent, compName)
	}
	if a, ok := comp.actions[method]; ok {
		return Invocation{Component: comp.name, Method: method, action: a}, nil
	}
	// Tolerate alternate spellings of the same method name.
	want := camelToSnake(method)
	for _, m := range comp.order {
		if camelToSnake(m) == want {
			return Invocation{Component: comp.name, Method: m, action: comp.actions[m]}, nil
		}
	}
	return Invocation{}, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, comp.name, method)
}

func (c *Catalog) invocation(b binding) (Invocation, error) {
	comp := c.components[b.component]
	a, ok := comp.actions[b.method]
	if !ok {
		return Invocation{}, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, b.component, b.method)
	}
	return Invocation{Component: b.component, Method: b.method, action: a}, nil
}

// buildIndex computes the normalized lookup table once and caches it.
// Qualified keys cannot collide (the component name prefixes them); bare
// keys bound by more than one component are quarantined as ambiguous.
func (c *Catalog) buildIndex() {
	if c.index != nil {
		return
	}
	index := make(map[string]binding)
	ambiguous := make(map[string][]binding)

	for _, compName := range c.order {
		comp := c.components[compName]
		for _, method := range comp.order {
			b := binding{component: compName, method: method}
			lower := strings.ToLower(method)
			snake := camelToSnake(method)

			for _, key := range []string{
				compName + "." + lower,
				compName + "." + snake,
				compName + "_" + lower,
				compName + "_" + snake,
			} {
				k := normalizeToken(key)
				if _, exists := index[k]; !exists {
					index[k] = b
				}
			}

			for _, bare := range []string{lower, snake} {
				k := normalizeToken(bare)
				if prior, exists := index[k]; exists {
					if prior.component != b.component {
						c.quarantine(ambiguous, k, prior, b)
						delete(index, k)
					}
					continue
				}
				if _, bad := ambiguous[k]; bad {
					c.quarantine(ambiguous, k, b)
					continue
				}
				index[k] = b
			}
		}
	}

	c.index = index
	c.ambiguous = ambiguous
}

func (c *Catalog) quarantine(ambiguous map[string][]binding, key string, bs ...binding) {
	for _, b := range bs {
		seen := false
		for _, cur := range ambiguous[key] {
			if cur == b {
				seen = true
				break
			}
		}
		if !seen {
			ambiguous[key] = append(ambiguous[key], b)
		}
	}
}
