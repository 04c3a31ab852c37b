package actions

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/forgewalk/forge/pkg/forge"
)

// NamedAction is what a builtin or plugin action implements: the
// runtime forge.Action contract plus the metadata the registry needs
// to build a forge.ActionDefinition. InputType may be nil, meaning the
// action takes its input as a raw map[string]any with no known shape
// for the evaluator to coerce against.
type NamedAction interface {
	forge.Action
	Name() string
	InputType() reflect.Type
}

// Registry is the concrete thread-safe forge.ActionRegistry
// implementation.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*forge.ActionDefinition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*forge.ActionDefinition)}
}

// Register adds an action to the registry under its own name. Each
// invocation gets a freshly allocated shallow copy of a, built via
// reflection from a type resolved once, so fields set on a before
// registration (an injected validator, a wrapped action) carry over to
// every instance.
func (r *Registry) Register(a NamedAction) error {
	if a == nil {
		return forge.NewError(forge.ErrCodeValidation, "action is nil")
	}
	name := a.Name()
	if name == "" {
		return forge.NewError(forge.ErrCodeValidation, "action name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[name]; exists {
		return forge.NewErrorf(forge.ErrCodeConflict, "action %q already registered", name)
	}

	proto := reflect.ValueOf(a)
	concreteType := proto.Type()
	isPtr := concreteType.Kind() == reflect.Ptr
	elemType := concreteType
	if isPtr {
		elemType = concreteType.Elem()
	}

	r.defs[name] = &forge.ActionDefinition{
		Name:      name,
		InputType: a.InputType(),
		New: func() forge.Action {
			instance := reflect.New(elemType)
			if isPtr {
				instance.Elem().Set(proto.Elem())
				return instance.Interface().(forge.Action)
			}
			instance.Elem().Set(proto)
			return instance.Elem().Interface().(forge.Action)
		},
	}
	return nil
}

// RegisterDefinition registers a definition directly, for hosts that
// already have a factory and input type in hand.
func (r *Registry) RegisterDefinition(def *forge.ActionDefinition) error {
	if def == nil || def.Name == "" {
		return forge.NewError(forge.ErrCodeValidation, "action definition is nil or unnamed")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return forge.NewErrorf(forge.ErrCodeConflict, "action %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get retrieves an action definition by name. Satisfies
// forge.ActionRegistry; unknown names are not an error here — callers
// are expected to silently skip them.
func (r *Registry) Get(name string) (*forge.ActionDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// List returns all registered action names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterPlugin bulk-registers actions under a prefixed namespace.
// Each action name becomes "prefix.originalName" (e.g.
// "github.create_issue").
func (r *Registry) RegisterPlugin(prefix string, acts []NamedAction) (int, error) {
	if prefix == "" {
		return 0, forge.NewError(forge.ErrCodeValidation, "plugin prefix is empty")
	}

	registered := 0
	for _, a := range acts {
		prefixed := fmt.Sprintf("%s.%s", prefix, a.Name())
		if err := r.Register(&prefixedAction{inner: a, name: prefixed}); err != nil {
			return registered, err
		}
		registered++
	}
	return registered, nil
}

// Has checks if an action name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Count returns the number of registered actions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// prefixedAction wraps a plugin action with a prefixed name.
type prefixedAction struct {
	inner NamedAction
	name  string
}

func (p *prefixedAction) Name() string                    { return p.name }
func (p *prefixedAction) InputType() reflect.Type          { return p.inner.InputType() }
func (p *prefixedAction) RunAction(ctx forge.ActionContext) (forge.ActionResponse, error) {
	return p.inner.RunAction(ctx)
}
