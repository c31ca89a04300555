// Package actions implements the action/agent boundary (spec §6a): a
// string-keyed registry mapping action names to their metadata and
// executor, decoupling the planning core from the collaborators (trip
// store, places search, transport matrices) that back each action.
package actions

import "context"

// Kind classifies whether an action stays inside the core or reaches an
// external collaborator.
type Kind string

const (
	KindInternal Kind = "internal"
	KindExternal Kind = "external"
)

// Cost is a coarse execution-cost hint used for scheduling/caching
// decisions by callers.
type Cost string

const (
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

// SideEffect classifies what an action does besides returning data.
type SideEffect string

const (
	SideEffectNone        SideEffect = "none"
	SideEffectWritesDB    SideEffect = "writes_db"
	SideEffectCallsAPI    SideEffect = "calls_api"
	SideEffectChargesMoney SideEffect = "charges_money"
)

// Executor is the function signature every registered action implements.
// Input and output are left as `any` since each action defines its own
// shape; validation happens inside the executor.
type Executor func(ctx context.Context, input any) (any, error)

// Metadata describes one action's contract, independent of its executor.
type Metadata struct {
	Name          string
	Kind          Kind
	Cost          Cost
	SideEffect    SideEffect
	Preconditions []string // dotted state paths
	Idempotent    bool
	Cacheable     bool
}

// Action bundles metadata with its executor.
type Action struct {
	Metadata Metadata
	Run      Executor
}

// Registry is the string-keyed action table (spec §6a).
type Registry struct {
	actions map[string]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action, overwriting any prior registration under the
// same name.
func (r *Registry) Register(a Action) {
	r.actions[a.Metadata.Name] = a
}

// Lookup returns the action registered under name, if any.
func (r *Registry) Lookup(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

// Invoke looks up and runs the named action in one call.
func (r *Registry) Invoke(ctx context.Context, name string, input any) (any, error) {
	a, ok := r.Lookup(name)
	if !ok {
		return nil, ErrUnknownAction{Name: name}
	}
	return a.Run(ctx, input)
}

// Names lists every registered action name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.actions))
	for name := range r.actions {
		names = append(names, name)
	}
	return names
}

// ErrUnknownAction is returned by Invoke for an unregistered name.
type ErrUnknownAction struct {
	Name string
}

func (e ErrUnknownAction) Error() string {
	return "actions: unknown action " + e.Name
}
