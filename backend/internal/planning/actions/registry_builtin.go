package actions

import (
	"context"
	"fmt"
	"math"

	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/feasibility"
	"wayfare-backend/internal/planning/robustness"
	"wayfare-backend/internal/planning/timegeo"
)

// TripStore is the persistence collaborator backing the trip.* actions
// (spec §6a). Its concrete implementation lives outside the planning
// core (see internal/store).
type TripStore interface {
	LoadDraft(ctx context.Context, tripID string) (trip any, items any, err error)
	ApplyUserEdit(ctx context.Context, tripID string, edits []UserEdit) ([]EditResult, error)
	PersistPlan(ctx context.Context, tripID string, timeline []domain.PlannedStop) error
}

// UserEdit is one entry of a trip.apply_user_edit request.
type UserEdit struct {
	Type   string // delete | update | move
	ItemID string
	Data   map[string]any
}

// EditResult reports the outcome of applying one UserEdit.
type EditResult struct {
	ItemID  string
	Success bool
	Message string
}

// PlacesSearch is the external search collaborator behind places.*.
type PlacesSearch interface {
	ResolveEntities(ctx context.Context, query string, lat, lng *float64, limit int) ([]domain.Poi, error)
	GetPoiFacts(ctx context.Context, poiIDs []string) (map[string]domain.Poi, error)
}

// TimeMatrixNode is one node of a transport.build_time_matrix request.
type TimeMatrixNode struct {
	ID  string
	Lat float64
	Lng float64
}

// WebBrowser is the external page-fetch collaborator behind webbrowse.browse.
type WebBrowser interface {
	Browse(ctx context.Context, url string) (content string, err error)
}

// Deps bundles the collaborators the built-in action set needs. A nil
// field simply means that action's registration is skipped.
type Deps struct {
	TripStore TripStore
	Places    PlacesSearch
	Browser   WebBrowser
}

// robustTimeMatrixMultiplier and robustTimeMatrixOffsetMin implement the
// "robust" time matrix rule of spec §6a: round(api*1.2 + 15).
const (
	robustTimeMatrixMultiplier = 1.2
	robustTimeMatrixOffsetMin  = 15.0
)

// fallbackTransitAPIMin and fallbackTransitRobustMin are the degraded
// estimates used when a transit query collaborator fails (spec §7).
const (
	fallbackTransitAPIMin    = 30.0
	fallbackTransitRobustMin = 45.0
)

// BuildRegistry wires the nine named actions of spec §6a. The two
// policy.* actions need no external collaborator (they wrap the
// Feasibility Service and Robustness Evaluator directly); the rest are
// skipped if their collaborator is nil.
func BuildRegistry(deps Deps) *Registry {
	r := NewRegistry()

	r.Register(Action{
		Metadata: Metadata{
			Name: "policy.validate_feasibility", Kind: KindInternal, Cost: CostLow,
			SideEffect: SideEffectNone, Idempotent: true, Cacheable: true,
		},
		Run: validateFeasibilityAction,
	})

	r.Register(Action{
		Metadata: Metadata{
			Name: "policy.score_robustness", Kind: KindInternal, Cost: CostMedium,
			SideEffect: SideEffectNone, Idempotent: true, Cacheable: true,
		},
		Run: scoreRobustnessAction,
	})

	if deps.TripStore != nil {
		r.Register(Action{
			Metadata: Metadata{
				Name: "trip.load_draft", Kind: KindExternal, Cost: CostLow,
				SideEffect: SideEffectNone, Preconditions: []string{"trip.exists"},
				Idempotent: true, Cacheable: true,
			},
			Run: loadDraftAction(deps.TripStore),
		})
		r.Register(Action{
			Metadata: Metadata{
				Name: "trip.apply_user_edit", Kind: KindExternal, Cost: CostMedium,
				SideEffect: SideEffectWritesDB, Preconditions: []string{"trip.exists"},
				Idempotent: false, Cacheable: false,
			},
			Run: applyUserEditAction(deps.TripStore),
		})
		r.Register(Action{
			Metadata: Metadata{
				Name: "trip.persist_plan", Kind: KindExternal, Cost: CostMedium,
				SideEffect: SideEffectWritesDB, Preconditions: []string{"trip.exists"},
				Idempotent: true, Cacheable: false,
			},
			Run: persistPlanAction(deps.TripStore),
		})
	}

	if deps.Places != nil {
		r.Register(Action{
			Metadata: Metadata{
				Name: "places.resolve_entities", Kind: KindExternal, Cost: CostMedium,
				SideEffect: SideEffectCallsAPI, Idempotent: true, Cacheable: true,
			},
			Run: resolveEntitiesAction(deps.Places),
		})
		r.Register(Action{
			Metadata: Metadata{
				Name: "places.get_poi_facts", Kind: KindExternal, Cost: CostLow,
				SideEffect: SideEffectCallsAPI, Idempotent: true, Cacheable: true,
			},
			Run: getPoiFactsAction(deps.Places),
		})
	}

	r.Register(Action{
		Metadata: Metadata{
			Name: "transport.build_time_matrix", Kind: KindExternal, Cost: CostHigh,
			SideEffect: SideEffectCallsAPI, Idempotent: true, Cacheable: true,
		},
		Run: buildTimeMatrixAction,
	})

	if deps.Browser != nil {
		r.Register(Action{
			Metadata: Metadata{
				Name: "webbrowse.browse", Kind: KindExternal, Cost: CostHigh,
				SideEffect: SideEffectCallsAPI, Idempotent: true, Cacheable: false,
			},
			Run: browseAction(deps.Browser),
		})
	}

	return r
}

// FeasibilityInput is the input schema for policy.validate_feasibility.
type FeasibilityInput struct {
	Timeline    []*domain.Poi
	ArrivalsMin []int
	Policy      domain.Policy
	DayOfWeek   int
	DateISO     string
	Holidays    timegeo.HolidayChecker
}

// FeasibilityOutput is the output schema for policy.validate_feasibility.
type FeasibilityOutput struct {
	Pass       bool
	Violations []feasibility.Result
}

func validateFeasibilityAction(ctx context.Context, input any) (any, error) {
	in, ok := input.(FeasibilityInput)
	if !ok {
		return nil, fmt.Errorf("actions: policy.validate_feasibility expects FeasibilityInput")
	}
	holidays := in.Holidays
	if holidays == nil {
		holidays = timegeo.NoHolidays{}
	}
	out := FeasibilityOutput{Pass: true}
	for i, poi := range in.Timeline {
		arrival := 0
		if i < len(in.ArrivalsMin) {
			arrival = in.ArrivalsMin[i]
		}
		res := feasibility.IsPoiFeasible(poi, arrival, in.Policy, in.DayOfWeek, in.DateISO, holidays)
		if !res.Feasible {
			out.Pass = false
			out.Violations = append(out.Violations, res)
		}
	}
	return out, nil
}

// RobustnessInput is the input schema for policy.score_robustness.
type RobustnessInput struct {
	Policy    domain.Policy
	Schedule  domain.DaySchedule
	Lookup    domain.PoiLookup
	DayEndMin int
	DateISO   string
	DayOfWeek int
	Holidays  timegeo.HolidayChecker
	Config    robustness.Config
}

func scoreRobustnessAction(ctx context.Context, input any) (any, error) {
	in, ok := input.(RobustnessInput)
	if !ok {
		return nil, fmt.Errorf("actions: policy.score_robustness expects RobustnessInput")
	}
	return robustness.EvaluateDay(in.Policy, in.Schedule, in.Lookup, in.DayEndMin, in.DateISO, in.DayOfWeek, in.Holidays, in.Config), nil
}

// LoadDraftInput/Output mirror trip.load_draft's schema (spec §6a).
type LoadDraftInput struct {
	TripID string
}

type LoadDraftOutput struct {
	Trip  any
	Items any
}

func loadDraftAction(store TripStore) Executor {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(LoadDraftInput)
		if !ok {
			return nil, fmt.Errorf("actions: trip.load_draft expects LoadDraftInput")
		}
		trip, items, err := store.LoadDraft(ctx, in.TripID)
		if err != nil {
			return nil, err
		}
		return LoadDraftOutput{Trip: trip, Items: items}, nil
	}
}

// ApplyUserEditInput/Output mirror trip.apply_user_edit's schema.
type ApplyUserEditInput struct {
	TripID string
	Edits  []UserEdit
}

type ApplyUserEditOutput struct {
	Success bool
	Results []EditResult
}

func applyUserEditAction(store TripStore) Executor {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(ApplyUserEditInput)
		if !ok {
			return nil, fmt.Errorf("actions: trip.apply_user_edit expects ApplyUserEditInput")
		}
		results, err := store.ApplyUserEdit(ctx, in.TripID, in.Edits)
		if err != nil {
			return nil, err
		}
		allOk := true
		for _, r := range results {
			if !r.Success {
				allOk = false
			}
		}
		return ApplyUserEditOutput{Success: allOk, Results: results}, nil
	}
}

// PersistPlanInput is trip.persist_plan's input schema.
type PersistPlanInput struct {
	TripID   string
	Timeline []domain.PlannedStop
}

type PersistPlanOutput struct {
	Success bool
}

func persistPlanAction(store TripStore) Executor {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(PersistPlanInput)
		if !ok {
			return nil, fmt.Errorf("actions: trip.persist_plan expects PersistPlanInput")
		}
		if err := store.PersistPlan(ctx, in.TripID, in.Timeline); err != nil {
			return PersistPlanOutput{Success: false}, err
		}
		return PersistPlanOutput{Success: true}, nil
	}
}

// ResolveEntitiesInput is places.resolve_entities's input schema.
type ResolveEntitiesInput struct {
	Query string
	Lat   *float64
	Lng   *float64
	Limit int
}

type ResolveEntitiesOutput struct {
	Nodes []domain.Poi
	Count int
}

func resolveEntitiesAction(places PlacesSearch) Executor {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(ResolveEntitiesInput)
		if !ok {
			return nil, fmt.Errorf("actions: places.resolve_entities expects ResolveEntitiesInput")
		}
		nodes, err := places.ResolveEntities(ctx, in.Query, in.Lat, in.Lng, in.Limit)
		if err != nil {
			// A failed external lookup degrades to an empty candidate
			// list rather than aborting (spec §7).
			return ResolveEntitiesOutput{}, nil
		}
		return ResolveEntitiesOutput{Nodes: nodes, Count: len(nodes)}, nil
	}
}

// GetPoiFactsInput is places.get_poi_facts's input schema.
type GetPoiFactsInput struct {
	PoiIDs []string
}

type GetPoiFactsOutput struct {
	Facts map[string]domain.Poi
}

func getPoiFactsAction(places PlacesSearch) Executor {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(GetPoiFactsInput)
		if !ok {
			return nil, fmt.Errorf("actions: places.get_poi_facts expects GetPoiFactsInput")
		}
		facts, err := places.GetPoiFacts(ctx, in.PoiIDs)
		if err != nil {
			return GetPoiFactsOutput{Facts: map[string]domain.Poi{}}, nil
		}
		return GetPoiFactsOutput{Facts: facts}, nil
	}
}

// BuildTimeMatrixInput is transport.build_time_matrix's input schema.
type BuildTimeMatrixInput struct {
	Nodes       []TimeMatrixNode
	QueryMatrix func(nodes []TimeMatrixNode) ([][]float64, error) // nil (or a failed query) uses the flat fallback estimates
}

type BuildTimeMatrixOutput struct {
	TimeMatrixAPI    [][]float64
	TimeMatrixRobust [][]float64
}

func buildTimeMatrixAction(ctx context.Context, input any) (any, error) {
	in, ok := input.(BuildTimeMatrixInput)
	if !ok {
		return nil, fmt.Errorf("actions: transport.build_time_matrix expects BuildTimeMatrixInput")
	}

	n := len(in.Nodes)
	var apiMatrix [][]float64
	if in.QueryMatrix != nil {
		m, err := in.QueryMatrix(in.Nodes)
		if err == nil {
			apiMatrix = m
		}
	}
	usedFallback := false
	if apiMatrix == nil {
		apiMatrix = fallbackTimeMatrix(in.Nodes)
		usedFallback = true
	}

	robust := make([][]float64, n)
	for i := range apiMatrix {
		robust[i] = make([]float64, n)
		for j, v := range apiMatrix[i] {
			if i == j {
				continue
			}
			if usedFallback {
				robust[i][j] = fallbackTransitRobustMin
				continue
			}
			robust[i][j] = math.Round(v*robustTimeMatrixMultiplier + robustTimeMatrixOffsetMin)
		}
	}

	return BuildTimeMatrixOutput{TimeMatrixAPI: apiMatrix, TimeMatrixRobust: robust}, nil
}

// fallbackTimeMatrix degrades to a fixed per-leg estimate when no live
// transit query collaborator is available (spec §7).
func fallbackTimeMatrix(nodes []TimeMatrixNode) [][]float64 {
	n := len(nodes)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i != j {
				m[i][j] = fallbackTransitAPIMin
			}
		}
	}
	return m
}

// BrowseInput is webbrowse.browse's input schema.
type BrowseInput struct {
	URL string
}

type BrowseOutput struct {
	Success bool
	Content string
}

func browseAction(browser WebBrowser) Executor {
	return func(ctx context.Context, input any) (any, error) {
		in, ok := input.(BrowseInput)
		if !ok {
			return nil, fmt.Errorf("actions: webbrowse.browse expects BrowseInput")
		}
		content, err := browser.Browse(ctx, in.URL)
		if err != nil {
			return BrowseOutput{Success: false}, nil
		}
		return BrowseOutput{Success: true, Content: content}, nil
	}
}
