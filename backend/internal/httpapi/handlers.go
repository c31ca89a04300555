package httpapi

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"wayfare-backend/internal/costpredict"
	"wayfare-backend/internal/metrics"
	"wayfare-backend/internal/planning/domain"
	"wayfare-backend/internal/planning/robustness"
	"wayfare-backend/internal/planning/whatif"
)

// Handler groups the /planning-policy route handlers. It holds no
// request-scoped state beyond an optional POI resolver; every planning
// component it calls is otherwise a pure function of its inputs (spec §5
// "Scheduling model").
type Handler struct {
	pois PoiResolver
}

// PoiResolver resolves place ids against a backing store, letting
// evalContext accept placeIds instead of requiring the caller to inline
// every POI. internal/store.PoiStore satisfies this.
type PoiResolver interface {
	LoadMany(ctx context.Context, ids []string) (domain.MapPoiLookup, error)
}

// NewHandler returns a Handler ready to be registered on a gin router.
// pois may be nil, in which case placeId-only requests are rejected.
func NewHandler(pois PoiResolver) *Handler {
	return &Handler{pois: pois}
}

// RegisterRoutes mounts every /planning-policy endpoint of spec §6(b).
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	g := router.Group("/planning-policy")
	{
		g.POST("/what-if/evaluate", h.whatIfEvaluate)
		g.POST("/what-if/apply", h.whatIfApply)
		g.POST("/what-if/re-evaluate", h.whatIfReEvaluate)
		g.POST("/what-if/risk-warning", h.whatIfRiskWarning)
		g.GET("/seed-for-candidate/:baseSeed/:candidateId", h.seedForCandidate)
		g.POST("/robustness/evaluate-day", h.robustnessEvaluateDay)
		g.POST("/what-if/generate-candidates", h.whatIfGenerateCandidates)
		g.POST("/what-if/evaluate-candidates", h.whatIfEvaluateCandidates)
	}
}

// evaluateDayRequest is the body for /robustness/evaluate-day.
type evaluateDayRequest struct {
	evalContext
	Config      configInput `json:"config"`
}

func (h *Handler) robustnessEvaluateDay(c *gin.Context) {
	var req evaluateDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	lookup, err := req.lookup(c.Request.Context(), h.pois)
	if err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	report := robustness.EvaluateDay(req.Policy, req.Schedule, lookup, req.DayEndMin, req.DateISO, req.DayOfWeek, req.holidayChecker(), req.Config.toRobustnessConfig())
	metrics.RobustnessEvaluations.Inc()
	respondOK(c, report)
}

// whatIfEvaluateRequest is the body for /what-if/evaluate.
type whatIfEvaluateRequest struct {
	evalContext
	Config      configInput             `json:"config"`
	Budget      budgetStrategy          `json:"budget"`
	Suggestions []robustness.Suggestion `json:"suggestions,omitempty"`
}

func (h *Handler) whatIfEvaluate(c *gin.Context) {
	var req whatIfEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	lookup, err := req.lookup(c.Request.Context(), h.pois)
	if err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	holidays := req.holidayChecker()
	cfg := req.Config.toRobustnessConfig()

	baseReport := robustness.EvaluateDay(req.Policy, req.Schedule, lookup, req.DayEndMin, req.DateISO, req.DayOfWeek, holidays, cfg)
	suggestions := req.Suggestions
	if len(suggestions) == 0 {
		suggestions = baseReport.Suggestions
	}

	candidates := whatif.GenerateCandidates(req.Schedule, suggestions)
	candidates = whatif.FilterValid(candidates)
	candidates = whatif.Dedupe(candidates)

	report := whatif.Evaluate(req.Policy, req.Schedule, candidates, lookup, req.DayEndMin, req.DateISO, req.DayOfWeek, holidays,
		req.Config.Seed, req.Budget.baseSamples(), req.Budget.candidateSamples())
	metrics.WhatIfEvaluations.Inc()
	respondOK(c, whatIfEvaluateResponse{
		Report:       report,
		CostEstimate: costpredict.PredictDayCost(req.Schedule, req.Policy),
	})
}

// whatIfEvaluateResponse augments the what-if report with the cost
// prediction sidecar's informational estimate; it plays no part in
// candidate scoring or selection.
type whatIfEvaluateResponse struct {
	whatif.Report
	CostEstimate  costpredict.Prediction `json:"costEstimate"`
}

// whatIfApplyRequest is the body for /what-if/apply.
type whatIfApplyRequest struct {
	Report      whatif.Report `json:"report"`
	CandidateID string        `json:"candidateId"`
}

func (h *Handler) whatIfApply(c *gin.Context) {
	var req whatIfApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	for _, e := range req.Report.Candidates {
		if e.Candidate.ID == req.CandidateID {
			respondOK(c, e.Candidate.Schedule)
			return
		}
	}
	respondError(c, CodeNotFound, "unknown candidate id "+req.CandidateID)
}

// reEvaluateRequest is the body for /what-if/re-evaluate.
type reEvaluateRequest struct {
	evalContext
	ReEvaluateSamples int    `json:"reEvaluateSamples,omitempty"`
	Seed              uint32 `json:"seed,omitempty"`
}

const defaultReEvaluateSamples = 600

func (h *Handler) whatIfReEvaluate(c *gin.Context) {
	var req reEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	lookup, err := req.lookup(c.Request.Context(), h.pois)
	if err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	samples := req.ReEvaluateSamples
	if samples <= 0 {
		samples = defaultReEvaluateSamples
	}
	cfg := robustness.Config{Samples: samples, Seed: req.Seed}
	report := robustness.EvaluateDay(req.Policy, req.Schedule, lookup, req.DayEndMin, req.DateISO, req.DayOfWeek, req.holidayChecker(), cfg)
	respondOK(c, report)
}

// riskWarningRequest is the body for /what-if/risk-warning.
type riskWarningRequest struct {
	Candidate whatif.Evaluated `json:"candidate"`
}

// missImprovePpThreshold mirrors the miss-improvement cutoff of the admission
// heuristic whatif.selectWinner applies before surfacing a risk warning
// for its chosen candidate; this endpoint applies the same check to a
// single caller-supplied candidate instead of a winner pick.
const missImprovePpThreshold = 10.0

func (h *Handler) whatIfRiskWarning(c *gin.Context) {
	var req riskWarningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	e := req.Candidate
	if e.Impact.Severity == "HIGH" && e.Confidence != whatif.ConfidenceHigh && e.Delta.MissDeltaPp < missImprovePpThreshold {
		respondOK(c, "change is large but benefit limited; consider reorder or local shift first.")
		return
	}
	respondOK(c, nil)
}

func (h *Handler) seedForCandidate(c *gin.Context) {
	baseSeedStr := c.Param("baseSeed")
	candidateID := c.Param("candidateId")
	baseSeed, err := strconv.ParseUint(baseSeedStr, 10, 32)
	if err != nil {
		respondError(c, CodeValidation, "baseSeed must be a non-negative integer")
		return
	}
	seed := whatif.SeedForCandidate(uint32(baseSeed), candidateID)
	respondOK(c, gin.H{"seed": seed})
}

// generateCandidatesRequest is the body for /what-if/generate-candidates.
type generateCandidatesRequest struct {
	Schedule    domain.DaySchedule      `json:"schedule"`
	Suggestions []robustness.Suggestion `json:"suggestions"`
}

func (h *Handler) whatIfGenerateCandidates(c *gin.Context) {
	var req generateCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	candidates := whatif.GenerateCandidates(req.Schedule, req.Suggestions)
	candidates = whatif.FilterValid(candidates)
	candidates = whatif.Dedupe(candidates)
	respondOK(c, candidates)
}

// evaluateCandidatesRequest is the body for /what-if/evaluate-candidates.
type evaluateCandidatesRequest struct {
	evalContext
	Candidates  []whatif.Candidate `json:"candidates"`
	BaseSeed    uint32             `json:"baseSeed"`
	Budget      budgetStrategy     `json:"budget"`
}

func (h *Handler) whatIfEvaluateCandidates(c *gin.Context) {
	var req evaluateCandidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	lookup, err := req.lookup(c.Request.Context(), h.pois)
	if err != nil {
		respondError(c, CodeValidation, err.Error())
		return
	}
	report := whatif.Evaluate(req.Policy, req.Schedule, req.Candidates, lookup, req.DayEndMin, req.DateISO, req.DayOfWeek, req.holidayChecker(),
		req.BaseSeed, req.Budget.baseSamples(), req.Budget.candidateSamples())
	respondOK(c, report)
}
