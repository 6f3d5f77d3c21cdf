package forecast

import (
	"fmt"
	"math"
	"time"

	"envelopes/internal/goal"
)

const (
	ScenarioConservative = "conservative"
	ScenarioRealistic    = "realistic"
	ScenarioOptimistic   = "optimistic"
)

// Fallback contribution multipliers used when no history exists, applied to
// the remaining/months baseline.
const (
	fallbackConservative = 0.7
	fallbackRealistic    = 1.0
	fallbackOptimistic   = 1.3
)

// Scenario is one projection tier. Reachable is false when the scenario's
// contribution can never complete the goal; ProjectedCompletion is zero in
// that case. Exactly one of Shortfall/Surplus is non-zero unless the
// scenario lands exactly on target at the target date.
type Scenario struct {
	Name                string    `json:"name"`
	MonthlyContribution float64   `json:"monthly_contribution"`
	DailyContribution   float64   `json:"daily_contribution"`
	WeeklyContribution  float64   `json:"weekly_contribution"`
	YearlyContribution  float64   `json:"yearly_contribution"`
	Reachable           bool      `json:"reachable"`
	ProjectedCompletion time.Time `json:"projected_completion"`
	Confidence          float64   `json:"confidence"` // clamped to [10,95]
	Shortfall           float64   `json:"shortfall"`
	Surplus             float64   `json:"surplus"`
}

// Forecast is the full three-tier projection plus qualitative text.
type Forecast struct {
	Conservative Scenario `json:"conservative"`
	Realistic    Scenario `json:"realistic"`
	Optimistic   Scenario `json:"optimistic"`
	History      Analysis `json:"history"`

	Recommendations   []string `json:"recommendations,omitempty"`
	RiskFactors       []string `json:"risk_factors,omitempty"`
	ConfidenceFactors []string `json:"confidence_factors,omitempty"`
}

// ProjectScenarios builds the conservative/realistic/optimistic forecast for
// a goal. When history exists the tiers scale the historical average by the
// observed low/high ratios (conservative floored at 0.5x, optimistic capped
// at 2.0x); otherwise fixed multipliers apply to a remaining/months
// baseline.
func ProjectScenarios(current, target float64, targetDate time.Time, history Analysis, now time.Time) (Forecast, error) {
	if target <= 0 {
		return Forecast{}, goal.ErrInvalidTarget
	}
	if current < 0 {
		current = 0
	}

	remaining := target - current
	if remaining < 0 {
		remaining = 0
	}

	monthsRemaining := (targetDate.Year()-now.Year())*12 + int(targetDate.Month()) - int(now.Month())
	if monthsRemaining < 1 {
		monthsRemaining = 1
	}

	var conservative, realistic, optimistic float64
	if history.MonthsWithData > 0 && history.AverageMonthly > 0 {
		realistic = history.AverageMonthly
		lowRatio := history.LowestMonthly / history.AverageMonthly
		if lowRatio < 0.5 {
			lowRatio = 0.5
		}
		highRatio := history.HighestMonthly / history.AverageMonthly
		if highRatio > 2.0 {
			highRatio = 2.0
		}
		conservative = realistic * lowRatio
		optimistic = realistic * highRatio
	} else {
		baseline := remaining / float64(monthsRemaining)
		conservative = baseline * fallbackConservative
		realistic = baseline * fallbackRealistic
		optimistic = baseline * fallbackOptimistic
	}

	f := Forecast{
		History:      history,
		Conservative: buildScenario(ScenarioConservative, conservative, current, target, remaining, monthsRemaining, history, now),
		Realistic:    buildScenario(ScenarioRealistic, realistic, current, target, remaining, monthsRemaining, history, now),
		Optimistic:   buildScenario(ScenarioOptimistic, optimistic, current, target, remaining, monthsRemaining, history, now),
	}
	f.applyAdvice(monthsRemaining)

	return f, nil
}

func buildScenario(name string, monthly, current, target, remaining float64, monthsRemaining int, history Analysis, now time.Time) Scenario {
	s := Scenario{
		Name:                name,
		MonthlyContribution: monthly,
		DailyContribution:   monthly * 12 / 365,
		WeeklyContribution:  monthly * 12 / 52,
		YearlyContribution:  monthly * 12,
	}

	projected := current + monthly*float64(monthsRemaining)
	if diff := projected - target; diff >= 0 {
		s.Surplus = diff
	} else {
		s.Shortfall = -diff
	}

	switch {
	case remaining == 0:
		s.Reachable = true
		s.ProjectedCompletion = now
	case monthly > 0:
		s.Reachable = true
		months := int(math.Ceil(remaining / monthly))
		s.ProjectedCompletion = now.AddDate(0, months, 0)
	}

	s.Confidence = scenarioConfidence(name, history)
	return s
}

// scenarioConfidence starts from the historical consistency score, nudges it
// per tier (conservative +20 capped at 95, optimistic -20 floored at 20) and
// per trend (+10 increasing, -10 decreasing), then clamps to [10,95].
func scenarioConfidence(name string, history Analysis) float64 {
	confidence := history.ConsistencyScore

	switch name {
	case ScenarioConservative:
		confidence += 20
		if confidence > 95 {
			confidence = 95
		}
	case ScenarioOptimistic:
		confidence -= 20
		if confidence < 20 {
			confidence = 20
		}
	}

	switch history.Trend {
	case TrendIncreasing:
		confidence += 10
	case TrendDecreasing:
		confidence -= 10
	}

	if confidence < 10 {
		confidence = 10
	}
	if confidence > 95 {
		confidence = 95
	}
	return confidence
}

// adviceRule is one independently evaluated condition -> message mapping.
// Rules run in declaration order; ordering affects output ordering only.
type adviceRule struct {
	applies func(f *Forecast, monthsRemaining int) bool
	kind    adviceKind
	message func(f *Forecast, monthsRemaining int) string
}

type adviceKind int

const (
	adviceRecommendation adviceKind = iota
	adviceRisk
	adviceConfidence
)

var adviceRules = []adviceRule{
	{
		applies: func(f *Forecast, _ int) bool {
			return f.History.MonthsWithData > 0 && f.History.ConsistencyScore < 60
		},
		kind: adviceRecommendation,
		message: func(f *Forecast, _ int) string {
			return "Contributions vary widely month to month; consider automating a fixed monthly transfer."
		},
	},
	{
		applies: func(f *Forecast, _ int) bool {
			return f.History.MonthsWithData > 0 && f.History.ConsistencyScore < 60
		},
		kind: adviceRisk,
		message: func(f *Forecast, _ int) string {
			return fmt.Sprintf("Low contribution consistency (score %.0f of 100).", f.History.ConsistencyScore)
		},
	},
	{
		applies: func(f *Forecast, _ int) bool { return f.History.Trend == TrendDecreasing },
		kind:    adviceRisk,
		message: func(f *Forecast, _ int) string {
			return "Monthly contributions have been trending downward."
		},
	},
	{
		applies: func(f *Forecast, _ int) bool { return f.History.Trend == TrendIncreasing },
		kind:    adviceConfidence,
		message: func(f *Forecast, _ int) string {
			return "Monthly contributions have been trending upward."
		},
	},
	{
		applies: func(f *Forecast, _ int) bool { return f.History.MonthsWithData < 3 },
		kind:    adviceRisk,
		message: func(f *Forecast, _ int) string {
			return "Limited contribution history; projections are based on assumptions rather than observed behavior."
		},
	},
	{
		applies: func(f *Forecast, _ int) bool { return f.History.MonthsWithData >= 3 },
		kind:    adviceConfidence,
		message: func(f *Forecast, _ int) string {
			return fmt.Sprintf("Based on %d months of contribution history.", f.History.MonthsWithData)
		},
	},
	{
		applies: func(_ *Forecast, monthsRemaining int) bool { return monthsRemaining < 6 },
		kind:    adviceRisk,
		message: func(_ *Forecast, monthsRemaining int) string {
			return fmt.Sprintf("Only %d months remain before the target date.", monthsRemaining)
		},
	},
	{
		applies: func(f *Forecast, _ int) bool { return f.Realistic.Shortfall > 0 },
		kind:    adviceRecommendation,
		message: func(f *Forecast, monthsRemaining int) string {
			extra := f.Realistic.Shortfall / float64(monthsRemaining)
			return fmt.Sprintf("At the realistic pace the goal falls %.2f short; adding %.2f per month would close the gap.", f.Realistic.Shortfall, extra)
		},
	},
	{
		applies: func(f *Forecast, _ int) bool { return f.Realistic.Surplus > 0 },
		kind:    adviceConfidence,
		message: func(f *Forecast, _ int) string {
			return fmt.Sprintf("The realistic pace finishes %.2f ahead of the target.", f.Realistic.Surplus)
		},
	},
}

func (f *Forecast) applyAdvice(monthsRemaining int) {
	for _, rule := range adviceRules {
		if !rule.applies(f, monthsRemaining) {
			continue
		}
		msg := rule.message(f, monthsRemaining)
		switch rule.kind {
		case adviceRecommendation:
			f.Recommendations = append(f.Recommendations, msg)
		case adviceRisk:
			f.RiskFactors = append(f.RiskFactors, msg)
		case adviceConfidence:
			f.ConfidenceFactors = append(f.ConfidenceFactors, msg)
		}
	}
}
