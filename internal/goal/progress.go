// Package goal computes point-in-time progress and forward projections for
// a single savings goal.
//
// Month counting uses calendar-month arithmetic throughout: the difference
// between (year, month) pairs, never a 30-day approximation. Every function
// takes the reference time explicitly so results are deterministic.
package goal

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidTarget = errors.New("target amount must be positive")

// TrackStatus reports whether a goal is keeping pace with its timeline.
// TrackUnknown means the comparison is undefined: the goal is already
// completed, has no target date, or no time remains.
type TrackStatus int

const (
	TrackUnknown TrackStatus = iota
	TrackOn
	TrackBehind
)

// TimeTracking carries the timeline-derived fields of a Progress. It is
// present only when the goal has a target date.
type TimeTracking struct {
	TargetDate             time.Time `json:"target_date"`
	DaysRemaining          int       `json:"days_remaining"`
	DaysTotal              int       `json:"days_total"`
	TimeProgressPercentage float64   `json:"time_progress_percentage"` // clamped to [0,100]
}

// Progress is a point-in-time snapshot of a savings goal.
//
// Time is nil when no target date was supplied. Daily/Weekly/Monthly targets
// are set only when an amount remains and days remain. ProjectedCompletion
// is a naive linear extrapolation of the average daily rate since the start
// date; it ignores irregular contribution timing.
type Progress struct {
	CurrentAmount      float64 `json:"current_amount"`
	TargetAmount       float64 `json:"target_amount"`
	ProgressPercentage float64 `json:"progress_percentage"` // clamped to [0,100]
	RemainingAmount    float64 `json:"remaining_amount"`
	IsCompleted        bool    `json:"is_completed"`

	Time  *TimeTracking `json:"time,omitempty"`
	Track TrackStatus   `json:"track"`

	DailyTarget   float64 `json:"daily_target,omitempty"`
	WeeklyTarget  float64 `json:"weekly_target,omitempty"`
	MonthlyTarget float64 `json:"monthly_target,omitempty"`

	ProjectedCompletion time.Time `json:"projected_completion"` // zero when no projection is possible
}

// CalculateProgress computes the current standing of a goal. A negative
// current amount is clamped to zero; a non-positive target is an error.
// targetDate and startDate are optional (zero time); startDate defaults to
// now when a target date is present.
func CalculateProgress(current, target float64, targetDate, startDate, now time.Time) (Progress, error) {
	if target <= 0 {
		return Progress{}, ErrInvalidTarget
	}
	if current < 0 {
		current = 0
	}

	remaining := target - current
	if remaining < 0 {
		remaining = 0
	}

	p := Progress{
		CurrentAmount:      current,
		TargetAmount:       target,
		ProgressPercentage: clamp(current/target*100, 0, 100),
		RemainingAmount:    remaining,
		IsCompleted:        current >= target,
	}

	if targetDate.IsZero() {
		return p, nil
	}

	start := startDate
	if start.IsZero() {
		start = now
	}

	daysRemaining := ceilDays(targetDate.Sub(now))
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	daysTotal := ceilDays(targetDate.Sub(start))
	if daysTotal < 1 {
		daysTotal = 1
	}
	daysPassed := daysTotal - daysRemaining
	if daysPassed < 0 {
		daysPassed = 0
	}

	p.Time = &TimeTracking{
		TargetDate:             targetDate,
		DaysRemaining:          daysRemaining,
		DaysTotal:              daysTotal,
		TimeProgressPercentage: clamp(float64(daysPassed)/float64(daysTotal)*100, 0, 100),
	}

	if !p.IsCompleted && daysRemaining > 0 {
		if p.ProgressPercentage >= p.Time.TimeProgressPercentage {
			p.Track = TrackOn
		} else {
			p.Track = TrackBehind
		}
	}

	if remaining > 0 && daysRemaining > 0 {
		p.DailyTarget = remaining / float64(daysRemaining)
		p.WeeklyTarget = p.DailyTarget * 7
		p.MonthlyTarget = p.DailyTarget * 30
	}

	if remaining > 0 && daysPassed > 0 && current > 0 {
		dailyRate := current / float64(daysPassed)
		daysToComplete := int(math.Ceil(remaining / dailyRate))
		p.ProjectedCompletion = now.AddDate(0, 0, daysToComplete)
	}

	return p, nil
}

// Projection is a linear extrapolation of a fixed monthly contribution out
// to the target date. Exactly one of Shortfall/Surplus is non-zero unless
// the projection lands exactly on target.
type Projection struct {
	MonthsRemaining     int     `json:"months_remaining"`
	MonthlyContribution float64 `json:"monthly_contribution"`
	ProjectedAmount     float64 `json:"projected_amount"`
	Shortfall           float64 `json:"shortfall"`
	Surplus             float64 `json:"surplus"`

	RecommendedMonthly float64 `json:"recommended_monthly"`
	RecommendedWeekly  float64 `json:"recommended_weekly"`
	RecommendedDaily   float64 `json:"recommended_daily"`
}

// CalculateProjection extrapolates current + contribution*months against the
// target. Months are counted with calendar arithmetic and floored at zero;
// with zero months remaining the current amount is the projection.
func CalculateProjection(current, target float64, targetDate time.Time, monthlyContribution float64, now time.Time) (Projection, error) {
	if target <= 0 {
		return Projection{}, ErrInvalidTarget
	}
	if current < 0 {
		current = 0
	}

	months := calendarMonths(now, targetDate)
	if months < 0 {
		months = 0
	}

	proj := Projection{
		MonthsRemaining:     months,
		MonthlyContribution: monthlyContribution,
	}

	if months == 0 {
		proj.ProjectedAmount = current
		if shortfall := target - current; shortfall > 0 {
			proj.Shortfall = shortfall
		}
		return proj, nil
	}

	proj.ProjectedAmount = current + monthlyContribution*float64(months)
	if diff := proj.ProjectedAmount - target; diff > 0 {
		proj.Surplus = diff
	} else if diff < 0 {
		proj.Shortfall = -diff
	}

	if need := target - current; need > 0 {
		proj.RecommendedMonthly = need / float64(months)
		proj.RecommendedWeekly = proj.RecommendedMonthly * 12 / 52
		proj.RecommendedDaily = proj.RecommendedMonthly * 12 / 365
	}

	return proj, nil
}

// WhatIfScenario is the outcome of one candidate monthly contribution.
// Reachable is false when the contribution can never complete the goal
// (contribution <= 0 with an amount still remaining); in that case
// ProjectedCompletion is zero and Shortfall holds the full remainder.
type WhatIfScenario struct {
	MonthlyContribution float64   `json:"monthly_contribution"`
	Reachable           bool      `json:"reachable"`
	MonthsToComplete    int       `json:"months_to_complete"`
	ProjectedCompletion time.Time `json:"projected_completion"`
	WillMeetTarget      bool      `json:"will_meet_target"`
	Shortfall           float64   `json:"shortfall"`
}

// CalculateWhatIfScenarios maps each candidate monthly contribution to an
// independent completion estimate and compares it with the actual target
// date.
func CalculateWhatIfScenarios(current, target float64, targetDate time.Time, contributions []float64, now time.Time) ([]WhatIfScenario, error) {
	if target <= 0 {
		return nil, ErrInvalidTarget
	}
	if current < 0 {
		current = 0
	}

	remaining := target - current
	if remaining < 0 {
		remaining = 0
	}
	monthsToTarget := calendarMonths(now, targetDate)

	scenarios := make([]WhatIfScenario, 0, len(contributions))
	for _, contribution := range contributions {
		s := WhatIfScenario{MonthlyContribution: contribution}

		switch {
		case remaining == 0:
			s.Reachable = true
			s.ProjectedCompletion = now
			s.WillMeetTarget = true
		case contribution <= 0:
			s.Shortfall = remaining
		default:
			s.Reachable = true
			s.MonthsToComplete = int(math.Ceil(remaining / contribution))
			s.ProjectedCompletion = now.AddDate(0, s.MonthsToComplete, 0)
			s.WillMeetTarget = !targetDate.IsZero() && s.MonthsToComplete <= monthsToTarget
		}

		scenarios = append(scenarios, s)
	}

	return scenarios, nil
}

// ContributionPlan is the constant contribution required to reach the target
// by its date, expressed at three cadences.
type ContributionPlan struct {
	Months  int     `json:"months"`
	Monthly float64 `json:"monthly"`
	Weekly  float64 `json:"weekly"`
	Daily   float64 `json:"daily"`
}

// CalculateOptimalContribution computes the required constant contribution
// using a calendar-month count with a minimum of one month.
func CalculateOptimalContribution(current, target float64, targetDate time.Time, now time.Time) (ContributionPlan, error) {
	if target <= 0 {
		return ContributionPlan{}, ErrInvalidTarget
	}
	if current < 0 {
		current = 0
	}

	months := calendarMonths(now, targetDate)
	if months < 1 {
		months = 1
	}

	plan := ContributionPlan{Months: months}
	if remaining := target - current; remaining > 0 {
		plan.Monthly = remaining / float64(months)
		plan.Weekly = plan.Monthly * 12 / 52
		plan.Daily = plan.Monthly * 12 / 365
	}
	return plan, nil
}

// calendarMonths counts whole calendar months from a to b:
// (year delta)*12 + (month delta). Days of month are ignored.
func calendarMonths(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
