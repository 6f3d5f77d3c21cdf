// Package notify detects state transitions between successive goal progress
// snapshots and emits notification records. It never displays anything; the
// consumer decides how (and whether) each notification reaches the user.
//
// Two kinds of rules coexist and are kept as separate evaluators:
// edge-triggered rules (completion, milestones) fire only on the transition
// into a state, while level-triggered rules (behind schedule, deadline
// approaching) re-fire on every evaluation and leave de-duplication to the
// caller.
package notify

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"envelopes/internal/goal"
)

const (
	TypeMilestone     Type = "milestone"
	TypeAchievement   Type = "achievement"
	TypeWarning       Type = "warning"
	TypeEncouragement Type = "encouragement"
)

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type (
	Type     string
	Severity string
)

// Notification is an emitted record. Severity and DisplayDuration are hints
// for the presentation layer, returned as data rather than acted upon.
// MilestonePercentage is set only for milestone notifications.
type Notification struct {
	ID                  string        `json:"id"`
	Type                Type          `json:"type"`
	Title               string        `json:"title"`
	Message             string        `json:"message"`
	Icon                string        `json:"icon"`
	Color               string        `json:"color"`
	Timestamp           time.Time     `json:"timestamp"`
	GoalID              int64         `json:"goal_id"`
	MilestonePercentage int           `json:"milestone_percentage,omitempty"`
	Severity            Severity      `json:"severity"`
	DisplayDuration     time.Duration `json:"display_duration"`
}

// severityFor routes each notification type to exactly one presentation
// severity.
func severityFor(t Type) Severity {
	switch t {
	case TypeAchievement:
		return SeveritySuccess
	case TypeMilestone:
		return SeverityInfo
	case TypeWarning:
		return SeverityWarning
	case TypeEncouragement:
		return SeverityInfo
	default:
		return SeverityError
	}
}

func durationFor(t Type) time.Duration {
	switch t {
	case TypeAchievement:
		return 8 * time.Second
	case TypeWarning:
		return 10 * time.Second
	case TypeMilestone:
		return 6 * time.Second
	default:
		return 4 * time.Second
	}
}

// Rule evaluates one notification category against a pair of snapshots.
// prev is nil when no earlier snapshot exists.
type Rule interface {
	Evaluate(goalName string, prev *goal.Progress, curr goal.Progress) []Notification
}

// CompletionRule fires an achievement exactly once, on the transition into
// the completed state.
type CompletionRule struct{}

func (CompletionRule) Evaluate(goalName string, prev *goal.Progress, curr goal.Progress) []Notification {
	if !curr.IsCompleted {
		return nil
	}
	if prev != nil && prev.IsCompleted {
		return nil
	}
	return []Notification{{
		Type:    TypeAchievement,
		Title:   "Goal achieved!",
		Message: goalName + " is fully funded. Congratulations!",
		Icon:    "🎉",
		Color:   "gold",
	}}
}

// MilestoneRule fires when progress crosses its threshold from below (or
// with no previous data). Thresholds are the fixed 25/50/75 markers; the
// 100% case belongs to CompletionRule.
type MilestoneRule struct {
	Threshold float64
}

func (r MilestoneRule) Evaluate(goalName string, prev *goal.Progress, curr goal.Progress) []Notification {
	if curr.ProgressPercentage < r.Threshold {
		return nil
	}
	if prev != nil && prev.ProgressPercentage >= r.Threshold {
		return nil
	}
	return []Notification{{
		Type:                TypeMilestone,
		Title:               "Milestone reached",
		Message:             goalName + " passed " + strconv.Itoa(int(r.Threshold)) + "% of its target.",
		Icon:                "🏁",
		Color:               "blue",
		MilestonePercentage: int(r.Threshold),
	}}
}

// BehindScheduleRule warns when a goal with most of its timeline spent lags
// its time progress by more than 20 points. Level-triggered.
type BehindScheduleRule struct{}

func (BehindScheduleRule) Evaluate(goalName string, _ *goal.Progress, curr goal.Progress) []Notification {
	if curr.Track != goal.TrackBehind || curr.Time == nil {
		return nil
	}
	if curr.Time.TimeProgressPercentage <= 50 {
		return nil
	}
	if curr.ProgressPercentage >= curr.Time.TimeProgressPercentage-20 {
		return nil
	}
	return []Notification{{
		Type:    TypeWarning,
		Title:   "Behind schedule",
		Message: goalName + " is falling behind its timeline. Consider increasing contributions.",
		Icon:    "⚠️",
		Color:   "amber",
	}}
}

// DeadlineRule warns when fewer than 30 days remain and progress is under
// 80%. Level-triggered.
type DeadlineRule struct{}

func (DeadlineRule) Evaluate(goalName string, _ *goal.Progress, curr goal.Progress) []Notification {
	if curr.IsCompleted || curr.Time == nil {
		return nil
	}
	if curr.Time.DaysRemaining > 30 || curr.ProgressPercentage >= 80 {
		return nil
	}
	return []Notification{{
		Type:    TypeWarning,
		Title:   "Deadline approaching",
		Message: goalName + " has " + strconv.Itoa(curr.Time.DaysRemaining) + " days left and is under 80% funded.",
		Icon:    "⏰",
		Color:   "amber",
	}}
}

// EncouragementRule occasionally cheers on a goal that is on track with
// progress strictly between 10% and 90%. The random gate keeps the expected
// trigger rate at Chance per evaluation; inject a deterministic source for
// tests.
type EncouragementRule struct {
	Chance float64        // expected trigger rate, 0.10 in production
	Rand   func() float64 // uniform [0,1); defaults to math/rand/v2
}

func (r EncouragementRule) Evaluate(goalName string, _ *goal.Progress, curr goal.Progress) []Notification {
	if curr.Track != goal.TrackOn {
		return nil
	}
	if curr.ProgressPercentage <= 10 || curr.ProgressPercentage >= 90 {
		return nil
	}
	gate := r.Rand
	if gate == nil {
		gate = rand.Float64
	}
	if gate() >= r.Chance {
		return nil
	}
	return []Notification{{
		Type:    TypeEncouragement,
		Title:   "Keep it up",
		Message: goalName + " is on track. Nice and steady!",
		Icon:    "💪",
		Color:   "green",
	}}
}

// Evaluator composes the standard rule set and stamps identity, timing, and
// presentation hints onto whatever the rules emit.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator builds the standard rule set. randSource may be nil for
// production randomness.
func NewEvaluator(randSource func() float64) *Evaluator {
	return &Evaluator{
		rules: []Rule{
			CompletionRule{},
			MilestoneRule{Threshold: 25},
			MilestoneRule{Threshold: 50},
			MilestoneRule{Threshold: 75},
			BehindScheduleRule{},
			DeadlineRule{},
			EncouragementRule{Chance: 0.10, Rand: randSource},
		},
	}
}

// Evaluate runs every rule against the snapshot pair and returns the
// finalized notifications.
func (e *Evaluator) Evaluate(goalID int64, goalName string, prev *goal.Progress, curr goal.Progress, now time.Time) []Notification {
	var out []Notification
	for _, rule := range e.rules {
		for _, n := range rule.Evaluate(goalName, prev, curr) {
			n.ID = uuid.NewString()
			n.GoalID = goalID
			n.Timestamp = now
			n.Severity = severityFor(n.Type)
			n.DisplayDuration = durationFor(n.Type)
			out = append(out, n)
		}
	}
	return out
}
