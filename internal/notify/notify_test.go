package notify

import (
	"testing"
	"time"

	"envelopes/internal/goal"
)

var testNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func progressAt(pct float64) goal.Progress {
	return goal.Progress{
		ProgressPercentage: pct,
		IsCompleted:        pct >= 100,
	}
}

func TestCompletionRule(t *testing.T) {
	tests := []struct {
		name string
		prev *goal.Progress
		curr goal.Progress
		want int
	}{
		{name: "fires on transition into completed", prev: ptr(progressAt(95)), curr: progressAt(100), want: 1},
		{name: "fires with no previous snapshot", prev: nil, curr: progressAt(100), want: 1},
		{name: "silent while already completed", prev: ptr(progressAt(100)), curr: progressAt(100), want: 0},
		{name: "silent while incomplete", prev: ptr(progressAt(50)), curr: progressAt(60), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompletionRule{}.Evaluate("Vacation", tt.prev, tt.curr)
			if len(got) != tt.want {
				t.Fatalf("got %d notifications, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0].Type != TypeAchievement {
				t.Errorf("Type = %v, want achievement", got[0].Type)
			}
		})
	}
}

func TestMilestoneRule(t *testing.T) {
	tests := []struct {
		name string
		prev *goal.Progress
		curr goal.Progress
		want int
	}{
		{name: "fires crossing from below", prev: ptr(progressAt(24)), curr: progressAt(26), want: 1},
		{name: "fires with no previous snapshot", prev: nil, curr: progressAt(30), want: 1},
		{name: "silent when already past", prev: ptr(progressAt(30)), curr: progressAt(40), want: 0},
		{name: "silent below threshold", prev: ptr(progressAt(10)), curr: progressAt(20), want: 0},
		{name: "fires landing exactly on threshold", prev: ptr(progressAt(24.9)), curr: progressAt(25), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MilestoneRule{Threshold: 25}.Evaluate("Vacation", tt.prev, tt.curr)
			if len(got) != tt.want {
				t.Fatalf("got %d notifications, want %d", len(got), tt.want)
			}
			if tt.want == 1 {
				if got[0].Type != TypeMilestone {
					t.Errorf("Type = %v, want milestone", got[0].Type)
				}
				if got[0].MilestonePercentage != 25 {
					t.Errorf("MilestonePercentage = %d, want 25", got[0].MilestonePercentage)
				}
			}
		})
	}
}

func TestBehindScheduleRule(t *testing.T) {
	behind := func(progressPct, timePct float64) goal.Progress {
		return goal.Progress{
			ProgressPercentage: progressPct,
			Track:              goal.TrackBehind,
			Time:               &goal.TimeTracking{TimeProgressPercentage: timePct},
		}
	}

	tests := []struct {
		name string
		curr goal.Progress
		want int
	}{
		{name: "fires when lagging by more than 20 points late on", curr: behind(30, 60), want: 1},
		{name: "silent in the first half of the timeline", curr: behind(10, 50), want: 0},
		{name: "silent when the gap is small", curr: behind(45, 60), want: 0},
		{name: "silent when on track", curr: goal.Progress{ProgressPercentage: 30, Track: goal.TrackOn, Time: &goal.TimeTracking{TimeProgressPercentage: 60}}, want: 0},
		{name: "silent without a timeline", curr: goal.Progress{ProgressPercentage: 30, Track: goal.TrackBehind}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BehindScheduleRule{}.Evaluate("Vacation", nil, tt.curr)
			if len(got) != tt.want {
				t.Fatalf("got %d notifications, want %d", len(got), tt.want)
			}
		})
	}

	t.Run("re-fires on every evaluation", func(t *testing.T) {
		curr := behind(30, 60)
		prev := curr
		if got := (BehindScheduleRule{}).Evaluate("Vacation", &prev, curr); len(got) != 1 {
			t.Errorf("level-triggered rule should re-fire, got %d", len(got))
		}
	})
}

func TestDeadlineRule(t *testing.T) {
	withDays := func(pct float64, days int) goal.Progress {
		return goal.Progress{
			ProgressPercentage: pct,
			IsCompleted:        pct >= 100,
			Time:               &goal.TimeTracking{DaysRemaining: days},
		}
	}

	tests := []struct {
		name string
		curr goal.Progress
		want int
	}{
		{name: "fires under 30 days and under 80 percent", curr: withDays(50, 14), want: 1},
		{name: "silent with more than 30 days", curr: withDays(50, 45), want: 0},
		{name: "silent at 80 percent or more", curr: withDays(85, 14), want: 0},
		{name: "silent when completed", curr: withDays(100, 14), want: 0},
		{name: "silent without a timeline", curr: progressAt(50), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeadlineRule{}.Evaluate("Vacation", nil, tt.curr)
			if len(got) != tt.want {
				t.Fatalf("got %d notifications, want %d", len(got), tt.want)
			}
			if tt.want == 1 && got[0].Type != TypeWarning {
				t.Errorf("Type = %v, want warning", got[0].Type)
			}
		})
	}
}

func TestEncouragementRule(t *testing.T) {
	onTrack := func(pct float64) goal.Progress {
		return goal.Progress{ProgressPercentage: pct, Track: goal.TrackOn}
	}
	always := func() float64 { return 0.0 }
	never := func() float64 { return 0.99 }

	tests := []struct {
		name string
		rand func() float64
		curr goal.Progress
		want int
	}{
		{name: "fires when the gate opens", rand: always, curr: onTrack(50), want: 1},
		{name: "silent when the gate stays closed", rand: never, curr: onTrack(50), want: 0},
		{name: "silent at or below 10 percent", rand: always, curr: onTrack(10), want: 0},
		{name: "silent at or above 90 percent", rand: always, curr: onTrack(90), want: 0},
		{name: "silent when behind", rand: always, curr: goal.Progress{ProgressPercentage: 50, Track: goal.TrackBehind}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := EncouragementRule{Chance: 0.10, Rand: tt.rand}
			got := rule.Evaluate("Vacation", nil, tt.curr)
			if len(got) != tt.want {
				t.Fatalf("got %d notifications, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEvaluator(t *testing.T) {
	neverEncourage := func() float64 { return 0.99 }

	t.Run("crossing several thresholds fires each milestone once", func(t *testing.T) {
		e := NewEvaluator(neverEncourage)
		prev := progressAt(20)
		got := e.Evaluate(7, "Vacation", &prev, progressAt(80), testNow)

		if len(got) != 3 {
			t.Fatalf("got %d notifications, want 3 milestones: %+v", len(got), got)
		}
		wantPct := []int{25, 50, 75}
		for i, n := range got {
			if n.Type != TypeMilestone || n.MilestonePercentage != wantPct[i] {
				t.Errorf("notification %d = %v/%d, want milestone %d", i, n.Type, n.MilestonePercentage, wantPct[i])
			}
		}
	})

	t.Run("stamps identity and presentation hints", func(t *testing.T) {
		e := NewEvaluator(neverEncourage)
		prev := progressAt(95)
		got := e.Evaluate(7, "Vacation", &prev, progressAt(100), testNow)

		if len(got) != 1 {
			t.Fatalf("got %d notifications, want 1", len(got))
		}
		n := got[0]
		if n.ID == "" {
			t.Error("ID not stamped")
		}
		if n.GoalID != 7 {
			t.Errorf("GoalID = %d, want 7", n.GoalID)
		}
		if !n.Timestamp.Equal(testNow) {
			t.Errorf("Timestamp = %v, want %v", n.Timestamp, testNow)
		}
		if n.Severity != SeveritySuccess {
			t.Errorf("Severity = %v, want success", n.Severity)
		}
		if n.DisplayDuration != 8*time.Second {
			t.Errorf("DisplayDuration = %v, want 8s", n.DisplayDuration)
		}
	})

	t.Run("unique ids across notifications", func(t *testing.T) {
		e := NewEvaluator(neverEncourage)
		got := e.Evaluate(7, "Vacation", nil, progressAt(80), testNow)
		seen := make(map[string]bool)
		for _, n := range got {
			if seen[n.ID] {
				t.Errorf("duplicate ID %q", n.ID)
			}
			seen[n.ID] = true
		}
	})

	t.Run("steady state emits nothing", func(t *testing.T) {
		e := NewEvaluator(neverEncourage)
		prev := progressAt(60)
		if got := e.Evaluate(7, "Vacation", &prev, progressAt(60), testNow); len(got) != 0 {
			t.Errorf("got %d notifications, want none: %+v", len(got), got)
		}
	})
}

func TestSeverityAndDuration(t *testing.T) {
	tests := []struct {
		typ          Type
		wantSeverity Severity
		wantDuration time.Duration
	}{
		{TypeAchievement, SeveritySuccess, 8 * time.Second},
		{TypeMilestone, SeverityInfo, 6 * time.Second},
		{TypeWarning, SeverityWarning, 10 * time.Second},
		{TypeEncouragement, SeverityInfo, 4 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			if got := severityFor(tt.typ); got != tt.wantSeverity {
				t.Errorf("severityFor = %v, want %v", got, tt.wantSeverity)
			}
			if got := durationFor(tt.typ); got != tt.wantDuration {
				t.Errorf("durationFor = %v, want %v", got, tt.wantDuration)
			}
		})
	}
}

func ptr(p goal.Progress) *goal.Progress { return &p }
