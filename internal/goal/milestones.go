package goal

// MilestoneThresholds are the fixed progress percentages a goal celebrates.
var MilestoneThresholds = []float64{25, 50, 75, 100}

// Milestone marks one of the fixed progress thresholds of a goal.
type Milestone struct {
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
	Reached    bool    `json:"reached"`
}

// Milestones derives the fixed 25/50/75/100% markers from a progress
// snapshot.
func Milestones(p Progress) []Milestone {
	out := make([]Milestone, 0, len(MilestoneThresholds))
	for _, threshold := range MilestoneThresholds {
		out = append(out, Milestone{
			Percentage: threshold,
			Amount:     p.TargetAmount * threshold / 100,
			Reached:    p.ProgressPercentage >= threshold,
		})
	}
	return out
}

// StatusColor maps a progress snapshot to a presentation color name.
func StatusColor(p Progress) string {
	switch {
	case p.IsCompleted:
		return "green"
	case p.Track == TrackBehind:
		return "red"
	case p.Track == TrackOn:
		return "blue"
	default:
		return "gray"
	}
}

// StatusText maps a progress snapshot to a short status label.
func StatusText(p Progress) string {
	switch {
	case p.IsCompleted:
		return "Completed"
	case p.Track == TrackBehind:
		return "Behind schedule"
	case p.Track == TrackOn:
		return "On track"
	default:
		return "In progress"
	}
}
