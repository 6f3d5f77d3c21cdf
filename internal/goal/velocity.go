package goal

import "time"

const (
	VelocityAccelerating VelocityTrend = "accelerating"
	VelocityDecelerating VelocityTrend = "decelerating"
	VelocitySteady       VelocityTrend = "steady"
)

type VelocityTrend string

// VelocityPoint is one observation of a goal's cumulative saved amount.
type VelocityPoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// Velocity describes how quickly a goal is filling up. Confidence grows
// linearly with the number of observations and caps at 100 (12 points is
// full confidence).
type Velocity struct {
	DailyRate   float64       `json:"daily_rate"`
	WeeklyRate  float64       `json:"weekly_rate"`
	MonthlyRate float64       `json:"monthly_rate"`
	Trend       VelocityTrend `json:"trend"`
	Confidence  float64       `json:"confidence"`
}

// CalculateVelocity derives the average daily saving rate from a
// chronologically sorted history of (date, cumulative amount) points.
// Fewer than two points yields a zeroed, steady result. Trend
// classification needs at least four points and compares first-half against
// second-half average velocity with a 10% hysteresis band.
func CalculateVelocity(history []VelocityPoint) Velocity {
	v := Velocity{Trend: VelocitySteady}
	if len(history) < 2 {
		return v
	}

	first := history[0]
	last := history[len(history)-1]

	days := elapsedDays(first.Date, last.Date)
	v.DailyRate = (last.Amount - first.Amount) / days
	v.WeeklyRate = v.DailyRate * 7
	v.MonthlyRate = v.DailyRate * 30
	v.Confidence = clamp(float64(len(history))/12*100, 0, 100)

	if len(history) >= 4 {
		mid := len(history) / 2
		firstRate := spanRate(history[:mid])
		secondRate := spanRate(history[mid:])
		switch {
		case secondRate > firstRate*1.1:
			v.Trend = VelocityAccelerating
		case secondRate < firstRate*0.9:
			v.Trend = VelocityDecelerating
		}
	}

	return v
}

func spanRate(points []VelocityPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	first := points[0]
	last := points[len(points)-1]
	return (last.Amount - first.Amount) / elapsedDays(first.Date, last.Date)
}

// elapsedDays never returns less than one day so rate denominators are safe.
func elapsedDays(from, to time.Time) float64 {
	days := to.Sub(from).Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}
