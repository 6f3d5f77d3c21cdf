// Package forecast combines historical contribution data with the goal
// progress primitives to produce three-tier (conservative / realistic /
// optimistic) savings forecasts plus qualitative recommendation text.
package forecast

import (
	"math"
	"sort"
	"time"

	"envelopes/internal/core"
)

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

type Trend string

// Analysis aggregates a goal's contribution history by calendar month.
//
// ConsistencyScore is the inverse of the coefficient of variation of monthly
// totals scaled to [0,100]: 100 means identical contributions every month,
// 0 means the spread equals or exceeds the mean (or there is no data).
// SeasonalPattern holds per-calendar-month averages (index 0 = January)
// across all observed years.
type Analysis struct {
	AverageMonthly     float64     `json:"average_monthly"`
	HighestMonthly     float64     `json:"highest_monthly"`
	LowestMonthly      float64     `json:"lowest_monthly"`
	ConsistencyScore   float64     `json:"consistency_score"`
	Trend              Trend       `json:"trend"`
	SeasonalPattern    [12]float64 `json:"seasonal_pattern"`
	TotalContributions float64     `json:"total_contributions"`
	MonthsWithData     int         `json:"months_with_data"`
}

// AnalyzeHistory aggregates contribution transactions (income, allocation,
// transfer with positive amounts) grouped by (year, month). goalStart is
// optional; when set, earlier transactions are ignored. An empty history
// yields an all-zero result with a stable trend.
func AnalyzeHistory(txs []core.Transaction, goalStart time.Time) Analysis {
	a := Analysis{Trend: TrendStable}

	monthly := make(map[int]float64) // key: year*12 + month index
	for _, tx := range txs {
		if !tx.IsContribution() {
			continue
		}
		if !goalStart.IsZero() && tx.Date.Before(goalStart) {
			continue
		}
		key := tx.Date.Year()*12 + int(tx.Date.Time.Month()) - 1
		monthly[key] += tx.Amount.Amount()
	}

	if len(monthly) == 0 {
		return a
	}

	keys := make([]int, 0, len(monthly))
	for k := range monthly {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	a.MonthsWithData = len(keys)
	a.LowestMonthly = math.Inf(1)
	seasonalCounts := [12]int{}
	for _, k := range keys {
		total := monthly[k]
		a.TotalContributions += total
		if total > a.HighestMonthly {
			a.HighestMonthly = total
		}
		if total < a.LowestMonthly {
			a.LowestMonthly = total
		}
		monthIdx := k % 12
		a.SeasonalPattern[monthIdx] += total
		seasonalCounts[monthIdx]++
	}
	a.AverageMonthly = a.TotalContributions / float64(len(keys))

	for i := range a.SeasonalPattern {
		if seasonalCounts[i] > 0 {
			a.SeasonalPattern[i] /= float64(seasonalCounts[i])
		}
	}

	a.ConsistencyScore = consistencyScore(monthly, keys, a.AverageMonthly)

	if len(keys) >= 3 {
		half := len(keys) / 2
		firstAvg := averageOf(monthly, keys[:half])
		secondAvg := averageOf(monthly, keys[half:])
		switch {
		case secondAvg > firstAvg*1.1:
			a.Trend = TrendIncreasing
		case secondAvg < firstAvg*0.9:
			a.Trend = TrendDecreasing
		}
	}

	return a
}

// consistencyScore computes max(0, min(100, (1 - stddev/mean) * 100)).
// A zero mean is treated as a coefficient of variation of 1, scoring 0.
func consistencyScore(monthly map[int]float64, keys []int, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, k := range keys {
		d := monthly[k] - mean
		variance += d * d
	}
	variance /= float64(len(keys))
	cv := math.Sqrt(variance) / mean
	score := (1 - cv) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func averageOf(monthly map[int]float64, keys []int) float64 {
	if len(keys) == 0 {
		return 0
	}
	sum := 0.0
	for _, k := range keys {
		sum += monthly[k]
	}
	return sum / float64(len(keys))
}
