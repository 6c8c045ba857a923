// Package attribution derives, per slot and in aggregate, which cost drivers
// explain each scheduling decision. It works from cheap deterministic rules
// over the solved schedule and the forecast; the LP is never re-solved here.
package attribution

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/homeflux/homeflux/pkg/types"
)

// Thresholds control the quantile cutoffs for the driver rules.
type Thresholds struct {
	// LowPriceQuantile marks prices at or below this quantile as "low".
	LowPriceQuantile float64
	// HighPriceQuantile marks prices at or above this quantile as "high".
	HighPriceQuantile float64
	// DemandSpikeQuantile marks demand at or above this quantile as a spike.
	DemandSpikeQuantile float64
	// ActivityTolerance is the kW above which a power flow counts as active.
	ActivityTolerance float64
}

// DefaultThresholds uses the bottom and top thirds of the day's price
// distribution and the top decile of demand.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowPriceQuantile:    1.0 / 3.0,
		HighPriceQuantile:   2.0 / 3.0,
		DemandSpikeQuantile: 0.9,
		ActivityTolerance:   1e-6,
	}
}

// Attribute tags every slot of the schedule with its dominant cost drivers.
// A slot may carry several tags; all applicable drivers are reported rather
// than one being picked arbitrarily.
func Attribute(sched types.Schedule, f types.Forecast, constraints []types.UsageConstraint) []types.AttributionRecord {
	return AttributeWith(sched, f, constraints, DefaultThresholds())
}

// AttributeWith is Attribute with explicit thresholds.
func AttributeWith(sched types.Schedule, f types.Forecast, constraints []types.UsageConstraint, th Thresholds) []types.AttributionRecord {
	lowPrice := quantile(f.PricePerKWH, th.LowPriceQuantile)
	highPrice := quantile(f.PricePerKWH, th.HighPriceQuantile)
	minPrice, maxPrice := bounds(f.PricePerKWH)
	spikeDemand := quantile(f.DemandKW, th.DemandSpikeQuantile)
	minDemand, _ := bounds(f.DemandKW)
	tol := th.ActivityTolerance
	userLoads := types.UserLoadProfile(constraints)

	records := make([]types.AttributionRecord, 0, types.SlotsPerDay)
	for t := 0; t < types.SlotsPerDay; t++ {
		charging := sched.BatteryKW[t] > tol
		discharging := sched.BatteryKW[t] < -tol
		importing := sched.GridKW[t] > tol
		exporting := sched.GridKW[t] < -tol

		// Import beyond what the slot's own loads need; merely buying the
		// household's base demand is not a price-driven decision.
		need := f.DemandKW[t] + userLoads[t] - f.SolarKW[t]
		surplusImport := importing && sched.GridKW[t] > need+tol

		// The min/max guards keep the rules meaningful on degenerate price
		// distributions: a flat day has neither a low nor a high price, and on
		// a two-level day each level falls on exactly one side.
		var tags []types.DriverTag
		if f.PricePerKWH[t] <= lowPrice && f.PricePerKWH[t] < maxPrice && (charging || surplusImport) {
			tags = append(tags, types.DriverTag{Kind: types.DriverLowPrice, Magnitude: f.PricePerKWH[t]})
		}
		if f.PricePerKWH[t] >= highPrice && f.PricePerKWH[t] > minPrice && (discharging || exporting) {
			tags = append(tags, types.DriverTag{Kind: types.DriverHighPrice, Magnitude: f.PricePerKWH[t]})
		}
		if f.SolarKW[t] > f.DemandKW[t]+tol && (exporting || charging) {
			tags = append(tags, types.DriverTag{Kind: types.DriverSolarSurplus, Magnitude: f.SolarKW[t] - f.DemandKW[t]})
		}
		if f.DemandKW[t] >= spikeDemand && f.DemandKW[t] > minDemand && (discharging || importing) {
			tags = append(tags, types.DriverTag{Kind: types.DriverDemandSpike, Magnitude: f.DemandKW[t]})
		}
		for _, c := range constraints {
			if c.Superseded || !c.Covers(t) {
				continue
			}
			tags = append(tags, types.DriverTag{
				Kind:         types.DriverUserConstraint,
				ConstraintID: c.ID,
				DeviceID:     c.DeviceID,
				Magnitude:    c.RatedKW,
			})
		}

		records = append(records, types.AttributionRecord{
			StartSlot:    t,
			EndSlot:      t + 1,
			Tags:         tags,
			AvgBatteryKW: sched.BatteryKW[t],
			AvgGridKW:    sched.GridKW[t],
			AvgPrice:     f.PricePerKWH[t],
		})
	}
	return records
}

// Merge collapses consecutive per-slot records carrying the same tag set into
// interval records ("charged from 2-4pm"), averaging the decision summary
// over the merged slots.
func Merge(records []types.AttributionRecord) []types.AttributionRecord {
	var merged []types.AttributionRecord
	for _, r := range records {
		if n := len(merged); n > 0 && merged[n-1].EndSlot == r.StartSlot && sameTags(merged[n-1].Tags, r.Tags) {
			prev := &merged[n-1]
			oldSpan := float64(prev.EndSlot - prev.StartSlot)
			newSpan := oldSpan + float64(r.EndSlot-r.StartSlot)
			prev.AvgBatteryKW = (prev.AvgBatteryKW*oldSpan + r.AvgBatteryKW) / newSpan
			prev.AvgGridKW = (prev.AvgGridKW*oldSpan + r.AvgGridKW) / newSpan
			prev.AvgPrice = (prev.AvgPrice*oldSpan + r.AvgPrice) / newSpan
			prev.EndSlot = r.EndSlot
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// sameTags compares tag sets by kind and constraint identity, ignoring
// magnitudes, which vary slot to slot within one interval.
func sameTags(a, b []types.DriverTag) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].ConstraintID != b[i].ConstraintID {
			return false
		}
	}
	return true
}

func quantile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

func bounds(values []float64) (min, max float64) {
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
