package types

import (
	"fmt"
	"math"
	"time"
)

// BalanceTolerance is the floating-point slack allowed when verifying the
// per-slot power balance and SOC bounds.
const BalanceTolerance = 1e-6

// Schedule is the optimizer output: per-slot battery and grid power plus the
// resulting state-of-charge trajectory and total cost. It is fully replaced,
// never patched, whenever the constraint set or forecast changes.
type Schedule struct {
	// BatteryKW is signed: positive charges the battery, negative discharges.
	BatteryKW []float64 `json:"batteryKW"`
	// GridKW is signed: positive imports from the grid, negative exports.
	GridKW []float64 `json:"gridKW"`
	// SOC has 97 points: the state of charge (fraction of capacity) at the
	// boundary of every slot, SOC[0] being the initial state.
	SOC []float64 `json:"soc"`
	// TotalCost is the grid cost over the day; negative means net earnings.
	TotalCost float64 `json:"totalCost"`

	SolvedAt time.Time `json:"solvedAt"`
}

// Verify checks the schedule invariants against the forecast, battery spec
// and the per-slot user loads: power balance at every slot and the SOC
// trajectory staying within bounds.
func (s Schedule) Verify(f Forecast, spec BatterySpec, userLoadsKW []float64) error {
	if len(s.BatteryKW) != SlotsPerDay || len(s.GridKW) != SlotsPerDay || len(s.SOC) != SlotsPerDay+1 {
		return fmt.Errorf("%w: schedule arrays have wrong length", ErrInvalidInput)
	}
	for t := 0; t < SlotsPerDay; t++ {
		load := f.DemandKW[t]
		if userLoadsKW != nil {
			load += userLoadsKW[t]
		}
		// solar + grid import + discharge = load + grid export + charge,
		// folded into signed terms: solar + grid = load + battery
		residual := f.SolarKW[t] + s.GridKW[t] - load - s.BatteryKW[t]
		if math.Abs(residual) > BalanceTolerance {
			return fmt.Errorf("power balance violated at slot %d: residual %.9f kW", t, residual)
		}
	}
	for i, soc := range s.SOC {
		if soc < spec.MinSOC-BalanceTolerance || soc > spec.MaxSOC+BalanceTolerance {
			if i == 0 {
				// the initial state is given, not chosen
				continue
			}
			return fmt.Errorf("SOC %.6f outside [%v,%v] at slot boundary %d", soc, spec.MinSOC, spec.MaxSOC, i)
		}
	}
	return nil
}

// UserLoadProfile accumulates the per-slot forced load (kW) of the active,
// resolved constraints.
func UserLoadProfile(constraints []UsageConstraint) []float64 {
	loads := make([]float64, SlotsPerDay)
	for _, c := range constraints {
		if c.Superseded {
			continue
		}
		start, end := c.Window()
		for t := start; t < end && t < SlotsPerDay; t++ {
			loads[t] += c.RatedKW
		}
	}
	return loads
}
