// Package optimizer computes the cost-minimizing battery/grid dispatch for
// one day as a linear program. Buy and sell price are identical and the grid
// is unbounded, so the day's cost separates into two independent parts: the
// forced loads, which always cost their slot price, and the battery's
// arbitrage schedule, which does not depend on the loads at all. Solve
// therefore places flexible loads by direct price comparison and solves a
// single battery LP per day; a tiny cycling penalty breaks ties and keeps
// simultaneous charge/discharge out of optimal solutions.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/homeflux/homeflux/pkg/log"
	"github.com/homeflux/homeflux/pkg/types"
)

const (
	// cyclePenalty is added per kW of battery activity so that of two
	// cost-equal solutions the one that moves less energy wins. It is orders
	// of magnitude below any realistic price.
	cyclePenalty = 1e-6

	// costTolerance decides when one candidate placement is strictly cheaper
	// than another; within tolerance the earlier start wins.
	costTolerance = 1e-9

	simplexTol = 1e-10
)

// Variable layout inside the battery LP, in standard form: the two
// structural blocks (charge and discharge per slot, in kW) followed by one
// slack block per inequality family (power caps and stored-energy bounds in
// both directions). Everything is nonnegative by construction, which keeps
// the simplex basis at 4·96 rows.
const (
	offCharge    = 0
	offDischarge = types.SlotsPerDay
	offSlackC    = 2 * types.SlotsPerDay
	offSlackD    = 3 * types.SlotsPerDay
	offSlackHi   = 4 * types.SlotsPerDay
	offSlackLo   = 5 * types.SlotsPerDay

	numRows = 4 * types.SlotsPerDay
	numCols = 6 * types.SlotsPerDay
)

// Solver solves daily dispatch problems. It is stateless and deterministic:
// identical inputs produce identical schedules.
type Solver struct{}

// New creates a Solver.
func New() *Solver {
	return &Solver{}
}

// Solve computes the cheapest schedule for the forecast, battery spec and
// active usage constraints. Flexible constraints ("run once within this
// window") are placed at the start offset with the lowest summed price,
// earlier starts winning ties; because load cost and battery arbitrage
// separate, that placement is exact and the battery LP runs once. The
// returned constraint slice mirrors the input with ResolvedStart filled in.
func (s *Solver) Solve(ctx context.Context, f types.Forecast, spec types.BatterySpec, constraints []types.UsageConstraint) (types.Schedule, []types.UsageConstraint, error) {
	if err := f.Validate(); err != nil {
		return types.Schedule{}, nil, err
	}
	if err := spec.Validate(); err != nil {
		return types.Schedule{}, nil, err
	}

	resolved := make([]types.UsageConstraint, len(constraints))
	copy(resolved, constraints)

	loads := make([]float64, types.SlotsPerDay)
	var flexible []int
	for i, c := range resolved {
		if c.Superseded {
			continue
		}
		if err := c.Validate(); err != nil {
			return types.Schedule{}, nil, err
		}
		if c.FixedStart || c.LatestEnd-c.EarliestStart == c.DurationSlots {
			// window fully determines the run
			resolved[i].ResolvedStart = c.EarliestStart
			addLoad(loads, resolved[i])
			continue
		}
		flexible = append(flexible, i)
	}

	// Place flexible constraints in arrival order. The grid serves any load
	// at its slot price regardless of what the battery does, so the cheapest
	// start is simply the window with the lowest price sum.
	for _, i := range flexible {
		start := cheapestStart(f, resolved[i])
		resolved[i].ResolvedStart = start
		addLoad(loads, resolved[i])
		log.Ctx(ctx).DebugContext(ctx, "placed flexible constraint",
			slog.String("device", resolved[i].DeviceID),
			slog.Int("start", start),
			slog.String("window", types.SlotRangeClock(start, start+resolved[i].DurationSlots)),
		)
	}

	began := time.Now()
	sched, err := s.solveLP(f, spec, loads)
	if err != nil {
		return types.Schedule{}, nil, infeasibleError(err, resolved)
	}

	if verr := sched.Verify(f, spec, loads); verr != nil {
		return types.Schedule{}, nil, fmt.Errorf("solved schedule failed verification: %w", verr)
	}
	log.Ctx(ctx).DebugContext(ctx, "schedule solved",
		slog.Float64("totalCost", sched.TotalCost),
		slog.Int("constraints", len(resolved)),
		slog.Int("flexible", len(flexible)),
		slog.Duration("took", time.Since(began)),
	)
	return sched, resolved, nil
}

func addLoad(loads []float64, c types.UsageConstraint) {
	start, end := c.Window()
	for t := start; t < end && t < types.SlotsPerDay; t++ {
		loads[t] += c.RatedKW
	}
}

// infeasibleError maps LP failures onto the error taxonomy, naming the most
// recently added constraint as the likely cause when one exists.
func infeasibleError(err error, constraints []types.UsageConstraint) error {
	if !errors.Is(err, lp.ErrInfeasible) {
		return err
	}
	for i := len(constraints) - 1; i >= 0; i-- {
		if !constraints[i].Superseded {
			c := constraints[i]
			return fmt.Errorf("%w: likely caused by the latest statement about %s (%q); consider dropping it",
				types.ErrInfeasible, c.DeviceID, c.Utterance)
		}
	}
	return fmt.Errorf("%w: battery bounds cannot be satisfied", types.ErrInfeasible)
}

// solveLP solves the battery arbitrage LP and assembles the schedule for the
// given per-slot load profile. The loads only enter the assembly: the
// battery's feasible set and optimal profile are load-independent.
func (s *Solver) solveLP(f types.Forecast, spec types.BatterySpec, loadsKW []float64) (types.Schedule, error) {
	c, a, b := buildProblem(f, spec)

	_, x, err := lp.Simplex(c, a, b, simplexTol, nil)
	if err != nil {
		return types.Schedule{}, fmt.Errorf("dispatch LP failed: %w", err)
	}

	for i := 0; i < 2*types.SlotsPerDay; i++ {
		if x[i] < 1e-9 {
			x[i] = 0
		}
	}
	return assemble(f, spec, loadsKW, x), nil
}

// assemble turns the raw LP solution into a Schedule.
func assemble(f types.Forecast, spec types.BatterySpec, loadsKW []float64, x []float64) types.Schedule {
	etaC, etaD := splitEfficiency(spec.RoundTripEfficiency)

	sched := types.Schedule{
		BatteryKW: make([]float64, types.SlotsPerDay),
		GridKW:    make([]float64, types.SlotsPerDay),
		SOC:       make([]float64, types.SlotsPerDay+1),
		SolvedAt:  time.Now().UTC(),
	}

	energy := spec.InitialEnergyKWH()
	sched.SOC[0] = spec.InitialSOC
	for t := 0; t < types.SlotsPerDay; t++ {
		charge := x[offCharge+t]
		discharge := x[offDischarge+t]
		net := f.DemandKW[t] + loadsKW[t] - f.SolarKW[t]

		sched.BatteryKW[t] = charge - discharge
		sched.GridKW[t] = net + charge - discharge
		sched.TotalCost += f.PricePerKWH[t] * sched.GridKW[t] * types.SlotHours

		energy += (etaC*charge - discharge/etaD) * types.SlotHours
		sched.SOC[t+1] = energy / spec.CapacityKWH
	}
	return sched
}

// splitEfficiency divides the round-trip efficiency symmetrically between the
// charge and discharge legs.
func splitEfficiency(roundTrip float64) (etaC, etaD float64) {
	eta := math.Sqrt(roundTrip)
	return eta, eta
}

// buildProblem constructs the battery LP directly in standard form,
//
//	minimize  cᵀx   s.t.  Ax = b,  x >= 0
//
// with explicit slack columns. Four row families per slot t:
//
//	charge[t]    + sC[t]  = maxChargeKW
//	discharge[t] + sD[t]  = maxDischargeKW
//	 E(t) - E0   + sHi[t] = maxEnergy - E0
//	-(E(t) - E0) + sLo[t] = E0 - minEnergy
//
// where E(t) = E0 + sum_{s<=t} (etaC*charge[s] - discharge[s]/etaD) * dt is
// the stored energy at the slot boundary. The grid never appears as a
// variable: exchanging 1 kWh at slot t always costs (or earns) exactly the
// slot price, so it contributes price*(charge-discharge) to the objective
// and nothing to the constraints.
func buildProblem(f types.Forecast, spec types.BatterySpec) (c []float64, a *mat.Dense, b []float64) {
	const n = types.SlotsPerDay
	etaC, etaD := splitEfficiency(spec.RoundTripEfficiency)

	c = make([]float64, numCols)
	for t := 0; t < n; t++ {
		c[offCharge+t] = f.PricePerKWH[t]*types.SlotHours + cyclePenalty
		c[offDischarge+t] = -f.PricePerKWH[t]*types.SlotHours + cyclePenalty
	}

	a = mat.NewDense(numRows, numCols, nil)
	b = make([]float64, numRows)
	e0 := spec.InitialEnergyKWH()

	for t := 0; t < n; t++ {
		rowC := t
		a.Set(rowC, offCharge+t, 1)
		a.Set(rowC, offSlackC+t, 1)
		b[rowC] = spec.MaxChargeKW

		rowD := n + t
		a.Set(rowD, offDischarge+t, 1)
		a.Set(rowD, offSlackD+t, 1)
		b[rowD] = spec.MaxDischargeKW

		rowHi := 2*n + t
		rowLo := 3*n + t
		for s := 0; s <= t; s++ {
			a.Set(rowHi, offCharge+s, etaC*types.SlotHours)
			a.Set(rowHi, offDischarge+s, -types.SlotHours/etaD)
			a.Set(rowLo, offCharge+s, -etaC*types.SlotHours)
			a.Set(rowLo, offDischarge+s, types.SlotHours/etaD)
		}
		a.Set(rowHi, offSlackHi+t, 1)
		b[rowHi] = spec.MaxEnergyKWH() - e0
		a.Set(rowLo, offSlackLo+t, 1)
		b[rowLo] = e0 - spec.MinEnergyKWH()
	}

	return c, a, b
}
