package optimizer

import (
	"github.com/homeflux/homeflux/pkg/types"
)

// cheapestStart finds the start slot that minimizes the cost of running a
// flexible constraint. With symmetric buy/sell prices the grid serves every
// load at its slot price no matter what the battery does, so the cheapest
// placement is exactly the window with the lowest price sum. Starts are
// scanned in ascending order and only a strictly cheaper window displaces the
// incumbent, making the earliest start win ties. Validate guarantees the
// window admits at least one start.
func cheapestStart(f types.Forecast, c types.UsageConstraint) int {
	bestStart := c.EarliestStart
	bestCost := windowPrice(f, bestStart, c.DurationSlots)
	for start := c.EarliestStart + 1; start+c.DurationSlots <= c.LatestEnd; start++ {
		cost := windowPrice(f, start, c.DurationSlots)
		if cost < bestCost-costTolerance {
			bestStart = start
			bestCost = cost
		}
	}
	return bestStart
}

func windowPrice(f types.Forecast, start, duration int) float64 {
	var sum float64
	for t := start; t < start+duration; t++ {
		sum += f.PricePerKWH[t]
	}
	return sum
}
