package types

import (
	"fmt"
	"math"
)

// Forecast holds the per-slot demand, solar and price arrays for one day.
// All three arrays are aligned to the daily grid and immutable once supplied.
// The price is a single dynamic tariff, identical for buying and selling.
// Negative prices are allowed, NaN is not.
type Forecast struct {
	DemandKW    []float64 `json:"demandKW"`
	SolarKW     []float64 `json:"solarKW"`
	PricePerKWH []float64 `json:"pricePerKWH"`
}

// Validate checks the forecast arrays for length and NaN values.
func (f Forecast) Validate() error {
	arrays := map[string][]float64{
		"demandKW":    f.DemandKW,
		"solarKW":     f.SolarKW,
		"pricePerKWH": f.PricePerKWH,
	}
	for name, arr := range arrays {
		if len(arr) != SlotsPerDay {
			return fmt.Errorf("%w: %s has %d entries, want %d", ErrInvalidInput, name, len(arr), SlotsPerDay)
		}
		for i, v := range arr {
			if math.IsNaN(v) {
				return fmt.Errorf("%w: %s[%d] is NaN", ErrInvalidInput, name, i)
			}
			if math.IsInf(v, 0) {
				return fmt.Errorf("%w: %s[%d] is infinite", ErrInvalidInput, name, i)
			}
		}
	}
	for i, d := range f.DemandKW {
		if d < 0 {
			return fmt.Errorf("%w: demandKW[%d] is negative", ErrInvalidInput, i)
		}
	}
	for i, s := range f.SolarKW {
		if s < 0 {
			return fmt.Errorf("%w: solarKW[%d] is negative", ErrInvalidInput, i)
		}
	}
	return nil
}
