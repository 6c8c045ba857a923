package types

import "fmt"

// BatterySpec describes the capabilities of the household battery.
// It is supplied once per session and immutable afterwards.
type BatterySpec struct {
	CapacityKWH         float64 `json:"capacityKWH"`
	MaxChargeKW         float64 `json:"maxChargeKW"`
	MaxDischargeKW      float64 `json:"maxDischargeKW"`
	RoundTripEfficiency float64 `json:"roundTripEfficiency"`
	// InitialSOC is the state of charge at slot 0 as a fraction of capacity.
	InitialSOC float64 `json:"initialSOC"`
	// MinSOC/MaxSOC bound the state of charge over the whole day.
	MinSOC float64 `json:"minSOC"`
	MaxSOC float64 `json:"maxSOC"`
}

// Validate checks the battery spec. Conflicting bounds are an error, never a
// silent clamp.
func (b BatterySpec) Validate() error {
	if b.CapacityKWH <= 0 {
		return fmt.Errorf("%w: battery capacity must be positive, got %v", ErrInvalidInput, b.CapacityKWH)
	}
	if b.MaxChargeKW < 0 {
		return fmt.Errorf("%w: max charge power is negative", ErrInvalidInput)
	}
	if b.MaxDischargeKW < 0 {
		return fmt.Errorf("%w: max discharge power is negative", ErrInvalidInput)
	}
	if b.RoundTripEfficiency <= 0 || b.RoundTripEfficiency > 1 {
		return fmt.Errorf("%w: round-trip efficiency %v outside (0,1]", ErrInvalidInput, b.RoundTripEfficiency)
	}
	if b.InitialSOC < 0 || b.InitialSOC > 1 {
		return fmt.Errorf("%w: initial SOC %v outside [0,1]", ErrInvalidInput, b.InitialSOC)
	}
	if b.MinSOC < 0 || b.MaxSOC > 1 || b.MinSOC > b.MaxSOC {
		return fmt.Errorf("%w: SOC bounds [%v,%v] invalid", ErrInvalidInput, b.MinSOC, b.MaxSOC)
	}
	return nil
}

// MinEnergyKWH returns the lower stored-energy bound in kWh.
func (b BatterySpec) MinEnergyKWH() float64 {
	return b.MinSOC * b.CapacityKWH
}

// MaxEnergyKWH returns the upper stored-energy bound in kWh.
func (b BatterySpec) MaxEnergyKWH() float64 {
	return b.MaxSOC * b.CapacityKWH
}

// InitialEnergyKWH returns the stored energy at slot 0 in kWh.
func (b BatterySpec) InitialEnergyKWH() float64 {
	return b.InitialSOC * b.CapacityKWH
}
