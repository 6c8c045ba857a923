package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForecast() Forecast {
	f := Forecast{
		DemandKW:    make([]float64, SlotsPerDay),
		SolarKW:     make([]float64, SlotsPerDay),
		PricePerKWH: make([]float64, SlotsPerDay),
	}
	for i := 0; i < SlotsPerDay; i++ {
		f.DemandKW[i] = 0.5
		f.PricePerKWH[i] = 0.20
	}
	return f
}

func TestForecastValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validForecast().Validate())
	})

	t.Run("wrong length", func(t *testing.T) {
		f := validForecast()
		f.PricePerKWH = f.PricePerKWH[:95]
		err := f.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("NaN price", func(t *testing.T) {
		f := validForecast()
		f.PricePerKWH[10] = math.NaN()
		assert.ErrorIs(t, f.Validate(), ErrInvalidInput)
	})

	t.Run("negative price allowed", func(t *testing.T) {
		f := validForecast()
		f.PricePerKWH[10] = -0.05
		assert.NoError(t, f.Validate())
	})

	t.Run("negative demand rejected", func(t *testing.T) {
		f := validForecast()
		f.DemandKW[3] = -1
		assert.ErrorIs(t, f.Validate(), ErrInvalidInput)
	})
}

func TestBatterySpecValidate(t *testing.T) {
	base := BatterySpec{
		CapacityKWH:         10,
		MaxChargeKW:         5,
		MaxDischargeKW:      5,
		RoundTripEfficiency: 0.9,
		InitialSOC:          0.5,
		MinSOC:              0.1,
		MaxSOC:              0.95,
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, base.Validate())
	})

	t.Run("min SOC above max SOC is an error, not a clamp", func(t *testing.T) {
		b := base
		b.MinSOC = 0.8
		b.MaxSOC = 0.2
		err := b.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("zero capacity", func(t *testing.T) {
		b := base
		b.CapacityKWH = 0
		assert.ErrorIs(t, b.Validate(), ErrInvalidInput)
	})

	t.Run("efficiency above 1", func(t *testing.T) {
		b := base
		b.RoundTripEfficiency = 1.1
		assert.ErrorIs(t, b.Validate(), ErrInvalidInput)
	})
}

func TestGridHelpers(t *testing.T) {
	slot, err := ClockToSlot(11, 0)
	require.NoError(t, err)
	assert.Equal(t, 44, slot)

	slot, err = ClockToSlot(0, 14)
	require.NoError(t, err)
	assert.Equal(t, 0, slot)

	_, err = ClockToSlot(24, 0)
	assert.Error(t, err)

	assert.Equal(t, "11:00", SlotClock(44))
	assert.Equal(t, "11:00-12:00", SlotRangeClock(44, 48))
	assert.Equal(t, "23:45-24:00", SlotRangeClock(95, 96))
}

func TestUsageConstraint(t *testing.T) {
	c := UsageConstraint{
		ID:            "c1",
		DeviceID:      "washing_machine",
		RatedKW:       2,
		EarliestStart: 44,
		LatestEnd:     48,
		DurationSlots: 4,
		FixedStart:    true,
		ResolvedStart: 44,
	}
	require.NoError(t, c.Validate())

	start, end := c.Window()
	assert.Equal(t, 44, start)
	assert.Equal(t, 48, end)
	assert.True(t, c.Covers(44))
	assert.True(t, c.Covers(47))
	assert.False(t, c.Covers(48))

	t.Run("duration exceeds window", func(t *testing.T) {
		bad := c
		bad.DurationSlots = 5
		assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
	})

	t.Run("overlap", func(t *testing.T) {
		other := UsageConstraint{EarliestStart: 46, LatestEnd: 52}
		assert.True(t, c.OverlapsWindow(other))
		disjoint := UsageConstraint{EarliestStart: 48, LatestEnd: 52}
		assert.False(t, c.OverlapsWindow(disjoint))
	})
}

func TestUserLoadProfile(t *testing.T) {
	cs := []UsageConstraint{
		{DeviceID: "washing_machine", RatedKW: 2, EarliestStart: 44, LatestEnd: 48, DurationSlots: 4, ResolvedStart: 44},
		{DeviceID: "dishwasher", RatedKW: 1.5, EarliestStart: 46, LatestEnd: 52, DurationSlots: 6, ResolvedStart: 46},
		{DeviceID: "ev_charger", RatedKW: 7, EarliestStart: 0, LatestEnd: 8, DurationSlots: 8, ResolvedStart: 0, Superseded: true},
	}
	loads := UserLoadProfile(cs)
	require.Len(t, loads, SlotsPerDay)
	assert.InDelta(t, 0.0, loads[43], 1e-12)
	assert.InDelta(t, 2.0, loads[44], 1e-12)
	assert.InDelta(t, 3.5, loads[46], 1e-12)
	assert.InDelta(t, 1.5, loads[48], 1e-12)
	// superseded constraints contribute nothing
	assert.InDelta(t, 0.0, loads[0], 1e-12)
}
