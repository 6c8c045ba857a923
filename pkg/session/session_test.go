package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeflux/homeflux/pkg/catalog"
	"github.com/homeflux/homeflux/pkg/storage"
	"github.com/homeflux/homeflux/pkg/types"
)

// two-level price day: cheap mid-morning trough, expensive otherwise
func troughForecast() types.Forecast {
	f := types.Forecast{
		DemandKW:    make([]float64, types.SlotsPerDay),
		SolarKW:     make([]float64, types.SlotsPerDay),
		PricePerKWH: make([]float64, types.SlotsPerDay),
	}
	for t := 0; t < types.SlotsPerDay; t++ {
		f.DemandKW[t] = 0.5
		f.PricePerKWH[t] = 0.40
		if t >= 32 && t < 48 {
			f.PricePerKWH[t] = 0.10
		}
	}
	return f
}

func newTestManager(t *testing.T, db storage.Database) *Manager {
	m, err := NewManager(db, catalog.Default(), nil, DefaultBatterySpec())
	require.NoError(t, err)
	return m
}

func TestSessionPipeline(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	m := newTestManager(t, db)
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)

	sched, err := s.SetForecast(ctx, troughForecast())
	require.NoError(t, err)
	require.Len(t, sched.GridKW, types.SlotsPerDay)

	c, err := s.AddStatement(ctx, "I want to use my washing machine at 11am")
	require.NoError(t, err)
	assert.Equal(t, "washing_machine", c.DeviceID)
	assert.Equal(t, 44, c.ResolvedStart)

	sched, err = s.Schedule()
	require.NoError(t, err)
	supply := sched.GridKW[44] - sched.BatteryKW[44]
	assert.GreaterOrEqual(t, supply, 2.4, "slot 44 covers base demand plus the washer")

	records, err := s.Attribution()
	require.NoError(t, err)
	var tagged bool
	for _, r := range records {
		if _, ok := r.ConstraintTag(c.ID); ok && r.StartSlot <= 44 && r.EndSlot > 44 {
			tagged = true
		}
	}
	assert.True(t, tagged, "washer slots carry a user_constraint tag")

	answer, err := s.Ask(ctx, "why is usage up at 11am?")
	require.NoError(t, err)
	assert.Contains(t, answer, "washing machine")

	answer, err = s.Ask(ctx, "why is the battery charging in the morning?")
	require.NoError(t, err)
	assert.Contains(t, answer, "price is low", "the trough drives the morning charge")

	// everything was persisted
	stored, err := db.ListConstraints(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	day, err := db.GetDay(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, sched.TotalCost, day.Schedule.TotalCost)
	assert.NoError(t, day.Forecast.Validate())
}

func TestSessionConflictSupersede(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	m := newTestManager(t, db)
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	_, err = s.SetForecast(ctx, troughForecast())
	require.NoError(t, err)

	first, err := s.AddStatement(ctx, "run the washing machine between 10am and 2pm")
	require.NoError(t, err)
	second, err := s.AddStatement(ctx, "use the washing machine at 11am")
	require.NoError(t, err)

	log := s.Constraints()
	require.Len(t, log, 2, "superseded constraints stay on the log")
	assert.True(t, log[0].Superseded)
	assert.Equal(t, second.ID, log[0].SupersededBy)
	assert.False(t, log[1].Superseded)

	stored, err := db.ListConstraints(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, stored[0].Superseded, "supersede persisted")
	assert.Equal(t, first.ID, stored[0].ID)

	answer, err := s.Ask(ctx, "why does the plan look like this?")
	require.NoError(t, err)
	assert.Contains(t, answer, "was replaced by", "the next answer mentions the supersede")

	answer, err = s.Ask(ctx, "why does the plan look like this?")
	require.NoError(t, err)
	assert.NotContains(t, answer, "was replaced by", "notes are delivered once")
}

func TestSessionSeparateWindowsDoNotConflict(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemory())
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	_, err = s.SetForecast(ctx, troughForecast())
	require.NoError(t, err)

	_, err = s.AddStatement(ctx, "run the washing machine at 8am")
	require.NoError(t, err)
	_, err = s.AddStatement(ctx, "run the washing machine at 6pm")
	require.NoError(t, err)

	log := s.Constraints()
	require.Len(t, log, 2)
	assert.False(t, log[0].Superseded, "non-overlapping requests both stand")
	assert.False(t, log[1].Superseded)
}

func TestSessionRequiresForecast(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemory())
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)

	_, err = s.AddStatement(ctx, "use the oven at 6pm")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.Ask(ctx, "why?")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.Schedule()
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.Attribution()
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestSessionRejectsUnknownStatement(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	m := newTestManager(t, db)
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	_, err = s.SetForecast(ctx, troughForecast())
	require.NoError(t, err)

	_, err = s.AddStatement(ctx, "run my jacuzzi at 7pm")
	assert.ErrorIs(t, err, types.ErrNotUnderstood)
	assert.Empty(t, s.Constraints(), "rejected statements leave no trace")
	stored, _ := db.ListConstraints(ctx, "h1")
	assert.Empty(t, stored)
}

func TestSessionRehydratesLogFromStorage(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()
	prior := types.UsageConstraint{
		ID:            uuid.NewString(),
		DeviceID:      "oven",
		RatedKW:       2.5,
		EarliestStart: 72,
		LatestEnd:     76,
		DurationSlots: 4,
		FixedStart:    true,
		ResolvedStart: 72,
		Utterance:     "oven at 6pm",
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.InsertConstraint(ctx, "h1", prior))

	m := newTestManager(t, db)
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, s.Constraints(), 1)

	sched, err := s.SetForecast(ctx, troughForecast())
	require.NoError(t, err)
	supply := sched.GridKW[72] - sched.BatteryKW[72]
	assert.GreaterOrEqual(t, supply, 2.9, "rehydrated constraint shapes the schedule")
}

func TestSessionRehydratesDayFromStorage(t *testing.T) {
	ctx := context.Background()
	db := storage.NewMemory()

	m := newTestManager(t, db)
	s, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	solved, err := s.SetForecast(ctx, troughForecast())
	require.NoError(t, err)
	c, err := s.AddStatement(ctx, "use my washing machine at 11am")
	require.NoError(t, err)

	// a second manager over the same database stands in for a restarted
	// process: the stored day serves immediately, no new forecast needed
	m2 := newTestManager(t, db)
	s2, err := m2.Session(ctx, "h1")
	require.NoError(t, err)

	sched, err := s2.Schedule()
	require.NoError(t, err)
	assert.Greater(t, sched.TotalCost, solved.TotalCost-1e-9, "the washer load is part of the stored day")

	records, err := s2.Attribution()
	require.NoError(t, err)
	var tagged bool
	for _, r := range records {
		if _, ok := r.ConstraintTag(c.ID); ok {
			tagged = true
		}
	}
	assert.True(t, tagged, "attribution recomputed from the stored day")

	answer, err := s2.Ask(ctx, "why is usage up at 11am?")
	require.NoError(t, err)
	assert.Contains(t, answer, "washing machine")
}

func TestManagerReusesSessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, storage.NewMemory())

	a, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	b, err := m.Session(ctx, "h1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := m.Session(ctx, "h2")
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	_, err = m.Session(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
