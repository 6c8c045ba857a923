// Package session ties the pipeline together per household: forecasts come
// in, statements become constraints, the optimizer produces a schedule, the
// attribution rules tag it and the composer answers questions about it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/levenlabs/go-lflag"

	"github.com/homeflux/homeflux/pkg/attribution"
	"github.com/homeflux/homeflux/pkg/explain"
	"github.com/homeflux/homeflux/pkg/extract"
	"github.com/homeflux/homeflux/pkg/llm"
	"github.com/homeflux/homeflux/pkg/optimizer"
	"github.com/homeflux/homeflux/pkg/storage"
	"github.com/homeflux/homeflux/pkg/types"
)

// DefaultBatterySpec is a common residential battery, a 10 kWh pack with a
// 5 kW inverter, half full at the start of the day.
func DefaultBatterySpec() types.BatterySpec {
	return types.BatterySpec{
		CapacityKWH:         10,
		MaxChargeKW:         5,
		MaxDischargeKW:      5,
		RoundTripEfficiency: 0.9,
		InitialSOC:          0.5,
		MinSOC:              0,
		MaxSOC:              1,
	}
}

// Manager hands out one Session per household, creating them lazily and
// rehydrating the constraint log and the last stored day from storage on
// first access.
type Manager struct {
	db      storage.Database
	catalog types.DeviceCatalog
	model   *llm.Holder
	spec    types.BatterySpec

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. model may be nil to run fully offline.
func NewManager(db storage.Database, cat types.DeviceCatalog, model *llm.Holder, spec types.BatterySpec) (*Manager, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		db:       db,
		catalog:  cat,
		model:    model,
		spec:     spec,
		sessions: make(map[string]*Session),
	}, nil
}

// Configured builds a Manager from flags. The battery flags describe the
// single battery model shared by all households on this instance.
func Configured(db storage.Database, cat types.DeviceCatalog, model *llm.Holder) *Manager {
	m := &Manager{
		db:       db,
		catalog:  cat,
		model:    model,
		sessions: make(map[string]*Session),
	}

	spec := DefaultBatterySpec()
	lflag.JSON(&spec, "battery", spec, "JSON battery spec (capacityKWH, maxChargeKW, maxDischargeKW, roundTripEfficiency, initialSOC, minSOC, maxSOC)")

	lflag.Do(func() {
		if err := spec.Validate(); err != nil {
			panic(fmt.Sprintf("invalid -battery flag: %v", err))
		}
		m.spec = spec
	})
	return m
}

// Session returns the household's session, creating it if needed.
func (m *Manager) Session(ctx context.Context, household string) (*Session, error) {
	if household == "" {
		return nil, fmt.Errorf("%w: household id is empty", types.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[household]; ok {
		return s, nil
	}

	constraints, err := m.db.ListConstraints(ctx, household)
	if err != nil {
		return nil, fmt.Errorf("failed to load constraint log for %s: %w", household, err)
	}

	var model llm.Client
	if m.model != nil {
		model = m.model.Client()
	}
	s := &Session{
		household:   household,
		db:          m.db,
		spec:        m.spec,
		solver:      optimizer.New(),
		extractor:   extract.New(m.catalog, model),
		composer:    explain.New(model, 0),
		constraints: constraints,
	}

	// a stored day restores the schedule and its explanations immediately;
	// a fresh forecast will overwrite it through the usual path
	switch day, err := m.db.GetDay(ctx, household); {
	case err == nil:
		f := day.Forecast
		s.forecast = &f
		s.schedule = day.Schedule
		s.records = attribution.Attribute(day.Schedule, f, constraints)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to load stored day for %s: %w", household, err)
	}

	m.sessions[household] = s
	return s, nil
}
