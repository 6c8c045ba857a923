package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/homeflux/homeflux/pkg/attribution"
	"github.com/homeflux/homeflux/pkg/explain"
	"github.com/homeflux/homeflux/pkg/extract"
	"github.com/homeflux/homeflux/pkg/log"
	"github.com/homeflux/homeflux/pkg/optimizer"
	"github.com/homeflux/homeflux/pkg/storage"
	"github.com/homeflux/homeflux/pkg/types"
)

// Session is the per-household state machine. A forecast arrives first, then
// statements and questions in any order; every accepted statement re-solves
// the day and refreshes the attribution. All methods are safe for concurrent
// use.
type Session struct {
	household string
	db        storage.Database
	spec      types.BatterySpec
	solver    *optimizer.Solver
	extractor *extract.Extractor
	composer  *explain.Composer

	mu          sync.Mutex
	forecast    *types.Forecast
	constraints []types.UsageConstraint
	schedule    types.Schedule
	records     []types.AttributionRecord
	// notes are verified remarks, such as a superseded constraint, that the
	// next answer should surface. Cleared once delivered.
	notes []string
}

// SetForecast installs the day's forecast and solves the initial schedule
// against any constraints already on the log.
func (s *Session) SetForecast(ctx context.Context, f types.Forecast) (types.Schedule, error) {
	if err := f.Validate(); err != nil {
		return types.Schedule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sched, resolved, err := s.solver.Solve(ctx, f, s.spec, s.constraints)
	if err != nil {
		return types.Schedule{}, err
	}

	s.forecast = &f
	s.constraints = resolved
	s.apply(ctx, sched)
	return sched, nil
}

// AddStatement turns a natural-language statement into a constraint, applies
// the conflict policy and re-solves. A statement that makes the day
// infeasible is rejected with ErrInfeasible and leaves the previous schedule
// standing; a statement the extractor cannot resolve fails with
// ErrNotUnderstood. Both are recoverable.
func (s *Session) AddStatement(ctx context.Context, utterance string) (types.UsageConstraint, error) {
	c, err := s.extractor.Extract(ctx, utterance)
	if err != nil {
		return types.UsageConstraint{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forecast == nil {
		return types.UsageConstraint{}, fmt.Errorf("%w: no forecast set for household %s", types.ErrInvalidInput, s.household)
	}

	// a newer statement about the same device with an overlapping window
	// replaces the older one
	superseded := make([]int, 0, 1)
	trial := make([]types.UsageConstraint, len(s.constraints))
	copy(trial, s.constraints)
	for i, prev := range trial {
		if prev.Superseded || prev.DeviceID != c.DeviceID || !prev.OverlapsWindow(c) {
			continue
		}
		trial[i].Superseded = true
		trial[i].SupersededBy = c.ID
		superseded = append(superseded, i)
	}
	trial = append(trial, c)

	sched, resolved, err := s.solver.Solve(ctx, *s.forecast, s.spec, trial)
	if err != nil {
		if errors.Is(err, types.ErrInfeasible) {
			return types.UsageConstraint{}, fmt.Errorf("%w: cannot fit the %s request into the day", err, c.DeviceID)
		}
		return types.UsageConstraint{}, err
	}

	if err := s.db.InsertConstraint(ctx, s.household, resolved[len(resolved)-1]); err != nil {
		return types.UsageConstraint{}, err
	}
	for _, i := range superseded {
		prev := s.constraints[i]
		if err := s.db.MarkSuperseded(ctx, s.household, prev.ID, c.ID); err != nil {
			return types.UsageConstraint{}, err
		}
		s.notes = append(s.notes, fmt.Sprintf(
			"Your earlier request %q was replaced by %q.", prev.Utterance, c.Utterance))
	}

	s.constraints = resolved
	s.apply(ctx, sched)
	return resolved[len(resolved)-1], nil
}

// Ask answers a question about the current schedule.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is empty", types.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forecast == nil {
		return "", fmt.Errorf("%w: no schedule to explain for household %s", types.ErrInvalidInput, s.household)
	}

	notes := s.notes
	answer, err := s.composer.Answer(ctx, question, s.records, s.schedule, notes)
	if err != nil {
		return "", err
	}
	s.notes = nil
	return answer, nil
}

// Schedule returns the current schedule, or ErrInvalidInput when no forecast
// has been set yet.
func (s *Session) Schedule() (types.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forecast == nil {
		return types.Schedule{}, fmt.Errorf("%w: no forecast set for household %s", types.ErrInvalidInput, s.household)
	}
	return s.schedule, nil
}

// Attribution returns the merged attribution intervals for the current
// schedule.
func (s *Session) Attribution() ([]types.AttributionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forecast == nil {
		return nil, fmt.Errorf("%w: no forecast set for household %s", types.ErrInvalidInput, s.household)
	}
	return attribution.Merge(s.records), nil
}

// Constraints returns a copy of the full constraint log, superseded entries
// included.
func (s *Session) Constraints() []types.UsageConstraint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.UsageConstraint, len(s.constraints))
	copy(out, s.constraints)
	return out
}

// apply installs a freshly solved schedule and its attribution. The forecast
// is stored alongside the schedule so a restarted process can rehydrate the
// whole day. Caller holds the lock.
func (s *Session) apply(ctx context.Context, sched types.Schedule) {
	s.schedule = sched
	s.records = attribution.Attribute(sched, *s.forecast, s.constraints)
	day := storage.Day{Forecast: *s.forecast, Schedule: sched}
	if err := s.db.UpsertDay(ctx, s.household, day); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to persist day",
			slog.String("household", s.household), slog.Any("error", err))
	}
}
