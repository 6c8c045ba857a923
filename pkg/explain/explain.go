// Package explain answers "why" questions about a solved schedule. Every
// answer is grounded in the attribution records: the composer builds a fact
// sheet of verified drivers, asks the configured language model to phrase it,
// and falls back to a deterministic template when the model is absent, slow
// or failing. The model only ever rephrases facts, it never invents them.
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/homeflux/homeflux/pkg/attribution"
	"github.com/homeflux/homeflux/pkg/extract"
	"github.com/homeflux/homeflux/pkg/llm"
	"github.com/homeflux/homeflux/pkg/log"
	"github.com/homeflux/homeflux/pkg/types"
)

// DefaultModelTimeout bounds how long a question waits on the model before
// the template answer is returned instead.
const DefaultModelTimeout = 15 * time.Second

// Composer turns attribution records into natural-language answers.
type Composer struct {
	model        llm.Client
	modelTimeout time.Duration
}

// New creates a Composer. model may be nil, in which case every answer comes
// from the deterministic template.
func New(model llm.Client, modelTimeout time.Duration) *Composer {
	if modelTimeout <= 0 {
		modelTimeout = DefaultModelTimeout
	}
	return &Composer{model: model, modelTimeout: modelTimeout}
}

// Answer explains the schedule within the time scope of the question. When
// the question names no time ("why is the battery charging at 10am" vs "why
// does the plan look like this") the whole day is in scope. notes are extra
// verified statements, such as a constraint having been superseded, that the
// answer should mention.
func (c *Composer) Answer(ctx context.Context, question string, records []types.AttributionRecord, sched types.Schedule, notes []string) (string, error) {
	start, end := questionScope(question)
	merged := attribution.Merge(records)

	scoped := make([]types.AttributionRecord, 0, len(merged))
	for _, r := range merged {
		if r.StartSlot < end && start < r.EndSlot && len(r.Tags) > 0 {
			scoped = append(scoped, r)
		}
	}

	if len(scoped) == 0 {
		answer := fmt.Sprintf("Nothing notable drives the schedule between %s: demand is met at ordinary prices with no battery, solar or user-request activity standing out.",
			types.SlotRangeClock(start, end))
		return withNotes(answer, notes), nil
	}

	fallback := withNotes(templateAnswer(scoped), notes)
	if c.model == nil {
		return fallback, nil
	}

	prompt := buildPrompt(question, scoped, sched, notes)
	mctx, cancel := context.WithTimeout(ctx, c.modelTimeout)
	defer cancel()

	began := time.Now()
	answer, err := c.model.Complete(mctx, prompt)
	if err != nil || strings.TrimSpace(answer) == "" {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: model did not answer within %s", types.ErrExplanationTimeout, c.modelTimeout)
		}
		log.Ctx(ctx).WarnContext(ctx, "explanation model unavailable, using template answer",
			slog.Duration("waited", time.Since(began)), slog.Any("error", err))
		return fallback, nil
	}
	return strings.TrimSpace(answer), nil
}

// questionScope resolves the time range a question asks about. Questions
// with no recognizable time expression scope to the full day.
func questionScope(question string) (int, int) {
	w, err := extract.ParseWindow(question)
	if err != nil {
		return 0, types.SlotsPerDay
	}
	if w.Fixed {
		// "at 10am" scopes to that slot
		return w.EarliestStart, w.EarliestStart + 1
	}
	return w.EarliestStart, w.LatestEnd
}

func withNotes(answer string, notes []string) string {
	if len(notes) == 0 {
		return answer
	}
	return answer + " " + strings.Join(notes, " ")
}
