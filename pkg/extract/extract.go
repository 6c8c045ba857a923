// Package extract turns short natural-language usage statements into
// structured scheduling constraints against the closed device catalog. The
// rule-based parser runs first; a language model, when configured, only
// assists with statements the rules cannot resolve, and everything it emits
// is validated mechanically before a constraint is built. The model is a
// parser here, never an authority on device existence.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/homeflux/homeflux/pkg/llm"
	"github.com/homeflux/homeflux/pkg/log"
	"github.com/homeflux/homeflux/pkg/types"
)

// DefaultModelTimeout bounds a parse-assist model call.
const DefaultModelTimeout = 10 * time.Second

// Extractor converts utterances into UsageConstraints.
type Extractor struct {
	catalog      types.DeviceCatalog
	model        llm.Client
	modelTimeout time.Duration
}

// New creates an Extractor. model may be nil, which disables the parse
// assist and leaves only the rule-based path.
func New(cat types.DeviceCatalog, model llm.Client) *Extractor {
	return &Extractor{
		catalog:      cat,
		model:        model,
		modelTimeout: DefaultModelTimeout,
	}
}

// Extract parses a user statement into a constraint. It fails with
// ErrNotUnderstood when the device is not in the catalog or no time window
// can be resolved; that error is recoverable and should be surfaced to the
// user as a request to clarify.
func (e *Extractor) Extract(ctx context.Context, utterance string) (types.UsageConstraint, error) {
	device, devOK := matchDevice(e.catalog, utterance)
	window, werr := ParseWindow(utterance)

	if (!devOK || werr != nil) && e.model != nil {
		c, err := e.modelParse(ctx, utterance)
		if err == nil {
			return c, nil
		}
		log.Ctx(ctx).DebugContext(ctx, "model parse assist failed, falling back to rules",
			slog.String("utterance", utterance), slog.Any("error", err))
	}

	if !devOK {
		return types.UsageConstraint{}, fmt.Errorf("%w: no known device mentioned in %q", types.ErrNotUnderstood, utterance)
	}
	if werr != nil {
		return types.UsageConstraint{}, werr
	}

	duration, ok := ParseDuration(utterance)
	if !ok {
		duration = device.TypicalSlots
	}
	return e.build(device, window, duration, utterance)
}

// build assembles and mechanically validates a constraint from parsed parts.
func (e *Extractor) build(device types.Device, w Window, duration int, utterance string) (types.UsageConstraint, error) {
	c := types.UsageConstraint{
		ID:            uuid.NewString(),
		DeviceID:      device.ID,
		RatedKW:       device.RatedKW,
		DurationSlots: duration,
		Utterance:     utterance,
		CreatedAt:     time.Now().UTC(),
	}

	if w.Fixed {
		start := w.EarliestStart
		if start+duration > types.SlotsPerDay {
			// a run starting late in the day is cut off at midnight
			c.DurationSlots = types.SlotsPerDay - start
		}
		c.FixedStart = true
		c.EarliestStart = start
		c.ResolvedStart = start
		c.LatestEnd = start + c.DurationSlots
	} else {
		c.EarliestStart = w.EarliestStart
		c.LatestEnd = w.LatestEnd
		c.ResolvedStart = w.EarliestStart
		if span := w.LatestEnd - w.EarliestStart; span < duration {
			// the stated window is shorter than the device's usual run: take
			// the window itself as the run
			c.DurationSlots = span
			c.FixedStart = true
		}
	}

	if err := c.Validate(); err != nil {
		return types.UsageConstraint{}, fmt.Errorf("%w: statement %q resolved to an invalid window", types.ErrNotUnderstood, utterance)
	}
	return c, nil
}
