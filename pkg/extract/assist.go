package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/homeflux/homeflux/pkg/llm"
	"github.com/homeflux/homeflux/pkg/types"
)

const assistPrompt = `You translate a single household appliance request into JSON.
Known device ids: %s.
The day is divided into 96 slots of 15 minutes, slot 0 is 00:00 and slot 95 is 23:45.

Respond with ONLY a JSON object with these fields:
  "device": one of the known device ids, or "" if no known device is mentioned
  "earliest_start": first slot the device may start (integer 0-95)
  "latest_end": slot by which the run must have finished (integer 1-96)
  "fixed": true if the user named an exact start time, false if they gave a window
  "duration_slots": number of slots the run takes, or 0 if the user did not say

Request: %q`

type assistReply struct {
	Device        string `json:"device"`
	EarliestStart int    `json:"earliest_start"`
	LatestEnd     int    `json:"latest_end"`
	Fixed         bool   `json:"fixed"`
	DurationSlots int    `json:"duration_slots"`
}

// modelParse asks the configured model to parse an utterance the rules could
// not. The reply is treated as untrusted input: the device id must exist in
// the catalog and the window must validate, otherwise the parse is rejected.
func (e *Extractor) modelParse(ctx context.Context, utterance string) (types.UsageConstraint, error) {
	ctx, cancel := context.WithTimeout(ctx, e.modelTimeout)
	defer cancel()

	ids := e.catalog.IDs()
	sort.Strings(ids)
	prompt := fmt.Sprintf(assistPrompt, strings.Join(ids, ", "), utterance)
	raw, err := e.model.Complete(ctx, prompt)
	if err != nil {
		return types.UsageConstraint{}, fmt.Errorf("model parse: %w", err)
	}
	var reply assistReply
	if err := json.Unmarshal([]byte(llm.ExtractJSON(raw)), &reply); err != nil {
		return types.UsageConstraint{}, fmt.Errorf("model parse: bad reply: %w", err)
	}

	device, ok := e.catalog.Device(reply.Device)
	if !ok {
		return types.UsageConstraint{}, fmt.Errorf("%w: model named unknown device %q", types.ErrNotUnderstood, reply.Device)
	}
	if reply.EarliestStart < 0 || reply.LatestEnd > types.SlotsPerDay || reply.EarliestStart >= reply.LatestEnd {
		return types.UsageConstraint{}, fmt.Errorf("%w: model produced invalid window [%d, %d)",
			types.ErrNotUnderstood, reply.EarliestStart, reply.LatestEnd)
	}

	duration := reply.DurationSlots
	if duration <= 0 {
		duration = device.TypicalSlots
	}
	w := Window{EarliestStart: reply.EarliestStart, LatestEnd: reply.LatestEnd, Fixed: reply.Fixed}
	return e.build(device, w, duration, utterance)
}
