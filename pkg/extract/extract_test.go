package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeflux/homeflux/pkg/catalog"
	"github.com/homeflux/homeflux/pkg/llm"
	"github.com/homeflux/homeflux/pkg/types"
)

func TestExtractFixedStart(t *testing.T) {
	e := New(catalog.Default(), nil)
	c, err := e.Extract(context.Background(), "I want to use my washing machine at 11am")
	require.NoError(t, err)

	assert.Equal(t, "washing_machine", c.DeviceID)
	assert.Equal(t, 2.0, c.RatedKW)
	assert.True(t, c.FixedStart)
	assert.Equal(t, 44, c.EarliestStart)
	assert.Equal(t, 44, c.ResolvedStart)
	assert.Equal(t, 4, c.DurationSlots)
	assert.Equal(t, 48, c.LatestEnd)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "I want to use my washing machine at 11am", c.Utterance)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestExtractFlexibleWindow(t *testing.T) {
	e := New(catalog.Default(), nil)
	c, err := e.Extract(context.Background(), "run the dishwasher between 2pm and 6pm")
	require.NoError(t, err)

	assert.Equal(t, "dishwasher", c.DeviceID)
	assert.False(t, c.FixedStart)
	assert.Equal(t, 56, c.EarliestStart)
	assert.Equal(t, 72, c.LatestEnd)
	assert.Equal(t, 6, c.DurationSlots)
}

func TestExtractEveryCatalogDevice(t *testing.T) {
	cat := catalog.Default()
	e := New(cat, nil)
	for id, d := range cat {
		t.Run(id, func(t *testing.T) {
			utterance := "please run my " + strings.ReplaceAll(id, "_", " ") + " in the morning"
			c, err := e.Extract(context.Background(), utterance)
			require.NoError(t, err)
			assert.Equal(t, id, c.DeviceID)
			assert.Equal(t, d.RatedKW, c.RatedKW)
			assert.Equal(t, d.TypicalSlots, c.DurationSlots)
			assert.Equal(t, 24, c.EarliestStart)
			assert.Equal(t, 48, c.LatestEnd)
		})
	}
}

func TestExtractAlias(t *testing.T) {
	e := New(catalog.Default(), nil)
	c, err := e.Extract(context.Background(), "start a load of laundry after 8pm")
	require.NoError(t, err)

	assert.Equal(t, "washing_machine", c.DeviceID)
	assert.False(t, c.FixedStart)
	assert.Equal(t, 80, c.EarliestStart)
	assert.Equal(t, types.SlotsPerDay, c.LatestEnd)
}

func TestExtractExplicitDuration(t *testing.T) {
	e := New(catalog.Default(), nil)
	c, err := e.Extract(context.Background(), "charge the ev charger for 2 hours after 10pm")
	require.NoError(t, err)

	assert.Equal(t, "ev_charger", c.DeviceID)
	assert.Equal(t, 8, c.DurationSlots)
	assert.Equal(t, 88, c.EarliestStart)
}

func TestExtractWindowShorterThanTypicalRun(t *testing.T) {
	// the dishwasher usually runs 6 slots but the stated window only has 4,
	// so the run fills the window and is treated as fixed
	e := New(catalog.Default(), nil)
	c, err := e.Extract(context.Background(), "dishwasher between 5pm and 6pm")
	require.NoError(t, err)

	assert.Equal(t, 68, c.EarliestStart)
	assert.Equal(t, 72, c.LatestEnd)
	assert.Equal(t, 4, c.DurationSlots)
	assert.True(t, c.FixedStart)
}

func TestExtractNotUnderstood(t *testing.T) {
	e := New(catalog.Default(), nil)

	t.Run("unknown device", func(t *testing.T) {
		_, err := e.Extract(context.Background(), "run my jacuzzi at 7pm")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})

	t.Run("no time information", func(t *testing.T) {
		_, err := e.Extract(context.Background(), "I want to use my washing machine")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})

	t.Run("empty statement", func(t *testing.T) {
		_, err := e.Extract(context.Background(), "")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})
}

func TestExtractModelAssist(t *testing.T) {
	t.Run("parses what the rules cannot", func(t *testing.T) {
		stub := &llm.Stub{Responses: []string{
			"```json\n{\"device\": \"washing_machine\", \"earliest_start\": 32, \"latest_end\": 56, \"fixed\": false, \"duration_slots\": 0}\n```",
		}}
		e := New(catalog.Default(), stub)
		c, err := e.Extract(context.Background(), "the clothes should be clean before the kids come home")
		require.NoError(t, err)

		assert.Equal(t, "washing_machine", c.DeviceID)
		assert.Equal(t, 32, c.EarliestStart)
		assert.Equal(t, 56, c.LatestEnd)
		assert.Equal(t, 4, c.DurationSlots, "typical duration applies when the model reports none")
		assert.Contains(t, stub.LastPrompt(), "washing_machine", "prompt lists the catalog")
	})

	t.Run("rejects a device outside the catalog", func(t *testing.T) {
		stub := &llm.Stub{Responses: []string{
			`{"device": "hot_tub", "earliest_start": 0, "latest_end": 96, "fixed": false, "duration_slots": 8}`,
		}}
		e := New(catalog.Default(), stub)
		_, err := e.Extract(context.Background(), "heat up the hot tub tonight")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})

	t.Run("rejects an invalid window", func(t *testing.T) {
		stub := &llm.Stub{Responses: []string{
			`{"device": "oven", "earliest_start": 50, "latest_end": 40, "fixed": false, "duration_slots": 4}`,
		}}
		e := New(catalog.Default(), stub)
		_, err := e.Extract(context.Background(), "something about dinner")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})

	t.Run("model failure falls back to the rule error", func(t *testing.T) {
		stub := &llm.Stub{Err: errors.New("upstream down")}
		e := New(catalog.Default(), stub)
		_, err := e.Extract(context.Background(), "run my jacuzzi at 7pm")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})

	t.Run("not consulted when the rules succeed", func(t *testing.T) {
		stub := &llm.Stub{}
		e := New(catalog.Default(), stub)
		_, err := e.Extract(context.Background(), "oven at 6pm")
		require.NoError(t, err)
		assert.Empty(t, stub.Prompts)
	})
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		utterance string
		want      Window
	}{
		{"at 11am", Window{EarliestStart: 44, LatestEnd: 96, Fixed: true}},
		{"at 14:30", Window{EarliestStart: 58, LatestEnd: 96, Fixed: true}},
		{"around noon", Window{EarliestStart: 48, LatestEnd: 96, Fixed: true}},
		{"between 2pm and 6pm", Window{EarliestStart: 56, LatestEnd: 72}},
		{"from 9 to 11am", Window{EarliestStart: 36, LatestEnd: 44}},
		{"before 5pm", Window{EarliestStart: 0, LatestEnd: 68}},
		{"after 10pm", Window{EarliestStart: 88, LatestEnd: 96}},
		{"in the morning", Window{EarliestStart: 24, LatestEnd: 48}},
		{"tonight", Window{EarliestStart: 72, LatestEnd: 96}},
		{"overnight", Window{EarliestStart: 0, LatestEnd: 24}},
	}
	for _, tc := range cases {
		t.Run(tc.utterance, func(t *testing.T) {
			got, err := ParseWindow(tc.utterance)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("empty range", func(t *testing.T) {
		_, err := ParseWindow("between 6pm and 2pm")
		assert.ErrorIs(t, err, types.ErrNotUnderstood)
	})
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		utterance string
		want      int
		ok        bool
	}{
		{"for 2 hours", 8, true},
		{"for 90 minutes", 6, true},
		{"for about 1.5 hours", 6, true},
		{"for 10 mins", 1, true},
		{"no duration here", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseDuration(tc.utterance)
		assert.Equal(t, tc.ok, ok, tc.utterance)
		assert.Equal(t, tc.want, got, tc.utterance)
	}
}

func TestMatchDevice(t *testing.T) {
	cat := catalog.Default()

	t.Run("longest name wins", func(t *testing.T) {
		d, ok := matchDevice(cat, "put the washing machine on")
		require.True(t, ok)
		assert.Equal(t, "washing_machine", d.ID)
	})

	t.Run("alias", func(t *testing.T) {
		d, ok := matchDevice(cat, "start the washer")
		require.True(t, ok)
		assert.Equal(t, "washing_machine", d.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := matchDevice(cat, "turn on the sauna")
		assert.False(t, ok)
	})
}
