package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeflux/homeflux/pkg/catalog"
	"github.com/homeflux/homeflux/pkg/session"
	"github.com/homeflux/homeflux/pkg/storage"
	"github.com/homeflux/homeflux/pkg/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	m, err := session.NewManager(storage.NewMemory(), catalog.Default(), nil, session.DefaultBatterySpec())
	require.NoError(t, err)
	ts := httptest.NewServer(New(m).setupHandler())
	t.Cleanup(ts.Close)
	return ts
}

func testForecast() types.Forecast {
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

func postJSON(t *testing.T, url string, body any) *http.Response {
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPIRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/forecast", testForecast())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sched := decode[types.Schedule](t, resp)
	assert.Len(t, sched.GridKW, types.SlotsPerDay)

	resp = postJSON(t, ts.URL+"/api/statement", map[string]string{
		"text": "I want to use my washing machine at 11am",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	c := decode[types.UsageConstraint](t, resp)
	assert.Equal(t, "washing_machine", c.DeviceID)
	assert.Equal(t, 44, c.ResolvedStart)

	resp = postJSON(t, ts.URL+"/api/question", map[string]string{
		"text": "why is usage up at 11am?",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	answer := decode[map[string]string](t, resp)
	assert.Contains(t, answer["answer"], "washing machine")

	resp2, err := http.Get(ts.URL + "/api/schedule")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp2, err = http.Get(ts.URL + "/api/attribution")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	records := decode[[]types.AttributionRecord](t, resp2)
	assert.NotEmpty(t, records)

	resp2, err = http.Get(ts.URL + "/api/constraints")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	constraints := decode[[]types.UsageConstraint](t, resp2)
	assert.Len(t, constraints, 1)
}

func TestAPIErrorStatuses(t *testing.T) {
	ts := newTestServer(t)

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/forecast", "application/json", bytes.NewReader([]byte("{")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("forecast with wrong length", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/forecast", types.Forecast{
			DemandKW:    []float64{1, 2, 3},
			SolarKW:     []float64{0, 0, 0},
			PricePerKWH: []float64{0.1, 0.1, 0.1},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("statement before forecast", func(t *testing.T) {
		resp := postJSON(t, ts.URL+"/api/statement", map[string]string{"text": "oven at 6pm"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("schedule before forecast", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/schedule")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("statement not understood", func(t *testing.T) {
		require.Equal(t, http.StatusOK, postJSON(t, ts.URL+"/api/forecast", testForecast()).StatusCode)
		resp := postJSON(t, ts.URL+"/api/statement", map[string]string{"text": "run my jacuzzi at 7pm"})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		var body struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Contains(t, body.Error, "jacuzzi")
	})
}

func TestAPIHouseholdsAreIsolated(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, fmt.Sprintf("%s/api/forecast?household=a", ts.URL), testForecast())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/api/schedule?household=b")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode, "household b has no forecast yet")

	resp2, err = http.Get(ts.URL + "/api/schedule?household=a")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
