package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/homeflux/homeflux/pkg/catalog"
	"github.com/homeflux/homeflux/pkg/log"
	"github.com/homeflux/homeflux/pkg/session"
	"github.com/homeflux/homeflux/pkg/storage"
	"github.com/homeflux/homeflux/pkg/types"
)

// seed runs one demo day through the whole pipeline offline: a synthetic
// forecast, a couple of statements and a question, all against the flag-
// selected storage backend.
func main() {
	db := storage.Configured()
	sessions := session.Configured(db, catalog.Default(), nil)
	lflag.Configure()

	ctx := context.Background()
	log.Ctx(ctx).InfoContext(ctx, "seeding demo day")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	f := demoForecast(rng)

	s, err := sessions.Session(ctx, "default")
	if err != nil {
		fatal(ctx, err)
	}
	sched, err := s.SetForecast(ctx, f)
	if err != nil {
		fatal(ctx, err)
	}
	fmt.Printf("solved demo day, total cost %.2f\n", sched.TotalCost)

	for _, statement := range []string{
		"run the washing machine between 10am and 2pm",
		"charge the ev charger for 3 hours overnight",
	} {
		c, err := s.AddStatement(ctx, statement)
		if err != nil {
			fatal(ctx, err)
		}
		fmt.Printf("%q -> %s %s\n", statement, c.DeviceID, types.SlotRangeClock(c.ResolvedStart, c.ResolvedStart+c.DurationSlots))
	}

	for _, question := range []string{
		"why is the battery charging in the morning?",
		"why does the plan look like this?",
	} {
		answer, err := s.Ask(ctx, question)
		if err != nil {
			fatal(ctx, err)
		}
		fmt.Printf("Q: %s\nA: %s\n", question, answer)
	}

	if err := db.Close(); err != nil {
		fatal(ctx, err)
	}
}

// demoForecast builds a plausible day: a sinusoidal tariff that bottoms out
// in the early afternoon, a solar bell around noon and a morning/evening
// demand pattern, all lightly jittered.
func demoForecast(rng *rand.Rand) types.Forecast {
	f := types.Forecast{
		DemandKW:    make([]float64, types.SlotsPerDay),
		SolarKW:     make([]float64, types.SlotsPerDay),
		PricePerKWH: make([]float64, types.SlotsPerDay),
	}
	for t := 0; t < types.SlotsPerDay; t++ {
		hour := float64(t) * types.SlotHours

		f.PricePerKWH[t] = 0.25 + 0.15*math.Sin(2*math.Pi*(hour+6)/24) + (rng.Float64()*0.02 - 0.01)

		// solar bell centred on 13:00
		f.SolarKW[t] = 4.0 * math.Exp(-math.Pow(hour-13, 2)/8)
		if f.SolarKW[t] < 0.01 {
			f.SolarKW[t] = 0
		}

		demand := 0.4
		if hour >= 6 && hour < 9 {
			demand = 1.2
		} else if hour >= 17 && hour < 22 {
			demand = 1.8
		}
		f.DemandKW[t] = demand + rng.Float64()*0.1
	}
	return f
}

func fatal(ctx context.Context, err error) {
	log.Ctx(ctx).ErrorContext(ctx, "seed failed", "error", err)
	os.Exit(1)
}
