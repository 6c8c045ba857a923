package explain

import (
	"fmt"
	"strings"

	"github.com/homeflux/homeflux/pkg/types"
)

const promptHeader = `You explain a home energy schedule to its owner.
Answer the question below using ONLY the verified facts listed. Do not add
numbers, times or reasons that are not in the facts. Keep the answer to two
or three plain sentences, no markdown.`

// buildPrompt assembles the model prompt from the question and the verified
// fact sheet. The facts are the only material the model may use.
func buildPrompt(question string, records []types.AttributionRecord, sched types.Schedule, notes []string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nFacts:\n")
	for _, r := range records {
		b.WriteString("- ")
		b.WriteString(factLine(r))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "- The plan costs %.2f for the day in total.\n", sched.TotalCost)
	for _, note := range notes {
		b.WriteString("- ")
		b.WriteString(note)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// factLine renders one attribution record as a verified fact.
func factLine(r types.AttributionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", types.SlotRangeClock(r.StartSlot, r.EndSlot), actionPhrase(r))
	if reasons := reasonPhrases(r); len(reasons) > 0 {
		b.WriteString(" because ")
		b.WriteString(joinAnd(reasons))
	}
	b.WriteString(".")
	return b.String()
}

const activityKW = 1e-6

func actionPhrase(r types.AttributionRecord) string {
	var parts []string
	switch {
	case r.AvgBatteryKW > activityKW:
		parts = append(parts, fmt.Sprintf("the battery charges at %.1f kW", r.AvgBatteryKW))
	case r.AvgBatteryKW < -activityKW:
		parts = append(parts, fmt.Sprintf("the battery discharges at %.1f kW", -r.AvgBatteryKW))
	}
	switch {
	case r.AvgGridKW > activityKW:
		parts = append(parts, fmt.Sprintf("the home imports %.1f kW from the grid", r.AvgGridKW))
	case r.AvgGridKW < -activityKW:
		parts = append(parts, fmt.Sprintf("the home exports %.1f kW to the grid", -r.AvgGridKW))
	}
	if len(parts) == 0 {
		parts = append(parts, "the home runs without battery or grid activity")
	}
	return joinAnd(parts)
}

func reasonPhrases(r types.AttributionRecord) []string {
	reasons := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		switch tag.Kind {
		case types.DriverLowPrice:
			reasons = append(reasons, fmt.Sprintf("the electricity price is low (%.2f/kWh)", tag.Magnitude))
		case types.DriverHighPrice:
			reasons = append(reasons, fmt.Sprintf("the electricity price is high (%.2f/kWh)", tag.Magnitude))
		case types.DriverSolarSurplus:
			reasons = append(reasons, fmt.Sprintf("solar generation exceeds demand by %.1f kW", tag.Magnitude))
		case types.DriverDemandSpike:
			reasons = append(reasons, fmt.Sprintf("household demand peaks at %.1f kW", tag.Magnitude))
		case types.DriverUserConstraint:
			reasons = append(reasons, fmt.Sprintf("you asked to run the %s then", deviceName(tag.DeviceID)))
		}
	}
	return reasons
}

func deviceName(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

// templateAnswer is the deterministic answer used when no model is available.
// It reads the fact sheet back as prose, leading with the longest interval.
func templateAnswer(records []types.AttributionRecord) string {
	lead := 0
	for i, r := range records {
		if r.EndSlot-r.StartSlot > records[lead].EndSlot-records[lead].StartSlot {
			lead = i
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Between %s, %s because %s.",
		types.SlotRangeClock(records[lead].StartSlot, records[lead].EndSlot),
		actionPhrase(records[lead]),
		joinAnd(reasonPhrases(records[lead])))
	for i, r := range records {
		if i == lead {
			continue
		}
		b.WriteString(" ")
		b.WriteString(capitalize(factLine(r)))
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
