package types

// DriverKind identifies a cost driver that explains a scheduling decision.
type DriverKind string

const (
	DriverLowPrice       DriverKind = "low_price"
	DriverHighPrice      DriverKind = "high_price"
	DriverSolarSurplus   DriverKind = "solar_surplus"
	DriverDemandSpike    DriverKind = "demand_spike"
	DriverUserConstraint DriverKind = "user_constraint"
)

// DriverTag is a single explanatory factor with its supporting magnitude.
// For price drivers the magnitude is the price, for solar surplus the excess
// generation in kW, for demand spikes the demand in kW and for user
// constraints the device draw in kW.
type DriverTag struct {
	Kind DriverKind `json:"kind"`
	// ConstraintID and DeviceID are set only for user_constraint tags.
	ConstraintID string  `json:"constraintID,omitempty"`
	DeviceID     string  `json:"deviceID,omitempty"`
	Magnitude    float64 `json:"magnitude"`
}

// AttributionRecord tags a slot range [StartSlot, EndSlot) with the cost
// drivers that explain the scheduling decisions inside it. Per-slot records
// have EndSlot == StartSlot+1; consecutive slots with identical tag sets are
// merged into interval records. A record may carry multiple tags; ties are
// reported, never arbitrarily resolved.
type AttributionRecord struct {
	StartSlot int         `json:"startSlot"`
	EndSlot   int         `json:"endSlot"`
	Tags      []DriverTag `json:"tags"`

	// Decision summary for the range, averaged over its slots.
	AvgBatteryKW float64 `json:"avgBatteryKW"`
	AvgGridKW    float64 `json:"avgGridKW"`
	AvgPrice     float64 `json:"avgPrice"`
}

// HasDriver reports whether the record carries a tag of the given kind.
func (r AttributionRecord) HasDriver(kind DriverKind) bool {
	for _, tag := range r.Tags {
		if tag.Kind == kind {
			return true
		}
	}
	return false
}

// ConstraintTag returns the user_constraint tag for the given constraint id,
// or false when absent.
func (r AttributionRecord) ConstraintTag(id string) (DriverTag, bool) {
	for _, tag := range r.Tags {
		if tag.Kind == DriverUserConstraint && tag.ConstraintID == id {
			return tag, true
		}
	}
	return DriverTag{}, false
}
