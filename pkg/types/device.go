package types

import "fmt"

// Device describes one appliance from the closed household catalog.
type Device struct {
	ID string `json:"id" yaml:"id"`
	// RatedKW is the power the device draws while running.
	RatedKW float64 `json:"ratedKW" yaml:"ratedKW"`
	// TypicalSlots is the default run duration when the user does not state
	// one, in 15-minute slots.
	TypicalSlots int `json:"typicalSlots" yaml:"typicalSlots"`
	// Aliases are additional names the extractor matches against,
	// e.g. "washer" for "washing_machine".
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Validate checks a single catalog entry.
func (d Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: device id is empty", ErrInvalidInput)
	}
	if d.RatedKW <= 0 {
		return fmt.Errorf("%w: device %s rated power must be positive", ErrInvalidInput, d.ID)
	}
	if d.TypicalSlots <= 0 || d.TypicalSlots > SlotsPerDay {
		return fmt.Errorf("%w: device %s typical duration %d outside 1..%d slots", ErrInvalidInput, d.ID, d.TypicalSlots, SlotsPerDay)
	}
	return nil
}

// DeviceCatalog is the fixed mapping from device id to its capabilities.
// The set is closed and known a priori; the extractor never invents devices.
type DeviceCatalog map[string]Device

// Device looks up a catalog entry by id.
func (c DeviceCatalog) Device(id string) (Device, bool) {
	d, ok := c[id]
	return d, ok
}

// IDs returns the catalog ids in unspecified order.
func (c DeviceCatalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	return ids
}

// Validate checks every entry of the catalog.
func (c DeviceCatalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: device catalog is empty", ErrInvalidInput)
	}
	for id, d := range c {
		if d.ID != id {
			return fmt.Errorf("%w: catalog key %q does not match device id %q", ErrInvalidInput, id, d.ID)
		}
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
