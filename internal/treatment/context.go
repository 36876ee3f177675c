// Package treatment holds the state of a treatment form: the shared treatment
// context, the product rows with their dose/total synchronisation, and the
// two-step completion gate.
package treatment

import (
	"fmt"
	"strings"

	"agrogest/internal/dose"
	"agrogest/models"
)

// Type is the application method of a treatment.
type Type string

const (
	TypeUnset   Type = ""
	Spraying    Type = models.ApplicationSpraying
	Fertigation Type = models.ApplicationFertigation
)

// DefaultWaterPerHa is the carrier rate applied when spraying is chosen
// without one.
const DefaultWaterPerHa = 850.0

// ParseType normalises a treatment type value. Blank input is TypeUnset.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeUnset, Spraying, Fertigation:
		return t, nil
	}
	return TypeUnset, fmt.Errorf("%w: %q", ErrUnknownType, raw)
}

// Context is the treatment-level input shared by every product row.
type Context struct {
	Type       Type
	ParcelID   uint
	Area       float64
	MachineID  uint
	WaterPerHa dose.Amount
}

// CarrierVolume is the total carrier liquid for the parcel in litres. It is
// never negative; a missing rate or area gives 0.
func (c Context) CarrierVolume() float64 {
	if c.Area <= 0 || !c.WaterPerHa.Positive() {
		return 0
	}
	return c.Area * c.WaterPerHa.Value
}

func (c Context) area() float64 {
	if c.Area < 0 {
		return 0
	}
	return c.Area
}
