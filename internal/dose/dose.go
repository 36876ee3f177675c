// Package dose converts between a per-unit product dose and the total quantity
// needed for a treatment, given the parcel area and the carrier liquid volume.
package dose

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Basis is the unit convention a dose is expressed in.
type Basis int

const (
	// PerArea doses are expressed per hectare.
	PerArea Basis = iota
	// Per1000LCarrier doses are expressed per 1000 L of carrier liquid.
	Per1000LCarrier
	// Per2000LCarrier doses are expressed per 2000 L of carrier liquid.
	Per2000LCarrier
	// PercentCarrier doses are a percentage of the carrier liquid volume.
	PercentCarrier
)

func (b Basis) String() string {
	switch b {
	case PerArea:
		return "per_ha"
	case Per1000LCarrier:
		return "per_1000l"
	case Per2000LCarrier:
		return "per_2000l"
	case PercentCarrier:
		return "pct"
	default:
		return fmt.Sprintf("basis(%d)", int(b))
	}
}

// carrierReference returns the reference carrier volume the basis is expressed
// against. Area based doses report false.
func (b Basis) carrierReference() (float64, bool) {
	switch b {
	case Per1000LCarrier:
		return 1000, true
	case Per2000LCarrier:
		return 2000, true
	case PercentCarrier:
		return 100, true
	default:
		return 0, false
	}
}

// UsesCarrier reports whether the basis depends on carrier volume rather than area.
func (b Basis) UsesCarrier() bool {
	_, ok := b.carrierReference()
	return ok
}

// Unit is the physical kind of a product quantity.
type Unit int

const (
	Volume Unit = iota
	Mass
)

// Symbol returns the total-quantity unit shown next to a computed total.
func (u Unit) Symbol() string {
	if u == Mass {
		return "kg"
	}
	return "L"
}

func (u Unit) String() string {
	if u == Mass {
		return "mass"
	}
	return "volume"
}

// ParseDoseType maps a catalogue dose type code such as "kg_per_1000l" to its
// basis and unit.
func ParseDoseType(code string) (Basis, Unit, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "pct" {
		return PercentCarrier, Volume, nil
	}

	unit := Volume
	switch {
	case strings.HasPrefix(normalized, "kg_"):
		unit = Mass
	case strings.HasPrefix(normalized, "l_"):
	default:
		return 0, 0, fmt.Errorf("dose: unknown dose type %q", code)
	}

	switch {
	case strings.HasSuffix(normalized, "_per_ha"):
		return PerArea, unit, nil
	case strings.HasSuffix(normalized, "_per_1000l"):
		return Per1000LCarrier, unit, nil
	case strings.HasSuffix(normalized, "_per_2000l"):
		return Per2000LCarrier, unit, nil
	}
	return 0, 0, fmt.Errorf("dose: unknown dose type %q", code)
}

// Amount is a quantity that may be absent. The zero value is "no value".
type Amount struct {
	Value float64
	Valid bool
}

// None is the absent amount.
var None = Amount{}

// Some wraps a present value. NaN and infinities are reported as absent.
func Some(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return None
	}
	return Amount{Value: v, Valid: true}
}

// Positive reports whether the amount is present and greater than zero. Zero
// and negative inputs are treated like missing ones when deriving the opposite
// field.
func (a Amount) Positive() bool {
	return a.Valid && a.Value > 0
}

func (a Amount) String() string {
	return Format(a)
}

// MarshalJSON encodes an absent amount as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts a number or null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = None
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("dose: decode amount: %w", err)
	}
	*a = Some(value)
	return nil
}

// ToTotal derives the total quantity from a per-unit dose. It returns None
// when the dose is missing or zero, or when the context makes the result
// undefined.
func ToTotal(d Amount, basis Basis, area, carrierVolume float64) Amount {
	if !d.Positive() {
		return None
	}
	if ref, ok := basis.carrierReference(); ok {
		if carrierVolume <= 0 {
			return None
		}
		return Some(d.Value * carrierVolume / ref)
	}
	if area <= 0 {
		return None
	}
	return Some(d.Value * area)
}

// ToDose is the inverse of ToTotal. A zero area or carrier volume yields None
// rather than a division by zero.
func ToDose(total Amount, basis Basis, area, carrierVolume float64) Amount {
	if !total.Positive() {
		return None
	}
	if ref, ok := basis.carrierReference(); ok {
		if carrierVolume <= 0 {
			return None
		}
		return Some(total.Value * ref / carrierVolume)
	}
	if area <= 0 {
		return None
	}
	return Some(total.Value / area)
}

const truncateEpsilon = 1e-7

// Truncate drops everything past the second decimal place. It never rounds:
// 12.346 becomes 12.34.
func Truncate(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	// The epsilon keeps values such as 0.29 (stored as 0.28999...) intact. It
	// is fixed so large values are cut, not carried into the next cent.
	scaled := v * 100
	if v >= 0 {
		return math.Floor(scaled+truncateEpsilon) / 100
	}
	return math.Ceil(scaled-truncateEpsilon) / 100
}

// TruncateAmount applies Truncate to a present amount.
func TruncateAmount(a Amount) Amount {
	if !a.Valid {
		return None
	}
	return Amount{Value: Truncate(a.Value), Valid: true}
}

// Format renders an amount truncated to two decimals, or the empty string
// when absent.
func Format(a Amount) string {
	if !a.Valid {
		return ""
	}
	return strconv.FormatFloat(Truncate(a.Value), 'f', 2, 64)
}

// ParseAmount reads raw user input. Blank, non-numeric and non-finite input is
// None. Input with more than two decimals is truncated, as the entry fields
// only accept two.
func ParseAmount(raw string) Amount {
	trimmed := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if trimmed == "" {
		return None
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return None
	}
	a := Some(value)
	if !a.Valid {
		return None
	}
	if dot := strings.IndexByte(trimmed, '.'); dot >= 0 && len(trimmed)-dot-1 > 2 {
		return TruncateAmount(a)
	}
	return a
}
