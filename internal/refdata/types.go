// Package refdata fetches the immutable reference entities a treatment form
// needs (parcels, machines, and the products eligible for a treatment type) and
// exposes them as keyed lookup tables.
package refdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"agrogest/internal/dose"
)

// ErrUnavailable marks a failed fetch: transport error, non-2xx status, or a
// malformed payload. Fetches are never retried automatically.
var ErrUnavailable = errors.New("refdata: reference data unavailable")

// ErrStale is returned by Gateway.LoadProducts when a newer product request
// was issued while this one was in flight. Its response is discarded.
var ErrStale = errors.New("refdata: stale product response discarded")

// Parcel is a parcel record as served by the reference endpoint.
type Parcel struct {
	ID   uint    `json:"id"`
	Name string  `json:"name"`
	Area float64 `json:"area"`
	Crop string  `json:"crop"`
}

// Machine is a machine record as served by the reference endpoint.
type Machine struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Capacity float64 `json:"capacity"`
}

// Product is a product eligible for one treatment type, with the default dose
// for that type.
type Product struct {
	ID              uint     `json:"id"`
	Name            string   `json:"name"`
	Dose            *float64 `json:"dose"`
	DoseType        string   `json:"dose_type"`
	DoseTypeDisplay string   `json:"dose_type_display"`

	Basis dose.Basis `json:"-"`
	Unit  dose.Unit  `json:"-"`
}

// DefaultDose returns the catalogue dose for the product, if any.
func (p Product) DefaultDose() dose.Amount {
	if p.Dose == nil {
		return dose.None
	}
	return dose.Some(*p.Dose)
}

// DefaultDoseLabel renders the default dose with its unit label, e.g. "2 L/1000L agua".
func (p Product) DefaultDoseLabel() string {
	if p.Dose == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%g %s", *p.Dose, p.DoseTypeDisplay))
}

// Resolve derives Basis and Unit from the dose type code.
func (p *Product) Resolve() error {
	if p.ID == 0 {
		return errors.New("product without id")
	}
	basis, unit, err := dose.ParseDoseType(p.DoseType)
	if err != nil {
		return fmt.Errorf("product %d: %w", p.ID, err)
	}
	p.Basis = basis
	p.Unit = unit
	return nil
}

// Fetcher retrieves reference records from a data service.
type Fetcher interface {
	Parcels(ctx context.Context) ([]Parcel, error)
	Machines(ctx context.Context) ([]Machine, error)
	Products(ctx context.Context, treatmentType string) ([]Product, error)
}
