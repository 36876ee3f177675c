package treatment

import (
	"context"
	"testing"

	"agrogest/internal/refdata"
)

type stubFetcher struct {
	parcels     []refdata.Parcel
	machines    []refdata.Machine
	products    map[string][]refdata.Product
	productsErr error
}

func (s *stubFetcher) Parcels(context.Context) ([]refdata.Parcel, error) {
	return s.parcels, nil
}

func (s *stubFetcher) Machines(context.Context) ([]refdata.Machine, error) {
	return s.machines, nil
}

func (s *stubFetcher) Products(_ context.Context, treatmentType string) ([]refdata.Product, error) {
	if s.productsErr != nil {
		return nil, s.productsErr
	}
	out := make([]refdata.Product, 0, len(s.products[treatmentType]))
	for _, product := range s.products[treatmentType] {
		if err := product.Resolve(); err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, nil
}

func floatPtr(v float64) *float64 { return &v }

// Product ids used across the tests.
const (
	copperID  = 10
	sulfurID  = 11
	oilID     = 12
	mixedID   = 13
	nitrateID = 20
)

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		parcels: []refdata.Parcel{
			{ID: 1, Name: "Olivar Norte", Area: 2, Crop: "Olive"},
			{ID: 2, Name: "Barbecho", Area: 0, Crop: ""},
			{ID: 3, Name: "Almendros", Area: 4, Crop: "Almond"},
		},
		machines: []refdata.Machine{
			{ID: 7, Name: "Atomizador", Type: "sprayer", Capacity: 2000},
		},
		products: map[string][]refdata.Product{
			"spraying": {
				{ID: copperID, Name: "Copper", Dose: floatPtr(150), DoseType: "l_per_1000l", DoseTypeDisplay: "L/1000L agua"},
				{ID: sulfurID, Name: "Sulfur", Dose: floatPtr(3), DoseType: "kg_per_ha", DoseTypeDisplay: "kg/ha"},
				{ID: oilID, Name: "Oil", Dose: floatPtr(1), DoseType: "pct", DoseTypeDisplay: "%"},
				{ID: mixedID, Name: "Mixed", Dose: floatPtr(1.5), DoseType: "l_per_2000l", DoseTypeDisplay: "L/2000L agua"},
			},
			"fertigation": {
				{ID: mixedID, Name: "Mixed", Dose: floatPtr(5), DoseType: "l_per_ha", DoseTypeDisplay: "L/ha"},
				{ID: nitrateID, Name: "Nitrate", DoseType: "kg_per_ha", DoseTypeDisplay: "kg/ha"},
			},
		},
	}
}

// newTestForm returns a form whose lookup tables are loaded from fetcher.
func newTestForm(t *testing.T, fetcher *stubFetcher, maxRows int) *Form {
	t.Helper()
	form, err := NewForm(Settings{MaxRows: maxRows}, refdata.NewGateway(fetcher))
	if err != nil {
		t.Fatalf("NewForm() error = %v", err)
	}
	if err := form.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return form
}

// newSprayingForm returns a form on parcel 1 (2 ha) with spraying at 850 L/ha.
func newSprayingForm(t *testing.T) *Form {
	t.Helper()
	form := newTestForm(t, newStubFetcher(), 5)
	if err := form.SetParcel(1); err != nil {
		t.Fatalf("SetParcel() error = %v", err)
	}
	if err := form.SetType(context.Background(), "spraying"); err != nil {
		t.Fatalf("SetType() error = %v", err)
	}
	return form
}
