package refdata

import (
	"context"
	"errors"
	"testing"
)

type productResponse struct {
	products []Product
	err      error
}

type fakeFetcher struct {
	parcels     []Parcel
	parcelsErr  error
	machines    []Machine
	machinesErr error

	// products answers immediately unless gates holds a channel for the type.
	products map[string][]Product
	gates    map[string]chan productResponse
	started  chan string
}

func (f *fakeFetcher) Parcels(context.Context) ([]Parcel, error) {
	return f.parcels, f.parcelsErr
}

func (f *fakeFetcher) Machines(context.Context) ([]Machine, error) {
	return f.machines, f.machinesErr
}

func (f *fakeFetcher) Products(_ context.Context, treatmentType string) ([]Product, error) {
	if f.started != nil {
		f.started <- treatmentType
	}
	if gate, ok := f.gates[treatmentType]; ok {
		resp := <-gate
		return resp.products, resp.err
	}
	return f.products[treatmentType], nil
}

func TestGatewayLoadsLookupTables(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		parcels:  []Parcel{{ID: 2, Name: "North", Area: 2, Crop: "Olive"}, {ID: 1, Name: "South", Area: 4.5}},
		machines: []Machine{{ID: 7, Name: "Sprayer", Capacity: 2000}},
	}
	gw := NewGateway(fetcher)
	ctx := context.Background()

	if err := gw.LoadParcels(ctx); err != nil {
		t.Fatalf("LoadParcels() error = %v", err)
	}
	if err := gw.LoadMachines(ctx); err != nil {
		t.Fatalf("LoadMachines() error = %v", err)
	}

	parcel, ok := gw.Parcel(2)
	if !ok || parcel.Area != 2 {
		t.Fatalf("Parcel(2) = %+v, %t", parcel, ok)
	}
	if list := gw.ParcelList(); len(list) != 2 || list[0].ID != 2 || list[1].ID != 1 {
		t.Fatalf("expected parcels in fetch order, got %+v", list)
	}
	if machine, ok := gw.Machine(7); !ok || machine.Capacity != 2000 {
		t.Fatalf("Machine(7) = %+v, %t", machine, ok)
	}
	if _, ok := gw.Machine(8); ok {
		t.Fatal("expected unknown machine lookup to miss")
	}
}

func TestGatewayFailureLeavesTableEmpty(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{parcels: []Parcel{{ID: 1, Area: 1}}}
	gw := NewGateway(fetcher)
	ctx := context.Background()
	if err := gw.LoadParcels(ctx); err != nil {
		t.Fatalf("LoadParcels() error = %v", err)
	}

	fetcher.parcelsErr = ErrUnavailable
	err := gw.LoadParcels(ctx)
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if len(gw.ParcelList()) != 0 {
		t.Fatal("expected parcel table to be cleared after failed fetch")
	}
	if !errors.Is(gw.Failure(Parcels), ErrUnavailable) {
		t.Fatalf("expected recorded failure, got %v", gw.Failure(Parcels))
	}

	fetcher.parcelsErr = nil
	if err := gw.LoadParcels(ctx); err != nil {
		t.Fatalf("LoadParcels() error = %v", err)
	}
	if gw.Failure(Parcels) != nil {
		t.Fatal("expected failure to clear after successful fetch")
	}
}

func TestGatewayDiscardsStaleProductResponse(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		gates: map[string]chan productResponse{
			"spraying":    make(chan productResponse),
			"fertigation": make(chan productResponse),
		},
		started: make(chan string, 2),
	}
	gw := NewGateway(fetcher)
	ctx := context.Background()

	staleDone := make(chan error, 1)
	go func() { staleDone <- gw.LoadProducts(ctx, "spraying") }()
	<-fetcher.started

	freshDone := make(chan error, 1)
	go func() { freshDone <- gw.LoadProducts(ctx, "fertigation") }()
	<-fetcher.started

	fetcher.gates["fertigation"] <- productResponse{products: []Product{{ID: 2, Name: "Nitrate", DoseType: "kg_per_ha"}}}
	if err := <-freshDone; err != nil {
		t.Fatalf("fresh LoadProducts() error = %v", err)
	}

	fetcher.gates["spraying"] <- productResponse{products: []Product{{ID: 1, Name: "Copper", DoseType: "kg_per_1000l"}}}
	if err := <-staleDone; !errors.Is(err, ErrStale) {
		t.Fatalf("expected stale response to be discarded, got %v", err)
	}

	if gw.ProductsType() != "fertigation" {
		t.Fatalf("ProductsType() = %q, want fertigation", gw.ProductsType())
	}
	if _, ok := gw.Product(1); ok {
		t.Fatal("stale product must not be applied")
	}
	if _, ok := gw.Product(2); !ok {
		t.Fatal("expected newer product table to survive")
	}
}

func TestGatewayStaleFailureDoesNotClobberTable(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		gates:   map[string]chan productResponse{"spraying": make(chan productResponse)},
		started: make(chan string, 2),
		products: map[string][]Product{
			"fertigation": {{ID: 3, Name: "Potash", DoseType: "kg_per_ha"}},
		},
	}
	gw := NewGateway(fetcher)
	ctx := context.Background()

	staleDone := make(chan error, 1)
	go func() { staleDone <- gw.LoadProducts(ctx, "spraying") }()
	<-fetcher.started

	if err := gw.LoadProducts(ctx, "fertigation"); err != nil {
		t.Fatalf("LoadProducts() error = %v", err)
	}
	<-fetcher.started

	fetcher.gates["spraying"] <- productResponse{err: ErrUnavailable}
	if err := <-staleDone; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if gw.Failure(Products) != nil {
		t.Fatalf("stale failure must not be recorded, got %v", gw.Failure(Products))
	}
	if len(gw.ProductList()) != 1 {
		t.Fatalf("expected fertigation products to remain, got %+v", gw.ProductList())
	}
}

func TestGatewayEmptyTypeClearsProducts(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{products: map[string][]Product{"spraying": {{ID: 1, DoseType: "l_per_1000l"}}}}
	gw := NewGateway(fetcher)
	ctx := context.Background()

	if err := gw.LoadProducts(ctx, "spraying"); err != nil {
		t.Fatalf("LoadProducts() error = %v", err)
	}
	if err := gw.LoadProducts(ctx, ""); err != nil {
		t.Fatalf("LoadProducts(\"\") error = %v", err)
	}
	if len(gw.ProductList()) != 0 || gw.ProductsType() != "" {
		t.Fatal("expected product table to be cleared")
	}
}
