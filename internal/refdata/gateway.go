package refdata

import (
	"context"
	"errors"
	"sync"
	"time"

	applog "agrogest/internal/log"
)

// Table names a reference lookup table held by the Gateway.
type Table string

const (
	Parcels  Table = tableParcels
	Machines Table = tableMachines
	Products Table = tableProducts
)

type table[T any] struct {
	order []uint
	byID  map[uint]T
}

func newTable[T any](items []T, id func(T) uint) table[T] {
	t := table[T]{
		order: make([]uint, 0, len(items)),
		byID:  make(map[uint]T, len(items)),
	}
	for _, item := range items {
		key := id(item)
		if _, dup := t.byID[key]; !dup {
			t.order = append(t.order, key)
		}
		t.byID[key] = item
	}
	return t
}

func (t table[T]) get(id uint) (T, bool) {
	item, ok := t.byID[id]
	return item, ok
}

func (t table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byID[id])
	}
	return out
}

// Gateway holds the reference lookup tables for one form session. A failed
// fetch leaves its table empty and records the error for inline display.
//
// Product fetches carry a request generation: a response is only applied when
// no newer product request, for any type, was issued while it was in flight.
// The counter spans types so a late answer for the previous type cannot
// replace the table of the current one.
type Gateway struct {
	fetcher Fetcher

	mu           sync.Mutex
	parcels      table[Parcel]
	machines     table[Machine]
	products     table[Product]
	productsType string
	issued       uint64
	failures     map[Table]error
}

// NewGateway creates a Gateway with empty tables.
func NewGateway(fetcher Fetcher) *Gateway {
	return &Gateway{
		fetcher:  fetcher,
		parcels:  newTable[Parcel](nil, parcelID),
		machines: newTable[Machine](nil, machineID),
		products: newTable[Product](nil, productID),
		failures: make(map[Table]error),
	}
}

func parcelID(p Parcel) uint   { return p.ID }
func machineID(m Machine) uint { return m.ID }
func productID(p Product) uint { return p.ID }

// LoadParcels replaces the parcel table.
func (g *Gateway) LoadParcels(ctx context.Context) error {
	start := time.Now()
	parcels, err := g.fetcher.Parcels(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.parcels = newTable[Parcel](nil, parcelID)
		g.failures[Parcels] = err
		observeFetch(tableParcels, "error", time.Since(start).Seconds())
		applog.Error(ctx, "parcel fetch failed", "error", err)
		return err
	}
	g.parcels = newTable(parcels, parcelID)
	delete(g.failures, Parcels)
	observeFetch(tableParcels, "ok", time.Since(start).Seconds())
	applog.Debug(ctx, "parcels loaded", "count", len(parcels))
	return nil
}

// LoadMachines replaces the machine table.
func (g *Gateway) LoadMachines(ctx context.Context) error {
	start := time.Now()
	machines, err := g.fetcher.Machines(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.machines = newTable[Machine](nil, machineID)
		g.failures[Machines] = err
		observeFetch(tableMachines, "error", time.Since(start).Seconds())
		applog.Error(ctx, "machine fetch failed", "error", err)
		return err
	}
	g.machines = newTable(machines, machineID)
	delete(g.failures, Machines)
	observeFetch(tableMachines, "ok", time.Since(start).Seconds())
	applog.Debug(ctx, "machines loaded", "count", len(machines))
	return nil
}

// LoadProducts fetches the products eligible for treatmentType. An empty type
// clears the table without a fetch. ErrStale is returned, and nothing is
// applied, when a newer request superseded this one.
func (g *Gateway) LoadProducts(ctx context.Context, treatmentType string) error {
	g.mu.Lock()
	g.issued++
	generation := g.issued
	if treatmentType == "" {
		g.products = newTable[Product](nil, productID)
		g.productsType = ""
		delete(g.failures, Products)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	applog.Debug(ctx, "fetching products", "type", treatmentType, "generation", generation)
	start := time.Now()
	products, err := g.fetcher.Products(ctx, treatmentType)

	g.mu.Lock()
	defer g.mu.Unlock()
	if generation != g.issued {
		observeFetch(tableProducts, "stale", time.Since(start).Seconds())
		applog.Debug(ctx, "discarding stale product response", "type", treatmentType, "generation", generation, "latest", g.issued)
		return ErrStale
	}
	g.productsType = treatmentType
	if err != nil {
		g.products = newTable[Product](nil, productID)
		g.failures[Products] = err
		observeFetch(tableProducts, "error", time.Since(start).Seconds())
		applog.Error(ctx, "product fetch failed", "type", treatmentType, "error", err)
		return err
	}
	g.products = newTable(products, productID)
	delete(g.failures, Products)
	observeFetch(tableProducts, "ok", time.Since(start).Seconds())
	applog.Debug(ctx, "products loaded", "type", treatmentType, "count", len(products))
	return nil
}

// Parcel looks up a parcel by id.
func (g *Gateway) Parcel(id uint) (Parcel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.parcels.get(id)
}

// Machine looks up a machine by id.
func (g *Gateway) Machine(id uint) (Machine, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.machines.get(id)
}

// Product looks up an eligible product by id.
func (g *Gateway) Product(id uint) (Product, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.products.get(id)
}

// ParcelList returns the parcels in fetch order.
func (g *Gateway) ParcelList() []Parcel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.parcels.list()
}

// MachineList returns the machines in fetch order.
func (g *Gateway) MachineList() []Machine {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.machines.list()
}

// ProductList returns the eligible products in fetch order.
func (g *Gateway) ProductList() []Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.products.list()
}

// ProductsType is the treatment type the product table currently belongs to.
func (g *Gateway) ProductsType() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.productsType
}

// Failure returns the error of the last fetch of the table, or nil.
func (g *Gateway) Failure(t Table) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[t]
}

// IsUnavailable reports whether err came from a failed fetch.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
