package refdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	applog "agrogest/internal/log"
	"agrogest/models"
)

// Store serves reference data straight from the application database. It is
// used when no external data service is configured, and backs the reference
// API handlers.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, gorm.ErrInvalidDB
	}
	return &Store{db: db}, nil
}

// Parcels implements Fetcher.
func (s *Store) Parcels(ctx context.Context) ([]Parcel, error) {
	var rows []models.Parcel
	if err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list parcels: %v", ErrUnavailable, err)
	}

	parcels := make([]Parcel, 0, len(rows))
	for _, row := range rows {
		parcels = append(parcels, Parcel{
			ID:   row.ID,
			Name: strings.TrimSpace(row.Name),
			Area: row.Area,
			Crop: strings.TrimSpace(row.Crop),
		})
	}
	return parcels, nil
}

// Machines implements Fetcher.
func (s *Store) Machines(ctx context.Context) ([]Machine, error) {
	var rows []models.Machine
	if err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list machines: %v", ErrUnavailable, err)
	}

	machines := make([]Machine, 0, len(rows))
	for _, row := range rows {
		machines = append(machines, Machine{
			ID:       row.ID,
			Name:     strings.TrimSpace(row.Name),
			Type:     strings.TrimSpace(row.Type),
			Capacity: row.Capacity,
		})
	}
	return machines, nil
}

// Products implements Fetcher. Only products with a dose configured for the
// treatment type are returned; products whose dose type cannot be interpreted
// are skipped with a log entry.
func (s *Store) Products(ctx context.Context, treatmentType string) ([]Product, error) {
	treatmentType = strings.ToLower(strings.TrimSpace(treatmentType))
	if treatmentType == "" {
		return nil, errors.New("refdata: treatment type must not be empty")
	}

	var rows []models.Product
	if err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list products: %v", ErrUnavailable, err)
	}

	products := make([]Product, 0, len(rows))
	for _, row := range rows {
		if !row.Supports(treatmentType) {
			continue
		}
		product := ProjectProduct(row, treatmentType)
		if err := product.Resolve(); err != nil {
			applog.Debug(ctx, "skipping product with unusable dose type", "product", row.ID, "type", treatmentType, "error", err)
			continue
		}
		products = append(products, product)
	}
	return products, nil
}

// ProjectProduct converts a catalogue row into the per-treatment-type product
// record served to the form.
func ProjectProduct(row models.Product, treatmentType string) Product {
	defaultDose, doseType := row.DoseFor(treatmentType)
	var dosePtr *float64
	if defaultDose != nil {
		value := *defaultDose
		dosePtr = &value
	}
	return Product{
		ID:              row.ID,
		Name:            strings.TrimSpace(row.Name),
		Dose:            dosePtr,
		DoseType:        doseType,
		DoseTypeDisplay: models.DoseTypeLabel(doseType),
	}
}
