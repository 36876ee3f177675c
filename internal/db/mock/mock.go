package mock

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"agrogest/internal/db"
	applog "agrogest/internal/log"
	"agrogest/models"
)

// New returns an in-memory sqlite database seeded with a small farm: a few
// parcels, two machines and a product catalogue covering every dose type.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := gorm.Open(sqlite.Open("file:agrogest-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		return nil, err
	}

	var existing int64
	if err := database.WithContext(ctx).Model(&models.Parcel{}).Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing == 0 {
		if err := seed(ctx, database); err != nil {
			return nil, err
		}
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	parcels := []models.Parcel{
		{Name: "Olivar Norte", Area: 2.5, Crop: "Olive", PlantingYear: 2009, Location: "Jaén"},
		{Name: "Almendros del Cerro", Area: 4.2, Crop: "Almond", PlantingYear: 2016, Location: "Úbeda"},
		{Name: "Viña Baja", Area: 1.35, Crop: "Vineyard", PlantingYear: 2001, Location: "Baeza"},
	}
	machines := []models.Machine{
		{Name: "Atomizador Hardi", Type: "sprayer", Capacity: 2000},
		{Name: "Pulverizador suspendido", Type: "sprayer", Capacity: 1000},
	}
	products := []models.Product{
		{
			Name:             "Oxicloruro de cobre 50%",
			Category:         "pesticide",
			SprayingDose:     float(3),
			SprayingDoseType: code("kg_per_1000l"),
		},
		{
			Name:             "Azufre mojable 80%",
			Category:         "pesticide",
			SprayingDose:     float(4),
			SprayingDoseType: code("kg_per_2000l"),
		},
		{
			Name:             "Aceite de parafina",
			Category:         "pesticide",
			SprayingDose:     float(1.5),
			SprayingDoseType: code("pct"),
		},
		{
			Name:             "Dimetoato 40%",
			Category:         "pesticide",
			SprayingDose:     float(1),
			SprayingDoseType: code("l_per_1000l"),
		},
		{
			Name:                "Nitrato potásico",
			Category:            "fertilizer",
			FertigationDose:     float(25),
			FertigationDoseType: code("kg_per_ha"),
		},
		{
			Name:                "Ácidos húmicos",
			Category:            "fertilizer",
			Comments:            "Also applied foliar at 2 L per 2000 L of water.",
			SprayingDose:        float(2),
			SprayingDoseType:    code("l_per_2000l"),
			FertigationDose:     float(10),
			FertigationDoseType: code("l_per_ha"),
		},
	}

	return database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&parcels).Error; err != nil {
			return err
		}
		if err := tx.Create(&machines).Error; err != nil {
			return err
		}
		return tx.Create(&products).Error
	})
}

func float(v float64) *float64 { return &v }

func code(v string) *string { return &v }
