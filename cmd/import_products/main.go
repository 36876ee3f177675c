package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"agrogest/internal/config"
	"agrogest/internal/db"
	applog "agrogest/internal/log"
	"agrogest/models"
)

const (
	columnName                = "name"
	columnCategory            = "category"
	columnComments            = "comments"
	columnSprayingDose        = "spraying dose"
	columnSprayingDoseType    = "spraying dose type"
	columnFertigationDose     = "fertigation dose"
	columnFertigationDoseType = "fertigation dose type"
)

func main() {
	path := "products.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := run(path); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("catalogue path must not be empty")
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate catalogue: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	records, err := readRecords(path)
	if err != nil {
		return fmt.Errorf("read catalogue: %w", err)
	}

	imported, err := importProducts(context.Background(), database, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d products from %s\n", imported, filepath.Base(path))
	return nil
}

// readRecords reads the catalogue rows keyed by lower-cased header. Files
// ending in .xlsx are read from their first sheet, everything else as CSV.
func readRecords(path string) ([]map[string]string, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXLSX(path)
	} else {
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.New("catalogue is empty")
	}

	header := make([]string, len(rows[0]))
	for idx, key := range rows[0] {
		header[idx] = strings.ToLower(strings.TrimSpace(key))
	}
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}

		record := make(map[string]string, len(header))
		for idx, key := range header {
			if idx >= len(row) {
				continue
			}
			record[key] = strings.TrimSpace(row[idx])
		}
		records = append(records, record)
	}

	return records, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return workbook.GetRows(sheets[0])
}

func importProducts(ctx context.Context, database *gorm.DB, records []map[string]string) (int, error) {
	imported := 0
	for idx, record := range records {
		product, err := buildProduct(record)
		if err != nil {
			return imported, fmt.Errorf("record %d (%s): %w", idx+1, record[columnName], err)
		}
		if product.Name == "" {
			applog.Debug(ctx, "skipping catalogue row without name", "record", idx+1)
			continue
		}

		if err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var existing models.Product
			err := tx.Where("lower(name) = ?", strings.ToLower(product.Name)).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&product).Error; err != nil {
					return fmt.Errorf("create product %q: %w", product.Name, err)
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("find product %q: %w", product.Name, err)
			}

			updates := map[string]any{
				"name":                  product.Name,
				"category":              product.Category,
				"comments":              product.Comments,
				"spraying_dose":         product.SprayingDose,
				"spraying_dose_type":    product.SprayingDoseType,
				"fertigation_dose":      product.FertigationDose,
				"fertigation_dose_type": product.FertigationDoseType,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("update product %q: %w", product.Name, err)
			}
			return nil
		}); err != nil {
			return imported, fmt.Errorf("record %d (%s): %w", idx+1, product.Name, err)
		}
		imported++
	}
	return imported, nil
}

func buildProduct(row map[string]string) (models.Product, error) {
	product := models.Product{
		Name:     strings.TrimSpace(row[columnName]),
		Category: strings.ToLower(normalizeValue(row[columnCategory])),
		Comments: normalizeValue(row[columnComments]),
	}

	var err error
	product.SprayingDose, product.SprayingDoseType, err = parseDose(row[columnSprayingDose], row[columnSprayingDoseType])
	if err != nil {
		return models.Product{}, fmt.Errorf("spraying: %w", err)
	}
	product.FertigationDose, product.FertigationDoseType, err = parseDose(row[columnFertigationDose], row[columnFertigationDoseType])
	if err != nil {
		return models.Product{}, fmt.Errorf("fertigation: %w", err)
	}
	return product, nil
}

// parseDose reads a dose and its type. Both are empty for a product that is
// not used with the application method.
func parseDose(rawDose, rawType string) (*float64, *string, error) {
	rawDose = normalizeValue(rawDose)
	rawType = normalizeValue(rawType)
	if rawDose == "" && rawType == "" {
		return nil, nil, nil
	}
	if rawDose == "" || rawType == "" {
		return nil, nil, fmt.Errorf("dose %q and dose type %q must be given together", rawDose, rawType)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(rawDose, ",", "."), 64)
	if err != nil || value < 0 {
		return nil, nil, fmt.Errorf("invalid dose %q", rawDose)
	}
	code, ok := models.LookupDoseType(rawType)
	if !ok {
		return nil, nil, fmt.Errorf("unknown dose type %q", rawType)
	}
	return &value, &code, nil
}

func normalizeValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "N/A") || value == "-" {
		return ""
	}
	return value
}
