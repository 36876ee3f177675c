package treatment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agrogest/internal/dose"
	applog "agrogest/internal/log"
	"agrogest/internal/refdata"
)

const (
	DefaultMaxRows = 10
	DefaultSetName = "treatmentproduct_set"

	dateLayout = "2006-01-02"
)

// Settings is the form descriptor fixed for the life of a form.
type Settings struct {
	MaxRows int
	SetName string
}

func (s Settings) withDefaults() Settings {
	if strings.TrimSpace(s.SetName) == "" {
		s.SetName = DefaultSetName
	}
	if s.MaxRows == 0 {
		s.MaxRows = DefaultMaxRows
	}
	return s
}

// Form is one treatment being filled in. Every mutation runs synchronously and
// leaves all rows recomputed against the current context.
type Form struct {
	id       uuid.UUID
	revision uint64
	settings Settings
	gateway  *refdata.Gateway

	step       Step
	tc         Context
	name       string
	date       time.Time
	finishDate time.Time
	rows       *Rows
}

// NewForm creates an empty form on the Info step.
func NewForm(settings Settings, gateway *refdata.Gateway) (*Form, error) {
	if gateway == nil {
		return nil, errors.New("treatment: gateway must not be nil")
	}
	settings = settings.withDefaults()
	rows, err := NewRows(settings.MaxRows)
	if err != nil {
		return nil, err
	}
	return &Form{
		id:       uuid.New(),
		settings: settings,
		gateway:  gateway,
		step:     StepInfo,
		rows:     rows,
	}, nil
}

func (f *Form) ID() uuid.UUID { return f.id }
func (f *Form) Revision() uint64 { return f.revision }
func (f *Form) Settings() Settings { return f.settings }
func (f *Form) Gateway() *refdata.Gateway { return f.gateway }
func (f *Form) Step() Step { return f.step }
func (f *Form) Context() Context { return f.tc }
func (f *Form) Name() string { return f.name }
func (f *Form) Date() time.Time { return f.date }
func (f *Form) FinishDate() time.Time { return f.finishDate }
func (f *Form) Rows() *Rows { return f.rows }
func (f *Form) Lines() []*Line { return f.rows.Lines() }
func (f *Form) Row(index int) (*Line, error) { return f.rows.Row(index) }

// Revise marks a new stored revision of the form. Callers revise once per
// saved edit so concurrent edits of the same form can be told apart.
func (f *Form) Revise() uint64 {
	f.revision++
	return f.revision
}

// Refresh loads the lookup tables the form renders from: parcels, machines,
// and the products of the current treatment type. Failures are recorded on
// the gateway for inline display and returned joined.
func (f *Form) Refresh(ctx context.Context) error {
	var errs []error
	if err := f.gateway.LoadParcels(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := f.gateway.LoadMachines(ctx); err != nil {
		errs = append(errs, err)
	}
	if f.tc.Type != TypeUnset {
		if err := f.gateway.LoadProducts(ctx, string(f.tc.Type)); err != nil && !errors.Is(err, refdata.ErrStale) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetParcel selects a parcel; 0 clears the selection. An unknown parcel is
// rejected and the current selection kept.
func (f *Form) SetParcel(id uint) error {
	if id == 0 {
		f.tc.ParcelID, f.tc.Area = 0, 0
		f.recomputeAll()
		return nil
	}
	parcel, ok := f.gateway.Parcel(id)
	if !ok {
		return fmt.Errorf("%w: parcel %d", ErrUnknownReference, id)
	}
	f.tc.ParcelID, f.tc.Area = parcel.ID, parcel.Area
	f.recomputeAll()
	return nil
}

// SetMachine selects a machine; 0 clears the selection. Fertigation
// treatments take no machine and ignore the call. An unknown machine is
// rejected and the current selection kept.
func (f *Form) SetMachine(id uint) error {
	if f.tc.Type == Fertigation {
		return nil
	}
	if id == 0 {
		f.tc.MachineID = 0
		return nil
	}
	if _, ok := f.gateway.Machine(id); !ok {
		return fmt.Errorf("%w: machine %d", ErrUnknownReference, id)
	}
	f.tc.MachineID = id
	return nil
}

// SetWaterPerHa sets the carrier rate in L/ha. Fertigation keeps it at 0.
func (f *Form) SetWaterPerHa(rate dose.Amount) {
	if f.tc.Type == Fertigation {
		return
	}
	f.tc.WaterPerHa = rate
	f.recomputeAll()
}

// SetType switches the treatment type. Spraying gets the default carrier rate
// when none is set; fertigation drops the machine and forces the rate to 0.
// The eligible products are refetched and rows whose product is not eligible
// any more are cleared.
func (f *Form) SetType(ctx context.Context, raw string) error {
	t, err := ParseType(raw)
	if err != nil {
		return err
	}
	f.tc.Type = t
	switch t {
	case Spraying:
		if !f.tc.WaterPerHa.Positive() {
			f.tc.WaterPerHa = dose.Some(DefaultWaterPerHa)
		}
	case Fertigation:
		f.tc.MachineID = 0
		f.tc.WaterPerHa = dose.Some(0)
	}

	err = f.gateway.LoadProducts(ctx, string(t))
	if errors.Is(err, refdata.ErrStale) {
		f.recomputeAll()
		return err
	}
	f.invalidateIneligible(ctx)
	f.recomputeAll()
	return err
}

func (f *Form) SetName(name string) {
	f.name = strings.TrimSpace(name)
}

// SetDate sets the treatment date from a YYYY-MM-DD value. Blank clears it.
func (f *Form) SetDate(raw string) error {
	date, err := parseDate(raw)
	f.date = date
	return err
}

// SetFinishDate sets the optional completion date from a YYYY-MM-DD value.
func (f *Form) SetFinishDate(raw string) error {
	date, err := parseDate(raw)
	f.finishDate = date
	return err
}

// AddRow appends an empty product row.
func (f *Form) AddRow() (*Line, error) {
	return f.rows.AddRow()
}

// RemoveRow deletes a product row.
func (f *Form) RemoveRow(index int) error {
	return f.rows.RemoveRow(index)
}

// SelectProduct picks an eligible product for a row; 0 clears it.
func (f *Form) SelectProduct(index int, productID uint) error {
	line, err := f.rows.Row(index)
	if err != nil {
		return err
	}
	if productID == 0 {
		line.SelectProduct(nil, f.tc)
		return nil
	}
	product, ok := f.gateway.Product(productID)
	if !ok {
		return fmt.Errorf("%w: product %d", ErrNoProduct, productID)
	}
	line.SelectProduct(&product, f.tc)
	return nil
}

// EditDose applies raw dose input to a row.
func (f *Form) EditDose(index int, raw string) error {
	line, err := f.rows.Row(index)
	if err != nil {
		return err
	}
	line.EditDose(dose.ParseAmount(raw), f.tc)
	return nil
}

// EditTotal applies raw total input to a row.
func (f *Form) EditTotal(index int, raw string) error {
	line, err := f.rows.Row(index)
	if err != nil {
		return err
	}
	line.EditTotal(dose.ParseAmount(raw), f.tc)
	return nil
}

// ApplyDefaultDose copies the selected product's catalogue dose into the row
// as if the user had typed it.
func (f *Form) ApplyDefaultDose(index int) error {
	line, err := f.rows.Row(index)
	if err != nil {
		return err
	}
	product, ok := line.Product()
	if !ok {
		return fmt.Errorf("%w: row %d has no product", ErrNoProduct, index)
	}
	defaultDose := product.DefaultDose()
	if !defaultDose.Valid {
		return fmt.Errorf("%w: product %d has no default dose", ErrNoProduct, product.ID)
	}
	line.EditDose(dose.TruncateAmount(defaultDose), f.tc)
	return nil
}

func (f *Form) invalidateIneligible(ctx context.Context) {
	f.rows.each(func(line *Line) {
		id := line.ProductID()
		if id == 0 {
			return
		}
		product, ok := f.gateway.Product(id)
		if !ok {
			applog.Debug(ctx, "clearing ineligible product row", "row", line.Index(), "product", id, "type", string(f.tc.Type))
			line.SelectProduct(nil, f.tc)
			return
		}
		line.rebind(product, f.tc)
	})
}

func (f *Form) recomputeAll() {
	f.rows.each(func(line *Line) {
		line.Recompute(f.tc)
	})
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(dateLayout, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("treatment: invalid date %q: %w", raw, err)
	}
	return date, nil
}

func formatDate(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format(dateLayout)
}
