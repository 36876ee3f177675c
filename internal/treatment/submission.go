package treatment

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"agrogest/internal/dose"
)

// Row field names within the product formset.
const (
	FieldProduct    = "product"
	FieldDose       = "dose"
	FieldTotal      = "total_dose"
	FieldLastEdited = "last_edited"
)

// FieldName builds the submitted name of a row field: <set>-<index>-<field>.
func FieldName(set string, index int, field string) string {
	return fmt.Sprintf("%s-%d-%s", set, index, field)
}

// TotalFormsName is the companion field carrying the row count.
func TotalFormsName(set string) string {
	return set + "-TOTAL_FORMS"
}

func initialFormsName(set string) string { return set + "-INITIAL_FORMS" }
func maxFormsName(set string) string { return set + "-MAX_NUM_FORMS" }

// RowInput is one product row as read from submitted values.
type RowInput struct {
	ProductID  uint
	Dose       dose.Amount
	Total      dose.Amount
	LastEdited EditState
}

// Encode renders the form as submission values. Rows are numbered 0..n-1 and
// the total forms field always equals the row count.
func (f *Form) Encode() url.Values {
	set := f.settings.SetName
	values := url.Values{}
	values.Set("type", string(f.tc.Type))
	values.Set("parcel", formatID(f.tc.ParcelID))
	values.Set("machine", formatID(f.tc.MachineID))
	values.Set("water_per_ha", dose.Format(f.tc.WaterPerHa))
	values.Set("name", f.name)
	values.Set("date", formatDate(f.date))
	values.Set("finish_date", formatDate(f.finishDate))

	values.Set(TotalFormsName(set), strconv.Itoa(f.rows.Count()))
	values.Set(initialFormsName(set), "0")
	values.Set(maxFormsName(set), strconv.Itoa(f.rows.MaxRows()))
	f.rows.each(func(line *Line) {
		values.Set(FieldName(set, line.Index(), FieldProduct), formatID(line.ProductID()))
		values.Set(FieldName(set, line.Index(), FieldDose), dose.Format(line.Dose()))
		values.Set(FieldName(set, line.Index(), FieldTotal), dose.Format(line.Total()))
		if line.State() != StateNone {
			values.Set(FieldName(set, line.Index(), FieldLastEdited), line.State().String())
		}
	})
	return values
}

// Decode reads the product rows of a submission. The total forms field is
// required and must not exceed maxRows.
func Decode(values url.Values, set string, maxRows int) ([]RowInput, error) {
	rawCount := strings.TrimSpace(values.Get(TotalFormsName(set)))
	if rawCount == "" {
		return nil, fmt.Errorf("treatment: missing %s", TotalFormsName(set))
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil || count < 0 {
		return nil, fmt.Errorf("treatment: invalid %s %q", TotalFormsName(set), rawCount)
	}
	if count > maxRows {
		return nil, fmt.Errorf("%w: %d rows submitted, limit %d", ErrMaxRows, count, maxRows)
	}

	rows := make([]RowInput, 0, count)
	for i := 0; i < count; i++ {
		productID, err := ParseID(values.Get(FieldName(set, i, FieldProduct)))
		if err != nil {
			return nil, fmt.Errorf("treatment: row %d: %w", i, err)
		}
		rows = append(rows, RowInput{
			ProductID:  productID,
			Dose:       dose.ParseAmount(values.Get(FieldName(set, i, FieldDose))),
			Total:      dose.ParseAmount(values.Get(FieldName(set, i, FieldTotal))),
			LastEdited: ParseEditState(values.Get(FieldName(set, i, FieldLastEdited))),
		})
	}
	return rows, nil
}

// LoadRows replaces the rows with those in values. Products are resolved
// against the loaded eligible set; unknown ones leave the row without a
// product. A row whose last_edited field names the total, and carries one,
// starts total-authoritative. Otherwise a row with a dose starts
// dose-authoritative and a row with only a total starts total-authoritative.
func (f *Form) LoadRows(values url.Values) error {
	inputs, err := Decode(values, f.settings.SetName, f.rows.MaxRows())
	if err != nil {
		return err
	}

	f.rows.Reset()
	for i, input := range inputs {
		line, err := f.rows.Row(i)
		if err != nil {
			if line, err = f.rows.AddRow(); err != nil {
				return err
			}
		}
		if input.ProductID != 0 {
			if product, ok := f.gateway.Product(input.ProductID); ok {
				line.SelectProduct(&product, f.tc)
			}
		}
		switch {
		case input.LastEdited == StateTotalEdited && input.Total.Valid:
			line.EditTotal(input.Total, f.tc)
		case input.Dose.Valid:
			line.EditDose(input.Dose, f.tc)
		case input.Total.Valid:
			line.EditTotal(input.Total, f.tc)
		}
	}
	return nil
}

func formatID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID reads an optional record id from form input. Blank is 0.
func ParseID(raw string) (uint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(value), nil
}
