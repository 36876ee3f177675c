package treatment

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"agrogest/internal/dose"
	"agrogest/internal/refdata"
)

// Snapshot is the serialisable state of a Form, kept in the user session
// between requests.
type Snapshot struct {
	ID         string         `json:"id"`
	Revision   uint64         `json:"revision"`
	Step       Step           `json:"step"`
	Type       Type           `json:"type"`
	ParcelID   uint           `json:"parcel_id,omitempty"`
	Area       float64        `json:"area,omitempty"`
	MachineID  uint           `json:"machine_id,omitempty"`
	WaterPerHa dose.Amount    `json:"water_per_ha"`
	Name       string         `json:"name,omitempty"`
	Date       string         `json:"date,omitempty"`
	FinishDate string         `json:"finish_date,omitempty"`
	Rows       []LineSnapshot `json:"rows"`
}

// LineSnapshot is the stored state of one row. The product record is kept so
// a row survives a request in which the product table failed to load.
type LineSnapshot struct {
	Product *refdata.Product `json:"product,omitempty"`
	Dose    dose.Amount      `json:"dose"`
	Total   dose.Amount      `json:"total"`
	State   EditState        `json:"state"`
}

// Snapshot captures the form state.
func (f *Form) Snapshot() Snapshot {
	snap := Snapshot{
		ID:         f.id.String(),
		Revision:   f.revision,
		Step:       f.step,
		Type:       f.tc.Type,
		ParcelID:   f.tc.ParcelID,
		Area:       f.tc.Area,
		MachineID:  f.tc.MachineID,
		WaterPerHa: f.tc.WaterPerHa,
		Name:       f.name,
		Date:       formatDate(f.date),
		FinishDate: formatDate(f.finishDate),
		Rows:       make([]LineSnapshot, 0, f.rows.Count()),
	}
	f.rows.each(func(line *Line) {
		entry := LineSnapshot{Dose: line.dose, Total: line.total, State: line.state}
		if line.product != nil {
			product := *line.product
			entry.Product = &product
		}
		snap.Rows = append(snap.Rows, entry)
	})
	return snap
}

// MarshalBinary encodes the form snapshot as JSON.
func (f *Form) MarshalBinary() ([]byte, error) {
	return json.Marshal(f.Snapshot())
}

// Restore rebuilds a form from a snapshot. Row values and edit states are
// taken as stored; nothing is recomputed.
func Restore(settings Settings, gateway *refdata.Gateway, snap Snapshot) (*Form, error) {
	form, err := NewForm(settings, gateway)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(snap.ID)
	if err != nil {
		return nil, fmt.Errorf("treatment: snapshot id: %w", err)
	}
	form.id = id
	form.revision = snap.Revision

	if snap.Step != StepInfo && snap.Step != StepProducts {
		return nil, fmt.Errorf("treatment: snapshot step %d", snap.Step)
	}
	form.step = snap.Step
	if form.tc.Type, err = ParseType(string(snap.Type)); err != nil {
		return nil, err
	}
	form.tc.ParcelID = snap.ParcelID
	form.tc.Area = snap.Area
	form.tc.MachineID = snap.MachineID
	form.tc.WaterPerHa = snap.WaterPerHa
	form.name = snap.Name
	if form.date, err = parseDate(snap.Date); err != nil {
		return nil, err
	}
	if form.finishDate, err = parseDate(snap.FinishDate); err != nil {
		return nil, err
	}

	if len(snap.Rows) > form.rows.MaxRows() {
		return nil, fmt.Errorf("%w: snapshot holds %d rows", ErrMaxRows, len(snap.Rows))
	}
	for i, entry := range snap.Rows {
		var line *Line
		if i == 0 {
			line = form.rows.slots[0]
		} else if line, err = form.rows.AddRow(); err != nil {
			return nil, err
		}
		if entry.Product != nil {
			product := *entry.Product
			if err := product.Resolve(); err != nil {
				return nil, fmt.Errorf("treatment: snapshot row %d: %w", i, err)
			}
			line.product = &product
		}
		if entry.State < StateNone || entry.State > StateTotalEdited {
			return nil, fmt.Errorf("treatment: snapshot row %d: edit state %d", i, entry.State)
		}
		line.dose = entry.Dose
		line.total = entry.Total
		line.state = entry.State
	}
	return form, nil
}

// RestoreJSON decodes a snapshot produced by MarshalBinary.
func RestoreJSON(settings Settings, gateway *refdata.Gateway, data []byte) (*Form, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("treatment: decode snapshot: %w", err)
	}
	return Restore(settings, gateway, snap)
}

// Version identifies one stored revision of a form.
type Version struct {
	ID       string `json:"id"`
	Revision uint64 `json:"revision"`
}

// Version returns the identity of the form's current revision.
func (f *Form) Version() Version {
	return Version{ID: f.id.String(), Revision: f.revision}
}

// PeekVersion reads the version of a stored snapshot without restoring it.
// Empty data gives the zero Version.
func PeekVersion(data []byte) (Version, error) {
	var v Version
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return Version{}, fmt.Errorf("treatment: decode snapshot version: %w", err)
	}
	return v, nil
}
