package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"agrogest/internal/dose"
	"agrogest/internal/refdata"
	"agrogest/internal/treatment"
	"agrogest/internal/views/components"
)

const (
	// FormPath is where the treatment form is served.
	FormPath = "/treatments/new"

	// EventsPath receives every form edit.
	EventsPath = "/treatments/new/events"

	// SubmitPath receives the final submission.
	SubmitPath = "/treatments/new/submit"

	formTarget = "#treatment-form"

	// A newer edit aborts the one still in flight.
	formSync = "closest form:replace"
)

// TreatmentFormView is everything the form fragment renders, flattened to
// display strings.
type TreatmentFormView struct {
	FormID   string
	Revision string
	Step     treatment.Step
	SetName  string
	MaxRows  int

	Type          string
	ParcelID      string
	MachineID     string
	WaterPerHa    string
	Name          string
	Date          string
	FinishDate    string
	ParcelInfo    string
	CarrierVolume string

	Parcels  []components.Option
	Machines []components.Option
	Products []components.Option

	Rows []ProductRowView

	CompletionNotice string
	CompletionValid  bool
	CanAdvance       bool

	Notice   string
	Problems []treatment.Problem
	Failures map[refdata.Table]string
}

// ProductRowView is one product row ready for display.
type ProductRowView struct {
	Index       int
	ProductID   string
	Dose        string
	Total       string
	Unit        string
	DefaultDose string
	State       string
}

// NewTreatmentFormView projects a form for rendering.
func NewTreatmentFormView(form *treatment.Form, now time.Time) TreatmentFormView {
	gateway := form.Gateway()
	tc := form.Context()
	notice := form.CompletionNotice(now)

	view := TreatmentFormView{
		FormID:           form.ID().String(),
		Revision:         strconv.FormatUint(form.Revision(), 10),
		Step:             form.Step(),
		SetName:          form.Settings().SetName,
		MaxRows:          form.Rows().MaxRows(),
		Type:             string(tc.Type),
		ParcelID:         idValue(tc.ParcelID),
		MachineID:        idValue(tc.MachineID),
		WaterPerHa:       dose.Format(tc.WaterPerHa),
		Name:             form.Name(),
		Date:             dateValue(form.Date()),
		FinishDate:       dateValue(form.FinishDate()),
		CarrierVolume:    carrierVolumeLabel(tc),
		CompletionNotice: notice.Message(),
		CompletionValid:  notice.Valid(),
		CanAdvance:       form.CanAdvance(now),
		Failures:         make(map[refdata.Table]string),
	}

	if parcel, ok := gateway.Parcel(tc.ParcelID); ok {
		view.ParcelInfo = ParcelInfo(parcel)
	}
	for _, parcel := range gateway.ParcelList() {
		view.Parcels = append(view.Parcels, components.Option{Value: idValue(parcel.ID), Label: parcel.Name})
	}
	for _, machine := range gateway.MachineList() {
		view.Machines = append(view.Machines, components.Option{Value: idValue(machine.ID), Label: MachineLabel(machine)})
	}
	for _, product := range gateway.ProductList() {
		view.Products = append(view.Products, components.Option{Value: idValue(product.ID), Label: product.Name})
	}

	for _, line := range form.Lines() {
		view.Rows = append(view.Rows, ProductRowView{
			Index:       line.Index(),
			ProductID:   idValue(line.ProductID()),
			Dose:        dose.Format(line.Dose()),
			Total:       dose.Format(line.Total()),
			Unit:        line.UnitLabel(),
			DefaultDose: line.DefaultDoseLabel(),
			State:       line.State().String(),
		})
	}

	for _, table := range []refdata.Table{refdata.Parcels, refdata.Machines, refdata.Products} {
		if err := gateway.Failure(table); err != nil {
			view.Failures[table] = FailureMessage(table)
		}
	}
	return view
}

// ProblemFor returns the first problem message reported for field.
func (v TreatmentFormView) ProblemFor(field string) string {
	for _, problem := range v.Problems {
		if problem.Field == field {
			return problem.Message
		}
	}
	return ""
}

// Spraying reports whether the machine and carrier fields apply.
func (v TreatmentFormView) Spraying() bool {
	return v.Type == string(treatment.Spraying)
}

// CanAddRow reports whether another product row fits.
func (v TreatmentFormView) CanAddRow() bool {
	return len(v.Rows) < v.MaxRows
}

// FieldName names a row field for submission.
func (v TreatmentFormView) FieldName(index int, field string) string {
	return treatment.FieldName(v.SetName, index, field)
}

// ParcelInfo summarises a parcel as "2.50 ha · Olive".
func ParcelInfo(parcel refdata.Parcel) string {
	info := fmt.Sprintf("%s ha", dose.Format(dose.Some(parcel.Area)))
	if crop := strings.TrimSpace(parcel.Crop); crop != "" {
		info += " · " + crop
	}
	return info
}

// MachineLabel names a machine with its tank capacity.
func MachineLabel(machine refdata.Machine) string {
	if machine.Capacity <= 0 {
		return machine.Name
	}
	return fmt.Sprintf("%s (%s L)", machine.Name, strconv.FormatFloat(machine.Capacity, 'f', -1, 64))
}

// FailureMessage is the inline marker shown when a lookup table failed to load.
func FailureMessage(table refdata.Table) string {
	return fmt.Sprintf("Could not load %s. Reload the form to try again.", string(table))
}

// TypeLabel is the display name of a treatment type.
func TypeLabel(t string) string {
	switch treatment.Type(t) {
	case treatment.Spraying:
		return "Spraying"
	case treatment.Fertigation:
		return "Fertigation"
	}
	return DefaultDash(t)
}

// DefaultDash returns an em dash when the provided value is empty or whitespace.
func DefaultDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "—"
	}
	return value
}

func carrierVolumeLabel(tc treatment.Context) string {
	volume := tc.CarrierVolume()
	if volume <= 0 {
		return ""
	}
	return dose.Format(dose.Some(volume)) + " L"
}

func idValue(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

func dateValue(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format("2006-01-02")
}
