package treatment

import (
	"strings"

	"agrogest/internal/dose"
	"agrogest/internal/refdata"
)

// EditState records which of dose and total the user edited last on a row.
// That field is authoritative; the other one is derived from it.
type EditState int

const (
	StateNone EditState = iota
	StateDoseEdited
	StateTotalEdited
)

func (s EditState) String() string {
	switch s {
	case StateDoseEdited:
		return "dose"
	case StateTotalEdited:
		return "total"
	default:
		return "none"
	}
}

// ParseEditState reads the submitted form of an EditState. Anything other
// than "dose" or "total" is StateNone.
func ParseEditState(raw string) EditState {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dose":
		return StateDoseEdited
	case "total":
		return StateTotalEdited
	}
	return StateNone
}

// Line is one product row of the form.
type Line struct {
	index   int
	product *refdata.Product
	dose    dose.Amount
	total   dose.Amount
	state   EditState
}

func newLine(index int) *Line {
	return &Line{index: index}
}

// Index is the row's position in submission field names.
func (l *Line) Index() int { return l.index }

// Product returns the selected product.
func (l *Line) Product() (refdata.Product, bool) {
	if l.product == nil {
		return refdata.Product{}, false
	}
	return *l.product, true
}

// ProductID returns the selected product id, or 0.
func (l *Line) ProductID() uint {
	if l.product == nil {
		return 0
	}
	return l.product.ID
}

func (l *Line) Dose() dose.Amount { return l.dose }
func (l *Line) Total() dose.Amount { return l.total }
func (l *Line) State() EditState { return l.state }

// UnitLabel is the unit of the total quantity, or "-" without a product.
func (l *Line) UnitLabel() string {
	if l.product == nil {
		return "-"
	}
	return l.product.Unit.Symbol()
}

// DefaultDoseLabel describes the catalogue dose of the selected product.
func (l *Line) DefaultDoseLabel() string {
	if l.product == nil {
		return ""
	}
	return l.product.DefaultDoseLabel()
}

// SelectProduct sets the row's product. Choosing a different product, or
// none, clears both quantities and resets the row to StateNone. Choosing the
// same product again only recomputes.
func (l *Line) SelectProduct(p *refdata.Product, c Context) {
	if p != nil && l.product != nil && p.ID == l.product.ID {
		l.rebind(*p, c)
		return
	}
	l.product = nil
	if p != nil {
		selected := *p
		l.product = &selected
	}
	l.dose = dose.None
	l.total = dose.None
	l.state = StateNone
}

// rebind swaps in a fresh record of the same product, e.g. after the
// treatment type changed its dose basis, and recomputes.
func (l *Line) rebind(p refdata.Product, c Context) {
	l.product = &p
	l.Recompute(c)
}

// EditDose records a dose typed by the user and derives the total.
func (l *Line) EditDose(a dose.Amount, c Context) {
	l.dose = a
	l.state = StateDoseEdited
	l.Recompute(c)
}

// EditTotal records a total typed by the user and derives the dose.
func (l *Line) EditTotal(a dose.Amount, c Context) {
	l.total = a
	l.state = StateTotalEdited
	l.Recompute(c)
}

// Recompute refreshes the derived field from the authoritative one. It never
// writes the authoritative field, so repeated calls are stable.
func (l *Line) Recompute(c Context) {
	switch l.state {
	case StateDoseEdited:
		if l.product == nil {
			l.total = dose.None
			return
		}
		l.total = dose.TruncateAmount(dose.ToTotal(l.dose, l.product.Basis, c.area(), c.CarrierVolume()))
	case StateTotalEdited:
		if l.product == nil {
			l.dose = dose.None
			return
		}
		l.dose = dose.TruncateAmount(dose.ToDose(l.total, l.product.Basis, c.area(), c.CarrierVolume()))
	}
}

// complete reports whether the row has both a product and a dose.
func (l *Line) complete() bool {
	return l.product != nil && l.dose.Positive()
}
