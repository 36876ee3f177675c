package treatment

import (
	"context"
	"errors"
	"time"

	applog "agrogest/internal/log"
	"agrogest/internal/refdata"
)

// Step is the page of the two-step form currently shown.
type Step int

const (
	StepInfo Step = iota
	StepProducts
)

func (s Step) String() string {
	if s == StepProducts {
		return "products"
	}
	return "info"
}

// CompletionNotice describes the state of the optional completion date.
type CompletionNotice int

const (
	CompletionOptional CompletionNotice = iota
	CompletionRecorded
	CompletionInFuture
)

// Message is the inline text shown under the completion date field.
func (n CompletionNotice) Message() string {
	switch n {
	case CompletionRecorded:
		return "The treatment will be recorded as completed on this date."
	case CompletionInFuture:
		return "The completion date cannot be in the future."
	default:
		return "Optional. When set, the treatment is marked as completed."
	}
}

// Valid reports whether the notice allows the form to proceed.
func (n CompletionNotice) Valid() bool {
	return n != CompletionInFuture
}

// CompletionNotice evaluates the completion date against the day of now.
func (f *Form) CompletionNotice(now time.Time) CompletionNotice {
	if f.finishDate.IsZero() {
		return CompletionOptional
	}
	fy, fm, fd := f.finishDate.Date()
	ny, nm, nd := now.Date()
	finish := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	if finish.After(today) {
		return CompletionInFuture
	}
	return CompletionRecorded
}

// InfoProblems lists what blocks leaving the Info step. Machine and carrier
// rate are only required for spraying.
func (f *Form) InfoProblems(now time.Time) []Problem {
	var problems []Problem
	if f.tc.ParcelID == 0 {
		problems = append(problems, Problem{Field: "parcel", Message: "Select a parcel."})
	}
	if f.tc.Type == TypeUnset {
		problems = append(problems, Problem{Field: "type", Message: "Select a treatment type."})
	}
	if f.name == "" {
		problems = append(problems, Problem{Field: "name", Message: "Enter a name for the treatment."})
	}
	if f.date.IsZero() {
		problems = append(problems, Problem{Field: "date", Message: "Select a date for the treatment."})
	}
	if f.tc.Type == Spraying {
		if f.tc.MachineID == 0 {
			problems = append(problems, Problem{Field: "machine", Message: "Spraying treatments need a machine."})
		}
		if !f.tc.WaterPerHa.Valid {
			problems = append(problems, Problem{Field: "water_per_ha", Message: "Spraying treatments need a carrier volume (L/ha)."})
		}
	}
	if notice := f.CompletionNotice(now); !notice.Valid() {
		problems = append(problems, Problem{Field: "finish_date", Message: notice.Message()})
	}
	return problems
}

// CanAdvance reports whether Next would move to the Products step.
func (f *Form) CanAdvance(now time.Time) bool {
	return len(f.InfoProblems(now)) == 0
}

// Next moves from Info to Products when the Info step is complete. On the way
// it fetches the products of the chosen type and resets the rows to a single
// empty one. A failed fetch still advances; the gateway keeps the failure for
// inline display.
func (f *Form) Next(ctx context.Context, now time.Time) ([]Problem, error) {
	if f.step == StepProducts {
		return nil, nil
	}
	if problems := f.InfoProblems(now); len(problems) > 0 {
		return problems, nil
	}

	err := f.gateway.LoadProducts(ctx, string(f.tc.Type))
	if errors.Is(err, refdata.ErrStale) {
		return nil, err
	}
	if err != nil {
		applog.Debug(ctx, "advancing without products", "type", string(f.tc.Type), "error", err)
	}
	f.rows.Reset()
	f.step = StepProducts
	return nil, err
}

// Back returns to the Info step. It is always allowed and keeps the rows.
func (f *Form) Back() {
	f.step = StepInfo
}

// Validate lists everything that blocks submission: the Info step
// requirements, at least one row with a product and a dose, and a completion
// date that is not in the future.
func (f *Form) Validate(now time.Time) []Problem {
	problems := f.InfoProblems(now)
	complete := false
	f.rows.each(func(line *Line) {
		if line.complete() {
			complete = true
		}
	})
	if !complete {
		problems = append(problems, Problem{Field: "products", Message: "Add at least one product with a dose."})
	}
	return problems
}
