package treatment

import (
	"context"
	"testing"
	"time"

	"agrogest/internal/dose"
)

var wizardNow = time.Date(2026, time.March, 10, 15, 30, 0, 0, time.UTC)

func problemFields(problems []Problem) map[string]bool {
	fields := make(map[string]bool, len(problems))
	for _, problem := range problems {
		fields[problem.Field] = true
	}
	return fields
}

func fillInfo(t *testing.T, form *Form) {
	t.Helper()
	form.SetName("Cobre primavera")
	if err := form.SetDate("2026-03-09"); err != nil {
		t.Fatalf("SetDate() error = %v", err)
	}
}

func TestInfoProblemsOnEmptyForm(t *testing.T) {
	t.Parallel()

	form := newTestForm(t, newStubFetcher(), 3)
	fields := problemFields(form.InfoProblems(wizardNow))
	for _, field := range []string{"parcel", "type", "name", "date"} {
		if !fields[field] {
			t.Fatalf("expected problem for %s, got %v", field, fields)
		}
	}
	if fields["machine"] || fields["water_per_ha"] {
		t.Fatal("machine and water are only required for spraying")
	}
	if form.CanAdvance(wizardNow) {
		t.Fatal("empty form must not advance")
	}
}

func TestInfoProblemsSprayingConditions(t *testing.T) {
	t.Parallel()

	form := newSprayingForm(t)
	fillInfo(t, form)

	fields := problemFields(form.InfoProblems(wizardNow))
	if !fields["machine"] || fields["water_per_ha"] || len(fields) != 1 {
		t.Fatalf("expected only a machine problem, got %v", fields)
	}

	form.SetWaterPerHa(dose.ParseAmount(""))
	if err := form.SetMachine(7); err != nil {
		t.Fatalf("SetMachine() error = %v", err)
	}
	fields = problemFields(form.InfoProblems(wizardNow))
	if !fields["water_per_ha"] || len(fields) != 1 {
		t.Fatalf("expected only a water problem, got %v", fields)
	}

	form.SetWaterPerHa(dose.Some(850))
	if !form.CanAdvance(wizardNow) {
		t.Fatalf("expected form to advance, got %v", form.InfoProblems(wizardNow))
	}
}

func TestInfoProblemsFertigationSkipsMachine(t *testing.T) {
	t.Parallel()

	form := newTestForm(t, newStubFetcher(), 3)
	fillInfo(t, form)
	if err := form.SetParcel(1); err != nil {
		t.Fatalf("SetParcel() error = %v", err)
	}
	if err := form.SetType(context.Background(), "fertigation"); err != nil {
		t.Fatalf("SetType() error = %v", err)
	}
	if problems := form.InfoProblems(wizardNow); len(problems) != 0 {
		t.Fatalf("expected no problems, got %v", problems)
	}
}

func TestCompletionNotice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want CompletionNotice
	}{
		{"", CompletionOptional},
		{"2026-03-01", CompletionRecorded},
		{"2026-03-10", CompletionRecorded},
		{"2026-03-11", CompletionInFuture},
	}

	form := newTestForm(t, newStubFetcher(), 1)
	for _, tt := range tests {
		if err := form.SetFinishDate(tt.raw); err != nil {
			t.Fatalf("SetFinishDate(%q) error = %v", tt.raw, err)
		}
		if got := form.CompletionNotice(wizardNow); got != tt.want {
			t.Fatalf("CompletionNotice(%q) = %d, want %d", tt.raw, got, tt.want)
		}
		if got := form.CompletionNotice(wizardNow).Message(); got == "" {
			t.Fatalf("expected notice message for %q", tt.raw)
		}
	}

	if err := form.SetFinishDate("10/03/2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
	if !form.FinishDate().IsZero() {
		t.Fatal("malformed date must clear the field")
	}
}

func TestNextResetsRowsAndBackKeepsThem(t *testing.T) {
	t.Parallel()

	form := newSprayingForm(t)
	ctx := context.Background()

	problems, err := form.Next(ctx, wizardNow)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(problems) == 0 || form.Step() != StepInfo {
		t.Fatal("incomplete info must block advancing")
	}

	fillInfo(t, form)
	if err := form.SetMachine(7); err != nil {
		t.Fatalf("SetMachine() error = %v", err)
	}
	if err := form.SetFinishDate("2026-03-12"); err != nil {
		t.Fatalf("SetFinishDate() error = %v", err)
	}
	if problems, _ := form.Next(ctx, wizardNow); !problemFields(problems)["finish_date"] {
		t.Fatalf("future completion date must block advancing, got %v", problems)
	}
	if err := form.SetFinishDate(""); err != nil {
		t.Fatalf("SetFinishDate() error = %v", err)
	}

	form.AddRow()
	form.AddRow()
	if err := form.SelectProduct(0, copperID); err != nil {
		t.Fatalf("SelectProduct() error = %v", err)
	}

	problems, err = form.Next(ctx, wizardNow)
	if err != nil || len(problems) != 0 {
		t.Fatalf("Next() = %v, %v", problems, err)
	}
	if form.Step() != StepProducts {
		t.Fatalf("expected products step, got %s", form.Step())
	}
	if form.Rows().Count() != 1 {
		t.Fatalf("expected rows reset to one, got %d", form.Rows().Count())
	}
	line, _ := form.Row(0)
	if line.ProductID() != 0 {
		t.Fatal("expected an empty row after advancing")
	}

	form.AddRow()
	form.Back()
	if form.Step() != StepInfo || form.Rows().Count() != 2 {
		t.Fatal("back must return to info and keep rows")
	}
}

func TestValidateRequiresCompleteRow(t *testing.T) {
	t.Parallel()

	form := newSprayingForm(t)
	fillInfo(t, form)
	if err := form.SetMachine(7); err != nil {
		t.Fatalf("SetMachine() error = %v", err)
	}
	if _, err := form.Next(context.Background(), wizardNow); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	if fields := problemFields(form.Validate(wizardNow)); !fields["products"] || len(fields) != 1 {
		t.Fatalf("expected only a products problem, got %v", fields)
	}

	if err := form.SelectProduct(0, copperID); err != nil {
		t.Fatalf("SelectProduct() error = %v", err)
	}
	if problems := form.Validate(wizardNow); len(problems) != 1 {
		t.Fatalf("a product without dose is not enough, got %v", problems)
	}

	form.AddRow()
	if err := form.EditTotal(0, "300"); err != nil {
		t.Fatalf("EditTotal() error = %v", err)
	}
	if problems := form.Validate(wizardNow); len(problems) != 0 {
		t.Fatalf("expected valid form, got %v", problems)
	}

	if err := form.SetFinishDate("2026-04-01"); err != nil {
		t.Fatalf("SetFinishDate() error = %v", err)
	}
	if fields := problemFields(form.Validate(wizardNow)); !fields["finish_date"] {
		t.Fatalf("expected finish date problem, got %v", fields)
	}
}
