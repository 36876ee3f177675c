package pages

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"agrogest/internal/refdata"
	"agrogest/internal/treatment"
)

var pageNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type pageFetcher struct {
	productsErr error
}

func (pageFetcher) Parcels(context.Context) ([]refdata.Parcel, error) {
	return []refdata.Parcel{{ID: 1, Name: "Olivar <Norte>", Area: 2.5, Crop: "Olive"}}, nil
}

func (pageFetcher) Machines(context.Context) ([]refdata.Machine, error) {
	return []refdata.Machine{{ID: 7, Name: "Atomizador", Capacity: 2000}}, nil
}

func (f pageFetcher) Products(context.Context, string) ([]refdata.Product, error) {
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	amount := 150.0
	product := refdata.Product{ID: 10, Name: "Copper", Dose: &amount, DoseType: "l_per_1000l", DoseTypeDisplay: "L/1000L agua"}
	if err := product.Resolve(); err != nil {
		return nil, err
	}
	return []refdata.Product{product}, nil
}

func newPageForm(t *testing.T, fetcher pageFetcher) *treatment.Form {
	t.Helper()
	form, err := treatment.NewForm(treatment.Settings{MaxRows: 2}, refdata.NewGateway(fetcher))
	if err != nil {
		t.Fatalf("NewForm() error = %v", err)
	}
	ctx := context.Background()
	_ = form.Refresh(ctx)
	if err := form.SetParcel(1); err != nil {
		t.Fatalf("SetParcel() error = %v", err)
	}
	_ = form.SetType(ctx, "spraying")
	if err := form.SetMachine(7); err != nil {
		t.Fatalf("SetMachine() error = %v", err)
	}
	return form
}

func render(t *testing.T, view TreatmentFormView) string {
	t.Helper()
	var buf bytes.Buffer
	if err := TreatmentForm(view).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render form: %v", err)
	}
	return buf.String()
}

func TestDefaultDash(t *testing.T) {
	if DefaultDash("value") != "value" {
		t.Fatal("expected non-empty value to pass through")
	}
	if DefaultDash("   ") != "—" {
		t.Fatal("expected whitespace value to produce em dash")
	}
}

func TestParcelInfo(t *testing.T) {
	if got := ParcelInfo(refdata.Parcel{Area: 2.5, Crop: "Olive"}); got != "2.50 ha · Olive" {
		t.Fatalf("unexpected parcel info %q", got)
	}
	if got := ParcelInfo(refdata.Parcel{Area: 1}); got != "1.00 ha" {
		t.Fatalf("unexpected parcel info without crop %q", got)
	}
}

func TestMachineLabel(t *testing.T) {
	if got := MachineLabel(refdata.Machine{Name: "Atomizador", Capacity: 2000}); got != "Atomizador (2000 L)" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := MachineLabel(refdata.Machine{Name: "Cuba"}); got != "Cuba" {
		t.Fatalf("unexpected label without capacity %q", got)
	}
}

func TestInfoStepRendersContextFields(t *testing.T) {
	form := newPageForm(t, pageFetcher{})
	view := NewTreatmentFormView(form, pageNow)
	output := render(t, view)

	for _, token := range []string{
		`id="treatment-form"`,
		`data-step="info"`,
		`name="water_per_ha" id="id_water_per_ha" value="850.00"`,
		`Olivar &lt;Norte&gt;`,
		`2.50 ha · Olive`,
		`2125.00 L`,
		`name="treatmentproduct_set-TOTAL_FORMS" id="id_treatmentproduct_set-TOTAL_FORMS" value="1"`,
		`name="treatmentproduct_set-MAX_NUM_FORMS" id="id_treatmentproduct_set-MAX_NUM_FORMS" value="2"`,
		`type="hidden" name="treatmentproduct_set-0-product"`,
		`id="completedDateInfo" class="text-muted"`,
	} {
		if !strings.Contains(output, token) {
			t.Fatalf("expected output to contain %q: %s", token, output)
		}
	}
	if !strings.Contains(output, `<button type="button" disabled`) {
		t.Fatalf("expected next button to be disabled without name and date: %s", output)
	}
}

func TestInfoStepDisablesSprayingFieldsForFertigation(t *testing.T) {
	form := newPageForm(t, pageFetcher{})
	if err := form.SetType(context.Background(), "fertigation"); err != nil {
		t.Fatalf("SetType() error = %v", err)
	}
	output := render(t, NewTreatmentFormView(form, pageNow))
	if !strings.Contains(output, `<select name="machine" id="id_machine" disabled`) {
		t.Fatalf("expected machine select to be disabled: %s", output)
	}
	if !strings.Contains(output, `name="water_per_ha" id="id_water_per_ha" value="0.00" step="0.01" min="0" disabled`) {
		t.Fatalf("expected water input to be disabled: %s", output)
	}
}

func TestProductStepRendersRows(t *testing.T) {
	form := newPageForm(t, pageFetcher{})
	form.SetName("Cobre")
	if err := form.SetDate("2026-03-10"); err != nil {
		t.Fatalf("SetDate() error = %v", err)
	}
	if problems, err := form.Next(context.Background(), pageNow); err != nil || len(problems) > 0 {
		t.Fatalf("Next() = %v, %v", problems, err)
	}
	if err := form.SelectProduct(0, 10); err != nil {
		t.Fatalf("SelectProduct() error = %v", err)
	}
	if err := form.EditDose(0, "2"); err != nil {
		t.Fatalf("EditDose() error = %v", err)
	}

	output := render(t, NewTreatmentFormView(form, pageNow))
	for _, token := range []string{
		`data-step="products"`,
		`data-index="0" data-state="dose"`,
		`<option value="10" selected>Copper</option>`,
		`name="treatmentproduct_set-0-dose" id="id_treatmentproduct_set-0-dose" value="2.00"`,
		`name="treatmentproduct_set-0-total_dose" id="id_treatmentproduct_set-0-total_dose" value="4.25"`,
		`150 L/1000L agua`,
		`&#34;action&#34;:&#34;remove_row&#34;`,
		`<input type="hidden" name="treatmentproduct_set-0-last_edited" id="id_treatmentproduct_set-0-last_edited" value="dose">`,
		`<input type="hidden" name="revision" id="id_revision" value="0">`,
		`hx-sync="closest form:replace"`,
		`type="submit"`,
	} {
		if !strings.Contains(output, token) {
			t.Fatalf("expected output to contain %q: %s", token, output)
		}
	}
	if strings.Contains(output, `type="hidden" name="treatmentproduct_set-0-product"`) {
		t.Fatalf("product step must render editable rows only: %s", output)
	}
}

func TestFailureMarkerRendered(t *testing.T) {
	form := newPageForm(t, pageFetcher{productsErr: errors.New("boom")})
	form.SetName("Cobre")
	if err := form.SetDate("2026-03-10"); err != nil {
		t.Fatalf("SetDate() error = %v", err)
	}
	if _, err := form.Next(context.Background(), pageNow); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	view := NewTreatmentFormView(form, pageNow)
	if view.Failures[refdata.Products] == "" {
		t.Fatalf("expected product failure, got %+v", view.Failures)
	}
	output := render(t, view)
	if !strings.Contains(output, FailureMessage(refdata.Products)) {
		t.Fatalf("expected failure marker: %s", output)
	}
}

func TestProblemsRenderInline(t *testing.T) {
	form := newPageForm(t, pageFetcher{})
	view := NewTreatmentFormView(form, pageNow)
	view.Problems = form.InfoProblems(pageNow)
	if view.ProblemFor("name") == "" {
		t.Fatalf("expected a name problem, got %+v", view.Problems)
	}
	output := render(t, view)
	if !strings.Contains(output, `<small class="field-error">`+view.ProblemFor("name")+`</small>`) {
		t.Fatalf("expected inline name error: %s", output)
	}
}

func TestTreatmentPageWrapsLayout(t *testing.T) {
	var buf bytes.Buffer
	view := NewTreatmentFormView(newPageForm(t, pageFetcher{}), pageNow)
	if err := TreatmentPage(view).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render page: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "<html") || !strings.Contains(output, `id="treatment-form"`) {
		t.Fatalf("expected full document with form: %s", output)
	}
}
