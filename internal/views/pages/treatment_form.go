package pages

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"agrogest/internal/refdata"
	"agrogest/internal/treatment"
	"agrogest/internal/views/components"
	"agrogest/internal/views/layout"
)

// TreatmentPage is the full document around the form fragment.
func TreatmentPage(view TreatmentFormView) templ.Component {
	return layout.Layout("New treatment", TreatmentForm(view))
}

// TreatmentForm renders the form fragment swapped in by every event.
func TreatmentForm(view TreatmentFormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<div id="treatment-form" data-step="%s"><form method="post" action="%s" hx-post="%s" hx-target="%s" hx-swap="outerHTML">`,
			view.Step, SubmitPath, SubmitPath, formTarget); err != nil {
			return err
		}

		parts := []templ.Component{
			components.Hidden("form_id", view.FormID),
			components.Hidden("revision", view.Revision),
			components.Notice("warning", view.Notice),
			managementFields(view),
		}
		if view.Step == treatment.StepProducts {
			parts = append(parts, productStep(view))
		} else {
			parts = append(parts, infoStep(view), hiddenRows(view))
		}
		if err := renderAll(ctx, w, parts...); err != nil {
			return err
		}

		_, err := io.WriteString(w, `</form></div>`)
		return err
	})
}

func infoStep(view TreatmentFormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<section class="step step-info"><h2>General information</h2>`); err != nil {
			return err
		}

		typeOptions := []components.Option{
			{Value: string(treatment.Spraying), Label: TypeLabel(string(treatment.Spraying))},
			{Value: string(treatment.Fertigation), Label: TypeLabel(string(treatment.Fertigation))},
		}
		spraying := view.Spraying()

		err := renderAll(ctx, w,
			field(view, "name", "Name", components.Input("text", "name", view.Name, false, event("name", -1))),
			field(view, "date", "Date", components.Input("date", "date", view.Date, false, event("date", -1))),
			field(view, "parcel", "Parcel", components.Select("parcel", "Select a parcel", view.Parcels, view.ParcelID, false, event("parcel", -1))),
			failure(view, refdata.Parcels),
			text("parcel-info", view.ParcelInfo),
			field(view, "type", "Treatment type", components.Select("type", "Select a type", typeOptions, view.Type, false, event("type", -1))),
			field(view, "machine", "Machine", components.Select("machine", "Select a machine", view.Machines, view.MachineID, !spraying, event("machine", -1))),
			failure(view, refdata.Machines),
			field(view, "water_per_ha", "Carrier volume (L/ha)", components.Input("number", "water_per_ha", view.WaterPerHa, !spraying, event("water", -1))),
			text("carrier-volume", view.CarrierVolume),
			field(view, "finish_date", "Completion date", components.Input("date", "finish_date", view.FinishDate, false, event("finish_date", -1))),
			completionNotice(view),
			components.Button("Next", !view.CanAdvance, event("next", -1)),
		)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, `</section>`)
		return err
	})
}

func productStep(view TreatmentFormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<section class="step step-products"><h2>Products</h2><p class="summary">%s · %s</p>`,
			templ.EscapeString(TypeLabel(view.Type)), templ.EscapeString(DefaultDash(view.ParcelInfo))); err != nil {
			return err
		}
		if err := renderAll(ctx, w, failure(view, refdata.Products), components.InlineError(view.ProblemFor("products"))); err != nil {
			return err
		}

		if _, err := io.WriteString(w, `<table class="product-rows"><thead><tr><th>Product</th><th>Dose</th><th>Total</th><th></th><th></th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, row := range view.Rows {
			if err := ProductRow(view, row).Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</tbody></table>`); err != nil {
			return err
		}

		err := renderAll(ctx, w,
			components.Button("Add product", !view.CanAddRow(), event("add_row", -1)),
			components.Button("Back", false, event("back", -1)),
			components.Button("Save treatment", false, components.Event{}),
		)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, `</section>`)
		return err
	})
}

// ProductRow renders one row of the product formset.
func ProductRow(view TreatmentFormView, row ProductRowView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<tr class="product-form" data-index="%d" data-state="%s"><td>`, row.Index, templ.EscapeString(row.State)); err != nil {
			return err
		}
		err := renderAll(ctx, w,
			components.Select(view.FieldName(row.Index, treatment.FieldProduct), "Select a product", view.Products, row.ProductID, false, event("product", row.Index)),
			text("default-dose", row.DefaultDose),
			raw(`</td><td>`),
			components.Input("number", view.FieldName(row.Index, treatment.FieldDose), row.Dose, false, event("dose", row.Index)),
			raw(`</td><td>`),
			components.Input("number", view.FieldName(row.Index, treatment.FieldTotal), row.Total, false, event("total", row.Index)),
			components.Hidden(view.FieldName(row.Index, treatment.FieldLastEdited), row.State),
			text("unit", row.Unit),
			raw(`</td><td>`),
			components.Button("Use default", row.DefaultDose == "", event("default_dose", row.Index)),
			raw(`</td><td>`),
			components.Button("Remove", len(view.Rows) <= 1, event("remove_row", row.Index)),
			raw(`</td></tr>`),
		)
		return err
	})
}

// managementFields carries the row count the receiving side rebuilds the
// rows from. It always equals the number of rendered rows.
func managementFields(view TreatmentFormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return renderAll(ctx, w,
			components.Hidden(treatment.TotalFormsName(view.SetName), strconv.Itoa(len(view.Rows))),
			components.Hidden(view.SetName+"-INITIAL_FORMS", "0"),
			components.Hidden(view.SetName+"-MAX_NUM_FORMS", strconv.Itoa(view.MaxRows)),
		)
	})
}

// hiddenRows keeps the row values in the submission while the Info step is shown.
func hiddenRows(view TreatmentFormView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, row := range view.Rows {
			err := renderAll(ctx, w,
				components.Hidden(view.FieldName(row.Index, treatment.FieldProduct), row.ProductID),
				components.Hidden(view.FieldName(row.Index, treatment.FieldDose), row.Dose),
				components.Hidden(view.FieldName(row.Index, treatment.FieldTotal), row.Total),
				components.Hidden(view.FieldName(row.Index, treatment.FieldLastEdited), row.State),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func field(view TreatmentFormView, name, label string, control templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="field">`); err != nil {
			return err
		}
		if err := renderAll(ctx, w, components.Label(name, label), control, components.InlineError(view.ProblemFor(name))); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func completionNotice(view TreatmentFormView) templ.Component {
	class := "text-muted"
	if !view.CompletionValid {
		class = "text-danger"
	} else if view.FinishDate != "" {
		class = "text-success"
	}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<small id="completedDateInfo" class="%s">%s</small>`, class, templ.EscapeString(view.CompletionNotice))
		return err
	})
}

func failure(view TreatmentFormView, table refdata.Table) templ.Component {
	return components.InlineError(view.Failures[table])
}

func text(class, value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if value == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, `<span class="%s">%s</span>`, class, templ.EscapeString(value))
		return err
	})
}

func raw(html string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, html)
		return err
	})
}

func event(action string, row int) components.Event {
	vals := map[string]string{"action": action}
	if row >= 0 {
		vals["row"] = strconv.Itoa(row)
	}
	return components.Event{Path: EventsPath, Target: formTarget, Sync: formSync, Vals: vals}
}

func renderAll(ctx context.Context, w io.Writer, parts ...templ.Component) error {
	for _, part := range parts {
		if err := part.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}
