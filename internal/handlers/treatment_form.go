package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"agrogest/internal/dose"
	applog "agrogest/internal/log"
	"agrogest/internal/refdata"
	"agrogest/internal/treatment"
	"agrogest/internal/views/pages"
)

const (
	sessionTreatmentFormKey = "treatment.form"
	noticeTriggerHeader     = "HX-Trigger"
)

var (
	errUnknownAction = errors.New("handlers: unknown form action")
	nowFunc          = time.Now
)

type submissionResponse struct {
	ID     string     `json:"id"`
	Values url.Values `json:"values"`
}

type problemsResponse struct {
	Problems []treatment.Problem `json:"problems"`
}

// TreatmentForm starts a new treatment form in the session and renders it.
// Query parameters in the submission format prefill the form, including its
// product rows.
func TreatmentForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	form, err := newTreatmentForm(r.Context())
	if err != nil {
		writeFormUnavailable(w, r, err)
		return
	}
	if query := r.URL.Query(); len(query) > 0 {
		if err := prefillForm(r.Context(), form, query); err != nil {
			applog.Debug(r.Context(), "treatment form prefill incomplete", "error", err)
		}
	}
	saveTreatmentForm(r.Context(), form)

	view := pages.NewTreatmentFormView(form, nowFunc())
	if isHTMX(r) {
		renderComponent(w, r, pages.TreatmentForm(view))
		return
	}
	renderComponent(w, r, pages.TreatmentPage(view))
}

// TreatmentFormEvent applies one edit to the session form and re-renders the
// form fragment. Rejected operations leave the form unchanged and show a notice.
func TreatmentFormEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		applog.Error(r.Context(), "failed to parse treatment form event", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	form, base, err := loadTreatmentForm(r)
	if err != nil {
		writeFormUnavailable(w, r, err)
		return
	}

	now := nowFunc()
	action := r.PostForm.Get("action")
	problems, err := applyFormEvent(r.Context(), form, action, r.PostForm, now)
	if errors.Is(err, errUnknownAction) {
		applog.Debug(r.Context(), "unknown treatment form action", "action", action)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var notice string
	if err != nil {
		if treatment.Rejected(err) {
			applog.Debug(r.Context(), "treatment form operation rejected", "action", action, "error", err)
			notice = rejectionNotice(form, err)
		} else {
			applog.Debug(r.Context(), "treatment form event incomplete", "action", action, "error", err)
		}
	}

	if !commitTreatmentForm(r.Context(), form, base) {
		applog.Debug(r.Context(), "discarding superseded treatment form event",
			"action", action, "form", base.ID, "revision", base.Revision, "posted", r.PostForm.Get("revision"))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if notice != "" {
		setNoticeTrigger(w, notice)
	}

	view := pages.NewTreatmentFormView(form, now)
	view.Problems = problems
	view.Notice = notice
	renderComponent(w, r, pages.TreatmentForm(view))
}

// TreatmentFormSubmit validates the form for saving. Invalid forms answer 422
// with the problems; valid ones answer with the encoded submission values.
func TreatmentFormSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		applog.Error(r.Context(), "failed to parse treatment submission", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	form, base, err := loadTreatmentForm(r)
	if err != nil {
		writeFormUnavailable(w, r, err)
		return
	}
	// A form rebuilt from the posted values becomes the session form.
	if base.ID != form.ID().String() {
		commitTreatmentForm(r.Context(), form, base)
	}

	now := nowFunc()
	problems := form.Validate(now)
	if isHTMX(r) {
		view := pages.NewTreatmentFormView(form, now)
		view.Problems = problems
		if len(problems) == 0 {
			view.Notice = "The treatment is ready to be saved."
		}
		renderComponent(w, r, pages.TreatmentForm(view))
		return
	}

	if len(problems) > 0 {
		applog.Debug(r.Context(), "treatment submission invalid", "form", form.ID().String(), "problems", len(problems))
		writeJSON(w, http.StatusUnprocessableEntity, problemsResponse{Problems: problems})
		return
	}
	applog.Info(r.Context(), "treatment submission accepted", "form", form.ID().String(), "rows", form.Rows().Count())
	writeJSON(w, http.StatusOK, submissionResponse{ID: form.ID().String(), Values: form.Encode()})
}

func newTreatmentForm(ctx context.Context) (*treatment.Form, error) {
	gateway, err := newGateway()
	if err != nil {
		return nil, err
	}
	form, err := treatment.NewForm(formSettings, gateway)
	if err != nil {
		return nil, err
	}
	if err := form.Refresh(ctx); err != nil {
		applog.Debug(ctx, "treatment form reference data incomplete", "error", err)
	}
	return form, nil
}

func newGateway() (*refdata.Gateway, error) {
	fetcher, err := referenceFetcher()
	if err != nil {
		return nil, err
	}
	return refdata.NewGateway(fetcher), nil
}

// loadTreatmentForm restores the session form. A missing or unreadable
// session form, or one the posted form_id does not match, is rebuilt from the
// posted values. The returned Version is what the session held when the
// request started.
func loadTreatmentForm(r *http.Request) (*treatment.Form, treatment.Version, error) {
	ctx := r.Context()
	var data []byte
	if sessionManager != nil {
		data = sessionManager.GetBytes(ctx, sessionTreatmentFormKey)
	}
	base, err := treatment.PeekVersion(data)
	if err != nil {
		applog.Error(ctx, "failed to read treatment form version", "error", err)
	}

	if len(data) > 0 {
		gateway, err := newGateway()
		if err != nil {
			return nil, base, err
		}
		form, err := treatment.RestoreJSON(formSettings, gateway, data)
		if err == nil {
			postedID := r.PostForm.Get("form_id")
			if postedID == "" || postedID == form.ID().String() {
				if err := form.Refresh(ctx); err != nil {
					applog.Debug(ctx, "treatment form reference data incomplete", "error", err)
				}
				return form, base, nil
			}
			applog.Debug(ctx, "posted form does not match session form", "posted", postedID, "session", form.ID().String())
		} else {
			applog.Error(ctx, "failed to restore treatment form", "error", err)
		}
	}

	form, err := newTreatmentForm(ctx)
	if err != nil {
		return nil, base, err
	}
	if err := prefillForm(ctx, form, r.PostForm); err != nil {
		applog.Debug(ctx, "treatment form rebuilt with gaps", "error", err)
	}
	return form, base, nil
}

// commitTreatmentForm stores form as its next revision. It refuses, and
// reports false, when another request stored the session form after base was
// read; the later request wins.
func commitTreatmentForm(ctx context.Context, form *treatment.Form, base treatment.Version) bool {
	if sessionManager == nil {
		return true
	}
	latest, err := storedFormVersion(ctx)
	if err != nil {
		applog.Error(ctx, "failed to read stored treatment form", "error", err)
	} else if latest != base {
		return false
	}
	form.Revise()
	saveTreatmentForm(ctx, form)
	return true
}

// storedFormVersion reads the form version committed to the session store,
// which may be newer than the copy loaded at the start of the request.
func storedFormVersion(ctx context.Context) (treatment.Version, error) {
	token := sessionManager.Token(ctx)
	if token == "" {
		return treatment.Version{}, nil
	}
	b, found, err := sessionManager.Store.Find(token)
	if err != nil {
		return treatment.Version{}, fmt.Errorf("find session: %w", err)
	}
	if !found {
		return treatment.Version{}, nil
	}
	_, values, err := sessionManager.Codec.Decode(b)
	if err != nil {
		return treatment.Version{}, fmt.Errorf("decode session: %w", err)
	}
	data, _ := values[sessionTreatmentFormKey].([]byte)
	return treatment.PeekVersion(data)
}

// prefillForm applies values in the submission format to a fresh form.
func prefillForm(ctx context.Context, form *treatment.Form, values url.Values) error {
	var errs []error
	if raw := values.Get("type"); raw != "" {
		if err := form.SetType(ctx, raw); err != nil && !errors.Is(err, refdata.ErrStale) {
			errs = append(errs, err)
		}
	}
	if raw := values.Get("parcel"); raw != "" {
		errs = append(errs, withID(raw, form.SetParcel))
	}
	if raw := values.Get("machine"); raw != "" {
		errs = append(errs, withID(raw, form.SetMachine))
	}
	if raw := values.Get("water_per_ha"); raw != "" {
		form.SetWaterPerHa(dose.ParseAmount(raw))
	}
	form.SetName(values.Get("name"))
	errs = append(errs, form.SetDate(values.Get("date")), form.SetFinishDate(values.Get("finish_date")))
	if values.Has(treatment.TotalFormsName(form.Settings().SetName)) {
		errs = append(errs, form.LoadRows(values))
	}
	return errors.Join(errs...)
}

func applyFormEvent(ctx context.Context, form *treatment.Form, action string, values url.Values, now time.Time) ([]treatment.Problem, error) {
	set := form.Settings().SetName
	header := func(field string) string {
		if values.Has("value") {
			return values.Get("value")
		}
		return values.Get(field)
	}
	row := func() (int, error) {
		index, err := strconv.Atoi(values.Get("row"))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", treatment.ErrRowIndex, values.Get("row"))
		}
		return index, nil
	}
	rowValue := func(index int, field string) string {
		if values.Has("value") {
			return values.Get("value")
		}
		return values.Get(treatment.FieldName(set, index, field))
	}

	switch action {
	case "parcel":
		return nil, withID(header("parcel"), form.SetParcel)
	case "machine":
		return nil, withID(header("machine"), form.SetMachine)
	case "type":
		err := form.SetType(ctx, header("type"))
		if errors.Is(err, refdata.ErrStale) {
			return nil, nil
		}
		return nil, err
	case "water":
		form.SetWaterPerHa(dose.ParseAmount(header("water_per_ha")))
		return nil, nil
	case "name":
		form.SetName(header("name"))
		return nil, nil
	case "date":
		if err := form.SetDate(header("date")); err != nil {
			return []treatment.Problem{{Field: "date", Message: "Enter a valid date."}}, nil
		}
		return nil, nil
	case "finish_date":
		if err := form.SetFinishDate(header("finish_date")); err != nil {
			return []treatment.Problem{{Field: "finish_date", Message: "Enter a valid date."}}, nil
		}
		return nil, nil
	case "add_row":
		_, err := form.AddRow()
		return nil, err
	case "remove_row":
		index, err := row()
		if err != nil {
			return nil, err
		}
		return nil, form.RemoveRow(index)
	case "product":
		index, err := row()
		if err != nil {
			return nil, err
		}
		id, err := treatment.ParseID(rowValue(index, treatment.FieldProduct))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", treatment.ErrNoProduct, err)
		}
		return nil, form.SelectProduct(index, id)
	case "dose":
		index, err := row()
		if err != nil {
			return nil, err
		}
		return nil, form.EditDose(index, rowValue(index, treatment.FieldDose))
	case "total":
		index, err := row()
		if err != nil {
			return nil, err
		}
		return nil, form.EditTotal(index, rowValue(index, treatment.FieldTotal))
	case "default_dose":
		index, err := row()
		if err != nil {
			return nil, err
		}
		return nil, form.ApplyDefaultDose(index)
	case "next":
		problems, err := form.Next(ctx, now)
		if errors.Is(err, refdata.ErrStale) {
			return problems, nil
		}
		return problems, err
	case "back":
		form.Back()
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", errUnknownAction, action)
}

func withID(raw string, set func(uint) error) error {
	id, err := treatment.ParseID(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", treatment.ErrUnknownReference, err)
	}
	return set(id)
}

func rejectionNotice(form *treatment.Form, err error) string {
	switch {
	case errors.Is(err, treatment.ErrMaxRows):
		return fmt.Sprintf("A treatment can hold at most %d products.", form.Rows().MaxRows())
	case errors.Is(err, treatment.ErrLastRow):
		return "A treatment needs at least one product row."
	case errors.Is(err, treatment.ErrRowIndex):
		return "That product row no longer exists."
	case errors.Is(err, treatment.ErrNoProduct):
		return "That product is not available for this treatment type."
	case errors.Is(err, treatment.ErrUnknownReference):
		return "That selection is no longer available."
	case errors.Is(err, treatment.ErrUnknownType):
		return "Unknown treatment type."
	}
	return "The change could not be applied."
}

func setNoticeTrigger(w http.ResponseWriter, notice string) {
	payload, err := json.Marshal(map[string]string{"treatment-notice": notice})
	if err != nil {
		return
	}
	w.Header().Set(noticeTriggerHeader, string(payload))
}

func writeFormUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	applog.Error(r.Context(), "treatment form unavailable", "error", err)
	http.Error(w, "service unavailable", http.StatusServiceUnavailable)
}
