package treatment

import "errors"

var (
	// ErrMaxRows is returned when a row is added to a full collection.
	ErrMaxRows = errors.New("treatment: maximum number of product rows reached")
	// ErrLastRow is returned when removing the only remaining row.
	ErrLastRow = errors.New("treatment: at least one product row is required")
	// ErrRowIndex is returned for a row index outside the collection.
	ErrRowIndex = errors.New("treatment: product row index out of range")
	// ErrNoProduct is returned when a row operation needs a product that is
	// not selected or not eligible for the current treatment type.
	ErrNoProduct = errors.New("treatment: product not available")
	// ErrUnknownReference is returned when a parcel or machine id is not in
	// the loaded reference tables.
	ErrUnknownReference = errors.New("treatment: unknown reference record")
	// ErrUnknownType is returned for an unsupported treatment type.
	ErrUnknownType = errors.New("treatment: unknown treatment type")
)

// Problem is a single validation failure tied to a form field.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Rejected reports whether err is a boundary rejection that should be shown
// to the user as a notice rather than treated as a failure.
func Rejected(err error) bool {
	return errors.Is(err, ErrMaxRows) ||
		errors.Is(err, ErrLastRow) ||
		errors.Is(err, ErrRowIndex) ||
		errors.Is(err, ErrNoProduct) ||
		errors.Is(err, ErrUnknownReference) ||
		errors.Is(err, ErrUnknownType)
}
