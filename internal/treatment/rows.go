package treatment

import "fmt"

// Rows is the ordered collection of product rows. Rows live in a fixed
// capacity slot array; slots[0:count] are in use and slots past count are nil.
// There is always at least one row.
type Rows struct {
	slots []*Line
	count int
}

// NewRows creates a collection holding one empty row.
func NewRows(maxRows int) (*Rows, error) {
	if maxRows < 1 {
		return nil, fmt.Errorf("treatment: max rows must be at least 1, got %d", maxRows)
	}
	r := &Rows{slots: make([]*Line, maxRows)}
	r.Reset()
	return r, nil
}

// MaxRows is the capacity of the collection.
func (r *Rows) MaxRows() int { return len(r.slots) }

// Count is the number of rows in use.
func (r *Rows) Count() int { return r.count }

// AddRow appends an empty row. The new row never inherits state from its
// siblings.
func (r *Rows) AddRow() (*Line, error) {
	if r.count == len(r.slots) {
		return nil, ErrMaxRows
	}
	line := newLine(r.count)
	r.slots[r.count] = line
	r.count++
	return line, nil
}

// RemoveRow deletes the row at index and renumbers the rest.
func (r *Rows) RemoveRow(index int) error {
	if index < 0 || index >= r.count {
		return fmt.Errorf("%w: %d", ErrRowIndex, index)
	}
	if r.count == 1 {
		return ErrLastRow
	}
	copy(r.slots[index:], r.slots[index+1:r.count])
	r.count--
	r.slots[r.count] = nil
	r.Reindex()
	return nil
}

// Reindex assigns indices 0..Count()-1 in display order.
func (r *Rows) Reindex() {
	for i := 0; i < r.count; i++ {
		r.slots[i].index = i
	}
}

// Row returns the row at index.
func (r *Rows) Row(index int) (*Line, error) {
	if index < 0 || index >= r.count {
		return nil, fmt.Errorf("%w: %d", ErrRowIndex, index)
	}
	return r.slots[index], nil
}

// Lines returns the rows in display order.
func (r *Rows) Lines() []*Line {
	out := make([]*Line, r.count)
	copy(out, r.slots[:r.count])
	return out
}

// Reset drops every row and leaves a single empty one.
func (r *Rows) Reset() {
	clear(r.slots)
	r.slots[0] = newLine(0)
	r.count = 1
}

func (r *Rows) each(fn func(*Line)) {
	for i := 0; i < r.count; i++ {
		fn(r.slots[i])
	}
}
