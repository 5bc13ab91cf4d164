package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"receiving-service/internal/models"
	"receiving-service/internal/reconcile"
)

// Catalog resolves codes to products
type Catalog interface {
	FindByBarcode(ctx context.Context, barcode string) (*models.Product, error)
}

// Ledger is the part of the import ledger a session writes to
type Ledger interface {
	Get(ctx context.Context, id int64) (*models.ImportRecord, error)
	Append(ctx context.Context, record models.ImportRecord, idempotencyKey string) (models.ImportRecord, error)
	Update(ctx context.Context, id int64, record models.ImportRecord) (models.ImportRecord, error)
	Delete(ctx context.Context, id int64) error
}

// Session holds the transient working state of one data-entry client.
// Operations on a session are serialised.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	form       reconcile.Form
	lastActive time.Time

	catalog Catalog
	ledger  Ledger
	now     func() time.Time
}

// View is a read-only copy of a session for clients
type View struct {
	ID          string          `json:"session_id"`
	State       StateKind       `json:"state"`
	Product     *models.Product `json:"product,omitempty"`
	Code        string          `json:"code,omitempty"`
	RecordID    int64           `json:"record_id,omitempty"`
	Form        reconcile.Form  `json:"form"`
	QtyAccepted int             `json:"qty_accepted"`
}

func newSession(id string, catalog Catalog, ledger Ledger, now func() time.Time) *Session {
	return &Session{
		ID:         id,
		state:      Idle{},
		lastActive: now(),
		catalog:    catalog,
		ledger:     ledger,
		now:        now,
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns a snapshot of the session
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:          s.ID,
		State:       s.state.Kind(),
		Form:        s.form,
		QtyAccepted: reconcile.LiveAccepted(s.form.QtyReceived, s.form.QtyRejected),
	}
	switch st := s.state.(type) {
	case Resolving:
		v.Code = st.Code
	case Resolved:
		p := st.Product
		v.Product = &p
	case Unresolved:
		v.Code = st.Code
	case Editing:
		p := st.Snapshot
		v.Product = &p
		v.RecordID = st.RecordID
	}
	return v
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.lastActive = s.now()
}

// Resolve looks code up in the catalog. On success the product is snapshotted
// into the session; otherwise the session becomes Unresolved and the lookup
// error is returned. Quantity, lot, date and notes fields are kept either way.
// While editing, the selected record stays selected: a hit replaces its
// snapshot and a miss leaves the session untouched.
func (s *Session) Resolve(ctx context.Context, code string) (models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	code = strings.TrimSpace(code)
	editing, isEditing := s.state.(Editing)
	s.state = Resolving{Code: code}

	product, err := s.catalog.FindByBarcode(ctx, code)
	if err != nil {
		if isEditing {
			s.state = editing
		} else {
			s.state = Unresolved{Code: code}
		}
		return models.Product{}, err
	}

	if isEditing {
		s.state = Editing{RecordID: editing.RecordID, Snapshot: *product}
	} else {
		s.state = Resolved{Product: *product}
	}
	return *product, nil
}

// Recompute stores the in-progress form and returns the live accepted quantity
func (s *Session) Recompute(form reconcile.Form) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.form = form
	return reconcile.LiveAccepted(form.QtyReceived, form.QtyRejected)
}

// Commit validates form against the session's product and appends a new
// record, or replaces the selected one when editing. Nothing is written on
// a validation failure. A successful commit clears the session.
func (s *Session) Commit(ctx context.Context, form reconcile.Form, idempotencyKey string) (models.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.form = form

	var (
		snapshot models.Product
		recordID int64
	)
	switch st := s.state.(type) {
	case Resolved:
		snapshot = st.Product
	case Editing:
		snapshot = st.Snapshot
		recordID = st.RecordID
	}

	record, err := reconcile.BuildRecord(snapshot, form)
	if err != nil {
		return models.ImportRecord{}, err
	}

	if recordID != 0 {
		record, err = s.ledger.Update(ctx, recordID, record)
	} else {
		record, err = s.ledger.Append(ctx, record, idempotencyKey)
	}
	if err != nil {
		return models.ImportRecord{}, err
	}

	s.clearLocked()
	return record, nil
}

// Select loads an existing record for editing. The product snapshot comes
// from the record itself, not from the catalog.
func (s *Session) Select(ctx context.Context, recordID int64) (models.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	record, err := s.ledger.Get(ctx, recordID)
	if err != nil {
		return models.ImportRecord{}, err
	}

	s.state = Editing{RecordID: record.ID, Snapshot: reconcile.Snapshot(*record)}
	s.form = reconcile.FormFromRecord(*record)
	return *record, nil
}

// DeleteSelected removes the selected record and clears the session
func (s *Session) DeleteSelected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	editing, ok := s.state.(Editing)
	if !ok {
		return models.NewValidationError(models.FieldRecord, "no record selected")
	}

	if err := s.ledger.Delete(ctx, editing.RecordID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.clearLocked()
		}
		return fmt.Errorf("delete record %d: %w", editing.RecordID, err)
	}

	s.clearLocked()
	return nil
}

// Clear resets all working state
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.clearLocked()
}

func (s *Session) clearLocked() {
	s.state = Idle{}
	s.form = reconcile.Form{}
}
