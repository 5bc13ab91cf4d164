// Package workflow drives data entry from a scanned or typed code to a
// committed ledger record. Each Session is a small state machine; the
// Manager keeps one Session per client.
package workflow

import "receiving-service/internal/models"

// StateKind names a workflow state
type StateKind string

const (
	KindIdle       StateKind = "IDLE"
	KindResolving  StateKind = "RESOLVING"
	KindResolved   StateKind = "RESOLVED"
	KindUnresolved StateKind = "UNRESOLVED"
	KindEditing    StateKind = "EDITING"
)

// State is one of Idle, Resolving, Resolved, Unresolved or Editing
type State interface {
	Kind() StateKind
	isState()
}

// Idle has no product and no selected record
type Idle struct{}

// Resolving holds the code being looked up
type Resolving struct {
	Code string
}

// Resolved holds the product a new entry will be committed against
type Resolved struct {
	Product models.Product
}

// Unresolved holds a code that matched no product; nothing can be committed
type Unresolved struct {
	Code string
}

// Editing holds an existing record selected for update or delete,
// with the product snapshot loaded from that record
type Editing struct {
	RecordID int64
	Snapshot models.Product
}

func (Idle) Kind() StateKind       { return KindIdle }
func (Resolving) Kind() StateKind  { return KindResolving }
func (Resolved) Kind() StateKind   { return KindResolved }
func (Unresolved) Kind() StateKind { return KindUnresolved }
func (Editing) Kind() StateKind    { return KindEditing }

func (Idle) isState()       {}
func (Resolving) isState()  {}
func (Resolved) isState()   {}
func (Unresolved) isState() {}
func (Editing) isState()    {}
