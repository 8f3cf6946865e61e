package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"procureflow/back-office/back-office-backend/pkg/docstatus"
)

// Action is a user-initiated transition on a document.
type Action string

const (
	ActionSubmitted Action = "submitted"
	ActionApproved  Action = "approved"
	ActionRejected  Action = "rejected"
	ActionReviewed  Action = "reviewed"
)

// LineStatus is the verdict recorded for one line at one stage.
type LineStatus string

const (
	LineSubmit  LineStatus = "submit"
	LineApprove LineStatus = "approve"
	LineReject  LineStatus = "reject"
	LinePending LineStatus = "pending"
	LineReview  LineStatus = "review"
)

// CompleteMarker is the workflow_next_stage sentinel for a document that has
// passed its final stage.
const CompleteMarker = "-"

// User identifies an acting or recorded user.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// WorkflowHistoryEntry is the header-level audit trail. Entries are never
// mutated after insertion.
type WorkflowHistoryEntry struct {
	Action       Action    `json:"action"`
	Datetime     time.Time `json:"datetime"`
	User         User      `json:"user"`
	CurrentStage string    `json:"current_stage"`
	NextStage    string    `json:"next_stage"`
}

// StageStatus is one entry of a line's compact per-stage verdict ledger.
// Only the last entry may be amended, and only under the conditions in
// ApplyLineOutcome.
type StageStatus struct {
	Seq     int        `json:"seq"`
	Status  LineStatus `json:"status"`
	Name    string     `json:"name"`
	Message string     `json:"message"`
}

// HistoryEntry is one entry of a line's strictly append-only audit trail.
type HistoryEntry struct {
	Seq     int        `json:"seq"`
	Status  LineStatus `json:"status"`
	Name    string     `json:"name"`
	Message string     `json:"message"`
	User    User       `json:"user"`
}

// UserAction holds the users permitted to act on the document next. It is
// the authorization gate the calling layer checks membership against.
type UserAction struct {
	Execute []string `json:"execute"`
}

// Header is the engine's view of an approvable document header.
type Header struct {
	ID               uuid.UUID
	DocType          string
	DocNo            string
	DocStatus        docstatus.Status
	DocVersion       int
	WorkflowID       uuid.UUID
	CurrentStage     string
	PreviousStage    string
	NextStage        string
	UserAction       *UserAction
	LastAction       Action
	LastActionAt     time.Time
	LastActionByID   string
	LastActionByName string
	WorkflowHistory  []WorkflowHistoryEntry
	RequestorID      string
	DepartmentID     string
}

// Line is the engine's view of one document line item and its two ledgers.
type Line struct {
	ID                 uuid.UUID
	StagesStatus       []StageStatus
	History            []HistoryEntry
	CurrentStageStatus string
}

// Document is the header plus every line item, loaded and written as one
// unit. Payload carries the fields routing rule conditions are evaluated
// against (e.g. the document total amount), computed by the store.
type Document struct {
	Header  Header
	Lines   []Line
	Payload map[string]any
}

// LineOutcome is the caller-supplied verdict for one line in a transition.
type LineOutcome struct {
	LineID  uuid.UUID  `json:"id"`
	Status  LineStatus `json:"status"`
	Message string     `json:"message"`
}

// TransitionRequest is one user-initiated transition attempt.
type TransitionRequest struct {
	DocID      uuid.UUID
	DocVersion int
	Lines      []LineOutcome
	ActingUser User
}

// ReviewRequest is a send-back: the header is moved to TargetStage without
// consulting the forward navigation logic.
type ReviewRequest struct {
	TransitionRequest
	TargetStage string
}

// TransitionCommitted is published after the atomic write of one transition
// succeeds. Notification fan-out consumes it asynchronously; its handling
// never affects the committed transition.
type TransitionCommitted struct {
	DocID      uuid.UUID
	DocType    string
	DocNo      string
	Action     Action
	Header     Header
	ActingUser User
}

// Catalog looks up workflow definitions.
type Catalog interface {
	GetWorkflowDefinition(ctx context.Context, workflowID uuid.UUID) (*Definition, error)
}

// Directory resolves department membership.
type Directory interface {
	ListUsersInDepartment(ctx context.Context, departmentID string) ([]string, error)
}

// DocumentStore loads and atomically persists documents. SaveTransition must
// write the header and every line as one transaction, guarded by
// expectedVersion; it returns ErrVersionConflict when the stored doc_version
// has moved.
type DocumentStore interface {
	LoadDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	SaveTransition(ctx context.Context, doc *Document, expectedVersion int) error
}

// NumberGenerator assigns document numbers from a two-part pattern: a date
// component plus a zero-padded running counter scoped per date.
type NumberGenerator interface {
	GenerateDocumentNumber(ctx context.Context, docType string, issueDate time.Time) (string, error)
}
