package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"procureflow/back-office/back-office-backend/pkg/docstatus"
)

// Coordinator orchestrates one user-initiated transition: it consults the
// Navigator for the stage decision, the ActorResolver for who acts next,
// applies the per-line ledgers, persists header and lines as one atomic
// write, and publishes a TransitionCommitted event afterwards.
//
// Every mutation-affecting failure (NotFound, ConfigurationError,
// ValidationError, DependencyError, ErrVersionConflict) is detected before
// the write is issued; only notification handling may fail after it.
type Coordinator struct {
	catalog  Catalog
	dir      Directory
	store    DocumentStore
	numbers  NumberGenerator
	resolver *ActorResolver
	machine  *docstatus.Machine
	events   chan<- TransitionCommitted
	logger   *zap.Logger
	now      func() time.Time
}

func NewCoordinator(
	catalog Catalog,
	dir Directory,
	store DocumentStore,
	numbers NumberGenerator,
	events chan<- TransitionCommitted,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		catalog:  catalog,
		dir:      dir,
		store:    store,
		numbers:  numbers,
		resolver: NewActorResolver(dir),
		machine:  docstatus.NewMachine(),
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Submit moves a draft document into the approval pipeline: it assigns the
// real document number, advances from the entry stage to the first approval
// stage, resolves that stage's actors, and records a submit verdict on every
// line.
func (c *Coordinator) Submit(ctx context.Context, req TransitionRequest) (*Document, error) {
	doc, def, err := c.load(ctx, req, docstatus.Draft, ActionSubmitted)
	if err != nil {
		return nil, err
	}

	fromStage := doc.Header.CurrentStage
	nav, err := Navigate(def, fromStage, doc.Payload)
	if err != nil {
		return nil, err
	}
	fromStage = nav.CurrentStage
	if nav.NextStep == "" {
		return nil, &ConfigurationError{Stage: fromStage}
	}

	next, err := Navigate(def, nav.NextStep, doc.Payload)
	if err != nil {
		return nil, err
	}

	docNo, err := c.numbers.GenerateDocumentNumber(ctx, doc.Header.DocType, c.now())
	if err != nil {
		return nil, &DependencyError{Op: "generate document number", Err: err}
	}

	userAction, err := c.buildUserAction(ctx, def, next.CurrentStage, doc)
	if err != nil {
		return nil, err
	}

	at := c.now()
	doc.Header.DocNo = docNo
	if err := c.setStatus(&doc.Header, docstatus.InProgress); err != nil {
		return nil, err
	}
	doc.Header.PreviousStage = fromStage
	doc.Header.CurrentStage = next.CurrentStage
	doc.Header.NextStage = next.NextStep
	doc.Header.UserAction = userAction
	c.recordAction(&doc.Header, ActionSubmitted, req.ActingUser, at, fromStage, next.CurrentStage)

	// Submit records a submit verdict regardless of what the caller sent;
	// anything else would pre-finalize lines before an approver ever saw them.
	outcomes := outcomesByLine(req.Lines)
	for i := range doc.Lines {
		oc := outcomes[doc.Lines[i].ID]
		ApplyLineOutcome(&doc.Lines[i], fromStage, Outcome{Status: LineSubmit, Message: oc.Message}, req.ActingUser)
	}

	return c.commit(ctx, doc, req, ActionSubmitted)
}

// Approve records the caller's per-line verdicts and advances the header. If
// the current stage has no next step the document is terminal: doc_status
// becomes completed, workflow_next_stage the complete marker, and nobody is
// left to act.
func (c *Coordinator) Approve(ctx context.Context, req TransitionRequest) (*Document, error) {
	doc, def, err := c.load(ctx, req, docstatus.InProgress, ActionApproved)
	if err != nil {
		return nil, err
	}

	fromStage := doc.Header.CurrentStage
	nav, err := Navigate(def, fromStage, doc.Payload)
	if err != nil {
		return nil, err
	}

	at := c.now()
	if nav.NextStep == "" {
		if err := c.setStatus(&doc.Header, docstatus.Completed); err != nil {
			return nil, err
		}
		doc.Header.PreviousStage = fromStage
		doc.Header.NextStage = CompleteMarker
		doc.Header.UserAction = nil
		c.recordAction(&doc.Header, ActionApproved, req.ActingUser, at, fromStage, CompleteMarker)
	} else {
		next, err := Navigate(def, nav.NextStep, doc.Payload)
		if err != nil {
			return nil, err
		}
		userAction, err := c.buildUserAction(ctx, def, next.CurrentStage, doc)
		if err != nil {
			return nil, err
		}
		doc.Header.PreviousStage = fromStage
		doc.Header.CurrentStage = next.CurrentStage
		doc.Header.NextStage = next.NextStep
		doc.Header.UserAction = userAction
		c.recordAction(&doc.Header, ActionApproved, req.ActingUser, at, fromStage, next.CurrentStage)
	}

	outcomes := outcomesByLine(req.Lines)
	for i := range doc.Lines {
		oc := outcomes[doc.Lines[i].ID]
		ApplyLineOutcome(&doc.Lines[i], fromStage, oc, req.ActingUser)
	}

	return c.commit(ctx, doc, req, ActionApproved)
}

// Reject voids the document at its current stage: every line's ledger is
// marked rejected with a terminal reject entry, and the stage pointer does
// not advance.
func (c *Coordinator) Reject(ctx context.Context, req TransitionRequest) (*Document, error) {
	doc, def, err := c.load(ctx, req, docstatus.InProgress, ActionRejected)
	if err != nil {
		return nil, err
	}
	if _, err := def.StageByName(doc.Header.CurrentStage); err != nil {
		return nil, err
	}

	at := c.now()
	atStage := doc.Header.CurrentStage
	if err := c.setStatus(&doc.Header, docstatus.Voided); err != nil {
		return nil, err
	}
	doc.Header.UserAction = nil
	c.recordAction(&doc.Header, ActionRejected, req.ActingUser, at, atStage, CompleteMarker)

	outcomes := outcomesByLine(req.Lines)
	for i := range doc.Lines {
		oc := outcomes[doc.Lines[i].ID]
		RejectLine(&doc.Lines[i], atStage, oc, req.ActingUser)
	}

	return c.commit(ctx, doc, req, ActionRejected)
}

// Review sends the document back to a caller-supplied earlier stage, an
// explicit operator override that bypasses forward navigation. Lines already
// approved keep their verdict; every other line's ledger is rewound to the
// target stage.
func (c *Coordinator) Review(ctx context.Context, req ReviewRequest) (*Document, error) {
	doc, def, err := c.load(ctx, req.TransitionRequest, docstatus.InProgress, ActionReviewed)
	if err != nil {
		return nil, err
	}
	if def.StageIndex(req.TargetStage) < 0 {
		return nil, &ValidationError{Reason: fmt.Sprintf("stage %q does not exist in workflow definition", req.TargetStage)}
	}

	target, err := Navigate(def, req.TargetStage, doc.Payload)
	if err != nil {
		return nil, err
	}
	userAction, err := c.buildUserAction(ctx, def, req.TargetStage, doc)
	if err != nil {
		return nil, err
	}

	at := c.now()
	fromStage := doc.Header.CurrentStage
	doc.Header.PreviousStage = fromStage
	doc.Header.CurrentStage = req.TargetStage
	doc.Header.NextStage = target.NextStep
	doc.Header.UserAction = userAction
	c.recordAction(&doc.Header, ActionReviewed, req.ActingUser, at, fromStage, req.TargetStage)

	outcomes := outcomesByLine(req.Lines)
	for i := range doc.Lines {
		oc := outcomes[doc.Lines[i].ID]
		if oc.Status == LineApprove {
			continue
		}
		RewindLine(&doc.Lines[i], fromStage, req.TargetStage, Outcome{Status: oc.Status, Message: oc.Message}, req.ActingUser)
	}

	return c.commit(ctx, doc, req.TransitionRequest, ActionReviewed)
}

// load fetches the document and its workflow definition and runs every
// pre-write check: required status, version token, and line outcome
// completeness.
func (c *Coordinator) load(ctx context.Context, req TransitionRequest, required docstatus.Status, action Action) (*Document, *Definition, error) {
	doc, err := c.store.LoadDocument(ctx, req.DocID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, ErrNotFound
	}
	if doc.Header.DocStatus != required {
		return nil, nil, ErrNotFound
	}
	if doc.Header.DocVersion != req.DocVersion {
		return nil, nil, ErrVersionConflict
	}
	if err := validateLineOutcomes(doc, req.Lines, action); err != nil {
		return nil, nil, err
	}

	def, err := c.catalog.GetWorkflowDefinition(ctx, doc.Header.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	return doc, def, nil
}

func (c *Coordinator) setStatus(h *Header, to docstatus.Status) error {
	if !c.machine.CanTransition(h.DocStatus, to) {
		return &ValidationError{Reason: fmt.Sprintf("document status %s cannot move to %s", h.DocStatus, to)}
	}
	h.DocStatus = to
	return nil
}

func (c *Coordinator) buildUserAction(ctx context.Context, def *Definition, stageName string, doc *Document) (*UserAction, error) {
	stage, err := def.StageByName(stageName)
	if err != nil {
		return nil, err
	}
	actors, err := c.resolver.ResolveActors(ctx, stage, DocumentContext{DepartmentID: doc.Header.DepartmentID})
	if err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return nil, nil
	}
	return &UserAction{Execute: actors}, nil
}

func (c *Coordinator) recordAction(h *Header, action Action, actor User, at time.Time, currentStage, nextStage string) {
	h.LastAction = action
	h.LastActionAt = at
	h.LastActionByID = actor.ID
	h.LastActionByName = actor.Name
	h.WorkflowHistory = append(h.WorkflowHistory, WorkflowHistoryEntry{
		Action:       action,
		Datetime:     at,
		User:         actor,
		CurrentStage: currentStage,
		NextStage:    nextStage,
	})
}

// commit issues the atomic header+lines write and publishes the post-commit
// event. The version token is incremented with the write.
func (c *Coordinator) commit(ctx context.Context, doc *Document, req TransitionRequest, action Action) (*Document, error) {
	expected := doc.Header.DocVersion
	doc.Header.DocVersion = expected + 1

	if err := c.store.SaveTransition(ctx, doc, expected); err != nil {
		return nil, err
	}

	c.publish(TransitionCommitted{
		DocID:      doc.Header.ID,
		DocType:    doc.Header.DocType,
		DocNo:      doc.Header.DocNo,
		Action:     action,
		Header:     doc.Header,
		ActingUser: req.ActingUser,
	})
	return doc, nil
}

func (c *Coordinator) publish(ev TransitionCommitted) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("transition event channel full, dropping notification",
			zap.String("doc_id", ev.DocID.String()),
			zap.String("action", string(ev.Action)))
	}
}

// lineStatusesByAction is the closed set of per-line verdicts each transition
// accepts from the caller. Statuses outside the set never reach the ledgers.
var lineStatusesByAction = map[Action]map[LineStatus]bool{
	ActionSubmitted: {LineSubmit: true},
	ActionApproved:  {LineApprove: true, LineReject: true, LinePending: true},
	ActionRejected:  {LineReject: true},
	ActionReviewed:  {LineReview: true, LineApprove: true},
}

// validateLineOutcomes rejects a transition whose per-line outcomes reference
// lines that do not belong to the document, omit a required line, or carry a
// status the action does not accept.
func validateLineOutcomes(doc *Document, outcomes []LineOutcome, action Action) error {
	known := make(map[uuid.UUID]bool, len(doc.Lines))
	for _, line := range doc.Lines {
		known[line.ID] = true
	}

	allowed := lineStatusesByAction[action]
	supplied := make(map[uuid.UUID]bool, len(outcomes))
	for _, oc := range outcomes {
		if !known[oc.LineID] {
			return &ValidationError{Reason: fmt.Sprintf("line %s does not belong to document", oc.LineID)}
		}
		if supplied[oc.LineID] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate outcome for line %s", oc.LineID)}
		}
		if !allowed[oc.Status] {
			return &ValidationError{Reason: fmt.Sprintf("line status %q is not valid for %s", oc.Status, action)}
		}
		supplied[oc.LineID] = true
	}
	for _, line := range doc.Lines {
		if !supplied[line.ID] {
			return &ValidationError{Reason: fmt.Sprintf("missing outcome for line %s", line.ID)}
		}
	}
	return nil
}

func outcomesByLine(outcomes []LineOutcome) map[uuid.UUID]Outcome {
	m := make(map[uuid.UUID]Outcome, len(outcomes))
	for _, oc := range outcomes {
		m[oc.LineID] = Outcome{Status: oc.Status, Message: oc.Message}
	}
	return m
}
