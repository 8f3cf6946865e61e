package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"procureflow/back-office/back-office-backend/pkg/docstatus"
)

// MockCatalog is a mock implementation of the Catalog interface
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetWorkflowDefinition(ctx context.Context, workflowID uuid.UUID) (*Definition, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Definition), args.Error(1)
}

// MockDocumentStore is a mock implementation of the DocumentStore interface
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) LoadDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockDocumentStore) SaveTransition(ctx context.Context, doc *Document, expectedVersion int) error {
	args := m.Called(ctx, doc, expectedVersion)
	return args.Error(0)
}

// MockNumberGenerator is a mock implementation of the NumberGenerator interface
type MockNumberGenerator struct {
	mock.Mock
}

func (m *MockNumberGenerator) GenerateDocumentNumber(ctx context.Context, docType string, issueDate time.Time) (string, error) {
	args := m.Called(ctx, docType, issueDate)
	return args.String(0), args.Error(1)
}

type coordinatorFixture struct {
	catalog *MockCatalog
	dir     *MockDirectory
	store   *MockDocumentStore
	numbers *MockNumberGenerator
	events  chan TransitionCommitted
	coord   *Coordinator
}

var fixedNow = time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		catalog: new(MockCatalog),
		dir:     new(MockDirectory),
		store:   new(MockDocumentStore),
		numbers: new(MockNumberGenerator),
		events:  make(chan TransitionCommitted, 4),
	}
	f.coord = NewCoordinator(f.catalog, f.dir, f.store, f.numbers, f.events, zap.NewNop())
	f.coord.now = func() time.Time { return fixedNow }
	return f
}

func draftDocument(workflowID uuid.UUID, lineIDs ...uuid.UUID) *Document {
	doc := &Document{
		Header: Header{
			ID:           uuid.New(),
			DocType:      "PR",
			DocNo:        "draft-20260831103000",
			DocStatus:    docstatus.Draft,
			DocVersion:   1,
			WorkflowID:   workflowID,
			RequestorID:  "req-1",
			DepartmentID: "dept-1",
		},
		Payload: map[string]any{"amount": float64(100)},
	}
	for _, id := range lineIDs {
		doc.Lines = append(doc.Lines, Line{ID: id, CurrentStageStatus: "draft"})
	}
	return doc
}

func submitOutcomes(lineIDs ...uuid.UUID) []LineOutcome {
	out := make([]LineOutcome, 0, len(lineIDs))
	for _, id := range lineIDs {
		out = append(out, LineOutcome{LineID: id, Status: LineSubmit})
	}
	return out
}

func TestSubmitDraft(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := draftDocument(workflowID, lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.numbers.On("GenerateDocumentNumber", ctx, "PR", fixedNow).Return("PR-20260831-0001", nil)
	f.store.On("SaveTransition", ctx, doc, 1).Return(nil)

	result, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      submitOutcomes(lineID),
		ActingUser: User{ID: "req-1", Name: "Riley"},
	})

	require.NoError(t, err)
	assert.Equal(t, "PR-20260831-0001", result.Header.DocNo)
	assert.Equal(t, docstatus.InProgress, result.Header.DocStatus)
	assert.Equal(t, "create", result.Header.PreviousStage)
	assert.Equal(t, "manager_approval", result.Header.CurrentStage)
	assert.Equal(t, "finance_approval", result.Header.NextStage)
	assert.Equal(t, 2, result.Header.DocVersion)

	require.NotNil(t, result.Header.UserAction)
	assert.Equal(t, []string{"mgr-1"}, result.Header.UserAction.Execute)

	require.Len(t, result.Header.WorkflowHistory, 1)
	entry := result.Header.WorkflowHistory[0]
	assert.Equal(t, ActionSubmitted, entry.Action)
	assert.Equal(t, "create", entry.CurrentStage)
	assert.Equal(t, "manager_approval", entry.NextStage)
	assert.Equal(t, "Riley", entry.User.Name)

	require.Len(t, result.Lines[0].StagesStatus, 1)
	assert.Equal(t, LineSubmit, result.Lines[0].StagesStatus[0].Status)
	assert.Equal(t, "create", result.Lines[0].StagesStatus[0].Name)

	f.store.AssertExpectations(t)
	f.numbers.AssertExpectations(t)
}

func TestSubmitHighAmountSkipsManagerApproval(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := draftDocument(workflowID, lineID)
	doc.Payload["amount"] = float64(75000)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.numbers.On("GenerateDocumentNumber", ctx, "PR", fixedNow).Return("PR-20260831-0002", nil)
	f.store.On("SaveTransition", ctx, doc, 1).Return(nil)

	result, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      submitOutcomes(lineID),
		ActingUser: User{ID: "req-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "finance_approval", result.Header.CurrentStage)
	assert.Equal(t, "", result.Header.NextStage, "finance is the last stage")
}

func TestSubmitVersionConflict(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	lineID := uuid.New()
	doc := draftDocument(uuid.New(), lineID)
	doc.Header.DocVersion = 3

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)

	_, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      submitOutcomes(lineID),
		ActingUser: User{ID: "req-1"},
	})

	assert.ErrorIs(t, err, ErrVersionConflict)
	f.store.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitNonDraftNotFound(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	lineID := uuid.New()
	doc := draftDocument(uuid.New(), lineID)
	doc.Header.DocStatus = docstatus.InProgress

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)

	_, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      submitOutcomes(lineID),
		ActingUser: User{ID: "req-1"},
	})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitMissingLineOutcome(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	lineA := uuid.New()
	lineB := uuid.New()
	doc := draftDocument(uuid.New(), lineA, lineB)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)

	_, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      submitOutcomes(lineA),
		ActingUser: User{ID: "req-1"},
	})

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestSubmitUnknownLineOutcome(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	lineID := uuid.New()
	doc := draftDocument(uuid.New(), lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)

	_, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      submitOutcomes(lineID, uuid.New()),
		ActingUser: User{ID: "req-1"},
	})

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestSubmitIgnoresCallerApproveStatus(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	lineID := uuid.New()
	doc := draftDocument(uuid.New(), lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)

	_, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      []LineOutcome{{LineID: lineID, Status: LineApprove}},
		ActingUser: User{ID: "req-1"},
	})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Empty(t, doc.Lines[0].StagesStatus, "no verdict recorded for a rejected submit")
	f.store.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmittedLineStaysOpenForApprovers(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := draftDocument(workflowID, lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.numbers.On("GenerateDocumentNumber", ctx, "PR", fixedNow).Return("PR-20260831-0003", nil)
	f.store.On("SaveTransition", ctx, doc, 1).Return(nil)

	result, err := f.coord.Submit(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 1,
		Lines:      submitOutcomes(lineID),
		ActingUser: User{ID: "req-1"},
	})
	require.NoError(t, err)

	require.Len(t, result.Lines[0].StagesStatus, 1)
	assert.Equal(t, LineSubmit, result.Lines[0].StagesStatus[0].Status)

	ApplyLineOutcome(&result.Lines[0], "manager_approval", Outcome{Status: LineApprove}, User{ID: "mgr-1"})

	require.Len(t, result.Lines[0].StagesStatus, 2, "approver verdict must land after submit")
	assert.Equal(t, LineApprove, result.Lines[0].StagesStatus[1].Status)
}

func inProgressDocument(workflowID uuid.UUID, currentStage string, lineIDs ...uuid.UUID) *Document {
	doc := draftDocument(workflowID, lineIDs...)
	doc.Header.DocStatus = docstatus.InProgress
	doc.Header.DocNo = "PR-20260831-0001"
	doc.Header.CurrentStage = currentStage
	doc.Header.DocVersion = 2
	for i := range doc.Lines {
		doc.Lines[i].StagesStatus = []StageStatus{
			{Seq: 1, Status: LineSubmit, Name: "create", Message: "submit for approval"},
		}
		doc.Lines[i].History = []HistoryEntry{
			{Seq: 1, Status: LineSubmit, Name: "create", Message: "submit for approval", User: User{ID: "req-1"}},
		}
		doc.Lines[i].CurrentStageStatus = ""
	}
	return doc
}

func approveOutcomes(lineIDs ...uuid.UUID) []LineOutcome {
	out := make([]LineOutcome, 0, len(lineIDs))
	for _, id := range lineIDs {
		out = append(out, LineOutcome{LineID: id, Status: LineApprove})
	}
	return out
}

func TestApproveAdvancesToNextStage(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "manager_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(nil)

	result, err := f.coord.Approve(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      approveOutcomes(lineID),
		ActingUser: User{ID: "mgr-1", Name: "Morgan"},
	})

	require.NoError(t, err)
	assert.Equal(t, docstatus.InProgress, result.Header.DocStatus)
	assert.Equal(t, "manager_approval", result.Header.PreviousStage)
	assert.Equal(t, "finance_approval", result.Header.CurrentStage)
	assert.Equal(t, "", result.Header.NextStage)
	require.NotNil(t, result.Header.UserAction)
	assert.Equal(t, []string{"fin-1"}, result.Header.UserAction.Execute)
	assert.Equal(t, 3, result.Header.DocVersion)

	require.Len(t, result.Lines[0].StagesStatus, 2)
	assert.Equal(t, LineApprove, result.Lines[0].StagesStatus[1].Status)
	assert.Equal(t, "manager_approval", result.Lines[0].StagesStatus[1].Name)
}

func TestApproveRejectsUnknownLineStatus(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	lineID := uuid.New()
	doc := inProgressDocument(uuid.New(), "manager_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)

	_, err := f.coord.Approve(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      []LineOutcome{{LineID: lineID, Status: LineStatus("cancel")}},
		ActingUser: User{ID: "mgr-1"},
	})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	f.store.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveFinalStageCompletes(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "finance_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(nil)

	result, err := f.coord.Approve(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      approveOutcomes(lineID),
		ActingUser: User{ID: "fin-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, docstatus.Completed, result.Header.DocStatus)
	assert.Equal(t, "finance_approval", result.Header.PreviousStage)
	assert.Equal(t, "finance_approval", result.Header.CurrentStage, "stage pointer does not move past the end")
	assert.Equal(t, CompleteMarker, result.Header.NextStage)
	assert.Nil(t, result.Header.UserAction, "nobody is left to act")

	entry := result.Header.WorkflowHistory[len(result.Header.WorkflowHistory)-1]
	assert.Equal(t, CompleteMarker, entry.NextStage)
}

func TestRejectVoidsDocument(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "manager_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(nil)

	result, err := f.coord.Reject(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      []LineOutcome{{LineID: lineID, Status: LineReject, Message: "not budgeted"}},
		ActingUser: User{ID: "mgr-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, docstatus.Voided, result.Header.DocStatus)
	assert.Equal(t, "manager_approval", result.Header.CurrentStage, "stage pointer unchanged on reject")
	assert.Nil(t, result.Header.UserAction)

	require.Len(t, result.Lines[0].StagesStatus, 2)
	for _, entry := range result.Lines[0].StagesStatus {
		assert.Equal(t, LineReject, entry.Status)
	}
}

func TestReviewSendsBackToTargetStage(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "finance_approval", lineID)
	doc.Lines[0].StagesStatus = append(doc.Lines[0].StagesStatus, StageStatus{
		Seq: 2, Status: LinePending, Name: "manager_approval",
	})

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(nil)

	result, err := f.coord.Review(ctx, ReviewRequest{
		TransitionRequest: TransitionRequest{
			DocID:      doc.Header.ID,
			DocVersion: 2,
			Lines:      []LineOutcome{{LineID: lineID, Status: LineReview, Message: "re-check vendor"}},
			ActingUser: User{ID: "fin-1"},
		},
		TargetStage: "manager_approval",
	})

	require.NoError(t, err)
	assert.Equal(t, "finance_approval", result.Header.PreviousStage)
	assert.Equal(t, "manager_approval", result.Header.CurrentStage)
	assert.Equal(t, "finance_approval", result.Header.NextStage)
	require.NotNil(t, result.Header.UserAction)
	assert.Equal(t, []string{"mgr-1"}, result.Header.UserAction.Execute)

	require.Len(t, result.Lines[0].StagesStatus, 2)
	assert.Equal(t, LinePending, result.Lines[0].StagesStatus[1].Status)

	last := result.Lines[0].History[len(result.Lines[0].History)-1]
	assert.Equal(t, LineReview, last.Status)
	assert.Equal(t, "finance_approval", last.Name)
}

func TestReviewApprovedLineUntouched(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineA := uuid.New()
	lineB := uuid.New()
	doc := inProgressDocument(workflowID, "finance_approval", lineA, lineB)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(nil)

	result, err := f.coord.Review(ctx, ReviewRequest{
		TransitionRequest: TransitionRequest{
			DocID:      doc.Header.ID,
			DocVersion: 2,
			Lines: []LineOutcome{
				{LineID: lineA, Status: LineApprove},
				{LineID: lineB, Status: LineReview, Message: "wrong item"},
			},
			ActingUser: User{ID: "fin-1"},
		},
		TargetStage: "create",
	})

	require.NoError(t, err)
	assert.Len(t, result.Lines[0].History, 1, "approved line gets no review entry")
	assert.Len(t, result.Lines[1].History, 2)
}

func TestReviewUnknownTargetStage(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "finance_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)

	_, err := f.coord.Review(ctx, ReviewRequest{
		TransitionRequest: TransitionRequest{
			DocID:      doc.Header.ID,
			DocVersion: 2,
			Lines:      []LineOutcome{{LineID: lineID, Status: LineReview}},
			ActingUser: User{ID: "fin-1"},
		},
		TargetStage: "ghost_stage",
	})

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
	f.store.AssertNotCalled(t, "SaveTransition", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionCommittedPublished(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "finance_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(nil)

	_, err := f.coord.Approve(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      approveOutcomes(lineID),
		ActingUser: User{ID: "fin-1"},
	})
	require.NoError(t, err)

	select {
	case ev := <-f.events:
		assert.Equal(t, doc.Header.ID, ev.DocID)
		assert.Equal(t, ActionApproved, ev.Action)
		assert.Equal(t, "PR-20260831-0001", ev.DocNo)
		assert.Equal(t, "fin-1", ev.ActingUser.ID)
	default:
		t.Fatal("expected a TransitionCommitted event")
	}
}

func TestSaveFailureNoEvent(t *testing.T) {
	f := newCoordinatorFixture()
	ctx := context.Background()

	workflowID := uuid.New()
	lineID := uuid.New()
	doc := inProgressDocument(workflowID, "finance_approval", lineID)

	f.store.On("LoadDocument", ctx, doc.Header.ID).Return(doc, nil)
	f.catalog.On("GetWorkflowDefinition", ctx, workflowID).Return(purchaseDefinition(), nil)
	f.store.On("SaveTransition", ctx, doc, 2).Return(ErrVersionConflict)

	_, err := f.coord.Approve(ctx, TransitionRequest{
		DocID:      doc.Header.ID,
		DocVersion: 2,
		Lines:      approveOutcomes(lineID),
		ActingUser: User{ID: "fin-1"},
	})

	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Empty(t, f.events, "no event published for a failed write")
}
