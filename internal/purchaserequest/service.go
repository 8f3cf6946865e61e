package purchaserequest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"procureflow/back-office/back-office-backend/internal/catalog"
	"procureflow/back-office/back-office-backend/internal/numbering"
	"procureflow/back-office/back-office-backend/internal/workflow"
)

// TransitionEngine is the slice of the transition coordinator this service
// uses.
type TransitionEngine interface {
	Submit(ctx context.Context, req workflow.TransitionRequest) (*workflow.Document, error)
	Approve(ctx context.Context, req workflow.TransitionRequest) (*workflow.Document, error)
	Reject(ctx context.Context, req workflow.TransitionRequest) (*workflow.Document, error)
	Review(ctx context.Context, req workflow.ReviewRequest) (*workflow.Document, error)
}

type Service struct {
	repo    Repository
	engine  TransitionEngine
	catalog *catalog.Service
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, engine TransitionEngine, cat *catalog.Service, logger *zap.Logger) *Service {
	return &Service{repo: repo, engine: engine, catalog: cat, logger: logger, now: time.Now}
}

// ItemInput is one requested line on a draft.
type ItemInput struct {
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"qty" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" binding:"gte=0"`
	UOM         string  `json:"uom"`
}

// CreateDraftRequest creates a new purchase request draft.
type CreateDraftRequest struct {
	Purpose  string      `json:"purpose"`
	NeededBy *time.Time  `json:"needed_by"`
	Currency string      `json:"currency"`
	Items    []ItemInput `json:"items" binding:"required,min=1,dive"`
}

// Requestor identifies who a draft belongs to.
type Requestor struct {
	ID           string
	Name         string
	DepartmentID string
}

// CreateDraft stores a new draft bound to the active purchase request
// workflow. Drafts carry a placeholder number until submission.
func (s *Service) CreateDraft(ctx context.Context, req CreateDraftRequest, by Requestor) (*PurchaseRequest, error) {
	wf, _, err := s.catalog.ActiveWorkflowForDocType(ctx, DocType)
	if err != nil {
		return nil, err
	}

	pr := &PurchaseRequest{
		PRNo:          numbering.DraftNumber(s.now()),
		DocVersion:    1,
		WorkflowID:    wf.ID,
		RequestorID:   by.ID,
		RequestorName: by.Name,
		DepartmentID:  by.DepartmentID,
		Purpose:       req.Purpose,
		NeededBy:      req.NeededBy,
		Currency:      req.Currency,
	}
	if pr.Currency == "" {
		pr.Currency = "USD"
	}
	pr.Items, pr.TotalAmount = buildItems(req.Items)

	if err := s.repo.Create(ctx, pr); err != nil {
		return nil, err
	}

	s.logger.Info("purchase request draft created",
		zap.String("id", pr.ID.String()),
		zap.String("pr_no", pr.PRNo),
		zap.String("requestor_id", by.ID))
	return pr, nil
}

// UpdateDraftRequest edits an existing draft's business fields.
type UpdateDraftRequest struct {
	DocVersion int         `json:"doc_version" binding:"required"`
	Purpose    string      `json:"purpose"`
	NeededBy   *time.Time  `json:"needed_by"`
	Currency   string      `json:"currency"`
	Items      []ItemInput `json:"items" binding:"required,min=1,dive"`
}

func (s *Service) UpdateDraft(ctx context.Context, id uuid.UUID, req UpdateDraftRequest, by Requestor) (*PurchaseRequest, error) {
	pr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.RequestorID != by.ID {
		return nil, &workflow.ValidationError{Reason: "only the requestor may edit a draft"}
	}

	pr.DocVersion = req.DocVersion
	pr.Purpose = req.Purpose
	pr.NeededBy = req.NeededBy
	if req.Currency != "" {
		pr.Currency = req.Currency
	}
	pr.Items, pr.TotalAmount = buildItems(req.Items)

	if err := s.repo.UpdateDraft(ctx, pr); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// TransitionInput carries one user-initiated transition from the API layer.
type TransitionInput struct {
	DocVersion  int                    `json:"doc_version" binding:"required"`
	Lines       []workflow.LineOutcome `json:"lines" binding:"required,min=1,dive"`
	TargetStage string                 `json:"target_stage"`
}

func (s *Service) Submit(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*PurchaseRequest, error) {
	pr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.RequestorID != by.ID {
		return nil, &workflow.ValidationError{Reason: "only the requestor may submit a draft"}
	}

	if _, err := s.engine.Submit(ctx, transitionRequest(id, in, by)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*PurchaseRequest, error) {
	if err := s.authorizeActor(ctx, id, by); err != nil {
		return nil, err
	}
	_, err := s.engine.Approve(ctx, transitionRequest(id, in, by))
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*PurchaseRequest, error) {
	if err := s.authorizeActor(ctx, id, by); err != nil {
		return nil, err
	}
	_, err := s.engine.Reject(ctx, transitionRequest(id, in, by))
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Review(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*PurchaseRequest, error) {
	if in.TargetStage == "" {
		return nil, &workflow.ValidationError{Reason: "target_stage is required"}
	}
	if err := s.authorizeActor(ctx, id, by); err != nil {
		return nil, err
	}
	_, err := s.engine.Review(ctx, workflow.ReviewRequest{
		TransitionRequest: transitionRequest(id, in, by),
		TargetStage:       in.TargetStage,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]PurchaseRequest, int64, error) {
	return s.repo.List(ctx, filter)
}

// authorizeActor checks the caller is listed in the document's user_action
// gate before an approval-side transition.
func (s *Service) authorizeActor(ctx context.Context, id uuid.UUID, by Requestor) error {
	doc, err := s.repo.LoadDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.Header.UserAction == nil {
		return &workflow.ValidationError{Reason: "document has no pending action"}
	}
	for _, userID := range doc.Header.UserAction.Execute {
		if userID == by.ID {
			return nil
		}
	}
	return &workflow.ValidationError{Reason: "user is not permitted to act on this document"}
}

func transitionRequest(id uuid.UUID, in TransitionInput, by Requestor) workflow.TransitionRequest {
	return workflow.TransitionRequest{
		DocID:      id,
		DocVersion: in.DocVersion,
		Lines:      in.Lines,
		ActingUser: workflow.User{ID: by.ID, Name: by.Name},
	}
}

func buildItems(inputs []ItemInput) ([]PurchaseRequestItem, float64) {
	items := make([]PurchaseRequestItem, 0, len(inputs))
	var total float64
	for i, in := range inputs {
		items = append(items, PurchaseRequestItem{
			LineNo:             i + 1,
			ItemCode:           in.ItemCode,
			Description:        in.Description,
			Quantity:           in.Quantity,
			UnitPrice:          in.UnitPrice,
			UOM:                in.UOM,
			CurrentStageStatus: "draft",
		})
		total += in.Quantity * in.UnitPrice
	}
	return items, total
}
