package storerequisition

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

type ItemInput struct {
	ItemCode    string  `json:"item_code" binding:"required"`
	Description string  `json:"description"`
	Quantity    float64 `json:"qty" binding:"required,gt=0"`
	UOM         string  `json:"uom"`
}

type CreateDraftRequest struct {
	StoreID string      `json:"store_id" binding:"required"`
	Purpose string      `json:"purpose"`
	Items   []ItemInput `json:"items" binding:"required,min=1,dive"`
}

type Requestor struct {
	ID           string
	Name         string
	DepartmentID string
}

func (s *Service) CreateDraft(ctx context.Context, req CreateDraftRequest, by Requestor) (*StoreRequisition, error) {
	wf, _, err := s.catalog.ActiveWorkflowForDocType(ctx, DocType)
	if err != nil {
		return nil, err
	}

	sr := &StoreRequisition{
		SRNo:          numbering.DraftNumber(s.now()),
		DocVersion:    1,
		WorkflowID:    wf.ID,
		RequestorID:   by.ID,
		RequestorName: by.Name,
		DepartmentID:  by.DepartmentID,
		StoreID:       req.StoreID,
		Purpose:       req.Purpose,
	}
	for i, in := range req.Items {
		sr.Items = append(sr.Items, StoreRequisitionItem{
			LineNo:             i + 1,
			ItemCode:           in.ItemCode,
			Description:        in.Description,
			Quantity:           in.Quantity,
			UOM:                in.UOM,
			CurrentStageStatus: "draft",
		})
		sr.TotalQty += in.Quantity
	}

	if err := s.repo.Create(ctx, sr); err != nil {
		return nil, err
	}

	s.logger.Info("store requisition draft created",
		zap.String("id", sr.ID.String()),
		zap.String("sr_no", sr.SRNo),
		zap.String("store_id", sr.StoreID))
	return sr, nil
}

type TransitionInput struct {
	DocVersion  int                    `json:"doc_version" binding:"required"`
	Lines       []workflow.LineOutcome `json:"lines" binding:"required,min=1,dive"`
	TargetStage string                 `json:"target_stage"`
}

func (s *Service) Submit(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*StoreRequisition, error) {
	sr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sr.RequestorID != by.ID {
		return nil, &workflow.ValidationError{Reason: "only the requestor may submit a draft"}
	}

	if _, err := s.engine.Submit(ctx, s.transitionRequest(id, in, by)); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*StoreRequisition, error) {
	if err := s.authorizeActor(ctx, id, by); err != nil {
		return nil, err
	}
	_, err := s.engine.Approve(ctx, s.transitionRequest(id, in, by))
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*StoreRequisition, error) {
	if err := s.authorizeActor(ctx, id, by); err != nil {
		return nil, err
	}
	_, err := s.engine.Reject(ctx, s.transitionRequest(id, in, by))
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Review(ctx context.Context, id uuid.UUID, in TransitionInput, by Requestor) (*StoreRequisition, error) {
	if in.TargetStage == "" {
		return nil, &workflow.ValidationError{Reason: "target_stage is required"}
	}
	if err := s.authorizeActor(ctx, id, by); err != nil {
		return nil, err
	}
	_, err := s.engine.Review(ctx, workflow.ReviewRequest{
		TransitionRequest: s.transitionRequest(id, in, by),
		TargetStage:       in.TargetStage,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*StoreRequisition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]StoreRequisition, int64, error) {
	return s.repo.List(ctx, filter)
}

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

func (s *Service) transitionRequest(id uuid.UUID, in TransitionInput, by Requestor) workflow.TransitionRequest {
	return workflow.TransitionRequest{
		DocID:      id,
		DocVersion: in.DocVersion,
		Lines:      in.Lines,
		ActingUser: workflow.User{ID: by.ID, Name: by.Name},
	}
}
