package purchaserequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/internal/workflow"
)

// ListFilter narrows a purchase request listing.
type ListFilter struct {
	DocStatus    string
	RequestorID  string
	DepartmentID string
	CurrentStage string
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, pr *PurchaseRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error)
	List(ctx context.Context, filter ListFilter) ([]PurchaseRequest, int64, error)
	UpdateDraft(ctx context.Context, pr *PurchaseRequest) error

	// workflow.DocumentStore
	LoadDocument(ctx context.Context, id uuid.UUID) (*workflow.Document, error)
	SaveTransition(ctx context.Context, doc *workflow.Document, expectedVersion int) error

	ListInProgress(ctx context.Context) ([]PurchaseRequest, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, pr *PurchaseRequest) error {
	return r.db.WithContext(ctx).Create(pr).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseRequest, error) {
	var pr PurchaseRequest
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		First(&pr, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter) ([]PurchaseRequest, int64, error) {
	q := r.db.WithContext(ctx).Model(&PurchaseRequest{})
	if filter.DocStatus != "" {
		q = q.Where("doc_status = ?", filter.DocStatus)
	}
	if filter.RequestorID != "" {
		q = q.Where("requestor_id = ?", filter.RequestorID)
	}
	if filter.DepartmentID != "" {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.CurrentStage != "" {
		q = q.Where("current_stage = ?", filter.CurrentStage)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var prs []PurchaseRequest
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Order("created_at DESC").
		Limit(limit).Offset(filter.Offset).
		Find(&prs).Error
	return prs, total, err
}

// UpdateDraft rewrites a draft's business fields and replaces its items. The
// doc_version moves so a stale submit cannot follow a concurrent edit.
func (r *gormRepository) UpdateDraft(ctx context.Context, pr *PurchaseRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&PurchaseRequest{}).
			Where("id = ? AND doc_version = ? AND doc_status = ?", pr.ID, pr.DocVersion, "draft").
			Updates(map[string]interface{}{
				"purpose":      pr.Purpose,
				"needed_by":    pr.NeededBy,
				"total_amount": pr.TotalAmount,
				"currency":     pr.Currency,
				"doc_version":  pr.DocVersion + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return workflow.ErrVersionConflict
		}

		if err := tx.Where("purchase_request_id = ?", pr.ID).
			Delete(&PurchaseRequestItem{}).Error; err != nil {
			return err
		}
		for i := range pr.Items {
			pr.Items[i].PurchaseRequestID = pr.ID
		}
		if len(pr.Items) > 0 {
			if err := tx.Create(&pr.Items).Error; err != nil {
				return err
			}
		}
		pr.DocVersion++
		return nil
	})
}

// ListInProgress returns every header still moving through approval, for
// the SLA sweep.
func (r *gormRepository) ListInProgress(ctx context.Context) ([]PurchaseRequest, error) {
	var prs []PurchaseRequest
	err := r.db.WithContext(ctx).
		Where("doc_status = ?", "in_progress").
		Find(&prs).Error
	return prs, err
}

// LoadDocument maps a stored purchase request into the engine's document
// view. The payload exposes the fields routing rule conditions reference.
func (r *gormRepository) LoadDocument(ctx context.Context, id uuid.UUID) (*workflow.Document, error) {
	pr, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDocument(pr)
}

func toDocument(pr *PurchaseRequest) (*workflow.Document, error) {
	header := workflow.Header{
		ID:               pr.ID,
		DocType:          DocType,
		DocNo:            pr.PRNo,
		DocStatus:        pr.DocStatus,
		DocVersion:       pr.DocVersion,
		WorkflowID:       pr.WorkflowID,
		CurrentStage:     pr.CurrentStage,
		PreviousStage:    pr.PreviousStage,
		NextStage:        pr.NextStage,
		LastAction:       workflow.Action(pr.LastAction),
		LastActionByID:   pr.LastActionByID,
		LastActionByName: pr.LastActionByName,
		RequestorID:      pr.RequestorID,
		DepartmentID:     pr.DepartmentID,
	}
	if pr.LastActionAt != nil {
		header.LastActionAt = *pr.LastActionAt
	}

	if len(pr.UserAction) > 0 {
		var ua workflow.UserAction
		if err := json.Unmarshal(pr.UserAction, &ua); err != nil {
			return nil, fmt.Errorf("decode user_action for %s: %w", pr.ID, err)
		}
		header.UserAction = &ua
	}
	if len(pr.WorkflowHistory) > 0 {
		if err := json.Unmarshal(pr.WorkflowHistory, &header.WorkflowHistory); err != nil {
			return nil, fmt.Errorf("decode workflow_history for %s: %w", pr.ID, err)
		}
	}

	doc := &workflow.Document{
		Header:  header,
		Payload: map[string]any{"amount": pr.TotalAmount},
	}

	for _, item := range pr.Items {
		line := workflow.Line{
			ID:                 item.ID,
			CurrentStageStatus: item.CurrentStageStatus,
		}
		if len(item.StagesStatus) > 0 {
			if err := json.Unmarshal(item.StagesStatus, &line.StagesStatus); err != nil {
				return nil, fmt.Errorf("decode stages_status for line %s: %w", item.ID, err)
			}
		}
		if len(item.History) > 0 {
			if err := json.Unmarshal(item.History, &line.History); err != nil {
				return nil, fmt.Errorf("decode history for line %s: %w", item.ID, err)
			}
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}

// SaveTransition writes the post-transition header and every line ledger as
// one transaction. The header update is guarded by the expected doc_version;
// zero affected rows means a concurrent transition won and the caller gets
// workflow.ErrVersionConflict.
func (r *gormRepository) SaveTransition(ctx context.Context, doc *workflow.Document, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		userAction, err := marshalOrNull(doc.Header.UserAction)
		if err != nil {
			return err
		}
		history, err := json.Marshal(doc.Header.WorkflowHistory)
		if err != nil {
			return err
		}

		res := tx.Model(&PurchaseRequest{}).
			Where("id = ? AND doc_version = ?", doc.Header.ID, expectedVersion).
			Updates(map[string]interface{}{
				"pr_no":               doc.Header.DocNo,
				"doc_status":          doc.Header.DocStatus,
				"doc_version":         doc.Header.DocVersion,
				"current_stage":       doc.Header.CurrentStage,
				"previous_stage":      doc.Header.PreviousStage,
				"next_stage":          doc.Header.NextStage,
				"user_action":         userAction,
				"last_action":         string(doc.Header.LastAction),
				"last_action_at":      doc.Header.LastActionAt,
				"last_action_by_id":   doc.Header.LastActionByID,
				"last_action_by_name": doc.Header.LastActionByName,
				"workflow_history":    history,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return workflow.ErrVersionConflict
		}

		for _, line := range doc.Lines {
			stagesStatus, err := json.Marshal(line.StagesStatus)
			if err != nil {
				return err
			}
			lineHistory, err := json.Marshal(line.History)
			if err != nil {
				return err
			}

			updates := map[string]interface{}{
				"stages_status":        stagesStatus,
				"history":              lineHistory,
				"current_stage_status": line.CurrentStageStatus,
			}
			if err := tx.Model(&PurchaseRequestItem{}).
				Where("id = ?", line.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		// On submission the approved quantity starts out as the requested one.
		if doc.Header.LastAction == workflow.ActionSubmitted {
			if err := tx.Model(&PurchaseRequestItem{}).
				Where("purchase_request_id = ? AND approved_qty = 0", doc.Header.ID).
				Update("approved_qty", gorm.Expr("quantity")).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func marshalOrNull(ua *workflow.UserAction) (interface{}, error) {
	if ua == nil {
		return nil, nil
	}
	data, err := json.Marshal(ua)
	if err != nil {
		return nil, err
	}
	return data, nil
}
