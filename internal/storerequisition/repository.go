package storerequisition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/internal/workflow"
)

// ListFilter narrows a store requisition listing.
type ListFilter struct {
	DocStatus    string
	RequestorID  string
	DepartmentID string
	StoreID      string
	Limit        int
	Offset       int
}

type Repository interface {
	Create(ctx context.Context, sr *StoreRequisition) error
	GetByID(ctx context.Context, id uuid.UUID) (*StoreRequisition, error)
	List(ctx context.Context, filter ListFilter) ([]StoreRequisition, int64, error)

	// workflow.DocumentStore
	LoadDocument(ctx context.Context, id uuid.UUID) (*workflow.Document, error)
	SaveTransition(ctx context.Context, doc *workflow.Document, expectedVersion int) error

	ListInProgress(ctx context.Context) ([]StoreRequisition, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, sr *StoreRequisition) error {
	return r.db.WithContext(ctx).Create(sr).Error
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*StoreRequisition, error) {
	var sr StoreRequisition
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		First(&sr, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

func (r *gormRepository) List(ctx context.Context, filter ListFilter) ([]StoreRequisition, int64, error) {
	q := r.db.WithContext(ctx).Model(&StoreRequisition{})
	if filter.DocStatus != "" {
		q = q.Where("doc_status = ?", filter.DocStatus)
	}
	if filter.RequestorID != "" {
		q = q.Where("requestor_id = ?", filter.RequestorID)
	}
	if filter.DepartmentID != "" {
		q = q.Where("department_id = ?", filter.DepartmentID)
	}
	if filter.StoreID != "" {
		q = q.Where("store_id = ?", filter.StoreID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var srs []StoreRequisition
	err := q.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no") }).
		Order("created_at DESC").
		Limit(limit).Offset(filter.Offset).
		Find(&srs).Error
	return srs, total, err
}

// ListInProgress returns every header still moving through approval, for
// the SLA sweep.
func (r *gormRepository) ListInProgress(ctx context.Context) ([]StoreRequisition, error) {
	var srs []StoreRequisition
	err := r.db.WithContext(ctx).
		Where("doc_status = ?", "in_progress").
		Find(&srs).Error
	return srs, err
}

func (r *gormRepository) LoadDocument(ctx context.Context, id uuid.UUID) (*workflow.Document, error) {
	sr, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	header := workflow.Header{
		ID:               sr.ID,
		DocType:          DocType,
		DocNo:            sr.SRNo,
		DocStatus:        sr.DocStatus,
		DocVersion:       sr.DocVersion,
		WorkflowID:       sr.WorkflowID,
		CurrentStage:     sr.CurrentStage,
		PreviousStage:    sr.PreviousStage,
		NextStage:        sr.NextStage,
		LastAction:       workflow.Action(sr.LastAction),
		LastActionByID:   sr.LastActionByID,
		LastActionByName: sr.LastActionByName,
		RequestorID:      sr.RequestorID,
		DepartmentID:     sr.DepartmentID,
	}
	if sr.LastActionAt != nil {
		header.LastActionAt = *sr.LastActionAt
	}
	if len(sr.UserAction) > 0 {
		var ua workflow.UserAction
		if err := json.Unmarshal(sr.UserAction, &ua); err != nil {
			return nil, fmt.Errorf("decode user_action for %s: %w", sr.ID, err)
		}
		header.UserAction = &ua
	}
	if len(sr.WorkflowHistory) > 0 {
		if err := json.Unmarshal(sr.WorkflowHistory, &header.WorkflowHistory); err != nil {
			return nil, fmt.Errorf("decode workflow_history for %s: %w", sr.ID, err)
		}
	}

	doc := &workflow.Document{
		Header:  header,
		Payload: map[string]any{"total_qty": sr.TotalQty},
	}
	for _, item := range sr.Items {
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

func (r *gormRepository) SaveTransition(ctx context.Context, doc *workflow.Document, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var userAction interface{}
		if doc.Header.UserAction != nil {
			data, err := json.Marshal(doc.Header.UserAction)
			if err != nil {
				return err
			}
			userAction = data
		}
		history, err := json.Marshal(doc.Header.WorkflowHistory)
		if err != nil {
			return err
		}

		res := tx.Model(&StoreRequisition{}).
			Where("id = ? AND doc_version = ?", doc.Header.ID, expectedVersion).
			Updates(map[string]interface{}{
				"sr_no":               doc.Header.DocNo,
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
			if err := tx.Model(&StoreRequisitionItem{}).
				Where("id = ?", line.ID).
				Updates(map[string]interface{}{
					"stages_status":        stagesStatus,
					"history":              lineHistory,
					"current_stage_status": line.CurrentStageStatus,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
