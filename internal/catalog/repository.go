package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"procureflow/back-office/back-office-backend/internal/workflow"
)

type Repository interface {
	GetWorkflowByID(ctx context.Context, id uuid.UUID) (*Workflow, error)
	GetActiveWorkflowByDocType(ctx context.Context, docType string) (*Workflow, error)
	ListWorkflows(ctx context.Context, docType string) ([]Workflow, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetWorkflowByID(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	var wf Workflow
	err := r.db.WithContext(ctx).First(&wf, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *gormRepository) GetActiveWorkflowByDocType(ctx context.Context, docType string) (*Workflow, error) {
	var wf Workflow
	err := r.db.WithContext(ctx).
		Where("doc_type = ? AND is_active = ?", docType, true).
		Order("updated_at DESC").
		First(&wf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, workflow.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *gormRepository) ListWorkflows(ctx context.Context, docType string) ([]Workflow, error) {
	var wfs []Workflow
	q := r.db.WithContext(ctx)
	if docType != "" {
		q = q.Where("doc_type = ?", docType)
	}
	err := q.Order("created_at DESC").Find(&wfs).Error
	return wfs, err
}
