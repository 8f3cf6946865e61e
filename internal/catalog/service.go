package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"procureflow/back-office/back-office-backend/internal/workflow"
)

// Service exposes stored workflow definitions. It implements
// workflow.Catalog for the transition coordinator.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetWorkflowDefinition loads and decodes a definition by ID. A definition
// that fails validation is surfaced as a configuration problem, not hidden.
func (s *Service) GetWorkflowDefinition(ctx context.Context, workflowID uuid.UUID) (*workflow.Definition, error) {
	wf, err := s.repo.GetWorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return decodeDefinition(wf)
}

// ActiveWorkflowForDocType returns the active workflow for a document type,
// used when creating a new draft.
func (s *Service) ActiveWorkflowForDocType(ctx context.Context, docType string) (*Workflow, *workflow.Definition, error) {
	wf, err := s.repo.GetActiveWorkflowByDocType(ctx, docType)
	if err != nil {
		return nil, nil, err
	}
	def, err := decodeDefinition(wf)
	if err != nil {
		return nil, nil, err
	}
	return wf, def, nil
}

func (s *Service) ListWorkflows(ctx context.Context, docType string) ([]Workflow, error) {
	return s.repo.ListWorkflows(ctx, docType)
}

func decodeDefinition(wf *Workflow) (*workflow.Definition, error) {
	var def workflow.Definition
	if err := json.Unmarshal(wf.Data, &def); err != nil {
		return nil, fmt.Errorf("decode workflow %s: %w", wf.ID, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("workflow %s: %w", wf.ID, err)
	}
	return &def, nil
}
