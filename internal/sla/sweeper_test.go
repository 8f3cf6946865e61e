package sla

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"procureflow/back-office/back-office-backend/internal/notifications"
	"procureflow/back-office/back-office-backend/internal/workflow"
)

// MockCatalog is a mock implementation of the workflow.Catalog interface
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetWorkflowDefinition(ctx context.Context, workflowID uuid.UUID) (*workflow.Definition, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.Definition), args.Error(1)
}

// MockNotifier is a mock implementation of the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyUsers(ctx context.Context, userIDs []string, template notifications.Notification) {
	m.Called(ctx, userIDs, template)
}

type staticSource struct {
	docs []PendingDoc
}

func (s staticSource) ListPendingApprovals(ctx context.Context) ([]PendingDoc, error) {
	return s.docs, nil
}

func TestSlaWindow(t *testing.T) {
	d, ok := slaWindow(&workflow.Stage{SLA: "2", SLAUnit: "days"})
	assert.True(t, ok)
	assert.Equal(t, 48*time.Hour, d)

	d, ok = slaWindow(&workflow.Stage{SLA: "3", SLAUnit: "hours"})
	assert.True(t, ok)
	assert.Equal(t, 3*time.Hour, d)

	_, ok = slaWindow(&workflow.Stage{})
	assert.False(t, ok)

	_, ok = slaWindow(&workflow.Stage{SLA: "soon", SLAUnit: "days"})
	assert.False(t, ok)
}

func TestSweepNotifiesOverdue(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	workflowID := uuid.New()

	def := &workflow.Definition{
		Stages: []workflow.Stage{
			{Name: "create"},
			{Name: "manager_approval", SLA: "1", SLAUnit: "days"},
		},
	}

	overdue := PendingDoc{
		DocType:      "PR",
		DocID:        uuid.New(),
		DocNo:        "PR-20260828-0001",
		WorkflowID:   workflowID,
		CurrentStage: "manager_approval",
		Since:        now.Add(-48 * time.Hour),
		Actors:       []string{"mgr-1"},
	}
	fresh := overdue
	fresh.DocNo = "PR-20260831-0002"
	fresh.Since = now.Add(-1 * time.Hour)

	cat := new(MockCatalog)
	cat.On("GetWorkflowDefinition", mock.Anything, workflowID).Return(def, nil)

	notifier := new(MockNotifier)
	notifier.On("NotifyUsers", mock.Anything, []string{"mgr-1"}, mock.MatchedBy(func(n notifications.Notification) bool {
		return n.DocNo == "PR-20260828-0001" && n.Action == "sla_overdue"
	})).Once()

	sweeper := NewSweeper([]Source{staticSource{docs: []PendingDoc{overdue, fresh}}}, cat, notifier, zap.NewNop())
	sweeper.now = func() time.Time { return now }

	sweeper.Sweep(context.Background())

	notifier.AssertExpectations(t)
	notifier.AssertNumberOfCalls(t, "NotifyUsers", 1)
}
