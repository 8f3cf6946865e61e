package sla

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"procureflow/back-office/back-office-backend/internal/notifications"
	"procureflow/back-office/back-office-backend/internal/purchaserequest"
	"procureflow/back-office/back-office-backend/internal/storerequisition"
	"procureflow/back-office/back-office-backend/internal/workflow"
)

// PendingDoc is one in-progress document waiting at an approval stage.
type PendingDoc struct {
	DocType      string
	DocID        uuid.UUID
	DocNo        string
	WorkflowID   uuid.UUID
	CurrentStage string
	Since        time.Time
	Actors       []string
}

// Source lists the documents a sweep inspects.
type Source interface {
	ListPendingApprovals(ctx context.Context) ([]PendingDoc, error)
}

// Notifier delivers the overdue reminders.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []string, template notifications.Notification)
}

// Sweeper periodically flags documents that sat at a stage past its SLA and
// reminds the users who can act.
type Sweeper struct {
	cron     *cron.Cron
	sources  []Source
	catalog  workflow.Catalog
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(sources []Source, cat workflow.Catalog, notifier Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		sources:  sources,
		catalog:  cat,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Start schedules an hourly sweep. Stop shuts the scheduler down.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc("@hourly", func() {
		s.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	s.cron.Stop()
}

// Sweep runs one pass over every source. Failures are logged per document so
// one broken definition cannot stall the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	for _, source := range s.sources {
		docs, err := source.ListPendingApprovals(ctx)
		if err != nil {
			s.logger.Error("sla sweep failed to list pending documents", zap.Error(err))
			continue
		}
		for _, doc := range docs {
			if err := s.check(ctx, doc, now); err != nil {
				s.logger.Warn("sla check skipped",
					zap.String("doc_no", doc.DocNo),
					zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) check(ctx context.Context, doc PendingDoc, now time.Time) error {
	def, err := s.catalog.GetWorkflowDefinition(ctx, doc.WorkflowID)
	if err != nil {
		return err
	}
	stage, err := def.StageByName(doc.CurrentStage)
	if err != nil {
		return err
	}

	window, ok := slaWindow(stage)
	if !ok {
		return nil
	}
	deadline := doc.Since.Add(window)
	if now.Before(deadline) {
		return nil
	}

	s.notifier.NotifyUsers(ctx, doc.Actors, notifications.Notification{
		Title:   doc.DocNo + " is overdue",
		Message: "Approval at stage " + doc.CurrentStage + " has exceeded its SLA",
		DocType: doc.DocType,
		DocID:   doc.DocID,
		DocNo:   doc.DocNo,
		Action:  "sla_overdue",
	})
	return nil
}

// slaWindow converts a stage's SLA configuration into a duration. Stages
// without an SLA are never flagged.
func slaWindow(stage *workflow.Stage) (time.Duration, bool) {
	if stage.SLA == "" {
		return 0, false
	}
	n, err := strconv.Atoi(stage.SLA)
	if err != nil || n <= 0 {
		return 0, false
	}

	switch stage.SLAUnit {
	case "minutes":
		return time.Duration(n) * time.Minute, true
	case "hours":
		return time.Duration(n) * time.Hour, true
	case "days", "":
		return time.Duration(n) * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// PurchaseRequestSource adapts the purchase request store for the sweep.
type PurchaseRequestSource struct {
	Repo purchaserequest.Repository
}

func (s PurchaseRequestSource) ListPendingApprovals(ctx context.Context) ([]PendingDoc, error) {
	prs, err := s.Repo.ListInProgress(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]PendingDoc, 0, len(prs))
	for _, pr := range prs {
		doc := PendingDoc{
			DocType:      purchaserequest.DocType,
			DocID:        pr.ID,
			DocNo:        pr.PRNo,
			WorkflowID:   pr.WorkflowID,
			CurrentStage: pr.CurrentStage,
			Actors:       decodeActors(pr.UserAction),
		}
		if pr.LastActionAt != nil {
			doc.Since = *pr.LastActionAt
		} else {
			doc.Since = pr.UpdatedAt
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// StoreRequisitionSource adapts the store requisition store for the sweep.
type StoreRequisitionSource struct {
	Repo storerequisition.Repository
}

func (s StoreRequisitionSource) ListPendingApprovals(ctx context.Context) ([]PendingDoc, error) {
	srs, err := s.Repo.ListInProgress(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]PendingDoc, 0, len(srs))
	for _, sr := range srs {
		doc := PendingDoc{
			DocType:      storerequisition.DocType,
			DocID:        sr.ID,
			DocNo:        sr.SRNo,
			WorkflowID:   sr.WorkflowID,
			CurrentStage: sr.CurrentStage,
			Actors:       decodeActors(sr.UserAction),
		}
		if sr.LastActionAt != nil {
			doc.Since = *sr.LastActionAt
		} else {
			doc.Since = sr.UpdatedAt
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func decodeActors(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var ua workflow.UserAction
	if err := json.Unmarshal(raw, &ua); err != nil {
		return nil
	}
	return ua.Execute
}
