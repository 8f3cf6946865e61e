package notifications

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"procureflow/back-office/back-office-backend/internal/workflow"
)

// Dispatcher consumes committed transition events and fans them out as
// notifications. It runs after the transition is durable, so a failure here
// is logged and never surfaces to the user who acted.
type Dispatcher struct {
	service *Service
	events  <-chan workflow.TransitionCommitted
	logger  *zap.Logger
}

func NewDispatcher(service *Service, events <-chan workflow.TransitionCommitted, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{service: service, events: events, logger: logger}
}

// Run blocks consuming events until the context is cancelled or the channel
// closes.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev workflow.TransitionCommitted) {
	recipients := recipientsFor(ev)
	if len(recipients) == 0 {
		return
	}

	d.service.NotifyUsers(ctx, recipients, Notification{
		Title:   titleFor(ev),
		Message: messageFor(ev),
		DocType: ev.DocType,
		DocID:   ev.DocID,
		DocNo:   ev.DocNo,
		Action:  string(ev.Action),
	})
}

// recipientsFor selects who hears about a transition: the users now expected
// to act, plus the requestor once the document is moving through or out of
// the pipeline.
func recipientsFor(ev workflow.TransitionCommitted) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	nextActors := func() {
		if ev.Header.UserAction != nil {
			for _, id := range ev.Header.UserAction.Execute {
				add(id)
			}
		}
	}

	switch ev.Action {
	case workflow.ActionSubmitted:
		nextActors()
	case workflow.ActionApproved:
		add(ev.Header.RequestorID)
		nextActors()
	case workflow.ActionRejected:
		add(ev.Header.RequestorID)
	case workflow.ActionReviewed:
		add(ev.Header.RequestorID)
		nextActors()
	}
	return out
}

func titleFor(ev workflow.TransitionCommitted) string {
	switch ev.Action {
	case workflow.ActionSubmitted:
		return fmt.Sprintf("%s awaiting your approval", ev.DocNo)
	case workflow.ActionApproved:
		if ev.Header.NextStage == workflow.CompleteMarker {
			return fmt.Sprintf("%s fully approved", ev.DocNo)
		}
		return fmt.Sprintf("%s approved at %s", ev.DocNo, ev.Header.PreviousStage)
	case workflow.ActionRejected:
		return fmt.Sprintf("%s rejected", ev.DocNo)
	case workflow.ActionReviewed:
		return fmt.Sprintf("%s sent back for review", ev.DocNo)
	}
	return ev.DocNo
}

func messageFor(ev workflow.TransitionCommitted) string {
	switch ev.Action {
	case workflow.ActionSubmitted:
		return fmt.Sprintf("%s submitted %s for approval at stage %s",
			ev.ActingUser.Name, ev.DocNo, ev.Header.CurrentStage)
	case workflow.ActionApproved:
		if ev.Header.NextStage == workflow.CompleteMarker {
			return fmt.Sprintf("%s approved %s, the document is complete",
				ev.ActingUser.Name, ev.DocNo)
		}
		return fmt.Sprintf("%s approved %s, now at stage %s",
			ev.ActingUser.Name, ev.DocNo, ev.Header.CurrentStage)
	case workflow.ActionRejected:
		return fmt.Sprintf("%s rejected %s", ev.ActingUser.Name, ev.DocNo)
	case workflow.ActionReviewed:
		return fmt.Sprintf("%s sent %s back to stage %s",
			ev.ActingUser.Name, ev.DocNo, ev.Header.CurrentStage)
	}
	return ""
}
