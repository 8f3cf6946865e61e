package workflow

// Outcome is the verdict applied to a line during one transition.
type Outcome struct {
	Status  LineStatus
	Message string
}

const defaultSubmitMessage = "submit for approval"

// ApplyLineOutcome records one transition out of fromStage on a line's two
// ledgers. stages_status is a compact latest-verdict-per-stage projection and
// may amend its last entry; history is the forensic trail and is always
// appended, including when the stages_status update is skipped. The two can
// therefore diverge in length by design.
//
// Branches, evaluated against the line's current last stages_status entry:
//  1. last entry approve or reject: the line is finalized and is not
//     reconsidered; stages_status untouched.
//  2. first submit for the line: append with seq 1.
//  3. last entry pending at fromStage: the actor who owned the pending step
//     has resolved it; amend the last entry in place.
//  4. otherwise: append.
func ApplyLineOutcome(line *Line, fromStage string, outcome Outcome, actor User) {
	var last *StageStatus
	if n := len(line.StagesStatus); n > 0 {
		last = &line.StagesStatus[n-1]
	}

	switch {
	case last != nil && (last.Status == LineApprove || last.Status == LineReject):
		// finalized, skip

	case outcome.Status == LineSubmit && last == nil:
		message := outcome.Message
		if message == "" {
			message = defaultSubmitMessage
		}
		line.StagesStatus = append(line.StagesStatus, StageStatus{
			Seq:     1,
			Status:  outcome.Status,
			Name:    fromStage,
			Message: message,
		})

	case last != nil && last.Status == LinePending && last.Name == fromStage:
		line.StagesStatus[len(line.StagesStatus)-1] = StageStatus{
			Seq:     len(line.StagesStatus),
			Status:  outcome.Status,
			Name:    fromStage,
			Message: outcome.Message,
		}

	default:
		line.StagesStatus = append(line.StagesStatus, StageStatus{
			Seq:     len(line.StagesStatus) + 1,
			Status:  outcome.Status,
			Name:    fromStage,
			Message: outcome.Message,
		})
	}

	appendHistory(line, fromStage, outcome, actor)
	line.CurrentStageStatus = ""
}

// RejectLine voids a line: every recorded stage verdict is re-marked reject
// and a terminal reject entry is appended at the stage the rejection happened.
func RejectLine(line *Line, atStage string, outcome Outcome, actor User) {
	for i := range line.StagesStatus {
		line.StagesStatus[i].Status = LineReject
	}
	line.StagesStatus = append(line.StagesStatus, StageStatus{
		Seq:     len(line.StagesStatus) + 1,
		Status:  LineReject,
		Name:    atStage,
		Message: outcome.Message,
	})

	appendHistory(line, atStage, Outcome{Status: LineReject, Message: outcome.Message}, actor)
	line.CurrentStageStatus = ""
}

// RewindLine sends a line back to targetStage: entries recorded after the
// most recent visit to targetStage are dropped and that entry is re-marked
// pending. The reviewer's verdict is recorded in history at fromStage. When
// the line never visited targetStage the stages_status ledger is left as is.
func RewindLine(line *Line, fromStage, targetStage string, outcome Outcome, actor User) {
	appendHistory(line, fromStage, Outcome{Status: LineReview, Message: outcome.Message}, actor)

	for i := len(line.StagesStatus) - 1; i >= 0; i-- {
		if line.StagesStatus[i].Name == targetStage {
			line.StagesStatus = line.StagesStatus[:i+1]
			line.StagesStatus[i].Status = LinePending
			break
		}
	}
	line.CurrentStageStatus = ""
}

func appendHistory(line *Line, stageName string, outcome Outcome, actor User) {
	line.History = append(line.History, HistoryEntry{
		Seq:     len(line.History) + 1,
		Status:  outcome.Status,
		Name:    stageName,
		Message: outcome.Message,
		User:    User{ID: actor.ID},
	})
}
