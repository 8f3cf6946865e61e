package workflow

// StageInfo is the stage summary surfaced by navigation results.
type StageInfo struct {
	Name          string        `json:"name"`
	Role          string        `json:"role"`
	SLA           string        `json:"sla"`
	SLAUnit       string        `json:"sla_unit"`
	AssignedUsers []string      `json:"assigned_users"`
	CreatorAccess CreatorAccess `json:"creator_access"`
}

// Navigation describes the document's position in its workflow: the resolved
// current stage, the structural previous step, and the next step after
// applying routing rules. An empty NextStep means the current stage is
// terminal.
type Navigation struct {
	CurrentStage string
	PreviousStep string
	NextStep     string
	CurrentInfo  StageInfo
	NextInfo     *StageInfo
}

// Navigate locates currentStage in the definition (the first stage when
// currentStage is empty, the "create" entry point) and computes the next
// stage. Routing rules triggered by the current stage are evaluated against
// payload in declared order; the first match overrides the positional
// successor. An unknown currentStage is a ConfigurationError.
func Navigate(def *Definition, currentStage string, payload map[string]any) (*Navigation, error) {
	if len(def.Stages) == 0 {
		return nil, &ConfigurationError{Stage: currentStage}
	}

	if currentStage == "" {
		currentStage = def.Stages[0].Name
	}
	idx := def.StageIndex(currentStage)
	if idx < 0 {
		return nil, &ConfigurationError{Stage: currentStage}
	}

	nav := &Navigation{
		CurrentStage: currentStage,
		CurrentInfo:  buildStageInfo(&def.Stages[idx]),
	}
	if idx > 0 {
		nav.PreviousStep = def.Stages[idx-1].Name
	}

	nav.NextStep = findNextStep(def, currentStage, idx, payload)
	if nav.NextStep != "" {
		nextIdx := def.StageIndex(nav.NextStep)
		if nextIdx < 0 {
			return nil, &ConfigurationError{Stage: nav.NextStep}
		}
		info := buildStageInfo(&def.Stages[nextIdx])
		nav.NextInfo = &info
	}

	return nav, nil
}

// findNextStep applies routing rules first, then falls back to the
// positional successor. Returns "" at the end of the stage list.
func findNextStep(def *Definition, currentStage string, currentIdx int, payload map[string]any) string {
	for _, rule := range def.RoutingRules {
		if rule.TriggerStage != currentStage {
			continue
		}
		if rule.Action.Type == RuleActionNextStage && evaluateCondition(rule.Condition, payload) {
			return rule.Action.Parameters.TargetStage
		}
	}

	if currentIdx < len(def.Stages)-1 {
		return def.Stages[currentIdx+1].Name
	}
	return ""
}

func buildStageInfo(stage *Stage) StageInfo {
	return StageInfo{
		Name:          stage.Name,
		Role:          stage.Role,
		SLA:           stage.SLA,
		SLAUnit:       stage.SLAUnit,
		AssignedUsers: stage.AssignedUsers,
		CreatorAccess: stage.CreatorAccess,
	}
}
