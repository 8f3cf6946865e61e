package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchaseDefinition() *Definition {
	return &Definition{
		Stages: []Stage{
			{Name: "create", Role: "requestor"},
			{Name: "manager_approval", Role: "manager", AssignedUsers: []string{"mgr-1"}},
			{Name: "finance_approval", Role: "finance", AssignedUsers: []string{"fin-1"}, SLA: "2", SLAUnit: "days"},
		},
		RoutingRules: []RoutingRule{
			{
				TriggerStage: "create",
				Condition:    Condition{Field: "amount", Operator: OpGt, Value: []string{"50000"}},
				Action:       RuleAction{Type: RuleActionNextStage, Parameters: RuleParameters{TargetStage: "finance_approval"}},
			},
		},
	}
}

func TestNavigateEmptyStageStartsAtFirst(t *testing.T) {
	nav, err := Navigate(purchaseDefinition(), "", nil)

	require.NoError(t, err)
	assert.Equal(t, "create", nav.CurrentStage)
	assert.Equal(t, "", nav.PreviousStep)
	assert.Equal(t, "manager_approval", nav.NextStep)
	require.NotNil(t, nav.NextInfo)
	assert.Equal(t, []string{"mgr-1"}, nav.NextInfo.AssignedUsers)
}

func TestNavigatePositionalSuccessor(t *testing.T) {
	nav, err := Navigate(purchaseDefinition(), "manager_approval", map[string]any{"amount": float64(100)})

	require.NoError(t, err)
	assert.Equal(t, "create", nav.PreviousStep)
	assert.Equal(t, "finance_approval", nav.NextStep)
}

func TestNavigateRoutingRuleOverridesSuccessor(t *testing.T) {
	nav, err := Navigate(purchaseDefinition(), "create", map[string]any{"amount": float64(75000)})

	require.NoError(t, err)
	assert.Equal(t, "finance_approval", nav.NextStep, "high amount skips manager approval")
}

func TestNavigateRoutingRuleNoMatchFallsBack(t *testing.T) {
	nav, err := Navigate(purchaseDefinition(), "create", map[string]any{"amount": float64(100)})

	require.NoError(t, err)
	assert.Equal(t, "manager_approval", nav.NextStep)
}

func TestNavigateFirstMatchingRuleWins(t *testing.T) {
	def := purchaseDefinition()
	def.RoutingRules = append([]RoutingRule{
		{
			TriggerStage: "create",
			Condition:    Condition{Field: "amount", Operator: OpGt, Value: []string{"0"}},
			Action:       RuleAction{Type: RuleActionNextStage, Parameters: RuleParameters{TargetStage: "manager_approval"}},
		},
	}, def.RoutingRules...)

	nav, err := Navigate(def, "create", map[string]any{"amount": float64(75000)})

	require.NoError(t, err)
	assert.Equal(t, "manager_approval", nav.NextStep)
}

func TestNavigateTerminalStage(t *testing.T) {
	nav, err := Navigate(purchaseDefinition(), "finance_approval", nil)

	require.NoError(t, err)
	assert.Equal(t, "", nav.NextStep)
	assert.Nil(t, nav.NextInfo)
}

func TestNavigateUnknownStage(t *testing.T) {
	_, err := Navigate(purchaseDefinition(), "ghost_stage", nil)

	var confErr *ConfigurationError
	assert.ErrorAs(t, err, &confErr)
	assert.Equal(t, "ghost_stage", confErr.Stage)
}

func TestNavigateEmptyDefinition(t *testing.T) {
	_, err := Navigate(&Definition{}, "", nil)

	var confErr *ConfigurationError
	assert.ErrorAs(t, err, &confErr)
}

func TestNavigateNilPayloadNeverMatchesRules(t *testing.T) {
	nav, err := Navigate(purchaseDefinition(), "create", nil)

	require.NoError(t, err)
	assert.Equal(t, "manager_approval", nav.NextStep)
}
