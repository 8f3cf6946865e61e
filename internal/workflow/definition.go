package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CreatorAccess selects how the actors for a stage are resolved.
type CreatorAccess int

const (
	// ExplicitUsers resolves to the stage's assigned users only.
	ExplicitUsers CreatorAccess = iota
	// DepartmentWide resolves to every user in the document's department,
	// unioned with the stage's assigned users.
	DepartmentWide
)

const creatorAccessAllDepartment = "all_department"

func (a CreatorAccess) MarshalJSON() ([]byte, error) {
	if a == DepartmentWide {
		return json.Marshal(creatorAccessAllDepartment)
	}
	return json.Marshal("")
}

func (a *CreatorAccess) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case creatorAccessAllDepartment:
		*a = DepartmentWide
	case "":
		*a = ExplicitUsers
	default:
		return fmt.Errorf("unknown creator_access %q", s)
	}
	return nil
}

// Operator compares a payload field against a routing rule value.
type Operator string

const (
	OpEq    Operator = "eq"
	OpLt    Operator = "lt"
	OpGt    Operator = "gt"
	OpLte   Operator = "lte"
	OpGte   Operator = "gte"
	OpIn    Operator = "in"
	OpNotEq Operator = "not_eq"
)

// Condition is the field/operator/value test of a routing rule.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    []string `json:"value"`
}

// RuleActionNextStage routes the document to a non-default next stage.
const RuleActionNextStage = "NEXT_STAGE"

type RuleParameters struct {
	TargetStage string `json:"target_stage"`
}

type RuleAction struct {
	Type       string         `json:"type"`
	Parameters RuleParameters `json:"parameters"`
}

// RoutingRule overrides the positional next stage when its condition matches
// the document payload. Rules are evaluated in declared order, first match
// wins.
type RoutingRule struct {
	TriggerStage string     `json:"trigger_stage"`
	Condition    Condition  `json:"condition"`
	Action       RuleAction `json:"action"`
}

// Recipients flags who is notified when an action fires at a stage.
type Recipients struct {
	Requestor      bool `json:"requestor"`
	NextStep       bool `json:"next_step"`
	CurrentApprove bool `json:"current_approve"`
}

type ActionConfig struct {
	IsActive   bool       `json:"is_active"`
	Recipients Recipients `json:"recipients"`
}

type AvailableActions struct {
	Submit   ActionConfig `json:"submit"`
	Approve  ActionConfig `json:"approve"`
	Reject   ActionConfig `json:"reject"`
	SendBack ActionConfig `json:"sendback"`
}

// Stage is one named step of an approval workflow.
type Stage struct {
	Name             string           `json:"name"`
	Role             string           `json:"role"`
	Description      string           `json:"description"`
	SLA              string           `json:"sla"`
	SLAUnit          string           `json:"sla_unit"`
	HideFields       map[string]bool  `json:"hide_fields"`
	AssignedUsers    []string         `json:"assigned_users"`
	CreatorAccess    CreatorAccess    `json:"creator_access"`
	AvailableActions AvailableActions `json:"available_actions"`
}

// Definition is an externally supplied workflow definition: an ordered list
// of stages plus conditional routing rules. It is read-only to the engine.
type Definition struct {
	Stages       []Stage       `json:"stages"`
	RoutingRules []RoutingRule `json:"routing_rules"`
}

// Validate checks that a definition is usable: at least one stage, unique stage
// names, and routing rules that reference only stages present in the
// definition.
func (d *Definition) Validate() error {
	if len(d.Stages) == 0 {
		return fmt.Errorf("workflow definition has no stages")
	}
	seen := make(map[string]bool, len(d.Stages))
	for _, stage := range d.Stages {
		if stage.Name == "" {
			return fmt.Errorf("workflow definition has a stage with an empty name")
		}
		if seen[stage.Name] {
			return fmt.Errorf("duplicate stage name %q", stage.Name)
		}
		seen[stage.Name] = true
	}
	for _, rule := range d.RoutingRules {
		if !seen[rule.TriggerStage] {
			return fmt.Errorf("routing rule references unknown trigger stage %q", rule.TriggerStage)
		}
		if rule.Action.Type == RuleActionNextStage && !seen[rule.Action.Parameters.TargetStage] {
			return fmt.Errorf("routing rule references unknown target stage %q", rule.Action.Parameters.TargetStage)
		}
	}
	return nil
}

// StageIndex returns the position of a stage by name, or -1.
func (d *Definition) StageIndex(name string) int {
	for i, stage := range d.Stages {
		if stage.Name == name {
			return i
		}
	}
	return -1
}

// StageByName returns the stage with the given name, or a ConfigurationError
// when the definition does not contain it.
func (d *Definition) StageByName(name string) (*Stage, error) {
	if i := d.StageIndex(name); i >= 0 {
		return &d.Stages[i], nil
	}
	return nil, &ConfigurationError{Stage: name}
}

// evaluateCondition tests a routing rule condition against the document
// payload. A missing or nil payload field never matches.
func evaluateCondition(cond Condition, payload map[string]any) bool {
	fieldValue, ok := payload[cond.Field]
	if !ok || fieldValue == nil {
		return false
	}

	fieldStr := stringify(fieldValue)
	switch cond.Operator {
	case OpEq, OpIn:
		return containsValue(cond.Value, fieldStr)
	case OpNotEq:
		return !containsValue(cond.Value, fieldStr)
	case OpLt, OpGt, OpLte, OpGte:
		if len(cond.Value) == 0 {
			return false
		}
		fieldNum, err1 := strconv.ParseFloat(fieldStr, 64)
		compareNum, err2 := strconv.ParseFloat(cond.Value[0], 64)
		if err1 != nil || err2 != nil {
			return false
		}
		switch cond.Operator {
		case OpLt:
			return fieldNum < compareNum
		case OpGt:
			return fieldNum > compareNum
		case OpLte:
			return fieldNum <= compareNum
		default:
			return fieldNum >= compareNum
		}
	default:
		return false
	}
}

func containsValue(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
