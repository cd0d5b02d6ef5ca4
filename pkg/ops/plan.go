package ops

import (
	"encoding/json"
	"fmt"

	"github.com/agenticmem/memoryd/pkg/refine"
	"github.com/agenticmem/memoryd/pkg/validate"
)

// planAction is the wire shape one tagged plan action takes in the tool
// loop's final JSON response.
type planAction struct {
	Action     string         `json:"action"`
	TargetID   string         `json:"targetId"`
	SourceIDs  []string       `json:"sourceIds"`
	IDs        []string       `json:"ids"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
	Fields     map[string]any `json:"fields"`
}

// parsePlan decodes the model's final JSON into the plan-action wire
// shape. A malformed or missing `actions` field yields an empty plan
// rather than an error: the caller treats an empty plan as "nothing to do".
func parsePlan(content string) []planAction {
	var parsed struct {
		Actions []planAction `json:"actions"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil
	}
	return parsed.Actions
}

// validatePlanAction converts one wire action into a refine.Action,
// rejecting it if required fields for its kind are missing (spec §4.6's
// "validate every action via the plan validator").
func validatePlanAction(a planAction) (refine.Action, error) {
	switch a.Action {
	case string(refine.ActionUpdate):
		if a.TargetID == "" {
			return refine.Action{}, validate.FieldError{Field: "targetId", Reason: "required for UPDATE"}
		}
		return refine.Action{Kind: refine.ActionUpdate, TargetID: a.TargetID, Metadata: a.Metadata}, nil

	case string(refine.ActionMerge):
		if a.TargetID == "" {
			return refine.Action{}, validate.FieldError{Field: "targetId", Reason: "required for MERGE"}
		}
		if len(a.SourceIDs) == 0 {
			return refine.Action{}, validate.FieldError{Field: "sourceIds", Reason: "required for MERGE"}
		}
		return refine.Action{Kind: refine.ActionMerge, TargetID: a.TargetID, SourceIDs: a.SourceIDs, Text: a.Text, Metadata: a.Metadata}, nil

	case string(refine.ActionCreate):
		if a.Fields == nil {
			return refine.Action{}, validate.FieldError{Field: "fields", Reason: "required for CREATE"}
		}
		return refine.Action{Kind: refine.ActionCreate, Fields: a.Fields, Metadata: a.Metadata, Text: a.Text}, nil

	case string(refine.ActionDelete):
		if len(a.IDs) == 0 {
			return refine.Action{}, validate.FieldError{Field: "ids", Reason: "required for DELETE"}
		}
		return refine.Action{Kind: refine.ActionDelete, IDs: a.IDs}, nil

	default:
		return refine.Action{}, validate.FieldError{Field: "action", Reason: fmt.Sprintf("unknown action kind %q", a.Action)}
	}
}

// validatePlan converts and validates every wire action, dropping invalid
// ones and collecting their reasons rather than failing the whole batch.
func validatePlan(actions []planAction) ([]refine.Action, []string) {
	var valid []refine.Action
	var errs []string
	for i, a := range actions {
		action, err := validatePlanAction(a)
		if err != nil {
			errs = append(errs, fmt.Sprintf("action %d: %s", i, err))
			continue
		}
		valid = append(valid, action)
	}
	return valid, errs
}
