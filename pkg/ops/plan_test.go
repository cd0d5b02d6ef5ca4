package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenticmem/memoryd/pkg/refine"
)

func TestParsePlan_ValidJSON(t *testing.T) {
	content := `{"actions":[{"action":"DELETE","ids":["mem_1"]}]}`
	actions := parsePlan(content)
	assert.Len(t, actions, 1)
	assert.Equal(t, "DELETE", actions[0].Action)
}

func TestParsePlan_MalformedYieldsEmpty(t *testing.T) {
	assert.Nil(t, parsePlan("not json"))
}

func TestValidatePlanAction_UpdateRequiresTargetID(t *testing.T) {
	_, err := validatePlanAction(planAction{Action: "UPDATE"})
	assert.Error(t, err)
}

func TestValidatePlanAction_UpdateOK(t *testing.T) {
	a, err := validatePlanAction(planAction{Action: "UPDATE", TargetID: "mem_1", Metadata: map[string]any{"topic": "x"}})
	assert.NoError(t, err)
	assert.Equal(t, refine.ActionUpdate, a.Kind)
}

func TestValidatePlanAction_MergeRequiresSourceIDs(t *testing.T) {
	_, err := validatePlanAction(planAction{Action: "MERGE", TargetID: "mem_1"})
	assert.Error(t, err)
}

func TestValidatePlanAction_CreateRequiresFields(t *testing.T) {
	_, err := validatePlanAction(planAction{Action: "CREATE"})
	assert.Error(t, err)
}

func TestValidatePlanAction_DeleteRequiresIDs(t *testing.T) {
	_, err := validatePlanAction(planAction{Action: "DELETE"})
	assert.Error(t, err)
}

func TestValidatePlanAction_UnknownKind(t *testing.T) {
	_, err := validatePlanAction(planAction{Action: "BOGUS"})
	assert.Error(t, err)
}

func TestValidatePlan_DropsInvalidKeepsValid(t *testing.T) {
	raw := []planAction{
		{Action: "DELETE", IDs: []string{"mem_1"}},
		{Action: "UPDATE"},
	}
	valid, errs := validatePlan(raw)
	assert.Len(t, valid, 1)
	assert.Len(t, errs, 1)
}
