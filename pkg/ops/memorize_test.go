package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenticmem/memoryd/pkg/toolruntime"
)

func TestReconcileMemorizeDecision_StoredWhenIDsPresent(t *testing.T) {
	rc := toolruntime.NewRequestContext("proj", "idx", toolruntime.ModeNormal, 5)
	decision, note := reconcileMemorizeDecision(&Decision{Action: "REJECTED"}, []string{"mem_1"}, rc)
	assert.Equal(t, "STORED", decision.Action)
	assert.Contains(t, note, "STORED")
}

func TestReconcileMemorizeDecision_DeduplicatedWhenOverlapFound(t *testing.T) {
	rc := toolruntime.NewRequestContext("proj", "idx", toolruntime.ModeNormal, 5)
	rc.OperationLog = append(rc.OperationLog, toolruntime.OperationLogEntry{
		Tool:            toolruntime.ToolSearchMemories,
		SearchResultIDs: []string{"mem_9"},
	})
	decision, note := reconcileMemorizeDecision(&Decision{Action: "STORED"}, nil, rc)
	assert.Equal(t, "DEDUPLICATED", decision.Action)
	assert.Equal(t, []string{"mem_9"}, decision.RelatedIDs)
	assert.Contains(t, note, "DEDUPLICATED")
}

func TestReconcileMemorizeDecision_RejectedWhenNoOverlapFound(t *testing.T) {
	rc := toolruntime.NewRequestContext("proj", "idx", toolruntime.ModeNormal, 5)
	decision, note := reconcileMemorizeDecision(&Decision{Action: "STORED"}, nil, rc)
	assert.Equal(t, "REJECTED", decision.Action)
	assert.Empty(t, decision.RelatedIDs)
	assert.Contains(t, note, "REJECTED")
}

func TestReconcileMemorizeDecision_RejectedWhenDecisionNilAndNothingStored(t *testing.T) {
	rc := toolruntime.NewRequestContext("proj", "idx", toolruntime.ModeNormal, 5)
	decision, _ := reconcileMemorizeDecision(nil, nil, rc)
	assert.Equal(t, "REJECTED", decision.Action)
}
