package services

import (
	"sort"

	"github.com/google/uuid"

	"moc-service/internal/models"
)

// BuildChain materializes approver slots from the active approval levels at
// submission time. Role key and gate stage are copied from each level so that
// later template edits never alter an in-flight chain. Slots are ordered by
// level order, ties broken by creation time, so generation is deterministic.
//
// An empty set of active levels yields an empty chain; whether an empty chain
// gates stage advancement is the workflow policy's decision, not the builder's.
func BuildChain(requestID uuid.UUID, levels []models.ApprovalLevel) []models.MocApprover {
	active := make([]models.ApprovalLevel, 0, len(levels))
	for _, level := range levels {
		if level.IsActive {
			active = append(active, level)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Order != active[j].Order {
			return active[i].Order < active[j].Order
		}
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	chain := make([]models.MocApprover, 0, len(active))
	for i, level := range active {
		chain = append(chain, models.MocApprover{
			RequestID: requestID,
			Order:     i + 1,
			RoleKey:   level.RoleKey,
			GateStage: level.GateStage,
		})
	}
	return chain
}
