package services

import (
	"rural-voice-be/apperr"
	"rural-voice-be/models"
)

// Operation names an engine entry point for the capability table.
type Operation string

const (
	OpCreateIssue   Operation = "issue:create"
	OpVote          Operation = "issue:vote"
	OpComment       Operation = "issue:comment"
	OpReply         Operation = "issue:reply"
	OpSetStatus     Operation = "issue:set-status"
	OpAssign        Operation = "issue:assign"
	OpAddProgress   Operation = "issue:add-progress"
	OpCreateVillage Operation = "village:create"
)

// Policy maps (operation, role) to allowed. One table instead of
// per-handler role-string comparisons, so the asymmetries are visible
// in one place: note that progress updates are open to Villagers and
// Coordinators while status updates are not open to Villagers.
type Policy map[Operation]map[models.UserRole]bool

// DefaultPolicy mirrors the production role sets.
func DefaultPolicy() Policy {
	everyone := map[models.UserRole]bool{
		models.Villager:    true,
		models.Coordinator: true,
		models.Admin:       true,
		models.SuperAdmin:  true,
	}
	return Policy{
		OpCreateIssue: everyone,
		OpVote:        everyone,
		OpComment:     everyone,
		OpReply:       everyone,
		OpSetStatus: {
			models.Coordinator: true,
			models.Admin:       true,
			models.SuperAdmin:  true,
		},
		OpAssign: {
			models.Coordinator: true,
			models.Admin:       true,
			models.SuperAdmin:  true,
		},
		OpAddProgress: {
			models.Villager:    true,
			models.Coordinator: true,
		},
		OpCreateVillage: {
			models.Admin:      true,
			models.SuperAdmin: true,
		},
	}
}

// Allow returns nil when role may perform op, an Unauthorized error
// otherwise.
func (p Policy) Allow(op Operation, role models.UserRole) error {
	if p[op][role] {
		return nil
	}
	return apperr.Unauthorized("not authorized to " + string(op))
}
