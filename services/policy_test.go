package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
)

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name    string
		op      Operation
		role    models.UserRole
		allowed bool
	}{
		{"villager creates issue", OpCreateIssue, models.Villager, true},
		{"villager votes", OpVote, models.Villager, true},
		{"villager cannot set status", OpSetStatus, models.Villager, false},
		{"coordinator sets status", OpSetStatus, models.Coordinator, true},
		{"admin sets status", OpSetStatus, models.Admin, true},
		{"superadmin sets status", OpSetStatus, models.SuperAdmin, true},
		{"villager cannot assign", OpAssign, models.Villager, false},
		{"admin assigns", OpAssign, models.Admin, true},
		// Progress authorship is wider than status authorship for
		// Villagers and narrower for Admins.
		{"villager adds progress", OpAddProgress, models.Villager, true},
		{"coordinator adds progress", OpAddProgress, models.Coordinator, true},
		{"admin cannot add progress", OpAddProgress, models.Admin, false},
		{"villager cannot create village", OpCreateVillage, models.Villager, false},
		{"admin creates village", OpCreateVillage, models.Admin, true},
		{"unknown role denied", OpCreateIssue, models.UserRole("Stranger"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Allow(tt.op, tt.role)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsUnauthorized(err))
			}
		})
	}
}
