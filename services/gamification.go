package services

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/store"
)

// Point awards per lifecycle transition.
const (
	PointsReportIssue  = 10
	PointsIssueResolve = 50
)

// Gamification records point awards against users. It holds no state
// of its own; the once-per-lifetime guarantee for the resolve award is
// enforced by the issue store's first-resolve predicate, not here.
type Gamification struct {
	users store.UserStore
}

func NewGamification(users store.UserStore) *Gamification {
	return &Gamification{users: users}
}

// AwardPoints increments the actor's points counter. A missing user is
// logged and swallowed: losing a point award must never fail the
// lifecycle operation that earned it.
func (g *Gamification) AwardPoints(ctx context.Context, actorID primitive.ObjectID, amount int) {
	if _, err := g.users.IncrementPoints(ctx, actorID, amount); err != nil {
		log.Printf("gamification: award %d to %s failed: %v", amount, actorID.Hex(), err)
	}
}
