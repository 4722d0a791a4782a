package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole enum
type UserRole string

const (
	Villager    UserRole = "Villager"
	Coordinator UserRole = "Coordinator"
	Admin       UserRole = "Admin"
	SuperAdmin  UserRole = "SuperAdmin"
)

// User is the actor record this service reads. Account creation and
// credentials live in the auth service; here the user is consulted for
// role, village affiliation, contact details, and the points counter.
type User struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name        string              `bson:"name" json:"name"`
	Mobile      string              `bson:"mobile,omitempty" json:"mobile,omitempty"`
	Email       string              `bson:"email,omitempty" json:"email,omitempty"`
	Role        UserRole            `bson:"role" json:"role"`
	Village     *primitive.ObjectID `bson:"village,omitempty" json:"village,omitempty"`
	VillageName string              `bson:"villageName,omitempty" json:"villageName,omitempty"`
	Ward        string              `bson:"ward,omitempty" json:"ward,omitempty"`
	Points      int                 `bson:"points" json:"points"`
	Badges      []string            `bson:"badges" json:"badges"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Badge thresholds on the points counter.
const (
	BadgeReporter      = "Reporter"
	BadgeActiveCitizen = "Active Citizen"
	BadgeCommunityHero = "Community Hero"
)

// BadgesForPoints returns every badge the given points total has earned.
func BadgesForPoints(points int) []string {
	var badges []string
	if points >= 10 {
		badges = append(badges, BadgeReporter)
	}
	if points >= 50 {
		badges = append(badges, BadgeActiveCitizen)
	}
	if points >= 100 {
		badges = append(badges, BadgeCommunityHero)
	}
	return badges
}
