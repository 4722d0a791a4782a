package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Village is an administrative area (semantically a taluk/block). It is
// the unit of notification-room scoping and of issue/user affiliation.
type Village struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name      string              `bson:"name" json:"name"`
	District  string              `bson:"district" json:"district"`
	State     string              `bson:"state" json:"state"`
	Wards     []string            `bson:"wards" json:"wards"`
	AdminID   *primitive.ObjectID `bson:"admin_id,omitempty" json:"admin_id,omitempty"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt" json:"updatedAt"`
}
