package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueCategory enum
type IssueCategory string

const (
	Water        IssueCategory = "Water"
	Roads        IssueCategory = "Roads"
	Electricity  IssueCategory = "Electricity"
	Sanitation   IssueCategory = "Sanitation"
	Agriculture  IssueCategory = "Agriculture"
	PublicSafety IssueCategory = "Public Safety"
	Other        IssueCategory = "Other"
)

// ValidCategory reports whether s is one of the known issue categories.
func ValidCategory(s string) bool {
	switch IssueCategory(s) {
	case Water, Roads, Electricity, Sanitation, Agriculture, PublicSafety, Other:
		return true
	}
	return false
}

// IssueStatus enum
type IssueStatus string

const (
	Submitted   IssueStatus = "Submitted"
	UnderReview IssueStatus = "Under Review"
	InProgress  IssueStatus = "In Progress"
	Resolved    IssueStatus = "Resolved"
)

// ValidStatus reports whether s is one of the known issue statuses.
func ValidStatus(s string) bool {
	switch IssueStatus(s) {
	case Submitted, UnderReview, InProgress, Resolved:
		return true
	}
	return false
}

// IssuePriority enum. Priority is only ever raised by the escalation
// sweep; nothing in the system demotes it.
type IssuePriority string

const (
	Low    IssuePriority = "Low"
	Medium IssuePriority = "Medium"
	High   IssuePriority = "High"
)

// Location is an optional lat/lng pair attached to an issue.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Reply is a nested response under a comment.
type Reply struct {
	ID        string             `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Comment is a threaded comment on an issue. Replies keep insertion
// order; the id is assigned at append time and stays stable so later
// replies can target it.
type Comment struct {
	ID        string             `bson:"_id" json:"id"`
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Replies   []Reply            `bson:"replies" json:"replies"`
}

// ProgressUpdate is a work-log entry recorded against an issue.
type ProgressUpdate struct {
	ID          string             `bson:"_id" json:"id"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	Description string             `bson:"description" json:"description"`
	ImageURL    *string            `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	RecordedAt  time.Time          `bson:"recordedAt" json:"recordedAt"`
}

// Issue represents a civic issue reported by a villager
type Issue struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title           string               `bson:"title" json:"title"`
	Description     string               `bson:"description" json:"description"`
	Category        IssueCategory        `bson:"category" json:"category"`
	ImageURL        *string              `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	AudioURL        *string              `bson:"audioUrl,omitempty" json:"audioUrl,omitempty"`
	Location        *Location            `bson:"location,omitempty" json:"location,omitempty"`
	Status          IssueStatus          `bson:"status" json:"status"`
	Priority        IssuePriority        `bson:"priority" json:"priority"`
	Votes           []primitive.ObjectID `bson:"votes" json:"votes"`
	ReportedBy      primitive.ObjectID   `bson:"reportedBy" json:"reportedBy"`
	AssignedTo      *primitive.ObjectID  `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	Village         primitive.ObjectID   `bson:"village" json:"village"`
	VillageName     string               `bson:"villageName" json:"villageName"`
	Comments        []Comment            `bson:"comments" json:"comments"`
	ProgressUpdates []ProgressUpdate     `bson:"progressUpdates" json:"progressUpdates"`
	ResolvedAt      *time.Time           `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasVoted reports whether the given user id is already in the vote set.
func (i *Issue) HasVoted(userID primitive.ObjectID) bool {
	for _, v := range i.Votes {
		if v == userID {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil.
func (i *Issue) FindComment(commentID string) *Comment {
	for idx := range i.Comments {
		if i.Comments[idx].ID == commentID {
			return &i.Comments[idx]
		}
	}
	return nil
}
