// Package store persists issues, users, and villages. Every compound
// read-modify-write an engine operation needs (vote check-then-add,
// first-resolve detection, escalation guard) is exposed as a single
// atomic store operation so two concurrent callers can never both
// observe the pre-mutation state.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/models"
)

// IssueFilter narrows an issue listing.
type IssueFilter struct {
	Village  *primitive.ObjectID
	Category *models.IssueCategory
	Since    *time.Time
}

// IssueSort controls listing order. The default is recency descending;
// ByVotes sorts by vote count descending with recency breaking ties.
type IssueSort struct {
	ByVotes bool
	Limit   int
}

// IssueStore owns issue documents.
type IssueStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error)
	Insert(ctx context.Context, issue *models.Issue) error
	Find(ctx context.Context, filter IssueFilter, sort IssueSort) ([]models.Issue, error)

	// AddVote appends userID to the issue's vote set. It fails with a
	// Conflict error if the user already voted; the check and the append
	// are one atomic operation.
	AddVote(ctx context.Context, id, userID primitive.ObjectID) (*models.Issue, error)

	AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Issue, error)

	// AppendReply adds r under the comment with the given id. NotFound
	// if either the issue or the comment is absent.
	AppendReply(ctx context.Context, id primitive.ObjectID, commentID string, r models.Reply) (*models.Issue, error)

	AppendProgress(ctx context.Context, id primitive.ObjectID, p models.ProgressUpdate) (*models.Issue, error)

	// SetStatus applies the new status. The boolean is true only when
	// this call is the first transition into Resolved in the issue's
	// lifetime (resolvedAt was unset and got stamped); repeat Resolved
	// writes are plain label updates.
	SetStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, bool, error)

	// Assign sets assignedTo and forces the status to In Progress.
	Assign(ctx context.Context, id, assignee primitive.ObjectID) (*models.Issue, error)

	// Escalate raises priority to High if the issue is still open
	// (Submitted or In Progress) and not already High. The boolean
	// reports whether the document changed; an already-escalated issue
	// is left untouched, update timestamp included.
	Escalate(ctx context.Context, id primitive.ObjectID) (*models.Issue, bool, error)

	// FindStale returns open, not-yet-High issues created before the
	// given cutoff.
	FindStale(ctx context.Context, olderThan time.Time) ([]models.Issue, error)
}

// UserStore reads actors and maintains their points counter. The rest
// of the user record belongs to the auth service.
type UserStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	// IncrementPoints adds delta to the user's points and refreshes the
	// badge set from the new total.
	IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (*models.User, error)

	// TopByPoints returns up to limit users ordered by points
	// descending, optionally restricted to one village.
	TopByPoints(ctx context.Context, village *primitive.ObjectID, limit int) ([]models.User, error)
}

// VillageStore owns village documents.
type VillageStore interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.Village, error)
	GetByName(ctx context.Context, name string) (*models.Village, error)
	Insert(ctx context.Context, v *models.Village) error
	Find(ctx context.Context, district string) ([]models.Village, error)
}
