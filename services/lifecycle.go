package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
	"rural-voice-be/store"
)

// Actor is the authenticated caller of an engine operation, as decoded
// from the transport layer's token claims.
type Actor struct {
	ID      primitive.ObjectID
	Role    models.UserRole
	Village *primitive.ObjectID
}

// IssuePayload is the event payload fanned out to village rooms: the
// full issue with the reporter's display name populated (the village
// name already lives on the issue).
type IssuePayload struct {
	models.Issue
	ReporterName string `json:"reporterName,omitempty"`
}

// Engine enforces the issue lifecycle: it validates each mutation,
// applies it through the store's atomic operations, updates the points
// counters, and only after the write has committed publishes the change
// to the village's room. Outbound email/SMS goes through the bounded
// dispatcher and can never fail or block an operation.
type Engine struct {
	issues   store.IssueStore
	users    store.UserStore
	villages store.VillageStore
	broker   *Broker
	gamify   *Gamification
	outbound *Dispatcher
	policy   Policy
}

func NewEngine(issues store.IssueStore, users store.UserStore, villages store.VillageStore, broker *Broker, outbound *Dispatcher) *Engine {
	return &Engine{
		issues:   issues,
		users:    users,
		villages: villages,
		broker:   broker,
		gamify:   NewGamification(users),
		outbound: outbound,
		policy:   DefaultPolicy(),
	}
}

// CreateIssueInput carries the caller-supplied fields for a new issue.
type CreateIssueInput struct {
	Title       string
	Description string
	Category    string
	VillageID   *primitive.ObjectID
	Location    *models.Location
	ImageURL    *string
	AudioURL    *string
}

// CreateIssue validates and persists a new issue, awards the reporter
// points, and announces it to the village room.
func (e *Engine) CreateIssue(ctx context.Context, actor Actor, in CreateIssueInput) (*models.Issue, error) {
	if err := e.policy.Allow(OpCreateIssue, actor.Role); err != nil {
		return nil, err
	}
	if in.Title == "" || in.Description == "" {
		return nil, apperr.Validation("title and description are required")
	}
	if !models.ValidCategory(in.Category) {
		return nil, apperr.Validation("invalid category")
	}

	reporter, err := e.users.Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	// Explicit village id wins; otherwise the issue lands in the
	// reporter's own village.
	villageID := in.VillageID
	if villageID == nil {
		villageID = reporter.Village
	}
	if villageID == nil {
		return nil, apperr.Validation("village is required")
	}
	village, err := e.villages.Get(ctx, *villageID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	issue := &models.Issue{
		ID:              primitive.NewObjectID(),
		Title:           in.Title,
		Description:     in.Description,
		Category:        models.IssueCategory(in.Category),
		ImageURL:        in.ImageURL,
		AudioURL:        in.AudioURL,
		Location:        in.Location,
		Status:          models.Submitted,
		Priority:        models.Low,
		Votes:           []primitive.ObjectID{},
		ReportedBy:      actor.ID,
		Village:         village.ID,
		VillageName:     village.Name,
		Comments:        []models.Comment{},
		ProgressUpdates: []models.ProgressUpdate{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := e.issues.Insert(ctx, issue); err != nil {
		return nil, err
	}

	e.gamify.AwardPoints(ctx, actor.ID, PointsReportIssue)
	e.publish(ctx, issue, EventNewIssue)
	e.outbound.Enqueue(reporter.Mobile, ChannelSMS,
		fmt.Sprintf("Rural Voice: Your issue %q has been reported successfully. Thank you!", issue.Title))

	return issue, nil
}

// ListIssues is a pure read over the store.
func (e *Engine) ListIssues(ctx context.Context, filter store.IssueFilter, sort store.IssueSort) ([]models.Issue, error) {
	return e.issues.Find(ctx, filter, sort)
}

func (e *Engine) GetIssue(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	return e.issues.Get(ctx, id)
}

// SetStatus applies a new status label. The first transition into
// Resolved stamps resolvedAt, awards the reporter points exactly once,
// and notifies them; repeated Resolved writes are no-ops for those side
// effects.
func (e *Engine) SetStatus(ctx context.Context, actor Actor, id primitive.ObjectID, status string) (*models.Issue, error) {
	if err := e.policy.Allow(OpSetStatus, actor.Role); err != nil {
		return nil, err
	}
	return e.applyStatus(ctx, id, status)
}

func (e *Engine) applyStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Issue, error) {
	if !models.ValidStatus(status) {
		return nil, apperr.Validation("invalid status")
	}

	issue, firstResolve, err := e.issues.SetStatus(ctx, id, models.IssueStatus(status), time.Now())
	if err != nil {
		return nil, err
	}

	if firstResolve {
		e.gamify.AwardPoints(ctx, issue.ReportedBy, PointsIssueResolve)
		e.notifyResolved(ctx, issue)
	}
	e.publish(ctx, issue, EventIssueUpdated)
	return issue, nil
}

func (e *Engine) notifyResolved(ctx context.Context, issue *models.Issue) {
	reporter, err := e.users.Get(ctx, issue.ReportedBy)
	if err != nil {
		log.Printf("lifecycle: reporter %s lookup for resolve notice failed: %v", issue.ReportedBy.Hex(), err)
		return
	}
	if reporter.Email != "" {
		e.outbound.Enqueue(reporter.Email, ChannelEmail,
			fmt.Sprintf("Hello %s, the issue you reported %q has been marked as Resolved. Thank you for contributing to your community!", reporter.Name, issue.Title))
	}
	e.outbound.Enqueue(reporter.Mobile, ChannelSMS,
		fmt.Sprintf("Rural Voice: Great news! Your issue %q has been Resolved.", issue.Title))
}

// Vote adds the actor to the issue's vote set. Duplicate votes fail
// with Conflict; the check and the append are one atomic store update,
// so concurrent duplicates cannot both land.
func (e *Engine) Vote(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Issue, error) {
	if err := e.policy.Allow(OpVote, actor.Role); err != nil {
		return nil, err
	}
	return e.issues.AddVote(ctx, id, actor.ID)
}

// AddComment appends a comment with a fresh stable id.
func (e *Engine) AddComment(ctx context.Context, actor Actor, id primitive.ObjectID, text string) (*models.Issue, error) {
	if err := e.policy.Allow(OpComment, actor.Role); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, apperr.Validation("comment text is required")
	}
	comment := models.Comment{
		ID:        uuid.NewString(),
		User:      actor.ID,
		Text:      text,
		CreatedAt: time.Now(),
		Replies:   []models.Reply{},
	}
	return e.issues.AppendComment(ctx, id, comment)
}

// ReplyToComment appends a reply under an existing comment; NotFound if
// the comment id does not exist on the issue.
func (e *Engine) ReplyToComment(ctx context.Context, actor Actor, id primitive.ObjectID, commentID, text string) (*models.Issue, error) {
	if err := e.policy.Allow(OpReply, actor.Role); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, apperr.Validation("reply text is required")
	}
	reply := models.Reply{
		ID:        uuid.NewString(),
		User:      actor.ID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	return e.issues.AppendReply(ctx, id, commentID, reply)
}

// AssignIssue sets the assignee and forces the issue into In Progress.
// Only actors from the issue's own village may assign.
func (e *Engine) AssignIssue(ctx context.Context, actor Actor, id, assigneeID primitive.ObjectID) (*models.Issue, error) {
	if err := e.policy.Allow(OpAssign, actor.Role); err != nil {
		return nil, err
	}

	issue, err := e.issues.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Village == nil || *actor.Village != issue.Village {
		return nil, apperr.Unauthorized("not authorized to assign issues outside your village")
	}

	updated, err := e.issues.Assign(ctx, id, assigneeID)
	if err != nil {
		return nil, err
	}

	if worker, err := e.users.Get(ctx, assigneeID); err == nil {
		e.outbound.Enqueue(worker.Mobile, ChannelSMS,
			fmt.Sprintf("Rural Voice: You have been assigned a new issue: %q. Please check the dashboard.", updated.Title))
	} else {
		log.Printf("lifecycle: assignee %s lookup failed: %v", assigneeID.Hex(), err)
	}
	return updated, nil
}

// AddProgressUpdate records a work-log entry, optionally applying a
// status change with its full side effects. Progress authors form a
// broader set than status updaters; the policy table keeps that
// asymmetry explicit.
func (e *Engine) AddProgressUpdate(ctx context.Context, actor Actor, id primitive.ObjectID, description string, imageURL *string, newStatus string) (*models.Issue, error) {
	if err := e.policy.Allow(OpAddProgress, actor.Role); err != nil {
		return nil, err
	}
	if description == "" {
		return nil, apperr.Validation("progress description is required")
	}
	// Check the status up front so a bad one cannot leave the entry
	// committed behind a validation failure.
	if newStatus != "" && !models.ValidStatus(newStatus) {
		return nil, apperr.Validation("invalid status")
	}

	update := models.ProgressUpdate{
		ID:          uuid.NewString(),
		User:        actor.ID,
		Description: description,
		ImageURL:    imageURL,
		RecordedAt:  time.Now(),
	}
	issue, err := e.issues.AppendProgress(ctx, id, update)
	if err != nil {
		return nil, err
	}

	if newStatus != "" {
		return e.applyStatus(ctx, id, newStatus)
	}
	return issue, nil
}

// publish fans the committed issue out to its village room. It runs
// strictly after the store write, so subscribers never see state that
// failed to persist.
func (e *Engine) publish(ctx context.Context, issue *models.Issue, event string) {
	payload := IssuePayload{Issue: *issue}
	if reporter, err := e.users.Get(ctx, issue.ReportedBy); err == nil {
		payload.ReporterName = reporter.Name
	}
	e.broker.Publish(issue.Village.Hex(), event, payload)
}
