package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
	"rural-voice-be/store"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []OutboundMessage
}

func (r *recordingNotifier) Notify(_ context.Context, contact, channel, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, OutboundMessage{Contact: contact, Channel: channel, Message: message})
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type engineFixture struct {
	engine   *Engine
	issues   *store.MemoryIssueStore
	users    *store.MemoryUserStore
	villages *store.MemoryVillageStore
	broker   *Broker
	sent     *recordingNotifier
	village  *models.Village
	reporter *models.User
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	issues := store.NewMemoryIssueStore()
	users := store.NewMemoryUserStore()
	villages := store.NewMemoryVillageStore()
	broker := NewBroker()
	sent := &recordingNotifier{}
	dispatcher := NewDispatcher(sent, 32)
	t.Cleanup(dispatcher.Close)

	village := &models.Village{Name: "Melur", District: "Madurai", State: "Tamil Nadu"}
	require.NoError(t, villages.Insert(context.Background(), village))

	reporter := &models.User{
		Name:    "Kannan",
		Mobile:  "+911234567890",
		Email:   "kannan@example.com",
		Role:    models.Villager,
		Village: &village.ID,
	}
	users.Put(reporter)

	return &engineFixture{
		engine:   NewEngine(issues, users, villages, broker, dispatcher),
		issues:   issues,
		users:    users,
		villages: villages,
		broker:   broker,
		sent:     sent,
		village:  village,
		reporter: reporter,
	}
}

func (f *engineFixture) actor(u *models.User) Actor {
	return Actor{ID: u.ID, Role: u.Role, Village: u.Village}
}

func (f *engineFixture) addUser(t *testing.T, name string, role models.UserRole, village *primitive.ObjectID) *models.User {
	t.Helper()
	u := &models.User{Name: name, Role: role, Village: village}
	f.users.Put(u)
	return u
}

func (f *engineFixture) createIssue(t *testing.T) *models.Issue {
	t.Helper()
	issue, err := f.engine.CreateIssue(context.Background(), f.actor(f.reporter), CreateIssueInput{
		Title:       "Broken hand pump",
		Description: "The pump near the school has been dry for a week",
		Category:    string(models.Water),
	})
	require.NoError(t, err)
	return issue
}

func (f *engineFixture) points(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	u, err := f.users.Get(context.Background(), id)
	require.NoError(t, err)
	return u.Points
}

func TestCreateIssue(t *testing.T) {
	f := newEngineFixture(t)

	inVillage := NewSubscriber(4)
	elsewhere := NewSubscriber(4)
	f.broker.Join(inVillage, f.village.ID.Hex())
	f.broker.Join(elsewhere, primitive.NewObjectID().Hex())

	issue := f.createIssue(t)

	assert.Equal(t, models.Submitted, issue.Status)
	assert.Equal(t, models.Low, issue.Priority)
	assert.Equal(t, f.village.ID, issue.Village)
	assert.Equal(t, f.village.Name, issue.VillageName)
	assert.Equal(t, f.reporter.ID, issue.ReportedBy)

	assert.Equal(t, PointsReportIssue, f.points(t, f.reporter.ID))

	events := drain(inVillage)
	require.Len(t, events, 1)
	assert.Equal(t, EventNewIssue, events[0].Name)
	payload, ok := events[0].Payload.(IssuePayload)
	require.True(t, ok)
	assert.Equal(t, issue.ID, payload.ID)
	assert.Equal(t, f.reporter.Name, payload.ReporterName)

	assert.Empty(t, drain(elsewhere), "other villages must not see the event")

	// SMS acknowledgement goes through the async dispatcher.
	require.Eventually(t, func() bool { return f.sent.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestCreateIssueValidation(t *testing.T) {
	f := newEngineFixture(t)
	actor := f.actor(f.reporter)
	ctx := context.Background()

	_, err := f.engine.CreateIssue(ctx, actor, CreateIssueInput{Description: "d", Category: "Water"})
	assert.True(t, apperr.IsValidation(err), "missing title")

	_, err = f.engine.CreateIssue(ctx, actor, CreateIssueInput{Title: "t", Description: "d", Category: "Potholes"})
	assert.True(t, apperr.IsValidation(err), "unknown category")

	unknown := primitive.NewObjectID()
	_, err = f.engine.CreateIssue(ctx, actor, CreateIssueInput{
		Title: "t", Description: "d", Category: "Water", VillageID: &unknown,
	})
	assert.True(t, apperr.IsNotFound(err), "unresolvable village")
}

func TestCreateIssueExplicitVillageWins(t *testing.T) {
	f := newEngineFixture(t)

	other := &models.Village{Name: "Alanganallur", District: "Madurai", State: "Tamil Nadu"}
	require.NoError(t, f.villages.Insert(context.Background(), other))

	issue, err := f.engine.CreateIssue(context.Background(), f.actor(f.reporter), CreateIssueInput{
		Title:       "Transformer sparking",
		Description: "Sparks near the main road transformer",
		Category:    string(models.Electricity),
		VillageID:   &other.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, other.ID, issue.Village)
	assert.Equal(t, other.Name, issue.VillageName)
}

func TestVoteDuplicateConflict(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	voter := f.addUser(t, "Meena", models.Villager, &f.village.ID)
	ctx := context.Background()

	updated, err := f.engine.Vote(ctx, f.actor(voter), issue.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Votes, 1)

	_, err = f.engine.Vote(ctx, f.actor(voter), issue.ID)
	assert.True(t, apperr.IsConflict(err))

	current, err := f.engine.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Len(t, current.Votes, 1, "vote count must stay 1 after the rejected duplicate")
}

func TestConcurrentVotesSingleWinner(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	voter := f.addUser(t, "Meena", models.Villager, &f.village.ID)
	actor := f.actor(voter)

	const attempts = 32
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Vote(context.Background(), actor, issue.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperr.IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)

	current, err := f.engine.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Len(t, current.Votes, 1)
}

func TestSetStatusRequiresRole(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)

	_, err := f.engine.SetStatus(context.Background(), f.actor(f.reporter), issue.ID, string(models.InProgress))
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestResolveAwardsReporterExactlyOnce(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	admin := f.addUser(t, "Collector", models.Admin, &f.village.ID)
	ctx := context.Background()

	sub := NewSubscriber(8)
	f.broker.Join(sub, f.village.ID.Hex())

	resolved, err := f.engine.SetStatus(ctx, f.actor(admin), issue.ID, string(models.Resolved))
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, PointsReportIssue+PointsIssueResolve, f.points(t, f.reporter.ID))

	events := drain(sub)
	require.Len(t, events, 1)
	assert.Equal(t, EventIssueUpdated, events[0].Name)

	// Resolving an already-Resolved issue is a no-op for the award.
	again, err := f.engine.SetStatus(ctx, f.actor(admin), issue.ID, string(models.Resolved))
	require.NoError(t, err)
	assert.Equal(t, resolved.ResolvedAt.Unix(), again.ResolvedAt.Unix())
	assert.Equal(t, PointsReportIssue+PointsIssueResolve, f.points(t, f.reporter.ID))

	// Bouncing through another status and back does not re-award either:
	// the stamp guards the lifetime, not the transition.
	_, err = f.engine.SetStatus(ctx, f.actor(admin), issue.ID, string(models.InProgress))
	require.NoError(t, err)
	_, err = f.engine.SetStatus(ctx, f.actor(admin), issue.ID, string(models.Resolved))
	require.NoError(t, err)
	assert.Equal(t, PointsReportIssue+PointsIssueResolve, f.points(t, f.reporter.ID))
}

func TestResolveNotifiesReporter(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	admin := f.addUser(t, "Collector", models.Admin, &f.village.ID)

	_, err := f.engine.SetStatus(context.Background(), f.actor(admin), issue.ID, string(models.Resolved))
	require.NoError(t, err)

	// One SMS from creation, then email + SMS on resolve.
	require.Eventually(t, func() bool { return f.sent.count() == 3 }, time.Second, 10*time.Millisecond)
}

func TestCommentAndReplyOrdering(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	actor := f.actor(f.reporter)
	ctx := context.Background()

	_, err := f.engine.AddComment(ctx, actor, issue.ID, "first")
	require.NoError(t, err)
	withComments, err := f.engine.AddComment(ctx, actor, issue.ID, "second")
	require.NoError(t, err)
	require.Len(t, withComments.Comments, 2)
	assert.Equal(t, "first", withComments.Comments[0].Text)
	assert.Equal(t, "second", withComments.Comments[1].Text)
	assert.NotEqual(t, withComments.Comments[0].ID, withComments.Comments[1].ID)

	target := withComments.Comments[0].ID
	_, err = f.engine.ReplyToComment(ctx, actor, issue.ID, target, "reply one")
	require.NoError(t, err)
	withReplies, err := f.engine.ReplyToComment(ctx, actor, issue.ID, target, "reply two")
	require.NoError(t, err)

	first := withReplies.FindComment(target)
	require.NotNil(t, first)
	require.Len(t, first.Replies, 2)
	assert.Equal(t, "reply one", first.Replies[0].Text)
	assert.Equal(t, "reply two", first.Replies[1].Text)
	assert.Empty(t, withReplies.Comments[1].Replies)
}

func TestReplyToMissingCommentLeavesIssueUnchanged(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	actor := f.actor(f.reporter)
	ctx := context.Background()

	before, err := f.engine.GetIssue(ctx, issue.ID)
	require.NoError(t, err)

	_, err = f.engine.ReplyToComment(ctx, actor, issue.ID, "no-such-comment", "hello?")
	assert.True(t, apperr.IsNotFound(err))

	after, err := f.engine.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Empty(t, after.Comments)
}

func TestAssignIssue(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	ctx := context.Background()

	worker := f.addUser(t, "Lineman", models.Villager, &f.village.ID)
	coordinator := f.addUser(t, "Coordinator", models.Coordinator, &f.village.ID)

	updated, err := f.engine.AssignIssue(ctx, f.actor(coordinator), issue.ID, worker.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, worker.ID, *updated.AssignedTo)
	assert.Equal(t, models.InProgress, updated.Status)
}

func TestAssignIssueOutsideVillageDenied(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)

	otherVillage := primitive.NewObjectID()
	outsider := f.addUser(t, "Outsider", models.Admin, &otherVillage)

	_, err := f.engine.AssignIssue(context.Background(), f.actor(outsider), issue.ID, f.reporter.ID)
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestAddProgressUpdate(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	ctx := context.Background()

	coordinator := f.addUser(t, "Coordinator", models.Coordinator, &f.village.ID)

	updated, err := f.engine.AddProgressUpdate(ctx, f.actor(coordinator), issue.ID, "Pipes ordered", nil, "")
	require.NoError(t, err)
	require.Len(t, updated.ProgressUpdates, 1)
	assert.Equal(t, "Pipes ordered", updated.ProgressUpdates[0].Description)
	assert.Equal(t, models.Submitted, updated.Status, "no status supplied, none applied")

	// Supplying a status applies the full status side effects.
	resolved, err := f.engine.AddProgressUpdate(ctx, f.actor(coordinator), issue.ID, "Pump replaced", nil, string(models.Resolved))
	require.NoError(t, err)
	assert.Equal(t, models.Resolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, PointsReportIssue+PointsIssueResolve, f.points(t, f.reporter.ID))
}

func TestAddProgressUpdateInvalidStatusCommitsNothing(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	ctx := context.Background()

	coordinator := f.addUser(t, "Coordinator", models.Coordinator, &f.village.ID)

	_, err := f.engine.AddProgressUpdate(ctx, f.actor(coordinator), issue.ID, "work done", nil, "Bogus")
	assert.True(t, apperr.IsValidation(err))

	current, err := f.engine.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, current.ProgressUpdates, "a rejected status must not leave the entry behind")
	assert.Equal(t, models.Submitted, current.Status)
}

func TestAddProgressUpdateRoleSet(t *testing.T) {
	f := newEngineFixture(t)
	issue := f.createIssue(t)
	ctx := context.Background()

	// Villagers may record progress even though they cannot SetStatus.
	_, err := f.engine.AddProgressUpdate(ctx, f.actor(f.reporter), issue.ID, "Dug around the pipe", nil, "")
	assert.NoError(t, err)

	admin := f.addUser(t, "Collector", models.Admin, &f.village.ID)
	_, err = f.engine.AddProgressUpdate(ctx, f.actor(admin), issue.ID, "Checked", nil, "")
	assert.True(t, apperr.IsUnauthorized(err))
}

func TestListIssuesByVotes(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first := f.createIssue(t)
	second := f.createIssue(t)
	third := f.createIssue(t)

	for i := 0; i < 3; i++ {
		voter := f.addUser(t, "v", models.Villager, &f.village.ID)
		_, err := f.engine.Vote(ctx, f.actor(voter), second.ID)
		require.NoError(t, err)
		if i < 1 {
			_, err = f.engine.Vote(ctx, f.actor(voter), first.ID)
			require.NoError(t, err)
		}
	}

	issues, err := f.engine.ListIssues(ctx, store.IssueFilter{}, store.IssueSort{ByVotes: true})
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, second.ID, issues[0].ID)
	assert.Equal(t, first.ID, issues[1].ID)
	assert.Equal(t, third.ID, issues[2].ID)

	limited, err := f.engine.ListIssues(ctx, store.IssueFilter{}, store.IssueSort{ByVotes: true, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
