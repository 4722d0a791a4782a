package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
	"rural-voice-be/store"
)

func seedIssue(t *testing.T, s store.IssueStore, age time.Duration, status models.IssueStatus, priority models.IssuePriority) *models.Issue {
	t.Helper()
	created := time.Now().Add(-age)
	issue := &models.Issue{
		ID:          primitive.NewObjectID(),
		Title:       "seeded",
		Description: "seeded",
		Category:    models.Roads,
		Status:      status,
		Priority:    priority,
		ReportedBy:  primitive.NewObjectID(),
		Village:     primitive.NewObjectID(),
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, s.Insert(context.Background(), issue))
	return issue
}

func TestSchedulerPromotesStaleIssues(t *testing.T) {
	issues := store.NewMemoryIssueStore()
	stale := seedIssue(t, issues, 8*24*time.Hour, models.Submitted, models.Medium)
	fresh := seedIssue(t, issues, 2*24*time.Hour, models.Submitted, models.Medium)

	s := NewScheduler(issues, time.Hour, DefaultStalenessThreshold)
	escalated, failed := s.RunOnce(context.Background())
	assert.Equal(t, 1, escalated)
	assert.Equal(t, 0, failed)

	got, err := issues.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.High, got.Priority)

	untouched, err := issues.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Medium, untouched.Priority)
}

func TestSchedulerRunIsIdempotent(t *testing.T) {
	issues := store.NewMemoryIssueStore()
	stale := seedIssue(t, issues, 10*24*time.Hour, models.InProgress, models.Low)

	s := NewScheduler(issues, time.Hour, DefaultStalenessThreshold)
	escalated, _ := s.RunOnce(context.Background())
	require.Equal(t, 1, escalated)

	after, err := issues.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	firstSweep := after.UpdatedAt

	escalated, failed := s.RunOnce(context.Background())
	assert.Equal(t, 0, escalated)
	assert.Equal(t, 0, failed)

	again, err := issues.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, firstSweep, again.UpdatedAt, "second sweep must not rewrite the issue")
}

func TestSchedulerSkipsClosedAndAlreadyHigh(t *testing.T) {
	issues := store.NewMemoryIssueStore()
	resolved := seedIssue(t, issues, 30*24*time.Hour, models.Resolved, models.Low)
	review := seedIssue(t, issues, 30*24*time.Hour, models.UnderReview, models.Low)
	high := seedIssue(t, issues, 30*24*time.Hour, models.Submitted, models.High)

	s := NewScheduler(issues, time.Hour, DefaultStalenessThreshold)
	escalated, failed := s.RunOnce(context.Background())
	assert.Equal(t, 0, escalated)
	assert.Equal(t, 0, failed)

	for _, id := range []primitive.ObjectID{resolved.ID, review.ID} {
		got, err := issues.Get(context.Background(), id)
		require.NoError(t, err)
		assert.NotEqual(t, models.High, got.Priority)
	}
	got, err := issues.Get(context.Background(), high.ID)
	require.NoError(t, err)
	assert.Equal(t, high.UpdatedAt, got.UpdatedAt)
}

// flakyIssueStore fails Escalate for one chosen issue id.
type flakyIssueStore struct {
	*store.MemoryIssueStore
	failID primitive.ObjectID
}

func (s *flakyIssueStore) Escalate(ctx context.Context, id primitive.ObjectID) (*models.Issue, bool, error) {
	if id == s.failID {
		return nil, false, apperr.Dependency("datastore unavailable", context.DeadlineExceeded)
	}
	return s.MemoryIssueStore.Escalate(ctx, id)
}

func TestSchedulerFailureDoesNotAbortSweep(t *testing.T) {
	mem := store.NewMemoryIssueStore()
	bad := seedIssue(t, mem, 9*24*time.Hour, models.Submitted, models.Low)
	good := seedIssue(t, mem, 9*24*time.Hour, models.Submitted, models.Low)

	s := NewScheduler(&flakyIssueStore{MemoryIssueStore: mem, failID: bad.ID}, time.Hour, DefaultStalenessThreshold)
	escalated, failed := s.RunOnce(context.Background())
	assert.Equal(t, 1, escalated)
	assert.Equal(t, 1, failed)

	got, err := mem.Get(context.Background(), good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.High, got.Priority)
}

func TestSchedulerStartStop(t *testing.T) {
	issues := store.NewMemoryIssueStore()
	seedIssue(t, issues, 8*24*time.Hour, models.Submitted, models.Low)

	s := NewScheduler(issues, 10*time.Millisecond, DefaultStalenessThreshold)
	s.Start()
	require.Eventually(t, func() bool {
		found, err := issues.FindStale(context.Background(), time.Now().Add(-DefaultStalenessThreshold))
		return err == nil && len(found) == 0
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}
