package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
)

// MemoryIssueStore is an in-memory IssueStore with the same atomicity
// contract as the Mongo one: every compound mutation runs under the
// store mutex, so concurrent vote or resolve attempts serialize.
// Used by tests and as a dev backend.
type MemoryIssueStore struct {
	mu     sync.Mutex
	issues map[primitive.ObjectID]*models.Issue
}

func NewMemoryIssueStore() *MemoryIssueStore {
	return &MemoryIssueStore{issues: make(map[primitive.ObjectID]*models.Issue)}
}

func copyIssue(i *models.Issue) *models.Issue {
	out := *i
	out.Votes = append([]primitive.ObjectID(nil), i.Votes...)
	out.Comments = make([]models.Comment, len(i.Comments))
	for idx, c := range i.Comments {
		out.Comments[idx] = c
		out.Comments[idx].Replies = append([]models.Reply(nil), c.Replies...)
	}
	out.ProgressUpdates = append([]models.ProgressUpdate(nil), i.ProgressUpdates...)
	return &out
}

func (s *MemoryIssueStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// get requires s.mu held.
func (s *MemoryIssueStore) get(id primitive.ObjectID) (*models.Issue, error) {
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("issue not found")
	}
	return copyIssue(issue), nil
}

func (s *MemoryIssueStore) Insert(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	s.issues[issue.ID] = copyIssue(issue)
	return nil
}

func (s *MemoryIssueStore) Find(ctx context.Context, filter IssueFilter, srt IssueSort) ([]models.Issue, error) {
	s.mu.Lock()
	var issues []models.Issue
	for _, issue := range s.issues {
		if filter.Village != nil && issue.Village != *filter.Village {
			continue
		}
		if filter.Category != nil && issue.Category != *filter.Category {
			continue
		}
		if filter.Since != nil && issue.CreatedAt.Before(*filter.Since) {
			continue
		}
		issues = append(issues, *copyIssue(issue))
	}
	s.mu.Unlock()

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
	if srt.ByVotes {
		sortByVotes(issues)
	}
	if srt.Limit > 0 && len(issues) > srt.Limit {
		issues = issues[:srt.Limit]
	}
	return issues, nil
}

func (s *MemoryIssueStore) AddVote(ctx context.Context, id, userID primitive.ObjectID) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("issue not found")
	}
	if issue.HasVoted(userID) {
		return nil, apperr.Conflict("you have already voted for this issue")
	}
	issue.Votes = append(issue.Votes, userID)
	issue.UpdatedAt = time.Now()
	return copyIssue(issue), nil
}

func (s *MemoryIssueStore) AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("issue not found")
	}
	issue.Comments = append(issue.Comments, c)
	issue.UpdatedAt = time.Now()
	return copyIssue(issue), nil
}

func (s *MemoryIssueStore) AppendReply(ctx context.Context, id primitive.ObjectID, commentID string, r models.Reply) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("issue not found")
	}
	comment := issue.FindComment(commentID)
	if comment == nil {
		return nil, apperr.NotFound("comment not found")
	}
	comment.Replies = append(comment.Replies, r)
	issue.UpdatedAt = time.Now()
	return copyIssue(issue), nil
}

func (s *MemoryIssueStore) AppendProgress(ctx context.Context, id primitive.ObjectID, p models.ProgressUpdate) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("issue not found")
	}
	issue.ProgressUpdates = append(issue.ProgressUpdates, p)
	issue.UpdatedAt = time.Now()
	return copyIssue(issue), nil
}

func (s *MemoryIssueStore) SetStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, false, apperr.NotFound("issue not found")
	}
	first := false
	if status == models.Resolved && issue.ResolvedAt == nil {
		resolved := at
		issue.ResolvedAt = &resolved
		first = true
	}
	issue.Status = status
	issue.UpdatedAt = at
	return copyIssue(issue), first, nil
}

func (s *MemoryIssueStore) Assign(ctx context.Context, id, assignee primitive.ObjectID) (*models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, apperr.NotFound("issue not found")
	}
	a := assignee
	issue.AssignedTo = &a
	issue.Status = models.InProgress
	issue.UpdatedAt = time.Now()
	return copyIssue(issue), nil
}

func (s *MemoryIssueStore) Escalate(ctx context.Context, id primitive.ObjectID) (*models.Issue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, false, apperr.NotFound("issue not found")
	}
	open := issue.Status == models.Submitted || issue.Status == models.InProgress
	if issue.Priority == models.High || !open {
		return copyIssue(issue), false, nil
	}
	issue.Priority = models.High
	issue.UpdatedAt = time.Now()
	return copyIssue(issue), true, nil
}

func (s *MemoryIssueStore) FindStale(ctx context.Context, olderThan time.Time) ([]models.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stale []models.Issue
	for _, issue := range s.issues {
		open := issue.Status == models.Submitted || issue.Status == models.InProgress
		if open && issue.Priority != models.High && issue.CreatedAt.Before(olderThan) {
			stale = append(stale, *copyIssue(issue))
		}
	}
	return stale, nil
}

// MemoryUserStore is an in-memory UserStore.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

// Put seeds a user record.
func (s *MemoryUserStore) Put(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	copied := *u
	copied.Badges = append([]string(nil), u.Badges...)
	s.users[u.ID] = &copied
}

func (s *MemoryUserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	copied := *u
	copied.Badges = append([]string(nil), u.Badges...)
	return &copied, nil
}

func (s *MemoryUserStore) IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	u.Points += delta
	u.Badges = models.BadgesForPoints(u.Points)
	u.UpdatedAt = time.Now()
	copied := *u
	copied.Badges = append([]string(nil), u.Badges...)
	return &copied, nil
}

func (s *MemoryUserStore) TopByPoints(ctx context.Context, village *primitive.ObjectID, limit int) ([]models.User, error) {
	s.mu.Lock()
	var users []models.User
	for _, u := range s.users {
		if village != nil && (u.Village == nil || *u.Village != *village) {
			continue
		}
		users = append(users, *u)
	}
	s.mu.Unlock()

	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Points > users[j].Points
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// MemoryVillageStore is an in-memory VillageStore.
type MemoryVillageStore struct {
	mu       sync.Mutex
	villages map[primitive.ObjectID]*models.Village
}

func NewMemoryVillageStore() *MemoryVillageStore {
	return &MemoryVillageStore{villages: make(map[primitive.ObjectID]*models.Village)}
}

func (s *MemoryVillageStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Village, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.villages[id]
	if !ok {
		return nil, apperr.NotFound("village not found")
	}
	copied := *v
	return &copied, nil
}

func (s *MemoryVillageStore) GetByName(ctx context.Context, name string) (*models.Village, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.villages {
		if v.Name == name {
			copied := *v
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("village not found")
}

func (s *MemoryVillageStore) Insert(ctx context.Context, v *models.Village) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	copied := *v
	s.villages[v.ID] = &copied
	return nil
}

func (s *MemoryVillageStore) Find(ctx context.Context, district string) ([]models.Village, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Village
	for _, v := range s.villages {
		if district != "" && v.District != district {
			continue
		}
		out = append(out, *v)
	}
	return out, nil
}
