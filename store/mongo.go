package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rural-voice-be/apperr"
	"rural-voice-be/models"
)

// MongoIssueStore persists issues in a single collection. Compound
// mutations go through conditionalUpdate: one FindOneAndUpdate whose
// filter carries the precondition, so the check and the write are a
// single server-side operation.
type MongoIssueStore struct {
	col *mongo.Collection
}

func NewMongoIssueStore(db *mongo.Database) *MongoIssueStore {
	return &MongoIssueStore{col: db.Collection("issues")}
}

// conditionalUpdate applies update to the document matching filter and
// returns the post-update document. mongo.ErrNoDocuments means the
// precondition did not hold (or the document is absent).
func (s *MongoIssueStore) conditionalUpdate(ctx context.Context, filter, update bson.M) (*models.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var issue models.Issue
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (s *MongoIssueStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("issue not found")
		}
		return nil, apperr.Dependency("failed to retrieve issue", err)
	}
	return &issue, nil
}

func (s *MongoIssueStore) Insert(ctx context.Context, issue *models.Issue) error {
	if _, err := s.col.InsertOne(ctx, issue); err != nil {
		return apperr.Dependency("failed to create issue", err)
	}
	return nil
}

func (s *MongoIssueStore) Find(ctx context.Context, filter IssueFilter, srt IssueSort) ([]models.Issue, error) {
	query := bson.M{}
	if filter.Village != nil {
		query["village"] = *filter.Village
	}
	if filter.Category != nil {
		query["category"] = *filter.Category
	}
	if filter.Since != nil {
		query["createdAt"] = bson.M{"$gte": *filter.Since}
	}

	// Always fetch in recency order; the vote sort is done in memory so
	// ties land on recency without an aggregation pipeline.
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if !srt.ByVotes && srt.Limit > 0 {
		findOptions.SetLimit(int64(srt.Limit))
	}

	cursor, err := s.col.Find(ctx, query, findOptions)
	if err != nil {
		return nil, apperr.Dependency("failed to retrieve issues", err)
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, apperr.Dependency("failed to decode issues", err)
	}

	if srt.ByVotes {
		sortByVotes(issues)
		if srt.Limit > 0 && len(issues) > srt.Limit {
			issues = issues[:srt.Limit]
		}
	}
	return issues, nil
}

// sortByVotes orders by vote count descending; input is already in
// recency order, so a stable sort keeps recency as the tie-break.
func sortByVotes(issues []models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return len(issues[i].Votes) > len(issues[j].Votes)
	})
}

func (s *MongoIssueStore) AddVote(ctx context.Context, id, userID primitive.ObjectID) (*models.Issue, error) {
	now := time.Now()
	issue, err := s.conditionalUpdate(ctx,
		bson.M{"_id": id, "votes": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"votes": userID},
			"$set":      bson.M{"updatedAt": now},
		})
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Dependency("failed to cast vote", err)
	}
	// Precondition failed: absent issue or duplicate vote.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperr.Conflict("you have already voted for this issue")
}

func (s *MongoIssueStore) AppendComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Issue, error) {
	issue, err := s.conditionalUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"comments": c},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("issue not found")
		}
		return nil, apperr.Dependency("failed to add comment", err)
	}
	return issue, nil
}

func (s *MongoIssueStore) AppendReply(ctx context.Context, id primitive.ObjectID, commentID string, r models.Reply) (*models.Issue, error) {
	issue, err := s.conditionalUpdate(ctx,
		bson.M{"_id": id, "comments._id": commentID},
		bson.M{
			"$push": bson.M{"comments.$.replies": r},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err == nil {
		return issue, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.Dependency("failed to add reply", err)
	}
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperr.NotFound("comment not found")
}

func (s *MongoIssueStore) AppendProgress(ctx context.Context, id primitive.ObjectID, p models.ProgressUpdate) (*models.Issue, error) {
	issue, err := s.conditionalUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"progressUpdates": p},
			"$set":  bson.M{"updatedAt": time.Now()},
		})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("issue not found")
		}
		return nil, apperr.Dependency("failed to record progress", err)
	}
	return issue, nil
}

func (s *MongoIssueStore) SetStatus(ctx context.Context, id primitive.ObjectID, status models.IssueStatus, at time.Time) (*models.Issue, bool, error) {
	if status == models.Resolved {
		// First resolution stamps resolvedAt; the predicate makes sure
		// only one concurrent resolver wins the stamp.
		issue, err := s.conditionalUpdate(ctx,
			bson.M{"_id": id, "resolvedAt": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"status": status, "resolvedAt": at, "updatedAt": at}})
		if err == nil {
			return issue, true, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, apperr.Dependency("failed to update status", err)
		}
		// Already resolved once before: plain label update below.
	}

	issue, err := s.conditionalUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updatedAt": at}})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, apperr.NotFound("issue not found")
		}
		return nil, false, apperr.Dependency("failed to update status", err)
	}
	return issue, false, nil
}

func (s *MongoIssueStore) Assign(ctx context.Context, id, assignee primitive.ObjectID) (*models.Issue, error) {
	issue, err := s.conditionalUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"assignedTo": assignee,
			"status":     models.InProgress,
			"updatedAt":  time.Now(),
		}})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("issue not found")
		}
		return nil, apperr.Dependency("failed to assign issue", err)
	}
	return issue, nil
}

func (s *MongoIssueStore) Escalate(ctx context.Context, id primitive.ObjectID) (*models.Issue, bool, error) {
	issue, err := s.conditionalUpdate(ctx,
		bson.M{
			"_id":      id,
			"priority": bson.M{"$ne": models.High},
			"status":   bson.M{"$in": []models.IssueStatus{models.Submitted, models.InProgress}},
		},
		bson.M{"$set": bson.M{"priority": models.High, "updatedAt": time.Now()}})
	if err == nil {
		return issue, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, apperr.Dependency("failed to escalate issue", err)
	}
	// Guard did not match: the issue is gone, already High, or closed.
	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return current, false, nil
}

func (s *MongoIssueStore) FindStale(ctx context.Context, olderThan time.Time) ([]models.Issue, error) {
	query := bson.M{
		"createdAt": bson.M{"$lt": olderThan},
		"status":    bson.M{"$in": []models.IssueStatus{models.Submitted, models.InProgress}},
		"priority":  bson.M{"$ne": models.High},
	}
	cursor, err := s.col.Find(ctx, query)
	if err != nil {
		return nil, apperr.Dependency("failed to find stale issues", err)
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, apperr.Dependency("failed to decode stale issues", err)
	}
	return issues, nil
}

// MongoUserStore reads actors and maintains the points/badges counters.
type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection("users")}
}

func (s *MongoUserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Dependency("failed to retrieve user", err)
	}
	return &user, nil
}

func (s *MongoUserStore) IncrementPoints(ctx context.Context, id primitive.ObjectID, delta int) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err := s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"points": delta},
			"$set": bson.M{"updatedAt": time.Now()},
		}, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Dependency("failed to award points", err)
	}

	// Badges follow monotonically from the points total, so a plain set
	// of the recomputed ladder is idempotent.
	badges := models.BadgesForPoints(user.Points)
	if len(badges) != len(user.Badges) {
		_, err = s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"badges": badges}})
		if err != nil {
			return nil, apperr.Dependency("failed to update badges", err)
		}
		user.Badges = badges
	}
	return &user, nil
}

func (s *MongoUserStore) TopByPoints(ctx context.Context, village *primitive.ObjectID, limit int) ([]models.User, error) {
	query := bson.M{}
	if village != nil {
		query["village"] = *village
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "points", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"name": 1, "points": 1, "badges": 1, "village": 1, "villageName": 1})

	cursor, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, apperr.Dependency("failed to retrieve leaderboard", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, apperr.Dependency("failed to decode leaderboard", err)
	}
	return users, nil
}

// MongoVillageStore owns village documents.
type MongoVillageStore struct {
	col *mongo.Collection
}

func NewMongoVillageStore(db *mongo.Database) *MongoVillageStore {
	return &MongoVillageStore{col: db.Collection("villages")}
}

func (s *MongoVillageStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Village, error) {
	var v models.Village
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("village not found")
		}
		return nil, apperr.Dependency("failed to retrieve village", err)
	}
	return &v, nil
}

func (s *MongoVillageStore) GetByName(ctx context.Context, name string) (*models.Village, error) {
	var v models.Village
	err := s.col.FindOne(ctx, bson.M{"name": name}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("village not found")
		}
		return nil, apperr.Dependency("failed to retrieve village", err)
	}
	return &v, nil
}

func (s *MongoVillageStore) Insert(ctx context.Context, v *models.Village) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	if _, err := s.col.InsertOne(ctx, v); err != nil {
		return apperr.Dependency("failed to create village", err)
	}
	return nil
}

func (s *MongoVillageStore) Find(ctx context.Context, district string) ([]models.Village, error) {
	query := bson.M{}
	if district != "" {
		query["district"] = district
	}
	cursor, err := s.col.Find(ctx, query)
	if err != nil {
		return nil, apperr.Dependency("failed to retrieve villages", err)
	}
	defer cursor.Close(ctx)

	var villages []models.Village
	if err := cursor.All(ctx, &villages); err != nil {
		return nil, apperr.Dependency("failed to decode villages", err)
	}
	return villages, nil
}
