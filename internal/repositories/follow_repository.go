package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/anonto42/campus-hub/backend/internal/models"
)

const (
	followsCollection = "club_follows"

	// commitAttempts bounds retries of CommitTransaction when the server
	// cannot say whether a commit applied.
	commitAttempts = 3
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	// ToggleFollow flips the (userID, clubID) edge and adjusts the club's
	// followers_count in a single transaction.
	ToggleFollow(ctx context.Context, userID string, clubID primitive.ObjectID) (*models.FollowStatus, error)
	ListFollowsByUser(ctx context.Context, userID string, p models.Pagination) ([]models.ClubFollow, error)
	CountFollowsByUser(ctx context.Context, userID string) (int64, error)
	GetFollowedClubIDs(ctx context.Context, userID string, clubIDs []primitive.ObjectID) ([]primitive.ObjectID, error)
	CountFollowersOfClub(ctx context.Context, clubID primitive.ObjectID) (int64, error)
}

// MongoFollowRepository implements FollowRepository for MongoDB. It needs a
// replica set or sharded cluster for multi-document transactions.
type MongoFollowRepository struct {
	client  *mongo.Client
	follows *mongo.Collection
	clubs   *mongo.Collection
}

// NewMongoFollowRepository creates a new MongoFollowRepository
func NewMongoFollowRepository(db *mongo.Database) *MongoFollowRepository {
	return &MongoFollowRepository{
		client:  db.Client(),
		follows: db.Collection(followsCollection),
		clubs:   db.Collection(clubsCollection),
	}
}

// EnsureIndexes creates the unique pair index the toggle relies on and the
// index backing per-user listings.
func (r *MongoFollowRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.follows.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "club_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uidx_user_club"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_user_created"),
		},
		{
			Keys:    bson.D{{Key: "club_id", Value: 1}},
			Options: options.Index().SetName("idx_club"),
		},
	})
	return err
}

func txnOptions() *options.TransactionOptions {
	return options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
}

// ToggleFollow runs one attempt of the toggle transaction. Retryable
// failures come back wrapped in ErrTransientConflict; a missing club comes
// back as ErrClubNotFound with the edge write rolled back.
func (r *MongoFollowRepository) ToggleFollow(ctx context.Context, userID string, clubID primitive.ObjectID) (*models.FollowStatus, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	var status *models.FollowStatus
	err = mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(txnOptions()); err != nil {
			return err
		}

		st, err := r.toggleInTxn(sc, userID, clubID)
		if err != nil {
			// Abort must run even if ctx is already cancelled.
			_ = session.AbortTransaction(context.WithoutCancel(sc))
			return err
		}

		if err := commitWithRetry(sc, session); err != nil {
			return err
		}
		status = st
		return nil
	})
	if err != nil {
		return nil, classifyTxnError(err)
	}
	return status, nil
}

func (r *MongoFollowRepository) toggleInTxn(sc mongo.SessionContext, userID string, clubID primitive.ObjectID) (*models.FollowStatus, error) {
	var (
		delta     int64
		following bool
		existing  models.ClubFollow
	)

	err := r.follows.FindOne(sc, bson.M{"user_id": userID, "club_id": clubID}).Decode(&existing)
	switch {
	case err == nil:
		if _, err := r.follows.DeleteOne(sc, bson.M{"_id": existing.ID}); err != nil {
			return nil, err
		}
		delta = -1
	case errors.Is(err, mongo.ErrNoDocuments):
		now := time.Now().UTC()
		edge := models.ClubFollow{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			ClubID:    clubID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := r.follows.InsertOne(sc, edge); err != nil {
			return nil, err
		}
		delta = 1
		following = true
	default:
		return nil, err
	}

	var club struct {
		FollowersCount int64 `bson:"followers_count"`
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"followers_count": 1})
	err = r.clubs.FindOneAndUpdate(sc,
		bson.M{"_id": clubID},
		bson.M{"$inc": bson.M{"followers_count": delta}},
		opts,
	).Decode(&club)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}

	return &models.FollowStatus{
		ClubID:        clubID.Hex(),
		IsFollowing:   following,
		FollowerCount: club.FollowersCount,
	}, nil
}

// commitWithRetry retries only the commit on UnknownTransactionCommitResult.
// Re-running the whole toggle after an unknown commit could flip the edge
// twice, so an unresolved commit is returned without its error labels.
func commitWithRetry(sc mongo.SessionContext, session mongo.Session) error {
	var err error
	for i := 0; i < commitAttempts; i++ {
		err = session.CommitTransaction(sc)
		if err == nil || !isUnknownCommitResult(err) {
			return err
		}
	}
	return fmt.Errorf("commit outcome unknown after %d attempts: %v", commitAttempts, err)
}

// ListFollowsByUser returns one page of the user's edges with the club
// expanded. Ties on the sort field break on _id so pages never overlap.
func (r *MongoFollowRepository) ListFollowsByUser(ctx context.Context, userID string, p models.Pagination) ([]models.ClubFollow, error) {
	dir := p.SortDirection()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$sort", Value: bson.D{{Key: p.SortBy, Value: dir}, {Key: "_id", Value: dir}}}},
		{{Key: "$skip", Value: p.Skip()}},
		{{Key: "$limit", Value: int64(p.Limit)}},
		{{Key: "$lookup", Value: bson.M{
			"from":         clubsCollection,
			"localField":   "club_id",
			"foreignField": "_id",
			"as":           "club",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$club", "preserveNullAndEmptyArrays": true}}},
	}

	cursor, err := r.follows.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	follows := make([]models.ClubFollow, 0, p.Limit)
	if err = cursor.All(ctx, &follows); err != nil {
		return nil, err
	}
	return follows, nil
}

func (r *MongoFollowRepository) CountFollowsByUser(ctx context.Context, userID string) (int64, error) {
	return r.follows.CountDocuments(ctx, bson.M{"user_id": userID})
}

// GetFollowedClubIDs returns the subset of clubIDs the user follows.
func (r *MongoFollowRepository) GetFollowedClubIDs(ctx context.Context, userID string, clubIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(clubIDs) == 0 {
		return nil, nil
	}

	opts := options.Find().SetProjection(bson.M{"club_id": 1})
	cursor, err := r.follows.Find(ctx, bson.M{"user_id": userID, "club_id": bson.M{"$in": clubIDs}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ClubID primitive.ObjectID `bson:"club_id"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ClubID
	}
	return ids, nil
}

// CountFollowersOfClub counts live edges for a club. It is the ground truth
// followers_count is checked against.
func (r *MongoFollowRepository) CountFollowersOfClub(ctx context.Context, clubID primitive.ObjectID) (int64, error) {
	return r.follows.CountDocuments(ctx, bson.M{"club_id": clubID})
}

var _ FollowRepository = (*MongoFollowRepository)(nil)
