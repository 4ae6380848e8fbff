package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/anonto42/campus-hub/backend/internal/models"
)

const clubsCollection = "clubs"

// ClubRepository defines the interface for club data operations
type ClubRepository interface {
	CreateClub(ctx context.Context, club *models.Club) error
	GetClubByID(ctx context.Context, id primitive.ObjectID) (*models.Club, error)
	GetClubsByUniversity(ctx context.Context, universityID primitive.ObjectID, filter models.ClubFilter, p models.Pagination) ([]models.Club, error)
	CountClubsByUniversity(ctx context.Context, universityID primitive.ObjectID, filter models.ClubFilter) (int64, error)
	UpdateClub(ctx context.Context, id primitive.ObjectID, req *models.UpdateClubRequest) (*models.Club, error)
	GetFollowersCount(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// MongoClubRepository implements ClubRepository for MongoDB
type MongoClubRepository struct {
	collection *mongo.Collection
}

// NewMongoClubRepository creates a new MongoClubRepository
func NewMongoClubRepository(db *mongo.Database) *MongoClubRepository {
	return &MongoClubRepository{collection: db.Collection(clubsCollection)}
}

func (r *MongoClubRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "university_id", Value: 1}, {Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uidx_university_slug"),
		},
		{
			Keys:    bson.D{{Key: "university_id", Value: 1}, {Key: "category", Value: 1}},
			Options: options.Index().SetName("idx_university_category"),
		},
	})
	return err
}

// CreateClub inserts a club with a zero follower count.
func (r *MongoClubRepository) CreateClub(ctx context.Context, club *models.Club) error {
	now := time.Now().UTC()
	club.ID = primitive.NewObjectID()
	club.FollowersCount = 0
	club.CreatedAt = now
	club.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, club); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *MongoClubRepository) GetClubByID(ctx context.Context, id primitive.ObjectID) (*models.Club, error) {
	var club models.Club
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&club)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return &club, nil
}

func clubFilter(universityID primitive.ObjectID, filter models.ClubFilter) bson.M {
	q := bson.M{"university_id": universityID}
	if filter.Category != "" {
		q["category"] = filter.Category
	}
	return q
}

func (r *MongoClubRepository) GetClubsByUniversity(ctx context.Context, universityID primitive.ObjectID, filter models.ClubFilter, p models.Pagination) ([]models.Club, error) {
	dir := p.SortDirection()
	findOptions := options.Find().
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit)).
		SetSort(bson.D{{Key: p.SortBy, Value: dir}, {Key: "_id", Value: dir}})

	cursor, err := r.collection.Find(ctx, clubFilter(universityID, filter), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	clubs := make([]models.Club, 0, p.Limit)
	if err = cursor.All(ctx, &clubs); err != nil {
		return nil, err
	}
	return clubs, nil
}

func (r *MongoClubRepository) CountClubsByUniversity(ctx context.Context, universityID primitive.ObjectID, filter models.ClubFilter) (int64, error) {
	return r.collection.CountDocuments(ctx, clubFilter(universityID, filter))
}

// UpdateClub applies the non-empty fields of req. followers_count is never
// part of the update.
func (r *MongoClubRepository) UpdateClub(ctx context.Context, id primitive.ObjectID, req *models.UpdateClubRequest) (*models.Club, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Category != "" {
		set["category"] = req.Category
	}
	if req.Description != "" {
		set["description"] = req.Description
	}

	var club models.Club
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&club)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrClubNotFound
		}
		return nil, err
	}
	return &club, nil
}

// GetFollowersCount reads the denormalized counter only.
func (r *MongoClubRepository) GetFollowersCount(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var club struct {
		FollowersCount int64 `bson:"followers_count"`
	}
	opts := options.FindOne().SetProjection(bson.M{"followers_count": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&club)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrClubNotFound
		}
		return 0, err
	}
	return club.FollowersCount, nil
}

var _ ClubRepository = (*MongoClubRepository)(nil)
