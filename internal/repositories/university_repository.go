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

// UniversityRepository defines the interface for university data operations
type UniversityRepository interface {
	CreateUniversity(ctx context.Context, u *models.University) error
	GetUniversityByID(ctx context.Context, id primitive.ObjectID) (*models.University, error)
	GetUniversities(ctx context.Context, p models.Pagination) ([]models.University, error)
	CountUniversities(ctx context.Context) (int64, error)
}

type MongoUniversityRepository struct {
	collection *mongo.Collection
}

func NewMongoUniversityRepository(db *mongo.Database) *MongoUniversityRepository {
	return &MongoUniversityRepository{collection: db.Collection("universities")}
}

func (r *MongoUniversityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uidx_slug"),
	})
	return err
}

func (r *MongoUniversityRepository) CreateUniversity(ctx context.Context, u *models.University) error {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	return nil
}

func (r *MongoUniversityRepository) GetUniversityByID(ctx context.Context, id primitive.ObjectID) (*models.University, error) {
	var u models.University
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUniversityNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUniversityRepository) GetUniversities(ctx context.Context, p models.Pagination) ([]models.University, error) {
	dir := p.SortDirection()
	findOptions := options.Find().
		SetSkip(p.Skip()).
		SetLimit(int64(p.Limit)).
		SetSort(bson.D{{Key: p.SortBy, Value: dir}, {Key: "_id", Value: dir}})

	cursor, err := r.collection.Find(ctx, bson.D{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	universities := make([]models.University, 0, p.Limit)
	if err = cursor.All(ctx, &universities); err != nil {
		return nil, err
	}
	return universities, nil
}

func (r *MongoUniversityRepository) CountUniversities(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.D{})
}

var _ UniversityRepository = (*MongoUniversityRepository)(nil)
