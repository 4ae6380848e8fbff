package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Club is a student organisation belonging to a university. FollowersCount
// is denormalized from club_follows and is only ever changed by the follow
// toggle.
type Club struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UniversityID   primitive.ObjectID `json:"university_id" bson:"university_id"`
	Name           string             `json:"name" bson:"name"`
	Slug           string             `json:"slug" bson:"slug"`
	Category       string             `json:"category" bson:"category"`
	Description    string             `json:"description,omitempty" bson:"description,omitempty"`
	FollowersCount int64              `json:"followers_count" bson:"followers_count"`
	CreatedBy      string             `json:"created_by" bson:"created_by"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

// ClubCompact is the club projection embedded in follow listings.
type ClubCompact struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	UniversityID   primitive.ObjectID `json:"university_id" bson:"university_id"`
	Name           string             `json:"name" bson:"name"`
	Slug           string             `json:"slug" bson:"slug"`
	Category       string             `json:"category" bson:"category"`
	FollowersCount int64              `json:"followers_count" bson:"followers_count"`
}

type CreateClubRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Slug        string `json:"slug" validate:"required,min=2,max=80,lowercase"`
	Category    string `json:"category" validate:"required,max=50"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// UpdateClubRequest carries the editable club fields; followers_count is
// not one of them.
type UpdateClubRequest struct {
	Name        string `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Category    string `json:"category,omitempty" validate:"omitempty,max=50"`
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
}

// ClubFilter narrows club listings within a university.
type ClubFilter struct {
	Category string `query:"category" validate:"omitempty,max=50"`
}
