package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// University is the tenant that clubs belong to.
type University struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Slug      string             `json:"slug" bson:"slug"`
	Country   string             `json:"country,omitempty" bson:"country,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type CreateUniversityRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=160"`
	Slug    string `json:"slug" validate:"required,min=2,max=80,lowercase"`
	Country string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
}
