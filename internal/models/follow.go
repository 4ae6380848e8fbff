package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClubFollow is a directed "user follows club" edge stored in MongoDB.
// At most one edge exists per (user_id, club_id); unfollowing deletes it.
type ClubFollow struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user_id"`
	ClubID    primitive.ObjectID `json:"club_id" bson:"club_id"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`

	// Club is populated by listing queries only.
	Club *ClubCompact `json:"club,omitempty" bson:"club,omitempty"`
}

// FollowStatus is the outcome of a follow toggle.
type FollowStatus struct {
	ClubID        string `json:"club_id"`
	IsFollowing   bool   `json:"is_following"`
	FollowerCount int64  `json:"follower_count"`
}

// FollowStatusRequest asks which of the given clubs the caller follows.
type FollowStatusRequest struct {
	ClubIDs []string `json:"club_ids" validate:"required,min=1,max=100,dive,objectid"`
}
