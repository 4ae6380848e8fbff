package models

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is an account stored in PostgreSQL. Its decimal ID is the actor id
// recorded on follow edges.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Email       string    `json:"email" gorm:"uniqueIndex"`
	Password    string    `json:"-"`
	FirebaseUID *string   `json:"firebase_uid,omitempty" gorm:"uniqueIndex"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActorID is the identifier used for this user in the document store.
func (u *User) ActorID() string {
	return strconv.FormatUint(uint64(u.ID), 10)
}

type CreateLocalUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// ActorID returns the actor id carried by the token.
func (c *JwtCustomClaims) ActorID() string {
	return strconv.FormatUint(uint64(c.UserID), 10)
}

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,min=2,max=50"`
}
