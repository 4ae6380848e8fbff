package middleware

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/anonto42/campus-hub/backend/internal/repositories"
	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

// ContextKeyFirebaseUID holds the verified Firebase UID.
const ContextKeyFirebaseUID = "firebaseUID"

// TokenVerifier verifies Firebase ID tokens. *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseAuthMiddleware verifies Firebase ID tokens and resolves the local
// account linked to the token's UID. Tokens for users who never completed
// firebase-login are rejected.
func FirebaseAuthMiddleware(verifier TokenVerifier, users repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			token, err := verifier.VerifyIDToken(ctx, idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			user, err := users.GetUserByFirebaseUID(ctx, token.UID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "No account linked to this Firebase user")
				}
				l := logger.Ctx(ctx)
				l.Error().Err(err).Msg("failed to resolve firebase user")
				return echo.NewHTTPError(http.StatusInternalServerError, "Database error")
			}

			c.Set(ContextKeyFirebaseUID, token.UID)
			c.Set(logger.FieldActorID, user.ActorID())

			return next(c)
		}
	}
}
