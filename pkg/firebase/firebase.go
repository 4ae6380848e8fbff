// Package firebase sets up Firebase ID-token verification. It is only
// initialised when firebase.credentials_path is configured; without it the
// service runs on local JWTs alone and firebase-login is not exposed.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/anonto42/campus-hub/backend/pkg/logger"
)

// ErrNoCredentials is returned when no service-account file is configured.
var ErrNoCredentials = errors.New("firebase credentials path not configured")

// App bundles the Firebase app with the auth client used by the
// firebase-login handler and the Firebase auth middleware.
type App struct {
	FirebaseApp *firebase.App
	AuthClient  *auth.Client
}

// InitFirebase loads the service account at credentialsPath and returns a
// ready auth client.
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, ErrNoCredentials
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("firebase credentials not found at %s", credentialsPath)
		}
		return nil, fmt.Errorf("stat firebase credentials: %w", err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth client: %w", err)
	}

	l := logger.L()
	l.Info().Str("credentials", credentialsPath).Msg("firebase token verification enabled")
	return &App{FirebaseApp: app, AuthClient: authClient}, nil
}
