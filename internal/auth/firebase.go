package auth

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/frahmantamala/expense-tracker/internal"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens in place of locally issued JWTs.
type FirebaseVerifier struct {
	client idTokenVerifier
	logger *slog.Logger
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App, logger *slog.Logger) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firebase auth client: %w", err)
	}
	return &FirebaseVerifier{client: client, logger: logger}, nil
}

func (f *FirebaseVerifier) Verify(ctx context.Context, token string) (*internal.Actor, error) {
	decoded, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		f.logger.Warn("firebase token rejected", "error", err)
		return nil, internal.ErrInvalidToken
	}

	email := stringClaim(decoded.Claims, "email")
	if email == "" {
		return nil, internal.ErrInvalidToken
	}

	name := stringClaim(decoded.Claims, "name")
	if name == "" {
		name = email
	}
	return &internal.Actor{
		UID:        decoded.UID,
		Name:       name,
		Email:      internal.NormalizeEmail(email),
		Department: stringClaim(decoded.Claims, "department"),
	}, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
