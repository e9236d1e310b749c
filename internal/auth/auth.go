package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-tracker/internal"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer token into the authenticated actor.
type Verifier interface {
	Verify(ctx context.Context, token string) (*internal.Actor, error)
}

// Credentials is what login needs from the user store.
type Credentials struct {
	UserID       string
	Email        string
	Name         string
	Department   string
	PasswordHash string
	IsActive     bool
}

type UserRepository interface {
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetCredentialsByID(ctx context.Context, userID string) (*Credentials, error)
}

type TokenGenerator interface {
	GenerateAccessToken(c *Credentials) (string, error)
	GenerateRefreshToken(c *Credentials) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type Claims struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// Actor converts token claims into the request actor.
func (c *Claims) Actor() *internal.Actor {
	return &internal.Actor{
		UID:        c.UserID,
		Name:       c.Name,
		Email:      internal.NormalizeEmail(c.Email),
		Department: c.Department,
	}
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	now                func() time.Time
}
