package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrBadCredentials = errors.New("invalid email or password")
)

// User is an authenticated identity. It is distinct from a Member: the member
// is this identity's persisted association with one conference.
// swagger:model User
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	// MemberID is set once the user has been resolved against a conference;
	// it is empty on a raw authenticated identity.
	MemberID  string    `json:"member_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser returns a new User. ID is set by the repository on create.
func NewUser(email, displayName string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// Credentials holds a user's password hash and salt. Kept out of User so the
// identity record can be attached to requests and serialized freely.
type Credentials struct {
	PasswordHash string
	Salt         string
}

// Role represents an application role (e.g. admin, attendee)
type Role struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

// PasswordHasher handles salt generation, hashing, and verification.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserLoader resolves an authenticated user ID to its identity record.
// The auth middleware uses it to attach the full user to the request.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	CreateWithCredentials(ctx context.Context, user *User, creds *Credentials) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetCredentialsByEmail(ctx context.Context, email string) (*User, *Credentials, error)
	GetByID(ctx context.Context, id string) (*User, error)
	AssignRole(ctx context.Context, userID, roleID string) error
}

// LoginCodeRepository defines the interface for one-time login code storage.
type LoginCodeRepository interface {
	Create(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	Consume(ctx context.Context, email, codeHash string) (consumed bool, err error)
}

// RoleRepository defines the interface for role storage
type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*Role, error)
	ListByUserID(ctx context.Context, userID string) ([]*Role, error)
}

// UserService defines the passwordless login flow and profile lookups.
type UserService interface {
	RequestLoginCode(ctx context.Context, email string) error
	VerifyLoginCode(ctx context.Context, email, code string) (token string, user *User, err error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// AuthService defines password-based signup and login.
type AuthService interface {
	SignUp(ctx context.Context, email, password, displayName string) (*User, error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
}
