package domain

import (
	"context"
	"time"
)

// Member roles within a conference. The creator is the user the conference
// was seeded with; attendees joined through the join flow; plain members were
// added by someone else and have not joined yet.
const (
	RoleCreator  = "creator"
	RoleAttendee = "attendee"
	RoleMember   = "member"
)

// MemberFieldDisplayName is the only member field updatable through the API.
const MemberFieldDisplayName = "displayname"

// Conference is a shared meeting room. The ID is an opaque, caller-chosen
// string (the room name); a conference is created the first time someone
// claims that name.
type Conference struct {
	ID         string     `json:"id"`
	CreatedBy  string     `json:"created_by"`
	Members    []*Member  `json:"members,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

// NewConference returns a Conference seeded with the given id and creator.
func NewConference(id, createdBy string, createdAt, updatedAt time.Time) *Conference {
	return &Conference{
		ID:        id,
		CreatedBy: createdBy,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// Archived reports whether the conference has been archived.
func (c *Conference) Archived() bool {
	return c.ArchivedAt != nil
}

// Member is a user's persisted association with one conference. It carries
// its own identifier, distinct from the user's.
type Member struct {
	ID           string    `json:"id"`
	ConferenceID string    `json:"conference_id"`
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewMember returns a new Member. ID is set by the repository on insert.
func NewMember(conferenceID, userID, displayName, role string, createdAt, updatedAt time.Time) *Member {
	return &Member{
		ConferenceID: conferenceID,
		UserID:       userID,
		DisplayName:  displayName,
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// ConferenceRepository defines storage operations for conferences and their
// members. Lookups never return archived conferences; Archive and AddMember
// are idempotent so concurrent requests need no coordination here.
type ConferenceRepository interface {
	Create(ctx context.Context, conference *Conference) error
	GetByID(ctx context.Context, id string) (*Conference, error)
	GetByIDWithMembers(ctx context.Context, id string) (*Conference, error)
	Archive(ctx context.Context, id string) error
	AddMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, conferenceID, userID string) (*Member, error)
	ListMembers(ctx context.Context, conferenceID string, p PaginationParams) ([]*Member, int, error)
	UpdateMemberField(ctx context.Context, conferenceID, memberID, field, value string) (*Member, error)
	CountMembers(ctx context.Context, conferenceID string) (int, error)
	HasMemberWithRole(ctx context.Context, conferenceID, userID string, roles ...string) (bool, error)
}

// ConferenceService is the collaborator the admission pipeline talks to.
// Every call is a single-result-or-error operation; predicate methods answer
// a yes/no question about a (conference, user) pair and are never silently
// coerced — callers must handle the error before looking at the bool.
type ConferenceService interface {
	// Get returns the conference or ErrNotFound. Archived conferences are
	// reported as not found.
	Get(ctx context.Context, id string) (*Conference, error)
	// GetWithMembers is Get with the member list populated.
	GetWithMembers(ctx context.Context, id string) (*Conference, error)
	// IsActive evaluates the activity policy for the conference.
	IsActive(ctx context.Context, conference *Conference) (bool, error)
	// Archive transitions the conference to archived. Idempotent.
	Archive(ctx context.Context, conference *Conference) error
	// Create persists a new conference with the creator as sole member and
	// returns the stored form.
	Create(ctx context.Context, conference *Conference) (*Conference, error)
	// AddMember adds the member to the conference. Adding an existing
	// (conference, user) pair is a no-op.
	AddMember(ctx context.Context, conference *Conference, member *Member) error
	// GetMember returns the canonical member record for (conference, user).
	GetMember(ctx context.Context, conference *Conference, user *User) (*Member, error)
	ListMembers(ctx context.Context, conference *Conference, p PaginationParams) ([]*Member, int, error)
	UpdateMemberField(ctx context.Context, conference *Conference, memberID, field, value string) (*Member, error)

	UserIsCreator(ctx context.Context, conference *Conference, user *User) (bool, error)
	UserIsMember(ctx context.Context, conference *Conference, user *User) (bool, error)
	UserIsAttendee(ctx context.Context, conference *Conference, user *User) (bool, error)
	UserCanJoin(ctx context.Context, conference *Conference, user *User) (bool, error)
}
