package services

import (
	"context"
	"fmt"
	"time"

	"conferencehub/internal/domain"
)

type conferenceService struct {
	repo       domain.ConferenceRepository
	ttl        time.Duration
	maxMembers int
	now        func() time.Time
}

// NewConferenceService creates a ConferenceService backed by the given
// repository. ttl is the inactivity window after which a conference stops
// being active (0 disables the policy); maxMembers caps join eligibility.
func NewConferenceService(repo domain.ConferenceRepository, ttl time.Duration, maxMembers int) domain.ConferenceService {
	return &conferenceService{
		repo:       repo,
		ttl:        ttl,
		maxMembers: maxMembers,
		now:        time.Now,
	}
}

func (s *conferenceService) Get(ctx context.Context, id string) (*domain.Conference, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get conference: %w", err)
	}
	return c, nil
}

func (s *conferenceService) GetWithMembers(ctx context.Context, id string) (*domain.Conference, error) {
	c, err := s.repo.GetByIDWithMembers(ctx, id)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get conference with members: %w", err)
	}
	return c, nil
}

// IsActive evaluates the activity policy: a conference is active while it is
// not archived and its last activity is within the configured window.
func (s *conferenceService) IsActive(ctx context.Context, c *domain.Conference) (bool, error) {
	if c == nil || c.Archived() {
		return false, nil
	}
	if s.ttl > 0 && s.now().Sub(c.UpdatedAt) > s.ttl {
		return false, nil
	}
	return true, nil
}

func (s *conferenceService) Archive(ctx context.Context, c *domain.Conference) error {
	if err := s.repo.Archive(ctx, c.ID); err != nil {
		return fmt.Errorf("archive conference: %w", err)
	}
	return nil
}

func (s *conferenceService) Create(ctx context.Context, c *domain.Conference) (*domain.Conference, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("%w: conference id is required", domain.ErrInvalidInput)
	}
	now := s.now()
	c.CreatedAt = now
	c.UpdatedAt = now
	// Seed the creator as sole member unless the caller provided a roster.
	if len(c.Members) == 0 && c.CreatedBy != "" {
		c.Members = []*domain.Member{
			domain.NewMember(c.ID, c.CreatedBy, "", domain.RoleCreator, now, now),
		}
	}
	for _, m := range c.Members {
		m.CreatedAt = now
		m.UpdatedAt = now
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create conference: %w", err)
	}
	return c, nil
}

func (s *conferenceService) AddMember(ctx context.Context, c *domain.Conference, m *domain.Member) error {
	if m.Role == "" {
		m.Role = domain.RoleMember
	}
	now := s.now()
	m.ConferenceID = c.ID
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := s.repo.AddMember(ctx, m); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *conferenceService) GetMember(ctx context.Context, c *domain.Conference, u *domain.User) (*domain.Member, error) {
	m, err := s.repo.GetMember(ctx, c.ID, u.ID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *conferenceService) ListMembers(ctx context.Context, c *domain.Conference, p domain.PaginationParams) ([]*domain.Member, int, error) {
	members, total, err := s.repo.ListMembers(ctx, c.ID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	return members, total, nil
}

func (s *conferenceService) UpdateMemberField(ctx context.Context, c *domain.Conference, memberID, field, value string) (*domain.Member, error) {
	m, err := s.repo.UpdateMemberField(ctx, c.ID, memberID, field, value)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *conferenceService) UserIsCreator(ctx context.Context, c *domain.Conference, u *domain.User) (bool, error) {
	if c.CreatedBy == u.ID {
		return true, nil
	}
	return s.repo.HasMemberWithRole(ctx, c.ID, u.ID, domain.RoleCreator)
}

func (s *conferenceService) UserIsMember(ctx context.Context, c *domain.Conference, u *domain.User) (bool, error) {
	return s.repo.HasMemberWithRole(ctx, c.ID, u.ID,
		domain.RoleCreator, domain.RoleAttendee, domain.RoleMember)
}

func (s *conferenceService) UserIsAttendee(ctx context.Context, c *domain.Conference, u *domain.User) (bool, error) {
	return s.repo.HasMemberWithRole(ctx, c.ID, u.ID, domain.RoleAttendee)
}

// UserCanJoin allows existing members to (re)join and otherwise admits new
// users while the conference has room.
func (s *conferenceService) UserCanJoin(ctx context.Context, c *domain.Conference, u *domain.User) (bool, error) {
	isMember, err := s.UserIsMember(ctx, c, u)
	if err != nil {
		return false, err
	}
	if isMember {
		return true, nil
	}
	count, err := s.repo.CountMembers(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("count members: %w", err)
	}
	return count < s.maxMembers, nil
}
