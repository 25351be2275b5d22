package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"conferencehub/internal/domain"
)

// memberColumns maps API field names to conference_members columns. Only
// whitelisted fields can be rewritten through UpdateMemberField.
var memberColumns = map[string]string{
	domain.MemberFieldDisplayName: "display_name",
}

type conferenceRepository struct {
	DB *sql.DB
}

// NewConferenceRepository returns a domain.ConferenceRepository implemented with Postgres.
func NewConferenceRepository(db *sql.DB) domain.ConferenceRepository {
	return &conferenceRepository{DB: db}
}

func (r *conferenceRepository) Create(ctx context.Context, c *domain.Conference) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insertConference := `
		INSERT INTO conferences (id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, insertConference, c.ID, c.CreatedBy, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert conference: %w", err)
	}

	insertMember := `
		INSERT INTO conference_members (conference_id, user_id, display_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	for _, m := range c.Members {
		if err := tx.QueryRowContext(ctx, insertMember,
			c.ID, m.UserID, m.DisplayName, m.Role, m.CreatedAt, m.UpdatedAt,
		).Scan(&m.ID); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
		m.ConferenceID = c.ID
	}

	return tx.Commit()
}

func (r *conferenceRepository) GetByID(ctx context.Context, id string) (*domain.Conference, error) {
	query := `
		SELECT id, created_by, created_at, updated_at
		FROM conferences
		WHERE id = $1 AND archived_at IS NULL
	`
	c := &domain.Conference{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *conferenceRepository) GetByIDWithMembers(ctx context.Context, id string) (*domain.Conference, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT id, conference_id, user_id, display_name, role, created_at, updated_at
		FROM conference_members
		WHERE conference_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.Member, 0)
	for rows.Next() {
		m := &domain.Member{}
		if err := rows.Scan(&m.ID, &m.ConferenceID, &m.UserID, &m.DisplayName, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	c.Members = members
	return c, nil
}

// Archive marks the conference archived. Archiving an already-archived or
// missing conference is a no-op so concurrent readers can race safely.
func (r *conferenceRepository) Archive(ctx context.Context, id string) error {
	query := `
		UPDATE conferences
		SET archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND archived_at IS NULL
	`
	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

// AddMember inserts the member and bumps the conference activity timestamp.
// Inserting an existing (conference, user) pair is a no-op.
func (r *conferenceRepository) AddMember(ctx context.Context, m *domain.Member) error {
	insert := `
		INSERT INTO conference_members (conference_id, user_id, display_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (conference_id, user_id) DO NOTHING
	`
	if _, err := r.DB.ExecContext(ctx, insert,
		m.ConferenceID, m.UserID, m.DisplayName, m.Role, m.CreatedAt, m.UpdatedAt,
	); err != nil {
		return err
	}
	touch := `UPDATE conferences SET updated_at = NOW() WHERE id = $1 AND archived_at IS NULL`
	_, err := r.DB.ExecContext(ctx, touch, m.ConferenceID)
	return err
}

func (r *conferenceRepository) GetMember(ctx context.Context, conferenceID, userID string) (*domain.Member, error) {
	query := `
		SELECT id, conference_id, user_id, display_name, role, created_at, updated_at
		FROM conference_members
		WHERE conference_id = $1 AND user_id = $2
	`
	m := &domain.Member{}
	err := r.DB.QueryRowContext(ctx, query, conferenceID, userID).
		Scan(&m.ID, &m.ConferenceID, &m.UserID, &m.DisplayName, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *conferenceRepository) ListMembers(ctx context.Context, conferenceID string, p domain.PaginationParams) ([]*domain.Member, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM conference_members WHERE conference_id = $1`
	if err := r.DB.QueryRowContext(ctx, countQuery, conferenceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, conference_id, user_id, display_name, role, created_at, updated_at
		FROM conference_members
		WHERE conference_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.QueryContext(ctx, query, conferenceID, p.PageSize, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	members := make([]*domain.Member, 0)
	for rows.Next() {
		m := &domain.Member{}
		if err := rows.Scan(&m.ID, &m.ConferenceID, &m.UserID, &m.DisplayName, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, 0, err
		}
		members = append(members, m)
	}
	return members, total, rows.Err()
}

func (r *conferenceRepository) UpdateMemberField(ctx context.Context, conferenceID, memberID, field, value string) (*domain.Member, error) {
	column, ok := memberColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not updatable", domain.ErrInvalidInput, field)
	}
	query := fmt.Sprintf(`
		UPDATE conference_members
		SET %s = $1, updated_at = NOW()
		WHERE conference_id = $2 AND id = $3
		RETURNING id, conference_id, user_id, display_name, role, created_at, updated_at
	`, column)
	m := &domain.Member{}
	err := r.DB.QueryRowContext(ctx, query, value, conferenceID, memberID).
		Scan(&m.ID, &m.ConferenceID, &m.UserID, &m.DisplayName, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	touch := `UPDATE conferences SET updated_at = NOW() WHERE id = $1 AND archived_at IS NULL`
	if _, err := r.DB.ExecContext(ctx, touch, conferenceID); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *conferenceRepository) CountMembers(ctx context.Context, conferenceID string) (int, error) {
	query := `SELECT COUNT(*) FROM conference_members WHERE conference_id = $1`
	var count int
	err := r.DB.QueryRowContext(ctx, query, conferenceID).Scan(&count)
	return count, err
}

func (r *conferenceRepository) HasMemberWithRole(ctx context.Context, conferenceID, userID string, roles ...string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM conference_members
			WHERE conference_id = $1 AND user_id = $2 AND role = ANY($3)
		)
	`
	var exists bool
	err := r.DB.QueryRowContext(ctx, query, conferenceID, userID, pq.Array(roles)).Scan(&exists)
	return exists, err
}
