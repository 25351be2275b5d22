package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"conferencehub/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var repoNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestConferenceRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		conference *domain.Conference
		mock       func(mock sqlmock.Sqlmock)
		wantErr    bool
	}{
		{
			name: "success with creator member",
			conference: &domain.Conference{
				ID:        "room42",
				CreatedBy: "user-1",
				CreatedAt: repoNow,
				UpdatedAt: repoNow,
				Members: []*domain.Member{
					{UserID: "user-1", DisplayName: "Alice", Role: domain.RoleCreator, CreatedAt: repoNow, UpdatedAt: repoNow},
				},
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO conferences \(id, created_by, created_at, updated_at\)`).
					WithArgs("room42", "user-1", repoNow, repoNow).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO conference_members`).
					WithArgs("room42", "user-1", "Alice", domain.RoleCreator, repoNow, repoNow).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("member-1"))
				mock.ExpectCommit()
			},
		},
		{
			name: "conference insert fails and rolls back",
			conference: &domain.Conference{
				ID:        "room42",
				CreatedBy: "user-1",
				CreatedAt: repoNow,
				UpdatedAt: repoNow,
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO conferences`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "member insert fails and rolls back",
			conference: &domain.Conference{
				ID:        "room42",
				CreatedBy: "user-1",
				CreatedAt: repoNow,
				UpdatedAt: repoNow,
				Members: []*domain.Member{
					{UserID: "user-1", Role: domain.RoleCreator, CreatedAt: repoNow, UpdatedAt: repoNow},
				},
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO conferences`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO conference_members`).
					WillReturnError(sql.ErrConnDone)
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewConferenceRepository(db)
			err = repo.Create(ctx, tt.conference)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "member-1", tt.conference.Members[0].ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConferenceRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the conference", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, created_by, created_at, updated_at\s+FROM conferences\s+WHERE id = \$1 AND archived_at IS NULL`).
			WithArgs("room42").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "created_at", "updated_at"}).
				AddRow("room42", "user-1", repoNow, repoNow))

		repo := NewConferenceRepository(db)
		c, err := repo.GetByID(ctx, "room42")
		require.NoError(t, err)
		require.Equal(t, "room42", c.ID)
		require.Equal(t, "user-1", c.CreatedBy)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("archived or missing maps to ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, created_by, created_at, updated_at`).
			WithArgs("room42").
			WillReturnError(sql.ErrNoRows)

		repo := NewConferenceRepository(db)
		_, err = repo.GetByID(ctx, "room42")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("db error passes through", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, created_by, created_at, updated_at`).
			WillReturnError(sql.ErrConnDone)

		repo := NewConferenceRepository(db)
		_, err = repo.GetByID(ctx, "room42")
		require.Error(t, err)
		require.False(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestConferenceRepository_GetByIDWithMembers(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, created_by, created_at, updated_at`).
		WithArgs("room42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "created_at", "updated_at"}).
			AddRow("room42", "user-1", repoNow, repoNow))
	mock.ExpectQuery(`SELECT id, conference_id, user_id, display_name, role, created_at, updated_at\s+FROM conference_members`).
		WithArgs("room42").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conference_id", "user_id", "display_name", "role", "created_at", "updated_at"}).
			AddRow("member-1", "room42", "user-1", "Alice", domain.RoleCreator, repoNow, repoNow).
			AddRow("member-2", "room42", "user-2", "Bob", domain.RoleAttendee, repoNow, repoNow))

	repo := NewConferenceRepository(db)
	c, err := repo.GetByIDWithMembers(ctx, "room42")
	require.NoError(t, err)
	require.Len(t, c.Members, 2)
	require.Equal(t, "member-2", c.Members[1].ID)
	require.Equal(t, domain.RoleAttendee, c.Members[1].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConferenceRepository_Archive(t *testing.T) {
	ctx := context.Background()

	t.Run("archives an active conference", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE conferences\s+SET archived_at = NOW\(\), updated_at = NOW\(\)\s+WHERE id = \$1 AND archived_at IS NULL`).
			WithArgs("room42").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewConferenceRepository(db)
		require.NoError(t, repo.Archive(ctx, "room42"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already archived is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE conferences`).
			WithArgs("room42").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewConferenceRepository(db)
		require.NoError(t, repo.Archive(ctx, "room42"))
	})
}

func TestConferenceRepository_AddMember(t *testing.T) {
	ctx := context.Background()

	member := &domain.Member{
		ConferenceID: "room42",
		UserID:       "user-2",
		DisplayName:  "Bob",
		Role:         domain.RoleAttendee,
		CreatedAt:    repoNow,
		UpdatedAt:    repoNow,
	}

	t.Run("inserts and touches the conference", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO conference_members .+ ON CONFLICT \(conference_id, user_id\) DO NOTHING`).
			WithArgs("room42", "user-2", "Bob", domain.RoleAttendee, repoNow, repoNow).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE conferences SET updated_at = NOW\(\)`).
			WithArgs("room42").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewConferenceRepository(db)
		require.NoError(t, repo.AddMember(ctx, member))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert error passes through", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`INSERT INTO conference_members`).
			WillReturnError(sql.ErrConnDone)

		repo := NewConferenceRepository(db)
		require.Error(t, repo.AddMember(ctx, member))
	})
}

func TestConferenceRepository_GetMember(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the member", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, conference_id, user_id, display_name, role, created_at, updated_at`).
			WithArgs("room42", "user-2").
			WillReturnRows(sqlmock.NewRows([]string{"id", "conference_id", "user_id", "display_name", "role", "created_at", "updated_at"}).
				AddRow("member-2", "room42", "user-2", "Bob", domain.RoleAttendee, repoNow, repoNow))

		repo := NewConferenceRepository(db)
		m, err := repo.GetMember(ctx, "room42", "user-2")
		require.NoError(t, err)
		require.Equal(t, "member-2", m.ID)
		require.Equal(t, domain.RoleAttendee, m.Role)
	})

	t.Run("missing member maps to ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, conference_id, user_id`).
			WillReturnError(sql.ErrNoRows)

		repo := NewConferenceRepository(db)
		_, err = repo.GetMember(ctx, "room42", "nobody")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestConferenceRepository_ListMembers(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conference_members`).
		WithArgs("room42").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT id, conference_id, user_id, display_name, role, created_at, updated_at\s+FROM conference_members`).
		WithArgs("room42", 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conference_id", "user_id", "display_name", "role", "created_at", "updated_at"}).
			AddRow("member-1", "room42", "user-1", "Alice", domain.RoleCreator, repoNow, repoNow).
			AddRow("member-2", "room42", "user-2", "Bob", domain.RoleAttendee, repoNow, repoNow))

	repo := NewConferenceRepository(db)
	members, total, err := repo.ListMembers(ctx, "room42", domain.PaginationParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, members, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConferenceRepository_UpdateMemberField(t *testing.T) {
	ctx := context.Background()

	t.Run("updates a whitelisted field", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`UPDATE conference_members\s+SET display_name = \$1, updated_at = NOW\(\)`).
			WithArgs("New Name", "room42", "member-2").
			WillReturnRows(sqlmock.NewRows([]string{"id", "conference_id", "user_id", "display_name", "role", "created_at", "updated_at"}).
				AddRow("member-2", "room42", "user-2", "New Name", domain.RoleAttendee, repoNow, repoNow))
		mock.ExpectExec(`UPDATE conferences SET updated_at = NOW\(\)`).
			WithArgs("room42").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewConferenceRepository(db)
		m, err := repo.UpdateMemberField(ctx, "room42", "member-2", domain.MemberFieldDisplayName, "New Name")
		require.NoError(t, err)
		require.Equal(t, "New Name", m.DisplayName)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-whitelisted field is rejected without touching the db", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewConferenceRepository(db)
		_, err = repo.UpdateMemberField(ctx, "room42", "member-2", "role", "creator")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing member maps to ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`UPDATE conference_members`).
			WillReturnError(sql.ErrNoRows)

		repo := NewConferenceRepository(db)
		_, err = repo.UpdateMemberField(ctx, "room42", "ghost", domain.MemberFieldDisplayName, "x")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestConferenceRepository_CountMembers(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conference_members`).
		WithArgs("room42").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	repo := NewConferenceRepository(db)
	count, err := repo.CountMembers(ctx, "room42")
	require.NoError(t, err)
	require.Equal(t, 7, count)
}

func TestConferenceRepository_HasMemberWithRole(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		roles  []string
		exists bool
	}{
		{"creator match", []string{domain.RoleCreator}, true},
		{"no attendee record", []string{domain.RoleAttendee}, false},
		{"any membership role", []string{domain.RoleCreator, domain.RoleAttendee, domain.RoleMember}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(`SELECT EXISTS`).
				WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(tt.exists))

			repo := NewConferenceRepository(db)
			got, err := repo.HasMemberWithRole(ctx, "room42", "user-1", tt.roles...)
			require.NoError(t, err)
			require.Equal(t, tt.exists, got)
		})
	}
}
