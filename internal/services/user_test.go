package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"testing"
	"time"

	"conferencehub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo implements domain.UserRepository for tests.
type fakeUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	creds   map[string]*domain.Credentials

	createdRoles map[string]string
	createErr    error

	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:         make(map[string]*domain.User),
		byEmail:      make(map[string]*domain.User),
		creds:        make(map[string]*domain.Credentials),
		createdRoles: make(map[string]string),
	}
}

func (f *fakeUserRepo) add(u *domain.User) {
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	u.ID = "user-" + strconv.Itoa(f.nextID)
	f.add(u)
	return nil
}

func (f *fakeUserRepo) CreateWithCredentials(_ context.Context, u *domain.User, creds *domain.Credentials) error {
	if _, exists := f.byEmail[u.Email]; exists {
		return domain.ErrDuplicateEmail
	}
	if err := f.Create(context.Background(), u); err != nil {
		return err
	}
	f.creds[u.Email] = creds
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetCredentialsByEmail(_ context.Context, email string) (*domain.User, *domain.Credentials, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, nil, domain.ErrUserNotFound
	}
	creds := f.creds[email]
	if creds == nil {
		creds = &domain.Credentials{}
	}
	return u, creds, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) AssignRole(_ context.Context, userID, roleID string) error {
	f.createdRoles[userID] = roleID
	return nil
}

// fakeRoleRepo implements domain.RoleRepository for tests.
type fakeRoleRepo struct {
	byCode    map[string]*domain.Role
	listByUID map[string][]*domain.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{
		byCode: map[string]*domain.Role{
			"attendee": {ID: "role-attendee", Code: "attendee"},
		},
		listByUID: make(map[string][]*domain.Role),
	}
}

func (f *fakeRoleRepo) GetByCode(_ context.Context, code string) (*domain.Role, error) {
	if r, ok := f.byCode[code]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRoleRepo) ListByUserID(_ context.Context, userID string) ([]*domain.Role, error) {
	return f.listByUID[userID], nil
}

// fakeLoginCodeRepo implements domain.LoginCodeRepository for tests.
type fakeLoginCodeRepo struct {
	codes      map[string]string // email -> code hash
	createErr  error
	consumeErr error
}

func newFakeLoginCodeRepo() *fakeLoginCodeRepo {
	return &fakeLoginCodeRepo{codes: make(map[string]string)}
}

func (f *fakeLoginCodeRepo) Create(_ context.Context, email, codeHash string, _ time.Time) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.codes[email] = codeHash
	return nil
}

func (f *fakeLoginCodeRepo) Consume(_ context.Context, email, codeHash string) (bool, error) {
	if f.consumeErr != nil {
		return false, f.consumeErr
	}
	if f.codes[email] == codeHash {
		delete(f.codes, email)
		return true, nil
	}
	return false, nil
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	err error
}

func (f *fakeTokenIssuer) Issue(userID, _ string, _ []string, _ time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}

// fakeEmailService implements domain.EmailService for tests.
type fakeEmailService struct {
	loginCodes []*domain.LoginCodeEmailData
	welcomes   []*domain.WelcomeEmailData
	sendErr    error
}

func (f *fakeEmailService) SendWelcome(_ context.Context, data *domain.WelcomeEmailData) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.welcomes = append(f.welcomes, data)
	return nil
}

func (f *fakeEmailService) SendLoginCode(_ context.Context, data *domain.LoginCodeEmailData) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.loginCodes = append(f.loginCodes, data)
	return nil
}

func newTestUserService(users *fakeUserRepo, roles *fakeRoleRepo, codes *fakeLoginCodeRepo, emails *fakeEmailService) domain.UserService {
	return NewUserService(users, roles, codes, &fakeTokenIssuer{}, time.Hour, emails)
}

func TestUserService_RequestLoginCode(t *testing.T) {
	t.Run("stores a hashed code and emails it", func(t *testing.T) {
		codes := newFakeLoginCodeRepo()
		emails := &fakeEmailService{}
		svc := newTestUserService(newFakeUserRepo(), newFakeRoleRepo(), codes, emails)

		err := svc.RequestLoginCode(context.Background(), "U@Example.com")
		require.NoError(t, err)

		require.Len(t, emails.loginCodes, 1)
		sent := emails.loginCodes[0]
		assert.Equal(t, "u@example.com", sent.Email)
		assert.Regexp(t, `^\d{6}$`, sent.Code)
		assert.Equal(t, codes.codes["u@example.com"], hashLoginCode(sent.Code),
			"stored hash must match the emailed code")
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		svc := newTestUserService(newFakeUserRepo(), newFakeRoleRepo(), newFakeLoginCodeRepo(), &fakeEmailService{})
		err := svc.RequestLoginCode(context.Background(), "not-an-email")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		codes := newFakeLoginCodeRepo()
		codes.createErr = errors.New("db down")
		svc := newTestUserService(newFakeUserRepo(), newFakeRoleRepo(), codes, &fakeEmailService{})
		err := svc.RequestLoginCode(context.Background(), "u@example.com")
		require.Error(t, err)
	})
}

func TestUserService_VerifyLoginCode(t *testing.T) {
	const email = "u@example.com"
	const code = "123456"

	seedCode := func(codes *fakeLoginCodeRepo) {
		codes.codes[email] = hashLoginCode(code)
	}

	t.Run("existing user gets a token", func(t *testing.T) {
		users := newFakeUserRepo()
		users.add(&domain.User{ID: "user-1", Email: email})
		codes := newFakeLoginCodeRepo()
		seedCode(codes)
		svc := newTestUserService(users, newFakeRoleRepo(), codes, &fakeEmailService{})

		token, user, err := svc.VerifyLoginCode(context.Background(), email, code)
		require.NoError(t, err)
		assert.Equal(t, "token-user-1", token)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("first verification provisions the account", func(t *testing.T) {
		users := newFakeUserRepo()
		codes := newFakeLoginCodeRepo()
		seedCode(codes)
		emails := &fakeEmailService{}
		svc := newTestUserService(users, newFakeRoleRepo(), codes, emails)

		token, user, err := svc.VerifyLoginCode(context.Background(), email, code)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.NotEmpty(t, token)
		assert.Equal(t, email, user.Email)
		assert.Equal(t, "role-attendee", users.createdRoles[user.ID], "default role assigned")
		require.Len(t, emails.welcomes, 1)
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		codes := newFakeLoginCodeRepo()
		seedCode(codes)
		svc := newTestUserService(newFakeUserRepo(), newFakeRoleRepo(), codes, &fakeEmailService{})

		_, _, err := svc.VerifyLoginCode(context.Background(), email, "654321")
		require.ErrorIs(t, err, domain.ErrBadCredentials)
	})

	t.Run("code cannot be replayed", func(t *testing.T) {
		users := newFakeUserRepo()
		users.add(&domain.User{ID: "user-1", Email: email})
		codes := newFakeLoginCodeRepo()
		seedCode(codes)
		svc := newTestUserService(users, newFakeRoleRepo(), codes, &fakeEmailService{})

		_, _, err := svc.VerifyLoginCode(context.Background(), email, code)
		require.NoError(t, err)
		_, _, err = svc.VerifyLoginCode(context.Background(), email, code)
		require.ErrorIs(t, err, domain.ErrBadCredentials)
	})

	t.Run("malformed code is rejected without a lookup", func(t *testing.T) {
		codes := newFakeLoginCodeRepo()
		codes.consumeErr = errors.New("should not be called")
		svc := newTestUserService(newFakeUserRepo(), newFakeRoleRepo(), codes, &fakeEmailService{})

		_, _, err := svc.VerifyLoginCode(context.Background(), email, "abc")
		require.ErrorIs(t, err, domain.ErrBadCredentials)
	})
}

func TestAuthService_SignUpAndLogin(t *testing.T) {
	hasher := &fakePasswordHasher{}

	t.Run("signup then login round-trips", func(t *testing.T) {
		users := newFakeUserRepo()
		svc := NewAuthService(users, newFakeRoleRepo(), hasher, &fakeTokenIssuer{}, time.Hour)

		user, err := svc.SignUp(context.Background(), "U@Example.com", "longenough", "User")
		require.NoError(t, err)
		assert.Equal(t, "u@example.com", user.Email)
		assert.Equal(t, "role-attendee", users.createdRoles[user.ID])

		token, got, err := svc.Login(context.Background(), "u@example.com", "longenough")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		users := newFakeUserRepo()
		svc := NewAuthService(users, newFakeRoleRepo(), hasher, &fakeTokenIssuer{}, time.Hour)

		_, err := svc.SignUp(context.Background(), "u@example.com", "longenough", "User")
		require.NoError(t, err)
		_, err = svc.SignUp(context.Background(), "u@example.com", "longenough", "Other")
		require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo(), newFakeRoleRepo(), hasher, &fakeTokenIssuer{}, time.Hour)
		_, err := svc.SignUp(context.Background(), "u@example.com", "short", "User")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		users := newFakeUserRepo()
		svc := NewAuthService(users, newFakeRoleRepo(), hasher, &fakeTokenIssuer{}, time.Hour)
		_, err := svc.SignUp(context.Background(), "u@example.com", "longenough", "User")
		require.NoError(t, err)

		_, _, err = svc.Login(context.Background(), "u@example.com", "wrongpass")
		require.ErrorIs(t, err, domain.ErrBadCredentials)
	})

	t.Run("unknown email maps to bad credentials", func(t *testing.T) {
		svc := NewAuthService(newFakeUserRepo(), newFakeRoleRepo(), hasher, &fakeTokenIssuer{}, time.Hour)
		_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
		require.ErrorIs(t, err, domain.ErrBadCredentials)
	})

	t.Run("passwordless account cannot password-login", func(t *testing.T) {
		users := newFakeUserRepo()
		users.add(&domain.User{ID: "user-1", Email: "u@example.com"})
		svc := NewAuthService(users, newFakeRoleRepo(), hasher, &fakeTokenIssuer{}, time.Hour)

		_, _, err := svc.Login(context.Background(), "u@example.com", "anything")
		require.ErrorIs(t, err, domain.ErrBadCredentials)
	})
}

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct{}

func (f *fakePasswordHasher) GenerateSalt() (string, error) { return "salt", nil }

func (f *fakePasswordHasher) Hash(salt, password string) (string, error) {
	return "hash-" + salt + "-" + password, nil
}

func (f *fakePasswordHasher) Compare(hash, salt, password string) error {
	if hash != "hash-"+salt+"-"+password {
		return errors.New("mismatch")
	}
	return nil
}
