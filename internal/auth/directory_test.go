package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/wuwenbin0122/expense-ledger/internal/auth"
	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	users  []models.User
	err    error
}

func (m *memoryUsers) InsertUser(_ context.Context, user *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	stored := *user
	stored.ID = m.nextID
	m.users = append(m.users, stored)
	return &stored, nil
}

func (m *memoryUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Email == email })
}

func (m *memoryUsers) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.Username == username })
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	u, err := m.FindUserByEmail(ctx, email)
	return u != nil, err
}

func (m *memoryUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	u, err := m.FindUserByUsername(ctx, username)
	return u != nil, err
}

type DirectoryTestSuite struct {
	suite.Suite
	users  *memoryUsers
	tokens *auth.TokenService
	dir    *auth.Directory
	now    time.Time
}

func (s *DirectoryTestSuite) SetupTest() {
	s.now = time.Date(2024, time.January, 5, 9, 30, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	s.users = &memoryUsers{}
	tokens, err := auth.NewTokenService("test-secret", time.Hour, auth.WithClock(clock))
	require.NoError(s.T(), err)
	s.tokens = tokens

	dir, err := auth.NewDirectory(s.users, auth.BcryptHasher{Cost: bcrypt.MinCost}, tokens, auth.WithDirectoryClock(clock))
	require.NoError(s.T(), err)
	s.dir = dir
}

func (s *DirectoryTestSuite) TestRegisterStoresHashedPassword() {
	user, err := s.dir.Register(context.Background(), " alice ", "A@X.com", "secret1")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), int64(1), user.ID)
	assert.Equal(s.T(), "alice", user.Username)
	assert.Equal(s.T(), "a@x.com", user.Email)
	assert.Empty(s.T(), user.PasswordHash, "hash must not leave the directory")
	assert.Equal(s.T(), s.now, user.CreatedAt)

	stored := s.users.users[0]
	assert.NotEqual(s.T(), "secret1", stored.PasswordHash)
	assert.NoError(s.T(), bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
}

func (s *DirectoryTestSuite) TestRegisterDuplicateEmail() {
	_, err := s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(s.T(), err)

	_, err = s.dir.Register(context.Background(), "alice2", "a@x.com", "secret1")
	require.ErrorIs(s.T(), err, failure.ErrDuplicateIdentity)
	assert.Equal(s.T(), "email already exists", failure.ReasonOf(err))
}

func (s *DirectoryTestSuite) TestRegisterDuplicateUsername() {
	_, err := s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(s.T(), err)

	_, err = s.dir.Register(context.Background(), "alice", "other@x.com", "secret1")
	require.ErrorIs(s.T(), err, failure.ErrDuplicateIdentity)
	assert.Equal(s.T(), "username already exists", failure.ReasonOf(err))

	_, err = s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	require.ErrorIs(s.T(), err, failure.ErrDuplicateIdentity)
	assert.Equal(s.T(), "username and email already exist", failure.ReasonOf(err))
}

func (s *DirectoryTestSuite) TestRegisterPasswordPolicy() {
	_, err := s.dir.Register(context.Background(), "bob", "b@x.com", "12345")
	assert.ErrorIs(s.T(), err, failure.ErrWeakCredential)

	_, err = s.dir.Register(context.Background(), "bob", "b@x.com", "123456")
	assert.NoError(s.T(), err)

	// six runes but more than six bytes
	_, err = s.dir.Register(context.Background(), "carol", "c@x.com", "éééééé")
	assert.NoError(s.T(), err)

	_, err = s.dir.Register(context.Background(), "dave", "d@x.com", "ééééé")
	assert.ErrorIs(s.T(), err, failure.ErrWeakCredential)
}

func (s *DirectoryTestSuite) TestRegisterRejectsOverlongPassword() {
	_, err := s.dir.Register(context.Background(), "alice", "a@x.com", strings.Repeat("p", 80))
	require.ErrorIs(s.T(), err, failure.ErrWeakCredential)
	assert.Equal(s.T(), "password must be at most 72 bytes", failure.ReasonOf(err))
	assert.Empty(s.T(), s.users.users)

	// 72 bytes is the largest input bcrypt accepts
	_, err = s.dir.Register(context.Background(), "alice", "a@x.com", strings.Repeat("p", 72))
	require.NoError(s.T(), err)

	// 25 three-byte runes: short by count, too long in bytes
	_, err = s.dir.Register(context.Background(), "bob", "b@x.com", strings.Repeat("€", 25))
	assert.ErrorIs(s.T(), err, failure.ErrWeakCredential)
}

func (s *DirectoryTestSuite) TestRegisterRequiresFields() {
	cases := map[string][3]string{
		"username is required": {"", "a@x.com", "secret1"},
		"email is required":    {"alice", "  ", "secret1"},
		"password is required": {"alice", "a@x.com", ""},
	}
	for reason, in := range cases {
		_, err := s.dir.Register(context.Background(), in[0], in[1], in[2])
		require.ErrorIs(s.T(), err, failure.ErrValidation)
		assert.Equal(s.T(), reason, failure.ReasonOf(err))
	}
}

func (s *DirectoryTestSuite) TestAuthenticate() {
	_, err := s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(s.T(), err)

	user, err := s.dir.Authenticate(context.Background(), "a@x.com", "secret1")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), user)
	assert.Equal(s.T(), "alice", user.Username)
	assert.Empty(s.T(), user.PasswordHash)

	user, err = s.dir.Authenticate(context.Background(), "a@x.com", "wrong-password")
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), user)

	user, err = s.dir.Authenticate(context.Background(), "nobody@x.com", "secret1")
	assert.NoError(s.T(), err)
	assert.Nil(s.T(), user)
}

func (s *DirectoryTestSuite) TestLoginIssuesToken() {
	registered, err := s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(s.T(), err)

	result, err := s.dir.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), result.Token)
	assert.Equal(s.T(), s.now.Add(time.Hour), result.ExpiresAt)

	claims, err := s.tokens.Verify(result.Token)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), registered.ID, claims.UserID)

	_, wrongPassword := s.dir.Login(context.Background(), "a@x.com", "nope!!")
	_, unknownEmail := s.dir.Login(context.Background(), "x@x.com", "secret1")
	require.ErrorIs(s.T(), wrongPassword, failure.ErrUnauthorized)
	require.ErrorIs(s.T(), unknownEmail, failure.ErrUnauthorized)
	assert.Equal(s.T(), wrongPassword.Error(), unknownEmail.Error())
}

func (s *DirectoryTestSuite) TestStoreFailureIsPersistence() {
	s.users.err = errors.New("connection reset")

	_, err := s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	assert.ErrorIs(s.T(), err, failure.ErrPersistence)

	_, err = s.dir.Authenticate(context.Background(), "a@x.com", "secret1")
	assert.ErrorIs(s.T(), err, failure.ErrPersistence)
	assert.True(s.T(), strings.Contains(err.Error(), "connection reset"))
}

type failingIssuer struct{}

func (failingIssuer) Issue(int64, string, string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signer unavailable")
}

func (s *DirectoryTestSuite) TestLoginIssuerFailuresAreTyped() {
	_, err := s.dir.Register(context.Background(), "alice", "a@x.com", "secret1")
	require.NoError(s.T(), err)

	broken, err := auth.NewDirectory(s.users, auth.BcryptHasher{Cost: bcrypt.MinCost}, failingIssuer{})
	require.NoError(s.T(), err)
	_, err = broken.Login(context.Background(), "a@x.com", "secret1")
	require.ErrorIs(s.T(), err, failure.ErrPersistence)
	assert.Contains(s.T(), err.Error(), "signer unavailable")

	noIssuer, err := auth.NewDirectory(s.users, auth.BcryptHasher{Cost: bcrypt.MinCost}, nil)
	require.NoError(s.T(), err)
	_, err = noIssuer.Login(context.Background(), "a@x.com", "secret1")
	require.ErrorIs(s.T(), err, failure.ErrPersistence)
	assert.ErrorIs(s.T(), err, auth.ErrIssuerRequired)
}

func TestDirectorySuite(t *testing.T) {
	suite.Run(t, new(DirectoryTestSuite))
}

func TestNewDirectoryRequiresStore(t *testing.T) {
	_, err := auth.NewDirectory(nil, nil, nil)
	assert.ErrorIs(t, err, auth.ErrStoreRequired)
}
