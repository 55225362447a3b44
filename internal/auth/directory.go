package auth

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

const (
	minPasswordLength = 6
	// bcrypt ignores or rejects input past this many bytes
	maxPasswordBytes = 72
)

var (
	ErrStoreRequired  = errors.New("auth: user store required")
	ErrIssuerRequired = errors.New("auth: token issuer not configured")
)

// UserStore is the persistence the directory needs. Find methods return
// (nil, nil) when no user matches.
type UserStore interface {
	InsertUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// Issuer is satisfied by TokenService.
type Issuer interface {
	Issue(userID int64, username, email string) (string, time.Time, error)
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Directory registers accounts and checks login secrets.
type Directory struct {
	users  UserStore
	hasher Hasher
	tokens Issuer
	now    func() time.Time
}

type DirectoryOption func(*Directory)

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *Directory) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDirectory(users UserStore, hasher Hasher, tokens Issuer, opts ...DirectoryOption) (*Directory, error) {
	if users == nil {
		return nil, ErrStoreRequired
	}
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	d := &Directory{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Register creates a new account. Username and email uniqueness are both
// checked before the password policy so the conflict reason is exact.
func (d *Directory) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)

	switch {
	case username == "":
		return nil, failure.Invalid("username is required")
	case email == "":
		return nil, failure.Invalid("email is required")
	case strings.TrimSpace(password) == "":
		return nil, failure.Invalid("password is required")
	}

	usernameTaken, err := d.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, failure.Storage("check username", err)
	}
	emailTaken, err := d.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, failure.Storage("check email", err)
	}

	switch {
	case usernameTaken && emailTaken:
		return nil, failure.New(failure.DuplicateIdentity, "username and email already exist")
	case emailTaken:
		return nil, failure.New(failure.DuplicateIdentity, "email already exists")
	case usernameTaken:
		return nil, failure.New(failure.DuplicateIdentity, "username already exists")
	}

	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, failure.New(failure.WeakCredential, "password must be at least 6 characters long")
	}
	if len(password) > maxPasswordBytes {
		return nil, failure.New(failure.WeakCredential, "password must be at most 72 bytes")
	}

	hash, err := d.hasher.Hash(password)
	if err != nil {
		return nil, failure.Wrap(failure.Persistence, "hash password", err)
	}

	user, err := d.users.InsertUser(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    d.now().UTC(),
	})
	if err != nil {
		return nil, failure.Storage("insert user", err)
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}

// Authenticate returns the user when password matches the stored hash. An
// unknown email and a wrong password both yield (nil, nil).
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil
	}

	user, err := d.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, failure.Storage("find user by email", err)
	}
	if user == nil {
		return nil, nil
	}

	if !d.hasher.Verify(password, user.PasswordHash) {
		return nil, nil
	}

	sanitized := user.Sanitize()
	return &sanitized, nil
}

// Login authenticates and issues a bearer token.
func (d *Directory) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if d.tokens == nil {
		return nil, failure.Wrap(failure.Persistence, "issue token", ErrIssuerRequired)
	}

	user, err := d.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, failure.New(failure.Unauthorized, "invalid email or password")
	}

	token, expiresAt, err := d.tokens.Issue(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, failure.Wrap(failure.Persistence, "issue token", err)
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}

// Lookup finds a user by username, used by tooling that prints account state.
func (d *Directory) Lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := d.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, failure.Storage("find user by username", err)
	}
	if user == nil {
		return nil, nil
	}
	sanitized := user.Sanitize()
	return &sanitized, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
