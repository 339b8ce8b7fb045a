package account

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"memorymount/entity"
	"memorymount/lib/sl"
)

const minPasswordLength = 6

// Database is the user-collection surface of the record store.
// Every lookup excludes soft-deleted accounts except UserById, which
// the delete/restore flow itself relies on.
type Database interface {
	CreateUser(user *entity.User) error
	UserByEmail(email string) (*entity.User, error)
	UserById(id string) (*entity.User, error)
	AllUsers() ([]*entity.User, error)
	UpdateUser(user *entity.User) error
	SetUserPassword(id, hash string) error
	SetUserDeleted(id string, deleted bool) error
}

// Tokens issues the bearer credential handed out on login.
type Tokens interface {
	Issue(userId, email string) (string, error)
}

// Account manages user records: signup, login, profile and password
// edits, and the admin soft-delete cycle.
type Account struct {
	db     Database
	tokens Tokens
	cost   int
	log    *slog.Logger
}

func New(db Database, tokens Tokens, bcryptCost int, log *slog.Logger) *Account {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Account{
		db:     db,
		tokens: tokens,
		cost:   bcryptCost,
		log:    log.With(sl.Module("account")),
	}
}

// Create registers a new account. The read check gives a friendly
// error for the common case; the store's unique index on email is the
// authority, and closes the window between two concurrent signups. A
// soft-deleted account keeps its address, so a restore can never
// collide with a re-registered email.
func (a *Account) Create(req *entity.SignupRequest, role entity.UserRole) (*entity.User, error) {
	if len(req.Password) < minPasswordLength {
		return nil, entity.ErrPasswordTooShort
	}
	email := entity.NormalizeEmail(req.Email)

	_, err := a.db.UserByEmail(email)
	if err == nil {
		return nil, entity.ErrDuplicateEmail
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if role == "" {
		role = entity.RoleUser
	}
	user := &entity.User{
		Id:        uuid.New().String(),
		Email:     email,
		Password:  string(hash),
		Name:      req.Name,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err = a.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	a.log.Info("user created", sl.User(email), slog.String("role", string(role)))
	return user, nil
}

// Authenticate checks credentials and returns a signed token plus the
// user record. A missing account and a wrong password are reported
// identically.
func (a *Account) Authenticate(email, password string) (string, *entity.User, error) {
	user, err := a.db.UserByEmail(entity.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return "", nil, entity.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, entity.ErrInvalidCredentials
	}

	signed, err := a.tokens.Issue(user.Id, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	a.log.Info("user authenticated", sl.User(user.Email))
	return signed, user, nil
}

// ChangePassword rotates a password after re-checking the current
// one. The length rule applies to the new password only.
func (a *Account) ChangePassword(userId, current, next string) error {
	user, err := a.db.UserById(userId)
	if err != nil {
		return err
	}
	if user.IsDeleted() {
		return entity.ErrNotFound
	}
	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return entity.ErrWrongCurrentPassword
	}
	if len(next) < minPasswordLength {
		return entity.ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), a.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err = a.db.SetUserPassword(userId, string(hash)); err != nil {
		return err
	}
	a.log.Info("password changed", sl.User(user.Email))
	return nil
}

// ById returns a live account; soft-deleted records read as absent.
func (a *Account) ById(userId string) (*entity.User, error) {
	user, err := a.db.UserById(userId)
	if err != nil {
		return nil, err
	}
	if user.IsDeleted() {
		return nil, entity.ErrNotFound
	}
	return user, nil
}

// All lists every non-deleted account.
func (a *Account) All() ([]*entity.User, error) {
	return a.db.AllUsers()
}

// Update applies an admin profile edit. Empty request fields leave
// the stored values untouched.
func (a *Account) Update(userId string, req *entity.UserUpdateRequest) (*entity.User, error) {
	user, err := a.ById(userId)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Role != "" {
		user.Role = req.Role
	}
	if req.IsVerified != nil {
		user.IsVerified = *req.IsVerified
	}
	if err = a.db.UpdateUser(user); err != nil {
		return nil, err
	}
	return user, nil
}

// SoftDelete marks an account deleted; the record stays in the store.
func (a *Account) SoftDelete(userId string) error {
	if err := a.db.SetUserDeleted(userId, true); err != nil {
		return err
	}
	a.log.Info("user soft-deleted", slog.String("user_id", userId))
	return nil
}

// Restore reverses a soft delete.
func (a *Account) Restore(userId string) error {
	if err := a.db.SetUserDeleted(userId, false); err != nil {
		return err
	}
	a.log.Info("user restored", slog.String("user_id", userId))
	return nil
}
