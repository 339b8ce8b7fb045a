package core

import (
	"context"
	"io"
	"log/slog"

	"memorymount/entity"
	"memorymount/impl/account"
	"memorymount/impl/lifecycle"
	"memorymount/impl/uploads"
	"memorymount/internal/token"
	"memorymount/lib/sl"
)

// Core wires the service layer together and is the single handler
// dependency of the HTTP server. Each method body stays thin; the
// rules live in the owning service.
type Core struct {
	lifecycle *lifecycle.Lifecycle
	account   *account.Account
	uploads   *uploads.Uploads
	tokens    *token.Manager
	log       *slog.Logger
}

func New(lc *lifecycle.Lifecycle, acc *account.Account, up *uploads.Uploads, tokens *token.Manager, log *slog.Logger) *Core {
	return &Core{
		lifecycle: lc,
		account:   acc,
		uploads:   up,
		tokens:    tokens,
		log:       log.With(sl.Module("core")),
	}
}

// AuthenticateByToken resolves a bearer token to a live user record.
// Used by the authenticate middleware on every protected request.
func (c *Core) AuthenticateByToken(tokenString string) (*entity.User, error) {
	claims, err := c.tokens.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	return c.account.ById(claims.UserId)
}

func (c *Core) CreateUser(req *entity.SignupRequest) (*entity.User, error) {
	return c.account.Create(req, entity.RoleUser)
}

func (c *Core) Login(email, password string) (string, *entity.User, error) {
	return c.account.Authenticate(email, password)
}

func (c *Core) ChangeUserPassword(userId, current, next string) error {
	return c.account.ChangePassword(userId, current, next)
}

func (c *Core) Users() ([]*entity.User, error) {
	return c.account.All()
}

func (c *Core) UpdateUser(userId string, req *entity.UserUpdateRequest) (*entity.User, error) {
	return c.account.Update(userId, req)
}

func (c *Core) DeleteUser(userId string) error {
	return c.account.SoftDelete(userId)
}

func (c *Core) RestoreUser(userId string) error {
	return c.account.Restore(userId)
}

func (c *Core) GenerateCodes(count int, createdBy string) ([]*entity.MemoryCode, error) {
	return c.lifecycle.GenerateCodes(count, createdBy)
}

func (c *Core) UnassignedCode() (*entity.MemoryCode, error) {
	return c.lifecycle.UnassignedCode()
}

func (c *Core) AssignToProduct(id string) (*entity.MemoryCode, error) {
	return c.lifecycle.AssignToProduct(id)
}

func (c *Core) ValidateCode(code string) (*entity.MemoryCode, error) {
	return c.lifecycle.ValidateCode(code)
}

func (c *Core) ClaimCode(memoryId, code, userId string) (*entity.MemoryCode, error) {
	return c.lifecycle.Claim(memoryId, code, userId)
}

func (c *Core) VerifyOwnership(id string) (*entity.Ownership, error) {
	return c.lifecycle.VerifyOwnership(id)
}

func (c *Core) SetCodeName(id, userId, name string) error {
	return c.lifecycle.SetName(id, userId, name)
}

func (c *Core) CodeStats() (*entity.CodeStats, error) {
	return c.lifecycle.Stats()
}

// requireOwner allows the claiming owner and admins through.
func (c *Core) requireOwner(memoryId string, user *entity.User) error {
	if user.IsAdmin() {
		return nil
	}
	own, err := c.lifecycle.VerifyOwnership(memoryId)
	if err != nil {
		return err
	}
	if !own.Verified || own.UserId != user.Id {
		return entity.ErrUnauthorized
	}
	return nil
}

// StoreFile uploads one media file into a trophy folder after an
// ownership check.
func (c *Core) StoreFile(ctx context.Context, user *entity.User, memoryId, fileName string, body io.Reader, size int64) (*entity.StoredFile, error) {
	if err := c.requireOwner(memoryId, user); err != nil {
		return nil, err
	}
	return c.uploads.Store(ctx, memoryId, fileName, body, size)
}

// ListFiles is public: a trophy page is viewable by anyone holding
// its folder id.
func (c *Core) ListFiles(ctx context.Context, memoryId string) ([]entity.StoredFile, error) {
	return c.uploads.List(ctx, memoryId)
}

func (c *Core) DeleteFile(ctx context.Context, user *entity.User, memoryId, key string) error {
	if err := c.requireOwner(memoryId, user); err != nil {
		return err
	}
	return c.uploads.Delete(ctx, memoryId, key)
}
