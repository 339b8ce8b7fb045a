package lifecycle

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"memorymount/entity"
	"memorymount/lib/sl"
)

// Database is the record-store surface the lifecycle manager needs.
// AssignCode, ClaimCode and SetCodeName are atomic conditional
// updates: the store applies them only while the record is still in
// the expected state and reports whether the write landed.
type Database interface {
	CreateCode(code *entity.MemoryCode) error
	CodeById(id string) (*entity.MemoryCode, error)
	CodeByCode(code string) (*entity.MemoryCode, error)
	OldestUnassignedCode() (*entity.MemoryCode, error)
	AssignCode(id string, at time.Time) (bool, error)
	ClaimCode(id, userId string, at time.Time) (bool, error)
	SetCodeName(id, userId, name string) (bool, error)
	CodeOwnership(id string) (*entity.MemoryCode, error)
	CodeStats() (*entity.CodeStats, error)
}

// Lifecycle drives a memory code through minted, assigned-to-product
// and claimed. Assignment and claim are independent transitions:
// assigning a code to a product does not block a later claim, and a
// code claimed straight from stock can still be marked as assigned.
type Lifecycle struct {
	db         Database
	codeLength int
	log        *slog.Logger
}

func New(db Database, codeLength int, log *slog.Logger) *Lifecycle {
	if codeLength <= 0 {
		codeLength = 6
	}
	return &Lifecycle{
		db:         db,
		codeLength: codeLength,
		log:        log.With(sl.Module("lifecycle")),
	}
}

// mintAttempts bounds the re-rolls when a fresh token collides with
// an existing code.
const mintAttempts = 5

// GenerateCodes mints a batch of fresh codes. The redemption token is
// an uppercase uuid prefix; the folder id is a full uuid. The store's
// unique index on the token is the authority on uniqueness: a
// collision rejects the insert and the token is re-rolled.
func (l *Lifecycle) GenerateCodes(count int, createdBy string) ([]*entity.MemoryCode, error) {
	if count <= 0 {
		return nil, entity.ErrMissingParameters
	}
	now := time.Now()
	codes := make([]*entity.MemoryCode, 0, count)
	for i := 0; i < count; i++ {
		code, err := l.mintCode(createdBy, now)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	l.log.Info("codes minted",
		slog.Int("count", count),
		slog.String("created_by", createdBy))
	return codes, nil
}

func (l *Lifecycle) mintCode(createdBy string, now time.Time) (*entity.MemoryCode, error) {
	var err error
	for attempt := 0; attempt < mintAttempts; attempt++ {
		raw := strings.ReplaceAll(uuid.New().String(), "-", "")
		code := &entity.MemoryCode{
			Id:        uuid.New().String(),
			Code:      strings.ToUpper(raw[:l.codeLength]),
			CreatedBy: createdBy,
			CreatedAt: now,
		}
		err = l.db.CreateCode(code)
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, entity.ErrDuplicateCode) {
			return nil, fmt.Errorf("save code: %w", err)
		}
		l.log.Debug("code collision, re-rolling", slog.Int("attempt", attempt+1))
	}
	return nil, fmt.Errorf("mint code: %w", err)
}

// UnassignedCode returns the oldest code still waiting for a product.
func (l *Lifecycle) UnassignedCode() (*entity.MemoryCode, error) {
	return l.db.OldestUnassignedCode()
}

// AssignToProduct marks a code as physically affixed to a sellable
// item. The transition is a single guarded write; when it misses, the
// current record decides which failure to report.
func (l *Lifecycle) AssignToProduct(id string) (*entity.MemoryCode, error) {
	ok, err := l.db.AssignCode(id, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		code, err := l.db.CodeById(id)
		if err != nil {
			return nil, err
		}
		if code.Claimed() {
			return nil, entity.ErrAlreadyUsed
		}
		return nil, entity.ErrAlreadyAssigned
	}
	l.log.Info("code assigned to product", slog.String("id", id))
	return l.db.CodeById(id)
}

// ValidateCode looks up a human-entered redemption token.
func (l *Lifecycle) ValidateCode(code string) (*entity.MemoryCode, error) {
	return l.db.CodeByCode(entity.NormalizeCode(code))
}

// Claim binds a code to a user account. Not idempotent: a second
// claim fails with ErrAlreadyClaimed even for the same user.
func (l *Lifecycle) Claim(memoryId, code, userId string) (*entity.MemoryCode, error) {
	record, err := l.db.CodeByCode(entity.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if record.Id != memoryId {
		return nil, entity.ErrMismatch
	}
	if record.UserId != "" {
		return nil, entity.ErrAlreadyClaimed
	}

	ok, err := l.db.ClaimCode(record.Id, userId, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// guard missed: a concurrent claim won the race
		return nil, entity.ErrAlreadyClaimed
	}
	l.log.Info("code claimed",
		slog.String("id", record.Id),
		slog.String("user_id", userId))
	return l.db.CodeById(record.Id)
}

// VerifyOwnership reports whether a trophy folder has a claimed
// owner. Only the claim fields are read.
func (l *Lifecycle) VerifyOwnership(id string) (*entity.Ownership, error) {
	code, err := l.db.CodeOwnership(id)
	if err != nil {
		return nil, err
	}
	return &entity.Ownership{
		Verified: code.Claimed(),
		UserId:   code.UserId,
	}, nil
}

// SetName stores a post-upload display name. Only the claiming owner
// may name the trophy.
func (l *Lifecycle) SetName(id, userId, name string) error {
	ok, err := l.db.SetCodeName(id, userId, name)
	if err != nil {
		return err
	}
	if !ok {
		if _, err = l.db.CodeById(id); err != nil {
			return err
		}
		return entity.ErrUnauthorized
	}
	return nil
}

// Stats returns the admin console counters.
func (l *Lifecycle) Stats() (*entity.CodeStats, error) {
	return l.db.CodeStats()
}
