package lifecycle

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memorymount/entity"
)

// fakeDB is an in-memory record store. The guarded updates hold the
// lock across check and write, matching the atomicity the real store
// provides with conditional updates.
type fakeDB struct {
	mu    sync.Mutex
	codes map[string]*entity.MemoryCode
}

func newFakeDB() *fakeDB {
	return &fakeDB{codes: make(map[string]*entity.MemoryCode)}
}

func (f *fakeDB) CreateCode(code *entity.MemoryCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.Code == code.Code {
			return entity.ErrDuplicateCode
		}
	}
	cp := *code
	f.codes[code.Id] = &cp
	return nil
}

func (f *fakeDB) CodeById(id string) (*entity.MemoryCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeDB) CodeByCode(code string) (*entity.MemoryCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (f *fakeDB) OldestUnassignedCode() (*entity.MemoryCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *entity.MemoryCode
	for _, c := range f.codes {
		if c.AssignedAt != nil || c.UserId != "" {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest == nil {
		return nil, entity.ErrNotFound
	}
	cp := *oldest
	return &cp, nil
}

func (f *fakeDB) AssignCode(id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[id]
	if !ok || c.AssignedAt != nil || c.UserId != "" {
		return false, nil
	}
	c.AssignedAt = &at
	return true, nil
}

func (f *fakeDB) ClaimCode(id, userId string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[id]
	if !ok || c.UserId != "" {
		return false, nil
	}
	c.UserId = userId
	c.UsedAt = &at
	return true, nil
}

func (f *fakeDB) SetCodeName(id, userId, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[id]
	if !ok || c.UserId != userId {
		return false, nil
	}
	c.Name = name
	return true, nil
}

func (f *fakeDB) CodeOwnership(id string) (*entity.MemoryCode, error) {
	return f.CodeById(id)
}

func (f *fakeDB) CodeStats() (*entity.CodeStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &entity.CodeStats{}
	for _, c := range f.codes {
		stats.Total++
		if c.AssignedAt != nil {
			stats.Assigned++
		}
		if c.UserId != "" {
			stats.Claimed++
		}
		if c.AssignedAt == nil && c.UserId == "" {
			stats.Available++
		}
	}
	return stats, nil
}

func newLifecycle(t *testing.T) (*Lifecycle, *fakeDB) {
	t.Helper()
	db := newFakeDB()
	return New(db, 6, slog.Default()), db
}

func seed(t *testing.T, db *fakeDB, id, code string, createdAt time.Time) {
	t.Helper()
	err := db.CreateCode(&entity.MemoryCode{
		Id:        id,
		Code:      code,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
}

func TestGenerateCodes(t *testing.T) {
	l, db := newLifecycle(t)

	codes, err := l.GenerateCodes(5, "admin-1")
	require.NoError(t, err)
	require.Len(t, codes, 5)

	seen := make(map[string]bool)
	for _, c := range codes {
		assert.Len(t, c.Code, 6)
		assert.Equal(t, c.Code, entity.NormalizeCode(c.Code))
		assert.Equal(t, entity.StateMinted, c.State())
		assert.False(t, seen[c.Id])
		seen[c.Id] = true
	}

	stats, err := db.CodeStats()
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Total)
	assert.Equal(t, int64(5), stats.Available)
}

// collideDB rejects the first few inserts as token collisions, the
// way the store's unique index would.
type collideDB struct {
	*fakeDB
	rejects int
}

func (c *collideDB) CreateCode(code *entity.MemoryCode) error {
	if c.rejects > 0 {
		c.rejects--
		return entity.ErrDuplicateCode
	}
	return c.fakeDB.CreateCode(code)
}

func TestGenerateCodes_RerollsOnCollision(t *testing.T) {
	db := &collideDB{fakeDB: newFakeDB(), rejects: 3}
	l := New(db, 6, slog.Default())

	codes, err := l.GenerateCodes(10, "admin-1")
	require.NoError(t, err)
	require.Len(t, codes, 10)

	unique := make(map[string]bool)
	for _, c := range codes {
		unique[c.Code] = true
	}
	assert.Len(t, unique, 10)

	stats, err := db.CodeStats()
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.Total)
}

func TestGenerateCodes_GivesUpAfterRepeatedCollisions(t *testing.T) {
	db := &collideDB{fakeDB: newFakeDB(), rejects: 1000}
	l := New(db, 6, slog.Default())

	_, err := l.GenerateCodes(1, "admin-1")
	assert.ErrorIs(t, err, entity.ErrDuplicateCode)
}

func TestGenerateCodes_BadCount(t *testing.T) {
	l, _ := newLifecycle(t)
	_, err := l.GenerateCodes(0, "admin-1")
	assert.ErrorIs(t, err, entity.ErrMissingParameters)
}

func TestAssignToProduct_TwiceFails(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	code, err := l.AssignToProduct("m1")
	require.NoError(t, err)
	require.NotNil(t, code.AssignedAt)
	assert.Equal(t, entity.StateAssigned, code.State())

	_, err = l.AssignToProduct("m1")
	assert.ErrorIs(t, err, entity.ErrAlreadyAssigned)
}

func TestAssignToProduct_UnknownId(t *testing.T) {
	l, _ := newLifecycle(t)
	_, err := l.AssignToProduct("missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestAssignToProduct_ClaimedCode(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	_, err := l.Claim("m1", "aaaaaa", "user-1")
	require.NoError(t, err)

	_, err = l.AssignToProduct("m1")
	assert.ErrorIs(t, err, entity.ErrAlreadyUsed)
}

func TestClaim_SecondClaimFails(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	code, err := l.Claim("m1", "aaaaaa", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", code.UserId)
	require.NotNil(t, code.UsedAt)
	assert.Equal(t, entity.StateClaimed, code.State())

	// not idempotent, even for the same user
	_, err = l.Claim("m1", "AAAAAA", "user-1")
	assert.ErrorIs(t, err, entity.ErrAlreadyClaimed)

	_, err = l.Claim("m1", "AAAAAA", "user-2")
	assert.ErrorIs(t, err, entity.ErrAlreadyClaimed)
}

func TestClaim_Mismatch(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	_, err := l.Claim("m2", "AAAAAA", "user-1")
	assert.ErrorIs(t, err, entity.ErrMismatch)

	// valid claim still possible afterwards
	_, err = l.Claim("m1", "AAAAAA", "user-1")
	assert.NoError(t, err)
}

func TestClaim_UnknownCode(t *testing.T) {
	l, _ := newLifecycle(t)
	_, err := l.Claim("m1", "NOSUCH", "user-1")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestClaim_AssignedCodeStillClaimable(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	_, err := l.AssignToProduct("m1")
	require.NoError(t, err)

	code, err := l.Claim("m1", "AAAAAA", "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StateClaimed, code.State())
	require.NotNil(t, code.AssignedAt)
}

func TestClaim_ConcurrentSingleWinner(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = l.Claim("m1", "AAAAAA", "user-1")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, entity.ErrAlreadyClaimed)
		}
	}
	assert.Equal(t, 1, won)
}

func TestUnassignedCode_OldestFirst(t *testing.T) {
	l, db := newLifecycle(t)
	base := time.Now()
	seed(t, db, "m2", "BBBBBB", base.Add(time.Minute))
	seed(t, db, "m1", "AAAAAA", base)
	seed(t, db, "m3", "CCCCCC", base.Add(2*time.Minute))

	code, err := l.UnassignedCode()
	require.NoError(t, err)
	assert.Equal(t, "m1", code.Id)

	_, err = l.AssignToProduct("m1")
	require.NoError(t, err)

	code, err = l.UnassignedCode()
	require.NoError(t, err)
	assert.Equal(t, "m2", code.Id)
}

func TestUnassignedCode_NoneAvailable(t *testing.T) {
	l, _ := newLifecycle(t)
	_, err := l.UnassignedCode()
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestValidateCode_NormalizesCase(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "ABC123", time.Now())

	code, err := l.ValidateCode(" abc123 ")
	require.NoError(t, err)
	assert.Equal(t, "m1", code.Id)
	assert.False(t, code.Claimed())

	_, err = l.ValidateCode("zzzzzz")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestVerifyOwnership(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	own, err := l.VerifyOwnership("m1")
	require.NoError(t, err)
	assert.False(t, own.Verified)

	_, err = l.Claim("m1", "AAAAAA", "user-1")
	require.NoError(t, err)

	own, err = l.VerifyOwnership("m1")
	require.NoError(t, err)
	assert.True(t, own.Verified)
	assert.Equal(t, "user-1", own.UserId)

	_, err = l.VerifyOwnership("missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSetName(t *testing.T) {
	l, db := newLifecycle(t)
	seed(t, db, "m1", "AAAAAA", time.Now())

	_, err := l.Claim("m1", "AAAAAA", "user-1")
	require.NoError(t, err)

	require.NoError(t, l.SetName("m1", "user-1", "Our wedding"))
	code, err := db.CodeById("m1")
	require.NoError(t, err)
	assert.Equal(t, "Our wedding", code.Name)

	assert.ErrorIs(t, l.SetName("m1", "user-2", "hijack"), entity.ErrUnauthorized)
	assert.ErrorIs(t, l.SetName("missing", "user-1", "x"), entity.ErrNotFound)
}

func TestStats(t *testing.T) {
	l, db := newLifecycle(t)
	base := time.Now()
	seed(t, db, "m1", "AAAAAA", base)
	seed(t, db, "m2", "BBBBBB", base)
	seed(t, db, "m3", "CCCCCC", base)

	_, err := l.AssignToProduct("m1")
	require.NoError(t, err)
	_, err = l.Claim("m2", "BBBBBB", "user-1")
	require.NoError(t, err)

	stats, err := l.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Assigned)
	assert.Equal(t, int64(1), stats.Claimed)
	assert.Equal(t, int64(1), stats.Available)
}
