package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/offerhub/userfed/internal/common"
	"github.com/offerhub/userfed/internal/config"
	"github.com/offerhub/userfed/internal/dbx"
	"github.com/offerhub/userfed/internal/logging"
	"github.com/offerhub/userfed/internal/models"
	boundariesrepo "github.com/offerhub/userfed/internal/repositories/boundaries"
	confirmationsrepo "github.com/offerhub/userfed/internal/repositories/confirmations"
	identitiesrepo "github.com/offerhub/userfed/internal/repositories/identities"
	subscriptionsrepo "github.com/offerhub/userfed/internal/repositories/subscriptions"
	usersrepo "github.com/offerhub/userfed/internal/repositories/users"
	"github.com/offerhub/userfed/internal/retryx"
)

// --- in-memory fakes mirroring the backing store's atomic primitives ---

type fakeUsersRepo struct {
	mu      sync.Mutex
	users   map[string]*models.User
	upserts int
	deleted []string
	err     error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) Upsert(_ context.Context, u models.UserUpsert) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++

	existing, ok := f.users[u.ID]
	if !ok {
		existing = &models.User{ID: u.ID}
		f.users[u.ID] = existing
	}
	if u.MsID != nil {
		v := *u.MsID
		existing.MsID = &v
	}
	if u.Email != nil {
		v := *u.Email
		existing.Email = &v
	}
	if u.PhoneNumber != nil {
		v := *u.PhoneNumber
		existing.PhoneNumber = &v
	}
	if u.Name != nil {
		v := *u.Name
		existing.Name = &v
	}
	if u.Info != nil {
		v := *u.Info
		existing.Info = &v
	}
	if u.Source != nil {
		v := *u.Source
		existing.Source = &v
	}
	if u.IsEmailConfirmed != nil {
		existing.IsEmailConfirmed = *u.IsEmailConfirmed
	}
	if u.IsSuppressed != nil {
		existing.IsSuppressed = *u.IsSuppressed
	}
	out := *existing
	return &out, nil
}

func (f *fakeUsersRepo) GetByID(_ context.Context, id string, _ int) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, id string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

// seed installs a user row directly.
func (f *fakeUsersRepo) seed(u models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := u
	f.users[u.ID] = &cp
}

type identKey struct {
	externalID string
	t          models.ExternalIDType
}

type fakeIdentitiesRepo struct {
	mu       sync.Mutex
	mappings map[identKey]string
	creates  int
	deleted  []identKey
	err      error
}

func newFakeIdentitiesRepo() *fakeIdentitiesRepo {
	return &fakeIdentitiesRepo{mappings: make(map[identKey]string)}
}

func (f *fakeIdentitiesRepo) CreateIfAbsent(_ context.Context, userID *string, externalID string, pid int, t models.ExternalIDType) (*models.ExternalIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++

	key := identKey{externalID: externalID, t: t}
	owner, ok := f.mappings[key]
	if !ok {
		if userID != nil {
			owner = *userID
		} else {
			owner = uuid.NewString()
		}
		f.mappings[key] = owner
	}
	return &models.ExternalIdentity{ExternalID: externalID, Type: t, UserID: owner, PartitionID: pid}, nil
}

func (f *fakeIdentitiesRepo) GetUserID(_ context.Context, externalID string, _ int, t models.ExternalIDType) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.mappings[identKey{externalID: externalID, t: t}]
	if !ok {
		return "", common.ErrNotFound
	}
	return owner, nil
}

func (f *fakeIdentitiesRepo) Delete(_ context.Context, externalID string, _ int, t models.ExternalIDType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := identKey{externalID: externalID, t: t}
	delete(f.mappings, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeIdentitiesRepo) seed(externalID string, t models.ExternalIDType, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[identKey{externalID: externalID, t: t}] = userID
}

func (f *fakeIdentitiesRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mappings)
}

type fakeSubscriptionsRepo struct {
	mu       sync.Mutex
	email    map[string][]models.EmailSubscription
	merchant map[string][]models.MerchantSubscription
}

func newFakeSubscriptionsRepo() *fakeSubscriptionsRepo {
	return &fakeSubscriptionsRepo{
		email:    make(map[string][]models.EmailSubscription),
		merchant: make(map[string][]models.MerchantSubscription),
	}
}

func (f *fakeSubscriptionsRepo) ListActiveEmail(_ context.Context, userID string, _ int) ([]models.EmailSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.EmailSubscription(nil), f.email[userID]...), nil
}

func (f *fakeSubscriptionsRepo) ListActiveMerchant(_ context.Context, userID string, _ int) ([]models.MerchantSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MerchantSubscription(nil), f.merchant[userID]...), nil
}

func (f *fakeSubscriptionsRepo) HasAny(_ context.Context, userID string, _ int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.email[userID]) > 0 || len(f.merchant[userID]) > 0, nil
}

func (f *fakeSubscriptionsRepo) CreateEmail(_ context.Context, userID string, _ int, kind models.EmailSubscriptionKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email[userID] = append(f.email[userID], models.EmailSubscription{UserID: userID, Kind: kind, Active: true})
	return nil
}

func (f *fakeSubscriptionsRepo) CreateMerchant(_ context.Context, userID string, _ int, merchantID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merchant[userID] = append(f.merchant[userID], models.MerchantSubscription{UserID: userID, MerchantID: merchantID, Active: true})
	return nil
}

type confirmKey struct {
	hash string
	t    models.ConfirmEntityType
}

type storedCode struct {
	models.ConfirmationCode
	retryCount int
	confirmed  bool
}

type resendEvent struct {
	userID string
	t      models.ConfirmEntityType
	at     time.Time
}

// fakeConfirmationsRepo mirrors the evaluate_confirmation stored procedure:
// compare under one lock, record failed attempts, confirm terminally.
type fakeConfirmationsRepo struct {
	mu       sync.Mutex
	rows     map[confirmKey]*storedCode
	resends  []resendEvent
	nextCode int64
	now      func() time.Time
}

func newFakeConfirmationsRepo() *fakeConfirmationsRepo {
	return &fakeConfirmationsRepo{
		rows:     make(map[confirmKey]*storedCode),
		nextCode: 100000,
		now:      time.Now,
	}
}

func (f *fakeConfirmationsRepo) Upsert(_ context.Context, c models.ConfirmationCode, _ int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextCode++
	c.Code = f.nextCode
	f.rows[confirmKey{hash: c.UserIDHash, t: c.EntityType}] = &storedCode{ConfirmationCode: c}
	return c.Code, nil
}

func (f *fakeConfirmationsRepo) GetEntity(_ context.Context, hash string, _ int, t models.ConfirmEntityType) (*models.ConfirmEntity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[confirmKey{hash: hash, t: t}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &models.ConfirmEntity{UserID: row.UserID, Entity: row.Entity, Type: row.EntityType}, nil
}

func (f *fakeConfirmationsRepo) Evaluate(_ context.Context, hash string, _ int, t models.ConfirmEntityType, code int64) (*models.ConfirmationEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[confirmKey{hash: hash, t: t}]
	if !ok {
		return nil, common.ErrNotFound
	}

	ev := &models.ConfirmationEvaluation{
		Entity:        row.Entity,
		UserID:        row.UserID,
		AttemptsUsed:  row.retryCount,
		MaxRetryCount: row.MaxRetryCount,
	}
	if row.confirmed || f.now().After(row.ExpirationUTC) || row.retryCount >= row.MaxRetryCount {
		return ev, nil
	}
	ev.IsValid = true
	if row.Code == code {
		row.confirmed = true
		ev.IsConfirmed = true
		return ev, nil
	}
	row.retryCount++
	ev.AttemptsUsed = row.retryCount
	return ev, nil
}

func (f *fakeConfirmationsRepo) LogResend(_ context.Context, userID string, _ int, t models.ConfirmEntityType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resends = append(f.resends, resendEvent{userID: userID, t: t, at: f.now()})
	return nil
}

func (f *fakeConfirmationsRepo) ResendCount(_ context.Context, userID string, _ int, t models.ConfirmEntityType, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.resends {
		if e.userID == userID && e.t == t && !e.at.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeBoundariesRepo struct{}

func (fakeBoundariesRepo) GetBoundaries(context.Context) ([]int, error) { return []int{0}, nil }

type fakeRepoManager struct {
	u *fakeUsersRepo
	i *fakeIdentitiesRepo
	s *fakeSubscriptionsRepo
	c *fakeConfirmationsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		i: newFakeIdentitiesRepo(),
		s: newFakeSubscriptionsRepo(),
		c: newFakeConfirmationsRepo(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository { return m.u }

func (m *fakeRepoManager) Identities(dbx.DBTX) identitiesrepo.Repository { return m.i }

func (m *fakeRepoManager) Subscriptions(dbx.DBTX) subscriptionsrepo.Repository { return m.s }

func (m *fakeRepoManager) Confirmations(dbx.DBTX) confirmationsrepo.Repository { return m.c }

func (m *fakeRepoManager) Boundaries(dbx.DBTX) boundariesrepo.Repository { return fakeBoundariesRepo{} }

// --- logger and constructors ---

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (nopLogger) With(...any) logging.Logger            { return nopLogger{} }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func fastExecutor() *retryx.Executor {
	return retryx.NewExecutor(retryx.Policy{
		MaxAttempts:    5,
		InitialDelay:   time.Microsecond,
		DelayIncrement: time.Microsecond,
	}, nopLogger{})
}

func newTestIdentityService(rm *fakeRepoManager, cfg *config.Config) *IdentityService {
	return NewIdentityService(nil, rm, fastExecutor(), nopLogger{}, cfg)
}

func newTestConfirmationService(rm *fakeRepoManager, cfg *config.Config) *ConfirmationService {
	return NewConfirmationService(nil, rm, fastExecutor(), nopLogger{}, cfg)
}

func strptr(s string) *string { return &s }

func int64ptr(v int64) *int64 { return &v }

func seedUser(rm *fakeRepoManager, u models.User) {
	rm.u.seed(u)
	if u.Email != nil {
		rm.i.seed(*u.Email, models.ExternalIDTypeEmail, u.ID)
	}
	if u.MsID != nil {
		rm.i.seed(fmt.Sprintf("%d", *u.MsID), models.ExternalIDTypeMsID, u.ID)
	}
}
