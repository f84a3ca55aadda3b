// Package services contains the business logic of the sharded identity
// subsystem. This file implements IdentityService, the partition-routed
// store of User and ExternalIdentity records:
// - GetOrCreateByEmail / GetOrCreateByExternalProviderID: idempotent identity resolution
// - GetByExternalID / GetByUserID: lookups
// - UpdateSuppressionState: one-way suppression bookkeeping
// - UpdateUserEmail (merge.go): email change with conflict resolution
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/offerhub/userfed/internal/common"
	"github.com/offerhub/userfed/internal/config"
	"github.com/offerhub/userfed/internal/logging"
	"github.com/offerhub/userfed/internal/models"
	"github.com/offerhub/userfed/internal/partition"
	"github.com/offerhub/userfed/internal/repositories/repomanager"
	"github.com/offerhub/userfed/internal/retryx"
)

// IdentityService resolves, creates, and updates user identities across the
// partitioned backing store. Every remote call is routed to its partition
// and wrapped by the retry executor; correctness under concurrent creation
// is delegated to the store's atomic create-if-absent primitive, so the
// service itself holds no locks.
type IdentityService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	exec   *retryx.Executor
	logger logging.Logger
	cache  *providerCache
}

// NewIdentityService constructs an IdentityService using repositories and
// the library config.
func NewIdentityService(db *sql.DB, rm repomanager.RepositoryManager, exec *retryx.Executor, logger logging.Logger, cfg *config.Config) *IdentityService {
	s := &IdentityService{db: db, rm: rm, exec: exec, logger: logger}
	if cfg.EnableProviderCache {
		s.cache = newProviderCache()
	}
	return s
}

// defaultNotificationPreferences is seeded into Info when a provider-id
// resolution mints a brand-new user.
const defaultNotificationPreferences = `weekly_deals`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// routeExternalID picks the partition for an external identifier. MsID
// identifiers are decimal 64-bit provider ids and route through the numeric
// mixer so that create and lookup paths agree; everything else routes by
// the string hash.
func routeExternalID(externalID string, t models.ExternalIDType) (int, error) {
	if externalID == "" {
		return 0, fmt.Errorf("%w: empty external id", common.ErrInvalidArgument)
	}
	if t == models.ExternalIDTypeMsID {
		id, err := strconv.ParseInt(externalID, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: malformed provider id %q", common.ErrInvalidArgument, externalID)
		}
		return partition.ForInt64(id), nil
	}
	return partition.ForString(externalID)
}

// GetOrCreateByEmail resolves an email address to its user, creating the
// identity if absent. The email is normalized first. IsEmailConfirmed only
// ever transitions false -> true here: a false argument leaves an already
// confirmed user confirmed.
func (s *IdentityService) GetOrCreateByEmail(ctx context.Context, email string, isEmailConfirmed bool, source *string) (*models.User, error) {
	norm := normalizeEmail(email)
	if norm == "" {
		return nil, fmt.Errorf("%w: empty email", common.ErrInvalidArgument)
	}
	pid, err := partition.ForString(norm)
	if err != nil {
		return nil, err
	}

	candidate := uuid.NewString()
	ident, err := s.createIdentityIfAbsent(ctx, &candidate, norm, pid, models.ExternalIDTypeEmail)
	if err != nil {
		return nil, err
	}

	var confirmed *bool
	if isEmailConfirmed {
		confirmed = &isEmailConfirmed
	}
	return s.upsertUser(ctx, models.UserUpsert{
		ID:               ident.UserID,
		PartitionID:      userPartition(ident.UserID),
		Email:            &norm,
		Source:           source,
		IsEmailConfirmed: confirmed,
	})
}

// GetOrCreateByExternalProviderID resolves an external provider id to its
// user, creating the identity if absent. existingUserID, when non-empty,
// links the provider id to that account instead of minting a new one. A
// brand-new user gets default notification preferences seeded into Info.
func (s *IdentityService) GetOrCreateByExternalProviderID(ctx context.Context, providerID int64, source, name *string, existingUserID string) (*models.User, error) {
	if providerID == 0 {
		return nil, fmt.Errorf("%w: zero provider id", common.ErrInvalidArgument)
	}
	externalID := strconv.FormatInt(providerID, 10)
	pid := partition.ForInt64(providerID)

	candidate := existingUserID
	if candidate == "" {
		candidate = uuid.NewString()
	}
	ident, err := s.createIdentityIfAbsent(ctx, &candidate, externalID, pid, models.ExternalIDTypeMsID)
	if err != nil {
		return nil, err
	}

	upsert := models.UserUpsert{
		ID:          ident.UserID,
		PartitionID: userPartition(ident.UserID),
		MsID:        &providerID,
		Name:        name,
		Source:      source,
	}
	if existingUserID == "" && ident.UserID == candidate {
		info, err := json.Marshal(map[string]any{
			"notifications": map[string]bool{defaultNotificationPreferences: true},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: marshal default preferences", common.ErrInternal)
		}
		blob := string(info)
		upsert.Info = &blob
	}
	return s.upsertUser(ctx, upsert)
}

// GetByExternalID resolves an external identifier of the given type to its
// user, or common.ErrNotFound. MsID lookups may be served by the optional
// read-through cache; cached identities are eventually consistent.
func (s *IdentityService) GetByExternalID(ctx context.Context, externalID string, t models.ExternalIDType) (*models.User, error) {
	if t == models.ExternalIDTypeEmail {
		externalID = normalizeEmail(externalID)
	}
	pid, err := routeExternalID(externalID, t)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && t == models.ExternalIDTypeMsID {
		if u, ok := s.cache.get(externalID); ok {
			return u, nil
		}
	}

	userID, err := s.getUserIDByExternalID(ctx, externalID, pid, t)
	if err != nil {
		return nil, err
	}
	user, err := s.getUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && t == models.ExternalIDTypeMsID {
		s.cache.put(externalID, user)
	}
	return user, nil
}

// GetByUserID fetches a user row by id, or common.ErrNotFound.
func (s *IdentityService) GetByUserID(ctx context.Context, id string) (*models.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty user id", common.ErrInvalidArgument)
	}
	return s.getUserByID(ctx, id)
}

// UpdateSuppressionState records an email suppression. Suppression forces
// identity creation so the flag can always be stored; un-suppression only
// touches an existing identity and returns common.ErrNotFound otherwise.
func (s *IdentityService) UpdateSuppressionState(ctx context.Context, email string, suppressed bool) (*models.User, error) {
	norm := normalizeEmail(email)
	if norm == "" {
		return nil, fmt.Errorf("%w: empty email", common.ErrInvalidArgument)
	}
	pid, err := partition.ForString(norm)
	if err != nil {
		return nil, err
	}

	var userID string
	if suppressed {
		candidate := uuid.NewString()
		ident, err := s.createIdentityIfAbsent(ctx, &candidate, norm, pid, models.ExternalIDTypeEmail)
		if err != nil {
			return nil, err
		}
		userID = ident.UserID
	} else {
		userID, err = s.getUserIDByExternalID(ctx, norm, pid, models.ExternalIDTypeEmail)
		if err != nil {
			return nil, err
		}
	}

	return s.upsertUser(ctx, models.UserUpsert{
		ID:           userID,
		PartitionID:  userPartition(userID),
		Email:        &norm,
		IsSuppressed: &suppressed,
	})
}

// --- partition-routed, retry-wrapped repository calls ---

// userPartition routes a user row by its id string.
func userPartition(userID string) int {
	pid, _ := partition.ForString(userID)
	return pid
}

func (s *IdentityService) createIdentityIfAbsent(ctx context.Context, userID *string, externalID string, pid int, t models.ExternalIDType) (*models.ExternalIdentity, error) {
	var ident *models.ExternalIdentity
	err := s.exec.Do(ctx, "create_external_identity_if_absent", func(ctx context.Context) error {
		var err error
		ident, err = s.rm.Identities(s.db).CreateIfAbsent(ctx, userID, externalID, pid, t)
		return err
	})
	return ident, err
}

func (s *IdentityService) getUserIDByExternalID(ctx context.Context, externalID string, pid int, t models.ExternalIDType) (string, error) {
	var userID string
	err := s.exec.Do(ctx, "get_user_id_by_external_id", func(ctx context.Context) error {
		var err error
		userID, err = s.rm.Identities(s.db).GetUserID(ctx, externalID, pid, t)
		return err
	})
	return userID, err
}

func (s *IdentityService) deleteExternalIdentity(ctx context.Context, externalID string, pid int, t models.ExternalIDType) error {
	return s.exec.Do(ctx, "delete_external_identity", func(ctx context.Context) error {
		return s.rm.Identities(s.db).Delete(ctx, externalID, pid, t)
	})
}

func (s *IdentityService) upsertUser(ctx context.Context, u models.UserUpsert) (*models.User, error) {
	var user *models.User
	err := s.exec.Do(ctx, "upsert_user", func(ctx context.Context) error {
		var err error
		user, err = s.rm.Users(s.db).Upsert(ctx, u)
		return err
	})
	return user, err
}

func (s *IdentityService) getUserByID(ctx context.Context, id string) (*models.User, error) {
	var user *models.User
	err := s.exec.Do(ctx, "get_user_by_id", func(ctx context.Context) error {
		var err error
		user, err = s.rm.Users(s.db).GetByID(ctx, id, userPartition(id))
		return err
	})
	return user, err
}

func (s *IdentityService) deleteUser(ctx context.Context, id string) error {
	return s.exec.Do(ctx, "delete_user", func(ctx context.Context) error {
		return s.rm.Users(s.db).Delete(ctx, id, userPartition(id))
	})
}
