// This file implements ConfirmationService, the issuance/validation state
// machine for anti-abuse email and account-link verification codes.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/offerhub/userfed/internal/auth"
	"github.com/offerhub/userfed/internal/common"
	"github.com/offerhub/userfed/internal/config"
	"github.com/offerhub/userfed/internal/logging"
	"github.com/offerhub/userfed/internal/models"
	"github.com/offerhub/userfed/internal/partition"
	"github.com/offerhub/userfed/internal/repositories/repomanager"
	"github.com/offerhub/userfed/internal/retryx"
)

// UserIDHash returns the one-way digest of a user id used as a public,
// non-reversible identifier safe to embed in confirmation links.
func UserIDHash(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// ConfirmationService issues and validates short-lived, single-use
// confirmation codes keyed by (UserIDHash, EntityType). Issuing a new code
// for a key replaces the pending one; a confirmed code is terminal.
type ConfirmationService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	exec   *retryx.Executor
	logger logging.Logger

	maxRetryCount int
	validity      time.Duration
	linkSecret    []byte
	linkValidity  time.Duration
}

// NewConfirmationService constructs a ConfirmationService using
// repositories and the library config.
func NewConfirmationService(db *sql.DB, rm repomanager.RepositoryManager, exec *retryx.Executor, logger logging.Logger, cfg *config.Config) *ConfirmationService {
	return &ConfirmationService{
		db:            db,
		rm:            rm,
		exec:          exec,
		logger:        logger,
		maxRetryCount: cfg.ConfirmationMaxRetryCount,
		validity:      cfg.ConfirmationValidityDuration,
		linkSecret:    []byte(cfg.LinkTokenSecret),
		linkValidity:  cfg.LinkTokenValidityDuration,
	}
}

// CodeOption overrides per-code issuance policy.
type CodeOption func(*codePolicy)

type codePolicy struct {
	maxRetryCount int
	validity      time.Duration
}

// WithMaxRetryCount caps failed confirmation attempts for this code.
func WithMaxRetryCount(n int) CodeOption {
	return func(p *codePolicy) { p.maxRetryCount = n }
}

// WithValidity sets this code's expiration window.
func WithValidity(d time.Duration) CodeOption {
	return func(p *codePolicy) { p.validity = d }
}

// NewAccountLinkToken mints the signed token callers pass as the entity
// when confirming an account link.
func (s *ConfirmationService) NewAccountLinkToken(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", common.ErrInvalidArgument)
	}
	return auth.GenerateLinkToken(userID, s.linkSecret, s.linkValidity)
}

// CreateConfirmationCode issues a code for (UserIDHash(userID), t),
// replacing any prior pending code for that key, and returns the hash and
// the generated code. Email entities are lower-cased and trimmed;
// account-link entities must be valid signed link tokens.
func (s *ConfirmationService) CreateConfirmationCode(ctx context.Context, entity string, t models.ConfirmEntityType, userID string, opts ...CodeOption) (string, int64, error) {
	policy := codePolicy{maxRetryCount: s.maxRetryCount, validity: s.validity}
	for _, opt := range opts {
		opt(&policy)
	}

	entity = strings.TrimSpace(entity)
	switch {
	case entity == "":
		return "", 0, fmt.Errorf("%w: empty entity", common.ErrInvalidArgument)
	case t == models.ConfirmEntityTypeNone:
		return "", 0, fmt.Errorf("%w: entity type none", common.ErrInvalidArgument)
	case userID == "":
		return "", 0, fmt.Errorf("%w: empty user id", common.ErrInvalidArgument)
	case policy.maxRetryCount < 1:
		return "", 0, fmt.Errorf("%w: max retry count below 1", common.ErrInvalidArgument)
	}

	switch t {
	case models.ConfirmEntityTypeEmail:
		entity = strings.ToLower(entity)
	case models.ConfirmEntityTypeAccountLink:
		// Link tokens are signed; issue codes only for tokens we minted.
		if _, err := auth.ParseLinkToken(entity, s.linkSecret); err != nil {
			return "", 0, err
		}
	}

	hash := UserIDHash(userID)
	pid, err := partition.ForString(hash)
	if err != nil {
		return "", 0, err
	}

	row := models.ConfirmationCode{
		UserIDHash:    hash,
		EntityType:    t,
		Entity:        entity,
		UserID:        userID,
		ExpirationUTC: time.Now().UTC().Add(policy.validity),
		MaxRetryCount: policy.maxRetryCount,
	}

	var code int64
	err = s.exec.Do(ctx, "upsert_confirmation_code", func(ctx context.Context) error {
		var err error
		code, err = s.rm.Confirmations(s.db).Upsert(ctx, row, pid)
		return err
	})
	if err != nil {
		return "", 0, err
	}
	return hash, code, nil
}

// GetConfirmationEntity returns the read-only projection of the pending
// code for the key, or common.ErrNotFound.
func (s *ConfirmationService) GetConfirmationEntity(ctx context.Context, userIDHash string, t models.ConfirmEntityType) (*models.ConfirmEntity, error) {
	if userIDHash == "" {
		return nil, fmt.Errorf("%w: empty user id hash", common.ErrInvalidArgument)
	}
	if t == models.ConfirmEntityTypeNone {
		return nil, fmt.Errorf("%w: entity type none", common.ErrInvalidArgument)
	}
	pid, err := partition.ForString(userIDHash)
	if err != nil {
		return nil, err
	}

	var entity *models.ConfirmEntity
	err = s.exec.Do(ctx, "get_confirmation_entity", func(ctx context.Context) error {
		var err error
		entity, err = s.rm.Confirmations(s.db).GetEntity(ctx, userIDHash, pid, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ConfirmEntity evaluates a submitted code. The backing store performs the
// atomic compare-and-confirm and reports failed-attempt accounting; the
// max-retry policy itself is applied here, so an attempt that exhausts the
// budget surfaces as Invalid rather than CodeWrong.
func (s *ConfirmationService) ConfirmEntity(ctx context.Context, userIDHash string, t models.ConfirmEntityType, submittedCode int64) (*models.ConfirmResult, error) {
	if userIDHash == "" {
		return nil, fmt.Errorf("%w: empty user id hash", common.ErrInvalidArgument)
	}
	if t == models.ConfirmEntityTypeNone {
		return nil, fmt.Errorf("%w: entity type none", common.ErrInvalidArgument)
	}
	pid, err := partition.ForString(userIDHash)
	if err != nil {
		return nil, err
	}

	var ev *models.ConfirmationEvaluation
	err = s.exec.Do(ctx, "evaluate_confirmation", func(ctx context.Context) error {
		var err error
		ev, err = s.rm.Confirmations(s.db).Evaluate(ctx, userIDHash, pid, t, submittedCode)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &models.ConfirmResult{Status: models.ConfirmStatusCodeNotFound}, nil
		}
		return nil, err
	}

	switch {
	case !ev.IsValid:
		return &models.ConfirmResult{Status: models.ConfirmStatusInvalid}, nil
	case ev.IsConfirmed:
		return &models.ConfirmResult{
			Status: models.ConfirmStatusCodeConfirmed,
			UserID: ev.UserID,
			Entity: ev.Entity,
		}, nil
	case ev.AttemptsUsed >= ev.MaxRetryCount:
		// This miss spent the last allowed attempt.
		return &models.ConfirmResult{Status: models.ConfirmStatusInvalid}, nil
	default:
		return &models.ConfirmResult{Status: models.ConfirmStatusCodeWrong}, nil
	}
}

// LogUserConfirmEmailResend records one resend event for rate tracking.
func (s *ConfirmationService) LogUserConfirmEmailResend(ctx context.Context, userID string, t models.ConfirmEntityType) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", common.ErrInvalidArgument)
	}
	pid, err := partition.ForString(userID)
	if err != nil {
		return err
	}
	return s.exec.Do(ctx, "log_confirmation_resend", func(ctx context.Context) error {
		return s.rm.Confirmations(s.db).LogResend(ctx, userID, pid, t)
	})
}

// GetUserConfirmEmailResendCount returns how many resend events were
// recorded since the given time. Throttling policy belongs to the caller;
// this service only counts.
func (s *ConfirmationService) GetUserConfirmEmailResendCount(ctx context.Context, userID string, t models.ConfirmEntityType, sinceUTC time.Time) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", common.ErrInvalidArgument)
	}
	pid, err := partition.ForString(userID)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.exec.Do(ctx, "confirmation_resend_count", func(ctx context.Context) error {
		var err error
		n, err = s.rm.Confirmations(s.db).ResendCount(ctx, userID, pid, t, sinceUTC)
		return err
	})
	return n, err
}
