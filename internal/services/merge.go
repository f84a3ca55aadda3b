// This file implements the email-change merge resolver. The rules run in a
// fixed order and re-check current state on every call, so a retried or
// duplicated call converges instead of corrupting identities: subscriptions
// are only ever adopted into an empty target, and two provider-linked
// accounts are never merged.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/offerhub/userfed/internal/common"
	"github.com/offerhub/userfed/internal/models"
	"github.com/offerhub/userfed/internal/partition"
)

// UpdateUserEmail changes the target user's email address, resolving
// collisions with any existing owner of the new address.
//
// Outcomes, in rule order:
//   - empty email: common.ErrInvalidArgument
//   - unknown target: common.ErrUserNotExists
//   - email unchanged: no-op, or confirm-flag-only update
//   - suppressed target, provider-less target, suppressed owner, or
//     provider-linked owner: common.ErrUserUpdateConflict
//   - non-provider owner: merged away (subscriptions adopted only if the
//     target has none), then the email is moved to the target
func (s *IdentityService) UpdateUserEmail(ctx context.Context, userID, newEmail string, isEmailConfirmed bool) (*models.User, error) {
	norm := normalizeEmail(newEmail)
	if norm == "" {
		return nil, fmt.Errorf("%w: empty email", common.ErrInvalidArgument)
	}
	emailPID, err := partition.ForString(norm)
	if err != nil {
		return nil, err
	}

	target, err := s.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrUserNotExists, userID)
		}
		return nil, err
	}

	if target.EmailEquals(norm) {
		if target.IsEmailConfirmed || target.IsEmailConfirmed == isEmailConfirmed {
			return target, nil
		}
		return s.upsertUser(ctx, models.UserUpsert{
			ID:               target.ID,
			PartitionID:      userPartition(target.ID),
			IsEmailConfirmed: &isEmailConfirmed,
		})
	}

	if target.IsSuppressed {
		return nil, fmt.Errorf("%w: cannot update email for suppressed user", common.ErrUserUpdateConflict)
	}
	if !target.HasProviderID() {
		return nil, fmt.Errorf("%w: cannot update email for user without a linked provider identity", common.ErrUserUpdateConflict)
	}

	sourceID, err := s.getUserIDByExternalID(ctx, norm, emailPID, models.ExternalIDTypeEmail)
	switch {
	case errors.Is(err, common.ErrNotFound):
		// Nobody owns the address; plain email change.
	case err != nil:
		return nil, err
	default:
		proceed, result, err := s.resolveEmailOwner(ctx, target, sourceID, norm, emailPID)
		if err != nil {
			return nil, err
		}
		if !proceed {
			return result, nil
		}
	}

	return s.changeEmail(ctx, target, norm, emailPID, isEmailConfirmed)
}

// resolveEmailOwner applies the collision rules against the current owner
// of the new address. It returns proceed=false with a final result for the
// idempotent same-user fast path; otherwise, once it returns proceed=true,
// the address is free to move to the target.
func (s *IdentityService) resolveEmailOwner(ctx context.Context, target *models.User, sourceID, norm string, emailPID int) (bool, *models.User, error) {
	source, err := s.getUserByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Orphaned mapping: its user row is gone. Clear it so the
			// email-change step can rebind the address.
			if err := s.deleteExternalIdentity(ctx, norm, emailPID, models.ExternalIDTypeEmail); err != nil {
				return false, nil, err
			}
			return true, nil, nil
		}
		return false, nil, err
	}

	if source.IsSuppressed {
		return false, nil, fmt.Errorf("%w: email already associated with a suppressed user", common.ErrUserUpdateConflict)
	}

	if source.ID == target.ID {
		if source.EmailEquals(norm) {
			// A concurrent call already finished the change.
			return false, source, nil
		}
		// Mapping already repointed at the target, user row not yet
		// updated; finish the change.
		return true, nil, nil
	}

	if source.HasProviderID() {
		return false, nil, fmt.Errorf("%w: email already associated with another provider identity", common.ErrUserUpdateConflict)
	}

	if err := s.mergeSourceIntoTarget(ctx, source, target); err != nil {
		return false, nil, err
	}
	if err := s.deleteExternalIdentity(ctx, norm, emailPID, models.ExternalIDTypeEmail); err != nil {
		return false, nil, err
	}
	if err := s.deleteUser(ctx, source.ID); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// mergeSourceIntoTarget copies the source's active subscriptions to the
// target, but only when the target has none: adoption is additive and
// never overwrites.
func (s *IdentityService) mergeSourceIntoTarget(ctx context.Context, source, target *models.User) error {
	subs := s.rm.Subscriptions(s.db)
	srcPID := userPartition(source.ID)
	tgtPID := userPartition(target.ID)

	var targetHas bool
	err := s.exec.Do(ctx, "has_any_subscription", func(ctx context.Context) error {
		var err error
		targetHas, err = subs.HasAny(ctx, target.ID, tgtPID)
		return err
	})
	if err != nil {
		return err
	}
	if targetHas {
		return nil
	}

	var emailSubs []models.EmailSubscription
	err = s.exec.Do(ctx, "get_email_subscriptions", func(ctx context.Context) error {
		var err error
		emailSubs, err = subs.ListActiveEmail(ctx, source.ID, srcPID)
		return err
	})
	if err != nil {
		return err
	}
	for _, sub := range emailSubs {
		kind := sub.Kind
		err = s.exec.Do(ctx, "create_email_subscription", func(ctx context.Context) error {
			return subs.CreateEmail(ctx, target.ID, tgtPID, kind)
		})
		if err != nil {
			return err
		}
	}

	var merchantSubs []models.MerchantSubscription
	err = s.exec.Do(ctx, "get_merchant_subscriptions", func(ctx context.Context) error {
		var err error
		merchantSubs, err = subs.ListActiveMerchant(ctx, source.ID, srcPID)
		return err
	})
	if err != nil {
		return err
	}
	for _, sub := range merchantSubs {
		merchantID := sub.MerchantID
		err = s.exec.Do(ctx, "create_merchant_subscription", func(ctx context.Context) error {
			return subs.CreateMerchant(ctx, target.ID, tgtPID, merchantID)
		})
		if err != nil {
			return err
		}
	}

	s.logger.Info(ctx, "identity merged",
		"source_user_id", source.ID, "target_user_id", target.ID,
		"email_subscriptions", len(emailSubs), "merchant_subscriptions", len(merchantSubs))
	return nil
}

// changeEmail moves the address onto the target: drop the old mapping,
// bind the new one, update the user row.
func (s *IdentityService) changeEmail(ctx context.Context, target *models.User, norm string, emailPID int, isEmailConfirmed bool) (*models.User, error) {
	if target.Email != nil && *target.Email != "" {
		oldPID, err := partition.ForString(*target.Email)
		if err != nil {
			return nil, err
		}
		if err := s.deleteExternalIdentity(ctx, *target.Email, oldPID, models.ExternalIDTypeEmail); err != nil {
			return nil, err
		}
	}

	userID := target.ID
	if _, err := s.createIdentityIfAbsent(ctx, &userID, norm, emailPID, models.ExternalIDTypeEmail); err != nil {
		return nil, err
	}

	return s.upsertUser(ctx, models.UserUpsert{
		ID:               target.ID,
		PartitionID:      userPartition(target.ID),
		Email:            &norm,
		IsEmailConfirmed: &isEmailConfirmed,
	})
}
