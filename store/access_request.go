package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/coursebook/scopedauth/models"
	"github.com/coursebook/scopedauth/scope"
)

// AccessRequestStore manages the request/approve/deny workflow. Decisions
// and the matching role-assignment changes commit in a single transaction,
// so a half-applied decision is never observable.
type AccessRequestStore struct {
	DB          *gorm.DB
	Registry    *scope.Registry
	Assignments *AssignmentStore
}

func NewAccessRequestStore(db *gorm.DB, reg *scope.Registry, assignments *AssignmentStore) *AccessRequestStore {
	return &AccessRequestStore{DB: db, Registry: reg, Assignments: assignments}
}

// Create persists a new access request. The decision is forced to pending
// and the decision date cleared regardless of what the caller supplied, so
// pre-approved requests cannot sneak in through direct writes.
func (s *AccessRequestStore) Create(ctx context.Context, actor string, req *models.AccessRequest) error {
	if req.RoleID == "" || req.UserID == "" {
		return models.ErrInvalidData
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveScopeFromRole(tx, s.Registry, &req.ScopeRef, req.RoleID); err != nil {
			return err
		}
		if req.ID == "" {
			req.ID = models.NewID()
		}
		req.Decision = models.DecisionPending
		req.DecisionDate = nil
		req.Touch(actor, time.Now().UTC())
		return tx.Create(req).Error
	})
}

// Save persists decision changes. Invariants enforced against the persisted
// prior state, not the in-memory one:
//
//   - the decision date is cleared while pending and stamped only on the
//     save where the decision actually changes, so repeated saves without a
//     change never re-stamp it;
//   - decided requests are final: the only transitions are pending to
//     accepted and pending to denied;
//   - accepting enrolls the user (assignment method "access-request", no
//     passphrase check, since the granted request is the authorization
//     artifact); denying withdraws any matching assignment.
func (s *AccessRequestStore) Save(ctx context.Context, actor string, req *models.AccessRequest) error {
	if !req.Decision.IsValid() {
		return fmt.Errorf("%w: decision %q", models.ErrInvalidData, req.Decision)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prior models.AccessRequest
		if err := tx.Where("id = ?", req.ID).First(&prior).Error; err != nil {
			return notFound(err)
		}
		if err := resolveScopeFromRole(tx, s.Registry, &req.ScopeRef, req.RoleID); err != nil {
			return err
		}

		changed := prior.Decision != req.Decision
		if changed && prior.Decision != models.DecisionPending {
			return fmt.Errorf("%w: request already %s", models.ErrInvalidData, prior.Decision)
		}
		switch {
		case req.Decision == models.DecisionPending:
			req.DecisionDate = nil
		case changed:
			now := time.Now().UTC()
			req.DecisionDate = &now
		default:
			req.DecisionDate = prior.DecisionDate
		}

		switch req.Decision {
		case models.DecisionAccepted:
			if _, err := s.Assignments.enrollTx(tx, actor, req, req.UserID); err != nil {
				return err
			}
		case models.DecisionDenied:
			if err := s.Assignments.withdrawTx(tx, req, req.UserID); err != nil {
				return err
			}
		}

		req.Touch(actor, time.Now().UTC())
		updates := map[string]interface{}{
			"decision":      req.Decision,
			"decision_date": req.DecisionDate,
			"end_date":      req.EndDate,
			"modified_by":   req.ModifiedBy,
			"modified_at":   req.ModifiedAt,
		}
		return tx.Model(&models.AccessRequest{}).Where("id = ?", req.ID).Updates(updates).Error
	})
}

// Accept grants the request, creating the matching role assignment.
func (s *AccessRequestStore) Accept(ctx context.Context, actor string, id string) (*models.AccessRequest, error) {
	return s.decide(ctx, actor, id, models.DecisionAccepted)
}

// Deny rejects the request, removing any matching role assignment.
func (s *AccessRequestStore) Deny(ctx context.Context, actor string, id string) (*models.AccessRequest, error) {
	return s.decide(ctx, actor, id, models.DecisionDenied)
}

func (s *AccessRequestStore) decide(ctx context.Context, actor string, id string, decision models.Decision) (*models.AccessRequest, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Decision = decision
	if err := s.Save(ctx, actor, req); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Get loads a request by id with its role.
func (s *AccessRequestStore) Get(ctx context.Context, id string) (*models.AccessRequest, error) {
	var req models.AccessRequest
	err := s.DB.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// Delete removes a request. The role assignment, if any was created, stays.
func (s *AccessRequestStore) Delete(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.AccessRequest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListForScope lists the requests targeting a scope, newest first.
func (s *AccessRequestStore) ListForScope(ctx context.Context, ref models.ScopeRef) ([]models.AccessRequest, error) {
	var reqs []models.AccessRequest
	err := s.DB.WithContext(ctx).Preload("Role").
		Where("scope_type = ? AND scope_uuid = ?", ref.ScopeType, ref.ScopeUUID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

// ListForUser lists a user's own requests across scopes, newest first.
func (s *AccessRequestStore) ListForUser(ctx context.Context, userID string) ([]models.AccessRequest, error) {
	var reqs []models.AccessRequest
	err := s.DB.WithContext(ctx).Preload("Role").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}
