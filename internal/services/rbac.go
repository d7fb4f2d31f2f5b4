package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brikvest/apiserver/internal/cache"
)

const (
	permsKeyPrefix = "perms:"
	permsCacheTTL  = 10 * time.Minute
)

func permsKey(userID int) string {
	return fmt.Sprintf("%s%d", permsKeyPrefix, userID)
}

// rbacStore is the slice of the RBAC repository the service consumes.
type rbacStore interface {
	UserRoles(ctx context.Context, userID int) ([]string, error)
	UserPermissions(ctx context.Context, userID int) ([]string, error)
	AssignRole(ctx context.Context, userID int, roleName string) error
	RemoveRole(ctx context.Context, userID int, roleName string) error
}

// RBACService resolves role and permission sets. Permission lookups go
// through a short-lived Redis cache; role changes invalidate it so the
// window where a revoked permission still works stays small.
type RBACService struct {
	store  rbacStore
	cache  *cache.Client
	logger *zap.Logger
}

func NewRBACService(store rbacStore, c *cache.Client, logger *zap.Logger) *RBACService {
	return &RBACService{store: store, cache: c, logger: logger}
}

// RolesAndPermissions loads both sets for token issuance.
func (s *RBACService) RolesAndPermissions(ctx context.Context, userID int) ([]string, []string, error) {
	roles, err := s.store.UserRoles(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	perms, err := s.Permissions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return roles, perms, nil
}

// Permissions returns the user's flattened permission keys, serving
// from cache when possible.
func (s *RBACService) Permissions(ctx context.Context, userID int) ([]string, error) {
	var cached []string
	err := s.cache.GetJSON(ctx, permsKey(userID), &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn("permission cache read failed", zap.Int("user_id", userID), zap.Error(err))
	}

	perms, err := s.store.UserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, permsKey(userID), perms, permsCacheTTL); err != nil {
		s.logger.Warn("permission cache write failed", zap.Int("user_id", userID), zap.Error(err))
	}
	return perms, nil
}

// AssignRole grants a role and drops the cached permission set.
func (s *RBACService) AssignRole(ctx context.Context, userID int, roleName string) error {
	if err := s.store.AssignRole(ctx, userID, roleName); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

// RemoveRole revokes a role and drops the cached permission set.
func (s *RBACService) RemoveRole(ctx context.Context, userID int, roleName string) error {
	if err := s.store.RemoveRole(ctx, userID, roleName); err != nil {
		return err
	}
	return s.invalidate(ctx, userID)
}

func (s *RBACService) invalidate(ctx context.Context, userID int) error {
	if err := s.cache.Delete(ctx, permsKey(userID)); err != nil {
		s.logger.Warn("permission cache invalidation failed", zap.Int("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}
