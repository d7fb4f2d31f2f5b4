package services

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/brikvest/apiserver/types"
)

// userAdminStore extends userStore with the admin-facing operations.
type userAdminStore interface {
	userStore
	Update(ctx context.Context, user types.User) (types.User, error)
	SoftDelete(ctx context.Context, id int) error
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
}

// UpdateProfileInput carries the self-service editable fields. Nil
// pointers leave the current value untouched.
type UpdateProfileInput struct {
	Phone     *string
	FirstName *string
	LastName  *string
	Password  *string
}

// UserService covers profile reads and writes plus the admin user list.
type UserService struct {
	users    userAdminStore
	rbac     *RBACService
	sessions *SessionRegistry
}

func NewUserService(users userAdminStore, rbac *RBACService, sessions *SessionRegistry) *UserService {
	return &UserService{users: users, rbac: rbac, sessions: sessions}
}

func (s *UserService) Get(ctx context.Context, id int) (types.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	return s.users.List(ctx, offset, limit)
}

// UpdateProfile applies partial updates. A password change rehashes
// with bcrypt.
func (s *UserService) UpdateProfile(ctx context.Context, id int, in UpdateProfileInput) (types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordHash = string(hash)
	}
	return s.users.Update(ctx, user)
}

// Delete soft-deletes the account and revokes every live session so
// outstanding tokens stop working immediately.
func (s *UserService) Delete(ctx context.Context, id int) error {
	if err := s.users.SoftDelete(ctx, id); err != nil {
		return err
	}
	_, err := s.sessions.DeleteAllForUser(ctx, id)
	return err
}

// AssignRole grants a role to a user. Admin only.
func (s *UserService) AssignRole(ctx context.Context, userID int, roleName string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.rbac.AssignRole(ctx, userID, roleName)
}

// RemoveRole revokes a role from a user. Admin only.
func (s *UserService) RemoveRole(ctx context.Context, userID int, roleName string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	return s.rbac.RemoveRole(ctx, userID, roleName)
}
